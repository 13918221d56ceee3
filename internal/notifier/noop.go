package notifier

import (
	"context"

	"github.com/rs/zerolog"
)

// Noop accepts every message without sending it. Used in development and
// when no delivery channel is configured.
type Noop struct {
	log zerolog.Logger
}

func NewNoop(log zerolog.Logger) *Noop {
	return &Noop{log: log}
}

func (n *Noop) Deliver(_ context.Context, recipient, subject, _ string) bool {
	n.log.Info().Str("to", recipient).Str("subject", subject).Msg("noop delivery")
	return true
}
