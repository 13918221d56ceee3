// Package notifier delivers one-time codes to users. Every implementation
// satisfies service.Notifier: failures are logged and reported as false.
package notifier

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yourusername/animemaster-api/internal/config"
)

// Notifier is the delivery contract shared by all drivers.
type Notifier interface {
	Deliver(ctx context.Context, recipient, subject, body string) bool
}

// New builds the notifier selected by cfg.Driver. The returned closer
// releases driver resources and is never nil.
func New(cfg config.NotifierConfig, log zerolog.Logger) (Notifier, io.Closer, error) {
	log = log.With().Str("component", "notifier").Str("driver", cfg.Driver).Logger()

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "noop":
		return NewNoop(log), nopCloser{}, nil
	case "resend":
		n, err := NewResend(cfg.ResendAPIKey, formatFrom(cfg.From, cfg.Nickname), log)
		if err != nil {
			return nil, nil, err
		}
		return n, nopCloser{}, nil
	case "smtp":
		n, err := NewSMTP(cfg.SMTP, formatFrom(cfg.From, cfg.Nickname), log)
		if err != nil {
			return nil, nil, err
		}
		return n, nopCloser{}, nil
	case "amqp":
		n, err := DialAMQP(cfg.AMQP.URL, cfg.AMQP.Queue, log)
		if err != nil {
			return nil, nil, err
		}
		return n, n, nil
	default:
		return nil, nil, fmt.Errorf("unknown notifier driver %q", cfg.Driver)
	}
}

// formatFrom renders the sender as `Nickname <address>` when a nickname is set.
func formatFrom(address, nickname string) string {
	if address == "" || nickname == "" || strings.Contains(address, "<") {
		return address
	}
	return fmt.Sprintf("%s <%s>", nickname, address)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
