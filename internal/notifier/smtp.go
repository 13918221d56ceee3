package notifier

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/yourusername/animemaster-api/internal/config"
)

// messageSender is satisfied by *gomail.Dialer.
type messageSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTP delivers plain-text mail through an SMTP relay.
type SMTP struct {
	from   string
	sender messageSender
	log    zerolog.Logger
}

func NewSMTP(cfg config.SMTPConfig, from string, log zerolog.Logger) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("smtp port is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &SMTP{
		from:   from,
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		log:    log,
	}, nil
}

// Deliver sends one message. gomail does not take a context; the dial and
// send are bounded by the dialer's own timeouts.
func (s *SMTP) Deliver(_ context.Context, recipient, subject, body string) bool {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := s.sender.DialAndSend(msg); err != nil {
		s.log.Error().Err(err).Str("to", recipient).Msg("failed to deliver email")
		return false
	}
	s.log.Info().Str("to", recipient).Msg("email delivered")
	return true
}
