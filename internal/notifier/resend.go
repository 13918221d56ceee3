package notifier

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

const resendMaxAttempts = 3

// emailSender is the subset of the Resend client used here.
type emailSender interface {
	SendWithOptions(ctx context.Context, params *resend.SendEmailRequest, options *resend.SendEmailOptions) (*resend.SendEmailResponse, error)
}

// Resend delivers messages through the Resend REST API, retrying rate
// limits and transient network errors.
type Resend struct {
	from   string
	emails emailSender
	log    zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewResend(apiKey, from string, log zerolog.Logger) (*Resend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &Resend{
		from:   from,
		emails: resend.NewClient(apiKey).Emails,
		log:    log,
		sleep:  sleepCtx,
	}, nil
}

func (r *Resend) Deliver(ctx context.Context, recipient, subject, body string) bool {
	if err := r.send(ctx, recipient, subject, body); err != nil {
		r.log.Error().Err(err).Str("to", recipient).Msg("failed to deliver email")
		return false
	}
	r.log.Info().Str("to", recipient).Msg("email delivered")
	return true
}

func (r *Resend) send(ctx context.Context, recipient, subject, body string) error {
	if recipient == "" {
		return fmt.Errorf("recipient is required")
	}

	params := &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{recipient},
		Subject: subject,
		Text:    body,
		Html:    "<p>" + strings.ReplaceAll(html.EscapeString(body), "\n", "<br>") + "</p>",
	}

	var lastErr error
	for attempt := 0; attempt < resendMaxAttempts; attempt++ {
		_, err := r.emails.SendWithOptions(ctx, params, &resend.SendEmailOptions{})
		if err == nil {
			return nil
		}
		lastErr = err

		wait, ok := resendRetryDelay(err, attempt)
		if !ok {
			return fmt.Errorf("resend send failed: %w", err)
		}
		r.log.Warn().Err(err).Int("attempt", attempt+1).Dur("retry_in", wait).Msg("resend send failed, retrying")
		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
