package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
	"github.com/yourusername/animemaster-api/internal/domain/repository"
	apperrors "github.com/yourusername/animemaster-api/internal/pkg/errors"
)

const (
	DefaultCodeTTL      = 10 * time.Minute
	DefaultSendInterval = 60 * time.Second
	DefaultNickname     = "AnimeMaster"

	// CodeLength is the exact number of ASCII digits in every code.
	CodeLength = 6
)

// Notifier delivers a composed message to a recipient address. It reports
// failure as false and must not panic; timeouts are its own concern.
type Notifier interface {
	Deliver(ctx context.Context, recipient, subject, body string) bool
}

// VerificationCodeService issues and checks one-time codes, one live code per
// recipient address.
type VerificationCodeService struct {
	store        repository.VerificationCodeStore
	notifier     Notifier
	codeTTL      time.Duration
	sendInterval time.Duration
	nickname     string
	log          zerolog.Logger
	now          func() time.Time
	generate     func() (string, error)
}

func NewVerificationCodeService(
	store repository.VerificationCodeStore,
	notifier Notifier,
	codeTTL time.Duration,
	sendInterval time.Duration,
	nickname string,
	log zerolog.Logger,
) (*VerificationCodeService, error) {
	if store == nil {
		return nil, fmt.Errorf("VerificationCodeStore is required for VerificationCodeService")
	}
	if notifier == nil {
		return nil, fmt.Errorf("Notifier is required for VerificationCodeService")
	}
	if codeTTL <= 0 {
		codeTTL = DefaultCodeTTL
	}
	if sendInterval <= 0 {
		sendInterval = DefaultSendInterval
	}
	if strings.TrimSpace(nickname) == "" {
		nickname = DefaultNickname
	}

	return &VerificationCodeService{
		store:        store,
		notifier:     notifier,
		codeTTL:      codeTTL,
		sendInterval: sendInterval,
		nickname:     nickname,
		log:          log.With().Str("component", "verification").Logger(),
		now:          time.Now,
		generate:     generateVerificationCode,
	}, nil
}

// SetClock replaces the wall clock used for send intervals and expiry.
func (s *VerificationCodeService) SetClock(now func() time.Time) {
	s.now = now
}

// SendCode issues a fresh code for recipient and hands it to the notifier.
// It returns false when rate limited, when delivery fails or on store errors;
// the reason is logged.
func (s *VerificationCodeService) SendCode(ctx context.Context, recipient string, purpose entity.CodePurpose) bool {
	if err := s.send(ctx, recipient, purpose); err != nil {
		s.log.Info().Str("reason", reasonOf(err)).Err(err).Str("purpose", string(purpose)).Msg("verification code not sent")
		return false
	}
	return true
}

// VerifyCode checks code against the live entry for recipient and consumes it
// on success. Callers must reject input that is not CodeLength digits first.
func (s *VerificationCodeService) VerifyCode(ctx context.Context, recipient, code string, purpose entity.CodePurpose) bool {
	if err := s.verify(ctx, recipient, code, purpose); err != nil {
		s.log.Info().Str("reason", reasonOf(err)).Err(err).Str("purpose", string(purpose)).Msg("verification code rejected")
		return false
	}
	return true
}

func (s *VerificationCodeService) send(ctx context.Context, recipient string, purpose entity.CodePurpose) error {
	recipient = normalizeEmail(recipient)
	if recipient == "" {
		return fmt.Errorf("%w: empty recipient", apperrors.ErrValidation)
	}
	if purpose != entity.PurposeRegister && purpose != entity.PurposeResetPassword {
		return fmt.Errorf("%w: %q", ErrInvalidPurpose, purpose)
	}

	code, err := s.generate()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}

	now := s.now()
	entry := &entity.VerificationCode{
		Recipient:  recipient,
		Code:       code,
		Purpose:    purpose,
		SendTime:   now,
		ExpiryTime: now.Add(s.codeTTL),
	}
	stored, err := s.store.PutIfIdle(ctx, entry, s.sendInterval)
	if err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}
	if !stored {
		return ErrCodeRateLimited
	}

	// The store is not held while the notifier runs.
	subject, body := s.composeMessage(purpose, code)
	if !s.notifier.Deliver(ctx, recipient, subject, body) {
		if _, err := s.store.DeleteIfMatch(ctx, recipient, code, entry.SendTime); err != nil {
			s.log.Error().Err(err).Msg("failed to roll back undelivered verification code")
		}
		return ErrNotificationFailed
	}

	s.log.Info().Str("purpose", string(purpose)).Time("expires_at", entry.ExpiryTime).Msg("verification code sent")
	return nil
}

func (s *VerificationCodeService) verify(ctx context.Context, recipient, code string, purpose entity.CodePurpose) error {
	recipient = normalizeEmail(recipient)

	entry, err := s.store.Get(ctx, recipient)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ErrCodeNotFound
		}
		return fmt.Errorf("failed to load verification code: %w", err)
	}

	if entry.Purpose != purpose {
		return ErrCodePurposeMismatch
	}
	if entry.IsExpired(s.now()) {
		if _, err := s.store.DeleteIfMatch(ctx, recipient, entry.Code, entry.SendTime); err != nil {
			s.log.Error().Err(err).Msg("failed to delete expired verification code")
		}
		return ErrCodeExpired
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(entry.Code)) != 1 {
		return ErrCodeMismatch
	}

	consumed, err := s.store.DeleteIfMatch(ctx, recipient, entry.Code, entry.SendTime)
	if err != nil {
		return fmt.Errorf("failed to consume verification code: %w", err)
	}
	if !consumed {
		// Consumed or replaced by a concurrent request since Get.
		return ErrCodeNotFound
	}
	return nil
}

// Prune drops expired entries.
func (s *VerificationCodeService) Prune(ctx context.Context) (int, error) {
	return s.store.PruneExpired(ctx, s.now())
}

// RunCleanup prunes expired codes every interval until ctx is cancelled.
func (s *VerificationCodeService) RunCleanup(ctx context.Context, interval time.Duration) {
	runJanitor(ctx, interval, s.log, "verification code", s.Prune)
}

func (s *VerificationCodeService) composeMessage(purpose entity.CodePurpose, code string) (subject, body string) {
	action := fmt.Sprintf("registering a %s account", s.nickname)
	subject = s.nickname + " - registration code"
	if purpose == entity.PurposeResetPassword {
		action = fmt.Sprintf("resetting the password of your %s account", s.nickname)
		subject = s.nickname + " - password reset code"
	}

	body = fmt.Sprintf(
		"Hello!\n\nYou are %s. Your verification code is: %s\n\n"+
			"The code is valid for %d minutes.\n\n"+
			"If you did not request this, please ignore this email.\n\nThe %s team",
		action, code, int(s.codeTTL.Minutes()), s.nickname,
	)
	return subject, body
}

func generateVerificationCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// IsWellFormedCode reports whether code is exactly CodeLength ASCII digits.
func IsWellFormedCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
