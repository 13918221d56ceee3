package service

import (
	"errors"

	"github.com/yourusername/animemaster-api/pkg/auth"
)

// Auth flow specific errors used by handlers for stable error_type mapping.
var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountDisabled    = errors.New("account_disabled")
	ErrAccountLocked      = errors.New("account_locked")

	ErrTokenMalformed = auth.ErrTokenMalformed
	ErrTokenExpired   = auth.ErrTokenExpired
	ErrTokenRevoked   = auth.ErrTokenRevoked

	ErrCodeRateLimited     = errors.New("code_rate_limited")
	ErrCodeExpired         = errors.New("code_expired")
	ErrCodeMismatch        = errors.New("code_mismatch")
	ErrCodePurposeMismatch = errors.New("code_purpose_mismatch")
	ErrCodeNotFound        = errors.New("code_not_found")
	ErrNotificationFailed  = errors.New("notification_failed")

	ErrUsernameTaken = errors.New("username_taken")
	ErrEmailTaken    = errors.New("email_taken")
)

// reasonOf returns the short log label for a failure from the taxonomy.
func reasonOf(err error) string {
	for _, known := range []error{
		ErrInvalidCredentials, ErrAccountDisabled, ErrAccountLocked,
		ErrTokenMalformed, ErrTokenExpired, ErrTokenRevoked,
		ErrCodeRateLimited, ErrCodeExpired, ErrCodeMismatch,
		ErrCodePurposeMismatch, ErrCodeNotFound, ErrNotificationFailed,
		ErrUsernameTaken, ErrEmailTaken,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "internal"
}
