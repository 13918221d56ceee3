package repository

import (
	"context"
	"time"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
)

// VerificationCodeStore keeps at most one live code per recipient address.
// Every method is atomic per recipient.
type VerificationCodeStore interface {
	// Get returns the stored entry or apperrors.ErrNotFound.
	Get(ctx context.Context, recipient string) (*entity.VerificationCode, error)

	// PutIfIdle stores code unless the current entry for the same recipient is
	// unexpired at code.SendTime and was sent less than interval before it.
	// It reports whether code was stored.
	PutIfIdle(ctx context.Context, code *entity.VerificationCode, interval time.Duration) (bool, error)

	// DeleteIfMatch removes the entry for recipient only while it still holds
	// the given code value and send time, and reports whether it did.
	DeleteIfMatch(ctx context.Context, recipient, code string, sendTime time.Time) (bool, error)

	// PruneExpired drops entries expired at now and returns how many were removed.
	PruneExpired(ctx context.Context, now time.Time) (int, error)
}
