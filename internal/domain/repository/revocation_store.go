package repository

import (
	"context"
	"time"
)

// RevocationStore holds revoked tokens keyed by their exact string value.
type RevocationStore interface {
	// Add inserts token; adding an existing token is a no-op.
	// expiresAt is the token's embedded expiry (zero if unknown) and only
	// bounds how long the entry has to be retained.
	Add(ctx context.Context, token string, expiresAt time.Time) error

	// Contains reports whether token has been revoked.
	Contains(ctx context.Context, token string) (bool, error)

	// Remove deletes token from the store.
	Remove(ctx context.Context, token string) error

	// Prune drops entries whose embedded expiry is before now and returns how many were removed.
	Prune(ctx context.Context, now time.Time) (int, error)
}
