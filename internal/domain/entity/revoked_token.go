package entity

import "time"

// RevokedToken is a token that was invalidated before its natural expiry.
// ExpiresAt is the expiry embedded in the token; once it has passed the entry
// carries no information and may be pruned.
type RevokedToken struct {
	Token     string    `json:"-"`
	RevokedAt time.Time `json:"revoked_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Prunable reports whether the entry can be dropped without changing any verification outcome.
func (r *RevokedToken) Prunable(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}
