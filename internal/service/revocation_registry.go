package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/animemaster-api/internal/domain/repository"
	"github.com/yourusername/animemaster-api/internal/pkg/logger"
)

// TokenRevocationRegistry invalidates tokens before their embedded expiry.
// It is safe for concurrent use; atomicity per token is provided by the store.
type TokenRevocationRegistry struct {
	store    repository.RevocationStore
	expiryOf func(token string) time.Time
	log      zerolog.Logger
	now      func() time.Time
}

// NewTokenRevocationRegistry creates a registry over store.
func NewTokenRevocationRegistry(store repository.RevocationStore, log zerolog.Logger) (*TokenRevocationRegistry, error) {
	if store == nil {
		return nil, fmt.Errorf("RevocationStore is required for TokenRevocationRegistry")
	}
	return &TokenRevocationRegistry{
		store:    store,
		expiryOf: func(string) time.Time { return time.Time{} },
		log:      log.With().Str("component", "revocation").Logger(),
		now:      time.Now,
	}, nil
}

// SetExpiryResolver sets how the embedded expiry of a token is read. Entries
// revoked without a known expiry are never pruned.
func (r *TokenRevocationRegistry) SetExpiryResolver(fn func(token string) time.Time) {
	if fn != nil {
		r.expiryOf = fn
	}
}

// SetClock replaces the wall clock used by Prune.
func (r *TokenRevocationRegistry) SetClock(now func() time.Time) {
	r.now = now
}

// Revoke adds token to the registry. Empty input is ignored and repeated
// calls are no-ops.
func (r *TokenRevocationRegistry) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := r.store.Add(ctx, token, r.expiryOf(token)); err != nil {
		r.log.Error().Err(err).Str("token", logger.Fingerprint(token)).Msg("failed to revoke token")
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	r.log.Info().Str("token", logger.Fingerprint(token)).Msg("token revoked")
	return nil
}

// IsRevoked reports whether token has been revoked. A store failure is
// treated as revoked so that verification fails closed.
func (r *TokenRevocationRegistry) IsRevoked(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	revoked, err := r.store.Contains(ctx, token)
	if err != nil {
		r.log.Error().Err(err).Str("token", logger.Fingerprint(token)).Msg("revocation lookup failed, rejecting token")
		return true
	}
	return revoked
}

// Unrevoke removes token from the registry. It exists for administrative
// cleanup only.
func (r *TokenRevocationRegistry) Unrevoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := r.store.Remove(ctx, token); err != nil {
		return fmt.Errorf("failed to unrevoke token: %w", err)
	}
	r.log.Warn().Str("token", logger.Fingerprint(token)).Msg("token unrevoked")
	return nil
}

// Prune drops entries whose tokens have expired on their own.
func (r *TokenRevocationRegistry) Prune(ctx context.Context) (int, error) {
	return r.store.Prune(ctx, r.now())
}

// RunCleanup prunes the registry every interval until ctx is cancelled.
func (r *TokenRevocationRegistry) RunCleanup(ctx context.Context, interval time.Duration) {
	runJanitor(ctx, interval, r.log, "revocation", r.Prune)
}

// runJanitor calls prune on every tick until ctx is done.
func runJanitor(ctx context.Context, interval time.Duration, log zerolog.Logger, name string, prune func(context.Context) (int, error)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msgf("%s cleanup routine started", name)
	for {
		select {
		case <-ticker.C:
			removed, err := prune(ctx)
			if err != nil {
				log.Error().Err(err).Msgf("%s cleanup failed", name)
				continue
			}
			if removed > 0 {
				log.Debug().Int("removed", removed).Msgf("%s cleanup done", name)
			}
		case <-ctx.Done():
			log.Info().Msgf("%s cleanup routine stopped", name)
			return
		}
	}
}
