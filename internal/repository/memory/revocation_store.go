package memory

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
)

// RevocationStore is a process-lifetime revocation set backed by a sharded
// concurrent map. It is empty at start and is never persisted.
type RevocationStore struct {
	entries *xsync.MapOf[string, entity.RevokedToken]
	now     func() time.Time
}

func NewRevocationStore() *RevocationStore {
	return &RevocationStore{
		entries: xsync.NewMapOf[string, entity.RevokedToken](),
		now:     time.Now,
	}
}

func (s *RevocationStore) Add(_ context.Context, token string, expiresAt time.Time) error {
	s.entries.LoadOrStore(token, entity.RevokedToken{
		Token:     token,
		RevokedAt: s.now(),
		ExpiresAt: expiresAt,
	})
	return nil
}

func (s *RevocationStore) Contains(_ context.Context, token string) (bool, error) {
	_, ok := s.entries.Load(token)
	return ok, nil
}

func (s *RevocationStore) Remove(_ context.Context, token string) error {
	s.entries.Delete(token)
	return nil
}

func (s *RevocationStore) Prune(_ context.Context, now time.Time) (int, error) {
	var candidates []string
	s.entries.Range(func(token string, entry entity.RevokedToken) bool {
		if entry.Prunable(now) {
			candidates = append(candidates, token)
		}
		return true
	})

	removed := 0
	for _, token := range candidates {
		s.entries.Compute(token, func(old entity.RevokedToken, loaded bool) (entity.RevokedToken, bool) {
			if loaded && old.Prunable(now) {
				removed++
				return old, true
			}
			return old, !loaded
		})
	}
	return removed, nil
}

// Len returns the number of revoked tokens held.
func (s *RevocationStore) Len() int {
	return s.entries.Size()
}
