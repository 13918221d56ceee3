package memory

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
	apperrors "github.com/yourusername/animemaster-api/internal/pkg/errors"
)

// VerificationCodeStore keeps one code per recipient in a sharded concurrent
// map. Every operation runs under the map's per-key lock, so the check and
// the write of PutIfIdle and DeleteIfMatch cannot interleave with another
// request for the same recipient.
type VerificationCodeStore struct {
	entries *xsync.MapOf[string, entity.VerificationCode]
}

func NewVerificationCodeStore() *VerificationCodeStore {
	return &VerificationCodeStore{
		entries: xsync.NewMapOf[string, entity.VerificationCode](),
	}
}

func (s *VerificationCodeStore) Get(_ context.Context, recipient string) (*entity.VerificationCode, error) {
	entry, ok := s.entries.Load(recipient)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &entry, nil
}

func (s *VerificationCodeStore) PutIfIdle(_ context.Context, code *entity.VerificationCode, interval time.Duration) (bool, error) {
	stored := false
	s.entries.Compute(code.Recipient, func(old entity.VerificationCode, loaded bool) (entity.VerificationCode, bool) {
		if loaded && !old.IsExpired(code.SendTime) && old.InSendInterval(code.SendTime, interval) {
			return old, false
		}
		stored = true
		return *code, false
	})
	return stored, nil
}

func (s *VerificationCodeStore) DeleteIfMatch(_ context.Context, recipient, code string, sendTime time.Time) (bool, error) {
	deleted := false
	s.entries.Compute(recipient, func(old entity.VerificationCode, loaded bool) (entity.VerificationCode, bool) {
		if !loaded {
			return old, true
		}
		if old.Code == code && old.SendTime.Equal(sendTime) {
			deleted = true
			return old, true
		}
		return old, false
	})
	return deleted, nil
}

func (s *VerificationCodeStore) PruneExpired(_ context.Context, now time.Time) (int, error) {
	var candidates []string
	s.entries.Range(func(recipient string, entry entity.VerificationCode) bool {
		if entry.IsExpired(now) {
			candidates = append(candidates, recipient)
		}
		return true
	})

	removed := 0
	for _, recipient := range candidates {
		s.entries.Compute(recipient, func(old entity.VerificationCode, loaded bool) (entity.VerificationCode, bool) {
			if loaded && old.IsExpired(now) {
				removed++
				return old, true
			}
			return old, !loaded
		})
	}
	return removed, nil
}
