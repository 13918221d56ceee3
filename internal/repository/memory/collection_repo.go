package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
	apperrors "github.com/yourusername/animemaster-api/internal/pkg/errors"
)

type collectionKey struct {
	userID  uint
	animeID uint
}

// CollectionRepo is an in-memory repository.CollectionRepository. Writes to
// one (user, anime) row run under the map's per-key lock.
type CollectionRepo struct {
	rows *xsync.MapOf[collectionKey, entity.UserAnimeStatus]
	seq  atomic.Uint64
	now  func() time.Time
}

func NewCollectionRepo() *CollectionRepo {
	return &CollectionRepo{
		rows: xsync.NewMapOf[collectionKey, entity.UserAnimeStatus](),
		now:  time.Now,
	}
}

func (r *CollectionRepo) List(_ context.Context, userID uint, status entity.WatchStatus) ([]entity.UserAnimeStatus, error) {
	var out []entity.UserAnimeStatus
	r.rows.Range(func(key collectionKey, row entity.UserAnimeStatus) bool {
		if key.userID == userID && (status == "" || row.Status == status) {
			out = append(out, row)
		}
		return true
	})
	slices.SortFunc(out, func(a, b entity.UserAnimeStatus) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *CollectionRepo) Create(_ context.Context, row *entity.UserAnimeStatus) error {
	key := collectionKey{userID: row.UserID, animeID: row.AnimeID}
	conflict := false
	r.rows.Compute(key, func(old entity.UserAnimeStatus, loaded bool) (entity.UserAnimeStatus, bool) {
		if loaded {
			conflict = true
			return old, false
		}
		now := r.now()
		row.ID = uint(r.seq.Add(1))
		row.CreatedAt = now
		row.UpdatedAt = now
		return *row, false
	})
	if conflict {
		return fmt.Errorf("%w: anime %d already in collection", apperrors.ErrConflict, row.AnimeID)
	}
	return nil
}

func (r *CollectionRepo) Update(_ context.Context, userID, animeID uint, fn func(row *entity.UserAnimeStatus) error) error {
	var err error
	r.rows.Compute(collectionKey{userID: userID, animeID: animeID}, func(old entity.UserAnimeStatus, loaded bool) (entity.UserAnimeStatus, bool) {
		if !loaded {
			err = apperrors.ErrNotFound
			return old, true
		}
		working := old
		if err = fn(&working); err != nil {
			return old, false
		}
		working.ID, working.UserID, working.AnimeID = old.ID, old.UserID, old.AnimeID
		working.CreatedAt = old.CreatedAt
		working.UpdatedAt = r.now()
		return working, false
	})
	return err
}

func (r *CollectionRepo) Delete(_ context.Context, userID, animeID uint) error {
	if _, loaded := r.rows.LoadAndDelete(collectionKey{userID: userID, animeID: animeID}); !loaded {
		return apperrors.ErrNotFound
	}
	return nil
}
