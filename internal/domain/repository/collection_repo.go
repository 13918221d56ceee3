package repository

import (
	"context"
	"time"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
)

// CollectionRepository stores the per-user watch status rows. A user holds
// at most one row per anime.
type CollectionRepository interface {
	// List returns the rows of userID, oldest first. An empty status
	// returns every row.
	List(ctx context.Context, userID uint, status entity.WatchStatus) ([]entity.UserAnimeStatus, error)

	// Create inserts row and reports a duplicate (user, anime) pair as
	// apperrors.ErrConflict.
	Create(ctx context.Context, row *entity.UserAnimeStatus) error

	// Update runs fn against the current row with other writers of that row
	// excluded and persists it when fn returns nil. A missing row is
	// apperrors.ErrNotFound.
	Update(ctx context.Context, userID, animeID uint, fn func(row *entity.UserAnimeStatus) error) error

	// Delete removes the row, or returns apperrors.ErrNotFound.
	Delete(ctx context.Context, userID, animeID uint) error
}

// AnimeRepository is the read side of the catalog. All queries return TV
// series only.
type AnimeRepository interface {
	// TopRated returns the highest scored entries.
	TopRated(ctx context.Context, limit int) ([]entity.Anime, error)
	// AiringOn returns entries whose weekly slot falls on weekday, best scored first.
	AiringOn(ctx context.Context, weekday time.Weekday, limit int) ([]entity.Anime, error)
	// Search matches keyword against both names, case-insensitively.
	Search(ctx context.Context, keyword string, limit, offset int) ([]entity.Anime, error)
}
