package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
	"github.com/yourusername/animemaster-api/internal/domain/repository"
	apperrors "github.com/yourusername/animemaster-api/internal/pkg/errors"
)

const (
	// CatalogPageSize is the size of the daily and ranking lists and the
	// default search page.
	CatalogPageSize = 20
	// MaxSearchLimit caps a search page.
	MaxSearchLimit = 50
)

// CatalogService serves the read-only anime catalog.
type CatalogService struct {
	repo repository.AnimeRepository
	log  zerolog.Logger
	now  func() time.Time
}

func NewCatalogService(repo repository.AnimeRepository, log zerolog.Logger) (*CatalogService, error) {
	if repo == nil {
		return nil, fmt.Errorf("AnimeRepository is required for CatalogService")
	}
	return &CatalogService{
		repo: repo,
		log:  log.With().Str("component", "catalog").Logger(),
		now:  time.Now,
	}, nil
}

// SetClock replaces the clock that picks today's weekday.
func (s *CatalogService) SetClock(now func() time.Time) {
	s.now = now
}

// Daily returns the series airing today.
func (s *CatalogService) Daily(ctx context.Context) ([]entity.Anime, error) {
	weekday := s.now().Weekday()
	list, err := s.repo.AiringOn(ctx, weekday, CatalogPageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily schedule: %w", err)
	}
	s.log.Debug().Str("weekday", weekday.String()).Int("count", len(list)).Msg("daily schedule served")
	return list, nil
}

// Ranking returns the best scored series.
func (s *CatalogService) Ranking(ctx context.Context) ([]entity.Anime, error) {
	list, err := s.repo.TopRated(ctx, CatalogPageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load ranking: %w", err)
	}
	return list, nil
}

// Search looks keyword up in both names. A non-positive limit means the
// default page size; larger limits are capped at MaxSearchLimit.
func (s *CatalogService) Search(ctx context.Context, keyword string, limit, offset int) ([]entity.Anime, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("%w: keyword is required", apperrors.ErrValidation)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", apperrors.ErrValidation)
	}
	if limit <= 0 {
		limit = CatalogPageSize
	}
	limit = min(limit, MaxSearchLimit)

	list, err := s.repo.Search(ctx, keyword, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search catalog: %w", err)
	}
	return list, nil
}
