package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
	"github.com/yourusername/animemaster-api/internal/domain/repository"
	apperrors "github.com/yourusername/animemaster-api/internal/pkg/errors"
)

var (
	ErrAlreadyInCollection = errors.New("already_in_collection")
	ErrNotInCollection     = errors.New("not_in_collection")
)

// MaxRating is the upper bound of a user's own score.
const MaxRating = 10

// AddToCollectionInput describes an anime being added to a collection.
// Status defaults to want-to-watch.
type AddToCollectionInput struct {
	AnimeID            uint
	Title              string
	TitleCn            string
	Image              string
	Episodes           *int
	Status             string
	Progress           *int
	LastWatchedEpisode *int
	Rating             *float64
	Notes              string
}

// CollectionService manages the per-user watch list.
type CollectionService struct {
	repo repository.CollectionRepository
	log  zerolog.Logger
}

func NewCollectionService(repo repository.CollectionRepository, log zerolog.Logger) (*CollectionService, error) {
	if repo == nil {
		return nil, fmt.Errorf("CollectionRepository is required for CollectionService")
	}
	return &CollectionService{
		repo: repo,
		log:  log.With().Str("component", "collection").Logger(),
	}, nil
}

// Collections returns the rows of userID grouped by status. Every status is
// present, possibly with an empty list.
func (s *CollectionService) Collections(ctx context.Context, userID uint) (map[entity.WatchStatus][]entity.UserAnimeStatus, error) {
	rows, err := s.repo.List(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list collection: %w", err)
	}

	grouped := make(map[entity.WatchStatus][]entity.UserAnimeStatus, len(entity.WatchStatuses))
	for _, status := range entity.WatchStatuses {
		grouped[status] = []entity.UserAnimeStatus{}
	}
	for _, row := range rows {
		if _, known := grouped[row.Status]; known {
			grouped[row.Status] = append(grouped[row.Status], row)
		}
	}
	return grouped, nil
}

// List returns the rows of userID with status, or all rows for an empty status.
func (s *CollectionService) List(ctx context.Context, userID uint, status string) ([]entity.UserAnimeStatus, error) {
	var filter entity.WatchStatus
	if status != "" {
		parsed, err := parseStatus(status)
		if err != nil {
			return nil, err
		}
		filter = parsed
	}

	rows, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection: %w", err)
	}
	if rows == nil {
		rows = []entity.UserAnimeStatus{}
	}
	return rows, nil
}

// Add inserts a new row. Progress is made consistent with the status.
func (s *CollectionService) Add(ctx context.Context, userID uint, input AddToCollectionInput) (*entity.UserAnimeStatus, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.AnimeID == 0 || input.Title == "" {
		return nil, fmt.Errorf("%w: animeId and title are required", apperrors.ErrValidation)
	}
	if input.Status == "" {
		input.Status = string(entity.StatusWantToWatch)
	}
	status, err := parseStatus(input.Status)
	if err != nil {
		return nil, err
	}
	if err := checkCounts(input.Episodes, input.Progress, input.LastWatchedEpisode); err != nil {
		return nil, err
	}
	if input.Rating != nil && (*input.Rating < 0 || *input.Rating > MaxRating) {
		return nil, fmt.Errorf("%w: rating must be between 0 and %d", apperrors.ErrValidation, MaxRating)
	}

	row := &entity.UserAnimeStatus{
		UserID:             userID,
		AnimeID:            input.AnimeID,
		Title:              input.Title,
		TitleCn:            strings.TrimSpace(input.TitleCn),
		Image:              strings.TrimSpace(input.Image),
		Episodes:           input.Episodes,
		Status:             status,
		LastWatchedEpisode: input.LastWatchedEpisode,
		Rating:             input.Rating,
		Notes:              input.Notes,
	}
	row.NormalizeProgress(input.Progress)

	if err := s.repo.Create(ctx, row); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, ErrAlreadyInCollection
		}
		return nil, fmt.Errorf("failed to add to collection: %w", err)
	}

	s.log.Info().Uint("user_id", userID).Uint("anime_id", row.AnimeID).Str("status", string(row.Status)).Int("progress", row.Progress).Msg("anime added to collection")
	return row, nil
}

// Update changes the status of an existing row. An explicit progress is
// normalized against the new status; without one, a status change resets
// progress to the default of that status.
func (s *CollectionService) Update(ctx context.Context, userID, animeID uint, status string, progress *int) error {
	parsed, err := parseStatus(status)
	if err != nil {
		return err
	}
	if err := checkCounts(nil, progress, nil); err != nil {
		return err
	}

	err = s.repo.Update(ctx, userID, animeID, func(row *entity.UserAnimeStatus) error {
		applyStatus(row, parsed, progress)
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ErrNotInCollection
		}
		return fmt.Errorf("failed to update collection: %w", err)
	}

	s.log.Info().Uint("user_id", userID).Uint("anime_id", animeID).Str("status", string(parsed)).Msg("collection entry updated")
	return nil
}

// SetStatus sets the status of animeID, creating a bare row when the anime
// is not collected yet.
func (s *CollectionService) SetStatus(ctx context.Context, userID, animeID uint, status string) error {
	parsed, err := parseStatus(status)
	if err != nil {
		return err
	}
	if animeID == 0 {
		return fmt.Errorf("%w: animeId is required", apperrors.ErrValidation)
	}

	update := func(row *entity.UserAnimeStatus) error {
		applyStatus(row, parsed, nil)
		return nil
	}

	// A concurrent insert between the two calls turns Create into a
	// conflict; the second Update then finds that row.
	for attempt := 0; attempt < 2; attempt++ {
		err = s.repo.Update(ctx, userID, animeID, update)
		if !errors.Is(err, apperrors.ErrNotFound) {
			break
		}
		row := &entity.UserAnimeStatus{UserID: userID, AnimeID: animeID, Status: parsed}
		row.NormalizeProgress(nil)
		err = s.repo.Create(ctx, row)
		if !errors.Is(err, apperrors.ErrConflict) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to set watch status: %w", err)
	}

	s.log.Info().Uint("user_id", userID).Uint("anime_id", animeID).Str("status", string(parsed)).Msg("watch status set")
	return nil
}

// SetProgress records the number of episodes watched. The status is left
// as it is.
func (s *CollectionService) SetProgress(ctx context.Context, userID, animeID uint, progress int) error {
	if progress < 0 {
		return fmt.Errorf("%w: progress must not be negative", apperrors.ErrValidation)
	}

	err := s.repo.Update(ctx, userID, animeID, func(row *entity.UserAnimeStatus) error {
		if row.Episodes != nil && progress > *row.Episodes {
			return fmt.Errorf("%w: progress exceeds the %d episodes", apperrors.ErrValidation, *row.Episodes)
		}
		row.Progress = progress
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ErrNotInCollection
		}
		if errors.Is(err, apperrors.ErrValidation) {
			return err
		}
		return fmt.Errorf("failed to set progress: %w", err)
	}
	return nil
}

// Remove deletes the row of animeID.
func (s *CollectionService) Remove(ctx context.Context, userID, animeID uint) error {
	if err := s.repo.Delete(ctx, userID, animeID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ErrNotInCollection
		}
		return fmt.Errorf("failed to remove from collection: %w", err)
	}

	s.log.Info().Uint("user_id", userID).Uint("anime_id", animeID).Msg("anime removed from collection")
	return nil
}

func applyStatus(row *entity.UserAnimeStatus, status entity.WatchStatus, progress *int) {
	changed := row.Status != status
	row.Status = status
	switch {
	case progress != nil:
		row.NormalizeProgress(progress)
	case changed:
		row.NormalizeProgress(nil)
	}
}

func parseStatus(status string) (entity.WatchStatus, error) {
	parsed, err := entity.ParseWatchStatus(status)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	return parsed, nil
}

func checkCounts(counts ...*int) error {
	for _, n := range counts {
		if n != nil && *n < 0 {
			return fmt.Errorf("%w: episode counts must not be negative", apperrors.ErrValidation)
		}
	}
	return nil
}
