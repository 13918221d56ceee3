package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
	apperrors "github.com/yourusername/animemaster-api/internal/pkg/errors"
)

// CollectionRepo implements repository.CollectionRepository on the
// user_anime_status table.
type CollectionRepo struct {
	db *gorm.DB
}

func NewCollectionRepo(db *gorm.DB) *CollectionRepo {
	return &CollectionRepo{db: db}
}

func (r *CollectionRepo) List(ctx context.Context, userID uint, status entity.WatchStatus) ([]entity.UserAnimeStatus, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var rows []entity.UserAnimeStatus
	if err := query.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Create relies on the (user_id, anime_id) unique index to reject duplicates.
func (r *CollectionRepo) Create(ctx context.Context, row *entity.UserAnimeStatus) error {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: anime %d already in collection", apperrors.ErrConflict, row.AnimeID)
		}
		return err
	}
	return nil
}

// Update holds SELECT ... FOR UPDATE on the row while fn runs.
func (r *CollectionRepo) Update(ctx context.Context, userID, animeID uint, fn func(row *entity.UserAnimeStatus) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row entity.UserAnimeStatus
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND anime_id = ?", userID, animeID).
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}

		id, createdAt := row.ID, row.CreatedAt
		if err := fn(&row); err != nil {
			return err
		}
		row.ID, row.UserID, row.AnimeID, row.CreatedAt = id, userID, animeID, createdAt
		return tx.Save(&row).Error
	})
}

func (r *CollectionRepo) Delete(ctx context.Context, userID, animeID uint) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND anime_id = ?", userID, animeID).
		Delete(&entity.UserAnimeStatus{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
