package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
	apperrors "github.com/yourusername/animemaster-api/internal/pkg/errors"
)

// UserRepo implements repository.UserRepository.
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo creates the user repository.
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a new user. Unique violations on username or email are
// reported as apperrors.ErrConflict.
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username or email already exists", apperrors.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	return r.first(r.db.WithContext(ctx), "id = ?", id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.first(r.db.WithContext(ctx), "email = ?", email)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.first(r.db.WithContext(ctx), "username = ?", username)
}

// UpdatePassword hashes newPassword and stores it with a plain UPDATE, which
// bypasses the BeforeSave hook.
func (r *UserRepo) UpdatePassword(ctx context.Context, userID uint, newPassword string) error {
	hashedPassword, err := entity.HashPlain(newPassword)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Exec(
		"UPDATE users SET password = ?, updated_at = ? WHERE id = ?",
		hashedPassword,
		time.Now(),
		userID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdateLoginState locks the user row with SELECT ... FOR UPDATE for the
// duration of fn. Only the lockout columns are written back, and they are
// committed even when fn rejects the attempt.
func (r *UserRepo) UpdateLoginState(ctx context.Context, userID uint, fn func(user *entity.User) error) error {
	var fnErr error
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := r.first(tx.Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", userID)
		if err != nil {
			return err
		}

		fnErr = fn(user)

		return tx.Model(&entity.User{}).
			Where("id = ?", userID).
			Updates(map[string]interface{}{
				"failed_login_count": user.FailedLoginCount,
				"locked_until":       user.LockedUntil,
				"last_login_time":    user.LastLoginTime,
				"updated_at":         time.Now(),
			}).Error
	})
	if err != nil {
		return err
	}
	return fnErr
}

func (r *UserRepo) first(db *gorm.DB, query string, arg interface{}) (*entity.User, error) {
	var user entity.User
	if err := db.Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// isUniqueViolation checks for a Postgres unique violation (23505) from either driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}
