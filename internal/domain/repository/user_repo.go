package repository

import (
	"context"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
)

// UserRepository is the user store collaborator.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id uint) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	UpdatePassword(ctx context.Context, userID uint, newPassword string) error

	// UpdateLoginState runs fn against the current record of userID with all
	// other writers of that record excluded, and persists the lockout fields
	// (failed_login_count, locked_until, last_login_time) if fn returns nil.
	// An error returned by fn is passed through after the changes it made
	// have been persisted, so a rejected attempt can still record its effect.
	UpdateLoginState(ctx context.Context, userID uint, fn func(user *entity.User) error) error
}
