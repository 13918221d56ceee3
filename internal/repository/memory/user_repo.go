package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
	apperrors "github.com/yourusername/animemaster-api/internal/pkg/errors"
)

// UserRepo is an in-memory repository.UserRepository used when no database
// is configured and in tests. Username and email uniqueness is enforced by
// reserving index entries before the row is stored.
type UserRepo struct {
	rows       *xsync.MapOf[uint, entity.User]
	byUsername *xsync.MapOf[string, uint]
	byEmail    *xsync.MapOf[string, uint]
	locks      *xsync.MapOf[uint, *sync.Mutex]
	seq        atomic.Uint64
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		rows:       xsync.NewMapOf[uint, entity.User](),
		byUsername: xsync.NewMapOf[string, uint](),
		byEmail:    xsync.NewMapOf[string, uint](),
		locks:      xsync.NewMapOf[uint, *sync.Mutex](),
	}
}

// Create runs the same save hook as the gorm repository, so callers may pass
// either a hashed or a plain password.
func (r *UserRepo) Create(_ context.Context, user *entity.User) error {
	if err := user.BeforeSave(nil); err != nil {
		return err
	}

	id := uint(r.seq.Add(1))
	if _, taken := r.byUsername.LoadOrStore(user.Username, id); taken {
		return fmt.Errorf("%w: username %q already exists", apperrors.ErrConflict, user.Username)
	}
	if _, taken := r.byEmail.LoadOrStore(user.Email, id); taken {
		r.byUsername.Delete(user.Username)
		return fmt.Errorf("%w: email %q already exists", apperrors.ErrConflict, user.Email)
	}

	now := time.Now()
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	r.rows.Store(id, *user)
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id uint) (*entity.User, error) {
	user, ok := r.rows.Load(id)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	id, ok := r.byEmail.Load(email)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	id, ok := r.byUsername.Load(username)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepo) UpdatePassword(_ context.Context, userID uint, newPassword string) error {
	hashed, err := entity.HashPlain(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	mu := r.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	user, ok := r.rows.Load(userID)
	if !ok {
		return apperrors.ErrNotFound
	}
	user.Password = hashed
	user.UpdatedAt = time.Now()
	r.rows.Store(userID, user)
	return nil
}

// UpdateLoginState serializes writers of one account with a per-account
// mutex; other accounts are unaffected.
func (r *UserRepo) UpdateLoginState(_ context.Context, userID uint, fn func(user *entity.User) error) error {
	mu := r.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	current, ok := r.rows.Load(userID)
	if !ok {
		return apperrors.ErrNotFound
	}

	working := current
	fnErr := fn(&working)

	current.FailedLoginCount = working.FailedLoginCount
	current.LockedUntil = working.LockedUntil
	current.LastLoginTime = working.LastLoginTime
	current.UpdatedAt = time.Now()
	r.rows.Store(userID, current)
	return fnErr
}

func (r *UserRepo) lockFor(userID uint) *sync.Mutex {
	mu, _ := r.locks.LoadOrCompute(userID, func() *sync.Mutex { return &sync.Mutex{} })
	return mu
}
