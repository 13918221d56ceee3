package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
	"github.com/yourusername/animemaster-api/internal/domain/repository"
	apperrors "github.com/yourusername/animemaster-api/internal/pkg/errors"
	"github.com/yourusername/animemaster-api/internal/repository/memory"
	"github.com/yourusername/animemaster-api/pkg/auth"
)

// ============================================================================
// Mocks
// ============================================================================

// MockUserRepository implements repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, userID uint, newPassword string) error {
	args := m.Called(ctx, userID, newPassword)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateLoginState(ctx context.Context, userID uint, fn func(user *entity.User) error) error {
	args := m.Called(ctx, userID, fn)
	return args.Error(0)
}

// ============================================================================
// Fixture
// ============================================================================

const testJWTSecret = "test-secret-key-that-is-at-least-32-bytes"

type authFixture struct {
	svc      *AuthService
	users    *memory.UserRepo
	jwt      *auth.JWTService
	registry *TokenRevocationRegistry
	codes    *VerificationCodeService
	notifier *MockNotifier
	clock    *testClock
}

func newAuthFixture(t *testing.T, users repository.UserRepository) *authFixture {
	t.Helper()
	f := &authFixture{clock: newTestClock(), notifier: new(MockNotifier)}
	f.notifier.On("Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true)

	if users == nil {
		f.users = memory.NewUserRepo()
		users = f.users
	}

	registry, err := NewTokenRevocationRegistry(memory.NewRevocationStore(), zerolog.Nop())
	require.NoError(t, err)
	jwtService, err := auth.NewJWTService(testJWTSecret, 0, registry, zerolog.Nop())
	require.NoError(t, err)
	jwtService.SetClock(f.clock.Now)
	registry.SetExpiryResolver(jwtService.ExpiryOf)

	lockout := NewLockoutPolicy(0, 0, zerolog.Nop())
	lockout.SetClock(f.clock.Now)

	codes, err := NewVerificationCodeService(memory.NewVerificationCodeStore(), f.notifier, 0, 0, "", zerolog.Nop())
	require.NoError(t, err)
	codes.SetClock(f.clock.Now)
	codes.generate = func() (string, error) { return "123456", nil }

	svc, err := NewAuthService(users, jwtService, registry, lockout, codes, zerolog.Nop())
	require.NoError(t, err)

	f.svc, f.jwt, f.registry, f.codes = svc, jwtService, registry, codes
	return f
}

func (f *authFixture) register(t *testing.T, username, email, password string) *entity.User {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.svc.SendCode(ctx, email, entity.PurposeRegister))
	user, err := f.svc.Register(ctx, RegisterInput{Username: username, Email: email, Password: password, Code: "123456"})
	require.NoError(t, err)
	// Send interval would otherwise block the next code in the same test.
	f.clock.Advance(time.Minute)
	return user
}

// ============================================================================
// Tests
// ============================================================================

func TestNewAuthService_RequiresDependencies(t *testing.T) {
	_, err := NewAuthService(nil, nil, nil, nil, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestRegister_Success(t *testing.T) {
	f := newAuthFixture(t, nil)

	user := f.register(t, "alice", "Alice@Example.com", "secret1")

	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.Disabled)
	assert.Zero(t, user.FailedLoginCount)
	assert.True(t, user.CheckPassword("secret1"))
}

func TestRegister_RequiresVerifiedCode(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)

	_, err := f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret1", Code: "123456"})
	assert.ErrorIs(t, err, ErrVerificationFailed)

	require.NoError(t, f.svc.SendCode(ctx, "alice@example.com", entity.PurposeResetPassword))
	_, err = f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret1", Code: "123456"})
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestRegister_Validation(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)

	cases := []RegisterInput{
		{Username: "", Email: "a@example.com", Password: "secret1", Code: "123456"},
		{Username: "a", Email: "not-an-email", Password: "secret1", Code: "123456"},
		{Username: "a", Email: "a@example.com", Password: "short", Code: "123456"},
		{Username: "a", Email: "a@example.com", Password: "secret1", Code: "12345"},
	}
	for _, in := range cases {
		_, err := f.svc.Register(ctx, in)
		assert.ErrorIs(t, err, apperrors.ErrValidation, "%+v", in)
	}
}

func TestRegister_DuplicateDoesNotConsumeCode(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)
	f.register(t, "alice", "alice@example.com", "secret1")

	require.NoError(t, f.svc.SendCode(ctx, "bob@example.com", entity.PurposeRegister))
	_, err := f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "bob@example.com", Password: "secret1", Code: "123456"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = f.svc.Register(ctx, RegisterInput{Username: "bob", Email: "alice@example.com", Password: "secret1", Code: "123456"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = f.svc.Register(ctx, RegisterInput{Username: "bob", Email: "bob@example.com", Password: "secret1", Code: "123456"})
	assert.NoError(t, err)
}

func TestRegister_PasswordLookingLikeHashIsHashed(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newAuthFixture(t, nil)

	// Act
	user := f.register(t, "alice", "alice@example.com", "$2a$hunter22")

	// Assert
	stored, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "$2a$hunter22", stored.Password)
	res, err := f.svc.Login(ctx, "alice", "$2a$hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestRegister_OverlongPasswordKeepsCode(t *testing.T) {
	// Arrange: 30 runes, 90 bytes
	ctx := context.Background()
	f := newAuthFixture(t, nil)
	require.NoError(t, f.svc.SendCode(ctx, "alice@example.com", entity.PurposeRegister))
	long := strings.Repeat("密", 30)

	// Act
	_, err := f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: long, Code: "123456"})

	// Assert: rejected as validation, and the code is still usable
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret1", Code: "123456"})
	assert.NoError(t, err)
}

func TestLogin_ByUsernameAndEmail(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)
	user := f.register(t, "alice", "alice@example.com", "secret1")

	res, err := f.svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	verified := f.jwt.Verify(ctx, res.Token)
	assert.True(t, verified.Valid)
	assert.Equal(t, user.ID, verified.UserID)
	assert.Equal(t, "alice", verified.Username)

	res, err = f.svc.Login(ctx, "ALICE@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)
	require.NotNil(t, res.User.LastLoginTime)
}

func TestLogin_UnknownUser(t *testing.T) {
	f := newAuthFixture(t, nil)

	_, err := f.svc.Login(context.Background(), "ghost", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_LockoutStateMachine(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)
	user := f.register(t, "alice", "alice@example.com", "secret1")

	for i := 0; i < 4; i++ {
		_, err := f.svc.Login(ctx, "alice", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	stored, _ := f.users.GetByID(ctx, user.ID)
	assert.Equal(t, 4, stored.FailedLoginCount)
	assert.Nil(t, stored.LockedUntil)

	_, err := f.svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrAccountLocked)
	stored, _ = f.users.GetByID(ctx, user.ID)
	assert.Equal(t, 5, stored.FailedLoginCount)
	require.NotNil(t, stored.LockedUntil)
	assert.Equal(t, f.clock.Now().Add(30*time.Minute), *stored.LockedUntil)

	// Correct credentials are rejected while locked, and the counter stays put.
	_, err = f.svc.Login(ctx, "alice", "secret1")
	assert.ErrorIs(t, err, ErrAccountLocked)
	stored, _ = f.users.GetByID(ctx, user.ID)
	assert.Equal(t, 5, stored.FailedLoginCount)

	f.clock.Advance(30 * time.Minute)
	res, err := f.svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	stored, _ = f.users.GetByID(ctx, user.ID)
	assert.Zero(t, stored.FailedLoginCount)
	assert.Nil(t, stored.LockedUntil)
}

func TestLogin_FailureAfterLockExpiryRelocks(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)
	f.register(t, "alice", "alice@example.com", "secret1")

	for i := 0; i < 5; i++ {
		_, _ = f.svc.Login(ctx, "alice", "wrong")
	}
	f.clock.Advance(31 * time.Minute)

	_, err := f.svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestLogin_DisabledAccount(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)
	user := &entity.User{Username: "alice", Email: "alice@example.com", Password: "secret1", Disabled: true}
	require.NoError(t, f.users.Create(ctx, user))

	_, err := f.svc.Login(ctx, "alice", "secret1")
	assert.ErrorIs(t, err, ErrAccountDisabled)

	stored, _ := f.users.GetByID(ctx, user.ID)
	assert.Zero(t, stored.FailedLoginCount)
}

func TestLogin_RepositoryError(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserRepository)
	users.On("GetByUsername", ctx, "alice").Return(&entity.User{ID: 7, Username: "alice"}, nil)
	users.On("UpdateLoginState", ctx, uint(7), mock.Anything).Return(errors.New("db down"))
	f := newAuthFixture(t, users)

	_, err := f.svc.Login(ctx, "alice", "secret1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	users.AssertExpectations(t)
}

func TestLogout_RevokesToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)
	f.register(t, "alice", "alice@example.com", "secret1")
	res, err := f.svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, res.Token))
	require.NoError(t, f.svc.Logout(ctx, res.Token))

	assert.False(t, f.jwt.Verify(ctx, res.Token).Valid)
	_, err = f.svc.CurrentUser(ctx, res.Token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	require.NoError(t, f.svc.Unrevoke(ctx, res.Token))
	assert.True(t, f.jwt.Verify(ctx, res.Token).Valid)
}

func TestLogout_EmptyToken(t *testing.T) {
	f := newAuthFixture(t, nil)
	assert.ErrorIs(t, f.svc.Logout(context.Background(), ""), apperrors.ErrUnauthorized)
}

func TestCurrentUser(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)
	user := f.register(t, "alice", "alice@example.com", "secret1")
	res, err := f.svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	current, err := f.svc.CurrentUser(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.ID)

	_, err = f.svc.CurrentUser(ctx, "garbage")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)
	f.register(t, "alice", "alice@example.com", "secret1")

	require.NoError(t, f.svc.SendCode(ctx, "alice@example.com", entity.PurposeResetPassword))
	err := f.svc.ResetPassword(ctx, ResetPasswordInput{
		Email: "alice@example.com", Code: "123456", NewPassword: "newsecret", ConfirmPassword: "newsecret",
	})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "alice", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "alice", "newsecret")
	assert.NoError(t, err)
}

func TestResetPassword_Validation(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)

	err := f.svc.ResetPassword(ctx, ResetPasswordInput{Email: "alice@example.com", Code: "123456", NewPassword: "newsecret", ConfirmPassword: "other"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	err = f.svc.ResetPassword(ctx, ResetPasswordInput{Email: "alice@example.com", Code: "123456", NewPassword: "short", ConfirmPassword: "short"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	err = f.svc.ResetPassword(ctx, ResetPasswordInput{Email: "alice@example.com", Code: "123456", NewPassword: "newsecret", ConfirmPassword: "newsecret"})
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestResetPassword_OverlongPasswordKeepsCode(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newAuthFixture(t, nil)
	f.register(t, "alice", "alice@example.com", "secret1")
	require.NoError(t, f.svc.SendCode(ctx, "alice@example.com", entity.PurposeResetPassword))
	long := strings.Repeat("密", 30)

	// Act
	err := f.svc.ResetPassword(ctx, ResetPasswordInput{Email: "alice@example.com", Code: "123456", NewPassword: long, ConfirmPassword: long})

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	err = f.svc.ResetPassword(ctx, ResetPasswordInput{Email: "alice@example.com", Code: "123456", NewPassword: "newsecret", ConfirmPassword: "newsecret"})
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, "alice", "newsecret")
	assert.NoError(t, err)
}

func TestSendCode_InvalidEmail(t *testing.T) {
	f := newAuthFixture(t, nil)
	err := f.svc.SendCode(context.Background(), "nope", entity.PurposeRegister)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
