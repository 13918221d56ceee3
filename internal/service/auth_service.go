package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
	"github.com/yourusername/animemaster-api/internal/domain/repository"
	apperrors "github.com/yourusername/animemaster-api/internal/pkg/errors"
	"github.com/yourusername/animemaster-api/internal/pkg/logger"
	"github.com/yourusername/animemaster-api/pkg/auth"
)

// MinPasswordLength applies to registration and password reset.
const MinPasswordLength = 6

// ErrVerificationFailed is the collapsed result of a rejected code; the
// distinguished reason is only logged.
var ErrVerificationFailed = errors.New("invalid_verification_code")

// AuthService implements the account flows on top of the auth core.
type AuthService struct {
	userRepo    repository.UserRepository
	jwtService  *auth.JWTService
	revocations *TokenRevocationRegistry
	lockout     *LockoutPolicy
	codes       *VerificationCodeService
	validate    *validator.Validate
	log         zerolog.Logger
}

// RegisterInput holds the data of a registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Code     string
}

// ResetPasswordInput holds the data of a password reset request.
type ResetPasswordInput struct {
	Email           string
	Code            string
	NewPassword     string
	ConfirmPassword string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string
	User  *entity.User
}

// NewAuthService creates the service and returns an error when a dependency is missing.
func NewAuthService(
	userRepo repository.UserRepository,
	jwtService *auth.JWTService,
	revocations *TokenRevocationRegistry,
	lockout *LockoutPolicy,
	codes *VerificationCodeService,
	log zerolog.Logger,
) (*AuthService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for AuthService")
	}
	if jwtService == nil {
		return nil, fmt.Errorf("JWTService is required for AuthService")
	}
	if revocations == nil {
		return nil, fmt.Errorf("TokenRevocationRegistry is required for AuthService")
	}
	if lockout == nil {
		return nil, fmt.Errorf("LockoutPolicy is required for AuthService")
	}
	if codes == nil {
		return nil, fmt.Errorf("VerificationCodeService is required for AuthService")
	}

	return &AuthService{
		userRepo:    userRepo,
		jwtService:  jwtService,
		revocations: revocations,
		lockout:     lockout,
		codes:       codes,
		validate:    validator.New(),
		log:         log.With().Str("component", "auth").Logger(),
	}, nil
}

// Register creates an account after the REGISTER code for its email has been verified.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*entity.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = normalizeEmail(input.Email)

	if input.Username == "" {
		return nil, fmt.Errorf("%w: username is required", apperrors.ErrValidation)
	}
	if !s.isEmail(input.Email) {
		return nil, fmt.Errorf("%w: invalid email address", apperrors.ErrValidation)
	}
	if err := checkPassword(input.Password); err != nil {
		return nil, err
	}
	if !IsWellFormedCode(input.Code) {
		return nil, fmt.Errorf("%w: verification code must be %d digits", apperrors.ErrValidation, CodeLength)
	}

	// Uniqueness is checked before the code so a taken name does not burn it.
	if _, err := s.userRepo.GetByUsername(ctx, input.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username existence: %w", err)
	}
	if _, err := s.userRepo.GetByEmail(ctx, input.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}

	if !s.codes.VerifyCode(ctx, input.Email, input.Code, entity.PurposeRegister) {
		return nil, ErrVerificationFailed
	}

	hashed, err := entity.HashPlain(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &entity.User{
		Username: input.Username,
		Email:    input.Email,
		Password: hashed,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("%w: username or email already registered", err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user, nil
}

// Login authenticates by username or email. The lockout record is read and
// written under the repository's per-account serialization, so concurrent
// attempts against one account cannot lose failures.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, fmt.Errorf("%w: identifier and password are required", apperrors.ErrValidation)
	}

	user, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.log.Info().Str("reason", "unknown_user").Msg("login rejected")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	var authenticated entity.User
	err = s.userRepo.UpdateLoginState(ctx, user.ID, func(u *entity.User) error {
		if u.Disabled {
			return ErrAccountDisabled
		}
		if s.lockout.IsLocked(u) {
			return ErrAccountLocked
		}
		if !u.CheckPassword(password) {
			if s.lockout.RegisterFailure(u) {
				return ErrAccountLocked
			}
			return ErrInvalidCredentials
		}
		s.lockout.RegisterSuccess(u)
		authenticated = *u
		return nil
	})
	if err != nil {
		reason := reasonOf(err)
		if reason == "internal" {
			return nil, fmt.Errorf("failed to update login state: %w", err)
		}
		s.log.Info().Uint("user_id", user.ID).Str("reason", reason).Msg("login rejected")
		return nil, err
	}

	token, err := s.jwtService.GenerateToken(authenticated.ID, authenticated.Username, authenticated.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.log.Info().Uint("user_id", authenticated.ID).Msg("user logged in")
	return &LoginResult{Token: token, User: &authenticated}, nil
}

// Logout revokes token. Revoking an already revoked token succeeds.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: missing token", apperrors.ErrUnauthorized)
	}
	return s.revocations.Revoke(ctx, token)
}

// Unrevoke removes token from the revocation registry.
func (s *AuthService) Unrevoke(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: token is required", apperrors.ErrValidation)
	}
	return s.revocations.Unrevoke(ctx, token)
}

// SendCode sends a one-time code for purpose to email.
func (s *AuthService) SendCode(ctx context.Context, email string, purpose entity.CodePurpose) error {
	email = normalizeEmail(email)
	if !s.isEmail(email) {
		return fmt.Errorf("%w: invalid email address", apperrors.ErrValidation)
	}
	if !s.codes.SendCode(ctx, email, purpose) {
		return ErrNotificationFailed
	}
	return nil
}

// ResetPassword replaces the password of the account owning input.Email
// after its RESET_PASSWORD code has been verified.
func (s *AuthService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	input.Email = normalizeEmail(input.Email)

	if !s.isEmail(input.Email) {
		return fmt.Errorf("%w: invalid email address", apperrors.ErrValidation)
	}
	if !IsWellFormedCode(input.Code) {
		return fmt.Errorf("%w: verification code must be %d digits", apperrors.ErrValidation, CodeLength)
	}
	if input.NewPassword != input.ConfirmPassword {
		return fmt.Errorf("%w: passwords do not match", apperrors.ErrValidation)
	}
	if err := checkPassword(input.NewPassword); err != nil {
		return err
	}

	if !s.codes.VerifyCode(ctx, input.Email, input.Code, entity.PurposeResetPassword) {
		return ErrVerificationFailed
	}

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, input.NewPassword); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.log.Info().Uint("user_id", user.ID).Msg("password reset")
	return nil
}

// CurrentUser verifies token and loads the account it identifies.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*entity.User, error) {
	result := s.jwtService.Verify(ctx, token)
	if !result.Valid {
		return nil, apperrors.ErrUnauthorized
	}
	user, err := s.userRepo.GetByID(ctx, result.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.log.Warn().Str("token", logger.Fingerprint(token)).Uint("user_id", result.UserID).Msg("token identifies a missing user")
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) findByIdentifier(ctx context.Context, identifier string) (*entity.User, error) {
	if s.isEmail(identifier) {
		return s.userRepo.GetByEmail(ctx, normalizeEmail(identifier))
	}
	return s.userRepo.GetByUsername(ctx, identifier)
}

// checkPassword runs before any code is consumed. The upper bound counts
// bytes because that is what bcrypt accepts.
func checkPassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrValidation, MinPasswordLength)
	}
	if len(password) > entity.MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", apperrors.ErrValidation, entity.MaxPasswordBytes)
	}
	return nil
}

func (s *AuthService) isEmail(value string) bool {
	return s.validate.Var(value, "required,email") == nil
}
