package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Token failure kinds. Verify never exposes them to callers; they exist for
// logging and for code that needs ParseToken's diagnostic result.
var (
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token is expired")
	ErrTokenRevoked   = errors.New("token has been revoked")
)

const (
	// DefaultValidity is the lifetime of an issued token unless configured otherwise.
	DefaultValidity = 7 * 24 * time.Hour
	// DefaultIssuer is written to the "iss" claim and required on verification.
	DefaultIssuer = "animemaster-api"

	minSecretLength = 32
)

// RevocationChecker is consulted on every verification. It is implemented by
// the revocation registry in the service layer; the interface keeps this
// package free of that dependency.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) bool
}

// Claims is the payload of an issued token.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// VerifyResult carries the identity of a token only when Valid is true.
type VerifyResult struct {
	Valid    bool
	UserID   uint
	Username string
	Email    string
}

// JWTService issues and verifies HS256 bearer tokens.
type JWTService struct {
	secret      []byte
	validity    time.Duration
	issuer      string
	revocations RevocationChecker
	log         zerolog.Logger
	now         func() time.Time
}

// NewJWTService creates the token service. A validity <= 0 selects DefaultValidity.
func NewJWTService(secret string, validity time.Duration, revocations RevocationChecker, log zerolog.Logger) (*JWTService, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretLength)
	}
	if revocations == nil {
		return nil, fmt.Errorf("RevocationChecker is required for JWTService")
	}
	if validity <= 0 {
		validity = DefaultValidity
	}

	return &JWTService{
		secret:      []byte(secret),
		validity:    validity,
		issuer:      DefaultIssuer,
		revocations: revocations,
		log:         log.With().Str("component", "jwt").Logger(),
		now:         time.Now,
	}, nil
}

// SetIssuer overrides the issuer claim written and required by the service.
func (s *JWTService) SetIssuer(issuer string) {
	if issuer != "" {
		s.issuer = issuer
	}
}

// SetClock replaces the wall clock used for issuing and expiry checks.
func (s *JWTService) SetClock(now func() time.Time) {
	s.now = now
}

// Validity returns the configured token lifetime.
func (s *JWTService) Validity() time.Duration {
	return s.validity
}

// GenerateToken signs a new token for the given identity.
func (s *JWTService) GenerateToken(userID uint, username, email string) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.validity)),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		s.log.Error().Err(err).Uint("user_id", userID).Msg("failed to sign token")
		return "", err
	}

	s.log.Debug().Uint("user_id", userID).Time("expires_at", claims.ExpiresAt.Time).Msg("token issued")
	return tokenString, nil
}

// ParseToken fully validates a token (structure, signature, issuer, expiry,
// revocation) and returns its claims or the kind of failure.
func (s *JWTService) ParseToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.decode(tokenString)
	if err != nil {
		return nil, err
	}
	if s.revocations.IsRevoked(ctx, tokenString) {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Verify fails closed: any failure yields a zero VerifyResult. The failure
// kind is logged, never returned.
func (s *JWTService) Verify(ctx context.Context, tokenString string) VerifyResult {
	claims, err := s.ParseToken(ctx, tokenString)
	if err != nil {
		s.log.Info().Str("reason", failureKind(err)).Err(err).Msg("token rejected")
		return VerifyResult{}
	}
	return VerifyResult{
		Valid:    true,
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
	}
}

// UsernameFromToken returns the subject name of a signature-valid, unexpired
// token, or "" when the token cannot be decoded. It does not consult the
// revocation registry: callers must still Verify before trusting the value.
func (s *JWTService) UsernameFromToken(tokenString string) string {
	claims, err := s.decode(tokenString)
	if err != nil {
		return ""
	}
	return claims.Username
}

// UserIDFromToken is the account-id counterpart of UsernameFromToken and has
// the same contract; 0 means "no identity".
func (s *JWTService) UserIDFromToken(tokenString string) uint {
	claims, err := s.decode(tokenString)
	if err != nil {
		return 0
	}
	return claims.UserID
}

// Peek decodes a token without checking anything. Use it only for logging
// and debugging; the result must not be trusted.
func (s *JWTService) Peek(tokenString string) (*Claims, bool) {
	claims := &Claims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(tokenString, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// ExpiryOf returns the expiry embedded in a token without verifying it, or the
// zero time when there is none.
func (s *JWTService) ExpiryOf(tokenString string) time.Time {
	claims, ok := s.Peek(tokenString)
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// decode checks everything except revocation.
func (s *JWTService) decode(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", ErrTokenMalformed)
	}

	parser := &jwt.Parser{
		ValidMethods: []string{jwt.SigningMethodHS256.Alg()},
		// Time-based claims are checked below against s.now.
		SkipClaimsValidation: true,
	}

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorSignatureInvalid != 0 {
			return nil, fmt.Errorf("%w: signature is invalid", ErrTokenMalformed)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrTokenMalformed)
	}

	if !claims.VerifyIssuer(s.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrTokenMalformed, claims.Issuer)
	}
	if claims.UserID == 0 || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing required claims", ErrTokenMalformed)
	}
	if !claims.VerifyExpiresAt(s.now(), true) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	default:
		return "malformed"
	}
}
