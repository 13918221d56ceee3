package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yourusername/animemaster-api/internal/pkg/logger"
	"github.com/yourusername/animemaster-api/pkg/auth"
)

// Context keys set on authenticated requests.
const (
	ContextKeyUserID   = "user_id"
	ContextKeyUsername = "username"
	ContextKeyEmail    = "email"
	ContextKeyToken    = "token"
)

var (
	ErrTokenMissing = errors.New("authorization header is required")
	ErrTokenFormat  = errors.New("authorization header format must be Bearer {token}")
)

// TokenVerifier is implemented by *auth.JWTService.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) auth.VerifyResult
}

// AuthMiddleware attaches the identity carried by a verified bearer token.
type AuthMiddleware struct {
	verifier TokenVerifier
	log      zerolog.Logger
}

func NewAuthMiddleware(verifier TokenVerifier, log zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		log:      log.With().Str("component", "auth_middleware").Logger(),
	}
}

// Authenticate sets the identity when the request carries a valid token and
// otherwise lets it through as anonymous. It never rejects a request.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.attach(c)
		c.Next()
	}
}

// RequireAuth rejects requests without a verified identity. It can run after
// Authenticate or on its own.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ContextKeyUserID); ok {
			c.Next()
			return
		}

		token, err := BearerToken(c)
		if err != nil {
			errorType := "token_missing"
			if errors.Is(err, ErrTokenFormat) {
				errorType = "token_format"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "error_type": errorType})
			return
		}

		if !m.attachToken(c, token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) attach(c *gin.Context) {
	token, err := BearerToken(c)
	if err != nil {
		return
	}
	m.attachToken(c, token)
}

func (m *AuthMiddleware) attachToken(c *gin.Context, token string) bool {
	result := m.verifier.Verify(c.Request.Context(), token)
	if !result.Valid {
		m.log.Debug().Str("token", logger.Fingerprint(token)).Str("path", c.Request.URL.Path).Msg("continuing as anonymous")
		return false
	}

	c.Set(ContextKeyUserID, result.UserID)
	c.Set(ContextKeyUsername, result.Username)
	c.Set(ContextKeyEmail, result.Email)
	c.Set(ContextKeyToken, token)
	return true
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", ErrTokenMissing
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", ErrTokenFormat
	}
	return strings.TrimSpace(parts[1]), nil
}

// UserID returns the authenticated account id, if any.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextKeyUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
