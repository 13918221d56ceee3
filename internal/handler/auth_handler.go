package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
	"github.com/yourusername/animemaster-api/internal/handler/dto"
	"github.com/yourusername/animemaster-api/internal/handler/helper"
	"github.com/yourusername/animemaster-api/internal/middleware"
	apperrors "github.com/yourusername/animemaster-api/internal/pkg/errors"
	"github.com/yourusername/animemaster-api/internal/service"
)

// AuthService is the part of *service.AuthService the HTTP layer needs.
type AuthService interface {
	Register(ctx context.Context, input service.RegisterInput) (*entity.User, error)
	Login(ctx context.Context, identifier, password string) (*service.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Unrevoke(ctx context.Context, token string) error
	SendCode(ctx context.Context, email string, purpose entity.CodePurpose) error
	ResetPassword(ctx context.Context, input service.ResetPasswordInput) error
	CurrentUser(ctx context.Context, token string) (*entity.User, error)
}

// AuthHandler serves the /api/auth endpoints and /api/users/me.
type AuthHandler struct {
	authService AuthService
	tokenTTL    time.Duration
	log         zerolog.Logger
}

// NewAuthHandler creates the handler. tokenTTL is reported to clients as expires_in.
func NewAuthHandler(authService AuthService, tokenTTL time.Duration, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokenTTL:    tokenTTL,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "invalid_request", "details": err.Error()})
		return
	}

	user, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Code:     req.Code,
	})
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"user":    helper.ToUserDTO(user),
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "invalid_request", "details": err.Error()})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Account(), req.Password)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AuthResponse{
		User:        helper.ToUserDTO(result.User),
		AccessToken: result.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.tokenTTL.Seconds()),
	})
}

// Logout handles POST /api/auth/logout. It does not require a valid token,
// so logging out twice with the same token still succeeds.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, err := middleware.BearerToken(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "error_type": "token_missing"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

// SendCode handles POST /api/auth/send-code.
func (h *AuthHandler) SendCode(c *gin.Context) {
	var req dto.SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "invalid_request", "details": err.Error()})
		return
	}

	purpose, err := entity.ParseCodePurpose(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown code type", "error_type": "invalid_code_type"})
		return
	}

	if err := h.authService.SendCode(c.Request.Context(), req.Email, purpose); err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent"})
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "invalid_request", "details": err.Error()})
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Passwords do not match", "error_type": "password_mismatch"})
		return
	}

	err := h.authService.ResetPassword(c.Request.Context(), service.ResetPasswordInput{
		Email:           req.Email,
		Code:            req.Code,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

// Unrevoke handles POST /api/auth/admin/unrevoke.
func (h *AuthHandler) Unrevoke(c *gin.Context) {
	var req dto.UnrevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "invalid_request", "details": err.Error()})
		return
	}

	if err := h.authService.Unrevoke(c.Request.Context(), req.Token); err != nil {
		h.handleAuthError(c, err)
		return
	}

	userID, _ := middleware.UserID(c)
	h.log.Info().Uint("admin_id", userID).Msg("token unrevoked")
	c.JSON(http.StatusOK, gin.H{"message": "Token removed from revocation list"})
}

// GetMe handles GET /api/users/me. It must run behind RequireAuth.
func (h *AuthHandler) GetMe(c *gin.Context) {
	token := c.GetString(middleware.ContextKeyToken)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "token_missing"})
		return
	}

	user, err := h.authService.CurrentUser(c.Request.Context(), token)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	userID, _ := middleware.UserID(c)
	c.JSON(http.StatusOK, dto.MeResponse{
		UserID:   userID,
		Username: c.GetString(middleware.ContextKeyUsername),
		Email:    c.GetString(middleware.ContextKeyEmail),
		Profile:  helper.ToUserDTO(user),
	})
}

// handleAuthError maps service errors to a status code and a stable error_type.
func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "error_type": "invalid_credentials"})
	case errors.Is(err, service.ErrAccountDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled", "error_type": "account_disabled"})
	case errors.Is(err, service.ErrAccountLocked):
		c.JSON(http.StatusLocked, gin.H{"error": "Account is temporarily locked", "error_type": "account_locked"})
	case errors.Is(err, service.ErrVerificationFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired verification code", "error_type": "invalid_verification_code"})
	case errors.Is(err, service.ErrNotificationFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to send verification code, please try again later", "error_type": "send_code_failed"})
	case errors.Is(err, service.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Username is already taken", "error_type": "username_taken"})
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Email is already registered", "error_type": "email_taken"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Data conflict", "error_type": "conflict"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "unauthorized"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found", "error_type": "not_found"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_failed"})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_error"})
	}
}
