package dto

import "time"

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email,max=100"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Code     string `json:"code" binding:"required,vcode"`
}

// LoginRequest is the body of POST /api/auth/login. Identifier is a username
// or an email; older clients send the same value as "username".
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required_without=Username"`
	Username   string `json:"username" binding:"required_without=Identifier"`
	Password   string `json:"password" binding:"required"`
}

// Account returns Identifier, falling back to Username.
func (r LoginRequest) Account() string {
	if r.Identifier != "" {
		return r.Identifier
	}
	return r.Username
}

// SendCodeRequest is the body of POST /api/auth/send-code.
// Type is "register" or "reset_password" in any letter case.
type SendCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Type  string `json:"type" binding:"required"`
}

// ResetPasswordRequest is the body of POST /api/auth/reset-password.
type ResetPasswordRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Code            string `json:"verification_code" binding:"required,vcode"`
	NewPassword     string `json:"new_password" binding:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// UnrevokeRequest is the body of POST /api/auth/admin/unrevoke.
type UnrevokeRequest struct {
	Token string `json:"token" binding:"required"`
}

// UserDTO is the public view of an account.
type UserDTO struct {
	ID            uint       `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	LastLoginTime *time.Time `json:"last_login_time,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// AuthResponse is returned by a successful login.
type AuthResponse struct {
	User        UserDTO `json:"user"`
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	ExpiresIn   int     `json:"expires_in"`
}

// MeResponse combines the identity carried by the token with the stored profile.
type MeResponse struct {
	UserID   uint    `json:"user_id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Profile  UserDTO `json:"profile"`
}
