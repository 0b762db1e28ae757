package dto

import (
	"time"

	"github.com/spec-kit/token-service/internal/auth"
	"github.com/spec-kit/token-service/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for the login endpoint.
type AuthResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ClaimsView is the echo of verified claims returned by the protected endpoint.
type ClaimsView struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	Exp    int64       `json:"exp"`
}

// NewClaimsView projects verified claims.
func NewClaimsView(c *auth.Claims) ClaimsView {
	view := ClaimsView{UserID: c.UserID, Email: c.Email, Role: c.Role}
	if c.ExpiresAt != nil {
		view.Exp = c.ExpiresAt.Unix()
	}
	return view
}

// ProtectedResponse is returned to callers holding a valid token.
type ProtectedResponse struct {
	Message string     `json:"message"`
	User    ClaimsView `json:"user"`
}
