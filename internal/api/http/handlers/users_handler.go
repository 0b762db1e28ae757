package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/token-service/internal/api/dto"
	"github.com/spec-kit/token-service/internal/auth"
	"github.com/spec-kit/token-service/internal/service"
	apperrors "github.com/spec-kit/token-service/pkg/util"
)

// UsersHandler exposes the login handshake and the protected resource.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Login handles POST /login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		var inputErr *service.LoginInputError
		if errors.As(err, &inputErr) {
			return apperrors.NewInvalidLoginInput(inputErr.Missing)
		}
		return apperrors.NewInternalError(err)
	}

	return c.JSON(dto.AuthResponse{
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresAt: result.ExpiresAt,
	})
}

// ProtectedData handles GET /protected-data. It echoes the verified claims.
func (h *UsersHandler) ProtectedData(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized(auth.UnauthorizedMessage)
	}
	return c.JSON(dto.ProtectedResponse{
		Message: "authenticated",
		User:    dto.NewClaimsView(claims),
	})
}
