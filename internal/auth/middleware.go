package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/token-service/pkg/util"
)

const claimsKey = "auth_claims"

// UnauthorizedMessage is returned for every verification failure so callers
// cannot tell which check rejected the token.
const UnauthorizedMessage = "invalid or expired token"

// BearerVerifier verifies a raw bearer token on behalf of a request.
type BearerVerifier interface {
	VerifyBearer(ctx context.Context, token string) (*Claims, error)
}

// AuthMiddleware validates bearer tokens and stores the claims on the request.
type AuthMiddleware struct {
	verifier BearerVerifier
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(verifier BearerVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, err := BearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}

	claims, err := m.verifier.VerifyBearer(c.UserContext(), token)
	if err != nil {
		return apperrors.NewUnauthorized(UnauthorizedMessage).WithErr(err)
	}

	c.Locals(claimsKey, claims)
	return c.Next()
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// ClaimsFromContext retrieves the verified claims.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	val := c.Locals(claimsKey)
	if val == nil {
		return nil, false
	}
	claims, ok := val.(*Claims)
	return claims, ok
}
