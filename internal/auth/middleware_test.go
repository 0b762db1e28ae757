package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/token-service/internal/domain"
	apperrors "github.com/spec-kit/token-service/pkg/util"
)

type stubVerifier struct {
	claims *Claims
	err    error
	got    string
}

func (s *stubVerifier) VerifyBearer(_ context.Context, token string) (*Claims, error) {
	s.got = token
	return s.claims, s.err
}

func newProtectedApp(v BearerVerifier, roles ...domain.Role) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"code": de.Code, "message": de.Message})
		},
	})
	app.Get("/protected", NewAuthMiddleware(v).Handle, RequireRole(roles...), func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			return errors.New("claims missing")
		}
		return c.SendString(claims.Email)
	})
	return app
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "bearer", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "case insensitive scheme", header: "bearer abc", want: "abc"},
		{name: "surrounding spaces", header: "Bearer   abc  ", want: "abc"},
		{name: "empty", header: "", wantErr: true},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantErr: true},
		{name: "scheme only", header: "Bearer", wantErr: true},
		{name: "blank token", header: "Bearer   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BearerToken(tt.header)
			if tt.wantErr {
				var de *apperrors.DomainError
				require.ErrorAs(t, err, &de)
				assert.Equal(t, fiber.StatusUnauthorized, de.HTTPStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthMiddleware_Handle(t *testing.T) {
	userClaims := &Claims{UserID: "1", Email: "test@example.com", Role: domain.RoleUser}

	t.Run("valid token reaches handler", func(t *testing.T) {
		v := &stubVerifier{claims: userClaims}
		req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer good-token")

		resp, err := newProtectedApp(v).Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "good-token", v.got)
	})

	t.Run("verification failures share one message", func(t *testing.T) {
		for _, cause := range []error{ErrMalformedToken, ErrSignatureMismatch, ErrExpired} {
			v := &stubVerifier{err: cause}
			req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
			req.Header.Set(fiber.HeaderAuthorization, "Bearer bad")

			resp, err := newProtectedApp(v).Test(req)
			require.NoError(t, err)
			body := decodeBody(t, resp)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, UnauthorizedMessage, body["message"])
			assert.Equal(t, apperrors.CodeUnauthorized, body["code"])
		}
	})

	t.Run("missing header never calls verifier", func(t *testing.T) {
		v := &stubVerifier{claims: userClaims}
		resp, err := newProtectedApp(v).Test(httptest.NewRequest(fiber.MethodGet, "/protected", nil))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Empty(t, v.got)
	})

	t.Run("role outside allowed set is forbidden", func(t *testing.T) {
		v := &stubVerifier{claims: userClaims}
		req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer good-token")

		resp, err := newProtectedApp(v, domain.RoleAdmin).Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}
