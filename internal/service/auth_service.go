package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/token-service/internal/auth"
	"github.com/spec-kit/token-service/internal/domain"
	"github.com/spec-kit/token-service/internal/events"
	"github.com/spec-kit/token-service/internal/observability"
)

// ErrInvalidLoginInput is matched by every LoginInputError.
var ErrInvalidLoginInput = errors.New("invalid login input")

// LoginInputError names the login fields that were missing.
type LoginInputError struct {
	Missing []string
}

func (e *LoginInputError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrInvalidLoginInput, strings.Join(e.Missing, ", "))
}

func (e *LoginInputError) Unwrap() error {
	return ErrInvalidLoginInput
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Principal domain.Principal
}

// AuthService coordinates the login and protected-access handshakes.
type AuthService struct {
	authn      *auth.Authenticator
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	Authenticator *auth.Authenticator
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		authn:      deps.Authenticator,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Login accepts any non-empty email and password and issues a user token.
// No credential store is consulted.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)

	var missing []string
	if email == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(password) == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		inputErr := &LoginInputError{Missing: missing}
		s.publish(ctx, events.EventLoginRejected, "", events.LoginRejectedPayload{
			Missing: missing,
			Reason:  inputErr.Error(),
		})
		return nil, inputErr
	}

	principal := domain.NewUserPrincipal(email)
	token, claims, err := s.authn.Issue(principal)
	if err != nil {
		return nil, err
	}
	exp := claims.ExpiresAt.Time

	s.logger.Info("token issued",
		zap.String("subject", principal.ID),
		zap.String("token_id", claims.ID),
		zap.Time("expires_at", exp))
	s.publish(ctx, events.EventTokenIssued, principal.ID, events.TokenIssuedPayload{
		TokenID:   claims.ID,
		Email:     principal.Email,
		Role:      principal.Role,
		ExpiresAt: exp,
	})

	return &LoginResult{Token: token, ExpiresAt: exp, Principal: principal}, nil
}

// VerifyBearer verifies a presented token. The failure kind is logged, counted
// and published; the error itself is returned unchanged.
func (s *AuthService) VerifyBearer(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.authn.Verify(token)
	if err == nil {
		return claims, nil
	}

	kind := auth.Kind(err)
	s.metrics.RecordAuthFailure(kind)
	s.logger.Warn("token rejected",
		zap.String("kind", kind),
		zap.String("client_ip", events.ClientIPFromContext(ctx)),
		zap.Error(err))
	s.publish(ctx, events.EventTokenRejected, "", events.TokenRejectedPayload{
		Kind:   kind,
		Reason: err.Error(),
	})
	return nil, err
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, subjectID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.NewEvent(eventType, subjectID, events.ClientIPFromContext(ctx), s.now(), payload)
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish auth event", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
