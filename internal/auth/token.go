package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/token-service/internal/domain"
)

// DefaultTTL is the validity window of an issued token.
const DefaultTTL = time.Hour

var (
	ErrMissingSecret     = errors.New("auth: signing secret not configured")
	ErrInvalidPrincipal  = errors.New("auth: principal requires id, email and role")
	ErrMalformedToken    = errors.New("auth: malformed token")
	ErrSignatureMismatch = errors.New("auth: signature mismatch")
	ErrExpired           = errors.New("auth: token expired")
)

// Failure kinds reported by Kind.
const (
	KindMalformed         = "malformed"
	KindSignatureMismatch = "signature_mismatch"
	KindExpired           = "expired"
	KindUnknown           = "unknown"
)

// Claims describes the JWT payload.
type Claims struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal returns the subject the claims were issued for.
func (c *Claims) Principal() domain.Principal {
	return domain.Principal{ID: c.UserID, Email: c.Email, Role: c.Role}
}

// Option customizes an Authenticator.
type Option func(*Authenticator)

// WithTTL overrides the validity window. Non-positive values keep DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(a *Authenticator) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithClock sets the time source used for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}

// Authenticator issues and verifies HS256 tokens. It is immutable after
// construction and safe for concurrent use.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewAuthenticator builds an Authenticator around the process-wide secret.
func NewAuthenticator(secret string, opts ...Option) (*Authenticator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}

	a := &Authenticator{secret: []byte(secret), ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	a.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	return a, nil
}

// TTL returns the validity window applied at issuance.
func (a *Authenticator) TTL() time.Duration {
	return a.ttl
}

// Issue signs a token for the principal and returns it with the claims it
// carries. The issuance instant is truncated to whole seconds since exp
// travels as seconds since epoch.
func (a *Authenticator) Issue(p domain.Principal) (string, *Claims, error) {
	if !p.Complete() {
		return "", nil, ErrInvalidPrincipal
	}

	issuedAt := a.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(a.ttl).Truncate(time.Second)
	claims := &Claims{
		UserID: p.ID,
		Email:  p.Email,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, claims, nil
}

// Verify checks structure, signature and expiry, in that order, and returns
// the decoded claims. Claims naming a role outside the known set are
// malformed. Errors wrap ErrMalformedToken, ErrSignatureMismatch or
// ErrExpired.
func (a *Authenticator) Verify(tokenStr string) (*Claims, error) {
	segments := strings.Split(tokenStr, ".")
	if len(segments) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedToken, len(segments))
	}

	decoded := make([][]byte, len(segments))
	for i, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("%w: empty segment %d", ErrMalformedToken, i)
		}
		raw, err := a.parser.DecodeSegment(seg)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %d: %v", ErrMalformedToken, i, err)
		}
		decoded[i] = raw
	}

	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(decoded[0], &header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedToken, err)
	}
	if header.Alg != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("%w: unexpected signing method %q", ErrSignatureMismatch, header.Alg)
	}

	// The MAC covers the encoded segments, so it is checked before the
	// payload is interpreted.
	signingString := segments[0] + "." + segments[1]
	if err := jwt.SigningMethodHS256.Verify(signingString, decoded[2], a.secret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}
	if base64.RawURLEncoding.EncodeToString(decoded[2]) != segments[2] {
		return nil, fmt.Errorf("%w: non-canonical signature encoding", ErrSignatureMismatch)
	}

	claims := &Claims{}
	if _, err := a.parser.ParseWithClaims(tokenStr, claims, a.keyFunc); err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %v", ErrExpired, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}

	// jwt accepts now == exp; a token is no longer valid at its expiry instant.
	if !a.now().Before(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w: expired at %s", ErrExpired, claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrMalformedToken, claims.Role)
	}
	return claims, nil
}

func (a *Authenticator) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method != jwt.SigningMethodHS256 {
		return nil, errors.New("unexpected signing method")
	}
	return a.secret, nil
}

// Kind classifies a verification error for logs and metrics.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedToken):
		return KindMalformed
	case errors.Is(err, ErrSignatureMismatch):
		return KindSignatureMismatch
	case errors.Is(err, ErrExpired):
		return KindExpired
	default:
		return KindUnknown
	}
}
