package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Principal is the authenticated subject. It lives for a single request and is never persisted.
type Principal struct {
	ID    string
	Email string
	Role  Role
}

// NewUserPrincipal maps a login email to a principal with the user role.
// The ID is a name-based UUID so the same email always yields the same subject.
func NewUserPrincipal(email string) Principal {
	email = strings.TrimSpace(email)
	return Principal{
		ID:    uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+strings.ToLower(email))).String(),
		Email: email,
		Role:  RoleUser,
	}
}

// Complete reports whether every field required for issuance is set.
func (p Principal) Complete() bool {
	return p.ID != "" && p.Email != "" && p.Role != ""
}
