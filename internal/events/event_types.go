package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/token-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTokenIssued   EventType = "token_issued"
	EventTokenRejected EventType = "token_rejected"
	EventLoginRejected EventType = "login_rejected"
)

// Event represents an authentication event emitted by services.
// Events never carry the token or the password.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id,omitempty"`
	ClientIP  string      `json:"client_ip,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh ID and the given time.
func NewEvent(eventType EventType, subjectID, clientIP string, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		ClientIP:  clientIP,
		Timestamp: at.UTC(),
		Payload:   payload,
	}
}

// TokenIssuedPayload payload.
type TokenIssuedPayload struct {
	TokenID   string      `json:"token_id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// TokenRejectedPayload payload. Kind is one of the auth failure kinds.
type TokenRejectedPayload struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// LoginRejectedPayload payload.
type LoginRejectedPayload struct {
	Missing []string `json:"missing,omitempty"`
	Reason  string   `json:"reason"`
}
