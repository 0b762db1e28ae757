package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/token-service/internal/events"
)

// AuthEventRecord is the stored form of an authentication event.
type AuthEventRecord struct {
	ID         string
	EventType  string
	SubjectID  string
	ClientIP   string
	Payload    []byte
	OccurredAt time.Time
}

// NewAuthEventRecord flattens an event for storage.
func NewAuthEventRecord(event events.Event) (*AuthEventRecord, error) {
	payload := []byte("{}")
	if event.Payload != nil {
		encoded, err := json.Marshal(event.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", event.Type, err)
		}
		payload = encoded
	}
	return &AuthEventRecord{
		ID:         event.ID,
		EventType:  string(event.Type),
		SubjectID:  event.SubjectID,
		ClientIP:   event.ClientIP,
		Payload:    payload,
		OccurredAt: event.Timestamp,
	}, nil
}

// AuthEventRepository persists authentication events for diagnostics.
type AuthEventRepository interface {
	Record(ctx context.Context, record *AuthEventRecord) error
}

type authEventRepository struct {
	pool *pgxpool.Pool
}

// NewAuthEventRepository returns a Postgres-backed implementation.
func NewAuthEventRepository(pool *pgxpool.Pool) AuthEventRepository {
	return &authEventRepository{pool: pool}
}

func (r *authEventRepository) Record(ctx context.Context, record *AuthEventRecord) error {
	const query = `
        INSERT INTO auth_events (id, event_type, subject_id, client_ip, payload, occurred_at)
        VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		record.ID,
		record.EventType,
		record.SubjectID,
		record.ClientIP,
		record.Payload,
		record.OccurredAt,
	)
	return err
}
