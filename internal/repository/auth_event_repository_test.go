package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/token-service/internal/events"
)

func TestNewAuthEventRecord(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("encodes payload", func(t *testing.T) {
		event := events.NewEvent(events.EventTokenRejected, "", "10.1.1.1", at,
			events.TokenRejectedPayload{Kind: "expired", Reason: "token expired"})

		record, err := NewAuthEventRecord(event)
		require.NoError(t, err)
		assert.Equal(t, event.ID, record.ID)
		assert.Equal(t, "token_rejected", record.EventType)
		assert.Equal(t, "10.1.1.1", record.ClientIP)
		assert.JSONEq(t, `{"kind":"expired","reason":"token expired"}`, string(record.Payload))
		assert.True(t, record.OccurredAt.Equal(at))
	})

	t.Run("nil payload stores empty object", func(t *testing.T) {
		record, err := NewAuthEventRecord(events.NewEvent(events.EventTokenIssued, "sub", "", at, nil))
		require.NoError(t, err)
		assert.Equal(t, "{}", string(record.Payload))
	})

	t.Run("unencodable payload", func(t *testing.T) {
		_, err := NewAuthEventRecord(events.NewEvent(events.EventTokenIssued, "sub", "", at, func() {}))
		require.Error(t, err)
	})
}
