package nats

import (
	"testing"
	"time"

	"nutria-assistant-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "nutria.events.chat_turn_completed", Subject("CHAT_TURN_COMPLETED"))
}

func TestEnvelopeKeepsTypeAndTime(t *testing.T) {
	at := time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)
	raw, err := encode(events.BaseEvent{Type: "CHAT_TURN_FAILED", Data: map[string]interface{}{"chat_index": 2}, OccurredAt: at})
	require.NoError(t, err)

	got, err := decode(raw)

	require.NoError(t, err)
	assert.Equal(t, "CHAT_TURN_FAILED", got.EventType())
	assert.True(t, at.Equal(got.Timestamp()))
	assert.Equal(t, float64(2), got.Payload()["chat_index"])
}

func TestDecodeRejectsUntypedEvents(t *testing.T) {
	_, err := decode([]byte(`{"data":{}}`))
	assert.Error(t, err)

	_, err = decode([]byte(`nope`))
	assert.Error(t, err)
}
