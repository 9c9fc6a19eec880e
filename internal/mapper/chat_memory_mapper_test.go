package mapper

import (
	"testing"
	"time"

	"nutria-assistant-be/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestChatMemoryMapper_SessionRoundTrip(t *testing.T) {
	m := NewChatMemoryMapper()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := store.NewSession(store.Key{UserID: uuid.New(), Chat: 4})
	s.Version = 7
	s.Record("guardrail", "user", "oi", at)
	s.AppendExchange("oi", "olá", at)

	doc := m.ToModel(m.FromSession(s))
	got := m.ToSession(m.ToEntity(doc))

	assert.Equal(t, s, got)
}

func TestChatMemoryMapper_EmptySessionStoresEmptyArrays(t *testing.T) {
	m := NewChatMemoryMapper()

	doc := m.ToModel(m.FromSession(store.NewSession(store.Key{UserID: uuid.New()})))

	assert.NotNil(t, doc.Messages)
	assert.NotNil(t, doc.RawLog)
}
