package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"nutria-assistant-be/internal/dto"
	"nutria-assistant-be/internal/pkg/logger"
	"nutria-assistant-be/internal/repository/memory"
	"nutria-assistant-be/pkg/agent/pipeline"
	"nutria-assistant-be/pkg/agent/schema"
	"nutria-assistant-be/pkg/agent/session"
	"nutria-assistant-be/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	result *pipeline.TurnResult
	err    error
	got    store.Key
}

func (s *stubRunner) Run(_ context.Context, key store.Key, _ string) (*pipeline.TurnResult, error) {
	s.got = key
	return s.result, s.err
}

func newChatbot(runner TurnRunner, mem store.MemoryStore) IChatbotService {
	return NewChatbotService(runner, mem, memory.NewSessionRepository(time.Minute), session.NewLocalLocker(), logger.NewNopLogger())
}

func TestSendChat(t *testing.T) {
	userId := uuid.New()
	answered := &pipeline.TurnResult{Question: "Oi", Answer: "Olá!", Route: schema.RouteSmallTalk, Persisted: true}
	unsaved := &pipeline.TurnResult{Question: "Oi", Answer: "Olá!", Route: schema.RouteSmallTalk}

	tests := []struct {
		name    string
		runner  *stubRunner
		want    *dto.SendChatResponse
		wantErr bool
	}{
		{
			name:   "answered",
			runner: &stubRunner{result: answered},
			want:   &dto.SendChatResponse{Question: "Oi", Answer: "Olá!", Route: "small_talk", Persisted: true},
		},
		{
			name:   "answered without persistence",
			runner: &stubRunner{result: unsaved, err: &schema.PersistenceError{Key: "k", Err: errors.New("down")}},
			want:   &dto.SendChatResponse{Question: "Oi", Answer: "Olá!", Route: "small_talk", Persisted: false},
		},
		{
			name:    "turn failed",
			runner:  &stubRunner{err: &schema.ClassificationError{Stage: "router", Err: errors.New("bad json")}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newChatbot(tt.runner, store.NewInMemoryStore()).SendChat(context.Background(), userId, &dto.SendChatRequest{ChatIndex: 2, Chat: "Oi"})

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, store.Key{UserID: userId, Chat: 2}, tt.runner.got)
		})
	}
}

func TestChatHistoryAndDelete(t *testing.T) {
	ctx := context.Background()
	mem := store.NewInMemoryStore()
	key := store.Key{UserID: uuid.New(), Chat: 1}
	s := store.NewSession(key)
	s.AppendExchange("Oi", "Olá!", time.Now())
	require.NoError(t, mem.Save(ctx, s))
	svc := newChatbot(&stubRunner{}, mem)

	history, err := svc.GetChatHistory(ctx, key.UserID, key.Chat)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "Olá!", history[1].Chat)

	require.NoError(t, svc.DeleteSession(ctx, key.UserID, key.Chat))
	history, err = svc.GetChatHistory(ctx, key.UserID, key.Chat)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestDeleteSession_WaitsForRunningTurn(t *testing.T) {
	ctx := context.Background()
	mem := store.NewInMemoryStore()
	key := store.Key{UserID: uuid.New(), Chat: 4}
	s := store.NewSession(key)
	s.AppendExchange("Oi", "Olá!", time.Now())
	require.NoError(t, mem.Save(ctx, s))

	locker := session.NewLocalLocker()
	svc := NewChatbotService(&stubRunner{}, mem, memory.NewSessionRepository(time.Minute), locker, logger.NewNopLogger())

	turnDone, err := locker.Lock(ctx, key.String())
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err = svc.DeleteSession(short, key.UserID, key.Chat)
	assert.ErrorIs(t, err, session.ErrLockTimeout)

	stored, err := mem.Load(ctx, key)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 2)

	turnDone()
	require.NoError(t, svc.DeleteSession(ctx, key.UserID, key.Chat))
	stored, err = mem.Load(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, stored.Messages)
}
