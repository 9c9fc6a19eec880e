package service

import (
	"context"
	"errors"

	"nutria-assistant-be/internal/dto"
	"nutria-assistant-be/internal/pkg/logger"
	"nutria-assistant-be/pkg/agent/pipeline"
	"nutria-assistant-be/pkg/agent/schema"
	"nutria-assistant-be/pkg/agent/session"
	"nutria-assistant-be/pkg/store"

	"github.com/google/uuid"
)

type IChatbotService interface {
	SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	GetChatHistory(ctx context.Context, userId uuid.UUID, chatIndex int) ([]*dto.ChatHistoryItem, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, chatIndex int) error
}

// TurnRunner runs one conversational turn.
type TurnRunner interface {
	Run(ctx context.Context, key store.Key, text string) (*pipeline.TurnResult, error)
}

type chatbotService struct {
	runner TurnRunner
	memory store.MemoryStore
	cache  pipeline.SessionCache
	locker session.Locker
	logger logger.ILogger
}

// The locker must be the one the turn runner uses, so a delete waits for a
// running turn of the same conversation.
func NewChatbotService(runner TurnRunner, memory store.MemoryStore, cache pipeline.SessionCache, locker session.Locker, log logger.ILogger) IChatbotService {
	return &chatbotService{
		runner: runner,
		memory: memory,
		cache:  cache,
		locker: locker,
		logger: log,
	}
}

// SendChat answers even when the turn's memory could not be stored; the
// response then reports persisted=false.
func (cs *chatbotService) SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	key := store.Key{UserID: userId, Chat: request.ChatIndex}

	result, err := cs.runner.Run(ctx, key, request.Chat)
	var persistErr *schema.PersistenceError
	if err != nil && !(errors.As(err, &persistErr) && result != nil) {
		return nil, err
	}

	return &dto.SendChatResponse{
		Question:  result.Question,
		Answer:    result.Answer,
		Route:     string(result.Route),
		Persisted: result.Persisted,
	}, nil
}

func (cs *chatbotService) GetChatHistory(ctx context.Context, userId uuid.UUID, chatIndex int) ([]*dto.ChatHistoryItem, error) {
	s, err := cs.memory.Load(ctx, store.Key{UserID: userId, Chat: chatIndex})
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ChatHistoryItem, 0, len(s.Messages))
	for _, m := range s.Messages {
		res = append(res, &dto.ChatHistoryItem{Role: m.Role, Chat: m.Content, CreatedAt: m.CreatedAt})
	}
	return res, nil
}

func (cs *chatbotService) DeleteSession(ctx context.Context, userId uuid.UUID, chatIndex int) error {
	key := store.Key{UserID: userId, Chat: chatIndex}
	unlock, err := cs.locker.Lock(ctx, key.String())
	if err != nil {
		return err
	}
	defer unlock()

	cs.cache.Delete(key)
	if err := cs.memory.Delete(ctx, key); err != nil {
		return err
	}
	cs.logger.Info("Chatbot", "Conversation memory deleted", map[string]interface{}{"session": key.String()})
	return nil
}
