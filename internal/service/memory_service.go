package service

import (
	"context"
	"errors"
	"fmt"

	"nutria-assistant-be/internal/mapper"
	"nutria-assistant-be/internal/repository/contract"
	"nutria-assistant-be/internal/repository/specification"
	"nutria-assistant-be/internal/repository/unitofwork"
	"nutria-assistant-be/pkg/store"
)

// memoryService is the database-backed store.MemoryStore: one chat_memories
// row per (user, chat index), replaced wholesale under optimistic versioning.
type memoryService struct {
	uowFactory unitofwork.RepositoryFactory
	mapper     *mapper.ChatMemoryMapper
}

func NewMemoryService(uowFactory unitofwork.RepositoryFactory) store.MemoryStore {
	return &memoryService{
		uowFactory: uowFactory,
		mapper:     mapper.NewChatMemoryMapper(),
	}
}

func (s *memoryService) Load(ctx context.Context, key store.Key) (*store.Session, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.ChatMemoryRepository().FindOne(ctx, specification.ByMemoryKey{UserID: key.UserID, ChatIndex: key.Chat})
	if err != nil {
		return nil, fmt.Errorf("load chat memory: %w", err)
	}
	if doc == nil {
		return store.NewSession(key), nil
	}
	return s.mapper.ToSession(doc), nil
}

func (s *memoryService) Save(ctx context.Context, session *store.Session) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ChatMemoryRepository()
	doc := s.mapper.FromSession(session)

	var err error
	if session.Version == 0 {
		err = repo.Create(ctx, doc)
	} else {
		err = repo.Replace(ctx, doc, session.Version)
	}
	if errors.Is(err, contract.ErrConflict) {
		return store.ErrVersionConflict
	}
	if err != nil {
		return err
	}

	session.Version = doc.Version
	return nil
}

func (s *memoryService) Delete(ctx context.Context, key store.Key) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ChatMemoryRepository().Delete(ctx, specification.ByMemoryKey{UserID: key.UserID, ChatIndex: key.Chat})
}
