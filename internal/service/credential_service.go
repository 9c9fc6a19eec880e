package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nutria-assistant-be/internal/entity"
	"nutria-assistant-be/internal/repository/contract"
	"nutria-assistant-be/internal/repository/specification"
	"nutria-assistant-be/internal/repository/unitofwork"
)

type ICredentialService interface {
	// Acquire returns the least used active key and counts the use, or "" when none is stored.
	Acquire(ctx context.Context) (string, error)
	Seed(ctx context.Context, keys []string) (int, error)
	List(ctx context.Context) ([]*entity.ApiCredential, error)
}

type credentialService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewCredentialService(uowFactory unitofwork.RepositoryFactory) ICredentialService {
	return &credentialService{uowFactory: uowFactory}
}

func (s *credentialService) Acquire(ctx context.Context) (string, error) {
	var key string
	err := s.uowFactory.InTransaction(ctx, func(uow unitofwork.UnitOfWork) error {
		repo := uow.ApiCredentialRepository()
		cred, err := repo.FindLeastUsed(ctx)
		if err != nil {
			return fmt.Errorf("find credential: %w", err)
		}
		if cred == nil {
			return nil
		}
		if err := repo.IncrementUses(ctx, cred.Id); err != nil {
			return fmt.Errorf("count credential use: %w", err)
		}
		key = cred.Key
		return nil
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// Seed stores each new key and skips those already present.
func (s *credentialService) Seed(ctx context.Context, keys []string) (int, error) {
	repo := s.uowFactory.NewUnitOfWork(ctx).ApiCredentialRepository()
	created := 0
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		err := repo.Create(ctx, &entity.ApiCredential{Key: key, Active: true})
		if errors.Is(err, contract.ErrDuplicate) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func (s *credentialService) List(ctx context.Context) ([]*entity.ApiCredential, error) {
	return s.uowFactory.NewUnitOfWork(ctx).ApiCredentialRepository().FindAll(ctx, specification.OrderBy{Field: "id"})
}
