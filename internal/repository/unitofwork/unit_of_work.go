package unitofwork

import (
	"context"

	"nutria-assistant-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatMemoryRepository() contract.ChatMemoryRepository
	IngredientRepository() contract.IngredientRepository
	ProductRepository() contract.ProductRepository
	NutritionTableRepository() contract.NutritionTableRepository
	ApiCredentialRepository() contract.ApiCredentialRepository
}
