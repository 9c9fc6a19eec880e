package unitofwork

import (
	"context"
	"fmt"

	"nutria-assistant-be/internal/repository/contract"
	"nutria-assistant-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB // active transaction, nil outside Begin/Commit
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	u.tx = u.db.WithContext(ctx).Begin()
	return u.tx.Error
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

// Rollback is a no-op after Commit so it can always be deferred.
func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return nil
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

// Repository Accessors

func (u *UnitOfWorkImpl) ChatMemoryRepository() contract.ChatMemoryRepository {
	return implementation.NewChatMemoryRepository(u.getDB())
}

func (u *UnitOfWorkImpl) IngredientRepository() contract.IngredientRepository {
	return implementation.NewIngredientRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ProductRepository() contract.ProductRepository {
	return implementation.NewProductRepository(u.getDB())
}

func (u *UnitOfWorkImpl) NutritionTableRepository() contract.NutritionTableRepository {
	return implementation.NewNutritionTableRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ApiCredentialRepository() contract.ApiCredentialRepository {
	return implementation.NewApiCredentialRepository(u.getDB())
}
