package contract

import (
	"context"

	"nutria-assistant-be/internal/entity"
	"nutria-assistant-be/internal/repository/specification"
)

type IngredientRepository interface {
	Create(ctx context.Context, ingredient *entity.Ingredient) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Ingredient, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Ingredient, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Product, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Product, error)
	// SearchSimilar orders embedded products by cosine distance to embedding.
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*entity.Product, error)
}

type NutritionTableRepository interface {
	Create(ctx context.Context, table *entity.NutritionTable) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.NutritionTable, error)
}

type ApiCredentialRepository interface {
	Create(ctx context.Context, credential *entity.ApiCredential) error
	// FindLeastUsed locks and returns the active credential with the fewest
	// uses, or nil. Call inside a transaction.
	FindLeastUsed(ctx context.Context) (*entity.ApiCredential, error)
	IncrementUses(ctx context.Context, id int64) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ApiCredential, error)
}
