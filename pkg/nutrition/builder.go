package nutrition

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nutria-assistant-be/internal/entity"
	"nutria-assistant-be/internal/pkg/logger"
	"nutria-assistant-be/pkg/agent/schema"
)

// Store is what the builder needs from the catalog.
// Find* return nil, nil when nothing matches.
type Store interface {
	FindIngredientByName(ctx context.Context, name string) (*entity.Ingredient, error)
	FindProductByName(ctx context.Context, name string) (*entity.Product, error)
	SaveTable(ctx context.Context, table *entity.NutritionTable) error
}

// EmbeddingRequester schedules (re)embedding of a product.
type EmbeddingRequester interface {
	RequestProductEmbedding(ctx context.Context, productId int64) error
}

type Builder struct {
	store    Store
	embedder EmbeddingRequester
	logger   logger.ILogger
	now      func() time.Time
}

func NewBuilder(store Store, embedder EmbeddingRequester, log logger.ILogger) *Builder {
	return &Builder{store: store, embedder: embedder, logger: log, now: time.Now}
}

// Build resolves every name in the recipe, computes the table and stores it.
// An unknown product or ingredient yields a *schema.LookupError and nothing is stored.
func (b *Builder) Build(ctx context.Context, recipe Recipe) (*entity.NutritionTable, error) {
	if err := recipe.Validate(); err != nil {
		return nil, err
	}

	product, err := b.store.FindProductByName(ctx, strings.TrimSpace(recipe.ProductName))
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	if product == nil {
		return nil, &schema.LookupError{Entity: "produto", Name: recipe.ProductName}
	}

	items := make([]ResolvedItem, 0, len(recipe.Ingredients))
	tableItems := make([]entity.TableItem, 0, len(recipe.Ingredients))
	for _, line := range recipe.Ingredients {
		ing, err := b.store.FindIngredientByName(ctx, strings.TrimSpace(line.Name))
		if err != nil {
			return nil, fmt.Errorf("find ingredient: %w", err)
		}
		if ing == nil {
			return nil, &schema.LookupError{Entity: "ingrediente", Name: line.Name}
		}
		items = append(items, ResolvedItem{Ingredient: ing, Quantity: line.Quantity})
		tableItems = append(tableItems, entity.TableItem{IngredientId: ing.Id, IngredientName: ing.Name, Quantity: line.Quantity})
	}

	total, nutrients := Compute(items, recipe.Portion)
	table := &entity.NutritionTable{
		ProductId:     product.Id,
		ProductName:   product.Name,
		Name:          strings.TrimSpace(recipe.TableName),
		Unit:          recipe.Unit,
		Portion:       recipe.Portion,
		TotalQuantity: total,
		Items:         tableItems,
		Nutrients:     nutrients,
		CreatedAt:     b.now(),
	}
	if err := b.store.SaveTable(ctx, table); err != nil {
		return nil, fmt.Errorf("save table: %w", err)
	}

	b.logger.Info("NutritionTable", "Table created", map[string]interface{}{
		"table_id":   table.Id,
		"product_id": product.Id,
		"items":      len(tableItems),
	})

	if b.embedder != nil && len(product.Embedding) == 0 {
		if err := b.embedder.RequestProductEmbedding(ctx, product.Id); err != nil {
			b.logger.Warn("NutritionTable", "Embedding request failed", map[string]interface{}{
				"product_id": product.Id,
				"error":      err.Error(),
			})
		}
	}
	return table, nil
}
