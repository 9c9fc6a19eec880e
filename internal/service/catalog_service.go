package service

import (
	"context"
	"fmt"
	"strings"

	"nutria-assistant-be/internal/entity"
	"nutria-assistant-be/internal/pkg/logger"
	"nutria-assistant-be/internal/repository/specification"
	"nutria-assistant-be/internal/repository/unitofwork"
	"nutria-assistant-be/pkg/agent/tools"
	"nutria-assistant-be/pkg/embedding"
	"nutria-assistant-be/pkg/nutrition"
)

// ICatalogService is the ingredient/product/table store as seen by the
// specialists' tools, the table builder and the operator surfaces.
type ICatalogService interface {
	tools.Catalog
	nutrition.Store
	nutrition.EmbeddingRequester

	CreateIngredient(ctx context.Context, ingredient *entity.Ingredient) error
	CreateProduct(ctx context.Context, product *entity.Product) error
	// BackfillEmbeddings queues every product without an embedding and returns how many were queued.
	BackfillEmbeddings(ctx context.Context) (int, error)
	PendingEmbeddings(ctx context.Context) (int, error)
}

type catalogService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider // optional, enables semantic product search
	publisher         IPublisherService
	logger            logger.ILogger
}

func NewCatalogService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	publisher IPublisherService,
	log logger.ILogger,
) ICatalogService {
	return &catalogService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		publisher:         publisher,
		logger:            log,
	}
}

var (
	_ tools.Catalog                = &catalogService{}
	_ nutrition.Store              = &catalogService{}
	_ nutrition.EmbeddingRequester = &catalogService{}
)

func (s *catalogService) FindIngredients(ctx context.Context, f tools.IngredientFilter) ([]*entity.Ingredient, error) {
	specs := []specification.Specification{specification.OrderBy{Field: "name"}}
	if f.Name != "" {
		specs = append(specs, specification.NameContains{Query: f.Name})
	}
	if f.Category != "" {
		specs = append(specs, specification.ByCategory{Category: f.Category})
	}
	if f.Limit > 0 {
		specs = append(specs, specification.Pagination{Limit: f.Limit})
	}
	return s.uowFactory.NewUnitOfWork(ctx).IngredientRepository().FindAll(ctx, specs...)
}

func (s *catalogService) FindIngredientByName(ctx context.Context, name string) (*entity.Ingredient, error) {
	return s.uowFactory.NewUnitOfWork(ctx).IngredientRepository().FindOne(ctx, specification.NameEquals{Name: name})
}

func (s *catalogService) FindProductByName(ctx context.Context, name string) (*entity.Product, error) {
	return s.uowFactory.NewUnitOfWork(ctx).ProductRepository().FindOne(ctx, specification.NameEquals{Name: name})
}

func (s *catalogService) FindProductById(ctx context.Context, id int64) (*entity.Product, error) {
	return s.uowFactory.NewUnitOfWork(ctx).ProductRepository().FindOne(ctx, specification.ByID{ID: id})
}

// SearchProducts ranks embedded products by similarity to text and falls
// back to a name match when embeddings are unavailable.
func (s *catalogService) SearchProducts(ctx context.Context, text string, limit int) ([]*entity.Product, error) {
	repo := s.uowFactory.NewUnitOfWork(ctx).ProductRepository()

	if s.embeddingProvider != nil {
		res, err := s.embeddingProvider.Generate(ctx, text, embedding.TaskRetrievalQuery)
		if err == nil && len(res.Embedding.Values) != embedding.Dimensions {
			err = fmt.Errorf("query embedding has %d dimensions", len(res.Embedding.Values))
		}
		if err == nil {
			found, err := repo.SearchSimilar(ctx, res.Embedding.Values, limit)
			if err != nil {
				return nil, err
			}
			if len(found) > 0 {
				return found, nil
			}
		} else {
			s.logger.Warn("Catalog", "Query embedding failed, using name search", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return repo.FindAll(ctx,
		specification.NameContains{Query: text},
		specification.OrderBy{Field: "name"},
		specification.Pagination{Limit: limit},
	)
}

func (s *catalogService) FindTables(ctx context.Context, f tools.TableFilter) ([]*entity.NutritionTable, error) {
	specs := []specification.Specification{specification.OrderBy{Field: "nutrition_tables.id"}}
	if f.ProductId != 0 {
		specs = append(specs, specification.ByProductID{ProductID: f.ProductId})
	}
	if f.TableName != "" {
		specs = append(specs, specification.NameContains{Query: f.TableName})
	}
	if f.Unit != "" {
		specs = append(specs, specification.ByUnit{Unit: f.Unit})
	}
	return s.uowFactory.NewUnitOfWork(ctx).NutritionTableRepository().FindAll(ctx, specs...)
}

func (s *catalogService) SaveTable(ctx context.Context, table *entity.NutritionTable) error {
	return s.uowFactory.NewUnitOfWork(ctx).NutritionTableRepository().Create(ctx, table)
}

func (s *catalogService) RequestProductEmbedding(ctx context.Context, productId int64) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.RequestProductEmbedding(ctx, productId)
}

func (s *catalogService) CreateIngredient(ctx context.Context, ingredient *entity.Ingredient) error {
	ingredient.Name = strings.TrimSpace(ingredient.Name)
	ingredient.Unit = strings.ToLower(strings.TrimSpace(ingredient.Unit))
	if ingredient.Unit == "" {
		ingredient.Unit = "g"
	}
	return s.uowFactory.NewUnitOfWork(ctx).IngredientRepository().Create(ctx, ingredient)
}

func (s *catalogService) CreateProduct(ctx context.Context, product *entity.Product) error {
	product.Name = strings.TrimSpace(product.Name)
	if err := s.uowFactory.NewUnitOfWork(ctx).ProductRepository().Create(ctx, product); err != nil {
		return err
	}
	if err := s.RequestProductEmbedding(ctx, product.Id); err != nil {
		s.logger.Warn("Catalog", "Could not queue product embedding", map[string]interface{}{
			"product_id": product.Id,
			"error":      err.Error(),
		})
	}
	return nil
}

func (s *catalogService) BackfillEmbeddings(ctx context.Context) (int, error) {
	pending, err := s.uowFactory.NewUnitOfWork(ctx).ProductRepository().FindAll(ctx,
		specification.WithoutEmbedding{},
		specification.OrderBy{Field: "id"},
	)
	if err != nil {
		return 0, fmt.Errorf("list products without embedding: %w", err)
	}

	for i, p := range pending {
		if err := s.RequestProductEmbedding(ctx, p.Id); err != nil {
			return i, err
		}
	}

	s.logger.Info("Catalog", "Embedding backfill queued", map[string]interface{}{"count": len(pending)})
	return len(pending), nil
}

func (s *catalogService) PendingEmbeddings(ctx context.Context) (int, error) {
	pending, err := s.uowFactory.NewUnitOfWork(ctx).ProductRepository().FindAll(ctx, specification.WithoutEmbedding{})
	if err != nil {
		return 0, fmt.Errorf("list products without embedding: %w", err)
	}
	return len(pending), nil
}
