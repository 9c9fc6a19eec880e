package implementation

import (
	"context"
	"errors"

	"nutria-assistant-be/internal/entity"
	"nutria-assistant-be/internal/mapper"
	"nutria-assistant-be/internal/model"
	"nutria-assistant-be/internal/repository/contract"
	"nutria-assistant-be/internal/repository/specification"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// --- ingredients ---

type IngredientRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CatalogMapper
}

func NewIngredientRepository(db *gorm.DB) contract.IngredientRepository {
	return &IngredientRepositoryImpl{db: db, mapper: mapper.NewCatalogMapper()}
}

func (r *IngredientRepositoryImpl) Create(ctx context.Context, ingredient *entity.Ingredient) error {
	m := r.mapper.IngredientToModel(ingredient)
	err := createWithNextID(ctx, r.db, m.TableName(),
		func(id int64) { m.Id = id },
		func() error { return r.db.WithContext(ctx).Create(m).Error },
	)
	if err != nil {
		return err
	}
	*ingredient = *r.mapper.IngredientToEntity(m)
	return nil
}

func (r *IngredientRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Ingredient, error) {
	var m model.Ingredient
	if err := specification.Apply(r.db.WithContext(ctx), specs...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.IngredientToEntity(&m), nil
}

func (r *IngredientRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Ingredient, error) {
	var models []*model.Ingredient
	if err := specification.Apply(r.db.WithContext(ctx), specs...).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.Ingredient, len(models))
	for i, m := range models {
		out[i] = r.mapper.IngredientToEntity(m)
	}
	return out, nil
}

func (r *IngredientRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	err := specification.Apply(r.db.WithContext(ctx), specs...).Model(&model.Ingredient{}).Count(&count).Error
	return count, err
}

// --- products ---

type ProductRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CatalogMapper
}

func NewProductRepository(db *gorm.DB) contract.ProductRepository {
	return &ProductRepositoryImpl{db: db, mapper: mapper.NewCatalogMapper()}
}

func (r *ProductRepositoryImpl) Create(ctx context.Context, product *entity.Product) error {
	m := r.mapper.ProductToModel(product)
	err := createWithNextID(ctx, r.db, m.TableName(),
		func(id int64) { m.Id = id },
		func() error { return r.db.WithContext(ctx).Create(m).Error },
	)
	if err != nil {
		return err
	}
	*product = *r.mapper.ProductToEntity(m)
	return nil
}

func (r *ProductRepositoryImpl) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Update("embedding", pgvector.NewVector(embedding)).Error
}

func (r *ProductRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Product, error) {
	var m model.Product
	if err := specification.Apply(r.db.WithContext(ctx), specs...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ProductToEntity(&m), nil
}

func (r *ProductRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Product, error) {
	var models []*model.Product
	if err := specification.Apply(r.db.WithContext(ctx), specs...).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.Product, len(models))
	for i, m := range models {
		out[i] = r.mapper.ProductToEntity(m)
	}
	return out, nil
}

func (r *ProductRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*entity.Product, error) {
	if limit <= 0 {
		limit = 5
	}
	var models []*model.Product

	// pgvector cosine distance: embedding <=> vector
	err := r.db.WithContext(ctx).
		Where("embedding IS NOT NULL").
		Order(gorm.Expr("embedding <=> ?", pgvector.NewVector(embedding))).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]*entity.Product, len(models))
	for i, m := range models {
		out[i] = r.mapper.ProductToEntity(m)
	}
	return out, nil
}

// --- nutrition tables ---

type NutritionTableRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CatalogMapper
}

func NewNutritionTableRepository(db *gorm.DB) contract.NutritionTableRepository {
	return &NutritionTableRepositoryImpl{db: db, mapper: mapper.NewCatalogMapper()}
}

func (r *NutritionTableRepositoryImpl) Create(ctx context.Context, table *entity.NutritionTable) error {
	m := r.mapper.TableToModel(table)
	err := createWithNextID(ctx, r.db, m.TableName(),
		func(id int64) { m.Id = id },
		func() error { return r.db.WithContext(ctx).Omit("Product").Create(m).Error },
	)
	if err != nil {
		return err
	}
	table.Id = m.Id
	table.CreatedAt = m.CreatedAt
	return nil
}

func (r *NutritionTableRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.NutritionTable, error) {
	var models []*model.NutritionTable
	query := specification.Apply(r.db.WithContext(ctx).Preload("Product"), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.NutritionTable, len(models))
	for i, m := range models {
		out[i] = r.mapper.TableToEntity(m)
	}
	return out, nil
}
