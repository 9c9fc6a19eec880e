package mapper

import (
	"time"

	"nutria-assistant-be/internal/entity"
	"nutria-assistant-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type CatalogMapper struct{}

func NewCatalogMapper() *CatalogMapper {
	return &CatalogMapper{}
}

func (m *CatalogMapper) IngredientToEntity(e *model.Ingredient) *entity.Ingredient {
	if e == nil {
		return nil
	}
	return &entity.Ingredient{
		Id:        e.Id,
		Name:      e.Name,
		Category:  e.Category,
		Unit:      e.Unit,
		Nutrients: e.Nutrients.Data(),
		CreatedAt: e.CreatedAt,
	}
}

func (m *CatalogMapper) IngredientToModel(e *entity.Ingredient) *model.Ingredient {
	if e == nil {
		return nil
	}
	nutrients := e.Nutrients
	if nutrients == nil {
		nutrients = map[string]float64{}
	}
	return &model.Ingredient{
		Id:        e.Id,
		Name:      e.Name,
		Category:  e.Category,
		Unit:      e.Unit,
		Nutrients: datatypes.NewJSONType(nutrients),
		CreatedAt: e.CreatedAt,
	}
}

func (m *CatalogMapper) ProductToEntity(e *model.Product) *entity.Product {
	if e == nil {
		return nil
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	var embedding []float32
	if e.Embedding != nil {
		embedding = e.Embedding.Slice()
	}

	return &entity.Product{
		Id:          e.Id,
		Name:        e.Name,
		Description: e.Description,
		Embedding:   embedding,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   updatedAt,
	}
}

func (m *CatalogMapper) ProductToModel(e *entity.Product) *model.Product {
	if e == nil {
		return nil
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	var embedding *pgvector.Vector
	if len(e.Embedding) > 0 {
		v := pgvector.NewVector(e.Embedding)
		embedding = &v
	}

	return &model.Product{
		Id:          e.Id,
		Name:        e.Name,
		Description: e.Description,
		Embedding:   embedding,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   updatedAt,
	}
}

func (m *CatalogMapper) TableToEntity(e *model.NutritionTable) *entity.NutritionTable {
	if e == nil {
		return nil
	}
	t := &entity.NutritionTable{
		Id:            e.Id,
		ProductId:     e.ProductId,
		Name:          e.Name,
		Unit:          e.Unit,
		Portion:       e.Portion,
		TotalQuantity: e.TotalQuantity,
		Items:         []entity.TableItem(e.Items),
		Nutrients:     []entity.NutrientValue(e.Nutrients),
		CreatedAt:     e.CreatedAt,
	}
	if e.Product != nil {
		t.ProductName = e.Product.Name
	}
	return t
}

func (m *CatalogMapper) TableToModel(e *entity.NutritionTable) *model.NutritionTable {
	if e == nil {
		return nil
	}
	return &model.NutritionTable{
		Id:            e.Id,
		ProductId:     e.ProductId,
		Name:          e.Name,
		Unit:          e.Unit,
		Portion:       e.Portion,
		TotalQuantity: e.TotalQuantity,
		Items:         datatypes.JSONSlice[entity.TableItem](e.Items),
		Nutrients:     datatypes.JSONSlice[entity.NutrientValue](e.Nutrients),
		CreatedAt:     e.CreatedAt,
	}
}

func (m *CatalogMapper) CredentialToEntity(e *model.ApiCredential) *entity.ApiCredential {
	if e == nil {
		return nil
	}
	return &entity.ApiCredential{
		Id:        e.Id,
		Key:       e.Key,
		Uses:      e.Uses,
		Active:    e.Active,
		CreatedAt: e.CreatedAt,
	}
}

func (m *CatalogMapper) CredentialToModel(e *entity.ApiCredential) *model.ApiCredential {
	if e == nil {
		return nil
	}
	return &model.ApiCredential{
		Id:        e.Id,
		Key:       e.Key,
		Uses:      e.Uses,
		Active:    e.Active,
		CreatedAt: e.CreatedAt,
	}
}
