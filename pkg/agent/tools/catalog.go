package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"nutria-assistant-be/internal/entity"
	"nutria-assistant-be/pkg/agent/schema"
	"nutria-assistant-be/pkg/nutrition"
)

const defaultLimit = 20

type IngredientFilter struct {
	Name     string
	Category string
	Limit    int
}

type TableFilter struct {
	ProductId int64
	TableName string
	Unit      string
}

// Catalog is the read side of the ingredient/product/table store.
// Single-entity finders return nil, nil when nothing matches.
type Catalog interface {
	FindIngredients(ctx context.Context, f IngredientFilter) ([]*entity.Ingredient, error)
	FindProductByName(ctx context.Context, name string) (*entity.Product, error)
	FindProductById(ctx context.Context, id int64) (*entity.Product, error)
	SearchProducts(ctx context.Context, text string, limit int) ([]*entity.Product, error)
	FindTables(ctx context.Context, f TableFilter) ([]*entity.NutritionTable, error)
}

// TableBuilder creates a nutrition table from a recipe.
type TableBuilder interface {
	Build(ctx context.Context, recipe nutrition.Recipe) (*entity.NutritionTable, error)
}

type listResult[T any] struct {
	Count int `json:"count"`
	Items []T `json:"items"`
}

func list[T any](items []T) listResult[T] {
	if items == nil {
		items = []T{}
	}
	return listResult[T]{Count: len(items), Items: items}
}

// --- ingredient_find ---

type ingredientFind struct{ catalog Catalog }

func IngredientFind(c Catalog) Tool { return &ingredientFind{catalog: c} }

func (t *ingredientFind) Name() string { return "ingredient_find" }

func (t *ingredientFind) Description() string {
	return `busca ingredientes cadastrados. Argumentos: {"name": "trecho do nome", "category": "categoria", "limit": 20}. Nutrientes por 100 g/ml.`
}

func (t *ingredientFind) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Name     string `json:"name"`
		Category string `json:"category"`
		Limit    int    `json:"limit"`
	}
	if err := decodeArgs(t.Name(), raw, &args); err != nil {
		return nil, err
	}
	args.Name, args.Category = strings.TrimSpace(args.Name), strings.TrimSpace(args.Category)
	if args.Name == "" && args.Category == "" {
		return nil, &ArgumentError{Tool: t.Name(), Reason: "name or category is required"}
	}
	if args.Limit <= 0 || args.Limit > defaultLimit {
		args.Limit = defaultLimit
	}

	found, err := t.catalog.FindIngredients(ctx, IngredientFilter{Name: args.Name, Category: args.Category, Limit: args.Limit})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 && args.Name != "" {
		return nil, &schema.LookupError{Entity: "ingrediente", Name: args.Name}
	}
	return list(found), nil
}

// --- product_find ---

type productFind struct{ catalog Catalog }

func ProductFind(c Catalog) Tool { return &productFind{catalog: c} }

func (t *productFind) Name() string { return "product_find" }

func (t *productFind) Description() string {
	return `encontra produtos. Use {"name": "nome exato"} para um produto específico ou {"query": "descrição livre", "limit": 5} para busca semântica.`
}

func (t *productFind) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Name  string `json:"name"`
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := decodeArgs(t.Name(), raw, &args); err != nil {
		return nil, err
	}

	switch {
	case strings.TrimSpace(args.Name) != "":
		p, err := t.catalog.FindProductByName(ctx, strings.TrimSpace(args.Name))
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, &schema.LookupError{Entity: "produto", Name: args.Name}
		}
		return list([]*entity.Product{p}), nil
	case strings.TrimSpace(args.Query) != "":
		if args.Limit <= 0 || args.Limit > defaultLimit {
			args.Limit = 5
		}
		found, err := t.catalog.SearchProducts(ctx, args.Query, args.Limit)
		if err != nil {
			return nil, err
		}
		return list(found), nil
	default:
		return nil, &ArgumentError{Tool: t.Name(), Reason: "name or query is required"}
	}
}

// --- table_find ---

type tableFind struct{ catalog Catalog }

func TableFind(c Catalog) Tool { return &tableFind{catalog: c} }

func (t *tableFind) Name() string { return "table_find" }

func (t *tableFind) Description() string {
	return `lista tabelas nutricionais de um produto. Argumentos: {"product_id": 0, "product_name": "", "table_name": "", "unit": "g|ml"}; informe product_id ou product_name.`
}

func (t *tableFind) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		ProductId   int64  `json:"product_id"`
		ProductName string `json:"product_name"`
		TableName   string `json:"table_name"`
		Unit        string `json:"unit"`
	}
	if err := decodeArgs(t.Name(), raw, &args); err != nil {
		return nil, err
	}

	product, err := resolveProduct(ctx, t.catalog, t.Name(), args.ProductId, args.ProductName)
	if err != nil {
		return nil, err
	}

	tables, err := t.catalog.FindTables(ctx, TableFilter{ProductId: product.Id, TableName: strings.TrimSpace(args.TableName), Unit: args.Unit})
	if err != nil {
		return nil, err
	}
	return list(tables), nil
}

// resolveProduct finds a product by id or name, raising a LookupError when it
// does not exist.
func resolveProduct(ctx context.Context, c Catalog, tool string, id int64, name string) (*entity.Product, error) {
	name = strings.TrimSpace(name)

	var product *entity.Product
	var err error
	switch {
	case id > 0:
		product, err = c.FindProductById(ctx, id)
	case name != "":
		product, err = c.FindProductByName(ctx, name)
	default:
		return nil, &ArgumentError{Tool: tool, Reason: "product_id or product_name is required"}
	}
	if err != nil {
		return nil, err
	}
	if product == nil {
		if name == "" {
			name = "#" + strconv.FormatInt(id, 10)
		}
		return nil, &schema.LookupError{Entity: "produto", Name: name}
	}
	return product, nil
}

// --- table_evaluate ---

type tableEvaluate struct{ catalog Catalog }

func TableEvaluate(c Catalog) Tool { return &tableEvaluate{catalog: c} }

func (t *tableEvaluate) Name() string { return "table_evaluate" }

func (t *tableEvaluate) Description() string {
	return `classifica a qualidade nutricional das tabelas de um produto de A (melhor) a E, a partir dos valores por 100 g/ml. Argumentos: {"product_id": 0, "product_name": "", "table_name": ""}; informe product_id ou product_name.`
}

func (t *tableEvaluate) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		ProductId   int64  `json:"product_id"`
		ProductName string `json:"product_name"`
		TableName   string `json:"table_name"`
	}
	if err := decodeArgs(t.Name(), raw, &args); err != nil {
		return nil, err
	}

	product, err := resolveProduct(ctx, t.catalog, t.Name(), args.ProductId, args.ProductName)
	if err != nil {
		return nil, err
	}
	tableName := strings.TrimSpace(args.TableName)
	tables, err := t.catalog.FindTables(ctx, TableFilter{ProductId: product.Id, TableName: tableName})
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		name := product.Name
		if tableName != "" {
			name = tableName
		}
		return nil, &schema.LookupError{Entity: "tabela", Name: name}
	}

	scores := make([]*nutrition.Score, 0, len(tables))
	for _, table := range tables {
		score, err := nutrition.Evaluate(table)
		if err != nil {
			return nil, &ArgumentError{Tool: t.Name(), Reason: fmt.Sprintf("tabela %q sem nutrientes", table.Name)}
		}
		scores = append(scores, score)
	}
	return list(scores), nil
}

// --- table_insert ---

type tableInsert struct{ builder TableBuilder }

func TableInsert(b TableBuilder) Tool { return &tableInsert{builder: b} }

func (t *tableInsert) Name() string { return "table_insert" }

func (t *tableInsert) Description() string {
	return `cria uma tabela nutricional a partir de uma receita. Argumentos: {"product_name": "", "table_name": "", "unit": "g|ml", "portion": 0, "ingredients": [{"name": "", "quantity": 0}]}. Quantidades na mesma unidade.`
}

func (t *tableInsert) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var recipe nutrition.Recipe
	if err := decodeArgs(t.Name(), raw, &recipe); err != nil {
		return nil, err
	}
	if err := recipe.Validate(); err != nil {
		return nil, &ArgumentError{Tool: t.Name(), Reason: err.Error()}
	}
	return t.builder.Build(ctx, recipe)
}

// --- table_scan ---

type tableScan struct{ scanner nutrition.Scanner }

func TableScan(s nutrition.Scanner) Tool { return &tableScan{scanner: s} }

func (t *tableScan) Name() string { return "table_scan" }

func (t *tableScan) Description() string {
	return `lê a foto de uma tabela nutricional. Argumentos: {"image_url": "https://..."}.`
}

func (t *tableScan) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		ImageURL string `json:"image_url"`
	}
	if err := decodeArgs(t.Name(), raw, &args); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(args.ImageURL, "http://") && !strings.HasPrefix(args.ImageURL, "https://") {
		return nil, &ArgumentError{Tool: t.Name(), Reason: "image_url must be an http(s) URL"}
	}
	return t.scanner.Scan(ctx, args.ImageURL)
}
