package tools

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nutria-assistant-be/internal/entity"
	"nutria-assistant-be/pkg/agent/schema"
	"nutria-assistant-be/pkg/nutrition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	ingredients []*entity.Ingredient
	products    []*entity.Product
	tables      []*entity.NutritionTable
	lastFilter  TableFilter
}

func (f *fakeCatalog) FindIngredients(_ context.Context, filter IngredientFilter) ([]*entity.Ingredient, error) {
	var out []*entity.Ingredient
	for _, i := range f.ingredients {
		if filter.Name != "" && !strings.Contains(strings.ToLower(i.Name), strings.ToLower(filter.Name)) {
			continue
		}
		if filter.Category != "" && i.Category != filter.Category {
			continue
		}
		out = append(out, i)
	}
	return out, nil
}

func (f *fakeCatalog) FindProductByName(_ context.Context, name string) (*entity.Product, error) {
	for _, p := range f.products {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) FindProductById(_ context.Context, id int64) (*entity.Product, error) {
	for _, p := range f.products {
		if p.Id == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) SearchProducts(_ context.Context, _ string, limit int) ([]*entity.Product, error) {
	if limit < len(f.products) {
		return f.products[:limit], nil
	}
	return f.products, nil
}

func (f *fakeCatalog) FindTables(_ context.Context, filter TableFilter) ([]*entity.NutritionTable, error) {
	f.lastFilter = filter
	var out []*entity.NutritionTable
	for _, t := range f.tables {
		if t.ProductId == filter.ProductId {
			out = append(out, t)
		}
	}
	return out, nil
}

func newCatalog() *fakeCatalog {
	return &fakeCatalog{
		ingredients: []*entity.Ingredient{
			{Id: 1, Name: "Farinha de trigo", Category: "farinhas"},
			{Id: 2, Name: "Farinha de arroz", Category: "farinhas"},
			{Id: 3, Name: "Açúcar", Category: "açúcares"},
		},
		products: []*entity.Product{{Id: 10, Name: "Biscoito de polvilho"}},
		tables:   []*entity.NutritionTable{{Id: 100, ProductId: 10, Name: "Original"}},
	}
}

func call(t *testing.T, tool Tool, args string) (any, error) {
	t.Helper()
	return tool.Call(context.Background(), json.RawMessage(args))
}

func TestIngredientFind(t *testing.T) {
	tool := IngredientFind(newCatalog())

	out, err := call(t, tool, `{"name": "farinha"}`)
	require.NoError(t, err)
	assert.Equal(t, 2, out.(listResult[*entity.Ingredient]).Count)

	out, err = call(t, tool, `{"category": "inexistente"}`)
	require.NoError(t, err)
	assert.Equal(t, 0, out.(listResult[*entity.Ingredient]).Count)

	_, err = call(t, tool, `{"name": "xantana lunar"}`)
	var lookup *schema.LookupError
	require.True(t, errors.As(err, &lookup))
	assert.Equal(t, "xantana lunar", lookup.Name)

	_, err = call(t, tool, `{}`)
	var argErr *ArgumentError
	assert.True(t, errors.As(err, &argErr))

	_, err = call(t, tool, `{"name": 12}`)
	assert.True(t, errors.As(err, &argErr))
}

func TestProductFind(t *testing.T) {
	tool := ProductFind(newCatalog())

	out, err := call(t, tool, `{"name": "biscoito de polvilho"}`)
	require.NoError(t, err)
	assert.Equal(t, int64(10), out.(listResult[*entity.Product]).Items[0].Id)

	_, err = call(t, tool, `{"name": "Bolo"}`)
	assert.True(t, schema.IsLookup(err))

	out, err = call(t, tool, `{"query": "salgadinho crocante"}`)
	require.NoError(t, err)
	assert.Equal(t, 1, out.(listResult[*entity.Product]).Count)
}

func TestTableFind(t *testing.T) {
	catalog := newCatalog()
	tool := TableFind(catalog)

	out, err := call(t, tool, `{"product_name": "Biscoito de polvilho", "unit": "g"}`)
	require.NoError(t, err)
	assert.Equal(t, 1, out.(listResult[*entity.NutritionTable]).Count)
	assert.Equal(t, int64(10), catalog.lastFilter.ProductId)
	assert.Equal(t, "g", catalog.lastFilter.Unit)

	_, err = call(t, tool, `{"product_id": 99}`)
	var lookup *schema.LookupError
	require.ErrorAs(t, err, &lookup)
	assert.Equal(t, "#99", lookup.Name)
}

func TestTableEvaluate(t *testing.T) {
	catalog := newCatalog()
	catalog.tables = append(catalog.tables, &entity.NutritionTable{
		Id: 101, ProductId: 10, Name: "Light",
		Nutrients: []entity.NutrientValue{
			{Name: nutrition.Energy, Per100: 480},
			{Name: nutrition.Sodium, Per100: 580},
			{Name: nutrition.Proteins, Per100: 3.3},
		},
	})
	catalog.tables[0].Nutrients = []entity.NutrientValue{{Name: nutrition.Energy, Per100: 60}}
	tool := TableEvaluate(catalog)

	out, err := call(t, tool, `{"product_name": "Biscoito de polvilho"}`)
	require.NoError(t, err)
	scores := out.(listResult[*nutrition.Score])
	require.Equal(t, 2, scores.Count)
	assert.Equal(t, "B", scores.Items[0].Grade)
	assert.Equal(t, "Light", scores.Items[1].Table)
	assert.Equal(t, 10, scores.Items[1].Points)
	assert.Equal(t, "C", scores.Items[1].Grade)

	_, err = call(t, tool, `{"product_name": "Pão de mel"}`)
	assert.True(t, schema.IsLookup(err))

	_, err = call(t, tool, `{}`)
	var argErr *ArgumentError
	assert.ErrorAs(t, err, &argErr)
}

func TestTableEvaluate_NoTables(t *testing.T) {
	catalog := newCatalog()
	catalog.tables = nil

	_, err := call(t, TableEvaluate(catalog), `{"product_id": 10, "table_name": "Integral"}`)

	var lookup *schema.LookupError
	require.ErrorAs(t, err, &lookup)
	assert.Equal(t, "tabela", lookup.Entity)
	assert.Equal(t, "Integral", lookup.Name)
}

type fakeBuilder struct{ got nutrition.Recipe }

func (f *fakeBuilder) Build(_ context.Context, r nutrition.Recipe) (*entity.NutritionTable, error) {
	f.got = r
	return &entity.NutritionTable{Id: 5, Name: r.TableName}, nil
}

func TestTableInsert(t *testing.T) {
	b := &fakeBuilder{}
	tool := TableInsert(b)

	out, err := call(t, tool, `{"product_name": "Biscoito de polvilho", "table_name": "Nova", "unit": "g", "portion": 30, "ingredients": [{"name": "Polvilho", "quantity": 500}]}`)
	require.NoError(t, err)
	assert.Equal(t, int64(5), out.(*entity.NutritionTable).Id)
	assert.Equal(t, 500.0, b.got.Ingredients[0].Quantity)

	_, err = call(t, tool, `{"product_name": "x", "table_name": "y", "unit": "kg", "portion": 30, "ingredients": [{"name": "a", "quantity": 1}]}`)
	var argErr *ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestTableScan_RejectsNonHTTP(t *testing.T) {
	_, err := call(t, TableScan(nil), `{"image_url": "file:///etc/passwd"}`)
	var argErr *ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestSearchFlow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guide.md")
	require.NoError(t, os.WriteFile(path, []byte("Menu > Tabelas > Exportar"), 0o644))

	out, err := call(t, SearchFlow(path), `{}`)
	require.NoError(t, err)
	assert.Equal(t, "Menu > Tabelas > Exportar", out.(map[string]string)["guide"])

	_, err = call(t, SearchFlow(filepath.Join(t.TempDir(), "missing.md")), `{}`)
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	catalog := newCatalog()
	r := NewRegistry(IngredientFind(catalog), ProductFind(catalog))

	_, ok := r.Lookup("product_find")
	assert.True(t, ok)
	_, ok = r.Lookup("nope")
	assert.False(t, ok)
	assert.Equal(t, 2, r.Len())
	assert.True(t, strings.HasPrefix(r.Catalog(), "- ingredient_find: "))
}
