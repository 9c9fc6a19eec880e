// Package nutrition computes nutrition facts tables from recipes.
package nutrition

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"nutria-assistant-be/internal/entity"
)

// Nutrient keys used in ingredient documents, per 100 g or ml.
const (
	Energy        = "energia_kcal"
	Carbohydrates = "carboidratos_g"
	TotalSugars   = "acucares_totais_g"
	AddedSugars   = "acucares_adicionados_g"
	Proteins      = "proteinas_g"
	TotalFat      = "gorduras_totais_g"
	SaturatedFat  = "gorduras_saturadas_g"
	TransFat      = "gorduras_trans_g"
	DietaryFiber  = "fibra_alimentar_g"
	Sodium        = "sodio_mg"
)

// DailyReference holds the reference daily intake used for %DV.
// Nutrients without an entry have no %DV.
var DailyReference = map[string]float64{
	Energy:        2000,
	Carbohydrates: 300,
	AddedSugars:   50,
	Proteins:      50,
	TotalFat:      65,
	SaturatedFat:  20,
	DietaryFiber:  25,
	Sodium:        2000,
}

var labelOrder = []string{Energy, Carbohydrates, TotalSugars, AddedSugars, Proteins, TotalFat, SaturatedFat, TransFat, DietaryFiber, Sodium}

type RecipeItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

type Recipe struct {
	ProductName string       `json:"product_name"`
	TableName   string       `json:"table_name"`
	Unit        string       `json:"unit"`
	Portion     float64      `json:"portion"`
	Ingredients []RecipeItem `json:"ingredients"`
}

var ErrInvalidRecipe = errors.New("invalid recipe")

func (r Recipe) Validate() error {
	switch {
	case strings.TrimSpace(r.ProductName) == "":
		return fmt.Errorf("%w: product_name is required", ErrInvalidRecipe)
	case strings.TrimSpace(r.TableName) == "":
		return fmt.Errorf("%w: table_name is required", ErrInvalidRecipe)
	case r.Unit != "g" && r.Unit != "ml":
		return fmt.Errorf("%w: unit must be g or ml", ErrInvalidRecipe)
	case r.Portion <= 0:
		return fmt.Errorf("%w: portion must be positive", ErrInvalidRecipe)
	case len(r.Ingredients) == 0:
		return fmt.Errorf("%w: at least one ingredient is required", ErrInvalidRecipe)
	}
	for _, item := range r.Ingredients {
		if strings.TrimSpace(item.Name) == "" || item.Quantity <= 0 {
			return fmt.Errorf("%w: every ingredient needs a name and a positive quantity", ErrInvalidRecipe)
		}
	}
	return nil
}

// ResolvedItem is a recipe line matched to a stored ingredient.
type ResolvedItem struct {
	Ingredient *entity.Ingredient
	Quantity   float64
}

// Compute sums the nutrients of the resolved items and scales them to 100
// units and to one portion. It returns the total recipe quantity and the rows
// in label order, followed by any other nutrient alphabetically.
func Compute(items []ResolvedItem, portion float64) (float64, []entity.NutrientValue) {
	var total float64
	amounts := make(map[string]float64)
	for _, item := range items {
		total += item.Quantity
		for name, per100 := range item.Ingredient.Nutrients {
			amounts[name] += per100 * item.Quantity / 100
		}
	}
	if total == 0 {
		return 0, nil
	}

	rows := make([]entity.NutrientValue, 0, len(amounts))
	for _, name := range orderedNames(amounts) {
		perPortion := amounts[name] / total * portion
		row := entity.NutrientValue{
			Name:       name,
			Per100:     round2(amounts[name] / total * 100),
			PerPortion: round2(perPortion),
		}
		if ref, ok := DailyReference[name]; ok && ref > 0 {
			dv := math.Round(perPortion / ref * 100)
			row.DailyValue = &dv
		}
		rows = append(rows, row)
	}
	return total, rows
}

func orderedNames(amounts map[string]float64) []string {
	seen := make(map[string]bool, len(labelOrder))
	names := make([]string, 0, len(amounts))
	for _, name := range labelOrder {
		seen[name] = true
		if _, ok := amounts[name]; ok {
			names = append(names, name)
		}
	}
	var rest []string
	for name := range amounts {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
