package nutrition

import (
	"fmt"
	"math"

	"nutria-assistant-be/internal/entity"
)

// scoreRule awards one point per Step of a nutrient per 100 units, up to Cap.
type scoreRule struct {
	Nutrient string
	Step     float64
	Cap      int
}

var (
	unfavourable = []scoreRule{
		{Energy, 80, 10},
		{TotalSugars, 4.5, 10},
		{SaturatedFat, 1, 10},
		{Sodium, 90, 10},
	}
	favourable = []scoreRule{
		{DietaryFiber, 0.7, 5},
		{Proteins, 1.6, 5},
	}
)

// Score is the nutritional grade of a table. Points is Negative minus
// Positive; lower is better.
type Score struct {
	TableId  int64  `json:"table_id"`
	Table    string `json:"table"`
	Negative int    `json:"negative_points"`
	Positive int    `json:"positive_points"`
	Points   int    `json:"points"`
	Grade    string `json:"grade"`
}

// Evaluate grades a table from A (best) to E using its per-100 values.
// Nutrients missing from the table count as zero.
func Evaluate(table *entity.NutritionTable) (*Score, error) {
	if table == nil || len(table.Nutrients) == 0 {
		return nil, fmt.Errorf("table has no nutrients to evaluate")
	}

	per100 := make(map[string]float64, len(table.Nutrients))
	for _, n := range table.Nutrients {
		per100[n.Name] = n.Per100
	}

	s := &Score{TableId: table.Id, Table: table.Name}
	for _, r := range unfavourable {
		s.Negative += r.points(per100[r.Nutrient])
	}
	for _, r := range favourable {
		s.Positive += r.points(per100[r.Nutrient])
	}
	s.Points = s.Negative - s.Positive
	s.Grade = grade(s.Points)
	return s, nil
}

func (r scoreRule) points(amount float64) int {
	if amount <= 0 {
		return 0
	}
	p := int(math.Floor(amount / r.Step))
	if p > r.Cap {
		return r.Cap
	}
	return p
}

func grade(points int) string {
	switch {
	case points >= 19:
		return "E"
	case points >= 11:
		return "D"
	case points >= 3:
		return "C"
	case points >= 0:
		return "B"
	default:
		return "A"
	}
}
