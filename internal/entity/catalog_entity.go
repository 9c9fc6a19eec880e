package entity

import "time"

// Ingredient nutrients are expressed per 100 units (g or ml) of the ingredient.
type Ingredient struct {
	Id        int64              `json:"id"`
	Name      string             `json:"name"`
	Category  string             `json:"category"`
	Unit      string             `json:"unit"`
	Nutrients map[string]float64 `json:"nutrients"`
	CreatedAt time.Time          `json:"created_at"`
}

type Product struct {
	Id          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Embedding   []float32  `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

type NutritionTable struct {
	Id            int64           `json:"id"`
	ProductId     int64           `json:"product_id"`
	ProductName   string          `json:"product_name,omitempty"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	Portion       float64         `json:"portion"`
	TotalQuantity float64         `json:"total_quantity"`
	Items         []TableItem     `json:"items"`
	Nutrients     []NutrientValue `json:"nutrients"`
	CreatedAt     time.Time       `json:"created_at"`
}

type TableItem struct {
	IngredientId   int64   `json:"ingredient_id"`
	IngredientName string  `json:"ingredient_name"`
	Quantity       float64 `json:"quantity"`
}

// NutrientValue is one row of a nutrition facts table.
// DailyValue is the %DV of one portion; nil when no reference exists.
type NutrientValue struct {
	Name       string   `json:"name"`
	Per100     float64  `json:"per_100"`
	PerPortion float64  `json:"per_portion"`
	DailyValue *float64 `json:"daily_value,omitempty"`
}

type ApiCredential struct {
	Id        int64
	Key       string
	Uses      int64
	Active    bool
	CreatedAt time.Time
}
