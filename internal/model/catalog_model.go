package model

import (
	"time"

	"nutria-assistant-be/internal/entity"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type Ingredient struct {
	Id        int64                                  `gorm:"primaryKey;autoIncrement:false"`
	Name      string                                 `gorm:"type:varchar(200);not null;uniqueIndex"`
	Category  string                                 `gorm:"type:varchar(100);index"`
	Unit      string                                 `gorm:"type:varchar(10);not null;default:'g'"`
	Nutrients datatypes.JSONType[map[string]float64] `gorm:"type:jsonb;not null"`
	CreatedAt time.Time                              `gorm:"autoCreateTime"`
}

func (Ingredient) TableName() string {
	return "ingredients"
}

type Product struct {
	Id          int64            `gorm:"primaryKey;autoIncrement:false"`
	Name        string           `gorm:"type:varchar(200);not null;uniqueIndex"`
	Description string           `gorm:"type:text"`
	Embedding   *pgvector.Vector `gorm:"type:vector(768)"` // Gemini text-embedding-004
	CreatedAt   time.Time        `gorm:"autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"autoUpdateTime"`
}

func (Product) TableName() string {
	return "products"
}

type NutritionTable struct {
	Id            int64                                     `gorm:"primaryKey;autoIncrement:false"`
	ProductId     int64                                     `gorm:"not null;index"`
	Name          string                                    `gorm:"type:varchar(200);not null"`
	Unit          string                                    `gorm:"type:varchar(10);not null"`
	Portion       float64                                   `gorm:"not null"`
	TotalQuantity float64                                   `gorm:"not null"`
	Items         datatypes.JSONSlice[entity.TableItem]     `gorm:"type:jsonb;not null"`
	Nutrients     datatypes.JSONSlice[entity.NutrientValue] `gorm:"type:jsonb;not null"`
	CreatedAt     time.Time                                 `gorm:"autoCreateTime"`

	Product *Product `gorm:"foreignKey:ProductId"`
}

func (NutritionTable) TableName() string {
	return "nutrition_tables"
}

type ApiCredential struct {
	Id        int64     `gorm:"primaryKey;autoIncrement"`
	Key       string    `gorm:"type:text;not null;uniqueIndex"`
	Uses      int64     `gorm:"not null;default:0"`
	Active    bool      `gorm:"not null;default:true;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ApiCredential) TableName() string {
	return "api_credentials"
}
