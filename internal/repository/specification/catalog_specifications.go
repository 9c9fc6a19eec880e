package specification

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NameEquals matches a name case-insensitively, ignoring surrounding spaces.
type NameEquals struct {
	Name string
}

func (s NameEquals) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(s.Name)))
}

// NameContains is a case-insensitive substring match on name.
type NameContains struct {
	Query string
}

func (s NameContains) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("name ILIKE ?", "%"+escapeLike(s.Query)+"%")
}

type ByCategory struct {
	Category string
}

func (s ByCategory) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("category ILIKE ?", escapeLike(s.Category))
}

type ByProductID struct {
	ProductID int64
}

func (s ByProductID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("product_id = ?", s.ProductID)
}

type ByUnit struct {
	Unit string
}

func (s ByUnit) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("unit = ?", strings.ToLower(s.Unit))
}

// WithoutEmbedding selects products still waiting for the backfill.
type WithoutEmbedding struct{}

func (WithoutEmbedding) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("embedding IS NULL")
}

type ActiveOnly struct{}

func (ActiveOnly) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("active = ?", true)
}

// ByMemoryKey selects the conversation document of one user and chat index.
type ByMemoryKey struct {
	UserID    uuid.UUID
	ChatIndex int
}

func (s ByMemoryKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ? AND chat_index = ?", s.UserID, s.ChatIndex)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.TrimSpace(s))
}
