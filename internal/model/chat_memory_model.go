package model

import (
	"time"

	"nutria-assistant-be/internal/entity"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChatMemory is one conversation document. The whole row is replaced on
// every turn; Version guards against lost updates.
type ChatMemory struct {
	Id        int64                                      `gorm:"primaryKey;autoIncrement:false"`
	UserId    uuid.UUID                                  `gorm:"type:uuid;not null;uniqueIndex:idx_chat_memories_key,priority:1"`
	ChatIndex int                                        `gorm:"not null;uniqueIndex:idx_chat_memories_key,priority:2"`
	Messages  datatypes.JSONSlice[entity.MemoryMessage]  `gorm:"type:jsonb;not null;default:'[]'"`
	RawLog    datatypes.JSONSlice[entity.MemoryRawEntry] `gorm:"type:jsonb;not null;default:'[]'"`
	Version   int64                                      `gorm:"not null;default:1"`
	CreatedAt time.Time                                  `gorm:"autoCreateTime"`
	UpdatedAt time.Time                                  `gorm:"autoUpdateTime"`
}

func (ChatMemory) TableName() string {
	return "chat_memories"
}
