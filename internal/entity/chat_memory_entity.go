package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatMemory is the stored conversation document of one (user, chat index).
type ChatMemory struct {
	Id        int64
	UserId    uuid.UUID
	ChatIndex int
	Messages  []MemoryMessage
	RawLog    []MemoryRawEntry
	Version   int64
	CreatedAt time.Time
	UpdatedAt *time.Time
}

type MemoryMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type MemoryRawEntry struct {
	Stage     string    `json:"stage"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
