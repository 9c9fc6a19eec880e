package contract

import (
	"context"

	"nutria-assistant-be/internal/entity"
	"nutria-assistant-be/internal/repository/specification"
)

type ChatMemoryRepository interface {
	// Create assigns the next unused id and stores memory at version 1.
	Create(ctx context.Context, memory *entity.ChatMemory) error
	// Replace overwrites the document if its stored version is still
	// expectedVersion, then advances memory.Version. ErrConflict otherwise.
	Replace(ctx context.Context, memory *entity.ChatMemory, expectedVersion int64) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMemory, error)
	Delete(ctx context.Context, specs ...specification.Specification) error
}
