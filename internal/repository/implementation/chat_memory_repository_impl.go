package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nutria-assistant-be/internal/entity"
	"nutria-assistant-be/internal/mapper"
	"nutria-assistant-be/internal/model"
	"nutria-assistant-be/internal/repository/contract"
	"nutria-assistant-be/internal/repository/specification"

	"gorm.io/gorm"
)

type ChatMemoryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMemoryMapper
}

func NewChatMemoryRepository(db *gorm.DB) contract.ChatMemoryRepository {
	return &ChatMemoryRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMemoryMapper(),
	}
}

func (r *ChatMemoryRepositoryImpl) Create(ctx context.Context, memory *entity.ChatMemory) error {
	m := r.mapper.ToModel(memory)
	m.Version = 1

	err := createWithNextID(ctx, r.db, m.TableName(),
		func(id int64) { m.Id = id },
		func() error { return r.db.WithContext(ctx).Create(m).Error },
	)
	if errors.Is(err, contract.ErrDuplicate) {
		// Another turn created the same (user, chat) document first.
		return fmt.Errorf("%w: %v", contract.ErrConflict, err)
	}
	if err != nil {
		return err
	}

	*memory = *r.mapper.ToEntity(m)
	return nil
}

func (r *ChatMemoryRepositoryImpl) Replace(ctx context.Context, memory *entity.ChatMemory, expectedVersion int64) error {
	m := r.mapper.ToModel(memory)
	now := time.Now()

	res := r.db.WithContext(ctx).
		Model(&model.ChatMemory{}).
		Where("user_id = ? AND chat_index = ? AND version = ?", m.UserId, m.ChatIndex, expectedVersion).
		Updates(map[string]interface{}{
			"messages":   m.Messages,
			"raw_log":    m.RawLog,
			"version":    expectedVersion + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return contract.ErrConflict
	}

	memory.Version = expectedVersion + 1
	memory.UpdatedAt = &now
	return nil
}

func (r *ChatMemoryRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMemory, error) {
	var m model.ChatMemory
	query := specification.Apply(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ChatMemoryRepositoryImpl) Delete(ctx context.Context, specs ...specification.Specification) error {
	if len(specs) == 0 {
		return errors.New("refusing to delete every chat memory")
	}
	query := specification.Apply(r.db.WithContext(ctx), specs...)
	return query.Delete(&model.ChatMemory{}).Error
}
