package mapper

import (
	"time"

	"nutria-assistant-be/internal/entity"
	"nutria-assistant-be/internal/model"
	"nutria-assistant-be/pkg/store"

	"gorm.io/datatypes"
)

type ChatMemoryMapper struct{}

func NewChatMemoryMapper() *ChatMemoryMapper {
	return &ChatMemoryMapper{}
}

func (m *ChatMemoryMapper) ToEntity(e *model.ChatMemory) *entity.ChatMemory {
	if e == nil {
		return nil
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatMemory{
		Id:        e.Id,
		UserId:    e.UserId,
		ChatIndex: e.ChatIndex,
		Messages:  []entity.MemoryMessage(e.Messages),
		RawLog:    []entity.MemoryRawEntry(e.RawLog),
		Version:   e.Version,
		CreatedAt: e.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *ChatMemoryMapper) ToModel(e *entity.ChatMemory) *model.ChatMemory {
	if e == nil {
		return nil
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	messages := e.Messages
	if messages == nil {
		messages = []entity.MemoryMessage{}
	}
	raw := e.RawLog
	if raw == nil {
		raw = []entity.MemoryRawEntry{}
	}

	return &model.ChatMemory{
		Id:        e.Id,
		UserId:    e.UserId,
		ChatIndex: e.ChatIndex,
		Messages:  datatypes.JSONSlice[entity.MemoryMessage](messages),
		RawLog:    datatypes.JSONSlice[entity.MemoryRawEntry](raw),
		Version:   e.Version,
		CreatedAt: e.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

// ToSession converts the stored document into the pipeline's session.
func (m *ChatMemoryMapper) ToSession(e *entity.ChatMemory) *store.Session {
	s := store.NewSession(store.Key{UserID: e.UserId, Chat: e.ChatIndex})
	s.Version = e.Version
	for _, msg := range e.Messages {
		s.Messages = append(s.Messages, store.Message{Role: msg.Role, Content: msg.Content, CreatedAt: msg.CreatedAt})
	}
	for _, r := range e.RawLog {
		s.Raw = append(s.Raw, store.RawEntry{Stage: r.Stage, Role: r.Role, Content: r.Content, CreatedAt: r.CreatedAt})
	}
	return s
}

// FromSession builds the document to store. Id and timestamps are left to the repository.
func (m *ChatMemoryMapper) FromSession(s *store.Session) *entity.ChatMemory {
	e := &entity.ChatMemory{
		UserId:    s.Key.UserID,
		ChatIndex: s.Key.Chat,
		Messages:  make([]entity.MemoryMessage, 0, len(s.Messages)),
		RawLog:    make([]entity.MemoryRawEntry, 0, len(s.Raw)),
		Version:   s.Version,
	}
	for _, msg := range s.Messages {
		e.Messages = append(e.Messages, entity.MemoryMessage{Role: msg.Role, Content: msg.Content, CreatedAt: msg.CreatedAt})
	}
	for _, r := range s.Raw {
		e.RawLog = append(e.RawLog, entity.MemoryRawEntry{Stage: r.Stage, Role: r.Role, Content: r.Content, CreatedAt: r.CreatedAt})
	}
	return e
}
