package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Key identifies one conversation: a user and the chat index they opened.
type Key struct {
	UserID uuid.UUID `json:"user_id"`
	Chat   int       `json:"chat"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.UserID, k.Chat)
}

// Message is one entry of the user/assistant log.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// RawEntry is one message object exchanged with a model during a turn,
// including intermediate stage JSON, kept for replay and debugging.
type RawEntry struct {
	Stage     string    `json:"stage"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session represents the conversation state of one Key.
// Version is the optimistic concurrency token of the stored copy; zero means
// the session has never been persisted.
type Session struct {
	Key      Key        `json:"key"`
	Messages []Message  `json:"messages"`
	Raw      []RawEntry `json:"raw"`
	Version  int64      `json:"version"`
}

func NewSession(key Key) *Session {
	return &Session{Key: key}
}

// Clone returns a deep copy; slices are not shared with the receiver.
func (s *Session) Clone() *Session {
	c := &Session{Key: s.Key, Version: s.Version}
	c.Messages = append([]Message(nil), s.Messages...)
	c.Raw = append([]RawEntry(nil), s.Raw...)
	return c
}

// Recent returns at most limit trailing messages in chronological order.
func (s *Session) Recent(limit int) []Message {
	if limit <= 0 || len(s.Messages) <= limit {
		return append([]Message(nil), s.Messages...)
	}
	return append([]Message(nil), s.Messages[len(s.Messages)-limit:]...)
}

// AppendExchange adds exactly one user message followed by one assistant message.
func (s *Session) AppendExchange(question, answer string, at time.Time) {
	s.Messages = append(s.Messages,
		Message{Role: RoleUser, Content: question, CreatedAt: at},
		Message{Role: RoleAssistant, Content: answer, CreatedAt: at},
	)
}

func (s *Session) Record(stage, role, content string, at time.Time) {
	s.Raw = append(s.Raw, RawEntry{Stage: stage, Role: role, Content: content, CreatedAt: at})
}
