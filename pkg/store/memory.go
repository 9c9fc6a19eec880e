package store

import (
	"context"
	"errors"
)

// ErrVersionConflict is returned by Save when the stored session changed
// since it was loaded.
var ErrVersionConflict = errors.New("session was modified concurrently")

// MemoryStore is the durable conversation log.
type MemoryStore interface {
	// Load returns the stored session, or a fresh unversioned one when absent.
	Load(ctx context.Context, key Key) (*Session, error)
	// Save replaces the stored document when its version still matches
	// s.Version, then advances s.Version.
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, key Key) error
}
