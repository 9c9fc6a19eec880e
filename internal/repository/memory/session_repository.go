package memory

import (
	"time"

	"nutria-assistant-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository is the turn-scoped working set of active sessions.
// It is not durable: the pipeline evicts an entry once the turn persisted.
// Get hands out clones so a cached session is never mutated in place.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SessionRepository{
		cache: cache.New(ttl, 2*ttl),
	}
}

func (r *SessionRepository) Save(session *store.Session) {
	r.cache.Set(session.Key.String(), session.Clone(), cache.DefaultExpiration)
}

func (r *SessionRepository) Get(key store.Key) (*store.Session, bool) {
	if x, found := r.cache.Get(key.String()); found {
		return x.(*store.Session).Clone(), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(key store.Key) {
	r.cache.Delete(key.String())
}

func (r *SessionRepository) Len() int {
	return r.cache.ItemCount()
}
