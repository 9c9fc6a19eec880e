// Package session serializes turns that share a conversation.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"nutria-assistant-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker grants exclusive ownership of one conversation key.
// The returned unlock func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

var ErrLockTimeout = errors.New("timed out waiting for session lock")

type semaphore chan struct{}

type lockEntry struct {
	sem  semaphore
	refs int // holders plus waiters
}

// LocalLocker is an in-process per-key mutex whose acquire honours ctx.
// An entry lives only while someone holds or waits for its key.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*lockEntry)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	e := l.acquire(key)

	select {
	case <-e.sem:
	case <-ctx.Done():
		l.release(key, e)
		return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem <- struct{}{}
			l.release(key, e)
		})
	}, nil
}

func (l *LocalLocker) acquire(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.locks[key]
	if !ok {
		e = &lockEntry{sem: make(semaphore, 1)}
		e.sem <- struct{}{}
		l.locks[key] = e
	}
	e.refs++
	return e
}

func (l *LocalLocker) release(key string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// Len reports how many keys are currently held or awaited.
func (l *LocalLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisLocker extends LocalLocker across service instances with a
// SET NX PX lease per key. A lease outlives a crashed owner by at most ttl.
type RedisLocker struct {
	rdb     *redis.Client
	local   *LocalLocker
	logger  logger.ILogger
	release *redis.Script
	prefix  string
	ttl     time.Duration
	poll    time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration, log logger.ILogger) *RedisLocker {
	return &RedisLocker{
		rdb:     rdb,
		local:   NewLocalLocker(),
		logger:  log,
		release: redis.NewScript(releaseScript),
		prefix:  "nutria:session-lock:",
		ttl:     ttl,
		poll:    50 * time.Millisecond,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	unlockLocal, err := l.local.Lock(ctx, key)
	if err != nil {
		return nil, err
	}

	redisKey := l.prefix + key
	token := uuid.NewString()
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			unlockLocal()
			return nil, fmt.Errorf("acquire session lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			unlockLocal()
			return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The turn context may already be done; release on a short fresh one.
			relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := l.release.Run(relCtx, l.rdb, []string{redisKey}, token).Err(); err != nil {
				l.logger.Warn("SessionLock", "Failed to release redis lease, it expires with its TTL", map[string]interface{}{
					"key":   redisKey,
					"ttl":   l.ttl.String(),
					"error": err.Error(),
				})
			}
			unlockLocal()
		})
	}, nil
}
