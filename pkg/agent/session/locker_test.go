package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nutria-assistant-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_SerializesSameKey(t *testing.T) {
	l := NewLocalLocker()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "u:1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}

func TestLocalLocker_DifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocalLocker()
	unlockA, err := l.Lock(context.Background(), "u:1")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := l.Lock(ctx, "u:2")
	require.NoError(t, err)
	unlockB()
}

func TestLocalLocker_HonoursContext(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "u:1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "u:1")
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	unlock() // second call is a no-op

	again, err := l.Lock(context.Background(), "u:1")
	require.NoError(t, err)
	again()
}

func TestLocalLocker_ForgetsReleasedKeys(t *testing.T) {
	l := NewLocalLocker()

	for i := 0; i < 10000; i++ {
		unlock, err := l.Lock(context.Background(), fmt.Sprintf("u:%d", i))
		require.NoError(t, err)
		unlock()
	}
	assert.Equal(t, 0, l.Len())

	held, err := l.Lock(context.Background(), "u:busy")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "u:busy")
	require.ErrorIs(t, err, ErrLockTimeout)
	assert.Equal(t, 1, l.Len(), "a timed out waiter must not drop the holder's entry")

	held()
	assert.Equal(t, 0, l.Len())
}

func TestLocalLocker_WaiterKeepsEntryAlive(t *testing.T) {
	l := NewLocalLocker()
	first, err := l.Lock(context.Background(), "u:1")
	require.NoError(t, err)

	acquired := make(chan func())
	go func() {
		unlock, err := l.Lock(context.Background(), "u:1")
		if assert.NoError(t, err) {
			acquired <- unlock
		}
	}()

	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		e, ok := l.locks["u:1"]
		return ok && e.refs == 2
	}, time.Second, time.Millisecond)

	first()
	second := <-acquired
	assert.Equal(t, 1, l.Len())
	second()
	assert.Equal(t, 0, l.Len())
}

func TestRedisLocker(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	a := NewRedisLocker(rdb, 5*time.Second, logger.NewNopLogger())
	b := NewRedisLocker(rdb, 5*time.Second, logger.NewNopLogger())
	key := "test:" + t.Name()

	unlock, err := a.Lock(context.Background(), key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = b.Lock(ctx, key)
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	unlockB, err := b.Lock(context.Background(), key)
	require.NoError(t, err)
	unlockB()
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(string, string, map[string]interface{}) {}
func (l *recordingLogger) Info(string, string, map[string]interface{})  {}
func (l *recordingLogger) Error(string, string, map[string]interface{}) {}
func (l *recordingLogger) Sync() error                                  { return nil }

func (l *recordingLogger) Warn(module, _ string, _ map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, module)
}

func TestRedisLocker_LogsFailedRelease(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)

	log := &recordingLogger{}
	l := NewRedisLocker(rdb, 2*time.Second, log)
	unlock, err := l.Lock(context.Background(), "test:"+t.Name())
	require.NoError(t, err)

	require.NoError(t, rdb.Close())
	unlock()

	assert.Equal(t, []string{"SessionLock"}, log.warns)
	assert.Zero(t, l.local.Len(), "the local lock is released even when redis is gone")
}
