package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis answers the hit script the way a server running it would.
type fakeRedis struct {
	mu       sync.Mutex
	counts   map[string]int64
	expires  map[string]time.Time
	now      time.Time
	fail     error
	commands []string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		counts:  make(map[string]int64),
		expires: make(map[string]time.Time),
		now:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeRedis) pool() *redis.Pool {
	return &redis.Pool{
		Dial: func() (redis.Conn, error) { return f, nil },
	}
}

func (f *fakeRedis) Close() error { return nil }
func (f *fakeRedis) Err() error   { return nil }

func (f *fakeRedis) Send(string, ...interface{}) error { return nil }
func (f *fakeRedis) Flush() error                      { return nil }
func (f *fakeRedis) Receive() (interface{}, error)     { return nil, nil }

func (f *fakeRedis) Do(cmd string, args ...interface{}) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cmd == "" {
		return nil, nil
	}
	f.commands = append(f.commands, cmd)
	if f.fail != nil {
		return nil, f.fail
	}

	switch cmd {
	case "PING":
		return "PONG", nil
	case "EVALSHA":
		key := args[2].(string)
		windowMs := args[3].(int64)
		if exp, ok := f.expires[key]; ok && !f.now.Before(exp) {
			delete(f.counts, key)
			delete(f.expires, key)
		}
		f.counts[key]++
		if f.counts[key] == 1 {
			f.expires[key] = f.now.Add(time.Duration(windowMs) * time.Millisecond)
		}
		ttl := f.expires[key].Sub(f.now).Milliseconds()
		return []interface{}{f.counts[key], ttl}, nil
	}
	return nil, fmt.Errorf("unexpected command %s", cmd)
}

func TestRedisStoreHit(t *testing.T) {
	fake := newFakeRedis()
	store := NewRedisStore(fake.pool())
	store.now = func() time.Time { return fake.now }
	ctx := context.Background()

	count, resetAt, err := store.Hit(ctx, "u1:GET:/api/folders", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, fake.now.Add(time.Minute), resetAt)

	fake.now = fake.now.Add(15 * time.Second)
	count, resetAt, err = store.Hit(ctx, "u1:GET:/api/folders", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, fake.now.Add(45*time.Second), resetAt)

	_, ok := fake.counts[keyPrefix+"u1:GET:/api/folders"]
	assert.True(t, ok, "keys are namespaced")
	assert.Contains(t, fake.commands, "EVALSHA")
}

func TestRedisStoreWindowExpires(t *testing.T) {
	fake := newFakeRedis()
	store := NewRedisStore(fake.pool())
	store.now = func() time.Time { return fake.now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := store.Hit(ctx, "k", time.Second)
		require.NoError(t, err)
	}
	fake.now = fake.now.Add(2 * time.Second)

	count, _, err := store.Hit(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRedisStoreErrors(t *testing.T) {
	fake := newFakeRedis()
	fake.fail = errors.New("connection refused")
	store := NewRedisStore(fake.pool())

	_, _, err := store.Hit(context.Background(), "k", time.Minute)
	assert.ErrorIs(t, err, fake.fail)
	assert.Error(t, store.Ping(context.Background()))
}

func TestRedisStoreWithLimiter(t *testing.T) {
	fake := newFakeRedis()
	limiter := NewLimiter(NewRedisStore(fake.pool()), time.Minute, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, "u1", "GET", "/api/files")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err := limiter.Allow(ctx, "u1", "GET", "/api/files")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}
