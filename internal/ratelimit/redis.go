package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

const keyPrefix = "ratelimit:"

// hitScript increments the counter and starts its expiry on the first hit of
// a window. A key left without a TTL gets one on the next hit.
var hitScript = redis.NewScript(1, `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisStore shares counters between server replicas.
type RedisStore struct {
	pool *redis.Pool
	now  func() time.Time
}

func NewRedisStore(pool *redis.Pool) *RedisStore {
	return &RedisStore{pool: pool, now: time.Now}
}

func NewRedisPool(url string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     8,
		IdleTimeout: 4 * time.Minute,
		Dial: func() (redis.Conn, error) {
			return redis.DialURL(url)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

func (r *RedisStore) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis connection: %w", err)
	}
	defer conn.Close()

	values, err := redis.Int64s(hitScript.Do(conn, keyPrefix+key, window.Milliseconds()))
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis hit %s: %w", key, err)
	}
	if len(values) != 2 {
		return 0, time.Time{}, fmt.Errorf("redis hit %s: unexpected reply %v", key, values)
	}
	return values[0], r.now().Add(time.Duration(values[1]) * time.Millisecond), nil
}

// Ping checks that the pool can reach the server.
func (r *RedisStore) Ping(ctx context.Context) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Do("PING")
	return err
}
