package dialog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/gomodule/redigo/redis"

	"github.com/thebtf/notekeeper/pkg/models"
)

// DefaultRedisPrefix namespaces dialog keys.
const DefaultRedisPrefix = "notekeeper:dialog:"

// RedisStore keeps dialog state in Redis so it survives restarts of a single
// bot process. Keys never expire.
type RedisStore struct {
	pool   *redis.Pool
	prefix string
}

// NewRedisStore creates a RedisStore dialing addr lazily.
func NewRedisStore(addr string) *RedisStore {
	pool := &redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 240 * time.Second,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr,
				redis.DialConnectTimeout(5*time.Second),
				redis.DialReadTimeout(5*time.Second),
				redis.DialWriteTimeout(5*time.Second),
			)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	return NewRedisStoreWithPool(pool, DefaultRedisPrefix)
}

// NewRedisStoreWithPool wraps an existing pool.
func NewRedisStoreWithPool(pool *redis.Pool, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{pool: pool, prefix: prefix}
}

func (r *RedisStore) key(owner models.OwnerID) string {
	return r.prefix + strconv.FormatInt(int64(owner), 10)
}

func (r *RedisStore) do(ctx context.Context, cmd string, args ...interface{}) (interface{}, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis conn: %w", err)
	}
	defer conn.Close()
	return redis.DoContext(conn, ctx, cmd, args...)
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, owner models.OwnerID) (State, error) {
	data, err := redis.Bytes(r.do(ctx, "GET", r.key(owner)))
	if errors.Is(err, redis.ErrNil) {
		return IdleState(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("get dialog state: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("decode dialog state: %w", err)
	}
	return s, nil
}

// Set implements Store.
func (r *RedisStore) Set(ctx context.Context, owner models.OwnerID, s State) error {
	if s.IsIdle() {
		return r.Clear(ctx, owner)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode dialog state: %w", err)
	}
	if _, err := r.do(ctx, "SET", r.key(owner), data); err != nil {
		return fmt.Errorf("set dialog state: %w", err)
	}
	return nil
}

// Clear implements Store.
func (r *RedisStore) Clear(ctx context.Context, owner models.OwnerID) error {
	if _, err := r.do(ctx, "DEL", r.key(owner)); err != nil {
		return fmt.Errorf("clear dialog state: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	_, err := r.do(ctx, "PING")
	return err
}

// Close releases pooled connections.
func (r *RedisStore) Close() error {
	return r.pool.Close()
}
