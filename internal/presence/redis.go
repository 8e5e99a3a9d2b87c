package presence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the Redis-backed presence cache. Expiry is handled by
// Redis itself; an expired key is indistinguishable from one that was
// never written.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	if addr == "" {
		return nil, errors.New("presence: empty redis addr")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisCache{client: client}, nil
}

// Set overwrites the entry for a robot and resets its TTL.
func (c *RedisCache) Set(ctx context.Context, robotID string, entry Entry, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return errors.New("presence: nil redis client")
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, Key(robotID), payload, ttl).Err()
}

// Get returns the entry for a robot, or ok=false when absent or expired.
func (c *RedisCache) Get(ctx context.Context, robotID string) (Entry, bool, error) {
	if c == nil || c.client == nil {
		return Entry{}, false, errors.New("presence: nil redis client")
	}
	raw, err := c.client.Get(ctx, Key(robotID)).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// Exists reports whether a non-expired entry is present.
func (c *RedisCache) Exists(ctx context.Context, robotID string) (bool, error) {
	if c == nil || c.client == nil {
		return false, errors.New("presence: nil redis client")
	}
	n, err := c.client.Exists(ctx, Key(robotID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes the entry. Used only when a robot is removed.
func (c *RedisCache) Delete(ctx context.Context, robotID string) error {
	if c == nil || c.client == nil {
		return errors.New("presence: nil redis client")
	}
	return c.client.Del(ctx, Key(robotID)).Err()
}

// Close releases the underlying connection.
func (c *RedisCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
