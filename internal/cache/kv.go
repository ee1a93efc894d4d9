package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// KV holds short-lived string values shared across instances, such as
// OAuth state. Take reads and deletes in one step.
type KV interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Take(ctx context.Context, key string) (string, bool, error)
}

type memoryKV struct {
	items Cache[string, string]
}

// NewMemoryKV keeps values in process. Suitable for a single instance.
func NewMemoryKV() KV {
	return &memoryKV{items: NewTTLCache[string, string]()}
}

func (m *memoryKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.items.Set(key, value, ttl)
	return nil
}

func (m *memoryKV) Take(_ context.Context, key string) (string, bool, error) {
	v, ok := m.items.Get(key)
	if ok {
		m.items.Delete(key)
	}
	return v, ok, nil
}

type redisKV struct {
	client *redis.Client
	prefix string
}

func NewRedisKV(client *redis.Client, prefix string) KV {
	return &redisKV{client: client, prefix: strings.TrimSuffix(prefix, ":") + ":"}
}

func (r *redisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}

func (r *redisKV) Take(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.GetDel(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
