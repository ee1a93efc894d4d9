package ratelimit

import (
	"context"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Mutex is a single-holder lock in Redis. A lease expires after ttl, and only
// the holder's token can release it.
type Mutex struct {
	client  *redis.Client
	release *redis.Script
	ttl     time.Duration
}

type Lease struct {
	Key   string
	Token string
}

func NewMutex(client *redis.Client, ttl time.Duration) *Mutex {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &Mutex{
		client:  client,
		release: redis.NewScript(releaseScript),
		ttl:     ttl,
	}
}

// Acquire reports false when another holder has the key.
func (m *Mutex) Acquire(ctx context.Context, key string) (Lease, bool, error) {
	if m == nil {
		return Lease{}, false, ErrNotConfigured
	}
	lease := Lease{Key: key, Token: uuid.NewString()}
	ok, err := m.client.SetNX(ctx, key, lease.Token, m.ttl).Result()
	if err != nil || !ok {
		return Lease{}, false, err
	}
	return lease, true, nil
}

func (m *Mutex) Release(ctx context.Context, lease Lease) error {
	if m == nil || lease.Key == "" || lease.Token == "" {
		return nil
	}
	return m.release.Run(ctx, m.client, []string{lease.Key}, lease.Token).Err()
}
