package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	redis "github.com/redis/go-redis/v9"
)

// slidingWindowScript admits a request while fewer than limit requests were
// admitted in the trailing window. Members are scored by admission time in
// milliseconds.
const slidingWindowScript = `
local window = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])

local t = redis.call("TIME")
local now = (t[1] * 1000) + math.floor(t[2] / 1000)

redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", now - window)
local count = redis.call("ZCARD", KEYS[1])

local allowed = 0
if count < limit then
  redis.call("ZADD", KEYS[1], now, ARGV[3])
  count = count + 1
  allowed = 1
end
redis.call("PEXPIRE", KEYS[1], window)

local reset = now + window
local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
if oldest[2] then
  reset = tonumber(oldest[2]) + window
end
return {allowed, limit - count, now, reset}
`

var (
	ErrNotConfigured = errors.New("rate_limiter_not_configured")
	ErrInvalidLimit  = errors.New("invalid_rate_limit")
)

// SlidingWindow counts admissions per key over a trailing window in a Redis
// sorted set.
type SlidingWindow struct {
	client *redis.Client
	script *redis.Script
}

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

func NewSlidingWindow(client *redis.Client) *SlidingWindow {
	if client == nil {
		return nil
	}
	return &SlidingWindow{
		client: client,
		script: redis.NewScript(slidingWindowScript),
	}
}

func (w *SlidingWindow) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Decision, error) {
	if w == nil || w.client == nil {
		return &Decision{}, ErrNotConfigured
	}
	if key == "" || limit <= 0 || window < time.Millisecond {
		return &Decision{}, ErrInvalidLimit
	}

	res, err := w.script.Run(ctx, w.client, []string{key},
		window.Milliseconds(),
		limit,
		ulid.Make().String(),
	).Int64Slice()
	if err != nil {
		return &Decision{}, err
	}
	return decide(res, limit)
}

func decide(res []int64, limit int) (*Decision, error) {
	if len(res) < 4 {
		return &Decision{}, errors.New("unexpected rate limit reply: " + strconv.Itoa(len(res)) + " values")
	}
	now, reset := time.UnixMilli(res[2]), time.UnixMilli(res[3])
	d := &Decision{
		Allowed:   res[0] == 1,
		Limit:     limit,
		Remaining: max(int(res[1]), 0),
		ResetAt:   reset,
	}
	if !d.Allowed && reset.After(now) {
		d.RetryAfter = reset.Sub(now)
	}
	return d, nil
}
