package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/seatwise/internal/config"
)

const (
	keySummaryTenant = "summary:tenant:%s"
	keySummaryLock   = "summary:lock:%s:%s"

	summaryLockTTL = 5 * time.Minute
)

// SummaryLimiter caps executive summary generations per tenant and keeps a
// report from streaming two summaries at once. Without Redis every call is
// allowed.
type SummaryLimiter struct {
	window *SlidingWindow
	mutex  *Mutex
	limit  int
	period time.Duration
}

func NewSummaryLimiter(cfg config.Config, client *redis.Client) *SummaryLimiter {
	if client == nil || cfg.SummaryRateLimit <= 0 || cfg.SummaryRateWindow <= 0 {
		return &SummaryLimiter{}
	}
	return &SummaryLimiter{
		window: NewSlidingWindow(client),
		mutex:  NewMutex(client, summaryLockTTL),
		limit:  cfg.SummaryRateLimit,
		period: cfg.SummaryRateWindow,
	}
}

func (l *SummaryLimiter) Enabled() bool {
	return l != nil && l.window != nil
}

// AllowTenant consumes one generation from the tenant's budget.
func (l *SummaryLimiter) AllowTenant(ctx context.Context, tenantID string) (*Decision, error) {
	if !l.Enabled() {
		return &Decision{Allowed: true}, nil
	}
	return l.window.Allow(ctx, fmt.Sprintf(keySummaryTenant, strings.TrimSpace(tenantID)), l.limit, l.period)
}

// TryLockReport claims the report for one generation. The returned token
// releases it.
func (l *SummaryLimiter) TryLockReport(ctx context.Context, tenantID, reportID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	lease, ok, err := l.mutex.Acquire(ctx, reportLockKey(tenantID, reportID))
	return lease.Token, ok, err
}

func (l *SummaryLimiter) ReleaseReport(ctx context.Context, tenantID, reportID, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.mutex.Release(ctx, Lease{Key: reportLockKey(tenantID, reportID), Token: token})
}

func reportLockKey(tenantID, reportID string) string {
	return fmt.Sprintf(keySummaryLock, strings.TrimSpace(tenantID), strings.TrimSpace(reportID))
}
