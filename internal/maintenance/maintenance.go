package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/seatwise/internal/cache"
	"github.com/smallbiznis/seatwise/internal/clock"
	"github.com/smallbiznis/seatwise/internal/config"
	obscontext "github.com/smallbiznis/seatwise/internal/observability/context"
	"github.com/smallbiznis/seatwise/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/seatwise/internal/observability/metrics"
	tsdomain "github.com/smallbiznis/seatwise/internal/tenantsync/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	JobPurgeTokens       = "purge_expired_tokens"
	JobPruneLoginHistory = "prune_login_history"
	JobPurgeSKUCache     = "purge_sku_cache"

	defaultRetention = 180 * 24 * time.Hour
	jobTimeout       = 5 * time.Minute
)

var ErrUnknownJob = errors.New("unknown_job")

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Config config.Config
	Repo   tsdomain.Repository
	Clock  clock.Clock
	SKUs   cache.SKUCache         `optional:"true"`
	Jobs   *obsmetrics.JobMetrics `optional:"true"`
}

type job struct {
	name     string
	schedule string
	run      func(ctx context.Context) (int64, error)
}

// Runner executes housekeeping jobs on a cron schedule.
type Runner struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      tsdomain.Repository
	clock     clock.Clock
	skus      cache.SKUCache
	metrics   *obsmetrics.JobMetrics
	retention time.Duration

	cron *cron.Cron
	jobs map[string]job
}

func New(p Params) (*Runner, error) {
	if p.DB == nil || p.Log == nil || p.Repo == nil || p.Clock == nil {
		return nil, errors.New("maintenance: missing dependency")
	}
	retention := p.Config.LoginHistoryRetention
	if retention <= 0 {
		retention = defaultRetention
	}

	r := &Runner{
		db:        p.DB,
		log:       p.Log.Named("maintenance"),
		repo:      p.Repo,
		clock:     p.Clock,
		skus:      p.SKUs,
		metrics:   p.Jobs,
		retention: retention,
		jobs:      map[string]job{},
	}
	cl := cronLogger{log: r.log.Sugar()}
	r.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	jobs := []job{
		{name: JobPurgeTokens, schedule: "@hourly", run: r.purgeTokens},
		{name: JobPruneLoginHistory, schedule: "@daily", run: r.pruneLogins},
	}
	if r.skus != nil {
		jobs = append(jobs, job{name: JobPurgeSKUCache, schedule: "@every 15m", run: r.purgeSKUCache})
	}
	for _, j := range jobs {
		if _, err := r.cron.AddFunc(j.schedule, func() { _ = r.Run(context.Background(), j.name) }); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", j.name, err)
		}
		r.jobs[j.name] = j
	}
	return r, nil
}

// Run executes one job immediately and records its outcome.
func (r *Runner) Run(ctx context.Context, name string) error {
	j, ok := r.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()
	ctx = obscontext.WithActor(ctx, "system", "maintenance")
	log := logger.WithContext(ctx, r.log).With(zap.String("job", name))

	start := r.clock.Now()
	affected, err := j.run(ctx)
	elapsed := r.clock.Now().Sub(start)
	r.metrics.RecordRun(name, elapsed, affected, err)
	if err != nil {
		log.Error("maintenance job failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return err
	}
	log.Info("maintenance job finished", zap.Int64("affected", affected), zap.Duration("elapsed", elapsed))
	return nil
}

func (r *Runner) Start() { r.cron.Start() }

// Stop halts scheduling and waits for running jobs until ctx ends.
func (r *Runner) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) purgeTokens(ctx context.Context) (int64, error) {
	return r.repo.PurgeExpiredTokens(ctx, r.db, r.clock.Now().UTC())
}

func (r *Runner) pruneLogins(ctx context.Context) (int64, error) {
	return r.repo.PruneLogins(ctx, r.db, r.clock.Now().UTC().Add(-r.retention))
}

func (r *Runner) purgeSKUCache(context.Context) (int64, error) {
	return int64(r.skus.Purge()), nil
}

type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
