package service

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/seatwise/internal/catalog"
	"github.com/smallbiznis/seatwise/internal/config"
	"github.com/smallbiznis/seatwise/internal/observability/logger"
	"github.com/smallbiznis/seatwise/internal/observability/metrics"
	"github.com/smallbiznis/seatwise/internal/optimizer/domain"
	"github.com/smallbiznis/seatwise/internal/optimizer/engine"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minChunkSize = 250

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Catalog *catalog.Holder
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log               *zap.Logger
	catalog           *catalog.Holder
	metrics           *metrics.Metrics
	tracer            trace.Tracer
	parallelThreshold int
	maxUsers          int
}

func New(p Params) domain.Service {
	return &Service{
		log:               p.Log.Named("optimizer.service"),
		catalog:           p.Catalog,
		metrics:           p.Metrics,
		tracer:            otel.Tracer("seatwise/optimizer"),
		parallelThreshold: p.Config.OptimizerParallelThreshold,
		maxUsers:          p.Config.OptimizerMaxUsers,
	}
}

func (s *Service) Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "optimizer.Analyze", trace.WithAttributes(
		attribute.String("strategy", string(req.Strategy)),
		attribute.Int("users", len(req.Users)),
	))
	defer span.End()

	if err := s.validate(req.Strategy, req.Users, req.RuleSet); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := time.Now()
	eng := engine.New(s.catalog.Snapshot())
	users := eng.Price(req.Users)

	analyzed, err := s.analyzeAll(ctx, eng, users, req.Strategy, req.RuleSet)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		return nil, err
	}
	stats := engine.Summarize(req.Strategy, analyzed)
	s.record(ctx, req.Strategy, analyzed, time.Since(start))

	logger.WithContext(ctx, s.log).Info("roster analyzed",
		zap.String("strategy", string(req.Strategy)),
		zap.Int("users", len(users)),
		zap.Int("affected", stats.AffectedCount),
		zap.Float64("delta", stats.Delta),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &domain.AnalyzeResponse{Users: analyzed, Stats: stats}, nil
}

func (s *Service) Compare(ctx context.Context, req domain.CompareRequest) ([]domain.StrategyStats, error) {
	ctx, span := s.tracer.Start(ctx, "optimizer.Compare", trace.WithAttributes(
		attribute.Int("users", len(req.Users)),
	))
	defer span.End()

	if err := s.validate(domain.StrategyCurrent, req.Users, nil); err != nil {
		return nil, err
	}
	if req.CustomRuleSet != nil {
		if err := req.CustomRuleSet.Validate(); err != nil {
			return nil, err
		}
	}

	eng := engine.New(s.catalog.Snapshot())
	users := eng.Price(req.Users)

	strategies := []domain.Strategy{
		domain.StrategyCurrent,
		domain.StrategySecurity,
		domain.StrategyCost,
		domain.StrategyBalanced,
	}
	if req.CustomRuleSet != nil {
		strategies = append(strategies, domain.StrategyCustom)
	}

	out := make([]domain.StrategyStats, len(strategies))
	g, gctx := errgroup.WithContext(ctx)
	for i, strategy := range strategies {
		g.Go(func() error {
			analyzed, err := s.analyzeAll(gctx, eng, users, strategy, req.CustomRuleSet)
			if err != nil {
				return err
			}
			out[i] = engine.Summarize(strategy, analyzed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

func (s *Service) RuleSet(strategy domain.Strategy) (domain.RuleSet, error) {
	if strategy == domain.StrategyCustom {
		return engine.DefaultCustomRuleSet(), nil
	}
	return engine.ResolveRuleSet(strategy, nil)
}

func (s *Service) validate(strategy domain.Strategy, users []domain.UserRecord, rules *domain.RuleSet) error {
	if _, err := domain.ParseStrategy(string(strategy)); err != nil {
		return err
	}
	if len(users) == 0 {
		return domain.ErrEmptyRoster
	}
	if s.maxUsers > 0 && len(users) > s.maxUsers {
		return fmt.Errorf("%w: %d users exceeds %d", domain.ErrRosterTooLarge, len(users), s.maxUsers)
	}
	if strategy == domain.StrategyCustom {
		if rules == nil {
			return domain.ErrMissingRuleSet
		}
		if err := rules.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// analyzeAll splits large rosters into contiguous chunks analyzed in
// parallel. Output order matches input order.
func (s *Service) analyzeAll(ctx context.Context, eng *engine.Engine, users []domain.UserRecord, strategy domain.Strategy, custom *domain.RuleSet) ([]domain.AnalyzedUser, error) {
	if s.parallelThreshold <= 0 || len(users) <= s.parallelThreshold {
		return eng.AnalyzeAll(users, strategy, custom)
	}

	chunk := len(users) / 8
	if chunk < minChunkSize {
		chunk = minChunkSize
	}

	out := make([]domain.AnalyzedUser, len(users))
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(users); start += chunk {
		end := min(start+chunk, len(users))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			part, err := eng.AnalyzeAll(users[start:end], strategy, custom)
			if err != nil {
				return err
			}
			copy(out[start:end], part)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) record(ctx context.Context, strategy domain.Strategy, analyzed []domain.AnalyzedUser, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordAnalysis(ctx, string(strategy), len(analyzed), elapsed)
	counts := map[domain.ReasonKind]int{}
	for _, u := range analyzed {
		for _, r := range u.Reasons {
			counts[r.Kind]++
		}
	}
	for kind, n := range counts {
		s.metrics.RecordRecommendations(ctx, string(strategy), string(kind), n)
	}
}
