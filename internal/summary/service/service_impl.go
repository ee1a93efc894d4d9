package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/seatwise/internal/clock"
	"github.com/smallbiznis/seatwise/internal/observability/logger"
	"github.com/smallbiznis/seatwise/internal/observability/metrics"
	optdomain "github.com/smallbiznis/seatwise/internal/optimizer/domain"
	"github.com/smallbiznis/seatwise/internal/providers/llm"
	"github.com/smallbiznis/seatwise/internal/ratelimit"
	reportdomain "github.com/smallbiznis/seatwise/internal/report/domain"
	"github.com/smallbiznis/seatwise/internal/summary/domain"
	"github.com/smallbiznis/seatwise/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Limiter bounds summary generation per tenant and per report.
type Limiter interface {
	AllowTenant(ctx context.Context, tenantID string) (*ratelimit.Decision, error)
	TryLockReport(ctx context.Context, tenantID, reportID string) (string, bool, error)
	ReleaseReport(ctx context.Context, tenantID, reportID, token string) error
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Reports   reportdomain.Service
	Optimizer optdomain.Service
	LLM       llm.Provider
	Limiter   Limiter
	Clock     clock.Clock
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	reports   reportdomain.Service
	optimizer optdomain.Service
	llm       llm.Provider
	limiter   Limiter
	clock     clock.Clock
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("summary.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		reports:   p.Reports,
		optimizer: p.Optimizer,
		llm:       p.LLM,
		limiter:   p.Limiter,
		clock:     p.Clock,
		metrics:   p.Metrics,
	}
}

// Generate writes a new executive summary for the report, streaming the
// text to sink as it arrives, and stores the finished summary.
func (s *Service) Generate(ctx context.Context, reportID string, sink domain.Sink) (domain.ExecutiveSummary, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return domain.ExecutiveSummary{}, reportdomain.ErrInvalidTenant
	}
	report, err := s.reports.Get(ctx, reportID)
	if err != nil {
		return domain.ExecutiveSummary{}, err
	}

	log := logger.WithContext(ctx, s.log).With(zap.String("report_id", report.ID.String()))

	res, err := s.limiter.AllowTenant(ctx, tenantID)
	if err != nil {
		log.Warn("summary rate limiter unavailable", zap.Error(err))
	} else if !res.Allowed {
		s.metrics.RecordSummary(ctx, "rate_limited")
		s.metrics.RecordRateLimitDenied(ctx, "summary", "tenant_window")
		return domain.ExecutiveSummary{}, &domain.RateLimitError{RetryAfter: res.RetryAfter}
	}

	lockToken, locked, err := s.limiter.TryLockReport(ctx, tenantID, report.ID.String())
	if err != nil {
		log.Warn("summary lock unavailable", zap.Error(err))
	} else if !locked {
		return domain.ExecutiveSummary{}, domain.ErrInProgress
	} else {
		defer func() {
			if err := s.limiter.ReleaseReport(context.WithoutCancel(ctx), tenantID, report.ID.String(), lockToken); err != nil {
				log.Warn("release summary lock", zap.Error(err))
			}
		}()
	}

	summary, err := s.generate(ctx, report, sink)
	if err != nil {
		s.metrics.RecordSummary(ctx, "error")
		log.Error("summary generation failed", zap.Error(err))
		return domain.ExecutiveSummary{}, err
	}
	s.metrics.RecordSummary(ctx, "success")
	log.Info("summary generated",
		zap.String("summary_id", summary.ID.String()),
		zap.String("model", summary.Model),
		zap.Int("chars", len(summary.Content)),
	)
	return summary, nil
}

func (s *Service) generate(ctx context.Context, report reportdomain.Report, sink domain.Sink) (domain.ExecutiveSummary, error) {
	compare, err := s.optimizer.Compare(ctx, optdomain.CompareRequest{
		Users:         []optdomain.UserRecord(report.Users),
		CustomRuleSet: report.Rules(),
	})
	if err != nil {
		return domain.ExecutiveSummary{}, fmt.Errorf("compare strategies: %w", err)
	}
	stats := make(map[optdomain.Strategy]optdomain.StrategyStats, len(compare))
	for _, st := range compare {
		stats[st.Strategy] = st
	}

	if sink == nil {
		sink = func(string) error { return nil }
	}
	completion, err := s.llm.Stream(ctx, llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: buildPrompt(report, stats)}},
	}, sink)
	if err != nil {
		return domain.ExecutiveSummary{}, err
	}
	if strings.TrimSpace(completion.Content) == "" {
		return domain.ExecutiveSummary{}, llm.ErrEmptyResponse
	}

	model := completion.Model
	if model == "" {
		model = s.llm.Model()
	}
	summary := domain.ExecutiveSummary{
		ID:           s.genID.Generate(),
		ReportID:     report.ID,
		TenantID:     report.TenantID,
		Model:        model,
		Content:      completion.Content,
		Commitment:   report.Commitment,
		CostCurrent:  stats[optdomain.StrategyCurrent].NewCost,
		CostSecurity: stats[optdomain.StrategySecurity].NewCost,
		CostSaving:   stats[optdomain.StrategyCost].NewCost,
		CostBalanced: stats[optdomain.StrategyBalanced].NewCost,
		CreatedAt:    s.clock.Now().UTC(),
	}
	if custom, ok := stats[optdomain.StrategyCustom]; ok {
		summary.CostCustom = &custom.NewCost
	}

	// The client has already received the text; a cancelled request must not
	// drop it.
	if err := s.repo.Insert(context.WithoutCancel(ctx), s.db, &summary); err != nil {
		return domain.ExecutiveSummary{}, fmt.Errorf("insert summary: %w", err)
	}
	return summary, nil
}

func (s *Service) Latest(ctx context.Context, reportID string) (domain.ExecutiveSummary, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return domain.ExecutiveSummary{}, reportdomain.ErrInvalidTenant
	}
	id, err := snowflake.ParseString(strings.TrimSpace(reportID))
	if err != nil || id == 0 {
		return domain.ExecutiveSummary{}, reportdomain.ErrInvalidID
	}

	item, err := s.repo.Latest(ctx, s.db, tenantID, id)
	if err != nil {
		return domain.ExecutiveSummary{}, err
	}
	if item == nil {
		return domain.ExecutiveSummary{}, domain.ErrNotFound
	}
	return *item, nil
}
