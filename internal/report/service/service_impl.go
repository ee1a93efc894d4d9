package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/seatwise/internal/catalog"
	"github.com/smallbiznis/seatwise/internal/clock"
	"github.com/smallbiznis/seatwise/internal/observability/logger"
	optdomain "github.com/smallbiznis/seatwise/internal/optimizer/domain"
	"github.com/smallbiznis/seatwise/internal/report/domain"
	"github.com/smallbiznis/seatwise/pkg/db/pagination"
	"github.com/smallbiznis/seatwise/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Optimizer optdomain.Service
	Catalog   *catalog.Holder
	Clock     clock.Clock
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	optimizer optdomain.Service
	catalog   *catalog.Holder
	clock     clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("report.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		optimizer: p.Optimizer,
		catalog:   p.Catalog,
		clock:     p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateReportRequest) (domain.Report, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return domain.Report{}, domain.ErrInvalidTenant
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > domain.MaxNameLength {
		return domain.Report{}, domain.ErrInvalidName
	}
	strategy, err := optdomain.ParseStrategy(req.Strategy)
	if err != nil {
		return domain.Report{}, err
	}
	commitment, err := optdomain.ParseCommitment(req.Commitment)
	if err != nil {
		return domain.Report{}, err
	}
	if len(req.Users) == 0 {
		return domain.Report{}, optdomain.ErrEmptyRoster
	}
	if req.CustomRules != nil {
		if err := req.CustomRules.Validate(); err != nil {
			return domain.Report{}, err
		}
	}
	if strategy == optdomain.StrategyCustom && req.CustomRules == nil {
		return domain.Report{}, optdomain.ErrMissingRuleSet
	}
	source := req.Source
	if source == "" {
		source = domain.SourceUpload
	}

	cat := s.catalog.Snapshot()
	users := make([]optdomain.UserRecord, len(req.Users))
	baseCost := 0.0
	for i, u := range req.Users {
		if u.Cost == 0 && len(u.Licenses) > 0 {
			u.Cost = cat.ComputeCost(cat.Normalize(u.Licenses))
		}
		if u.Status == "" {
			u.Status = optdomain.StatusFromUsage(u.UsageGB, u.MaxGB)
		}
		baseCost += u.Cost
		users[i] = u
	}

	now := s.clock.Now().UTC()
	report := domain.Report{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		Name:        name,
		Strategy:    strategy,
		Commitment:  commitment,
		Source:      source,
		UserCount:   len(users),
		BaseCost:    baseCost,
		Users:       datatypes.JSONSlice[optdomain.UserRecord](users),
		CustomRules: datatypes.NewJSONType(req.CustomRules),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, &report); err != nil {
		return domain.Report{}, fmt.Errorf("insert report: %w", err)
	}

	logger.WithContext(ctx, s.log).Info("report created",
		zap.String("report_id", report.ID.String()),
		zap.String("strategy", string(strategy)),
		zap.Int("users", report.UserCount),
	)
	return report, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Report, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return domain.Report{}, domain.ErrInvalidTenant
	}
	reportID, err := parseID(id)
	if err != nil {
		return domain.Report{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, tenantID, reportID)
	if err != nil {
		return domain.Report{}, err
	}
	if item == nil {
		return domain.Report{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListReportsRequest) (domain.ListReportsResponse, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return domain.ListReportsResponse{}, domain.ErrInvalidTenant
	}

	page := pagination.Pagination{PageToken: strings.TrimSpace(req.PageToken), PageSize: req.PageSize}
	items, err := s.repo.List(ctx, s.db, tenantID, page)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPageToken) {
			return domain.ListReportsResponse{}, domain.ErrInvalidPageToken
		}
		return domain.ListReportsResponse{}, err
	}

	items, info := pagination.BuildCursorPageInfo(items, page.Size(), func(r *domain.Report) pagination.Cursor {
		return pagination.Cursor{ID: r.ID.Int64(), CreatedAt: r.CreatedAt}
	})

	reports := make([]domain.Report, 0, len(items))
	for _, item := range items {
		if item != nil {
			reports = append(reports, *item)
		}
	}
	return domain.ListReportsResponse{PageInfo: info, Reports: reports}, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return domain.ErrInvalidTenant
	}
	reportID, err := parseID(id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, s.db, tenantID, reportID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	logger.WithContext(ctx, s.log).Info("report deleted", zap.String("report_id", reportID.String()))
	return nil
}

// Analysis runs a saved roster through the optimizer. An empty strategy
// uses the one stored on the report.
func (s *Service) Analysis(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResponse, error) {
	report, err := s.Get(ctx, req.ReportID)
	if err != nil {
		return domain.AnalysisResponse{}, err
	}

	strategy := report.Strategy
	if strings.TrimSpace(req.Strategy) != "" {
		if strategy, err = optdomain.ParseStrategy(req.Strategy); err != nil {
			return domain.AnalysisResponse{}, err
		}
	}

	rules := report.Rules()
	if strategy == optdomain.StrategyCustom && rules == nil {
		if rules, err = s.customDefaults(); err != nil {
			return domain.AnalysisResponse{}, err
		}
	}

	users := []optdomain.UserRecord(report.Users)
	resp, err := s.optimizer.Analyze(ctx, optdomain.AnalyzeRequest{
		Users:    users,
		Strategy: strategy,
		RuleSet:  rules,
	})
	if err != nil {
		return domain.AnalysisResponse{}, err
	}
	compare, err := s.optimizer.Compare(ctx, optdomain.CompareRequest{Users: users, CustomRuleSet: report.Rules()})
	if err != nil {
		return domain.AnalysisResponse{}, err
	}

	report.Users = nil
	return domain.AnalysisResponse{
		Report:     report,
		Strategy:   strategy,
		Commitment: report.Commitment,
		Users:      resp.Users,
		Stats:      resp.Stats,
		Compare:    compare,
	}, nil
}

func (s *Service) customDefaults() (*optdomain.RuleSet, error) {
	rs, err := s.optimizer.RuleSet(optdomain.StrategyCustom)
	if err != nil {
		return nil, err
	}
	return &rs, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
