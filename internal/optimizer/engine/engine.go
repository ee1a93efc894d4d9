package engine

import (
	"slices"

	"github.com/smallbiznis/seatwise/internal/catalog"
	"github.com/smallbiznis/seatwise/internal/optimizer/domain"
)

// Engine applies rule sets against one catalog snapshot. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	catalog *catalog.Catalog
}

func New(cat *catalog.Catalog) *Engine {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Engine{catalog: cat}
}

func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Analyze folds the rule pipeline over one user's licenses. It never fails
// and never mutates user.
func (e *Engine) Analyze(user domain.UserRecord, rules domain.RuleSet) domain.AnalysisResult {
	set := newLicenseSet(e.catalog.Normalize(user.Licenses))
	ctx := userContext{
		department: user.Department,
		ratio:      user.UsageRatio(),
		rules:      rules,
		catalog:    e.catalog,
	}

	reasons := []domain.Reason{}
	for _, apply := range pipeline {
		var fired []domain.Reason
		set, fired = apply(set, ctx)
		reasons = append(reasons, fired...)
	}

	licenses := e.catalog.Normalize(set.list())
	return domain.AnalysisResult{
		Licenses: licenses,
		Cost:     e.catalog.ComputeCost(licenses),
		Reasons:  reasons,
	}
}

// AnalyzeAll analyzes every user under strategy. Current returns normalized
// licenses with the supplied cost and no reasons. Other strategies price the
// original licenses from the catalog, so an unchanged user has a zero delta.
func (e *Engine) AnalyzeAll(users []domain.UserRecord, strategy domain.Strategy, custom *domain.RuleSet) ([]domain.AnalyzedUser, error) {
	if strategy == domain.StrategyCurrent {
		out := make([]domain.AnalyzedUser, len(users))
		for i, u := range users {
			out[i] = e.current(u)
		}
		return out, nil
	}

	rules, err := ResolveRuleSet(strategy, custom)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AnalyzedUser, len(users))
	for i, u := range users {
		out[i] = e.analyzed(u, rules)
	}
	return out, nil
}

func (e *Engine) current(u domain.UserRecord) domain.AnalyzedUser {
	normalized := e.catalog.Normalize(u.Licenses)
	rec := u
	rec.Licenses = normalized
	return domain.AnalyzedUser{
		UserRecord:       rec,
		Reasons:          []domain.Reason{},
		OriginalLicenses: slices.Clone(normalized),
		OriginalCost:     u.Cost,
	}
}

func (e *Engine) analyzed(u domain.UserRecord, rules domain.RuleSet) domain.AnalyzedUser {
	original := e.catalog.Normalize(u.Licenses)
	res := e.Analyze(u, rules)

	rec := u
	rec.Licenses = res.Licenses
	rec.Cost = res.Cost
	return domain.AnalyzedUser{
		UserRecord:       rec,
		Reasons:          res.Reasons,
		OriginalLicenses: original,
		OriginalCost:     e.catalog.ComputeCost(original),
		Changed:          !slices.Equal(original, res.Licenses),
	}
}

// ComputeStats analyzes users under strategy and aggregates the outcome.
func (e *Engine) ComputeStats(users []domain.UserRecord, strategy domain.Strategy, custom *domain.RuleSet) (domain.StrategyStats, error) {
	analyzed, err := e.AnalyzeAll(users, strategy, custom)
	if err != nil {
		return domain.StrategyStats{}, err
	}
	return Summarize(strategy, analyzed), nil
}

// CompareStrategies computes stats for every named strategy, plus custom
// when supplied.
func (e *Engine) CompareStrategies(users []domain.UserRecord, custom *domain.RuleSet) []domain.StrategyStats {
	strategies := []domain.Strategy{
		domain.StrategyCurrent,
		domain.StrategySecurity,
		domain.StrategyCost,
		domain.StrategyBalanced,
	}
	if custom != nil {
		strategies = append(strategies, domain.StrategyCustom)
	}

	out := make([]domain.StrategyStats, 0, len(strategies))
	for _, s := range strategies {
		// Named strategies and a non-nil custom set always resolve.
		stats, _ := e.ComputeStats(users, s, custom)
		out = append(out, stats)
	}
	return out
}

// Summarize aggregates analyzed users. Upgrade and downgrade counts tally
// reasons by kind; affected counts users whose normalized licenses changed.
func Summarize(strategy domain.Strategy, analyzed []domain.AnalyzedUser) domain.StrategyStats {
	stats := domain.StrategyStats{Strategy: strategy}
	for _, u := range analyzed {
		stats.BaseCost += u.OriginalCost
		stats.NewCost += u.Cost
		if u.Changed {
			stats.AffectedCount++
		}
		for _, r := range u.Reasons {
			switch {
			case r.Kind == domain.ReasonUpgrade:
				stats.UpgradeCount++
			case r.Kind.Reduces():
				stats.DowngradeCount++
			}
		}
	}
	stats.Delta = stats.NewCost - stats.BaseCost
	return stats
}

// Price fills in the monthly cost of users that arrive without one and
// derives a missing mailbox status. It returns a new slice.
func (e *Engine) Price(users []domain.UserRecord) []domain.UserRecord {
	out := make([]domain.UserRecord, len(users))
	for i, u := range users {
		if u.Cost == 0 && len(u.Licenses) > 0 {
			u.Cost = e.catalog.ComputeCost(e.catalog.Normalize(u.Licenses))
		}
		if u.Status == "" {
			u.Status = domain.StatusFromUsage(u.UsageGB, u.MaxGB)
		}
		out[i] = u
	}
	return out
}
