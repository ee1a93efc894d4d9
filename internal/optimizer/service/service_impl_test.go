package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/smallbiznis/seatwise/internal/catalog"
	"github.com/smallbiznis/seatwise/internal/config"
	"github.com/smallbiznis/seatwise/internal/optimizer/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newService(t *testing.T, threshold, maxUsers int) domain.Service {
	t.Helper()
	return New(Params{
		Config: config.Config{
			OptimizerParallelThreshold: threshold,
			OptimizerMaxUsers:          maxUsers,
		},
		Log:     zaptest.NewLogger(t),
		Catalog: catalog.NewStaticHolder(catalog.Default()),
	})
}

func roster(n int) []domain.UserRecord {
	users := make([]domain.UserRecord, n)
	for i := range users {
		dept := "Sales"
		licenses := []string{"SPE_E5"}
		usage := 2.0
		if i%3 == 0 {
			dept = "Security"
		}
		if i%4 == 0 {
			licenses = []string{"STANDARDPACK"}
			usage = 40
		}
		users[i] = domain.UserRecord{
			ID:         fmt.Sprintf("u-%d", i),
			UPN:        fmt.Sprintf("user%d@contoso.com", i),
			Department: dept,
			Licenses:   licenses,
			UsageGB:    usage,
			MaxGB:      50,
		}
	}
	return users
}

func TestAnalyzePricesUsersWithoutCost(t *testing.T) {
	svc := newService(t, 0, 0)

	resp, err := svc.Analyze(context.Background(), domain.AnalyzeRequest{
		Users:    []domain.UserRecord{{UPN: "a@contoso.com", Department: "Sales", Licenses: []string{"SPE_E5"}, UsageGB: 1, MaxGB: 100}},
		Strategy: domain.StrategyCost,
	})
	require.NoError(t, err)
	require.Len(t, resp.Users, 1)
	assert.InDelta(t, 57.0, resp.Stats.BaseCost, 0.001)
	assert.Less(t, resp.Stats.NewCost, resp.Stats.BaseCost)
	assert.NotEmpty(t, resp.Users[0].Reasons)
}

func TestAnalyzeParallelMatchesSequential(t *testing.T) {
	users := roster(1200)

	seq, err := newService(t, 0, 0).Analyze(context.Background(), domain.AnalyzeRequest{Users: users, Strategy: domain.StrategyBalanced})
	require.NoError(t, err)
	par, err := newService(t, 100, 0).Analyze(context.Background(), domain.AnalyzeRequest{Users: users, Strategy: domain.StrategyBalanced})
	require.NoError(t, err)

	require.Len(t, par.Users, len(seq.Users))
	for i := range seq.Users {
		assert.Equal(t, seq.Users[i].ID, par.Users[i].ID)
		assert.Equal(t, seq.Users[i].Licenses, par.Users[i].Licenses)
	}
	assert.Equal(t, seq.Stats, par.Stats)
}

func TestAnalyzeValidation(t *testing.T) {
	svc := newService(t, 0, 5)
	ctx := context.Background()

	_, err := svc.Analyze(ctx, domain.AnalyzeRequest{Strategy: domain.StrategyCost})
	assert.ErrorIs(t, err, domain.ErrEmptyRoster)

	_, err = svc.Analyze(ctx, domain.AnalyzeRequest{Users: roster(6), Strategy: domain.StrategyCost})
	assert.ErrorIs(t, err, domain.ErrRosterTooLarge)

	_, err = svc.Analyze(ctx, domain.AnalyzeRequest{Users: roster(1), Strategy: "cheapest"})
	assert.ErrorIs(t, err, domain.ErrInvalidStrategy)

	_, err = svc.Analyze(ctx, domain.AnalyzeRequest{Users: roster(1), Strategy: domain.StrategyCustom})
	assert.ErrorIs(t, err, domain.ErrMissingRuleSet)

	bad := domain.RuleSet{UsageThreshold: 400}
	_, err = svc.Analyze(ctx, domain.AnalyzeRequest{Users: roster(1), Strategy: domain.StrategyCustom, RuleSet: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidThreshold)
}

func TestCompareReturnsEveryStrategy(t *testing.T) {
	svc := newService(t, 0, 0)
	custom := domain.RuleSet{UsageThreshold: 20}

	stats, err := svc.Compare(context.Background(), domain.CompareRequest{Users: roster(12), CustomRuleSet: &custom})
	require.NoError(t, err)
	require.Len(t, stats, 5)

	want := []domain.Strategy{
		domain.StrategyCurrent,
		domain.StrategySecurity,
		domain.StrategyCost,
		domain.StrategyBalanced,
		domain.StrategyCustom,
	}
	for i, s := range want {
		assert.Equal(t, s, stats[i].Strategy)
		assert.InDelta(t, stats[0].BaseCost, stats[i].BaseCost, 0.001)
	}
	assert.Zero(t, stats[0].Delta)
	assert.Zero(t, stats[4].Delta)
	assert.Less(t, stats[2].Delta, 0.0)
}

func TestRuleSetForStrategy(t *testing.T) {
	svc := newService(t, 0, 0)

	rs, err := svc.RuleSet(domain.StrategyCustom)
	require.NoError(t, err)
	assert.False(t, rs.DowngradeTopTier.Enabled)

	rs, err = svc.RuleSet(domain.StrategySecurity)
	require.NoError(t, err)
	assert.True(t, rs.UpgradeToTopTier.Enabled)

	_, err = svc.RuleSet("nope")
	assert.Error(t, err)
}
