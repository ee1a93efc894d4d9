package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/seatwise/internal/catalog"
	"github.com/smallbiznis/seatwise/internal/clock"
	"github.com/smallbiznis/seatwise/internal/config"
	optdomain "github.com/smallbiznis/seatwise/internal/optimizer/domain"
	optservice "github.com/smallbiznis/seatwise/internal/optimizer/service"
	"github.com/smallbiznis/seatwise/internal/report/domain"
	"github.com/smallbiznis/seatwise/internal/report/repository"
	"github.com/smallbiznis/seatwise/pkg/db/dbtest"
	"github.com/smallbiznis/seatwise/pkg/tenantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	clock *clock.FakeClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	conn := dbtest.Open(t)
	log := zaptest.NewLogger(t)
	holder := catalog.NewStaticHolder(catalog.Default())
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    conn,
		Log:   log,
		GenID: node,
		Repo:  repository.Provide(),
		Optimizer: optservice.New(optservice.Params{
			Config:  config.Config{},
			Log:     log,
			Catalog: holder,
		}),
		Catalog: holder,
		Clock:   fake,
	})
	return fixture{svc: svc, db: conn, clock: fake}
}

func tenant(id string) context.Context {
	return tenantctx.WithTenantID(context.Background(), id)
}

func sampleUsers() []optdomain.UserRecord {
	return []optdomain.UserRecord{
		{ID: "1", UPN: "alex@contoso.com", Department: "Engineering", Licenses: []string{"SPE_E5", "VISIOCLIENT"}, UsageGB: 45, MaxGB: 100},
		{ID: "2", UPN: "emily@contoso.com", Department: "HR", Licenses: []string{"SPE_E5"}, UsageGB: 2, MaxGB: 100},
	}
}

func TestCreateAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := tenant("contoso")

	created, err := f.svc.Create(ctx, domain.CreateReportRequest{
		Name:     "  Q3 review ",
		Strategy: "balanced",
		Users:    sampleUsers(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Q3 review", created.Name)
	assert.Equal(t, optdomain.CommitmentMonthly, created.Commitment)
	assert.Equal(t, domain.SourceUpload, created.Source)
	assert.Equal(t, 2, created.UserCount)
	assert.InDelta(t, 129.0, created.BaseCost, 0.001)

	got, err := f.svc.Get(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	require.Len(t, got.Users, 2)
	assert.Equal(t, "alex@contoso.com", got.Users[0].UPN)
	assert.Nil(t, got.Rules())

	_, err = f.svc.Get(tenant("fabrikam"), created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := tenant("contoso")

	_, err := f.svc.Create(context.Background(), domain.CreateReportRequest{Name: "x", Strategy: "cost", Users: sampleUsers()})
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)

	_, err = f.svc.Create(ctx, domain.CreateReportRequest{Name: " ", Strategy: "cost", Users: sampleUsers()})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = f.svc.Create(ctx, domain.CreateReportRequest{Name: "x", Strategy: "fastest", Users: sampleUsers()})
	assert.ErrorIs(t, err, optdomain.ErrInvalidStrategy)

	_, err = f.svc.Create(ctx, domain.CreateReportRequest{Name: "x", Strategy: "cost", Commitment: "weekly", Users: sampleUsers()})
	assert.ErrorIs(t, err, optdomain.ErrInvalidCommitment)

	_, err = f.svc.Create(ctx, domain.CreateReportRequest{Name: "x", Strategy: "cost"})
	assert.ErrorIs(t, err, optdomain.ErrEmptyRoster)

	_, err = f.svc.Create(ctx, domain.CreateReportRequest{Name: "x", Strategy: "custom", Users: sampleUsers()})
	assert.ErrorIs(t, err, optdomain.ErrMissingRuleSet)
}

func TestListNewestFirstWithPaging(t *testing.T) {
	f := newFixture(t)
	ctx := tenant("contoso")

	for i := range 3 {
		_, err := f.svc.Create(ctx, domain.CreateReportRequest{
			Name:     fmt.Sprintf("report %d", i),
			Strategy: "cost",
			Users:    sampleUsers(),
		})
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	first, err := f.svc.List(ctx, domain.ListReportsRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Reports, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "report 2", first.Reports[0].Name)
	assert.Equal(t, "report 1", first.Reports[1].Name)
	assert.Empty(t, first.Reports[0].Users)

	second, err := f.svc.List(ctx, domain.ListReportsRequest{PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Reports, 1)
	assert.Equal(t, "report 0", second.Reports[0].Name)
	assert.False(t, second.HasMore)

	_, err = f.svc.List(ctx, domain.ListReportsRequest{PageToken: "not-a-token"})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := tenant("contoso")

	created, err := f.svc.Create(ctx, domain.CreateReportRequest{Name: "x", Strategy: "cost", Users: sampleUsers()})
	require.NoError(t, err)

	require.NoError(t, f.db.Exec(
		"INSERT INTO executive_summaries (id, report_id, tenant_id, model, content, commitment, cost_current, cost_security, cost_saving, cost_balanced, created_at) VALUES (?, ?, ?, ?, ?, ?, 0, 0, 0, 0, ?)",
		1, created.ID, "contoso", "m", "text", "monthly", time.Now(),
	).Error)

	assert.ErrorIs(t, f.svc.Delete(tenant("fabrikam"), created.ID.String()), domain.ErrNotFound)
	require.NoError(t, f.svc.Delete(ctx, created.ID.String()))
	assert.ErrorIs(t, f.svc.Delete(ctx, created.ID.String()), domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, "abc"), domain.ErrInvalidID)

	var remaining int64
	require.NoError(t, f.db.Table("executive_summaries").Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestAnalysisUsesStoredStrategyAndRules(t *testing.T) {
	f := newFixture(t)
	ctx := tenant("contoso")

	created, err := f.svc.Create(ctx, domain.CreateReportRequest{Name: "x", Strategy: "cost", Commitment: "annual", Users: sampleUsers()})
	require.NoError(t, err)

	res, err := f.svc.Analysis(ctx, domain.AnalysisRequest{ReportID: created.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, optdomain.StrategyCost, res.Strategy)
	assert.Equal(t, optdomain.CommitmentAnnual, res.Commitment)
	require.Len(t, res.Users, 2)
	assert.Less(t, res.Stats.Delta, 0.0)
	assert.Len(t, res.Compare, 4)
	assert.Empty(t, res.Report.Users)

	custom, err := f.svc.Analysis(ctx, domain.AnalysisRequest{ReportID: created.ID.String(), Strategy: "custom"})
	require.NoError(t, err)
	assert.Zero(t, custom.Stats.Delta)

	_, err = f.svc.Analysis(ctx, domain.AnalysisRequest{ReportID: created.ID.String(), Strategy: "bogus"})
	assert.ErrorIs(t, err, optdomain.ErrInvalidStrategy)
}
