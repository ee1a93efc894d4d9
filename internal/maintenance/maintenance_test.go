package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/seatwise/internal/cache"
	"github.com/smallbiznis/seatwise/internal/clock"
	"github.com/smallbiznis/seatwise/internal/config"
	"github.com/smallbiznis/seatwise/internal/tenantsync/domain"
	"github.com/smallbiznis/seatwise/internal/tenantsync/repository"
	"github.com/smallbiznis/seatwise/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRunnerJobs(t *testing.T) {
	db := dbtest.Open(t)
	repo := repository.Provide()
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)

	require.NoError(t, repo.InsertToken(ctx, db, &domain.Token{
		ID: 1, SessionID: "old", TenantID: "t1", UserEmail: "a@contoso.com",
		AccessTokenSealed: []byte("x"), ExpiresAt: now.Add(-time.Minute), CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, repo.InsertLogin(ctx, db, &domain.LoginEvent{
		ID: snowflake.ID(1), TenantID: "t1", CreatedAt: now.Add(-40 * 24 * time.Hour),
	}))
	require.NoError(t, repo.InsertLogin(ctx, db, &domain.LoginEvent{
		ID: snowflake.ID(2), TenantID: "t1", CreatedAt: now,
	}))

	skus := cache.NewSKUCache()
	r, err := New(Params{
		DB:     db,
		Log:    zaptest.NewLogger(t),
		Config: config.Config{LoginHistoryRetention: 30 * 24 * time.Hour},
		Repo:   repo,
		Clock:  clk,
		SKUs:   skus,
	})
	require.NoError(t, err)

	require.NoError(t, r.Run(ctx, JobPurgeTokens))
	tok, err := repo.FindToken(ctx, db, "old")
	require.NoError(t, err)
	assert.Nil(t, tok)

	require.NoError(t, r.Run(ctx, JobPruneLoginHistory))
	logins, err := repo.ListLogins(ctx, db, "t1", 10)
	require.NoError(t, err)
	require.Len(t, logins, 1)
	assert.Equal(t, snowflake.ID(2), logins[0].ID)

	require.NoError(t, r.Run(ctx, JobPurgeSKUCache))
	assert.ErrorIs(t, r.Run(ctx, "nope"), ErrUnknownJob)
}

func TestRunnerDefaultsAndLifecycle(t *testing.T) {
	r, err := New(Params{
		DB:    dbtest.Open(t),
		Log:   zaptest.NewLogger(t),
		Repo:  repository.Provide(),
		Clock: clock.System(),
	})
	require.NoError(t, err)
	assert.Equal(t, defaultRetention, r.retention)
	assert.Len(t, r.cron.Entries(), 2)

	r.Start()
	require.NoError(t, r.Stop(context.Background()))

	_, err = New(Params{})
	assert.Error(t, err)
}
