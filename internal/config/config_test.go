package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("PUBLIC_URL", "https://seatwise.example.com/")

	cfg := Load()

	assert.Equal(t, "seatwise", cfg.AppName)
	assert.Equal(t, "https://seatwise.example.com", cfg.PublicURL)
	assert.Equal(t, "https://seatwise.example.com/auth/microsoft/callback", cfg.Microsoft.RedirectURL)
	assert.True(t, cfg.AllowTenantHeader)
	assert.False(t, cfg.CookieSecure)
	assert.False(t, cfg.MicrosoftEnabled())
	assert.Equal(t, time.Hour, cfg.SummaryRateWindow)
}

func TestLoadProductionLocksDownTenantHeader(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ALLOW_TENANT_HEADER", "true")
	t.Setenv("OPTIMIZER_PARALLEL_THRESHOLD", "not-a-number")
	t.Setenv("LLM_TIMEOUT", "30s")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.CookieSecure)
	assert.False(t, cfg.AllowTenantHeader)
	assert.Equal(t, 2000, cfg.OptimizerParallelThreshold)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
}
