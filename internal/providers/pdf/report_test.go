package pdf

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	optdomain "github.com/smallbiznis/seatwise/internal/optimizer/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() ReportData {
	return ReportData{
		Title:       "Q3 license review",
		Company:     "Contoso Ltd",
		PreparedFor: "Alex Wilber",
		GeneratedAt: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Strategy:    optdomain.StrategyCost,
		Commitment:  optdomain.CommitmentAnnual,
		Compare: []optdomain.StrategyStats{
			{Strategy: optdomain.StrategyCurrent, BaseCost: 1200, NewCost: 1200},
			{Strategy: optdomain.StrategyCost, BaseCost: 1200, NewCost: 1000, Delta: -200, AffectedCount: 4, DowngradeCount: 4},
		},
		Users: []optdomain.AnalyzedUser{
			{
				UserRecord:       optdomain.UserRecord{DisplayName: "Megan Bowen", Department: "Sales", Licenses: []string{"Microsoft 365 E3"}, Cost: 36},
				OriginalLicenses: []string{"Microsoft 365 E5"},
				OriginalCost:     57,
				Changed:          true,
				Reasons:          []optdomain.Reason{{Kind: optdomain.ReasonDowngrade, Text: "Low mailbox usage"}},
			},
			{UserRecord: optdomain.UserRecord{DisplayName: "Unchanged"}},
		},
	}
}

func TestRenderReport(t *testing.T) {
	r, err := New().RenderReport(context.Background(), sampleReport())
	require.NoError(t, err)

	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestRenderReportWithoutChanges(t *testing.T) {
	data := sampleReport()
	data.Users = nil
	data.Company = ""

	r, err := New().RenderReport(context.Background(), data)
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.NotEmpty(t, body)
}

func TestRenderReportCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().RenderReport(ctx, sampleReport())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "q3-license-review-cost.pdf", Filename("Q3 License Review", optdomain.StrategyCost))
	assert.Equal(t, "license-report-balanced.pdf", Filename("  ", optdomain.StrategyBalanced))
	assert.Equal(t, "cafe-renewal-custom.pdf", Filename("Café / Renewal!", optdomain.StrategyCustom))
}

func TestAmountFormatting(t *testing.T) {
	p := New().(*PDFProvider)
	assert.Equal(t, "$1,234.50", p.amount(1234.5))
	assert.Equal(t, "-$200.00", p.signed(-200))
	assert.Equal(t, "+$12.00", p.signed(12))
	assert.Equal(t, "$0.00", p.signed(0))
}
