package pdf

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/gosimple/slug"
	optdomain "github.com/smallbiznis/seatwise/internal/optimizer/domain"
)

// ReportData is everything printed on an optimization report.
type ReportData struct {
	Title       string
	Company     string
	PreparedFor string
	GeneratedAt time.Time
	Strategy    optdomain.Strategy
	Commitment  optdomain.Commitment
	Compare     []optdomain.StrategyStats
	Users       []optdomain.AnalyzedUser
}

type Provider interface {
	RenderReport(ctx context.Context, data ReportData) (io.Reader, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) RenderReport(ctx context.Context, data ReportData) (io.Reader, error) {
	return strings.NewReader(""), nil
}

// Filename is the download name for a report rendered under strategy.
func Filename(name string, strategy optdomain.Strategy) string {
	base := slug.Make(name)
	if base == "" {
		base = "license-report"
	}
	return base + "-" + string(strategy) + ".pdf"
}
