package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	optdomain "github.com/smallbiznis/seatwise/internal/optimizer/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const confidentiality = "CONFIDENTIAL. This report contains licensing and cost information " +
	"about your organization and is intended only for the named recipient."

var strategyLabels = map[optdomain.Strategy]string{
	optdomain.StrategyCurrent:  "Current Licensing",
	optdomain.StrategySecurity: "Maximize Security",
	optdomain.StrategyCost:     "Minimize Cost",
	optdomain.StrategyBalanced: "Balanced Approach",
	optdomain.StrategyCustom:   "Custom Strategy",
}

var (
	headerText = props.Text{Style: fontstyle.Bold, Size: 9}
	cellText   = props.Text{Size: 8}
	grey       = &props.Color{Red: 110, Green: 110, Blue: 110}
)

type PDFProvider struct {
	money *message.Printer
}

func New() Provider {
	return &PDFProvider{money: message.NewPrinter(language.English)}
}

func (p *PDFProvider) RenderReport(ctx context.Context, data ReportData) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)
	if err := m.RegisterFooter(
		row.New(8).Add(
			text.NewCol(12, "Generated by Seatwise on "+data.GeneratedAt.Format("January 2, 2006"),
				props.Text{Size: 7, Color: grey, Align: align.Left}),
		),
	); err != nil {
		return nil, err
	}

	p.header(m, data)
	p.comparison(m, data)
	p.changes(m, data)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render report pdf: %w", err)
	}
	return bytes.NewReader(doc.GetBytes()), nil
}

func (p *PDFProvider) header(m core.Maroto, data ReportData) {
	company := strings.TrimSpace(data.Company)
	if company == "" {
		company = "Microsoft 365 Tenant"
	}
	title := strings.TrimSpace(data.Title)
	if title == "" {
		title = "License Optimization Report"
	}

	m.AddRow(12,
		text.NewCol(12, company, props.Text{Size: 18, Style: fontstyle.Bold}),
	)
	m.AddRow(8,
		text.NewCol(12, title, props.Text{Size: 12, Color: grey}),
	)

	meta := col.New(8).Add(
		text.New("Strategy: "+label(data.Strategy), props.Text{Size: 9, Top: 0}),
		text.New("Billing basis: "+data.Commitment.Label()+" commitment", props.Text{Size: 9, Top: 5}),
		text.New("Date: "+data.GeneratedAt.Format("January 2, 2006"), props.Text{Size: 9, Top: 10}),
	)
	if prepared := strings.TrimSpace(data.PreparedFor); prepared != "" {
		meta.Add(text.New("Prepared for: "+prepared, props.Text{Size: 9, Top: 15}))
	}
	m.AddRow(22, meta, col.New(4))

	m.AddRow(12,
		text.NewCol(12, confidentiality, props.Text{Size: 7, Style: fontstyle.Italic, Color: grey}),
	)
	m.AddRow(4, line.NewCol(12))
}

func (p *PDFProvider) comparison(m core.Maroto, data ReportData) {
	period := data.Commitment.Label()
	m.AddRow(10,
		text.NewCol(12, "Strategy Comparison", props.Text{Size: 12, Style: fontstyle.Bold, Top: 3}),
	)
	m.AddRow(8,
		text.NewCol(4, "Strategy", headerText),
		text.NewCol(2, period+" cost", right(headerText)),
		text.NewCol(2, "Change", right(headerText)),
		text.NewCol(2, "Users affected", right(headerText)),
		text.NewCol(1, "Up", right(headerText)),
		text.NewCol(1, "Down", right(headerText)),
	)
	for _, st := range data.Compare {
		style := cellText
		if st.Strategy == data.Strategy {
			style.Style = fontstyle.Bold
		}
		m.AddRow(6,
			text.NewCol(4, label(st.Strategy), style),
			text.NewCol(2, p.amount(data.Commitment.Total(st.NewCost)), right(style)),
			text.NewCol(2, p.signed(data.Commitment.Total(st.Delta)), right(style)),
			text.NewCol(2, fmt.Sprintf("%d", st.AffectedCount), right(style)),
			text.NewCol(1, fmt.Sprintf("%d", st.UpgradeCount), right(style)),
			text.NewCol(1, fmt.Sprintf("%d", st.DowngradeCount), right(style)),
		)
	}
	m.AddRow(4, line.NewCol(12))
}

func (p *PDFProvider) changes(m core.Maroto, data ReportData) {
	changed := make([]optdomain.AnalyzedUser, 0, len(data.Users))
	for _, u := range data.Users {
		if u.Changed {
			changed = append(changed, u)
		}
	}

	m.AddRow(10,
		text.NewCol(12, fmt.Sprintf("Recommended Changes (%d of %d users)", len(changed), len(data.Users)),
			props.Text{Size: 12, Style: fontstyle.Bold, Top: 3}),
	)
	if len(changed) == 0 {
		m.AddRow(8, text.NewCol(12, "No license changes are recommended under this strategy.", cellText))
		return
	}

	m.AddRow(8,
		text.NewCol(3, "User", headerText),
		text.NewCol(3, "Current licenses", headerText),
		text.NewCol(3, "Recommended", headerText),
		text.NewCol(3, "Reason", headerText),
	)
	for _, u := range changed {
		reasons := make([]string, 0, len(u.Reasons))
		for _, r := range u.Reasons {
			reasons = append(reasons, r.Text)
		}
		user := u.DisplayName
		if u.Department != "" {
			user += "\n" + u.Department
		}
		height := float64(6 + 3*max(len(u.OriginalLicenses), len(u.Licenses), len(reasons)))
		m.AddRow(height,
			text.NewCol(3, user, cellText),
			text.NewCol(3, licenseList(u.OriginalLicenses)+"\n"+p.amount(u.OriginalCost), cellText),
			text.NewCol(3, licenseList(u.Licenses)+"\n"+p.amount(u.Cost), cellText),
			text.NewCol(3, strings.Join(reasons, "\n"), cellText),
		)
	}
}

func (p *PDFProvider) amount(v float64) string {
	return p.money.Sprintf("$%.2f", v)
}

func (p *PDFProvider) signed(v float64) string {
	switch {
	case v > 0:
		return "+" + p.amount(v)
	case v < 0:
		return "-" + p.amount(-v)
	default:
		return p.amount(0)
	}
}

func label(s optdomain.Strategy) string {
	if l, ok := strategyLabels[s]; ok {
		return l
	}
	return string(s)
}

func licenseList(licenses []string) string {
	if len(licenses) == 0 {
		return "None"
	}
	return strings.Join(licenses, "\n")
}

func right(t props.Text) props.Text {
	t.Align = align.Right
	return t
}
