package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/seatwise/internal/providers/pdf"
	reportdomain "github.com/smallbiznis/seatwise/internal/report/domain"
)

// ExportReport renders the report's analysis under one strategy as a PDF.
func (s *Server) ExportReport(c *gin.Context) {
	ctx := c.Request.Context()
	strategy := strings.TrimSpace(c.Query("strategy"))
	c.Set("strategy", strategy)

	analysis, err := s.reports.Analysis(ctx, reportdomain.AnalysisRequest{
		ReportID: c.Param("id"),
		Strategy: strategy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data := pdf.ReportData{
		Title:       analysis.Report.Name,
		GeneratedAt: s.clock.Now(),
		Strategy:    analysis.Strategy,
		Commitment:  analysis.Commitment,
		Compare:     analysis.Compare,
		Users:       analysis.Users,
	}
	if session, ok := sessionFromContext(c); ok {
		data.Company = session.Company
		data.PreparedFor = session.UserName
	}

	doc, err := s.pdf.RenderReport(ctx, data)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	body, err := io.ReadAll(doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := pdf.Filename(analysis.Report.Name, analysis.Strategy)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", body)
}
