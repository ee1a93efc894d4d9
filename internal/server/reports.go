package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	reportdomain "github.com/smallbiznis/seatwise/internal/report/domain"
	"github.com/smallbiznis/seatwise/pkg/db/pagination"
)

func (s *Server) CreateReport(c *gin.Context) {
	var req reportdomain.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Source == "" {
		req.Source = reportdomain.SourceUpload
	}

	report, err := s.reports.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": report})
}

func (s *Server) ListReports(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reports.List(c.Request.Context(), reportdomain.ListReportsRequest{
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Reports,
		"page_info": resp.PageInfo,
	})
}

func (s *Server) GetReport(c *gin.Context) {
	report, err := s.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) DeleteReport(c *gin.Context) {
	if err := s.reports.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) GetReportAnalysis(c *gin.Context) {
	strategy := strings.TrimSpace(c.Query("strategy"))
	c.Set("strategy", strategy)

	resp, err := s.reports.Analysis(c.Request.Context(), reportdomain.AnalysisRequest{
		ReportID: c.Param("id"),
		Strategy: strategy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
