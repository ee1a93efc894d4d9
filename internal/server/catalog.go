package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/seatwise/internal/catalog"
)

type resolveLicenseResponse struct {
	catalog.LicenseInfo
	Input string `json:"input"`
	Pass  string `json:"pass,omitempty"`
}

func (s *Server) ListCatalog(c *gin.Context) {
	entries := s.catalog.Snapshot().Entries()
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (s *Server) ResolveLicense(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		AbortWithError(c, newValidationError("id", "required", "id is required"))
		return
	}

	info, pass := s.catalog.Snapshot().ResolveWithPass(id)
	c.JSON(http.StatusOK, gin.H{"data": resolveLicenseResponse{
		LicenseInfo: info,
		Input:       id,
		Pass:        pass,
	}})
}
