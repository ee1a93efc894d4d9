package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/seatwise/internal/importer"
	optdomain "github.com/smallbiznis/seatwise/internal/optimizer/domain"
)

const maxUploadBytes = 10 << 20

type mergeRequest struct {
	Users     []optdomain.UserRecord  `json:"users"`
	Mailboxes []importer.MailboxUsage `json:"mailboxes"`
}

func (s *Server) UploadUsers(c *gin.Context) {
	body, err := uploadedFile(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer body.Close()

	res, err := importer.ParseUsers(body)
	if err != nil {
		s.obsMetrics.RecordImport(c.Request.Context(), "users", "error")
		AbortWithError(c, err)
		return
	}
	res.Users = importer.Merge(res.Users, nil, s.catalog.Snapshot())
	s.obsMetrics.RecordImport(c.Request.Context(), "users", "success")

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (s *Server) UploadMailbox(c *gin.Context) {
	body, err := uploadedFile(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer body.Close()

	res, err := importer.ParseMailbox(body)
	if err != nil {
		s.obsMetrics.RecordImport(c.Request.Context(), "mailbox", "error")
		AbortWithError(c, err)
		return
	}
	s.obsMetrics.RecordImport(c.Request.Context(), "mailbox", "success")

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (s *Server) MergeUpload(c *gin.Context) {
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.Users) == 0 {
		AbortWithError(c, optdomain.ErrEmptyRoster)
		return
	}

	users := importer.Merge(req.Users, req.Mailboxes, s.catalog.Snapshot())
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"users": users}})
}

func uploadedFile(c *gin.Context) (io.ReadCloser, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, newValidationError("file", "file_too_large", "file exceeds 10 MB")
		}
		return nil, newValidationError("file", "required", "file is required")
	}
	return header.Open()
}
