package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	summarydomain "github.com/smallbiznis/seatwise/internal/summary/domain"
	"go.uber.org/zap"
)

type summaryEvent struct {
	Content   string `json:"content,omitempty"`
	Done      bool   `json:"done,omitempty"`
	SummaryID string `json:"summaryId,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) GetSummary(c *gin.Context) {
	summary, err := s.summaries.Latest(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// GenerateSummary streams the executive summary as server-sent events. The
// stream opens with the first chunk, so failures before any output are
// returned as regular JSON errors.
func (s *Server) GenerateSummary(c *gin.Context) {
	stream := &sseWriter{c: c}

	summary, err := s.summaries.Generate(c.Request.Context(), c.Param("id"), stream.content)
	if err != nil {
		var limited *summarydomain.RateLimitError
		if errors.As(err, &limited) && limited.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(limited.RetryAfter.Seconds()))))
		}
		if !stream.started {
			AbortWithError(c, err)
			return
		}
		_, payload := mapError(err)
		s.log.Warn("summary stream failed", zap.String("report_id", c.Param("id")), zap.Error(err))
		_ = stream.send(summaryEvent{Error: payload.Message})
		return
	}

	if err := stream.send(summaryEvent{Done: true, SummaryID: summary.ID.String()}); err != nil {
		s.log.Debug("summary client went away", zap.Error(err))
	}
}

type sseWriter struct {
	c       *gin.Context
	flusher http.Flusher
	started bool
}

func (w *sseWriter) start() error {
	if w.started {
		return nil
	}
	headers := w.c.Writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	w.c.Status(http.StatusOK)

	flusher, ok := w.c.Writer.(http.Flusher)
	if !ok {
		return ErrServiceUnavailable
	}
	w.flusher = flusher
	w.started = true
	return nil
}

func (w *sseWriter) content(chunk string) error {
	return w.send(summaryEvent{Content: chunk})
}

func (w *sseWriter) send(event summaryEvent) error {
	if err := w.start(); err != nil {
		return err
	}
	if err := w.c.Request.Context().Err(); err != nil {
		return err
	}
	if err := writeSSE(w.c.Writer, event); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}

func writeSSE(out io.Writer, event summaryEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "data: %s\n\n", data)
	return err
}
