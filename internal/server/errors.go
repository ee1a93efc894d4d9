package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/seatwise/internal/authorization"
	"github.com/smallbiznis/seatwise/internal/importer"
	optdomain "github.com/smallbiznis/seatwise/internal/optimizer/domain"
	"github.com/smallbiznis/seatwise/internal/providers/graph"
	"github.com/smallbiznis/seatwise/internal/providers/llm"
	reportdomain "github.com/smallbiznis/seatwise/internal/report/domain"
	summarydomain "github.com/smallbiznis/seatwise/internal/summary/domain"
	tsdomain "github.com/smallbiznis/seatwise/internal/tenantsync/domain"
	"github.com/smallbiznis/seatwise/pkg/db"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// validationSentinels are domain errors reported as 400 with the sentinel
// text as the error code.
var validationSentinels = []error{
	ErrInvalidRequest,
	optdomain.ErrInvalidStrategy,
	optdomain.ErrInvalidThreshold,
	optdomain.ErrInvalidScope,
	optdomain.ErrInvalidCommitment,
	optdomain.ErrUnknownRule,
	optdomain.ErrMissingRuleSet,
	optdomain.ErrEmptyRoster,
	reportdomain.ErrInvalidName,
	reportdomain.ErrInvalidID,
	reportdomain.ErrInvalidPageToken,
	importer.ErrEmptyFile,
	importer.ErrMissingColumn,
	tsdomain.ErrInvalidState,
	tsdomain.ErrMissingCode,
	authorization.ErrInvalidRole,
	authorization.ErrInvalidObject,
	authorization.ErrInvalidAction,
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if code, ok := validationErrorCode(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: err.Error(),
				},
			},
		}
	}

	var apiErr *graph.APIError
	switch {
	case errors.Is(err, optdomain.ErrRosterTooLarge):
		return http.StatusRequestEntityTooLarge, errorPayload{
			Type:    "payload_too_large",
			Message: "too many users in one request",
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, tsdomain.ErrNotConnected),
		errors.Is(err, tsdomain.ErrSessionExpired),
		errors.Is(err, tsdomain.ErrInvalidToken),
		errors.Is(err, reportdomain.ErrInvalidTenant),
		errors.Is(err, authorization.ErrInvalidTenant),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, tsdomain.ErrConsentDenied),
		errors.Is(err, graph.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, summarydomain.ErrInProgress),
		errors.Is(err, tsdomain.ErrDuplicateRecord),
		db.IsDuplicateKeyErr(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, summarydomain.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many summary requests, try again later",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, llm.ErrNotConfigured),
		errors.Is(err, tsdomain.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case errors.As(err, &apiErr), errors.Is(err, llm.ErrEmptyResponse):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "upstream service error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code recorded in request logs.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, payload.Type
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, reportdomain.ErrNotFound),
		errors.Is(err, summarydomain.ErrNotFound),
		db.IsNotFound(err):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) (string, bool) {
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error(), true
		}
	}
	return "", false
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}
