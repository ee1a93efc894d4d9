package domain

import (
	"context"
	"errors"

	optdomain "github.com/smallbiznis/seatwise/internal/optimizer/domain"
	"github.com/smallbiznis/seatwise/pkg/db/pagination"
)

const MaxNameLength = 200

type CreateReportRequest struct {
	Name        string                 `json:"name"`
	Strategy    string                 `json:"strategy"`
	Commitment  string                 `json:"commitment"`
	Source      Source                 `json:"source"`
	Users       []optdomain.UserRecord `json:"users"`
	CustomRules *optdomain.RuleSet     `json:"custom_rules,omitempty"`
}

type ListReportsRequest struct {
	PageToken string
	PageSize  int
}

type ListReportsResponse struct {
	pagination.PageInfo
	Reports []Report `json:"reports"`
}

type AnalysisRequest struct {
	ReportID string
	Strategy string
}

type AnalysisResponse struct {
	Report     Report                    `json:"report"`
	Strategy   optdomain.Strategy        `json:"strategy"`
	Commitment optdomain.Commitment      `json:"commitment"`
	Users      []optdomain.AnalyzedUser  `json:"users"`
	Stats      optdomain.StrategyStats   `json:"stats"`
	Compare    []optdomain.StrategyStats `json:"compare"`
}

type Service interface {
	Create(ctx context.Context, req CreateReportRequest) (Report, error)
	Get(ctx context.Context, id string) (Report, error)
	List(ctx context.Context, req ListReportsRequest) (ListReportsResponse, error)
	Delete(ctx context.Context, id string) error
	Analysis(ctx context.Context, req AnalysisRequest) (AnalysisResponse, error)
}

var (
	ErrInvalidTenant    = errors.New("invalid_tenant")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrNotFound         = errors.New("report_not_found")
)
