package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	optdomain "github.com/smallbiznis/seatwise/internal/optimizer/domain"
)

// ExecutiveSummary is a generated narrative for one report with the cost
// figures it was written against.
type ExecutiveSummary struct {
	ID           snowflake.ID         `gorm:"primaryKey" json:"id"`
	ReportID     snowflake.ID         `gorm:"not null;index" json:"report_id"`
	TenantID     string               `gorm:"not null;index" json:"tenant_id"`
	Model        string               `gorm:"not null" json:"model"`
	Content      string               `gorm:"type:text;not null" json:"content"`
	Commitment   optdomain.Commitment `gorm:"not null" json:"commitment"`
	CostCurrent  float64              `gorm:"not null" json:"cost_current"`
	CostSecurity float64              `gorm:"not null" json:"cost_security"`
	CostSaving   float64              `gorm:"not null" json:"cost_saving"`
	CostBalanced float64              `gorm:"not null" json:"cost_balanced"`
	CostCustom   *float64             `json:"cost_custom,omitempty"`
	CreatedAt    time.Time            `gorm:"not null" json:"created_at"`
}

func (ExecutiveSummary) TableName() string { return "executive_summaries" }
