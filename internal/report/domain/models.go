package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	optdomain "github.com/smallbiznis/seatwise/internal/optimizer/domain"
	"gorm.io/datatypes"
)

// Source records where a report's roster came from.
type Source string

const (
	SourceUpload    Source = "upload"
	SourceMicrosoft Source = "microsoft"
)

// Report is a saved roster with the strategy it was reviewed under.
type Report struct {
	ID          snowflake.ID                              `gorm:"primaryKey" json:"id"`
	TenantID    string                                    `gorm:"not null;index" json:"tenant_id"`
	Name        string                                    `gorm:"not null" json:"name"`
	Strategy    optdomain.Strategy                        `gorm:"not null" json:"strategy"`
	Commitment  optdomain.Commitment                      `gorm:"not null" json:"commitment"`
	Source      Source                                    `gorm:"not null" json:"source"`
	UserCount   int                                       `gorm:"not null" json:"user_count"`
	BaseCost    float64                                   `gorm:"not null" json:"base_cost"`
	Users       datatypes.JSONSlice[optdomain.UserRecord] `gorm:"column:user_data" json:"users,omitempty"`
	CustomRules datatypes.JSONType[*optdomain.RuleSet]    `gorm:"column:custom_rules" json:"custom_rules"`
	CreatedAt   time.Time                                 `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time                                 `gorm:"not null" json:"updated_at"`
}

func (Report) TableName() string { return "reports" }

// Rules returns the stored custom rule set, if any.
func (r Report) Rules() *optdomain.RuleSet {
	return r.CustomRules.Data()
}
