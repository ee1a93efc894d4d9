package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, summary *ExecutiveSummary) error
	Latest(ctx context.Context, db *gorm.DB, tenantID string, reportID snowflake.ID) (*ExecutiveSummary, error)
}
