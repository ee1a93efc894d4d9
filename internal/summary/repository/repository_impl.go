package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/seatwise/internal/summary/domain"
	"github.com/smallbiznis/seatwise/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, summary *domain.ExecutiveSummary) error {
	return db.WithContext(ctx).Create(summary).Error
}

func (r *repo) Latest(ctx context.Context, conn *gorm.DB, tenantID string, reportID snowflake.ID) (*domain.ExecutiveSummary, error) {
	var summary domain.ExecutiveSummary
	err := conn.WithContext(ctx).
		Where("tenant_id = ? AND report_id = ?", tenantID, reportID).
		Order("created_at DESC").
		Order("id DESC").
		First(&summary).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
