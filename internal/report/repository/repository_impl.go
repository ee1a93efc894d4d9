package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/seatwise/internal/report/domain"
	"github.com/smallbiznis/seatwise/pkg/db"
	"github.com/smallbiznis/seatwise/pkg/db/pagination"
	"gorm.io/gorm"
)

// listColumns leaves out the roster payload.
var listColumns = []string{
	"id", "tenant_id", "name", "strategy", "commitment", "source",
	"user_count", "base_cost", "custom_rules", "created_at", "updated_at",
}

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, report *domain.Report) error {
	return db.WithContext(ctx).Create(report).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, tenantID string, id snowflake.ID) (*domain.Report, error) {
	var report domain.Report
	err := conn.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&report).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID string, page pagination.Pagination) ([]*domain.Report, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Report{}).
		Select(listColumns).
		Where("tenant_id = ?", tenantID)
	stmt, err := pagination.Apply(stmt, page)
	if err != nil {
		return nil, err
	}

	var reports []*domain.Report
	if err := stmt.Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

// Delete removes the report and its executive summaries.
func (r *repo) Delete(ctx context.Context, db *gorm.DB, tenantID string, id snowflake.ID) (bool, error) {
	var deleted bool
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&domain.Report{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return tx.Exec("DELETE FROM executive_summaries WHERE report_id = ?", id).Error
	})
	return deleted, err
}
