package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/seatwise/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, report *Report) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID string, id snowflake.ID) (*Report, error)
	List(ctx context.Context, db *gorm.DB, tenantID string, page pagination.Pagination) ([]*Report, error)
	Delete(ctx context.Context, db *gorm.DB, tenantID string, id snowflake.ID) (bool, error)
}
