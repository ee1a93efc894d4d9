package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	InsertToken(ctx context.Context, db *gorm.DB, token *Token) error
	UpdateToken(ctx context.Context, db *gorm.DB, token *Token) error
	FindToken(ctx context.Context, db *gorm.DB, sessionID string) (*Token, error)
	DeleteToken(ctx context.Context, db *gorm.DB, sessionID string) (bool, error)
	// PurgeExpiredTokens removes sessions that expired before cutoff and
	// cannot be refreshed.
	PurgeExpiredTokens(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)

	InsertLogin(ctx context.Context, db *gorm.DB, event *LoginEvent) error
	ListLogins(ctx context.Context, db *gorm.DB, tenantID string, limit int) ([]LoginEvent, error)
	PruneLogins(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
}
