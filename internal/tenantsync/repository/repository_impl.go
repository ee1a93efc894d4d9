package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/seatwise/internal/tenantsync/domain"
	"github.com/smallbiznis/seatwise/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertToken(ctx context.Context, conn *gorm.DB, token *domain.Token) error {
	err := conn.WithContext(ctx).Create(token).Error
	if db.IsDuplicateKeyErr(err) {
		return fmt.Errorf("%w: microsoft session %s", domain.ErrDuplicateRecord, token.SessionID)
	}
	return err
}

// UpdateToken replaces the sealed tokens of an existing session.
func (r *repo) UpdateToken(ctx context.Context, db *gorm.DB, token *domain.Token) error {
	return db.WithContext(ctx).
		Model(&domain.Token{}).
		Where("session_id = ?", token.SessionID).
		Updates(map[string]any{
			"access_token_sealed":  token.AccessTokenSealed,
			"refresh_token_sealed": token.RefreshTokenSealed,
			"expires_at":           token.ExpiresAt,
			"updated_at":           token.UpdatedAt,
		}).Error
}

func (r *repo) FindToken(ctx context.Context, conn *gorm.DB, sessionID string) (*domain.Token, error) {
	var token domain.Token
	err := conn.WithContext(ctx).Where("session_id = ?", sessionID).First(&token).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *repo) DeleteToken(ctx context.Context, db *gorm.DB, sessionID string) (bool, error) {
	res := db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&domain.Token{})
	return res.RowsAffected > 0, res.Error
}

func (r *repo) PurgeExpiredTokens(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at < ? AND (refresh_token_sealed IS NULL OR length(refresh_token_sealed) = 0)", cutoff).
		Delete(&domain.Token{})
	return res.RowsAffected, res.Error
}

func (r *repo) InsertLogin(ctx context.Context, conn *gorm.DB, event *domain.LoginEvent) error {
	err := conn.WithContext(ctx).Create(event).Error
	if db.IsDuplicateKeyErr(err) {
		return fmt.Errorf("%w: login %s", domain.ErrDuplicateRecord, event.ID)
	}
	return err
}

func (r *repo) ListLogins(ctx context.Context, db *gorm.DB, tenantID string, limit int) ([]domain.LoginEvent, error) {
	var events []domain.LoginEvent
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *repo) PruneLogins(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&domain.LoginEvent{})
	return res.RowsAffected, res.Error
}
