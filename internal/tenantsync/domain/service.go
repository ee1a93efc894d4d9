package domain

import (
	"context"
	"errors"
	"time"

	optdomain "github.com/smallbiznis/seatwise/internal/optimizer/domain"
)

// SessionCookie carries the Microsoft session id.
const SessionCookie = "sw_session"

type CallbackRequest struct {
	Code      string
	State     string
	Error     string
	IPAddress string
	UserAgent string
}

// Session is a signed-in Microsoft user.
type Session struct {
	ID        string    `json:"-"`
	TenantID  string    `json:"tenant_id"`
	UserEmail string    `json:"user_email"`
	UserName  string    `json:"user_name"`
	Company   string    `json:"company,omitempty"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SyncResult struct {
	Users           []optdomain.UserRecord `json:"users"`
	Source          string                 `json:"source"`
	SyncedAt        time.Time              `json:"synced_at"`
	MailboxReport   bool                   `json:"mailbox_report"`
	UnknownSKUCount int                    `json:"unknown_sku_count"`
}

// Subscription is one purchased SKU with catalog pricing.
type Subscription struct {
	SkuID         string  `json:"sku_id"`
	SkuPartNumber string  `json:"sku_part_number"`
	DisplayName   string  `json:"display_name"`
	CostPerUser   float64 `json:"cost_per_user"`
	Enabled       int     `json:"enabled"`
	Consumed      int     `json:"consumed"`
	Available     int     `json:"available"`
}

type Service interface {
	Configured() bool
	LoginURL(ctx context.Context) (string, error)
	Callback(ctx context.Context, req CallbackRequest) (Session, error)
	Session(ctx context.Context, sessionID string) (Session, error)
	Status(ctx context.Context, sessionID string) (Status, error)
	Sync(ctx context.Context, sessionID string) (SyncResult, error)
	Subscriptions(ctx context.Context, sessionID string) ([]Subscription, error)
	Logout(ctx context.Context, sessionID string) error
}

var (
	ErrNotConfigured  = errors.New("microsoft_not_configured")
	ErrInvalidState   = errors.New("invalid_oauth_state")
	ErrMissingCode    = errors.New("missing_authorization_code")
	ErrConsentDenied  = errors.New("microsoft_consent_denied")
	ErrInvalidToken   = errors.New("invalid_microsoft_token")
	ErrNotConnected   = errors.New("microsoft_not_connected")
	ErrSessionExpired = errors.New("microsoft_session_expired")

	ErrDuplicateRecord = errors.New("duplicate_record")
)
