package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Token is a Microsoft sign-in session. Access and refresh tokens are
// stored sealed.
type Token struct {
	ID                 snowflake.ID `gorm:"primaryKey"`
	SessionID          string       `gorm:"not null;uniqueIndex"`
	TenantID           string       `gorm:"not null;index"`
	UserEmail          string       `gorm:"not null"`
	UserName           string       `gorm:"not null"`
	Company            string       `gorm:"not null;default:''"`
	AccessTokenSealed  []byte       `gorm:"not null"`
	RefreshTokenSealed []byte
	ExpiresAt          time.Time `gorm:"not null;index"`
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

func (Token) TableName() string { return "microsoft_tokens" }

// LoginEvent is one successful Microsoft sign-in.
type LoginEvent struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  string       `gorm:"not null;index" json:"tenant_id"`
	UserEmail string       `gorm:"not null" json:"user_email"`
	UserName  string       `gorm:"not null" json:"user_name"`
	IPAddress string       `json:"ip_address"`
	UserAgent string       `json:"user_agent"`
	CreatedAt time.Time    `gorm:"not null;index" json:"created_at"`
}

func (LoginEvent) TableName() string { return "login_history" }

// Status describes the caller's Microsoft connection.
type Status struct {
	Configured bool      `json:"configured"`
	Connected  bool      `json:"connected"`
	TenantID   string    `json:"tenant_id,omitempty"`
	UserEmail  string    `json:"user_email,omitempty"`
	UserName   string    `json:"user_name,omitempty"`
	Company    string    `json:"company,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitzero"`
}
