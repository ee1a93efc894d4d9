package tenantctx

import (
	"context"
	"strings"
)

type keyType string

const (
	TenantIDKey  keyType = "tenant_id"
	SessionIDKey keyType = "session_id"
)

// WithTenantID stores the active tenant in ctx.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, strings.TrimSpace(tenantID))
}

// TenantID returns the active tenant, if any.
func TenantID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(TenantIDKey).(string)
	return id, ok && id != ""
}

// WithSessionID stores the Microsoft sign-in session in ctx.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, strings.TrimSpace(sessionID))
}

// SessionID returns the Microsoft sign-in session, if any.
func SessionID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(SessionIDKey).(string)
	return id, ok && id != ""
}
