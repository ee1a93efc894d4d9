package authorization

import (
	"context"
	"errors"
)

const (
	ObjectReport  = "report"
	ObjectSummary = "summary"
	ObjectTenant  = "tenant"
)

const (
	ActionRead     = "read"
	ActionWrite    = "write"
	ActionDelete   = "delete"
	ActionGenerate = "generate"
	ActionSync     = "sync"
)

const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"
	RoleViewer  = "viewer"
)

// ActorSystem acts with owner rights. It is used for the tenant header in
// non-production environments and for background jobs.
const ActorSystem = "system"

type Service interface {
	Authorize(ctx context.Context, actor, tenantID, object, action string) error
	AssignRole(ctx context.Context, actor, tenantID, role string) error
	// EnsureMember grants role only when the actor has none in the tenant.
	EnsureMember(ctx context.Context, actor, tenantID, role string) (string, error)
	Role(ctx context.Context, actor, tenantID string) (string, error)
}

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrInvalidRole   = errors.New("invalid_role")
)

// UserActor is the casbin subject for a signed-in Microsoft user.
func UserActor(email string) string {
	return "user:" + normalize(email)
}
