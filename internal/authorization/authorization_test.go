package authorization

import (
	"context"
	"testing"

	"github.com/smallbiznis/seatwise/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewEnforcer(dbtest.Open(t))
	require.NoError(t, err)
	return NewService(Params{Log: zaptest.NewLogger(t), Enforcer: enforcer})
}

func TestUnassignedUserIsViewer(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	actor := UserActor("Guest@Contoso.com")

	assert.NoError(t, svc.Authorize(ctx, actor, "contoso", ObjectReport, ActionRead))
	assert.ErrorIs(t, svc.Authorize(ctx, actor, "contoso", ObjectReport, ActionWrite), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, actor, "contoso", ObjectSummary, ActionGenerate), ErrForbidden)
}

func TestEnsureMemberGrantsOnce(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	actor := UserActor("alex@contoso.com")

	role, err := svc.EnsureMember(ctx, actor, "contoso", RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	require.NoError(t, svc.AssignRole(ctx, actor, "contoso", RoleAnalyst))
	role, err = svc.EnsureMember(ctx, actor, "contoso", RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, RoleAnalyst, role)

	assert.NoError(t, svc.Authorize(ctx, actor, "contoso", ObjectSummary, ActionGenerate))
	assert.ErrorIs(t, svc.Authorize(ctx, actor, "contoso", ObjectReport, ActionDelete), ErrForbidden)
}

func TestRolesAreTenantScoped(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	actor := UserActor("alex@contoso.com")
	require.NoError(t, svc.AssignRole(ctx, actor, "contoso", RoleAdmin))

	assert.NoError(t, svc.Authorize(ctx, actor, "contoso", ObjectTenant, ActionSync))
	assert.ErrorIs(t, svc.Authorize(ctx, actor, "fabrikam", ObjectTenant, ActionSync), ErrForbidden)

	role, err := svc.Role(ctx, actor, "fabrikam")
	require.NoError(t, err)
	assert.Empty(t, role)
}

func TestSystemActorIsOwner(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, ActorSystem, "contoso", ObjectTenant, ActionWrite))
	assert.NoError(t, svc.Authorize(ctx, ActorSystem, "contoso", ObjectReport, ActionDelete))
}

func TestAuthorizeValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "", "contoso", ObjectReport, ActionRead), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "api:1", "contoso", ObjectReport, ActionRead), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, ActorSystem, " ", ObjectReport, ActionRead), ErrInvalidTenant)
	assert.ErrorIs(t, svc.Authorize(ctx, ActorSystem, "contoso", "", ActionRead), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, ActorSystem, "contoso", ObjectReport, ""), ErrInvalidAction)
	assert.ErrorIs(t, svc.AssignRole(ctx, UserActor("a@b.c"), "contoso", "superuser"), ErrInvalidRole)
}
