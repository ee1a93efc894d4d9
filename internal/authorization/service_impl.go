package authorization

import (
	"context"
	_ "embed"
	"slices"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/seatwise/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

var roles = map[string]struct{}{
	RoleOwner:   {},
	RoleAdmin:   {},
	RoleAnalyst: {},
	RoleViewer:  {},
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads tenant role grants from the casbin_rule table and seeds
// the role permissions.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor, tenantID, object, action string) error {
	actor = normalize(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return ErrInvalidTenant
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, err := s.subject(actor, tenantID)
	if err != nil {
		return err
	}
	allowed, err := s.enforcer.Enforce(subject, domainFor(tenantID), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		logger.WithContext(ctx, s.log).Info("authorization denied",
			zap.String("actor", actor),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

// subject resolves who to enforce as. Users without a grant fall back to
// the viewer role.
func (s *ServiceImpl) subject(actor, tenantID string) (string, error) {
	if actor == ActorSystem {
		return roleName(RoleOwner), nil
	}
	if !strings.HasPrefix(actor, "user:") || strings.TrimPrefix(actor, "user:") == "" {
		return "", ErrInvalidActor
	}
	role, err := s.role(actor, tenantID)
	if err != nil {
		return "", err
	}
	if role == "" {
		return roleName(RoleViewer), nil
	}
	return actor, nil
}

func (s *ServiceImpl) AssignRole(ctx context.Context, actor, tenantID, role string) error {
	actor = normalize(actor)
	if !strings.HasPrefix(actor, "user:") {
		return ErrInvalidActor
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return ErrInvalidTenant
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if _, ok := roles[role]; !ok {
		return ErrInvalidRole
	}

	domain := domainFor(tenantID)
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, actor, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName(role) {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(actor, roleName(role), domain)
	if err != nil || has {
		return err
	}
	if _, err := s.enforcer.AddGroupingPolicy(actor, roleName(role), domain); err != nil {
		return err
	}
	logger.WithContext(ctx, s.log).Info("role assigned",
		zap.String("actor", actor),
		zap.String("tenant_id", tenantID),
		zap.String("role", role),
	)
	return nil
}

func (s *ServiceImpl) EnsureMember(ctx context.Context, actor, tenantID, role string) (string, error) {
	current, err := s.Role(ctx, actor, tenantID)
	if err != nil {
		return "", err
	}
	if current != "" {
		return current, nil
	}
	if err := s.AssignRole(ctx, actor, tenantID, role); err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(role)), nil
}

// Role returns the actor's granted role in the tenant, or "" when none.
func (s *ServiceImpl) Role(_ context.Context, actor, tenantID string) (string, error) {
	actor = normalize(actor)
	if actor == "" {
		return "", ErrInvalidActor
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", ErrInvalidTenant
	}
	if actor == ActorSystem {
		return RoleOwner, nil
	}
	return s.role(actor, tenantID)
}

func (s *ServiceImpl) role(actor, tenantID string) (string, error) {
	rules, err := s.enforcer.GetFilteredGroupingPolicy(0, actor, "", domainFor(tenantID))
	if err != nil {
		return "", err
	}
	for _, rule := range rules {
		if len(rule) >= 2 {
			return strings.TrimPrefix(rule[1], "role:"), nil
		}
	}
	return "", nil
}

func domainFor(tenantID string) string {
	return "tenant:" + strings.TrimSpace(tenantID)
}

func roleName(role string) string {
	return "role:" + role
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	read := [][2]string{
		{ObjectReport, ActionRead},
		{ObjectSummary, ActionRead},
		{ObjectTenant, ActionRead},
	}
	analyst := slices.Concat(read, [][2]string{
		{ObjectReport, ActionWrite},
		{ObjectSummary, ActionGenerate},
	})
	admin := slices.Concat(analyst, [][2]string{
		{ObjectReport, ActionDelete},
		{ObjectTenant, ActionSync},
	})
	owner := slices.Concat(admin, [][2]string{
		{ObjectTenant, ActionWrite},
	})

	grants := map[string][][2]string{
		RoleViewer:  read,
		RoleAnalyst: analyst,
		RoleAdmin:   admin,
		RoleOwner:   owner,
	}
	for role, perms := range grants {
		for _, perm := range perms {
			if _, err := enforcer.AddPolicy(roleName(role), perm[0], perm[1]); err != nil {
				return err
			}
		}
	}
	return nil
}
