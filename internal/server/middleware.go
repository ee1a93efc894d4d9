package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/seatwise/internal/observability/context"
	tsdomain "github.com/smallbiznis/seatwise/internal/tenantsync/domain"
	"github.com/smallbiznis/seatwise/pkg/tenantctx"
)

const (
	HeaderTenant      = "X-Tenant-ID"
	contextActorKey   = "actor"
	contextSessionKey = "session"

	sessionMaxAge = 30 * 24 * 60 * 60
)

// TenantContext resolves the tenant from the Microsoft session cookie, or
// from X-Tenant-ID when the environment allows it.
func (s *Server) TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sid, err := c.Cookie(tsdomain.SessionCookie); err == nil && strings.TrimSpace(sid) != "" {
			session, err := s.tenantSync.Session(c.Request.Context(), sid)
			switch {
			case err == nil:
				c.Set(contextSessionKey, session)
				s.bindActor(c, Actor{
					Type:      ActorUser,
					TenantID:  session.TenantID,
					ID:        session.UserEmail,
					SessionID: sid,
				})
				c.Next()
				return
			case errors.Is(err, tsdomain.ErrNotConnected), errors.Is(err, tsdomain.ErrSessionExpired):
				s.clearSessionCookie(c)
			default:
				AbortWithError(c, err)
				return
			}
		}

		if s.allowTenantHeader() {
			if tenantID := strings.TrimSpace(c.GetHeader(HeaderTenant)); tenantID != "" {
				s.bindActor(c, Actor{Type: ActorSystem, TenantID: tenantID, ID: "system"})
				c.Next()
				return
			}
		}

		AbortWithError(c, ErrUnauthorized)
	}
}

func (s *Server) allowTenantHeader() bool {
	return s.cfg.AllowTenantHeader && !s.cfg.IsProduction()
}

func (s *Server) bindActor(c *gin.Context, actor Actor) {
	ctx := tenantctx.WithTenantID(c.Request.Context(), actor.TenantID)
	if actor.SessionID != "" {
		ctx = tenantctx.WithSessionID(ctx, actor.SessionID)
	}
	ctx = obscontext.WithTenantID(ctx, actor.TenantID)
	ctx = obscontext.WithActor(ctx, string(actor.Type), actor.ID)
	c.Request = c.Request.WithContext(ctx)
	c.Set(contextActorKey, actor)
}

func sessionFromContext(c *gin.Context) (tsdomain.Session, bool) {
	v, ok := c.Get(contextSessionKey)
	if !ok {
		return tsdomain.Session{}, false
	}
	session, ok := v.(tsdomain.Session)
	return session, ok
}

func (s *Server) setSessionCookie(c *gin.Context, sessionID string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tsdomain.SessionCookie, sessionID, sessionMaxAge, "/", "", s.cfg.CookieSecure, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tsdomain.SessionCookie, "", -1, "/", "", s.cfg.CookieSecure, true)
}
