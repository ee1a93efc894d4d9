package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/seatwise/internal/authorization"
)

type ActorType string

const (
	ActorUser   ActorType = "microsoft_user"
	ActorSystem ActorType = "system"
)

type Actor struct {
	Type      ActorType
	TenantID  string
	ID        string
	SessionID string
}

func (s *Server) authorizeTenantAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authz.Authorize(c.Request.Context(), actor.subject(), actor.TenantID, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func actorFromContext(c *gin.Context) (Actor, bool) {
	if c == nil {
		return Actor{}, false
	}
	v, ok := c.Get(contextActorKey)
	if !ok {
		return Actor{}, false
	}
	actor, ok := v.(Actor)
	if !ok || actor.TenantID == "" {
		return Actor{}, false
	}
	return actor, true
}

func (a Actor) subject() string {
	switch a.Type {
	case ActorUser:
		return authorization.UserActor(a.ID)
	case ActorSystem:
		return authorization.ActorSystem
	default:
		return ""
	}
}
