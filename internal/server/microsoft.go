package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	tsdomain "github.com/smallbiznis/seatwise/internal/tenantsync/domain"
	"github.com/smallbiznis/seatwise/pkg/tenantctx"
	"go.uber.org/zap"
)

func (s *Server) MicrosoftLogin(c *gin.Context) {
	target, err := s.tenantSync.LoginURL(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Redirect(http.StatusFound, target)
}

// MicrosoftCallback completes sign-in and sends the browser back to the app.
// Failures are reported to the app as an error query parameter.
func (s *Server) MicrosoftCallback(c *gin.Context) {
	session, err := s.tenantSync.Callback(c.Request.Context(), tsdomain.CallbackRequest{
		Code:      c.Query("code"),
		State:     c.Query("state"),
		Error:     c.Query("error"),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		s.log.Warn("microsoft callback failed", zap.Error(err))
		_, code := classifyErrorForLog(err)
		c.Redirect(http.StatusFound, s.appURL("/?microsoft_error="+url.QueryEscape(code)))
		return
	}

	s.setSessionCookie(c, session.ID)
	c.Redirect(http.StatusFound, s.appURL("/?microsoft=connected"))
}

func (s *Server) MicrosoftStatus(c *gin.Context) {
	sid, _ := c.Cookie(tsdomain.SessionCookie)
	status, err := s.tenantSync.Status(c.Request.Context(), sid)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if strings.TrimSpace(sid) != "" && !status.Connected {
		s.clearSessionCookie(c)
	}
	c.JSON(http.StatusOK, gin.H{"data": status})
}

func (s *Server) MicrosoftSync(c *gin.Context) {
	sid, ok := tenantctx.SessionID(c.Request.Context())
	if !ok {
		AbortWithError(c, tsdomain.ErrNotConnected)
		return
	}

	res, err := s.tenantSync.Sync(c.Request.Context(), sid)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (s *Server) MicrosoftSubscriptions(c *gin.Context) {
	sid, ok := tenantctx.SessionID(c.Request.Context())
	if !ok {
		AbortWithError(c, tsdomain.ErrNotConnected)
		return
	}

	subs, err := s.tenantSync.Subscriptions(c.Request.Context(), sid)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": subs})
}

func (s *Server) MicrosoftLogout(c *gin.Context) {
	sid, _ := c.Cookie(tsdomain.SessionCookie)
	if err := s.tenantSync.Logout(c.Request.Context(), sid); err != nil {
		AbortWithError(c, err)
		return
	}
	s.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) appURL(path string) string {
	return strings.TrimRight(s.cfg.PublicURL, "/") + path
}
