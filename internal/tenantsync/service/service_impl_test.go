package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/seatwise/internal/authorization"
	"github.com/smallbiznis/seatwise/internal/cache"
	"github.com/smallbiznis/seatwise/internal/catalog"
	"github.com/smallbiznis/seatwise/internal/clock"
	"github.com/smallbiznis/seatwise/internal/config"
	"github.com/smallbiznis/seatwise/internal/providers/graph"
	"github.com/smallbiznis/seatwise/internal/tenantsync/domain"
	"github.com/smallbiznis/seatwise/internal/tenantsync/repository"
	"github.com/smallbiznis/seatwise/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

func accessToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test"))
	require.NoError(t, err)
	return signed
}

type entraStub struct {
	srv       *httptest.Server
	access    atomic.Value
	refreshed atomic.Int32
}

func newEntraStub(t *testing.T) *entraStub {
	t.Helper()
	stub := &entraStub{}
	first := accessToken(t, jwt.MapClaims{
		"tid": "tid-1",
		"aud": "https://graph.microsoft.com",
		"iss": "https://sts.windows.net/tid-1/",
	})
	second := accessToken(t, jwt.MapClaims{
		"tid": "tid-1",
		"aud": "00000003-0000-0000-c000-000000000000",
		"iss": "https://sts.windows.net/tid-1/",
		"n":   2,
	})
	stub.access.Store(first)

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		token := first
		if r.PostForm.Get("grant_type") == "refresh_token" {
			assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))
			stub.refreshed.Add(1)
			token = second
			stub.access.Store(second)
		} else {
			assert.Equal(t, "auth-code", r.PostForm.Get("code"))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  token,
			"refresh_token": "refresh-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})
	authorized := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("Authorization") != "Bearer "+stub.access.Load().(string) {
			w.WriteHeader(http.StatusUnauthorized)
			return false
		}
		return true
	}
	mux.HandleFunc("/v1.0/me", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			fmt.Fprint(w, `{"id":"u1","displayName":"Alex Wilber","mail":"Alex@Contoso.com"}`)
		}
	})
	mux.HandleFunc("/v1.0/organization", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			fmt.Fprint(w, `{"value":[{"id":"tid-1","displayName":"Contoso Ltd"}]}`)
		}
	})
	mux.HandleFunc("/v1.0/subscribedSkus", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			fmt.Fprint(w, `{"value":[{"skuId":"sku-e3","skuPartNumber":"SPE_E3","consumedUnits":8,"prepaidUnits":{"enabled":10}}]}`)
		}
	})
	mux.HandleFunc("/v1.0/users", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			fmt.Fprint(w, `{"value":[{"id":"u1","displayName":"Alex","userPrincipalName":"alex@contoso.com","accountEnabled":true,"assignedLicenses":[{"skuId":"sku-e3"}]}]}`)
		}
	})
	mux.HandleFunc("/beta/reports/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	stub.srv = httptest.NewServer(mux)
	t.Cleanup(stub.srv.Close)
	return stub
}

type fixture struct {
	svc  *Service
	db   *gorm.DB
	stub *entraStub
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	stub := newEntraStub(t)
	conn := dbtest.Open(t)
	log := zaptest.NewLogger(t)
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)
	sealer, err := NewSealer("correct horse battery staple")
	require.NoError(t, err)

	svc := New(Params{
		DB:  conn,
		Log: log,
		Config: config.Config{Microsoft: config.MicrosoftConfig{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "https://seatwise.test/auth/microsoft/callback",
		}},
		GenID: node,
		Repo:  repository.Provide(),
		KV:    cache.NewMemoryKV(),
		Graph: graph.NewFactory(graph.Config{
			BaseURL:   stub.srv.URL + "/v1.0",
			BetaURL:   stub.srv.URL + "/beta",
			RetryBase: time.Millisecond,
		}, log, cache.NewSKUCache()),
		Catalog: catalog.NewStaticHolder(catalog.Default()),
		Authz:   authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer}),
		Sealer:  sealer,
		Clock:   clock.System(),
	}).(*Service)
	svc.oauth.Endpoint = oauth2.Endpoint{
		AuthURL:   stub.srv.URL + "/authorize",
		TokenURL:  stub.srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	return fixture{svc: svc, db: conn, stub: stub}
}

func (f fixture) signIn(t *testing.T) domain.Session {
	t.Helper()
	ctx := context.Background()
	login, err := f.svc.LoginURL(ctx)
	require.NoError(t, err)
	u, err := url.Parse(login)
	require.NoError(t, err)

	session, err := f.svc.Callback(ctx, domain.CallbackRequest{
		Code:      "auth-code",
		State:     u.Query().Get("state"),
		IPAddress: "203.0.113.9",
		UserAgent: "test",
	})
	require.NoError(t, err)
	return session
}

func TestLoginURL(t *testing.T) {
	f := newFixture(t)
	login, err := f.svc.LoginURL(context.Background())
	require.NoError(t, err)

	u, err := url.Parse(login)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "client", q.Get("client_id"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Contains(t, q.Get("scope"), "Reports.Read.All")
	assert.Len(t, q.Get("state"), 26)
}

func TestCallbackCreatesSession(t *testing.T) {
	f := newFixture(t)
	session := f.signIn(t)

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "tid-1", session.TenantID)
	assert.Equal(t, "alex@contoso.com", session.UserEmail)
	assert.Equal(t, "Contoso Ltd", session.Company)
	assert.Equal(t, authorization.RoleAdmin, session.Role)

	var record domain.Token
	require.NoError(t, f.db.Where("session_id = ?", session.ID).First(&record).Error)
	assert.False(t, bytes.Contains(record.AccessTokenSealed, []byte("eyJ")))
	assert.NotEmpty(t, record.RefreshTokenSealed)

	logins, err := repository.Provide().ListLogins(context.Background(), f.db, "tid-1", 10)
	require.NoError(t, err)
	require.Len(t, logins, 1)
	assert.Equal(t, "203.0.113.9", logins[0].IPAddress)

	status, err := f.svc.Status(context.Background(), session.ID)
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.True(t, status.Connected)
	assert.Equal(t, "Contoso Ltd", status.Company)
}

func TestCallbackRejectsBadState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Callback(ctx, domain.CallbackRequest{Code: "auth-code", State: "forged"})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.svc.Callback(ctx, domain.CallbackRequest{Error: "access_denied"})
	assert.ErrorIs(t, err, domain.ErrConsentDenied)

	login, err := f.svc.LoginURL(ctx)
	require.NoError(t, err)
	u, _ := url.Parse(login)
	state := u.Query().Get("state")

	_, err = f.svc.Callback(ctx, domain.CallbackRequest{Code: "auth-code", State: state})
	require.NoError(t, err)
	_, err = f.svc.Callback(ctx, domain.CallbackRequest{Code: "auth-code", State: state})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestSyncReturnsPricedRoster(t *testing.T) {
	f := newFixture(t)
	session := f.signIn(t)

	res, err := f.svc.Sync(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, "microsoft", res.Source)
	assert.False(t, res.MailboxReport)
	require.Len(t, res.Users, 1)
	assert.Equal(t, []string{catalog.Microsoft365E3}, res.Users[0].Licenses)
	assert.InDelta(t, 36.0, res.Users[0].Cost, 0.001)

	subs, err := f.svc.Subscriptions(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, catalog.Microsoft365E3, subs[0].DisplayName)
	assert.Equal(t, 2, subs[0].Available)
}

func TestExpiredTokenIsRefreshedAndPersisted(t *testing.T) {
	f := newFixture(t)
	session := f.signIn(t)

	require.NoError(t, f.db.Model(&domain.Token{}).
		Where("session_id = ?", session.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	_, err := f.svc.Sync(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.stub.refreshed.Load())

	var record domain.Token
	require.NoError(t, f.db.Where("session_id = ?", session.ID).First(&record).Error)
	access, err := f.svc.sealer.Open(record.AccessTokenSealed)
	require.NoError(t, err)
	assert.Equal(t, f.stub.access.Load().(string), access)
	assert.True(t, record.ExpiresAt.After(time.Now()))
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	session := f.signIn(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Logout(ctx, session.ID))
	require.NoError(t, f.svc.Logout(ctx, session.ID))

	status, err := f.svc.Status(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, status.Connected)

	_, err = f.svc.Sync(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestNotConfigured(t *testing.T) {
	f := newFixture(t)
	f.svc.oauth.ClientID = ""

	_, err := f.svc.LoginURL(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotConfigured)

	status, err := f.svc.Status(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, status.Configured)
}

func TestTenantFromToken(t *testing.T) {
	tid, err := tenantFromToken(accessToken(t, jwt.MapClaims{"tid": "abc", "aud": "https://graph.microsoft.com"}))
	require.NoError(t, err)
	assert.Equal(t, "abc", tid)

	_, err = tenantFromToken(accessToken(t, jwt.MapClaims{"tid": "abc", "aud": "api://other"}))
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = tenantFromToken(accessToken(t, jwt.MapClaims{"tid": "abc", "iss": "https://evil.example.com/"}))
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = tenantFromToken(accessToken(t, jwt.MapClaims{"aud": "https://graph.microsoft.com"}))
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = tenantFromToken("not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestSealer(t *testing.T) {
	s, err := NewSealer("00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff")
	require.NoError(t, err)

	sealed, err := s.Seal("secret-token")
	require.NoError(t, err)
	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", plain)

	sealed[len(sealed)-1] ^= 0xff
	_, err = s.Open(sealed)
	assert.ErrorIs(t, err, ErrSealedToken)

	other, err := NewSealer("a different passphrase")
	require.NoError(t, err)
	again, err := s.Seal("secret-token")
	require.NoError(t, err)
	_, err = other.Open(again)
	assert.ErrorIs(t, err, ErrSealedToken)

	_, err = NewSealer("  ")
	assert.Error(t, err)
}

func TestProvideSealer(t *testing.T) {
	log := zaptest.NewLogger(t)

	s, err := ProvideSealer(config.Config{}, log)
	require.NoError(t, err)
	assert.Nil(t, s)

	enabled := config.Config{Microsoft: config.MicrosoftConfig{ClientID: "c", ClientSecret: "s"}}
	s, err = ProvideSealer(enabled, log)
	require.NoError(t, err)
	assert.NotNil(t, s)

	enabled.Environment = "production"
	_, err = ProvideSealer(enabled, log)
	assert.Error(t, err)
}
