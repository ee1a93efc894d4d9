package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/seatwise/internal/authorization"
	"github.com/smallbiznis/seatwise/internal/catalog"
	"github.com/smallbiznis/seatwise/internal/clock"
	"github.com/smallbiznis/seatwise/internal/config"
	optdomain "github.com/smallbiznis/seatwise/internal/optimizer/domain"
	optservice "github.com/smallbiznis/seatwise/internal/optimizer/service"
	"github.com/smallbiznis/seatwise/internal/providers/llm"
	"github.com/smallbiznis/seatwise/internal/providers/pdf"
	"github.com/smallbiznis/seatwise/internal/ratelimit"
	reportrepo "github.com/smallbiznis/seatwise/internal/report/repository"
	reportservice "github.com/smallbiznis/seatwise/internal/report/service"
	summaryrepo "github.com/smallbiznis/seatwise/internal/summary/repository"
	summaryservice "github.com/smallbiznis/seatwise/internal/summary/service"
	tsdomain "github.com/smallbiznis/seatwise/internal/tenantsync/domain"
	"github.com/smallbiznis/seatwise/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fakeLLM struct {
	chunks []string
	err    error
}

func (f *fakeLLM) Model() string { return "test/model" }

func (f *fakeLLM) Stream(_ context.Context, _ llm.CompletionRequest, onChunk func(string) error) (llm.Completion, error) {
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	var b strings.Builder
	for _, c := range f.chunks {
		if err := onChunk(c); err != nil {
			return llm.Completion{}, err
		}
		b.WriteString(c)
	}
	return llm.Completion{Content: b.String()}, nil
}

type fakeTenantSync struct {
	sessions    map[string]tsdomain.Session
	callbackErr error
	loggedOut   []string
}

func (f *fakeTenantSync) Configured() bool { return true }

func (f *fakeTenantSync) LoginURL(context.Context) (string, error) {
	return "https://login.example.com/authorize?state=abc", nil
}

func (f *fakeTenantSync) Callback(_ context.Context, req tsdomain.CallbackRequest) (tsdomain.Session, error) {
	if f.callbackErr != nil {
		return tsdomain.Session{}, f.callbackErr
	}
	if req.State != "abc" {
		return tsdomain.Session{}, tsdomain.ErrInvalidState
	}
	return f.sessions["sid-admin"], nil
}

func (f *fakeTenantSync) Session(_ context.Context, sessionID string) (tsdomain.Session, error) {
	session, ok := f.sessions[sessionID]
	if !ok {
		return tsdomain.Session{}, tsdomain.ErrNotConnected
	}
	return session, nil
}

func (f *fakeTenantSync) Status(ctx context.Context, sessionID string) (tsdomain.Status, error) {
	session, err := f.Session(ctx, sessionID)
	if err != nil {
		return tsdomain.Status{Configured: true}, nil
	}
	return tsdomain.Status{Configured: true, Connected: true, TenantID: session.TenantID, UserEmail: session.UserEmail}, nil
}

func (f *fakeTenantSync) Sync(_ context.Context, sessionID string) (tsdomain.SyncResult, error) {
	return tsdomain.SyncResult{
		Users:  []optdomain.UserRecord{{ID: "1", UPN: "alex@contoso.com", Licenses: []string{"SPE_E3"}}},
		Source: "microsoft_graph",
	}, nil
}

func (f *fakeTenantSync) Subscriptions(context.Context, string) ([]tsdomain.Subscription, error) {
	return []tsdomain.Subscription{{SkuPartNumber: "SPE_E3", Enabled: 10, Consumed: 8, Available: 2}}, nil
}

func (f *fakeTenantSync) Logout(_ context.Context, sessionID string) error {
	f.loggedOut = append(f.loggedOut, sessionID)
	delete(f.sessions, sessionID)
	return nil
}

type fixture struct {
	engine *gin.Engine
	llm    *fakeLLM
	sync   *fakeTenantSync
}

func newFixture(t *testing.T, cfg config.Config) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	conn := dbtest.Open(t)
	log := zaptest.NewLogger(t)
	holder := catalog.NewStaticHolder(catalog.Default())
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer})
	require.NoError(t, authz.AssignRole(context.Background(), "user:admin@contoso.com", "contoso", authorization.RoleAdmin))

	optimizer := optservice.New(optservice.Params{Config: cfg, Log: log, Catalog: holder})
	reports := reportservice.New(reportservice.Params{
		DB:        conn,
		Log:       log,
		GenID:     node,
		Repo:      reportrepo.Provide(),
		Optimizer: optimizer,
		Catalog:   holder,
		Clock:     fake,
	})
	model := &fakeLLM{chunks: []string{"## Executive Overview\n", "Move HR to E3."}}
	summaries := summaryservice.New(summaryservice.Params{
		DB:        conn,
		Log:       log,
		GenID:     node,
		Repo:      summaryrepo.Provide(),
		Reports:   reports,
		Optimizer: optimizer,
		LLM:       model,
		Limiter:   ratelimit.NewSummaryLimiter(config.Config{}, nil),
		Clock:     fake,
	})
	sync := &fakeTenantSync{sessions: map[string]tsdomain.Session{
		"sid-admin":  {ID: "sid-admin", TenantID: "contoso", UserEmail: "admin@contoso.com", UserName: "Admin", Company: "Contoso Ltd", Role: authorization.RoleAdmin},
		"sid-viewer": {ID: "sid-viewer", TenantID: "contoso", UserEmail: "viewer@contoso.com", UserName: "Viewer", Role: authorization.RoleViewer},
	}}

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	NewServer(ServerParams{
		Gin:        engine,
		Cfg:        cfg,
		Log:        log,
		Catalog:    holder,
		Optimizer:  optimizer,
		Reports:    reports,
		Summaries:  summaries,
		TenantSync: sync,
		Authz:      authz,
		PDF:        pdf.New(),
		Clock:      fake,
	})
	return fixture{engine: engine, llm: model, sync: sync}
}

func devConfig() config.Config {
	return config.Config{Environment: "development", AllowTenantHeader: true, PublicURL: "http://app.local"}
}

type request struct {
	method  string
	path    string
	body    any
	tenant  string
	session string
}

func (f fixture) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if r.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(r.body))
	}
	req := httptest.NewRequest(r.method, r.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if r.tenant != "" {
		req.Header.Set(HeaderTenant, r.tenant)
	}
	if r.session != "" {
		req.AddCookie(&http.Cookie{Name: tsdomain.SessionCookie, Value: r.session})
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out.Data
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var out errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out.Error
}

func sampleUsers() []optdomain.UserRecord {
	return []optdomain.UserRecord{
		{ID: "1", DisplayName: "Alex Wilber", UPN: "alex@contoso.com", Department: "Engineering", Licenses: []string{"SPE_E5"}, UsageGB: 45, MaxGB: 100},
		{ID: "2", DisplayName: "Emily Braun", UPN: "emily@contoso.com", Department: "HR", Licenses: []string{"SPE_E5"}, UsageGB: 2, MaxGB: 100},
	}
}

func createReport(t *testing.T, f fixture) string {
	t.Helper()
	w := f.do(t, request{
		method: http.MethodPost,
		path:   "/api/reports",
		tenant: "contoso",
		body:   map[string]any{"name": "Q3 review", "strategy": "balanced", "users": sampleUsers()},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		ID     string `json:"id"`
		Source string `json:"source"`
	}](t, w)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "upload", created.Source)
	return created.ID
}

func TestResolveLicense(t *testing.T) {
	f := newFixture(t, devConfig())

	w := f.do(t, request{method: http.MethodGet, path: "/api/catalog/resolve?id=SPE_E3"})
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[resolveLicenseResponse](t, w)
	assert.True(t, info.Known)
	assert.Equal(t, "SPE_E3", info.Input)
	assert.InDelta(t, 36.0, info.CostPerMonth, 0.001)

	w = f.do(t, request{method: http.MethodGet, path: "/api/catalog/resolve"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "required", errorBody(t, w).Errors[0].Code)
}

func TestAnalyzeRejectsUnknownStrategy(t *testing.T) {
	f := newFixture(t, devConfig())

	w := f.do(t, request{
		method: http.MethodPost,
		path:   "/api/analyze",
		body:   analyzeRequest{Users: sampleUsers(), Strategy: "reckless"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	payload := errorBody(t, w)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_strategy", payload.Errors[0].Code)
	assert.Equal(t, "strategy", payload.Errors[0].Field)
}

func TestAnalyzeAndCompare(t *testing.T) {
	f := newFixture(t, devConfig())

	w := f.do(t, request{
		method: http.MethodPost,
		path:   "/api/analyze",
		body:   analyzeRequest{Users: sampleUsers(), Strategy: "cost"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		Users []optdomain.AnalyzedUser `json:"users"`
		Stats optdomain.StrategyStats  `json:"stats"`
	}](t, w)
	require.Len(t, resp.Users, 2)
	assert.False(t, resp.Users[0].Changed)
	assert.Equal(t, []string{"Office 365 E1"}, resp.Users[1].Licenses)
	assert.Equal(t, optdomain.StrategyCost, resp.Stats.Strategy)
	assert.InDelta(t, 114.0, resp.Stats.BaseCost, 0.001)
	assert.InDelta(t, 67.0, resp.Stats.NewCost, 0.001)
	assert.InDelta(t, -47.0, resp.Stats.Delta, 0.001)
	assert.Equal(t, 1, resp.Stats.AffectedCount)
	assert.Equal(t, 2, resp.Stats.DowngradeCount)
	assert.Zero(t, resp.Stats.UpgradeCount)

	w = f.do(t, request{
		method: http.MethodPost,
		path:   "/api/analyze/compare",
		body:   compareRequest{Users: sampleUsers()},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stats := decode[[]optdomain.StrategyStats](t, w)
	require.Len(t, stats, 4)
	assert.Equal(t, optdomain.StrategyCurrent, stats[0].Strategy)
	assert.Zero(t, stats[0].Delta)
	assert.Equal(t, optdomain.StrategyCost, stats[2].Strategy)
	assert.InDelta(t, -47.0, stats[2].Delta, 0.001)
}

func TestReportsRequireTenant(t *testing.T) {
	f := newFixture(t, devConfig())
	w := f.do(t, request{method: http.MethodGet, path: "/api/reports"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	prod := devConfig()
	prod.Environment = "production"
	f = newFixture(t, prod)
	w = f.do(t, request{method: http.MethodGet, path: "/api/reports", tenant: "contoso"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportLifecycle(t *testing.T) {
	f := newFixture(t, devConfig())
	id := createReport(t, f)

	w := f.do(t, request{method: http.MethodGet, path: "/api/reports", tenant: "contoso"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = f.do(t, request{method: http.MethodGet, path: "/api/reports", tenant: "fabrikam"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]map[string]any](t, w))

	w = f.do(t, request{method: http.MethodGet, path: "/api/reports/" + id, tenant: "fabrikam"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, request{method: http.MethodGet, path: "/api/reports/" + id + "/analysis?strategy=balanced", tenant: "contoso"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	analysis := decode[struct {
		Strategy string                  `json:"strategy"`
		Users    []any                   `json:"users"`
		Stats    optdomain.StrategyStats `json:"stats"`
	}](t, w)
	assert.Equal(t, "balanced", analysis.Strategy)
	assert.Len(t, analysis.Users, 2)
	assert.InDelta(t, 114.0, analysis.Stats.BaseCost, 0.001)
	assert.InDelta(t, 93.0, analysis.Stats.NewCost, 0.001)
	assert.Equal(t, 1, analysis.Stats.AffectedCount)
	assert.Equal(t, 1, analysis.Stats.DowngradeCount)

	w = f.do(t, request{method: http.MethodDelete, path: "/api/reports/" + id, tenant: "contoso"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, request{method: http.MethodGet, path: "/api/reports/" + id, tenant: "contoso"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionRoles(t *testing.T) {
	f := newFixture(t, devConfig())

	w := f.do(t, request{
		method:  http.MethodPost,
		path:    "/api/reports",
		session: "sid-viewer",
		body:    map[string]any{"name": "Q3", "strategy": "balanced", "users": sampleUsers()},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, request{method: http.MethodGet, path: "/api/reports", session: "sid-viewer"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, request{
		method:  http.MethodPost,
		path:    "/api/reports",
		session: "sid-admin",
		body:    map[string]any{"name": "Q3", "strategy": "balanced", "users": sampleUsers()},
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, request{method: http.MethodPost, path: "/api/microsoft/sync", session: "sid-viewer"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, request{method: http.MethodPost, path: "/api/microsoft/sync", session: "sid-admin"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "microsoft_graph", decode[tsdomain.SyncResult](t, w).Source)

	w = f.do(t, request{method: http.MethodGet, path: "/api/microsoft/subscriptions", session: "sid-viewer"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[[]tsdomain.Subscription](t, w)[0].Available)
}

func TestSyncNeedsMicrosoftSession(t *testing.T) {
	f := newFixture(t, devConfig())
	w := f.do(t, request{method: http.MethodPost, path: "/api/microsoft/sync", tenant: "contoso"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUnknownSessionFallsBackToHeader(t *testing.T) {
	f := newFixture(t, devConfig())
	w := f.do(t, request{method: http.MethodGet, path: "/api/reports", session: "sid-gone", tenant: "contoso"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), tsdomain.SessionCookie+"=;")
}

func TestExportReport(t *testing.T) {
	f := newFixture(t, devConfig())
	id := createReport(t, f)

	w := f.do(t, request{method: http.MethodGet, path: "/api/reports/" + id + "/export", tenant: "contoso"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "q3-review-balanced.pdf")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestGenerateSummaryStreams(t *testing.T) {
	f := newFixture(t, devConfig())
	id := createReport(t, f)

	w := f.do(t, request{method: http.MethodPost, path: "/api/reports/" + id + "/summary", tenant: "contoso"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	var events []summaryEvent
	for _, line := range strings.Split(w.Body.String(), "\n") {
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var ev summaryEvent
		require.NoError(t, json.Unmarshal([]byte(data), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 3)
	assert.Equal(t, "## Executive Overview\n", events[0].Content)
	assert.True(t, events[2].Done)
	assert.NotEmpty(t, events[2].SummaryID)

	w = f.do(t, request{method: http.MethodGet, path: "/api/reports/" + id + "/summary", tenant: "contoso"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "## Executive Overview\nMove HR to E3.", decode[struct {
		Content string `json:"content"`
	}](t, w).Content)
}

func TestGenerateSummaryFailsBeforeStream(t *testing.T) {
	f := newFixture(t, devConfig())
	id := createReport(t, f)
	f.llm.err = llm.ErrNotConfigured

	w := f.do(t, request{method: http.MethodPost, path: "/api/reports/" + id + "/summary", tenant: "contoso"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "service_unavailable", errorBody(t, w).Type)
}

func TestUploadUsers(t *testing.T) {
	f := newFixture(t, devConfig())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "users.csv")
	require.NoError(t, err)
	_, err = fmt.Fprint(part, "Display name,User principal name,Department,Licenses\nAlex Wilber,alex@contoso.com,Sales,SPE_E3\nNo License,nolic@contoso.com,Sales,\n")
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload/users", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[struct {
		Users    []optdomain.UserRecord `json:"users"`
		Warnings []map[string]any       `json:"warnings"`
	}](t, w)
	require.Len(t, res.Users, 1)
	assert.InDelta(t, 36.0, res.Users[0].Cost, 0.001)
	assert.Len(t, res.Warnings, 1)

	w = f.do(t, request{method: http.MethodPost, path: "/api/upload/users"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMicrosoftCallback(t *testing.T) {
	f := newFixture(t, devConfig())

	w := f.do(t, request{method: http.MethodGet, path: "/auth/microsoft/callback?code=c&state=abc"})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://app.local/?microsoft=connected", w.Header().Get("Location"))
	assert.Contains(t, w.Header().Get("Set-Cookie"), tsdomain.SessionCookie+"=sid-admin")

	w = f.do(t, request{method: http.MethodGet, path: "/auth/microsoft/callback?code=c&state=zzz"})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://app.local/?microsoft_error=invalid_oauth_state", w.Header().Get("Location"))

	f.sync.callbackErr = tsdomain.ErrConsentDenied
	w = f.do(t, request{method: http.MethodGet, path: "/auth/microsoft/callback?error=access_denied"})
	assert.Equal(t, "http://app.local/?microsoft_error=forbidden", w.Header().Get("Location"))
}

func TestMicrosoftStatusAndLogout(t *testing.T) {
	f := newFixture(t, devConfig())

	w := f.do(t, request{method: http.MethodGet, path: "/api/microsoft/status", session: "sid-admin"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[tsdomain.Status](t, w).Connected)

	w = f.do(t, request{method: http.MethodPost, path: "/api/microsoft/logout", session: "sid-admin"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"sid-admin"}, f.sync.loggedOut)

	w = f.do(t, request{method: http.MethodGet, path: "/api/microsoft/status", session: "sid-admin"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[tsdomain.Status](t, w).Connected)
	assert.Contains(t, w.Header().Get("Set-Cookie"), tsdomain.SessionCookie+"=;")
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{fmt.Errorf("analyze: %w", optdomain.ErrRosterTooLarge), http.StatusRequestEntityTooLarge, "payload_too_large"},
		{fmt.Errorf("parse: %w", optdomain.ErrInvalidStrategy), http.StatusBadRequest, "validation_error"},
		{tsdomain.ErrSessionExpired, http.StatusUnauthorized, "unauthorized"},
		{authorization.ErrForbidden, http.StatusForbidden, "forbidden"},
		{tsdomain.ErrNotConfigured, http.StatusServiceUnavailable, "service_unavailable"},
		{fmt.Errorf("store: %w", tsdomain.ErrDuplicateRecord), http.StatusConflict, "conflict"},
		{errors.New("UNIQUE constraint failed: reports.id"), http.StatusConflict, "conflict"},
		{fmt.Errorf("find: %w", gorm.ErrRecordNotFound), http.StatusNotFound, "not_found"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.kind, payload.Type)
		})
	}
}
