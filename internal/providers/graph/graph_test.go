package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smallbiznis/seatwise/internal/cache"
	"github.com/smallbiznis/seatwise/internal/catalog"
	"github.com/smallbiznis/seatwise/internal/optimizer/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/oauth2"
)

const mailboxCSV = "Report Refresh Date,User Principal Name,Display Name,Storage Used (Byte),Prohibit Send/Receive Quota (Byte)\n" +
	"2025-06-01,alex@contoso.com,Alex,48318382080,53687091200\n"

type graphStub struct {
	srv        *httptest.Server
	skuCalls   atomic.Int32
	mailboxErr bool
	throttle   atomic.Int32
	waited     atomic.Int64
}

func newGraphStub(t *testing.T) *graphStub {
	t.Helper()
	s := &graphStub{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1.0/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"code":"InvalidAuthenticationToken"}}`)
			return
		}
		fmt.Fprint(w, `{"id":"u1","displayName":"Alex Wilber","mail":"","userPrincipalName":"alex@contoso.com"}`)
	})
	mux.HandleFunc("/v1.0/organization", func(w http.ResponseWriter, r *http.Request) {
		if s.throttle.Add(-1) >= 0 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"code":"TooManyRequests"}}`)
			return
		}
		fmt.Fprint(w, `{"value":[{"id":"tid-1","displayName":"Contoso Ltd"}]}`)
	})
	mux.HandleFunc("/v1.0/subscribedSkus", func(w http.ResponseWriter, r *http.Request) {
		s.skuCalls.Add(1)
		fmt.Fprint(w, `{"value":[
			{"skuId":"SKU-E5","skuPartNumber":"SPE_E5"},
			{"skuId":"sku-visio","skuPartNumber":"VISIOCLIENT"}
		]}`)
	})
	mux.HandleFunc("/v1.0/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eventual", r.Header.Get("ConsistencyLevel"))
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"value":[
				{"id":"u3","displayName":"Disabled","userPrincipalName":"old@contoso.com","accountEnabled":false,"assignedLicenses":[{"skuId":"sku-e5"}]},
				{"id":"u4","displayName":"Emily","userPrincipalName":"emily@contoso.com","accountEnabled":true,"assignedLicenses":[{"skuId":"unknown"}]}
			]}`)
			return
		}
		assert.Equal(t, "999", r.URL.Query().Get("$top"))
		fmt.Fprintf(w, `{"value":[
			{"id":"u1","displayName":"Alex","userPrincipalName":"Alex@contoso.com","department":"Engineering","accountEnabled":true,"assignedLicenses":[{"skuId":"sku-e5"},{"skuId":"SKU-VISIO"}]},
			{"id":"u2","displayName":"Room","userPrincipalName":"room@contoso.com","accountEnabled":true,"assignedLicenses":[]}
		],"@odata.nextLink":"%s/v1.0/users?page=2"}`, s.srv.URL)
	})
	mux.HandleFunc("/beta/reports/", func(w http.ResponseWriter, r *http.Request) {
		if s.mailboxErr {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, mailboxCSV)
	})
	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func newClient(t *testing.T, s *graphStub, skus SKUCache) *Client {
	t.Helper()
	return newClientWith(t, s, skus, Config{})
}

func newClientWith(t *testing.T, s *graphStub, skus SKUCache, cfg Config) *Client {
	t.Helper()
	cfg.BaseURL = s.srv.URL + "/v1.0"
	cfg.BetaURL = s.srv.URL + "/beta"
	cfg.MaxRetries = 2
	cfg.RetryBase = time.Millisecond
	f := NewFactory(cfg, zaptest.NewLogger(t), skus)
	f.wait = func(_ context.Context, d time.Duration) error {
		s.waited.Add(int64(d))
		return nil
	}
	return f.Client(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}))
}

func TestMeFallsBackToUPN(t *testing.T) {
	s := newGraphStub(t)
	me, err := newClient(t, s, nil).Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Alex Wilber", me.DisplayName)
	assert.Equal(t, "alex@contoso.com", me.Email())
}

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	s := newGraphStub(t)
	f := NewFactory(Config{BaseURL: s.srv.URL + "/v1.0"}, zaptest.NewLogger(t), nil)
	c := f.Client(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "stale"}))

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "InvalidAuthenticationToken", apiErr.Code)
}

func TestThrottledRequestsAreRetried(t *testing.T) {
	s := newGraphStub(t)
	s.throttle.Store(2)

	org, err := newClient(t, s, nil).Organization(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Contoso Ltd", org.DisplayName)
	assert.Equal(t, 6*time.Second, time.Duration(s.waited.Load()))
}

func TestRetryAfterIsCapped(t *testing.T) {
	s := newGraphStub(t)
	s.throttle.Store(1)

	_, err := newClientWith(t, s, nil, Config{MaxRetryAfter: time.Second}).Organization(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Second, time.Duration(s.waited.Load()))
}

func TestRetryAfterWaitStopsOnCancel(t *testing.T) {
	s := newGraphStub(t)
	s.throttle.Store(1)
	c := newClient(t, s, nil)
	c.wait = sleep

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Organization(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 5*time.Second, parseRetryAfter("5", now))
	assert.Equal(t, 90*time.Second, parseRetryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now))
	assert.Zero(t, parseRetryAfter("", now))
	assert.Zero(t, parseRetryAfter("-1", now))
	assert.Zero(t, parseRetryAfter("soon", now))
	assert.Zero(t, parseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now))
}

func TestThrottlingGivesUpAfterMaxRetries(t *testing.T) {
	s := newGraphStub(t)
	s.throttle.Store(10)

	_, err := newClient(t, s, nil).Organization(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, 3*time.Second, apiErr.RetryAfter)
	assert.Equal(t, 6*time.Second, time.Duration(s.waited.Load()))
}

func TestRosterMergesUsersAndMailboxes(t *testing.T) {
	s := newGraphStub(t)
	skus := cache.NewSKUCache()
	c := newClient(t, s, skus)

	roster, err := c.Roster(context.Background(), "tid-1", catalog.Default())
	require.NoError(t, err)
	assert.True(t, roster.MailboxReport)
	assert.Equal(t, 1, roster.UnknownSKUCount)

	require.Len(t, roster.Users, 2)
	alex := roster.Users[0]
	assert.Equal(t, "Alex@contoso.com", alex.UPN)
	assert.Equal(t, []string{catalog.Microsoft365E5, catalog.VisioPlan2}, alex.Licenses)
	assert.InDelta(t, 45.0, alex.UsageGB, 0.001)
	assert.InDelta(t, 50.0, alex.MaxGB, 0.001)
	assert.Equal(t, domain.StatusWarning, alex.Status)
	assert.Greater(t, alex.Cost, 0.0)

	emily := roster.Users[1]
	assert.Equal(t, "Unassigned", emily.Department)
	assert.Empty(t, emily.Licenses)

	_, err = c.Roster(context.Background(), "tid-1", catalog.Default())
	require.NoError(t, err)
	assert.Equal(t, int32(1), s.skuCalls.Load())
}

func TestRosterToleratesMissingMailboxReport(t *testing.T) {
	s := newGraphStub(t)
	s.mailboxErr = true

	roster, err := newClient(t, s, nil).Roster(context.Background(), "tid-1", catalog.Default())
	require.NoError(t, err)
	assert.False(t, roster.MailboxReport)
	require.Len(t, roster.Users, 2)
	assert.Zero(t, roster.Users[0].MaxGB)
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{Status: 503}
	assert.True(t, strings.Contains(err.Error(), "503"))
	assert.Nil(t, err.Unwrap())
}
