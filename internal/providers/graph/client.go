package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"
	DefaultBetaURL = "https://graph.microsoft.com/beta"

	maxErrorBody = 2048
)

var (
	ErrUnauthorized = errors.New("graph_unauthorized")
	ErrForbidden    = errors.New("graph_forbidden")
)

// APIError is a non-2xx Graph response.
type APIError struct {
	Status     int
	Code       string
	Body       string
	// RetryAfter is the server's requested wait, zero when absent.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graph api error (%d): %s", e.Status, e.Code)
	}
	return fmt.Sprintf("graph api error (%d)", e.Status)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	default:
		return nil
	}
}

type Config struct {
	BaseURL       string
	BetaURL       string
	Timeout       time.Duration
	MaxRetries    uint64
	RetryBase     time.Duration
	// MaxRetryAfter caps how long a Retry-After header may stall a call.
	MaxRetryAfter time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.BetaURL == "" {
		c.BetaURL = DefaultBetaURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	c.BetaURL = strings.TrimRight(c.BetaURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	if c.MaxRetryAfter <= 0 {
		c.MaxRetryAfter = 30 * time.Second
	}
	return c
}

// Factory builds Graph clients bound to a signed-in user's token.
type Factory struct {
	cfg  Config
	log  *zap.Logger
	skus SKUCache
	wait func(context.Context, time.Duration) error
}

// SKUCache remembers a tenant's skuId to part number map between syncs.
type SKUCache interface {
	Get(tenantID string) (map[string]string, bool)
	Set(tenantID string, skus map[string]string)
}

func NewFactory(cfg Config, log *zap.Logger, skus SKUCache) *Factory {
	return &Factory{cfg: cfg.withDefaults(), log: log.Named("graph.client"), skus: skus, wait: sleep}
}

// Client calls Microsoft Graph with a bearer token from its token source.
type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
	skus SKUCache
	wait func(context.Context, time.Duration) error
}

func (f *Factory) Client(ctx context.Context, ts oauth2.TokenSource) *Client {
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = f.cfg.Timeout
	return &Client{cfg: f.cfg, http: hc, log: f.log, skus: f.skus, wait: f.wait}
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	body, err := c.get(ctx, url, "application/json")
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("decode graph response: %w", err)
	}
	return nil
}

// get issues a GET, retrying throttling and transient server errors. A
// Retry-After header delays the next attempt by at least its value.
func (c *Client) get(ctx context.Context, url, accept string) (io.ReadCloser, error) {
	var body io.ReadCloser
	var attempt uint64
	backoff := retry.WithMaxRetries(c.cfg.MaxRetries, retry.NewExponential(c.cfg.RetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", accept)
		req.Header.Set("ConsistencyLevel", "eventual")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			body = resp.Body
			return nil
		}

		apiErr := readAPIError(resp, time.Now())
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			return apiErr
		}
		attempt++
		if attempt > c.cfg.MaxRetries {
			return apiErr
		}
		c.log.Warn("graph request retry",
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Code),
			zap.Duration("retry_after", apiErr.RetryAfter),
		)
		if apiErr.RetryAfter > 0 {
			if err := c.wait(ctx, min(apiErr.RetryAfter, c.cfg.MaxRetryAfter)); err != nil {
				return err
			}
		}
		return retry.RetryableError(apiErr)
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func readAPIError(resp *http.Response, now time.Time) *APIError {
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &APIError{
		Status:     resp.StatusCode,
		Body:       string(raw),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), now),
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		apiErr.Code = payload.Error.Code
	}
	return apiErr
}

// parseRetryAfter reads a Retry-After value given in seconds or as an HTTP
// date. Invalid or past values yield zero.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
