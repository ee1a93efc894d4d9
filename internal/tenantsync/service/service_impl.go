package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/seatwise/internal/authorization"
	"github.com/smallbiznis/seatwise/internal/cache"
	"github.com/smallbiznis/seatwise/internal/catalog"
	"github.com/smallbiznis/seatwise/internal/clock"
	"github.com/smallbiznis/seatwise/internal/config"
	"github.com/smallbiznis/seatwise/internal/observability/logger"
	"github.com/smallbiznis/seatwise/internal/observability/metrics"
	"github.com/smallbiznis/seatwise/internal/providers/graph"
	"github.com/smallbiznis/seatwise/internal/tenantsync/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
	"gorm.io/gorm"
)

const (
	stateTTL    = 10 * time.Minute
	statePrefix = "oauth_state:"

	graphAudience   = "https://graph.microsoft.com"
	graphAudienceID = "00000003-0000-0000-c000-000000000000"
)

// Scopes requested at sign-in.
var Scopes = []string{
	"User.Read",
	"User.Read.All",
	"Reports.Read.All",
	"Organization.Read.All",
	"offline_access",
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Config  config.Config
	GenID   *snowflake.Node
	Repo    domain.Repository
	KV      cache.KV
	Graph   *graph.Factory
	Catalog *catalog.Holder
	Authz   authorization.Service
	Sealer  *Sealer
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	oauth   *oauth2.Config
	genID   *snowflake.Node
	repo    domain.Repository
	kv      cache.KV
	graph   *graph.Factory
	catalog *catalog.Holder
	authz   authorization.Service
	sealer  *Sealer
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	ms := p.Config.Microsoft
	tenant := strings.TrimSpace(ms.TenantID)
	if tenant == "" {
		tenant = "common"
	}
	return &Service{
		db:  p.DB,
		log: p.Log.Named("tenantsync.service"),
		oauth: &oauth2.Config{
			ClientID:     ms.ClientID,
			ClientSecret: ms.ClientSecret,
			RedirectURL:  ms.RedirectURL,
			Scopes:       Scopes,
			Endpoint:     microsoft.AzureADEndpoint(tenant),
		},
		genID:   p.GenID,
		repo:    p.Repo,
		kv:      p.KV,
		graph:   p.Graph,
		catalog: p.Catalog,
		authz:   p.Authz,
		sealer:  p.Sealer,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *Service) Configured() bool {
	return s.oauth.ClientID != "" && s.oauth.ClientSecret != "" && s.sealer != nil
}

// LoginURL starts the authorization code flow with a single-use state.
func (s *Service) LoginURL(ctx context.Context) (string, error) {
	if !s.Configured() {
		return "", domain.ErrNotConfigured
	}
	state := ulid.Make().String()
	if err := s.kv.Set(ctx, statePrefix+state, "1", stateTTL); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return s.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("response_mode", "query"),
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

func (s *Service) Callback(ctx context.Context, req domain.CallbackRequest) (domain.Session, error) {
	if !s.Configured() {
		return domain.Session{}, domain.ErrNotConfigured
	}
	if strings.TrimSpace(req.Error) != "" {
		return domain.Session{}, domain.ErrConsentDenied
	}
	state := strings.TrimSpace(req.State)
	if state == "" {
		return domain.Session{}, domain.ErrInvalidState
	}
	_, ok, err := s.kv.Take(ctx, statePrefix+state)
	if err != nil {
		return domain.Session{}, fmt.Errorf("load oauth state: %w", err)
	}
	if !ok {
		return domain.Session{}, domain.ErrInvalidState
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return domain.Session{}, domain.ErrMissingCode
	}

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return domain.Session{}, fmt.Errorf("exchange authorization code: %w", err)
	}
	tenantID, err := tenantFromToken(tok.AccessToken)
	if err != nil {
		return domain.Session{}, err
	}

	client := s.graph.Client(ctx, oauth2.StaticTokenSource(tok))
	me, err := client.Me(ctx)
	if err != nil {
		return domain.Session{}, fmt.Errorf("fetch signed-in user: %w", err)
	}
	email := strings.ToLower(strings.TrimSpace(me.Email()))
	if email == "" {
		return domain.Session{}, domain.ErrInvalidToken
	}
	org, err := client.Organization(ctx)
	if err != nil {
		logger.WithContext(ctx, s.log).Warn("fetch organization", zap.String("tenant_id", tenantID), zap.Error(err))
	}

	now := s.clock.Now().UTC()
	record := domain.Token{
		ID:        s.genID.Generate(),
		SessionID: ulid.Make().String(),
		TenantID:  tenantID,
		UserEmail: email,
		UserName:  me.DisplayName,
		Company:   org.DisplayName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sealInto(&record, tok); err != nil {
		return domain.Session{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertToken(ctx, tx, &record); err != nil {
			return err
		}
		return s.repo.InsertLogin(ctx, tx, &domain.LoginEvent{
			ID:        s.genID.Generate(),
			TenantID:  tenantID,
			UserEmail: email,
			UserName:  me.DisplayName,
			IPAddress: req.IPAddress,
			UserAgent: req.UserAgent,
			CreatedAt: now,
		})
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("store microsoft session: %w", err)
	}
	role, err := s.authz.EnsureMember(ctx, authorization.UserActor(email), tenantID, authorization.RoleAdmin)
	if err != nil {
		return domain.Session{}, fmt.Errorf("grant tenant role: %w", err)
	}

	logger.WithContext(ctx, s.log).Info("microsoft sign-in",
		zap.String("tenant_id", tenantID),
		zap.String("role", role),
	)
	return domain.Session{
		ID:        record.SessionID,
		TenantID:  tenantID,
		UserEmail: email,
		UserName:  record.UserName,
		Company:   record.Company,
		Role:      role,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

func (s *Service) Session(ctx context.Context, sessionID string) (domain.Session, error) {
	record, err := s.load(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	role, err := s.authz.Role(ctx, authorization.UserActor(record.UserEmail), record.TenantID)
	if err != nil {
		return domain.Session{}, err
	}
	if role == "" {
		role = authorization.RoleViewer
	}
	return domain.Session{
		ID:        record.SessionID,
		TenantID:  record.TenantID,
		UserEmail: record.UserEmail,
		UserName:  record.UserName,
		Company:   record.Company,
		Role:      role,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

func (s *Service) Status(ctx context.Context, sessionID string) (domain.Status, error) {
	status := domain.Status{Configured: s.Configured()}
	if strings.TrimSpace(sessionID) == "" {
		return status, nil
	}
	record, err := s.load(ctx, sessionID)
	if errors.Is(err, domain.ErrNotConnected) || errors.Is(err, domain.ErrSessionExpired) {
		return status, nil
	}
	if err != nil {
		return domain.Status{}, err
	}
	status.Connected = true
	status.TenantID = record.TenantID
	status.UserEmail = record.UserEmail
	status.UserName = record.UserName
	status.Company = record.Company
	status.ExpiresAt = record.ExpiresAt
	return status, nil
}

// Sync pulls the tenant's licensed users and mailbox usage and prices them
// against the current catalog.
func (s *Service) Sync(ctx context.Context, sessionID string) (domain.SyncResult, error) {
	record, err := s.load(ctx, sessionID)
	if err != nil {
		return domain.SyncResult{}, err
	}
	client, err := s.client(ctx, record)
	if err != nil {
		return domain.SyncResult{}, err
	}

	start := s.clock.Now()
	roster, err := client.Roster(ctx, record.TenantID, s.catalog.Snapshot())
	if err != nil {
		s.metrics.RecordTenantSync(ctx, "error")
		return domain.SyncResult{}, s.graphError(err)
	}
	s.metrics.RecordTenantSync(ctx, "success")

	logger.WithContext(ctx, s.log).Info("tenant synced",
		zap.String("tenant_id", record.TenantID),
		zap.Int("users", len(roster.Users)),
		zap.Bool("mailbox_report", roster.MailboxReport),
		zap.Duration("elapsed", s.clock.Now().Sub(start)),
	)
	return domain.SyncResult{
		Users:           roster.Users,
		Source:          "microsoft",
		SyncedAt:        s.clock.Now().UTC(),
		MailboxReport:   roster.MailboxReport,
		UnknownSKUCount: roster.UnknownSKUCount,
	}, nil
}

func (s *Service) Subscriptions(ctx context.Context, sessionID string) ([]domain.Subscription, error) {
	record, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	client, err := s.client(ctx, record)
	if err != nil {
		return nil, err
	}
	skus, err := client.SubscribedSKUs(ctx)
	if err != nil {
		return nil, s.graphError(err)
	}

	cat := s.catalog.Snapshot()
	out := make([]domain.Subscription, 0, len(skus))
	for _, sku := range skus {
		info := cat.Resolve(sku.SkuPartNumber)
		name := info.DisplayName
		if name == "" {
			name = sku.SkuPartNumber
		}
		out = append(out, domain.Subscription{
			SkuID:         sku.SkuID,
			SkuPartNumber: sku.SkuPartNumber,
			DisplayName:   name,
			CostPerUser:   info.CostPerMonth,
			Enabled:       sku.PrepaidUnits.Enabled,
			Consumed:      sku.ConsumedUnits,
			Available:     max(sku.PrepaidUnits.Enabled-sku.ConsumedUnits, 0),
		})
	}
	return out, nil
}

func (s *Service) Logout(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}
	if _, err := s.repo.DeleteToken(ctx, s.db, sessionID); err != nil {
		return err
	}
	logger.WithContext(ctx, s.log).Info("microsoft sign-out")
	return nil
}

func (s *Service) load(ctx context.Context, sessionID string) (*domain.Token, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.ErrNotConnected
	}
	record, err := s.repo.FindToken(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrNotConnected
	}
	if len(record.RefreshTokenSealed) == 0 && !record.ExpiresAt.After(s.clock.Now()) {
		return nil, domain.ErrSessionExpired
	}
	return record, nil
}

// client builds a Graph client whose token source refreshes through Entra
// ID and persists rotated tokens.
func (s *Service) client(ctx context.Context, record *domain.Token) (*graph.Client, error) {
	if s.sealer == nil {
		return nil, domain.ErrNotConfigured
	}
	access, err := s.sealer.Open(record.AccessTokenSealed)
	if err != nil {
		return nil, domain.ErrSessionExpired
	}
	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer", Expiry: record.ExpiresAt}
	if len(record.RefreshTokenSealed) > 0 {
		if tok.RefreshToken, err = s.sealer.Open(record.RefreshTokenSealed); err != nil {
			return nil, domain.ErrSessionExpired
		}
	}

	ts := &persistingSource{
		base:    s.oauth.TokenSource(ctx, tok),
		last:    tok.AccessToken,
		persist: func(t *oauth2.Token) error { return s.persist(ctx, record, t) },
	}
	return s.graph.Client(ctx, ts), nil
}

func (s *Service) persist(ctx context.Context, record *domain.Token, tok *oauth2.Token) error {
	if err := s.sealInto(record, tok); err != nil {
		return err
	}
	record.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.UpdateToken(context.WithoutCancel(ctx), s.db, record); err != nil {
		return fmt.Errorf("persist refreshed token: %w", err)
	}
	logger.WithContext(ctx, s.log).Debug("microsoft token refreshed", zap.String("tenant_id", record.TenantID))
	return nil
}

func (s *Service) sealInto(record *domain.Token, tok *oauth2.Token) error {
	access, err := s.sealer.Seal(tok.AccessToken)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	record.AccessTokenSealed = access
	if tok.RefreshToken != "" {
		refresh, err := s.sealer.Seal(tok.RefreshToken)
		if err != nil {
			return fmt.Errorf("seal refresh token: %w", err)
		}
		record.RefreshTokenSealed = refresh
	}
	record.ExpiresAt = tok.Expiry.UTC()
	if tok.Expiry.IsZero() {
		record.ExpiresAt = s.clock.Now().UTC().Add(time.Hour)
	}
	return nil
}

func (s *Service) graphError(err error) error {
	var retrieve *oauth2.RetrieveError
	if errors.Is(err, graph.ErrUnauthorized) || errors.As(err, &retrieve) {
		return fmt.Errorf("%w: %v", domain.ErrSessionExpired, err)
	}
	return err
}

// tenantFromToken reads the tid claim and checks the token was issued by
// Entra ID for Microsoft Graph. The signature is verified by Graph itself.
func tenantFromToken(accessToken string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	if aud, _ := claims.GetAudience(); len(aud) > 0 {
		ok := false
		for _, a := range aud {
			if a == graphAudience || a == graphAudienceID {
				ok = true
			}
		}
		if !ok {
			return "", fmt.Errorf("%w: unexpected audience", domain.ErrInvalidToken)
		}
	}
	if iss, _ := claims.GetIssuer(); iss != "" &&
		!strings.HasPrefix(iss, "https://sts.windows.net/") &&
		!strings.HasPrefix(iss, "https://login.microsoftonline.com/") {
		return "", fmt.Errorf("%w: unexpected issuer", domain.ErrInvalidToken)
	}

	tid, _ := claims["tid"].(string)
	if strings.TrimSpace(tid) == "" {
		return "", fmt.Errorf("%w: missing tenant", domain.ErrInvalidToken)
	}
	return tid, nil
}

// persistingSource saves the token whenever the underlying source hands out
// a new access token.
type persistingSource struct {
	mu      sync.Mutex
	base    oauth2.TokenSource
	last    string
	persist func(*oauth2.Token) error
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		if err := p.persist(tok); err != nil {
			return nil, err
		}
	}
	return tok, nil
}
