package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/seatwise/internal/authorization"
	"github.com/smallbiznis/seatwise/internal/catalog"
	"github.com/smallbiznis/seatwise/internal/clock"
	"github.com/smallbiznis/seatwise/internal/config"
	"github.com/smallbiznis/seatwise/internal/maintenance"
	"github.com/smallbiznis/seatwise/internal/observability"
	obsmiddleware "github.com/smallbiznis/seatwise/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/seatwise/internal/observability/metrics"
	obstracing "github.com/smallbiznis/seatwise/internal/observability/tracing"
	"github.com/smallbiznis/seatwise/internal/optimizer"
	optdomain "github.com/smallbiznis/seatwise/internal/optimizer/domain"
	"github.com/smallbiznis/seatwise/internal/providers/graph"
	"github.com/smallbiznis/seatwise/internal/providers/llm"
	"github.com/smallbiznis/seatwise/internal/providers/pdf"
	"github.com/smallbiznis/seatwise/internal/ratelimit"
	"github.com/smallbiznis/seatwise/internal/report"
	reportdomain "github.com/smallbiznis/seatwise/internal/report/domain"
	"github.com/smallbiznis/seatwise/internal/summary"
	summarydomain "github.com/smallbiznis/seatwise/internal/summary/domain"
	"github.com/smallbiznis/seatwise/internal/tenantsync"
	tsdomain "github.com/smallbiznis/seatwise/internal/tenantsync/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	optimizer.Module,
	report.Module,
	llm.Module,
	ratelimit.Module,
	summary.Module,
	graph.Module,
	tenantsync.Module,
	pdf.Module,
	maintenance.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(log, obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, log, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger, shutdowner fx.Shutdowner) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	catalog    *catalog.Holder
	optimizer  optdomain.Service
	reports    reportdomain.Service
	summaries  summarydomain.Service
	tenantSync tsdomain.Service
	authz      authorization.Service
	pdf        pdf.Provider
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	Catalog    *catalog.Holder
	Optimizer  optdomain.Service
	Reports    reportdomain.Service
	Summaries  summarydomain.Service
	TenantSync tsdomain.Service
	Authz      authorization.Service
	PDF        pdf.Provider
	Clock      clock.Clock
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http.server"),
		catalog:    p.Catalog,
		optimizer:  p.Optimizer,
		reports:    p.Reports,
		summaries:  p.Summaries,
		tenantSync: p.TenantSync,
		authz:      p.Authz,
		pdf:        p.PDF,
		clock:      p.Clock,
		obsMetrics: p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.GET("/microsoft/login", s.MicrosoftLogin)
	auth.GET("/microsoft/callback", s.MicrosoftCallback)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Catalog & analysis --------
	api.GET("/catalog", s.ListCatalog)
	api.GET("/catalog/resolve", s.ResolveLicense)
	api.GET("/strategies/:strategy/rules", s.GetStrategyRules)
	api.POST("/analyze", s.Analyze)
	api.POST("/analyze/compare", s.Compare)

	// -------- Uploads --------
	api.POST("/upload/users", s.UploadUsers)
	api.POST("/upload/mailbox", s.UploadMailbox)
	api.POST("/upload/merge", s.MergeUpload)

	// -------- Microsoft --------
	api.GET("/microsoft/status", s.MicrosoftStatus)
	api.POST("/microsoft/logout", s.MicrosoftLogout)

	tenant := api.Group("", s.TenantContext())

	tenant.POST("/microsoft/sync", s.authorizeTenantAction(authorization.ObjectTenant, authorization.ActionSync), s.MicrosoftSync)
	tenant.GET("/microsoft/subscriptions", s.authorizeTenantAction(authorization.ObjectTenant, authorization.ActionRead), s.MicrosoftSubscriptions)

	// -------- Reports --------
	tenant.GET("/reports", s.authorizeTenantAction(authorization.ObjectReport, authorization.ActionRead), s.ListReports)
	tenant.POST("/reports", s.authorizeTenantAction(authorization.ObjectReport, authorization.ActionWrite), s.CreateReport)
	tenant.GET("/reports/:id", s.authorizeTenantAction(authorization.ObjectReport, authorization.ActionRead), s.GetReport)
	tenant.DELETE("/reports/:id", s.authorizeTenantAction(authorization.ObjectReport, authorization.ActionDelete), s.DeleteReport)
	tenant.GET("/reports/:id/analysis", s.authorizeTenantAction(authorization.ObjectReport, authorization.ActionRead), s.GetReportAnalysis)
	tenant.GET("/reports/:id/export", s.authorizeTenantAction(authorization.ObjectReport, authorization.ActionRead), s.ExportReport)

	// -------- Summaries --------
	tenant.GET("/reports/:id/summary", s.authorizeTenantAction(authorization.ObjectSummary, authorization.ActionRead), s.GetSummary)
	tenant.POST("/reports/:id/summary", s.authorizeTenantAction(authorization.ObjectSummary, authorization.ActionGenerate), s.GenerateSummary)
}
