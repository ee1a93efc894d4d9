package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	analysisRuns     metric.Int64Counter
	analysisUsers    metric.Int64Counter
	analysisDuration metric.Float64Histogram
	recommendations  metric.Int64Counter
	summaries        metric.Int64Counter
	tenantSyncs      metric.Int64Counter
	imports          metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "seatwise"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	var err error
	if m.analysisRuns, err = meter.Int64Counter("seatwise_analysis_runs_total"); err != nil {
		return nil, err
	}
	if m.analysisUsers, err = meter.Int64Counter("seatwise_analysis_users_total"); err != nil {
		return nil, err
	}
	if m.analysisDuration, err = meter.Float64Histogram("seatwise_analysis_duration_seconds", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.recommendations, err = meter.Int64Counter("seatwise_recommendations_total"); err != nil {
		return nil, err
	}
	if m.summaries, err = meter.Int64Counter("seatwise_summaries_total"); err != nil {
		return nil, err
	}
	if m.tenantSyncs, err = meter.Int64Counter("seatwise_tenant_syncs_total"); err != nil {
		return nil, err
	}
	if m.imports, err = meter.Int64Counter("seatwise_imports_total"); err != nil {
		return nil, err
	}
	if m.rateLimitDenied, err = meter.Int64Counter("seatwise_rate_limit_denied_total"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordAnalysis records one batch analysis.
func (m *Metrics) RecordAnalysis(ctx context.Context, strategy string, users int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("strategy", strategy))...)
	m.analysisRuns.Add(ctx, 1, attrs)
	m.analysisUsers.Add(ctx, int64(users), attrs)
	m.analysisDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordRecommendations counts generated reasons by kind.
func (m *Metrics) RecordRecommendations(ctx context.Context, strategy, kind string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(
		attribute.String("strategy", strategy),
		attribute.String("kind", kind),
	)
	m.recommendations.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordSummary counts executive summary generations by outcome.
func (m *Metrics) RecordSummary(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.summaries.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("status", status))...))
}

// RecordTenantSync counts Microsoft tenant syncs by outcome.
func (m *Metrics) RecordTenantSync(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.tenantSyncs.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("status", status))...))
}

// RecordImport counts file imports by kind and outcome.
func (m *Metrics) RecordImport(ctx context.Context, kind, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	)
	m.imports.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"strategy":    {},
	"kind":        {},
	"status":      {},
	"endpoint":    {},
	"status_code": {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
