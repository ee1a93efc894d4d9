package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	JobReasonDeadlineExceeded     = "deadline_exceeded"
	JobReasonCanceled             = "canceled"
	JobReasonDBLockTimeout        = "db_lock_timeout"
	JobReasonSerializationFailure = "serialization_failure"
	JobReasonUniqueViolation      = "unique_violation"
	JobReasonNotFound             = "not_found"
	JobReasonUnknown              = "unknown"
)

// JobMetrics captures health signals for background maintenance jobs.
type JobMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	affected *prometheus.CounterVec
}

var (
	jobMetricsOnce sync.Once
	jobMetrics     *JobMetrics
)

// Jobs returns the process-wide job metrics registry.
func Jobs(cfg Config) *JobMetrics {
	jobMetricsOnce.Do(func() {
		jobMetrics = newJobMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return jobMetrics
}

func newJobMetrics(registerer prometheus.Registerer, cfg Config) *JobMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := constLabelsFor(cfg)

	m := &JobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "seatwise_job_runs_total",
			Help:        "Maintenance job runs by name.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "seatwise_job_duration_seconds",
			Help:        "Maintenance job latency.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			ConstLabels: constLabels,
		}, []string{"job"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "seatwise_job_errors_total",
			Help:        "Maintenance job errors by low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"job", "reason"}),
		affected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "seatwise_job_rows_affected_total",
			Help:        "Rows touched by maintenance jobs.",
			ConstLabels: constLabels,
		}, []string{"job"}),
	}

	m.runs = registerCounterVec(registerer, m.runs)
	m.errors = registerCounterVec(registerer, m.errors)
	m.affected = registerCounterVec(registerer, m.affected)
	m.duration = registerHistogramVec(registerer, m.duration)
	return m
}

// RecordRun records one job execution with its outcome.
func (m *JobMetrics) RecordRun(job string, elapsed time.Duration, affected int64, err error) {
	if m == nil {
		return
	}
	job = strings.TrimSpace(job)
	m.runs.WithLabelValues(job).Inc()
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
	if affected > 0 {
		m.affected.WithLabelValues(job).Add(float64(affected))
	}
	if err != nil {
		m.errors.WithLabelValues(job, ClassifyJobError(err)).Inc()
	}
}

// ClassifyJobError maps an error to a bounded reason label.
func ClassifyJobError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return JobReasonDeadlineExceeded
	}
	if errors.Is(err, context.Canceled) {
		return JobReasonCanceled
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return JobReasonUniqueViolation
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return JobReasonNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return JobReasonDBLockTimeout
		case "40001":
			return JobReasonSerializationFailure
		case "23505":
			return JobReasonUniqueViolation
		}
	}
	return JobReasonUnknown
}

func registerCounterVec(registerer prometheus.Registerer, vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := registerer.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return vec
}

func registerHistogramVec(registerer prometheus.Registerer, vec *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := registerer.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing
			}
		}
	}
	return vec
}
