package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClassifyJobError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", fmt.Errorf("purge: %w", context.DeadlineExceeded), JobReasonDeadlineExceeded},
		{"canceled", context.Canceled, JobReasonCanceled},
		{"duplicate", gorm.ErrDuplicatedKey, JobReasonUniqueViolation},
		{"not found", gorm.ErrRecordNotFound, JobReasonNotFound},
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, JobReasonDBLockTimeout},
		{"serialization", &pgconn.PgError{Code: "40001"}, JobReasonSerializationFailure},
		{"pg unique", &pgconn.PgError{Code: "23505"}, JobReasonUniqueViolation},
		{"other", errors.New("boom"), JobReasonUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyJobError(tc.err))
		})
	}
	assert.Empty(t, ClassifyJobError(nil))
}

func TestJobMetricsRecordRun(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newJobMetrics(registry, Config{ServiceName: "seatwise", Environment: "test"})

	m.RecordRun("purge_login_history", 20*time.Millisecond, 3, nil)
	m.RecordRun("purge_login_history", 10*time.Millisecond, 0, context.DeadlineExceeded)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("purge_login_history")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.affected.WithLabelValues("purge_login_history")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("purge_login_history", JobReasonDeadlineExceeded)))

	again := newJobMetrics(registry, Config{ServiceName: "seatwise", Environment: "test"})
	require.NotNil(t, again)
	assert.Equal(t, 2.0, testutil.ToFloat64(again.runs.WithLabelValues("purge_login_history")))
}

func TestHTTPMetricsRegister(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := newHTTPMetrics(registry, Config{})
	require.NoError(t, err)
	require.NotNil(t, m)

	_, err = newHTTPMetrics(registry, Config{})
	assert.Error(t, err)
}
