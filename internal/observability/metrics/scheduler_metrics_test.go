package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/frontdesk/internal/authorization"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: SchedulerJobReasonDeadlineExceeded,
		},
		{
			name: "forbidden",
			err:  authorization.ErrForbidden,
			want: SchedulerJobReasonForbidden,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: SchedulerJobReasonDBLockTimeout,
		},
		{
			name: "serialization_failure",
			err:  fmt.Errorf("confirm: %w", &pgconn.PgError{Code: "40001"}),
			want: SchedulerJobReasonSerializationFailure,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: SchedulerJobReasonUniqueViolation,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: SchedulerJobReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIsSchedulerErrorRetryable(t *testing.T) {
	if !IsSchedulerErrorRetryable(&pgconn.PgError{Code: "40001"}) {
		t.Fatalf("expected serialization failure to be retryable")
	}
	if IsSchedulerErrorRetryable(errors.New("bad input")) {
		t.Fatalf("expected business error to be final")
	}
	if IsSchedulerErrorRetryable(gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found to be final")
	}
}

func TestSchedulerJobCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newSchedulerMetrics(registry, Config{
		ServiceName: "frontdesk",
		Environment: "test",
	})

	m.IncJobRun("auto_checkout_fallback")
	m.IncJobRun("auto_checkout_fallback")
	m.IncJobSkipped("auto_checkout_fallback", SchedulerSkipReasonLockHeld)
	m.IncJobError("auto_checkout_fallback", context.DeadlineExceeded)
	m.ObserveJobDuration("auto_checkout_fallback", 2*time.Second)

	if got := testutil.ToFloat64(m.jobRuns.WithLabelValues("auto_checkout_fallback")); got != 2 {
		t.Fatalf("expected 2 runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.jobSkipped.WithLabelValues("auto_checkout_fallback", SchedulerSkipReasonLockHeld)); got != 1 {
		t.Fatalf("expected 1 skip, got %v", got)
	}
	if got := testutil.ToFloat64(m.jobErrors.WithLabelValues("auto_checkout_fallback", SchedulerJobReasonDeadlineExceeded)); got != 1 {
		t.Fatalf("expected 1 deadline error, got %v", got)
	}
}

func TestAutoCheckoutObserveBatch(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewAutoCheckoutMetrics(registry, Config{Environment: "test"})

	m.ObserveBatch("manual", "partial", 4, 1, 150*time.Millisecond)
	m.IncDecision("prompt", "PROMPT_REQUIRED")
	m.IncFallback("waiting")

	if got := testutil.ToFloat64(m.bookings.WithLabelValues("success")); got != 4 {
		t.Fatalf("expected 4 successful bookings, got %v", got)
	}
	if got := testutil.ToFloat64(m.bookings.WithLabelValues("failed")); got != 1 {
		t.Fatalf("expected 1 failed booking, got %v", got)
	}
	if got := testutil.ToFloat64(m.batchRuns.WithLabelValues("manual", "partial")); got != 1 {
		t.Fatalf("expected 1 batch run, got %v", got)
	}
	if got := testutil.ToFloat64(m.decisions.WithLabelValues("prompt", "PROMPT_REQUIRED")); got != 1 {
		t.Fatalf("expected 1 decision, got %v", got)
	}
}

func TestGinMiddlewareRecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	m := newHTTPMetrics(registry, Config{Environment: "test"})

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/admin/auto-checkout/logs/:date", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/auto-checkout/logs/2026-10-19", nil))

	got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/admin/auto-checkout/logs/:date", "200"))
	if got != 1 {
		t.Fatalf("expected 1 request, got %v", got)
	}
}
