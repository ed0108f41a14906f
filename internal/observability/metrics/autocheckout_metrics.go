package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AutoCheckoutMetrics tracks trigger decisions and batch outcomes.
type AutoCheckoutMetrics struct {
	decisions     *prometheus.CounterVec
	batchRuns     *prometheus.CounterVec
	bookings      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
	fallbacks     *prometheus.CounterVec
}

var (
	autoCheckoutMetricsOnce sync.Once
	autoCheckoutMetrics     *AutoCheckoutMetrics
)

// AutoCheckout returns the singleton auto checkout metrics registry.
func AutoCheckout() *AutoCheckoutMetrics {
	return AutoCheckoutWithConfig(Config{})
}

func AutoCheckoutWithConfig(cfg Config) *AutoCheckoutMetrics {
	autoCheckoutMetricsOnce.Do(func() {
		autoCheckoutMetrics = NewAutoCheckoutMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return autoCheckoutMetrics
}

// ResetAutoCheckoutMetricsForTest resets the singleton for tests.
func ResetAutoCheckoutMetricsForTest() {
	autoCheckoutMetricsOnce = sync.Once{}
	autoCheckoutMetrics = nil
}

// NewAutoCheckoutMetrics registers a fresh set of collectors on registerer.
func NewAutoCheckoutMetrics(registerer prometheus.Registerer, cfg Config) *AutoCheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := constLabelsFor(cfg)

	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "frontdesk_autocheckout_decisions_total",
		Help:        "Auto checkout trigger decisions by trigger and state.",
		ConstLabels: constLabels,
	}, []string{"trigger", "state"})
	batchRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "frontdesk_autocheckout_batch_runs_total",
		Help:        "Completed auto checkout batches by method and status.",
		ConstLabels: constLabels,
	}, []string{"method", "status"})
	bookings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "frontdesk_autocheckout_bookings_total",
		Help:        "Bookings processed by auto checkout.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "frontdesk_autocheckout_notifications_total",
		Help:        "Checkout notifications by delivery outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	batchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "frontdesk_autocheckout_batch_duration_seconds",
		Help:        "Auto checkout batch latency.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"method"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "frontdesk_autocheckout_fallback_actions_total",
		Help:        "Fallback trigger outcomes.",
		ConstLabels: constLabels,
	}, []string{"action"})

	registerer.MustRegister(decisions, batchRuns, bookings, notifications, batchDuration, fallbacks)

	return &AutoCheckoutMetrics{
		decisions:     decisions,
		batchRuns:     batchRuns,
		bookings:      bookings,
		notifications: notifications,
		batchDuration: batchDuration,
		fallbacks:     fallbacks,
	}
}

func (m *AutoCheckoutMetrics) IncDecision(trigger, state string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(trigger, state).Inc()
}

// ObserveBatch records one committed batch with its per-booking counts.
func (m *AutoCheckoutMetrics) ObserveBatch(method, status string, successful, failed int, duration time.Duration) {
	if m == nil || m.batchRuns == nil {
		return
	}
	m.batchRuns.WithLabelValues(method, status).Inc()
	m.batchDuration.WithLabelValues(method).Observe(duration.Seconds())
	if successful > 0 {
		m.bookings.WithLabelValues("success").Add(float64(successful))
	}
	if failed > 0 {
		m.bookings.WithLabelValues("failed").Add(float64(failed))
	}
}

func (m *AutoCheckoutMetrics) IncNotification(outcome string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
}

func (m *AutoCheckoutMetrics) IncFallback(action string) {
	if m == nil || m.fallbacks == nil {
		return
	}
	m.fallbacks.WithLabelValues(action).Inc()
}
