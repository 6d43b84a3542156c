package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records outcomes of order synchronization runs.
type SyncMetrics struct {
	duration *prometheus.HistogramVec
	imported *prometheus.CounterVec
	updated  *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_run_duration_seconds",
		Help:    "Duration of sync runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"driver"})
	imported := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_orders_imported",
		Help: "Orders created during sync runs.",
	}, []string{"driver"})
	updated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_orders_updated",
		Help: "Orders updated during sync runs.",
	}, []string{"driver"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_order_failures",
		Help: "Orders that failed to sync.",
	}, []string{"driver"})
	reg.MustRegister(duration, imported, updated, failures)
	return &SyncMetrics{
		duration: duration,
		imported: imported,
		updated:  updated,
		failures: failures,
	}
}

// ObserveDuration records the duration for the named driver.
func (s *SyncMetrics) ObserveDuration(driver string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(driver)).Observe(duration.Seconds())
}

// AddImported increments the imported counter for the named driver.
func (s *SyncMetrics) AddImported(driver string, n int) {
	if s == nil || s.imported == nil || n <= 0 {
		return
	}
	s.imported.WithLabelValues(normalizeLabel(driver)).Add(float64(n))
}

// AddUpdated increments the updated counter for the named driver.
func (s *SyncMetrics) AddUpdated(driver string, n int) {
	if s == nil || s.updated == nil || n <= 0 {
		return
	}
	s.updated.WithLabelValues(normalizeLabel(driver)).Add(float64(n))
}

// AddFailures increments the failure counter for the named driver.
func (s *SyncMetrics) AddFailures(driver string, n int) {
	if s == nil || s.failures == nil || n <= 0 {
		return
	}
	s.failures.WithLabelValues(normalizeLabel(driver)).Add(float64(n))
}

func normalizeLabel(driver string) string {
	if driver == "" {
		return "unknown"
	}
	return driver
}
