package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	jobResultOK    = "ok"
	jobResultError = "error"
)

// CronJobMetrics tracks housekeeping runs and the latest ledger audit result.
type CronJobMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	drift    prometheus.Gauge
}

// NewCronJobMetrics returns nil for a nil registerer; every method is nil-safe.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return nil
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Housekeeping job runs by result.",
		}, []string{"job", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_job_duration_seconds",
			Help:    "Wall time of housekeeping job runs.",
			Buckets: []float64{0.05, 0.25, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		drift: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_allocation_drift_items",
			Help: "Inventory items whose allocated count disagrees with their claim records.",
		}),
	}
	reg.MustRegister(m.runs, m.duration, m.drift)
	return m
}

// ObserveRun records one job execution; err decides the result label.
func (c *CronJobMetrics) ObserveRun(job string, took time.Duration, err error) {
	if c == nil {
		return
	}
	job = normalizeLabel(job)
	result := jobResultOK
	if err != nil {
		result = jobResultError
	}
	c.runs.WithLabelValues(job, result).Inc()
	c.duration.WithLabelValues(job).Observe(took.Seconds())
}

// SetAllocationDrift publishes the item count found by the latest audit.
func (c *CronJobMetrics) SetAllocationDrift(items int) {
	if c == nil {
		return
	}
	c.drift.Set(float64(items))
}
