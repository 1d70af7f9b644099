package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Claim outcomes recorded on claims_total.
const (
	OutcomeClaimed           = "claimed"
	OutcomeAlreadyClaimed    = "already_claimed"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeNotConfigured     = "not_configured"
	OutcomeNotFound          = "not_found"
	OutcomeLockConflict      = "lock_conflict"
	OutcomeError             = "error"
)

// ClaimMetrics records the result and latency of every claim attempt.
type ClaimMetrics struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
	reserved *prometheus.CounterVec
}

// NewClaimMetrics registers the claim metrics on the provided registerer.
func NewClaimMetrics(reg prometheus.Registerer) *ClaimMetrics {
	if reg == nil {
		return &ClaimMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "claim_duration_seconds",
		Help:    "Duration of claim transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "claims_total",
		Help: "Claim attempts by outcome.",
	}, []string{"outcome"})
	reserved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "claim_reserved_units_total",
		Help: "Inventory units reserved by successful claims.",
	}, []string{"item"})
	reg.MustRegister(duration, total, reserved)
	return &ClaimMetrics{
		duration: duration,
		total:    total,
		reserved: reserved,
	}
}

// Observe records one claim attempt.
func (c *ClaimMetrics) Observe(outcome string, duration time.Duration) {
	if c == nil || c.total == nil {
		return
	}
	label := normalizeLabel(outcome)
	c.total.WithLabelValues(label).Inc()
	c.duration.WithLabelValues(label).Observe(duration.Seconds())
}

// AddReserved counts units taken from an inventory item.
func (c *ClaimMetrics) AddReserved(item string, qty int) {
	if c == nil || c.reserved == nil || qty <= 0 {
		return
	}
	c.reserved.WithLabelValues(normalizeLabel(item)).Add(float64(qty))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
