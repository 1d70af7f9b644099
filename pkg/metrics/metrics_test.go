package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestClaimMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewClaimMetrics(reg)
	metrics.Observe(OutcomeClaimed, 250*time.Millisecond)
	metrics.Observe(OutcomeAlreadyClaimed, 10*time.Millisecond)
	metrics.Observe(OutcomeAlreadyClaimed, 10*time.Millisecond)
	metrics.AddReserved("Rice", 5)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "claims_total", "outcome", OutcomeClaimed); err != nil {
		t.Fatalf("fetch claimed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected claimed=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "claims_total", "outcome", OutcomeAlreadyClaimed); err != nil {
		t.Fatalf("fetch already claimed: %v", err)
	} else if got != 2 {
		t.Fatalf("expected already_claimed=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "claim_reserved_units_total", "item", "Rice"); err != nil {
		t.Fatalf("fetch reserved: %v", err)
	} else if got != 5 {
		t.Fatalf("expected reserved=5, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "claim_duration_seconds", "outcome", OutcomeClaimed); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestHTTPMetricsLabelsRouteAndStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)
	metrics.Observe("/distribution/{batchId}", "GET", 404, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "http_requests_total", "status", "404"); err != nil {
		t.Fatalf("fetch requests: %v", err)
	} else if got != 1 {
		t.Fatalf("expected one request, got %f", got)
	}
	if _, err := fetchHistogramSum(mfs, "http_request_duration_seconds", "route", "/distribution/{batchId}"); err != nil {
		t.Fatalf("fetch latency: %v", err)
	}
}

func TestOutboxMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOutboxMetrics(reg)
	metrics.IncPublished("benefit_claimed")
	metrics.IncFailed("benefit_claimed")
	metrics.IncDeadLettered("batch_created", "max_attempts")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_published_total", "event_type", "benefit_claimed"); err != nil || got != 1 {
		t.Fatalf("expected published=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_dead_lettered_total", "reason", "max_attempts"); err != nil || got != 1 {
		t.Fatalf("expected dead lettered=1, got %f (%v)", got, err)
	}
}

func TestCronJobMetricsExportsRunsAndDrift(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	metrics.ObserveRun("ledger-audit", 250*time.Millisecond, nil)
	metrics.ObserveRun("outbox-retention", time.Second, errors.New("db down"))
	metrics.SetAllocationDrift(3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	runs := findMetricFamily(mfs, "cron_job_runs_total")
	if runs == nil || len(runs.GetMetric()) != 2 {
		t.Fatal("expected two job run series")
	}
	for _, m := range runs.GetMetric() {
		labels := map[string]string{}
		for _, lp := range m.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		want := map[string]string{"ledger-audit": "ok", "outbox-retention": "error"}[labels["job"]]
		if labels["result"] != want || m.GetCounter().GetValue() != 1 {
			t.Fatalf("unexpected run series %v = %f", labels, m.GetCounter().GetValue())
		}
	}
	if got, err := fetchHistogramSum(mfs, "cron_job_duration_seconds", "job", "ledger-audit"); err != nil || got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f (%v)", got, err)
	}
	drift := findMetricFamily(mfs, "ledger_allocation_drift_items")
	if drift == nil || len(drift.GetMetric()) != 1 {
		t.Fatal("drift gauge not exported")
	}
	if got := drift.GetMetric()[0].GetGauge().GetValue(); got != 3 {
		t.Fatalf("expected drift=3, got %f", got)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewClaimMetrics(nil).Observe(OutcomeClaimed, time.Second)
	NewHTTPMetrics(nil).Observe("/", "GET", 200, time.Second)
	NewOutboxMetrics(nil).IncPublished("batch_created")
	NewCronJobMetrics(nil).SetAllocationDrift(1)
	NewCronJobMetrics(nil).ObserveRun("ledger-audit", time.Second, nil)

	var claims *ClaimMetrics
	claims.Observe(OutcomeError, time.Second)
	claims.AddReserved("Rice", 1)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
