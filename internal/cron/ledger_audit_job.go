package cron

import (
	"context"
	"errors"

	"github.com/civicgrid/resident-portal/internal/inventory"
	"github.com/civicgrid/resident-portal/pkg/logger"
)

type driftFinder interface {
	AllocationDrift(ctx context.Context) ([]inventory.AllocationDrift, error)
}

type driftGauge interface {
	SetAllocationDrift(items int)
}

type LedgerAuditJobParams struct {
	Logger  *logger.Logger
	Auditor driftFinder
	Gauge   driftGauge
}

// NewLedgerAuditJob compares every item's allocated count with its claim
// records. It only reports; stock is never corrected automatically.
func NewLedgerAuditJob(params LedgerAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Auditor == nil {
		return nil, errors.New("auditor required")
	}
	return &ledgerAuditJob{logg: params.Logger, auditor: params.Auditor, gauge: params.Gauge}, nil
}

type ledgerAuditJob struct {
	logg    *logger.Logger
	auditor driftFinder
	gauge   driftGauge
}

func (j *ledgerAuditJob) Name() string { return "ledger-audit" }

func (j *ledgerAuditJob) Run(ctx context.Context) error {
	drift, err := j.auditor.AllocationDrift(ctx)
	if err != nil {
		return err
	}
	if j.gauge != nil {
		j.gauge.SetAllocationDrift(len(drift))
	}
	for _, item := range drift {
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"inventory_item_id": item.ItemID.String(),
			"item":              item.Name,
			"allocated":         item.Allocated,
			"claimed":           item.Claimed,
		}), "ledger.allocation_drift")
	}
	j.logg.Info(j.logg.WithField(ctx, "drifted_items", len(drift)), "ledger.audit.complete")
	return nil
}
