// Package claims records a resident receiving a batch: every item is reserved
// and recorded in one transaction, or nothing is.
package claims

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civicgrid/resident-portal/internal/batches"
	"github.com/civicgrid/resident-portal/internal/inventory"
	"github.com/civicgrid/resident-portal/internal/residents"
	"github.com/civicgrid/resident-portal/pkg/db"
	"github.com/civicgrid/resident-portal/pkg/db/models"
	"github.com/civicgrid/resident-portal/pkg/enums"
	pkgerrors "github.com/civicgrid/resident-portal/pkg/errors"
	"github.com/civicgrid/resident-portal/pkg/logger"
	"github.com/civicgrid/resident-portal/pkg/metrics"
	"github.com/civicgrid/resident-portal/pkg/outbox"
	"github.com/civicgrid/resident-portal/pkg/outbox/payloads"
)

const msgAlreadyClaimed = "already claimed"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ClaimedItem is one reserved line of a successful claim.
type ClaimedItem struct {
	InventoryItemID uuid.UUID `json:"inventoryItemId"`
	Name            string    `json:"name"`
	Qty             int       `json:"qty"`
}

// ClaimResult describes a committed claim.
type ClaimResult struct {
	BatchID    uuid.UUID         `json:"batchId"`
	ResidentID uuid.UUID         `json:"residentId"`
	Status     enums.ClaimStatus `json:"status"`
	ClaimedAt  time.Time         `json:"claimedAt"`
	Items      []ClaimedItem     `json:"items"`
}

// Service processes claims.
type Service interface {
	Claim(ctx context.Context, batchID, residentID uuid.UUID, actor *outbox.ActorRef) (*ClaimResult, error)
}

type service struct {
	repo      Repository
	batches   batches.Repository
	inventory inventory.Repository
	residents residents.Repository
	tx        txRunner
	outbox    outboxPublisher
	metrics   *metrics.ClaimMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// Deps groups the collaborators of the claim service.
type Deps struct {
	Repo      Repository
	Batches   batches.Repository
	Inventory inventory.Repository
	Residents residents.Repository
	Tx        txRunner
	Outbox    outboxPublisher
	Metrics   *metrics.ClaimMetrics
	Logger    *logger.Logger
}

// NewService builds the claim service.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("claims repository required")
	}
	if deps.Batches == nil {
		return nil, fmt.Errorf("batches repository required")
	}
	if deps.Inventory == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if deps.Residents == nil {
		return nil, fmt.Errorf("residents repository required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      deps.Repo,
		batches:   deps.Batches,
		inventory: deps.Inventory,
		residents: deps.Residents,
		tx:        deps.Tx,
		outbox:    deps.Outbox,
		metrics:   deps.Metrics,
		logg:      deps.Logger,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Claim reserves every item of the batch for the resident and appends one
// Claimed record per item. Any failure rolls the whole claim back, including
// reservations already made for earlier items.
func (s *service) Claim(ctx context.Context, batchID, residentID uuid.UUID, actor *outbox.ActorRef) (*ClaimResult, error) {
	if batchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	if residentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resident id required")
	}

	start := time.Now()
	if s.logg != nil {
		ctx = s.logg.WithBatchID(ctx, batchID.String())
		ctx = s.logg.WithResidentID(ctx, residentID.String())
	}

	var result *ClaimResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		claimed, err := s.claimTx(ctx, tx, batchID, residentID, actor)
		if err != nil {
			return err
		}
		result = claimed
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil && db.IsUniqueViolation(err, "") {
			err = pkgerrors.Wrap(pkgerrors.CodeConflict, err, msgAlreadyClaimed)
		}
		err = db.MapError(err, "process claim")
		s.observe(outcomeFor(err), start)
		s.logRejected(ctx, err)
		return nil, err
	}

	s.observe(metrics.OutcomeClaimed, start)
	for _, item := range result.Items {
		s.metrics.AddReserved(item.Name, item.Qty)
	}
	if s.logg != nil {
		logCtx := s.logg.WithField(ctx, "item_count", len(result.Items))
		s.logg.Info(logCtx, "claim.recorded")
	}
	return result, nil
}

func (s *service) claimTx(ctx context.Context, tx *gorm.DB, batchID, residentID uuid.UUID, actor *outbox.ActorRef) (*ClaimResult, error) {
	batch, err := s.batches.WithTx(tx).FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		return nil, err
	}
	if _, err := s.residents.WithTx(tx).FindByID(ctx, residentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "resident not found")
		}
		return nil, err
	}

	lines, err := s.batches.WithTx(tx).ListItems(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "batch has no configured items")
	}

	repo := s.repo.WithTx(tx)
	exists, err := repo.ExistsForResident(ctx, batchID, residentID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, msgAlreadyClaimed)
	}

	stock := s.inventory.WithTx(tx)
	for _, line := range lines {
		if line.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "batch references a deleted inventory item").
				WithDetails(map[string]any{"inventoryItemId": line.InventoryItemID.String()})
		}
		ok, err := stock.TryReserve(ctx, line.InventoryItemID, line.QtyPerClaim)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for item "+line.Name).
				WithDetails(map[string]any{"inventoryItemId": line.InventoryItemID.String(), "qty": line.QtyPerClaim})
		}
	}

	claimedAt := s.now()
	records := make([]models.ClaimRecord, 0, len(lines))
	items := make([]ClaimedItem, 0, len(lines))
	eventItems := make([]payloads.BatchItemLine, 0, len(lines))
	for _, line := range lines {
		records = append(records, models.ClaimRecord{
			ID:              uuid.New(),
			BatchID:         batchID,
			ResidentID:      residentID,
			InventoryItemID: line.InventoryItemID,
			Qty:             line.QtyPerClaim,
			Status:          enums.ClaimStatusClaimed,
			ClaimedAt:       claimedAt,
		})
		items = append(items, ClaimedItem{InventoryItemID: line.InventoryItemID, Name: line.Name, Qty: line.QtyPerClaim})
		eventItems = append(eventItems, payloads.BatchItemLine{InventoryItemID: line.InventoryItemID, Name: line.Name, Qty: line.QtyPerClaim})
	}
	if err := repo.CreateRecords(ctx, records); err != nil {
		return nil, err
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventBenefitClaimed,
		AggregateType: enums.AggregateDistributionBatch,
		AggregateID:   batchID,
		Actor:         actor,
		OccurredAt:    claimedAt,
		Data: payloads.BenefitClaimedEvent{
			BatchID:    batchID,
			BatchName:  batch.Name,
			ResidentID: residentID,
			Items:      eventItems,
			ClaimedAt:  claimedAt,
		},
	}); err != nil {
		return nil, err
	}

	return &ClaimResult{
		BatchID:    batchID,
		ResidentID: residentID,
		Status:     enums.ClaimStatusClaimed,
		ClaimedAt:  claimedAt,
		Items:      items,
	}, nil
}

func outcomeFor(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return metrics.OutcomeError
	}
	switch typed.Code() {
	case pkgerrors.CodeConflict:
		if typed.Message() == msgAlreadyClaimed {
			return metrics.OutcomeAlreadyClaimed
		}
		return metrics.OutcomeInsufficientStock
	case pkgerrors.CodeConfiguration:
		return metrics.OutcomeNotConfigured
	case pkgerrors.CodeNotFound:
		return metrics.OutcomeNotFound
	case pkgerrors.CodeLockConflict:
		return metrics.OutcomeLockConflict
	}
	return metrics.OutcomeError
}

func (s *service) observe(outcome string, start time.Time) {
	s.metrics.Observe(outcome, time.Since(start))
}

func (s *service) logRejected(ctx context.Context, err error) {
	if s.logg == nil {
		return
	}
	typed := pkgerrors.As(err)
	if typed != nil && typed.Code() != pkgerrors.CodeInternal {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"error_code": string(typed.Code()),
			"reason":     typed.Message(),
		})
		s.logg.Warn(logCtx, "claim.rejected")
		return
	}
	s.logg.Error(ctx, "claim.failed", err)
}
