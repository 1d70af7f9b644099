package batches

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civicgrid/resident-portal/internal/eligibility"
	"github.com/civicgrid/resident-portal/internal/inventory"
	"github.com/civicgrid/resident-portal/internal/residents"
	"github.com/civicgrid/resident-portal/pkg/db"
	"github.com/civicgrid/resident-portal/pkg/db/models"
	"github.com/civicgrid/resident-portal/pkg/enums"
	pkgerrors "github.com/civicgrid/resident-portal/pkg/errors"
	"github.com/civicgrid/resident-portal/pkg/logger"
	"github.com/civicgrid/resident-portal/pkg/outbox"
	"github.com/civicgrid/resident-portal/pkg/outbox/payloads"
)

const maxNameLength = 160

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the batch catalog.
type Service interface {
	ListBatches(ctx context.Context) ([]BatchSummary, error)
	CreateBatch(ctx context.Context, input CreateBatchInput, actor *outbox.ActorRef) (*BatchDTO, error)
	GetBatch(ctx context.Context, id uuid.UUID) (*BatchDTO, error)
}

type service struct {
	repo      Repository
	inventory inventory.Repository
	residents residents.Repository
	tx        txRunner
	outbox    outboxPublisher
	logg      *logger.Logger
}

// NewService builds the batch catalog service.
func NewService(repo Repository, inventoryRepo inventory.Repository, residentRepo residents.Repository, tx txRunner, outbox outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("batches repository required")
	}
	if inventoryRepo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if residentRepo == nil {
		return nil, fmt.Errorf("residents repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      repo,
		inventory: inventoryRepo,
		residents: residentRepo,
		tx:        tx,
		outbox:    outbox,
		logg:      logg,
	}, nil
}

// ListBatches returns every batch, newest first, with claimedCount and
// totalEligible computed against active residents.
func (s *service) ListBatches(ctx context.Context) ([]BatchSummary, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, db.MapError(err, "list batches")
	}
	claimed, err := s.repo.ClaimedResidentCounts(ctx)
	if err != nil {
		return nil, db.MapError(err, "count claimed residents")
	}
	byClass, err := s.residents.CountActiveByClassification(ctx)
	if err != nil {
		return nil, db.MapError(err, "count eligible residents")
	}

	out := make([]BatchSummary, 0, len(rows))
	for _, row := range rows {
		var eligible int64
		for _, class := range eligibility.EligibleClasses(row.TargetClass) {
			eligible += byClass[class]
		}
		out = append(out, BatchSummary{
			BatchDTO:      toDTO(row, nil),
			ClaimedCount:  claimed[row.ID],
			TotalEligible: eligible,
		})
	}
	return out, nil
}

func (s *service) GetBatch(ctx context.Context, id uuid.UUID) (*BatchDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		return nil, db.MapError(err, "load batch")
	}
	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "load batch items")
	}
	dto := toDTO(*batch, items)
	return &dto, nil
}

// CreateBatch writes the batch and all of its items in one transaction. The
// items summary is rendered here, in request order, and never re-derived.
func (s *service) CreateBatch(ctx context.Context, input CreateBatchInput, actor *outbox.ActorRef) (*BatchDTO, error) {
	name := strings.TrimSpace(input.Name)
	target := enums.ParseClassification(string(input.TargetClass))
	if err := validateCreate(name, target, input.Items); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		ids = append(ids, item.InventoryItemID)
	}

	var created BatchDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		stock, err := s.inventory.WithTx(tx).FindByIDs(ctx, ids)
		if err != nil {
			return err
		}

		lines := make([]ItemLine, 0, len(input.Items))
		rows := make([]models.BatchItem, 0, len(input.Items))
		for _, req := range input.Items {
			item, ok := stock[req.InventoryItemID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found").
					WithDetails(map[string]any{"inventoryItemId": req.InventoryItemID.String()})
			}
			lines = append(lines, ItemLine{InventoryItemID: item.ID, Name: item.Name, QtyPerClaim: req.Qty})
			rows = append(rows, models.BatchItem{InventoryItemID: item.ID, QtyPerClaim: req.Qty})
		}

		batch := &models.DistributionBatch{
			ID:           uuid.New(),
			Name:         name,
			TargetClass:  target,
			ItemsSummary: DescribeItems(lines),
		}
		if err := s.repo.WithTx(tx).CreateWithItems(ctx, batch, rows); err != nil {
			return err
		}

		eventItems := make([]payloads.BatchItemLine, 0, len(lines))
		for _, line := range lines {
			eventItems = append(eventItems, payloads.BatchItemLine{
				InventoryItemID: line.InventoryItemID,
				Name:            line.Name,
				Qty:             line.QtyPerClaim,
			})
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBatchCreated,
			AggregateType: enums.AggregateDistributionBatch,
			AggregateID:   batch.ID,
			Actor:         actor,
			Data: payloads.BatchCreatedEvent{
				BatchID:      batch.ID,
				Name:         batch.Name,
				TargetClass:  batch.TargetClass,
				ItemsSummary: batch.ItemsSummary,
				Items:        eventItems,
				CreatedAt:    batch.CreatedAt,
			},
		}); err != nil {
			return err
		}

		created = toDTO(*batch, lines)
		return nil
	})
	if err != nil {
		return nil, db.MapError(err, "create batch")
	}

	if s.logg != nil {
		logCtx := s.logg.WithBatchID(ctx, created.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"target_class": string(created.TargetClass),
			"item_count":   len(created.Items),
		})
		s.logg.Info(logCtx, "batch.created")
	}
	return &created, nil
}

func validateCreate(name string, target enums.Classification, items []ItemRequest) error {
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is too long")
	}
	if !target.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "target class is required")
	}
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "batch must include at least one item")
	}
	seen := make(map[uuid.UUID]struct{}, len(items))
	for i, item := range items {
		if item.InventoryItemID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "inventory item id required").
				WithDetails(map[string]any{"index": i})
		}
		if item.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "qty must be greater than 0").
				WithDetails(map[string]any{"index": i, "inventoryItemId": item.InventoryItemID.String()})
		}
		if _, dup := seen[item.InventoryItemID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate inventory item in batch").
				WithDetails(map[string]any{"index": i, "inventoryItemId": item.InventoryItemID.String()})
		}
		seen[item.InventoryItemID] = struct{}{}
	}
	return nil
}
