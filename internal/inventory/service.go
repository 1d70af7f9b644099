package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civicgrid/resident-portal/pkg/db"
	"github.com/civicgrid/resident-portal/pkg/db/models"
	"github.com/civicgrid/resident-portal/pkg/enums"
	pkgerrors "github.com/civicgrid/resident-portal/pkg/errors"
	"github.com/civicgrid/resident-portal/pkg/logger"
	"github.com/civicgrid/resident-portal/pkg/outbox"
	"github.com/civicgrid/resident-portal/pkg/outbox/payloads"
)

const maxNameLength = 120

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service manages the relief goods on hand.
type Service interface {
	List(ctx context.Context) ([]ItemDTO, error)
	Create(ctx context.Context, input CreateItemInput) (*ItemDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*ItemDTO, error)
	Delete(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) error
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
}

// NewService builds the inventory service.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox, logg: logg}, nil
}

func (s *service) List(ctx context.Context) ([]ItemDTO, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, db.MapError(err, "list inventory")
	}
	out := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, toDTO(item))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, input CreateItemInput) (*ItemDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is too long")
	}
	if input.Total < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total must not be negative")
	}

	item := &models.InventoryItem{
		ID:       uuid.New(),
		Name:     name,
		Category: strings.TrimSpace(input.Category),
		Unit:     strings.TrimSpace(input.Unit),
		Total:    input.Total,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, db.MapError(err, "create inventory item")
	}

	s.info(ctx, item.ID, "inventory.created")
	dto := toDTO(*item)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*ItemDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		if utf8.RuneCountInString(name) > maxNameLength {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is too long")
		}
		updates["name"] = name
	}
	if input.Category != nil {
		updates["category"] = strings.TrimSpace(*input.Category)
	}
	if input.Unit != nil {
		updates["unit"] = strings.TrimSpace(*input.Unit)
	}
	if input.Total != nil {
		if *input.Total < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "total must not be negative")
		}
		updates["total"] = *input.Total
	}

	var updated *models.InventoryItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Update(ctx, id, updates, input.Total); err != nil {
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
			case errors.Is(err, ErrTotalBelowAllocated):
				return pkgerrors.New(pkgerrors.CodeValidation, "total cannot drop below the allocated amount")
			}
			return err
		}
		item, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, db.MapError(err, "update inventory item")
	}

	s.info(ctx, id, "inventory.updated")
	dto := toDTO(*updated)
	return &dto, nil
}

// Delete removes an item that no claim has ever reserved.
func (s *service) Delete(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.LockByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
			}
			return err
		}

		referenced, err := repo.HasClaimReferences(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return referencedError(id)
		}

		deleted, err := repo.Delete(ctx, id)
		if db.IsForeignKeyViolation(err) {
			return referencedError(id)
		}
		if err != nil {
			return err
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventItemDeleted,
			AggregateType: enums.AggregateInventoryItem,
			AggregateID:   id,
			Actor:         actor,
			Data: payloads.InventoryItemDeletedEvent{
				InventoryItemID: id,
				Name:            item.Name,
				Total:           item.Total,
				Allocated:       item.Allocated,
			},
		})
	})
	if err != nil {
		return db.MapError(err, "delete inventory item")
	}

	s.info(ctx, id, "inventory.deleted")
	return nil
}

func (s *service) info(ctx context.Context, id uuid.UUID, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithField(ctx, "inventory_item_id", id.String()), msg)
}

func referencedError(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeReferenceConflict, "item referenced by distribution history").
		WithDetails(map[string]any{"inventoryItemId": id.String()})
}
