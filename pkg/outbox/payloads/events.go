package payloads

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/civicgrid/resident-portal/pkg/enums"
)

// BatchItemLine is one item of a batch bundle.
type BatchItemLine struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	Name            string    `json:"name"`
	Qty             int       `json:"qty"`
}

// BatchCreatedEvent announces a new distribution batch to downstream notifiers.
type BatchCreatedEvent struct {
	BatchID      uuid.UUID            `json:"batch_id"`
	Name         string               `json:"name"`
	TargetClass  enums.Classification `json:"target_class"`
	ItemsSummary string               `json:"items_summary"`
	Items        []BatchItemLine      `json:"items"`
	CreatedAt    time.Time            `json:"created_at"`
}

// BenefitClaimedEvent is emitted once per successful claim.
type BenefitClaimedEvent struct {
	BatchID    uuid.UUID       `json:"batch_id"`
	BatchName  string          `json:"batch_name"`
	ResidentID uuid.UUID       `json:"resident_id"`
	Items      []BatchItemLine `json:"items"`
	ClaimedAt  time.Time       `json:"claimed_at"`
}

// InventoryItemDeletedEvent records the removal of a stock record.
type InventoryItemDeletedEvent struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	Name            string    `json:"name"`
	Total           int       `json:"total"`
	Allocated       int       `json:"allocated"`
}

func (e *BatchCreatedEvent) Validate() error {
	if e.BatchID == uuid.Nil {
		return errors.New("batch_created: batch_id is required")
	}
	return nil
}

func (e *BenefitClaimedEvent) Validate() error {
	if e.BatchID == uuid.Nil || e.ResidentID == uuid.Nil {
		return errors.New("benefit_claimed: batch_id and resident_id are required")
	}
	return nil
}

func (e *InventoryItemDeletedEvent) Validate() error {
	if e.InventoryItemID == uuid.Nil {
		return errors.New("inventory_item_deleted: inventory_item_id is required")
	}
	return nil
}
