package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civicgrid/resident-portal/pkg/enums"
)

// DistributionBatch is an immutable bundle of items offered to one eligibility class.
// ItemsSummary is rendered once at creation and never re-derived.
type DistributionBatch struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Name         string               `gorm:"column:name;type:text;not null"`
	TargetClass  enums.Classification `gorm:"column:target_class;type:text;not null"`
	ItemsSummary string               `gorm:"column:items_summary;type:text;not null;default:''"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (DistributionBatch) TableName() string { return "distribution_batches" }

func (b *DistributionBatch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// BatchItem is the fixed quantity of one inventory item a resident receives from a batch.
type BatchItem struct {
	BatchID         uuid.UUID `gorm:"column:batch_id;type:uuid;primaryKey"`
	InventoryItemID uuid.UUID `gorm:"column:inventory_item_id;type:uuid;primaryKey"`
	QtyPerClaim     int       `gorm:"column:qty_per_claim;not null"`
}

func (BatchItem) TableName() string { return "batch_items" }
