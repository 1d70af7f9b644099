package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civicgrid/resident-portal/pkg/enums"
)

// ClaimRecordUniqueConstraint guards against two first-time claims for the same resident and batch.
const ClaimRecordUniqueConstraint = "uq_claim_records_batch_resident_item"

// ClaimRecord is the append-only audit row written for every reserved batch item.
type ClaimRecord struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	BatchID         uuid.UUID         `gorm:"column:batch_id;type:uuid;not null;uniqueIndex:uq_claim_records_batch_resident_item,priority:1"`
	ResidentID      uuid.UUID         `gorm:"column:resident_id;type:uuid;not null;uniqueIndex:uq_claim_records_batch_resident_item,priority:2;index"`
	InventoryItemID uuid.UUID         `gorm:"column:inventory_item_id;type:uuid;not null;uniqueIndex:uq_claim_records_batch_resident_item,priority:3;index"`
	Qty             int               `gorm:"column:qty;not null"`
	Status          enums.ClaimStatus `gorm:"column:status;type:text;not null"`
	ClaimedAt       time.Time         `gorm:"column:claimed_at;not null"`
}

func (ClaimRecord) TableName() string { return "claim_records" }

func (c *ClaimRecord) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
