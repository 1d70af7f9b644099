package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventoryItem tracks the physical stock of one relief good.
// Total-Allocated is the balance still available to claims.
type InventoryItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null"`
	Category  string    `gorm:"column:category;type:text;not null;default:''"`
	Unit      string    `gorm:"column:unit;type:text;not null;default:''"`
	Total     int       `gorm:"column:total;not null;default:0;check:chk_inventory_items_allocated,allocated <= total"`
	Allocated int       `gorm:"column:allocated;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryItem) TableName() string { return "inventory_items" }

// Available returns the unreserved balance.
func (i InventoryItem) Available() int {
	return i.Total - i.Allocated
}

func (i *InventoryItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
