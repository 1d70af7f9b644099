package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civicgrid/resident-portal/pkg/enums"
)

// Resident is the registration record the ledger reads for eligibility.
// Rows are written by the registration service; the ledger never mutates them.
type Resident struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Name           string               `gorm:"column:name;type:text;not null"`
	Classification enums.Classification `gorm:"column:classification;type:text;not null"`
	IsActive       bool                 `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (Resident) TableName() string { return "residents" }

func (r *Resident) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
