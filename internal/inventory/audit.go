package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AllocationDrift is an item whose allocated count no longer equals the
// units recorded against it in claim_records.
type AllocationDrift struct {
	ItemID    uuid.UUID `gorm:"column:id"`
	Name      string    `gorm:"column:name"`
	Allocated int       `gorm:"column:allocated"`
	Claimed   int       `gorm:"column:claimed"`
}

// Auditor runs read-only consistency checks over the stock ledger.
type Auditor struct {
	db *gorm.DB
}

func NewAuditor(db *gorm.DB) *Auditor {
	return &Auditor{db: db}
}

const allocationDriftQuery = `
SELECT i.id, i.name, i.allocated, COALESCE(SUM(c.qty), 0) AS claimed
FROM inventory_items i
LEFT JOIN claim_records c ON c.inventory_item_id = i.id
GROUP BY i.id, i.name, i.allocated
HAVING i.allocated <> COALESCE(SUM(c.qty), 0)
ORDER BY i.name ASC`

func (a *Auditor) AllocationDrift(ctx context.Context) ([]AllocationDrift, error) {
	var rows []AllocationDrift
	err := a.db.WithContext(ctx).Raw(allocationDriftQuery).Scan(&rows).Error
	return rows, err
}
