package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/civicgrid/resident-portal/pkg/db"
	"github.com/civicgrid/resident-portal/pkg/db/models"
	"github.com/civicgrid/resident-portal/pkg/enums"
)

// Line is one item of a seeded batch.
type Line struct {
	Item models.InventoryItem
	Qty  int
}

// SeedItem stores an inventory item with the given stock levels.
func SeedItem(t *testing.T, client *db.Client, name string, total, allocated int) models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{
		ID:        uuid.New(),
		Name:      name,
		Unit:      "pcs",
		Total:     total,
		Allocated: allocated,
	}
	if err := client.DB().Create(&item).Error; err != nil {
		t.Fatalf("seed item %s: %v", name, err)
	}
	return item
}

// SeedResident stores an active resident.
func SeedResident(t *testing.T, client *db.Client, name string, class enums.Classification) models.Resident {
	t.Helper()
	resident := models.Resident{
		ID:             uuid.New(),
		Name:           name,
		Classification: class,
		IsActive:       true,
	}
	if err := client.DB().Create(&resident).Error; err != nil {
		t.Fatalf("seed resident %s: %v", name, err)
	}
	return resident
}

// SeedBatch stores a batch with its items, bypassing the catalog service.
func SeedBatch(t *testing.T, client *db.Client, name string, target enums.Classification, lines ...Line) models.DistributionBatch {
	t.Helper()
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, fmt.Sprintf("%d %s", line.Qty, line.Item.Name))
	}
	batch := models.DistributionBatch{
		ID:           uuid.New(),
		Name:         name,
		TargetClass:  target,
		ItemsSummary: strings.Join(parts, ", "),
	}
	if err := client.DB().Create(&batch).Error; err != nil {
		t.Fatalf("seed batch %s: %v", name, err)
	}
	for _, line := range lines {
		row := models.BatchItem{BatchID: batch.ID, InventoryItemID: line.Item.ID, QtyPerClaim: line.Qty}
		if err := client.DB().Create(&row).Error; err != nil {
			t.Fatalf("seed batch item: %v", err)
		}
	}
	return batch
}

// SeedClaim stores claim records for every line as if the claim had succeeded.
func SeedClaim(t *testing.T, client *db.Client, batchID, residentID uuid.UUID, claimedAt time.Time, lines ...Line) {
	t.Helper()
	for _, line := range lines {
		record := models.ClaimRecord{
			ID:              uuid.New(),
			BatchID:         batchID,
			ResidentID:      residentID,
			InventoryItemID: line.Item.ID,
			Qty:             line.Qty,
			Status:          enums.ClaimStatusClaimed,
			ClaimedAt:       claimedAt,
		}
		if err := client.DB().Create(&record).Error; err != nil {
			t.Fatalf("seed claim: %v", err)
		}
	}
}

// ReloadItem reads the current stock levels of an item.
func ReloadItem(t *testing.T, client *db.Client, id uuid.UUID) models.InventoryItem {
	t.Helper()
	var item models.InventoryItem
	if err := client.DB().Where("id = ?", id).First(&item).Error; err != nil {
		t.Fatalf("reload item: %v", err)
	}
	return item
}

// Count returns the number of rows in the model's table matching the optional condition.
func Count(t *testing.T, client *db.Client, model any, query string, args ...any) int64 {
	t.Helper()
	var count int64
	q := client.DB().Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return count
}

// DeactivateResident flips is_active off; gorm skips a false value on create
// because the column has a default.
func DeactivateResident(t *testing.T, client *db.Client, id uuid.UUID) {
	t.Helper()
	if err := client.DB().Model(&models.Resident{}).Where("id = ?", id).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate resident: %v", err)
	}
}
