package batches

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/civicgrid/resident-portal/pkg/db/models"
	"github.com/civicgrid/resident-portal/pkg/enums"
)

// ItemRequest is one line of a batch creation request.
type ItemRequest struct {
	InventoryItemID uuid.UUID
	Qty             int
}

// CreateBatchInput describes a new distribution batch.
type CreateBatchInput struct {
	Name        string
	TargetClass enums.Classification
	Items       []ItemRequest
}

// ItemLine is a batch item joined to its inventory name. Name is empty when the
// inventory row no longer exists.
type ItemLine struct {
	InventoryItemID uuid.UUID `json:"inventoryItemId"`
	Name            string    `json:"name"`
	QtyPerClaim     int       `json:"qty"`
}

// BatchDTO is the API shape of a batch.
type BatchDTO struct {
	ID           uuid.UUID            `json:"id"`
	Name         string               `json:"name"`
	TargetClass  enums.Classification `json:"targetClass"`
	ItemsSummary string               `json:"itemsSummary"`
	Items        []ItemLine           `json:"items,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
}

// BatchSummary is a batch listing row with its computed counters.
type BatchSummary struct {
	BatchDTO
	ClaimedCount  int64 `json:"claimedCount"`
	TotalEligible int64 `json:"totalEligible"`
}

func toDTO(batch models.DistributionBatch, items []ItemLine) BatchDTO {
	return BatchDTO{
		ID:           batch.ID,
		Name:         batch.Name,
		TargetClass:  batch.TargetClass,
		ItemsSummary: batch.ItemsSummary,
		Items:        items,
		CreatedAt:    batch.CreatedAt,
	}
}

// DescribeItems renders lines as "{qty} {name}" joined by ", ".
func DescribeItems(lines []ItemLine) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, fmt.Sprintf("%d %s", line.QtyPerClaim, line.Name))
	}
	return strings.Join(parts, ", ")
}
