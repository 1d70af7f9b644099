package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/civicgrid/resident-portal/pkg/db/models"
)

// CreateItemInput carries the fields accepted when stocking a new item.
type CreateItemInput struct {
	Name     string
	Category string
	Unit     string
	Total    int
}

// UpdateItemInput lists the editable fields; nil means unchanged.
type UpdateItemInput struct {
	Name     *string
	Category *string
	Unit     *string
	Total    *int
}

func (in UpdateItemInput) empty() bool {
	return in.Name == nil && in.Category == nil && in.Unit == nil && in.Total == nil
}

// ItemDTO is the API shape of an inventory item.
type ItemDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Unit      string    `json:"unit"`
	Total     int       `json:"total"`
	Allocated int       `json:"allocated"`
	Available int       `json:"available"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toDTO(item models.InventoryItem) ItemDTO {
	return ItemDTO{
		ID:        item.ID,
		Name:      item.Name,
		Category:  item.Category,
		Unit:      item.Unit,
		Total:     item.Total,
		Allocated: item.Allocated,
		Available: item.Available(),
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}
