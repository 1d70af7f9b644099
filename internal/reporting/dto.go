package reporting

import (
	"time"

	"github.com/google/uuid"

	"github.com/civicgrid/resident-portal/pkg/enums"
)

// RosterEntry is one eligible resident of a batch with their claim status.
type RosterEntry struct {
	ResidentID     uuid.UUID            `json:"residentId"`
	ResidentName   string               `json:"residentName"`
	Classification enums.Classification `json:"classification"`
	Status         enums.ClaimStatus    `json:"status"`
	Items          string               `json:"items"`
	ClaimedAt      *time.Time           `json:"claimedAt"`
}

// FeedEntry groups one resident's claim of one batch.
type FeedEntry struct {
	ResidentID   uuid.UUID `json:"residentId"`
	ResidentName string    `json:"residentName"`
	BatchID      uuid.UUID `json:"batchId"`
	BatchName    string    `json:"batchName"`
	Items        string    `json:"items"`
	ClaimedAt    time.Time `json:"claimedAt"`
}

// BenefitEntry is one batch a resident qualifies for.
type BenefitEntry struct {
	BatchID     uuid.UUID            `json:"batchId"`
	BatchName   string               `json:"batchName"`
	TargetClass enums.Classification `json:"targetClass"`
	Items       string               `json:"items"`
	Status      enums.ClaimStatus    `json:"status"`
	ClaimedAt   *time.Time           `json:"claimedAt"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// ClaimStats are the per-resident counters. Approved and Pending count
// statuses nothing writes yet, so they read zero.
type ClaimStats struct {
	Eligible int `json:"eligible"`
	Claimed  int `json:"claimed"`
	Approved int `json:"approved"`
	Pending  int `json:"pending"`
}
