package reporting

import (
	"time"

	"github.com/civicgrid/resident-portal/pkg/db/models"
	"github.com/civicgrid/resident-portal/pkg/enums"
)

// claimStatusOrDefault is the single place where a missing claim turns into
// "To Claim". records are one resident's rows for one batch.
func claimStatusOrDefault(records []models.ClaimRecord) (enums.ClaimStatus, *time.Time) {
	if len(records) == 0 {
		return enums.ClaimStatusToClaim, nil
	}
	status := records[0].Status
	latest := records[0].ClaimedAt
	for _, record := range records[1:] {
		if record.ClaimedAt.After(latest) {
			latest = record.ClaimedAt
			status = record.Status
		}
	}
	return status, &latest
}

type pairKey struct {
	batch    string
	resident string
}

func groupRecords(records []models.ClaimRecord) map[pairKey][]models.ClaimRecord {
	out := make(map[pairKey][]models.ClaimRecord)
	for _, record := range records {
		key := pairKey{batch: record.BatchID.String(), resident: record.ResidentID.String()}
		out[key] = append(out[key], record)
	}
	return out
}
