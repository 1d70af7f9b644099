// Package reporting answers the read-only ledger questions: who still has to
// claim a batch, what has been handed out, and what a resident qualifies for.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civicgrid/resident-portal/internal/batches"
	"github.com/civicgrid/resident-portal/internal/claims"
	"github.com/civicgrid/resident-portal/internal/eligibility"
	"github.com/civicgrid/resident-portal/internal/residents"
	"github.com/civicgrid/resident-portal/pkg/db"
	"github.com/civicgrid/resident-portal/pkg/db/models"
	"github.com/civicgrid/resident-portal/pkg/enums"
	pkgerrors "github.com/civicgrid/resident-portal/pkg/errors"
)

// Service exposes the ledger reports.
type Service interface {
	BatchRoster(ctx context.Context, batchID uuid.UUID) ([]RosterEntry, error)
	ClaimFeed(ctx context.Context, limit int) ([]FeedEntry, error)
	ResidentBenefits(ctx context.Context, residentID uuid.UUID) ([]BenefitEntry, error)
	ResidentClaimStats(ctx context.Context, residentID uuid.UUID) (*ClaimStats, error)
}

type service struct {
	batches   batches.Repository
	claims    claims.Repository
	residents residents.Repository
}

// NewService builds the reporting service.
func NewService(batchRepo batches.Repository, claimRepo claims.Repository, residentRepo residents.Repository) (Service, error) {
	if batchRepo == nil {
		return nil, fmt.Errorf("batches repository required")
	}
	if claimRepo == nil {
		return nil, fmt.Errorf("claims repository required")
	}
	if residentRepo == nil {
		return nil, fmt.Errorf("residents repository required")
	}
	return &service{batches: batchRepo, claims: claimRepo, residents: residentRepo}, nil
}

// BatchRoster lists every active eligible resident of the batch, plus anyone
// who already claimed it, with their status. Unclaimed rows show the batch's
// default items summary; claimed rows show what was actually handed out.
func (s *service) BatchRoster(ctx context.Context, batchID uuid.UUID) ([]RosterEntry, error) {
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		return nil, db.MapError(err, "load batch")
	}

	lines, err := s.batches.ListItems(ctx, batchID)
	if err != nil {
		return nil, db.MapError(err, "load batch items")
	}
	itemNames := make(map[uuid.UUID]string, len(lines))
	for _, line := range lines {
		itemNames[line.InventoryItemID] = line.Name
	}

	eligible, err := s.residents.ListActiveByClasses(ctx, eligibility.EligibleClasses(batch.TargetClass))
	if err != nil {
		return nil, db.MapError(err, "list eligible residents")
	}

	records, err := s.claims.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, db.MapError(err, "list batch claims")
	}
	byResident := make(map[uuid.UUID][]models.ClaimRecord)
	for _, record := range records {
		byResident[record.ResidentID] = append(byResident[record.ResidentID], record)
	}

	listed := make(map[uuid.UUID]struct{}, len(eligible))
	for _, resident := range eligible {
		listed[resident.ID] = struct{}{}
	}
	var missing []uuid.UUID
	for residentID := range byResident {
		if _, ok := listed[residentID]; !ok {
			missing = append(missing, residentID)
		}
	}
	if len(missing) > 0 {
		extra, err := s.residents.FindByIDs(ctx, missing)
		if err != nil {
			return nil, db.MapError(err, "load claimants")
		}
		for _, resident := range extra {
			eligible = append(eligible, resident)
		}
	}

	out := make([]RosterEntry, 0, len(eligible))
	for _, resident := range eligible {
		recs := byResident[resident.ID]
		status, claimedAt := claimStatusOrDefault(recs)
		items := batch.ItemsSummary
		if len(recs) > 0 {
			items = describeRecords(recs, itemNames)
		}
		out = append(out, RosterEntry{
			ResidentID:     resident.ID,
			ResidentName:   resident.Name,
			Classification: resident.Classification,
			Status:         status,
			Items:          items,
			ClaimedAt:      claimedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ResidentName != out[j].ResidentName {
			return out[i].ResidentName < out[j].ResidentName
		}
		return out[i].ResidentID.String() < out[j].ResidentID.String()
	})
	return out, nil
}

// ClaimFeed groups Claimed records by resident and batch, newest claim first.
// A positive limit caps the number of groups returned.
func (s *service) ClaimFeed(ctx context.Context, limit int) ([]FeedEntry, error) {
	rows, err := s.claims.ListClaimed(ctx)
	if err != nil {
		return nil, db.MapError(err, "list claims")
	}

	type group struct {
		entry FeedEntry
		parts []string
	}
	index := make(map[pairKey]int)
	groups := make([]*group, 0)
	for _, row := range rows {
		key := pairKey{batch: row.BatchID.String(), resident: row.ResidentID.String()}
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, &group{entry: FeedEntry{
				ResidentID:   row.ResidentID,
				ResidentName: row.ResidentName,
				BatchID:      row.BatchID,
				BatchName:    row.BatchName,
				ClaimedAt:    row.ClaimedAt,
			}})
		}
		g := groups[pos]
		g.parts = append(g.parts, fmt.Sprintf("%d %s", row.Qty, row.ItemName))
		if row.ClaimedAt.After(g.entry.ClaimedAt) {
			g.entry.ClaimedAt = row.ClaimedAt
		}
	}

	out := make([]FeedEntry, 0, len(groups))
	for _, g := range groups {
		g.entry.Items = strings.Join(g.parts, ", ")
		out = append(out, g.entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ClaimedAt.After(out[j].ClaimedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ResidentBenefits lists every batch whose target the resident satisfies.
func (s *service) ResidentBenefits(ctx context.Context, residentID uuid.UUID) ([]BenefitEntry, error) {
	resident, err := s.loadResident(ctx, residentID)
	if err != nil {
		return nil, err
	}

	offered, err := s.batches.ListByTargets(ctx, eligibility.SatisfiedTargets(resident.Classification))
	if err != nil {
		return nil, db.MapError(err, "list resident batches")
	}
	records, err := s.claims.ListByResident(ctx, residentID)
	if err != nil {
		return nil, db.MapError(err, "list resident claims")
	}
	grouped := groupRecords(records)

	out := make([]BenefitEntry, 0, len(offered))
	for _, batch := range offered {
		key := pairKey{batch: batch.ID.String(), resident: residentID.String()}
		status, claimedAt := claimStatusOrDefault(grouped[key])
		out = append(out, BenefitEntry{
			BatchID:     batch.ID,
			BatchName:   batch.Name,
			TargetClass: batch.TargetClass,
			Items:       batch.ItemsSummary,
			Status:      status,
			ClaimedAt:   claimedAt,
			CreatedAt:   batch.CreatedAt,
		})
	}
	return out, nil
}

// ResidentClaimStats counts eligible batches and distinct batches per stored status.
func (s *service) ResidentClaimStats(ctx context.Context, residentID uuid.UUID) (*ClaimStats, error) {
	resident, err := s.loadResident(ctx, residentID)
	if err != nil {
		return nil, err
	}

	offered, err := s.batches.ListByTargets(ctx, eligibility.SatisfiedTargets(resident.Classification))
	if err != nil {
		return nil, db.MapError(err, "list resident batches")
	}
	records, err := s.claims.ListByResident(ctx, residentID)
	if err != nil {
		return nil, db.MapError(err, "list resident claims")
	}

	batchesByStatus := map[enums.ClaimStatus]map[uuid.UUID]struct{}{}
	for _, record := range records {
		set, ok := batchesByStatus[record.Status]
		if !ok {
			set = map[uuid.UUID]struct{}{}
			batchesByStatus[record.Status] = set
		}
		set[record.BatchID] = struct{}{}
	}

	return &ClaimStats{
		Eligible: len(offered),
		Claimed:  len(batchesByStatus[enums.ClaimStatusClaimed]),
		Approved: len(batchesByStatus[enums.ClaimStatusApproved]),
		Pending:  len(batchesByStatus[enums.ClaimStatusPending]),
	}, nil
}

func (s *service) loadResident(ctx context.Context, residentID uuid.UUID) (*models.Resident, error) {
	if residentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resident id required")
	}
	resident, err := s.residents.FindByID(ctx, residentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "resident not found")
		}
		return nil, db.MapError(err, "load resident")
	}
	return resident, nil
}

func describeRecords(records []models.ClaimRecord, names map[uuid.UUID]string) string {
	lines := make([]batches.ItemLine, 0, len(records))
	for _, record := range records {
		lines = append(lines, batches.ItemLine{
			InventoryItemID: record.InventoryItemID,
			Name:            names[record.InventoryItemID],
			QtyPerClaim:     record.Qty,
		})
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Name < lines[j].Name })
	return batches.DescribeItems(lines)
}
