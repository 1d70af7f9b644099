package claims

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civicgrid/resident-portal/pkg/db/models"
	"github.com/civicgrid/resident-portal/pkg/enums"
)

// FeedRow is one claimed item joined to its resident, batch and inventory names.
type FeedRow struct {
	BatchID      uuid.UUID
	BatchName    string
	ResidentID   uuid.UUID
	ResidentName string
	ItemName     string
	Qty          int
	ClaimedAt    time.Time
}

// Repository is the append-only claim ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ExistsForResident(ctx context.Context, batchID, residentID uuid.UUID) (bool, error)
	CreateRecords(ctx context.Context, records []models.ClaimRecord) error
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.ClaimRecord, error)
	ListByResident(ctx context.Context, residentID uuid.UUID) ([]models.ClaimRecord, error)
	ListClaimed(ctx context.Context) ([]FeedRow, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the claim repository to the provided gorm DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ExistsForResident(ctx context.Context, batchID, residentID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ClaimRecord{}).
		Where("batch_id = ? AND resident_id = ?", batchID, residentID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) CreateRecords(ctx context.Context, records []models.ClaimRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&records).Error
}

func (r *repository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.ClaimRecord, error) {
	var rows []models.ClaimRecord
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("claimed_at DESC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByResident(ctx context.Context, residentID uuid.UUID) ([]models.ClaimRecord, error) {
	var rows []models.ClaimRecord
	err := r.db.WithContext(ctx).
		Where("resident_id = ?", residentID).
		Order("claimed_at DESC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ListClaimed returns every Claimed record, newest first.
func (r *repository) ListClaimed(ctx context.Context) ([]FeedRow, error) {
	var rows []FeedRow
	err := r.db.WithContext(ctx).
		Table("claim_records cr").
		Select(`cr.batch_id AS batch_id,
			COALESCE(b.name, '') AS batch_name,
			cr.resident_id AS resident_id,
			COALESCE(res.name, '') AS resident_name,
			COALESCE(ii.name, '') AS item_name,
			cr.qty AS qty,
			cr.claimed_at AS claimed_at`).
		Joins("LEFT JOIN distribution_batches b ON b.id = cr.batch_id").
		Joins("LEFT JOIN residents res ON res.id = cr.resident_id").
		Joins("LEFT JOIN inventory_items ii ON ii.id = cr.inventory_item_id").
		Where("cr.status = ?", enums.ClaimStatusClaimed).
		Order("cr.claimed_at DESC").
		Order("cr.batch_id ASC").
		Order("cr.resident_id ASC").
		Order("item_name ASC").
		Scan(&rows).Error
	return rows, err
}
