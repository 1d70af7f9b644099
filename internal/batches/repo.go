package batches

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civicgrid/resident-portal/pkg/db/models"
	"github.com/civicgrid/resident-portal/pkg/enums"
)

// Repository defines persistence for distribution batches and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateWithItems(ctx context.Context, batch *models.DistributionBatch, items []models.BatchItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.DistributionBatch, error)
	List(ctx context.Context) ([]models.DistributionBatch, error)
	ListByTargets(ctx context.Context, targets []enums.Classification) ([]models.DistributionBatch, error)
	ListItems(ctx context.Context, batchID uuid.UUID) ([]ItemLine, error)
	ClaimedResidentCounts(ctx context.Context) (map[uuid.UUID]int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the batch repository to the provided gorm DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateWithItems writes the batch row followed by its items. Callers run it
// inside a transaction so a failed item insert discards the batch.
func (r *repository) CreateWithItems(ctx context.Context, batch *models.DistributionBatch, items []models.BatchItem) error {
	if err := r.db.WithContext(ctx).Create(batch).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].BatchID = batch.ID
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DistributionBatch, error) {
	var batch models.DistributionBatch
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) List(ctx context.Context) ([]models.DistributionBatch, error) {
	var rows []models.DistributionBatch
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByTargets(ctx context.Context, targets []enums.Classification) ([]models.DistributionBatch, error) {
	if len(targets) == 0 {
		return []models.DistributionBatch{}, nil
	}
	var rows []models.DistributionBatch
	err := r.db.WithContext(ctx).
		Where("target_class IN ?", targets).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// ListItems returns the batch items ordered by inventory name.
func (r *repository) ListItems(ctx context.Context, batchID uuid.UUID) ([]ItemLine, error) {
	var rows []ItemLine
	err := r.db.WithContext(ctx).
		Table("batch_items bi").
		Select("bi.inventory_item_id AS inventory_item_id, COALESCE(ii.name, '') AS name, bi.qty_per_claim AS qty_per_claim").
		Joins("LEFT JOIN inventory_items ii ON ii.id = bi.inventory_item_id").
		Where("bi.batch_id = ?", batchID).
		Order("name ASC").
		Order("bi.inventory_item_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []ItemLine{}
	}
	return rows, nil
}

// ClaimedResidentCounts returns, per batch, the number of distinct residents
// holding at least one Claimed record.
func (r *repository) ClaimedResidentCounts(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []struct {
		BatchID uuid.UUID
		Total   int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.ClaimRecord{}).
		Select("batch_id, COUNT(DISTINCT resident_id) AS total").
		Where("status = ?", enums.ClaimStatusClaimed).
		Group("batch_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		out[row.BatchID] = row.Total
	}
	return out, nil
}
