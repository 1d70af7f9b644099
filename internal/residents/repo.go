// Package residents reads the registration records owned by the registration service.
package residents

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civicgrid/resident-portal/pkg/db/models"
	"github.com/civicgrid/resident-portal/pkg/enums"
)

// Repository exposes read-only queries over residents.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Resident, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Resident, error)
	ListActiveByClasses(ctx context.Context, classes []enums.Classification) ([]models.Resident, error)
	CountActiveByClassification(ctx context.Context) (map[enums.Classification]int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the resident repository to the provided gorm DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Resident, error) {
	var resident models.Resident
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&resident).Error; err != nil {
		return nil, err
	}
	return &resident, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Resident, error) {
	out := make(map[uuid.UUID]models.Resident, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Resident
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// ListActiveByClasses returns active residents whose classification is in classes, by name.
func (r *repository) ListActiveByClasses(ctx context.Context, classes []enums.Classification) ([]models.Resident, error) {
	if len(classes) == 0 {
		return []models.Resident{}, nil
	}
	var rows []models.Resident
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND classification IN ?", true, classes).
		Order("name ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// CountActiveByClassification groups active residents by classification so
// eligibility totals for many batches come from one query.
func (r *repository) CountActiveByClassification(ctx context.Context) (map[enums.Classification]int64, error) {
	var rows []struct {
		Classification enums.Classification
		Total          int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Resident{}).
		Select("classification, COUNT(*) AS total").
		Where("is_active = ?", true).
		Group("classification").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.Classification]int64, len(rows))
	for _, row := range rows {
		out[row.Classification] = row.Total
	}
	return out, nil
}
