package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/civicgrid/resident-portal/pkg/db/models"
)

// ErrTotalBelowAllocated is returned when an edit would shrink total under the reserved amount.
var ErrTotalBelowAllocated = errors.New("total below allocated")

// Repository defines persistence for inventory items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context) ([]models.InventoryItem, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.InventoryItem, error)
	Create(ctx context.Context, item *models.InventoryItem) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any, minTotal *int) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	HasClaimReferences(ctx context.Context, id uuid.UUID) (bool, error)
	TryReserve(ctx context.Context, id uuid.UUID, qty int) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the inventory repository to the provided gorm DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// LockByID loads the item and, on Postgres, holds its row lock until the
// surrounding transaction ends. Claims reserving the item wait behind it.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var item models.InventoryItem
	if err := query.Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.InventoryItem, error) {
	out := make(map[uuid.UUID]models.InventoryItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var items []models.InventoryItem
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

func (r *repository) Create(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// Update applies updates to one row. When minTotal is set the new total is only
// written while it still covers the allocated amount, checked in the same statement
// so a concurrent reservation cannot slip underneath it.
func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any, minTotal *int) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()

	query := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", id)
	if minTotal != nil {
		query = query.Where("allocated <= ?", *minTotal)
	}

	res := query.Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if minTotal != nil {
			if _, err := r.FindByID(ctx, id); err != nil {
				return err
			}
			return ErrTotalBelowAllocated
		}
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.InventoryItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) HasClaimReferences(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ClaimRecord{}).
		Where("inventory_item_id = ?", id).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

// TryReserve moves qty units from available to allocated in a single conditional
// statement. It reports false, with no error, when the balance cannot cover qty.
func (r *repository) TryReserve(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ? AND total - allocated >= ?", id, qty).
		Updates(map[string]any{
			"allocated":  gorm.Expr("allocated + ?", qty),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
