package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/locoganga/storefront/internal/domain/catalog"
	"github.com/locoganga/storefront/internal/domain/shared"
)

// GormSnapshotRepository implements catalog.SnapshotRepository using GORM
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a new GormSnapshotRepository
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

// FindBySPU returns the mirror record for a single product
func (r *GormSnapshotRepository) FindBySPU(ctx context.Context, spu string) (*catalog.ProductSnapshot, error) {
	var snapshot catalog.ProductSnapshot
	if err := r.db.WithContext(ctx).
		Where("spu = ?", spu).
		First(&snapshot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &snapshot, nil
}

// FindInStockPage returns one page of active, in-stock mirror records ordered
// by title for stable pagination
func (r *GormSnapshotRepository) FindInStockPage(ctx context.Context, warehouseCode string, page, pageSize int) ([]catalog.ProductSnapshot, error) {
	if page < 1 {
		page = 1
	}

	var snapshots []catalog.ProductSnapshot
	if err := r.inStockQuery(ctx, warehouseCode).
		Order("title ASC, spu ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

// CountInStock returns the number of active, in-stock mirror records
func (r *GormSnapshotRepository) CountInStock(ctx context.Context, warehouseCode string) (int64, error) {
	var count int64
	if err := r.inStockQuery(ctx, warehouseCode).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindAllActive returns every active mirror record
func (r *GormSnapshotRepository) FindAllActive(ctx context.Context, warehouseCode string) ([]catalog.ProductSnapshot, error) {
	var snapshots []catalog.ProductSnapshot
	query := r.db.WithContext(ctx).
		Model(&catalog.ProductSnapshot{}).
		Where("is_active = ?", true)
	if warehouseCode != "" {
		query = query.Where("warehouse_code = ?", warehouseCode)
	}
	if err := query.Order("spu ASC").Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Save upserts a mirror record keyed by SPU
func (r *GormSnapshotRepository) Save(ctx context.Context, snapshot *catalog.ProductSnapshot) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "spu"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "thumbnail_url", "unit_price", "total_inventory",
				"warehouse_code", "raw_data", "is_active", "synced_at", "updated_at",
			}),
		}).
		Create(snapshot).Error
}

func (r *GormSnapshotRepository) inStockQuery(ctx context.Context, warehouseCode string) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&catalog.ProductSnapshot{}).
		Where("is_active = ? AND total_inventory > 0", true)
	if warehouseCode != "" {
		query = query.Where("warehouse_code = ?", warehouseCode)
	}
	return query
}

// Ensure GormSnapshotRepository implements catalog.SnapshotRepository
var _ catalog.SnapshotRepository = (*GormSnapshotRepository)(nil)
