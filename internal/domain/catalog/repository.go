package catalog

import "context"

// SnapshotRepository persists the durable local mirror of the upstream catalog
type SnapshotRepository interface {
	// FindBySPU returns the mirror record for a single product
	FindBySPU(ctx context.Context, spu string) (*ProductSnapshot, error)

	// FindInStockPage returns one page of active, in-stock mirror records
	// ordered by title for stable pagination
	FindInStockPage(ctx context.Context, warehouseCode string, page, pageSize int) ([]ProductSnapshot, error)

	// CountInStock returns the number of active, in-stock mirror records
	CountInStock(ctx context.Context, warehouseCode string) (int64, error)

	// FindAllActive returns every active mirror record (snapshot dumps)
	FindAllActive(ctx context.Context, warehouseCode string) ([]ProductSnapshot, error)

	// Save upserts a mirror record keyed by SPU
	Save(ctx context.Context, snapshot *ProductSnapshot) error
}
