package order

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/locoganga/storefront/internal/domain/catalog"
	"github.com/locoganga/storefront/internal/domain/order"
	"github.com/locoganga/storefront/internal/domain/shared"
	"github.com/locoganga/storefront/internal/infrastructure/fulfillment"
)

// InventorySource is the slice of the fulfillment client the checker needs
type InventorySource interface {
	QuerySPUList(ctx context.Context, req fulfillment.SPUListRequest) (*fulfillment.SPUListResult, error)
}

// UpstreamInventoryChecker validates cart lines against live upstream
// inventory, with the database mirror as a degraded fallback. Every
// conflicting SKU is reported, not just the first.
type UpstreamInventoryChecker struct {
	upstream      InventorySource
	snapshotRepo  catalog.SnapshotRepository
	warehouseCode string
	logger        *zap.Logger
}

// NewUpstreamInventoryChecker creates a new UpstreamInventoryChecker
func NewUpstreamInventoryChecker(
	upstream InventorySource,
	snapshotRepo catalog.SnapshotRepository,
	warehouseCode string,
	logger *zap.Logger,
) *UpstreamInventoryChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpstreamInventoryChecker{
		upstream:      upstream,
		snapshotRepo:  snapshotRepo,
		warehouseCode: warehouseCode,
		logger:        logger,
	}
}

// CheckAvailability returns one conflict per cart line that exceeds the
// currently sellable quantity
func (c *UpstreamInventoryChecker) CheckAvailability(ctx context.Context, lines []order.CartLine) ([]order.InventoryConflict, error) {
	levels, err := c.liveLevels(ctx, lines)
	if err != nil {
		c.logger.Warn("live inventory check failed, using mirror", zap.Error(err))
		levels, err = c.mirrorLevels(ctx, lines)
		if err != nil {
			return nil, err
		}
	}

	var conflicts []order.InventoryConflict
	for _, line := range lines {
		available, known := levels[line.SKU]
		if !known {
			available = 0
		}
		if line.Quantity > available {
			conflicts = append(conflicts, order.InventoryConflict{
				SKU:       line.SKU,
				Requested: line.Quantity,
				Available: available,
			})
		}
	}
	return conflicts, nil
}

func (c *UpstreamInventoryChecker) liveLevels(ctx context.Context, lines []order.CartLine) (map[string]int64, error) {
	spus := make([]string, 0, len(lines))
	seen := make(map[string]bool)
	for _, line := range lines {
		spu := line.SPU
		if spu == "" {
			spu = line.SKU
		}
		if !seen[spu] {
			seen[spu] = true
			spus = append(spus, spu)
		}
	}

	result, err := c.upstream.QuerySPUList(ctx, fulfillment.SPUListRequest{
		WarehouseCode: c.warehouseCode,
		SPUList:       spus,
		PageParams:    fulfillment.PageParams{PageNo: 1, PageSize: len(spus)},
	})
	if err != nil {
		return nil, err
	}

	levels := make(map[string]int64)
	for _, spu := range result.SPUList {
		// an SPU sold without variants is addressable by its own code
		levels[spu.SPU] = spu.TotalInventory
		for _, sku := range spu.SKUList {
			levels[sku.SKU] = sku.Inventory
		}
	}
	return levels, nil
}

// mirrorLevels approximates SKU inventory with the SPU-level mirror totals
func (c *UpstreamInventoryChecker) mirrorLevels(ctx context.Context, lines []order.CartLine) (map[string]int64, error) {
	levels := make(map[string]int64)
	for _, line := range lines {
		spu := line.SPU
		if spu == "" {
			spu = line.SKU
		}
		record, err := c.snapshotRepo.FindBySPU(ctx, spu)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return nil, err
		}
		levels[line.SKU] = record.TotalInventory
	}
	return levels, nil
}

// Ensure UpstreamInventoryChecker implements order.InventoryChecker
var _ order.InventoryChecker = (*UpstreamInventoryChecker)(nil)
