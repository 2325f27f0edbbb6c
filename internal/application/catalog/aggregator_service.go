package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/locoganga/storefront/internal/domain/catalog"
	"github.com/locoganga/storefront/internal/domain/shared"
	"github.com/locoganga/storefront/internal/infrastructure/cache"
	"github.com/locoganga/storefront/internal/infrastructure/config"
	"github.com/locoganga/storefront/internal/infrastructure/fulfillment"
	"github.com/locoganga/storefront/internal/infrastructure/retry"
	"github.com/locoganga/storefront/internal/infrastructure/snapshot"
)

// UpstreamCatalog is the slice of the fulfillment client the aggregator needs.
// This decouples AggregatorService from the concrete signed HTTP client.
type UpstreamCatalog interface {
	QuerySPUList(ctx context.Context, req fulfillment.SPUListRequest) (*fulfillment.SPUListResult, error)
}

// AggregatorService serves storefront catalog pages through a layered
// fallback chain: cache, live upstream, database mirror, static snapshot.
// Every served page is tagged with the tier that produced it.
type AggregatorService struct {
	upstream     UpstreamCatalog
	snapshotRepo catalog.SnapshotRepository
	pageCache    cache.CatalogCache
	static       *snapshot.StaticStore
	cfg          config.CatalogConfig
	warmupPolicy retry.Policy
	logger       *zap.Logger
}

// NewAggregatorService creates a new AggregatorService
func NewAggregatorService(
	upstream UpstreamCatalog,
	snapshotRepo catalog.SnapshotRepository,
	pageCache cache.CatalogCache,
	static *snapshot.StaticStore,
	cfg config.CatalogConfig,
	logger *zap.Logger,
) *AggregatorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AggregatorService{
		upstream:     upstream,
		snapshotRepo: snapshotRepo,
		pageCache:    pageCache,
		static:       static,
		cfg:          cfg,
		warmupPolicy: retry.Default(func(error) bool { return true }),
		logger:       logger,
	}
}

// GetPage returns one storefront catalog page. The cache is tried first; on a
// miss the live upstream is fetched, filtered to in-stock items and written
// back. Upstream failures degrade silently to the database mirror and then to
// the static snapshot.
func (s *AggregatorService) GetPage(ctx context.Context, page int) (*catalog.CatalogPage, error) {
	if page < 1 {
		page = 1
	}

	key := cache.PageKey(s.cfg.WarehouseCode, page, s.cfg.DisplayPageSize)
	if cached, ok, err := s.pageCache.GetPage(ctx, key); err == nil && ok {
		cached.Source = catalog.PageSourceCache
		return cached, nil
	}

	live, err := s.fetchLivePage(ctx, page)
	if err == nil {
		if cacheErr := s.pageCache.SetPage(ctx, key, live, s.cfg.CacheTTL); cacheErr != nil {
			s.logger.Warn("catalog page cache write failed", zap.Error(cacheErr))
		}
		return live, nil
	}
	s.logger.Warn("live catalog fetch failed, falling back to mirror",
		zap.Int("page", page),
		zap.Error(err))

	mirror, err := s.fetchMirrorPage(ctx, page)
	if err == nil {
		return mirror, nil
	}
	s.logger.Warn("catalog mirror unavailable, falling back to static snapshot",
		zap.Int("page", page),
		zap.Error(err))

	static := s.static.Page(page, s.cfg.DisplayPageSize)
	return &static, nil
}

// fetchLivePage maps the display page window onto upstream pages. The display
// page size and the upstream page size differ, so the window can start mid
// upstream page and span two of them.
func (s *AggregatorService) fetchLivePage(ctx context.Context, page int) (*catalog.CatalogPage, error) {
	start := (page - 1) * s.cfg.DisplayPageSize
	upstreamPage := start/s.cfg.UpstreamPageSize + 1
	skip := start % s.cfg.UpstreamPageSize

	items := make([]catalog.CatalogItem, 0, s.cfg.DisplayPageSize)
	var estimate int64

	// the window spans at most two upstream pages, so two fetches bound
	// worst-case upstream latency per request
	for fetch := 0; fetch < 2 && len(items) < s.cfg.DisplayPageSize; fetch++ {
		result, err := s.upstream.QuerySPUList(ctx, fulfillment.SPUListRequest{
			WarehouseCode: s.cfg.WarehouseCode,
			PageParams: fulfillment.PageParams{
				PageNo:   upstreamPage + fetch,
				PageSize: s.cfg.UpstreamPageSize,
			},
		})
		if err != nil {
			return nil, err
		}

		// estimate derives from the first sampled page of each refresh,
		// never accumulated across fetches
		if fetch == 0 {
			estimate = estimateInStockTotal(result)
		}

		batch := result.SPUList
		if fetch == 0 && skip > 0 {
			if skip >= len(batch) {
				batch = nil
			} else {
				batch = batch[skip:]
			}
		}
		for _, spu := range batch {
			if spu.TotalInventory <= 0 {
				continue
			}
			items = append(items, spuToCatalogItem(spu))
			if len(items) == s.cfg.DisplayPageSize {
				break
			}
		}

		fetched := int64((upstreamPage + fetch) * s.cfg.UpstreamPageSize)
		if fetched >= result.PageParams.TotalCount || len(result.SPUList) == 0 {
			break
		}
	}

	return &catalog.CatalogPage{
		PageNumber:          page,
		Items:               items,
		TotalEstimatedCount: estimate,
		FetchedAt:           time.Now(),
		Source:              catalog.PageSourceLive,
	}, nil
}

func (s *AggregatorService) fetchMirrorPage(ctx context.Context, page int) (*catalog.CatalogPage, error) {
	snapshots, err := s.snapshotRepo.FindInStockPage(ctx, s.cfg.WarehouseCode, page, s.cfg.DisplayPageSize)
	if err != nil {
		return nil, err
	}
	count, err := s.snapshotRepo.CountInStock(ctx, s.cfg.WarehouseCode)
	if err != nil {
		return nil, err
	}

	items := make([]catalog.CatalogItem, 0, len(snapshots))
	for i := range snapshots {
		items = append(items, snapshots[i].ToCatalogItem())
	}
	return &catalog.CatalogPage{
		PageNumber:          page,
		Items:               items,
		TotalEstimatedCount: count,
		FetchedAt:           time.Now(),
		Source:              catalog.PageSourceDatabase,
	}, nil
}

// estimateInStockTotal extrapolates the in-stock catalog size from the
// in-stock ratio of one sampled upstream page.
func estimateInStockTotal(result *fulfillment.SPUListResult) int64 {
	sample := len(result.SPUList)
	if sample == 0 {
		return 0
	}
	inStock := 0
	for _, spu := range result.SPUList {
		if spu.TotalInventory > 0 {
			inStock++
		}
	}
	return result.PageParams.TotalCount * int64(inStock) / int64(sample)
}

func spuToCatalogItem(spu fulfillment.SPUDetail) catalog.CatalogItem {
	return catalog.CatalogItem{
		SPU:            spu.SPU,
		Title:          spu.Title,
		ThumbnailURL:   spu.ThumbnailURL,
		UnitPrice:      parsePrice(spu.SupplyPrice),
		TotalInventory: spu.TotalInventory,
	}
}

func parsePrice(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return price
}

// GetProductDetail returns the detail view for one SPU, live first with a
// mirror fallback, then the static snapshot.
func (s *AggregatorService) GetProductDetail(ctx context.Context, spu string) (*catalog.ProductDetail, error) {
	if spu == "" {
		return nil, shared.NewDomainError("INVALID_SPU", "SPU cannot be empty")
	}

	detail, err := s.fetchLiveDetail(ctx, spu)
	if err == nil {
		return detail, nil
	}
	if errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	s.logger.Warn("live product detail fetch failed, falling back to mirror",
		zap.String("spu", spu),
		zap.Error(err))

	record, repoErr := s.snapshotRepo.FindBySPU(ctx, spu)
	if repoErr == nil {
		item := record.ToCatalogItem()
		return &catalog.ProductDetail{
			SPU:            item.SPU,
			Title:          item.Title,
			ThumbnailURL:   item.ThumbnailURL,
			UnitPrice:      item.UnitPrice,
			TotalInventory: item.TotalInventory,
			Source:         catalog.PageSourceDatabase,
		}, nil
	}
	if !errors.Is(repoErr, shared.ErrNotFound) {
		s.logger.Warn("catalog mirror lookup failed", zap.String("spu", spu), zap.Error(repoErr))
	}

	if static := s.static.Detail(spu); static != nil {
		return static, nil
	}
	return nil, shared.ErrNotFound
}

func (s *AggregatorService) fetchLiveDetail(ctx context.Context, spu string) (*catalog.ProductDetail, error) {
	result, err := s.upstream.QuerySPUList(ctx, fulfillment.SPUListRequest{
		WarehouseCode: s.cfg.WarehouseCode,
		SPUList:       []string{spu},
		PageParams:    fulfillment.PageParams{PageNo: 1, PageSize: 1},
	})
	if err != nil {
		return nil, err
	}
	if len(result.SPUList) == 0 {
		return nil, shared.ErrNotFound
	}

	found := result.SPUList[0]
	skus := make([]catalog.SKUOffer, 0, len(found.SKUList))
	for _, sku := range found.SKUList {
		skus = append(skus, catalog.SKUOffer{
			SKU:           sku.SKU,
			Price:         parsePrice(sku.Price),
			Inventory:     sku.Inventory,
			Specification: sku.Specification,
		})
	}
	return &catalog.ProductDetail{
		SPU:            found.SPU,
		Title:          found.Title,
		Description:    found.Description,
		ThumbnailURL:   found.ThumbnailURL,
		UnitPrice:      parsePrice(found.SupplyPrice),
		TotalInventory: found.TotalInventory,
		SKUs:           skus,
		Source:         catalog.PageSourceLive,
	}, nil
}

// RefreshMirror pulls every upstream catalog page into the database mirror,
// deactivates mirror records the upstream no longer lists, and invalidates
// cached pages so the next request sees fresh data.
func (s *AggregatorService) RefreshMirror(ctx context.Context) (int, error) {
	seen := make(map[string]bool)
	pageNo := 1
	for {
		result, err := s.upstream.QuerySPUList(ctx, fulfillment.SPUListRequest{
			WarehouseCode: s.cfg.WarehouseCode,
			PageParams: fulfillment.PageParams{
				PageNo:   pageNo,
				PageSize: s.cfg.UpstreamPageSize,
			},
		})
		if err != nil {
			return len(seen), fmt.Errorf("refresh mirror page %d: %w", pageNo, err)
		}
		if len(result.SPUList) == 0 {
			break
		}

		for _, spu := range result.SPUList {
			if err := s.upsertMirrorRecord(ctx, spu); err != nil {
				s.logger.Warn("mirror record upsert failed",
					zap.String("spu", spu.SPU),
					zap.Error(err))
				continue
			}
			seen[spu.SPU] = true
		}

		if int64(pageNo*s.cfg.UpstreamPageSize) >= result.PageParams.TotalCount {
			break
		}
		pageNo++
	}

	s.deactivateUnseen(ctx, seen)

	if err := s.pageCache.InvalidatePrefix(ctx, cache.PagePrefix(s.cfg.WarehouseCode)); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}

	s.logger.Info("catalog mirror refreshed",
		zap.String("warehouse", s.cfg.WarehouseCode),
		zap.Int("products", len(seen)))
	return len(seen), nil
}

func (s *AggregatorService) upsertMirrorRecord(ctx context.Context, spu fulfillment.SPUDetail) error {
	record, err := s.snapshotRepo.FindBySPU(ctx, spu.SPU)
	if errors.Is(err, shared.ErrNotFound) {
		record, err = catalog.NewProductSnapshot(spu.SPU, spu.Title, s.cfg.WarehouseCode)
	}
	if err != nil {
		return err
	}

	raw, err := json.Marshal(spu)
	if err != nil {
		return err
	}
	record.UpdateFromUpstream(spu.Title, spu.ThumbnailURL, parsePrice(spu.SupplyPrice), spu.TotalInventory, string(raw))
	return s.snapshotRepo.Save(ctx, record)
}

func (s *AggregatorService) deactivateUnseen(ctx context.Context, seen map[string]bool) {
	active, err := s.snapshotRepo.FindAllActive(ctx, s.cfg.WarehouseCode)
	if err != nil {
		s.logger.Warn("mirror deactivation scan failed", zap.Error(err))
		return
	}
	for i := range active {
		if seen[active[i].SPU] {
			continue
		}
		active[i].Deactivate()
		if err := s.snapshotRepo.Save(ctx, &active[i]); err != nil {
			s.logger.Warn("mirror record deactivation failed",
				zap.String("spu", active[i].SPU),
				zap.Error(err))
		}
	}
}

// DumpSnapshot writes the current in-stock mirror contents to a static
// snapshot file for bundling with deployments.
func (s *AggregatorService) DumpSnapshot(ctx context.Context, path string) (int, error) {
	active, err := s.snapshotRepo.FindAllActive(ctx, s.cfg.WarehouseCode)
	if err != nil {
		return 0, err
	}

	items := make([]catalog.CatalogItem, 0, len(active))
	for i := range active {
		if active[i].TotalInventory <= 0 {
			continue
		}
		items = append(items, active[i].ToCatalogItem())
	}
	if err := snapshot.Dump(path, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

// Warmup fetches the first pages in the background so the first visitors hit
// a warm cache. Failures are logged, never fatal.
func (s *AggregatorService) Warmup(ctx context.Context, pages int) {
	go func() {
		for page := 1; page <= pages; page++ {
			p := page
			err := s.warmupPolicy.Do(ctx, func(ctx context.Context) error {
				_, err := s.GetPage(ctx, p)
				return err
			})
			if err != nil {
				s.logger.Warn("catalog warmup page failed",
					zap.Int("page", p),
					zap.Error(err))
			}
		}
		s.logger.Info("catalog warmup finished", zap.Int("pages", pages))
	}()
}
