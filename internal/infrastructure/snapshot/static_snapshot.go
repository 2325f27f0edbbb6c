// Package snapshot serves catalog pages from a static JSON file bundled with
// the deployment. It is the last tier of the listing fallback chain and must
// never fail a request: a missing or corrupt file degrades to empty pages.
package snapshot

import (
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/locoganga/storefront/internal/domain/catalog"
)

// StaticStore loads the snapshot file once and paginates it in memory.
type StaticStore struct {
	path   string
	logger *zap.Logger

	once  sync.Once
	items []catalog.CatalogItem
}

// NewStaticStore creates a store backed by the given snapshot file. The file
// is not touched until the first page request.
func NewStaticStore(path string, logger *zap.Logger) *StaticStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaticStore{path: path, logger: logger}
}

// Page returns one page of in-stock snapshot items. Out-of-range pages are
// empty pages, not errors.
func (s *StaticStore) Page(page, pageSize int) catalog.CatalogPage {
	s.once.Do(s.load)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}

	result := catalog.CatalogPage{
		PageNumber:          page,
		Items:               []catalog.CatalogItem{},
		TotalEstimatedCount: int64(len(s.items)),
		FetchedAt:           time.Now(),
		Source:              catalog.PageSourceSnapshot,
	}

	start := (page - 1) * pageSize
	if start >= len(s.items) {
		return result
	}
	end := start + pageSize
	if end > len(s.items) {
		end = len(s.items)
	}
	result.Items = append(result.Items, s.items[start:end]...)
	return result
}

// Detail returns the snapshot entry for a single SPU, or nil when unknown.
func (s *StaticStore) Detail(spu string) *catalog.ProductDetail {
	s.once.Do(s.load)

	for _, item := range s.items {
		if item.SPU == spu {
			return &catalog.ProductDetail{
				SPU:            item.SPU,
				Title:          item.Title,
				ThumbnailURL:   item.ThumbnailURL,
				UnitPrice:      item.UnitPrice,
				TotalInventory: item.TotalInventory,
				Source:         catalog.PageSourceSnapshot,
			}
		}
	}
	return nil
}

// Size returns the number of loaded in-stock items.
func (s *StaticStore) Size() int {
	s.once.Do(s.load)
	return len(s.items)
}

func (s *StaticStore) load() {
	if s.path == "" {
		return
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Warn("catalog snapshot file unavailable, serving empty pages",
			zap.String("path", s.path),
			zap.Error(err))
		return
	}

	var items []catalog.CatalogItem
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn("catalog snapshot file corrupt, serving empty pages",
			zap.String("path", s.path),
			zap.Error(err))
		return
	}

	inStock := catalog.FilterInStock(items)
	sort.SliceStable(inStock, func(i, j int) bool {
		if inStock[i].Title != inStock[j].Title {
			return inStock[i].Title < inStock[j].Title
		}
		return inStock[i].SPU < inStock[j].SPU
	})
	s.items = inStock

	s.logger.Info("catalog snapshot loaded",
		zap.String("path", s.path),
		zap.Int("items", len(s.items)))
}

// Dump writes the given items to path as a snapshot file other deployments
// can bundle. Used by the mirror refresh job after a successful sync.
func Dump(path string, items []catalog.CatalogItem) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
