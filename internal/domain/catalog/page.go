package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// PageSource identifies which tier of the fallback chain produced a page
type PageSource string

const (
	PageSourceCache    PageSource = "cache"
	PageSourceLive     PageSource = "live"
	PageSourceDatabase PageSource = "database"
	PageSourceSnapshot PageSource = "snapshot"
)

// CatalogItem is a single storefront listing entry.
// Items served live are transient; items served from the mirror or the
// static snapshot are materialized from ProductSnapshot records.
type CatalogItem struct {
	SPU            string          `json:"spu"`
	Title          string          `json:"title"`
	ThumbnailURL   string          `json:"thumbnail_url"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TotalInventory int64           `json:"total_inventory"`
}

// InStock reports whether the item has any sellable inventory
func (i CatalogItem) InStock() bool {
	return i.TotalInventory > 0
}

// CatalogPage is a materialized storefront page view. TotalEstimatedCount is
// re-derived on every live refresh, never accumulated across fetches.
type CatalogPage struct {
	PageNumber          int           `json:"page_number"`
	Items               []CatalogItem `json:"items"`
	TotalEstimatedCount int64         `json:"total_estimated_count"`
	FetchedAt           time.Time     `json:"fetched_at"`
	Source              PageSource    `json:"source"`
}

// FilterInStock returns only the items with positive inventory, preserving order
func FilterInStock(items []CatalogItem) []CatalogItem {
	result := make([]CatalogItem, 0, len(items))
	for _, item := range items {
		if item.InStock() {
			result = append(result, item)
		}
	}
	return result
}

// SKUOffer is a sellable variant attached to a product detail view
type SKUOffer struct {
	SKU           string          `json:"sku"`
	Price         decimal.Decimal `json:"price"`
	Inventory     int64           `json:"inventory"`
	Specification string          `json:"specification,omitempty"`
}

// ProductDetail is the detail view for a single SPU
type ProductDetail struct {
	SPU            string          `json:"spu"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	ThumbnailURL   string          `json:"thumbnail_url"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TotalInventory int64           `json:"total_inventory"`
	SKUs           []SKUOffer      `json:"skus,omitempty"`
	Source         PageSource      `json:"source"`
}
