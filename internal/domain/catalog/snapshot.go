package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/locoganga/storefront/internal/domain/shared"
)

// ProductSnapshot is a durable local mirror record of one upstream catalog
// product. The mirror is refreshed out of band and serves listing requests
// when the live upstream is unreachable.
type ProductSnapshot struct {
	shared.BaseAggregateRoot
	SPU            string          `gorm:"uniqueIndex;size:64;not null"`
	Title          string          `gorm:"size:512;not null"`
	ThumbnailURL   string          `gorm:"size:1024"`
	UnitPrice      decimal.Decimal `gorm:"type:numeric(12,2)"`
	TotalInventory int64           `gorm:"not null;default:0"`
	WarehouseCode  string          `gorm:"size:32;index"`
	RawData        string          `gorm:"type:text"` // upstream item JSON, verbatim
	IsActive       bool            `gorm:"not null;default:true;index"`
	SyncedAt       time.Time
}

// NewProductSnapshot creates a mirror record for an upstream product
func NewProductSnapshot(spu, title, warehouseCode string) (*ProductSnapshot, error) {
	if spu == "" {
		return nil, shared.NewDomainError("INVALID_SPU", "SPU cannot be empty")
	}
	if title == "" {
		return nil, shared.NewDomainError("INVALID_TITLE", "Title cannot be empty")
	}

	return &ProductSnapshot{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SPU:               spu,
		Title:             title,
		WarehouseCode:     warehouseCode,
		UnitPrice:         decimal.Zero,
		IsActive:          true,
		SyncedAt:          time.Now(),
	}, nil
}

// UpdateFromUpstream refreshes mutable fields from a newly fetched upstream item
func (p *ProductSnapshot) UpdateFromUpstream(title, thumbnailURL string, unitPrice decimal.Decimal, totalInventory int64, rawData string) {
	if title != "" {
		p.Title = title
	}
	p.ThumbnailURL = thumbnailURL
	p.UnitPrice = unitPrice
	p.TotalInventory = totalInventory
	p.RawData = rawData
	p.IsActive = true
	p.SyncedAt = time.Now()
	p.UpdatedAt = time.Now()
}

// Deactivate hides the product from mirror-served pages
func (p *ProductSnapshot) Deactivate() {
	p.IsActive = false
	p.UpdatedAt = time.Now()
}

// ToCatalogItem converts the mirror record to a listing entry
func (p *ProductSnapshot) ToCatalogItem() CatalogItem {
	return CatalogItem{
		SPU:            p.SPU,
		Title:          p.Title,
		ThumbnailURL:   p.ThumbnailURL,
		UnitPrice:      p.UnitPrice,
		TotalInventory: p.TotalInventory,
	}
}
