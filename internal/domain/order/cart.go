package order

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/locoganga/storefront/internal/domain/shared"
)

// CartLine is one item held in a session cart. Price and title are captured
// at add time and frozen into the order line at checkout.
type CartLine struct {
	shared.BaseEntity
	SessionID  string          `gorm:"size:128;not null;uniqueIndex:idx_cart_session_sku"`
	SKU        string          `gorm:"size:64;not null;uniqueIndex:idx_cart_session_sku"`
	SPU        string          `gorm:"size:64"`
	Quantity   int64           `gorm:"not null"`
	PriceAtAdd decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	TitleAtAdd string          `gorm:"size:512"`
}

// NewCartLine creates a cart line for a session
func NewCartLine(sessionID, sku, spu string, quantity int64, price decimal.Decimal, title string) (*CartLine, error) {
	if sessionID == "" {
		return nil, shared.NewDomainError("INVALID_CART_SESSION", "Cart session ID cannot be empty")
	}
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	return &CartLine{
		BaseEntity: shared.NewBaseEntity(),
		SessionID:  sessionID,
		SKU:        sku,
		SPU:        spu,
		Quantity:   quantity,
		PriceAtAdd: price,
		TitleAtAdd: title,
	}, nil
}

// ToOrderLine freezes the cart line into an order line
func (c *CartLine) ToOrderLine() Line {
	return Line{
		BaseEntity:   shared.NewBaseEntity(),
		SKU:          c.SKU,
		SPU:          c.SPU,
		Quantity:     c.Quantity,
		PriceAtOrder: c.PriceAtAdd,
		Title:        c.TitleAtAdd,
	}
}

// CartRepository reads and mutates session carts
type CartRepository interface {
	// FindBySession returns all lines in a session cart
	FindBySession(ctx context.Context, sessionID string) ([]CartLine, error)

	// Save upserts a cart line
	Save(ctx context.Context, line *CartLine) error

	// DeleteLine removes one SKU from a session cart
	DeleteLine(ctx context.Context, sessionID, sku string) error

	// ClearSession removes every line from a session cart
	ClearSession(ctx context.Context, sessionID string) error
}

// InventoryLevel is the sellable quantity reported for one SKU
type InventoryLevel struct {
	SKU       string
	Available int64
}

// InventoryConflict describes one cart line that exceeds available inventory
type InventoryConflict struct {
	SKU       string `json:"sku"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}

// InventoryChecker validates cart lines against current sellable inventory.
// Implementations report every conflicting SKU, not just the first one.
type InventoryChecker interface {
	CheckAvailability(ctx context.Context, lines []CartLine) ([]InventoryConflict, error)
}
