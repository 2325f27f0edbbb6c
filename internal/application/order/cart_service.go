package order

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/locoganga/storefront/internal/domain/catalog"
	"github.com/locoganga/storefront/internal/domain/order"
	"github.com/locoganga/storefront/internal/domain/shared"
)

// ProductLookup resolves current price and stock for a product. Implemented
// by the catalog aggregator.
type ProductLookup interface {
	GetProductDetail(ctx context.Context, spu string) (*catalog.ProductDetail, error)
}

// CartView is the materialized cart for one session
type CartView struct {
	SessionID string           `json:"session_id"`
	Lines     []order.CartLine `json:"lines"`
	Total     decimal.Decimal  `json:"total"`
}

// CartService manages session carts. Prices are captured at add time from the
// current catalog view and frozen into the order at checkout.
type CartService struct {
	cartRepo order.CartRepository
	products ProductLookup
	logger   *zap.Logger
}

// NewCartService creates a new CartService
func NewCartService(cartRepo order.CartRepository, products ProductLookup, logger *zap.Logger) *CartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{
		cartRepo: cartRepo,
		products: products,
		logger:   logger,
	}
}

// AddItem puts one SKU into the session cart at the current catalog price.
// Re-adding the same SKU replaces the quantity.
func (s *CartService) AddItem(ctx context.Context, sessionID, spu, sku string, quantity int64) (*CartView, error) {
	detail, err := s.products.GetProductDetail(ctx, spu)
	if err != nil {
		return nil, err
	}

	price := detail.UnitPrice
	available := detail.TotalInventory
	if sku == "" {
		sku = spu
	}
	for _, offer := range detail.SKUs {
		if offer.SKU == sku {
			price = offer.Price
			available = offer.Inventory
			break
		}
	}

	if available <= 0 {
		return nil, shared.NewDomainErrorf("OUT_OF_STOCK", "SKU %s is out of stock", sku)
	}

	line, err := order.NewCartLine(sessionID, sku, spu, quantity, price, detail.Title)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, line); err != nil {
		return nil, err
	}

	s.logger.Info("cart item added",
		zap.String("session_id", sessionID),
		zap.String("sku", sku),
		zap.Int64("quantity", quantity))
	return s.GetCart(ctx, sessionID)
}

// RemoveItem drops one SKU from the session cart
func (s *CartService) RemoveItem(ctx context.Context, sessionID, sku string) (*CartView, error) {
	if err := s.cartRepo.DeleteLine(ctx, sessionID, sku); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, sessionID)
}

// GetCart returns the session cart with its running total
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*CartView, error) {
	lines, err := s.cartRepo.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.PriceAtAdd.Mul(decimal.NewFromInt(line.Quantity)))
	}
	return &CartView{
		SessionID: sessionID,
		Lines:     lines,
		Total:     total,
	}, nil
}

// Clear empties the session cart
func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	return s.cartRepo.ClearSession(ctx, sessionID)
}
