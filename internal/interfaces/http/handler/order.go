package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apporder "github.com/locoganga/storefront/internal/application/order"
	"github.com/locoganga/storefront/internal/domain/order"
)

// OrderLineView is one frozen order line
type OrderLineView struct {
	SKU      string          `json:"sku"`
	Title    string          `json:"title"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// OrderView is the public order representation
type OrderView struct {
	OrderNumber    string          `json:"order_number"`
	Status         string          `json:"status"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TrackingNumber string          `json:"tracking_number,omitempty"`
	Lines          []OrderLineView `json:"lines"`
	CreatedAt      time.Time       `json:"created_at"`
}

func orderView(o *order.Order) OrderView {
	lines := make([]OrderLineView, 0, len(o.Lines))
	for _, line := range o.Lines {
		lines = append(lines, OrderLineView{
			SKU:      line.SKU,
			Title:    line.Title,
			Quantity: line.Quantity,
			Price:    line.PriceAtOrder,
		})
	}
	return OrderView{
		OrderNumber:    o.OrderNumber,
		Status:         o.Status.String(),
		TotalAmount:    o.TotalAmount,
		TrackingNumber: o.TrackingNumber,
		Lines:          lines,
		CreatedAt:      o.CreatedAt,
	}
}

// CancelOrderRequest carries the optional cancellation reason
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// OrderHandler serves order lookup, cancellation and status sync
type OrderHandler struct {
	BaseHandler
	checkout *apporder.CheckoutService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(checkout *apporder.CheckoutService) *OrderHandler {
	return &OrderHandler{checkout: checkout}
}

// Get handles GET /api/v1/orders/:orderNumber
func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.checkout.GetOrder(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orderView(o))
}

// Cancel handles POST /api/v1/orders/:orderNumber/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	var req CancelOrderRequest
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "cancelled by customer"
	}

	o, err := h.checkout.Cancel(c.Request.Context(), c.Param("orderNumber"), req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orderView(o))
}

// Sync handles POST /api/v1/orders/:orderNumber/sync
func (h *OrderHandler) Sync(c *gin.Context) {
	out, err := h.checkout.SyncStatus(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}
