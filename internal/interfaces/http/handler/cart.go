package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/locoganga/storefront/internal/application/order"
	"github.com/locoganga/storefront/internal/interfaces/http/middleware"
)

// AddCartItemRequest adds one SKU to the session cart
type AddCartItemRequest struct {
	SPU      string `json:"spu" binding:"required"`
	SKU      string `json:"sku"`
	Quantity int64  `json:"quantity" binding:"required,min=1"`
}

// CartHandler manages the session cart
type CartHandler struct {
	BaseHandler
	carts *apporder.CartService
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts *apporder.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// Get handles GET /api/v1/cart
func (h *CartHandler) Get(c *gin.Context) {
	sessionID := getSessionID(c)
	if sessionID == "" {
		h.BadRequest(c, "Session ID is required")
		return
	}

	view, err := h.carts.GetCart(c.Request.Context(), sessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// AddItem handles POST /api/v1/cart
func (h *CartHandler) AddItem(c *gin.Context) {
	sessionID := getSessionID(c)
	if sessionID == "" {
		h.BadRequest(c, "Session ID is required")
		return
	}

	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	view, err := h.carts.AddItem(c.Request.Context(), sessionID, req.SPU, req.SKU, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// RemoveItem handles DELETE /api/v1/cart/:sku
func (h *CartHandler) RemoveItem(c *gin.Context) {
	sessionID := getSessionID(c)
	if sessionID == "" {
		h.BadRequest(c, "Session ID is required")
		return
	}

	view, err := h.carts.RemoveItem(c.Request.Context(), sessionID, c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Clear handles DELETE /api/v1/cart
func (h *CartHandler) Clear(c *gin.Context) {
	sessionID := getSessionID(c)
	if sessionID == "" {
		h.BadRequest(c, "Session ID is required")
		return
	}

	if err := h.carts.Clear(c.Request.Context(), sessionID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"cleared": true})
}
