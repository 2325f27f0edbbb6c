package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apporder "github.com/locoganga/storefront/internal/application/order"
	"github.com/locoganga/storefront/internal/domain/order"
	"github.com/locoganga/storefront/internal/interfaces/http/dto"
	"github.com/locoganga/storefront/internal/interfaces/http/middleware"
)

// CheckoutRequest starts the order pipeline for the session cart
type CheckoutRequest struct {
	Name            string `json:"name" binding:"required"`
	Phone           string `json:"phone"`
	Email           string `json:"email" binding:"omitempty,email"`
	Address1        string `json:"address1" binding:"required"`
	Address2        string `json:"address2"`
	City            string `json:"city" binding:"required"`
	Region          string `json:"region"`
	Country         string `json:"country" binding:"required"`
	ZipCode         string `json:"zip_code" binding:"required"`
	DeliveryWayCode string `json:"delivery_way_code"`
}

// CheckoutHandler drives checkout initiation, the synchronous payment return
// and the payment webhook
type CheckoutHandler struct {
	BaseHandler
	checkout *apporder.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkout *apporder.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// Begin handles POST /api/v1/checkout
func (h *CheckoutHandler) Begin(c *gin.Context) {
	sessionID := getSessionID(c)
	if sessionID == "" {
		h.BadRequest(c, "Session ID is required")
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	out, err := h.checkout.BeginCheckout(c.Request.Context(), apporder.BeginCheckoutInput{
		SessionID: sessionID,
		Shipping: order.ShippingInfo{
			Name:            req.Name,
			Phone:           req.Phone,
			Email:           req.Email,
			Address1:        req.Address1,
			Address2:        req.Address2,
			City:            req.City,
			Region:          req.Region,
			Country:         req.Country,
			ZipCode:         req.ZipCode,
			DeliveryWayCode: req.DeliveryWayCode,
		},
	})
	if err != nil {
		var conflictErr *apporder.InventoryConflictError
		if errors.As(err, &conflictErr) {
			c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponseWithDetails(
				dto.ErrCodeInsufficientInventory,
				"Some cart items exceed available inventory",
				getRequestID(c),
				conflictErr.Conflicts,
			))
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Created(c, out)
}

// Return handles GET /api/v1/checkout/return, the synchronous redirect back
// from the hosted payment page
func (h *CheckoutHandler) Return(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		h.BadRequest(c, "session_id query parameter is required")
		return
	}

	o, err := h.checkout.HandleReturn(c.Request.Context(), sessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orderView(o))
}

// Webhook handles POST /api/v1/webhooks/stripe. The raw body is read before
// any parsing because the signature covers the exact bytes.
func (h *CheckoutHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Could not read request body")
		return
	}

	if err := h.checkout.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"received": true})
}
