package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/locoganga/storefront/internal/domain/shared"
)

// Status represents the lifecycle state of an order
type Status string

const (
	StatusPending            Status = "pending"
	StatusPaymentCreated     Status = "payment_created"
	StatusPaymentConfirmed   Status = "payment_confirmed"
	StatusPaymentFailed      Status = "payment_failed"
	StatusFulfillmentCreated Status = "fulfillment_created"
	StatusFulfilled          Status = "fulfilled"
	StatusFulfillmentFailed  Status = "fulfillment_failed"
	StatusCancelled          Status = "cancelled"
	StatusError              Status = "error"
)

// IsValid checks if the status is a known Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaymentCreated, StatusPaymentConfirmed, StatusPaymentFailed,
		StatusFulfillmentCreated, StatusFulfilled, StatusFulfillmentFailed,
		StatusCancelled, StatusError:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition can leave this status
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFulfilled, StatusPaymentFailed, StatusFulfillmentFailed, StatusCancelled, StatusError:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can transition to the target status.
// StatusError is reachable from any state on an irreconcilable conflict.
func (s Status) CanTransitionTo(target Status) bool {
	if target == StatusError {
		return true
	}
	switch s {
	case StatusPending:
		return target == StatusPaymentCreated || target == StatusCancelled
	case StatusPaymentCreated:
		return target == StatusPaymentConfirmed || target == StatusPaymentFailed || target == StatusCancelled
	case StatusPaymentConfirmed:
		return target == StatusFulfillmentCreated || target == StatusCancelled
	case StatusFulfillmentCreated:
		// A failed shipment attempt either definitively fails or releases the
		// claim back to payment_confirmed for another attempt. Cancellation is
		// still possible while the shipment is voidable upstream.
		return target == StatusFulfilled || target == StatusFulfillmentFailed ||
			target == StatusPaymentConfirmed || target == StatusCancelled
	}
	return false
}

// Line is a single order line. Lines are immutable once the order leaves
// the pending state; price and title are frozen at order time.
type Line struct {
	shared.BaseEntity
	OrderID      string          `gorm:"size:64;index;not null"`
	SKU          string          `gorm:"size:64;not null"`
	SPU          string          `gorm:"size:64"`
	Quantity     int64           `gorm:"not null"`
	PriceAtOrder decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Title        string          `gorm:"size:512"`
}

// Amount returns quantity times the frozen unit price
func (l Line) Amount() decimal.Decimal {
	return l.PriceAtOrder.Mul(decimal.NewFromInt(l.Quantity))
}

// ShippingInfo holds the recipient and delivery selection for an order
type ShippingInfo struct {
	Name            string `gorm:"size:128" json:"name"`
	Phone           string `gorm:"size:32" json:"phone"`
	Email           string `gorm:"size:256" json:"email"`
	Address1        string `gorm:"size:512" json:"address1"`
	Address2        string `gorm:"size:512" json:"address2,omitempty"`
	City            string `gorm:"size:128" json:"city"`
	Region          string `gorm:"size:128" json:"region"`
	Country         string `gorm:"size:64" json:"country"`
	ZipCode         string `gorm:"size:32" json:"zip_code"`
	DeliveryWayCode string `gorm:"size:64" json:"delivery_way_code"`
}

// Order is the aggregate root for one checkout attempt. One order maps to at
// most one payment transaction and at most one outbound shipment; the two
// external refs attach independently as the respective calls succeed.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber            string `gorm:"uniqueIndex;size:32;not null"`
	CartSessionID          string `gorm:"size:128;index;not null"`
	ExternalPaymentRef     *string
	ExternalFulfillmentRef *string
	TrackingNumber         string
	Status                 Status          `gorm:"size:32;not null;index"`
	TotalAmount            decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Shipping               ShippingInfo    `gorm:"embedded;embeddedPrefix:shipping_"`
	Lines                  []Line          `gorm:"foreignKey:OrderID;references:OrderNumber"`
	NeedsReconciliation    bool            `gorm:"not null;default:false"`
	FailureReason          string
	PaymentConfirmedAt     *time.Time
	FulfilledAt            *time.Time
	CancelledAt            *time.Time
}

// New creates a pending order from frozen cart lines
func New(orderNumber, cartSessionID string, shipping ShippingInfo, lines []Line) (*Order, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if cartSessionID == "" {
		return nil, shared.NewDomainError("INVALID_CART_SESSION", "Cart session ID cannot be empty")
	}
	if len(lines) == 0 {
		return nil, shared.ErrEmptyCart
	}

	total := decimal.Zero
	for i := range lines {
		if lines[i].Quantity <= 0 {
			return nil, shared.NewDomainErrorf("INVALID_QUANTITY", "Quantity must be positive for SKU %s", lines[i].SKU)
		}
		lines[i].OrderID = orderNumber
		total = total.Add(lines[i].Amount())
	}

	return &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		CartSessionID:     cartSessionID,
		Status:            StatusPending,
		TotalAmount:       total,
		Shipping:          shipping,
		Lines:             lines,
	}, nil
}

// transition moves the order to target or fails with a state conflict
func (o *Order) transition(target Status) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainErrorf("STATE_CONFLICT",
			"Order %s cannot transition from %s to %s", o.OrderNumber, o.Status, target)
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	return nil
}

// AttachPaymentSession records the hosted checkout session and advances to
// payment_created
func (o *Order) AttachPaymentSession(sessionID string) error {
	if sessionID == "" {
		return shared.NewDomainError("INVALID_PAYMENT_REF", "Payment session ID cannot be empty")
	}
	if err := o.transition(StatusPaymentCreated); err != nil {
		return err
	}
	o.ExternalPaymentRef = &sessionID
	return nil
}

// ConfirmPayment advances to payment_confirmed. Both the synchronous return
// path and the webhook path funnel into this method; the repository's row
// lock serializes them and the loser sees a state conflict.
func (o *Order) ConfirmPayment() error {
	if err := o.transition(StatusPaymentConfirmed); err != nil {
		return err
	}
	now := time.Now()
	o.PaymentConfirmedAt = &now
	return nil
}

// FailPayment marks the payment as definitively failed
func (o *Order) FailPayment(reason string) error {
	if err := o.transition(StatusPaymentFailed); err != nil {
		return err
	}
	o.FailureReason = reason
	return nil
}

// BeginFulfillment claims the single shipment-creation attempt
func (o *Order) BeginFulfillment() error {
	return o.transition(StatusFulfillmentCreated)
}

// AttachFulfillmentRef records the upstream shipment reference while the
// order is still in fulfillment_created. The ref must be on the row before
// the order advances, so a cancellation in this window can void the shipment
// upstream.
func (o *Order) AttachFulfillmentRef(fulfillmentRef string) error {
	if fulfillmentRef == "" {
		return shared.NewDomainError("INVALID_FULFILLMENT_REF", "Fulfillment reference cannot be empty")
	}
	if o.Status != StatusFulfillmentCreated {
		return shared.NewDomainErrorf("STATE_CONFLICT",
			"Order %s cannot attach a fulfillment reference in status %s", o.OrderNumber, o.Status)
	}
	o.ExternalFulfillmentRef = &fulfillmentRef
	o.UpdatedAt = time.Now()
	return nil
}

// CompleteFulfillment attaches the shipment ref and advances to fulfilled
func (o *Order) CompleteFulfillment(fulfillmentRef string) error {
	if fulfillmentRef == "" {
		return shared.NewDomainError("INVALID_FULFILLMENT_REF", "Fulfillment reference cannot be empty")
	}
	if err := o.transition(StatusFulfilled); err != nil {
		return err
	}
	o.ExternalFulfillmentRef = &fulfillmentRef
	now := time.Now()
	o.FulfilledAt = &now
	return nil
}

// FailFulfillment records a definitive shipment rejection. Money is captured
// but no shipment exists; the order is flagged for manual reconciliation and
// never auto-reversed.
func (o *Order) FailFulfillment(reason string) error {
	if err := o.transition(StatusFulfillmentFailed); err != nil {
		return err
	}
	o.FailureReason = reason
	o.NeedsReconciliation = true
	return nil
}

// ReleaseFulfillmentClaim returns a transiently failed shipment attempt to
// payment_confirmed so it can be retried, flagged for reconciliation.
func (o *Order) ReleaseFulfillmentClaim(reason string) error {
	if err := o.transition(StatusPaymentConfirmed); err != nil {
		return err
	}
	o.FailureReason = reason
	o.NeedsReconciliation = true
	return nil
}

// CanCancel reports whether cancellation is still allowed. An order in
// fulfillment_created is cancellable only for as long as the upstream
// shipment can be voided; callers void before cancelling.
func (o *Order) CanCancel() bool {
	switch o.Status {
	case StatusPending, StatusPaymentCreated, StatusPaymentConfirmed, StatusFulfillmentCreated:
		return true
	}
	return false
}

// Cancel cancels the order. Orders that already shipped cannot be cancelled.
func (o *Order) Cancel(reason string) error {
	if o.Status == StatusFulfilled {
		return shared.ErrTooLateToCancel
	}
	if !o.CanCancel() {
		return shared.NewDomainErrorf("STATE_CONFLICT",
			"Order %s cannot be cancelled in status %s", o.OrderNumber, o.Status)
	}
	o.Status = StatusCancelled
	o.FailureReason = reason
	now := time.Now()
	o.CancelledAt = &now
	o.UpdatedAt = now
	return nil
}

// FlagReconciliation marks the order for manual review without changing its
// status
func (o *Order) FlagReconciliation(reason string) {
	o.NeedsReconciliation = true
	o.FailureReason = reason
	o.UpdatedAt = time.Now()
}

// MarkError moves the order to the terminal error state. Requires manual
// resolution; reachable from any state.
func (o *Order) MarkError(reason string) {
	o.Status = StatusError
	o.FailureReason = reason
	o.NeedsReconciliation = true
	o.UpdatedAt = time.Now()
}

// SetTrackingNumber records carrier tracking info from an upstream status sync
func (o *Order) SetTrackingNumber(trackingNumber string) {
	o.TrackingNumber = trackingNumber
	o.UpdatedAt = time.Now()
}
