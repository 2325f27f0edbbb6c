package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"

	"github.com/locoganga/storefront/internal/domain/order"
	"github.com/locoganga/storefront/internal/domain/shared"
	"github.com/locoganga/storefront/internal/infrastructure/config"
	"github.com/locoganga/storefront/internal/infrastructure/fulfillment"
	"github.com/locoganga/storefront/internal/infrastructure/payment"
)

const orderNumberAttempts = 5

// PaymentGateway is the slice of the payment adapter the pipeline needs
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, input payment.CheckoutSessionInput) (*payment.CheckoutSessionOutput, error)
	GetSessionStatus(ctx context.Context, sessionID string) (*payment.SessionStatus, error)
	VerifyWebhook(payload []byte, signatureHeader string) (stripe.Event, error)
}

// ShipmentClient is the slice of the fulfillment client the pipeline needs
type ShipmentClient interface {
	CreateOutboundOrder(ctx context.Context, req fulfillment.OutboundOrderRequest) (*fulfillment.OutboundOrderResult, error)
	VoidOutboundOrder(ctx context.Context, orderNum string) error
	QueryOutboundOrder(ctx context.Context, req fulfillment.OrderQueryRequest) (*fulfillment.OutboundOrderDetail, error)
}

// InventoryConflictError reports every cart line that exceeds available
// inventory, so the customer can fix the whole cart in one pass.
type InventoryConflictError struct {
	Conflicts []order.InventoryConflict
}

func (e *InventoryConflictError) Error() string {
	skus := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		skus = append(skus, c.SKU)
	}
	return fmt.Sprintf("insufficient inventory for %s", strings.Join(skus, ", "))
}

// BeginCheckoutInput starts the pipeline for one cart session
type BeginCheckoutInput struct {
	SessionID string
	Shipping  order.ShippingInfo
}

// BeginCheckoutOutput is the created order plus the hosted payment redirect
type BeginCheckoutOutput struct {
	OrderNumber string `json:"order_number"`
	CheckoutURL string `json:"checkout_url"`
}

// SyncStatusOutput reports the upstream shipment state for one order
type SyncStatusOutput struct {
	OrderNumber    string       `json:"order_number"`
	Status         order.Status `json:"status"`
	UpstreamStatus string       `json:"upstream_status"`
	TrackingNumber string       `json:"tracking_number,omitempty"`
}

// CheckoutService runs the order pipeline: cart snapshot, payment session,
// payment confirmation convergence and exactly-once shipment creation.
type CheckoutService struct {
	orderRepo order.Repository
	cartRepo  order.CartRepository
	inventory order.InventoryChecker
	payments  PaymentGateway
	shipments ShipmentClient
	events    shared.IdempotencyStore
	checkout  config.CheckoutConfig
	catalog   config.CatalogConfig
	logger    *zap.Logger
}

// NewCheckoutService creates a new CheckoutService
func NewCheckoutService(
	orderRepo order.Repository,
	cartRepo order.CartRepository,
	inventory order.InventoryChecker,
	payments PaymentGateway,
	shipments ShipmentClient,
	events shared.IdempotencyStore,
	checkout config.CheckoutConfig,
	catalog config.CatalogConfig,
	logger *zap.Logger,
) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		orderRepo: orderRepo,
		cartRepo:  cartRepo,
		inventory: inventory,
		payments:  payments,
		shipments: shipments,
		events:    events,
		checkout:  checkout,
		catalog:   catalog,
		logger:    logger,
	}
}

// BeginCheckout snapshots the cart into a pending order, then opens a hosted
// payment session. The order number is generated and collision-checked before
// any external call so the correlation key exists first. A payment session
// failure leaves the order pending and is retryable.
func (s *CheckoutService) BeginCheckout(ctx context.Context, input BeginCheckoutInput) (*BeginCheckoutOutput, error) {
	if input.SessionID == "" {
		return nil, shared.NewDomainError("INVALID_CART_SESSION", "Cart session ID cannot be empty")
	}

	active, err := s.orderRepo.ExistsActiveForSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, shared.ErrCheckoutInProgress
	}

	cartLines, err := s.cartRepo.FindBySession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if len(cartLines) == 0 {
		return nil, shared.ErrEmptyCart
	}

	conflicts, err := s.inventory.CheckAvailability(ctx, cartLines)
	if err != nil {
		return nil, fmt.Errorf("inventory check: %w", err)
	}
	if len(conflicts) > 0 {
		return nil, &InventoryConflictError{Conflicts: conflicts}
	}

	orderNumber, err := s.generateOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	shipping := input.Shipping
	if shipping.DeliveryWayCode == "" {
		shipping.DeliveryWayCode = s.catalog.DeliveryWayCode
	}

	lines := make([]order.Line, 0, len(cartLines))
	for i := range cartLines {
		lines = append(lines, cartLines[i].ToOrderLine())
	}

	o, err := order.New(orderNumber, input.SessionID, shipping, lines)
	if err != nil {
		return nil, err
	}
	if err := s.orderRepo.Create(ctx, o); err != nil {
		return nil, err
	}

	session, err := s.payments.CreateCheckoutSession(ctx, payment.CheckoutSessionInput{
		OrderNumber:   orderNumber,
		CustomerEmail: shipping.Email,
		LineItems:     checkoutLineItems(lines),
	})
	if err != nil {
		// order stays pending; the customer can retry checkout
		s.logger.Warn("payment session creation failed, order held pending",
			zap.String("order_number", orderNumber),
			zap.Error(err))
		return nil, fmt.Errorf("create payment session for %s: %w", orderNumber, err)
	}

	if _, err := s.orderRepo.Transition(ctx, orderNumber, func(o *order.Order) error {
		return o.AttachPaymentSession(session.SessionID)
	}); err != nil {
		return nil, err
	}

	if err := s.cartRepo.ClearSession(ctx, input.SessionID); err != nil {
		s.logger.Warn("cart clear failed after checkout",
			zap.String("session_id", input.SessionID),
			zap.Error(err))
	}

	s.logger.Info("checkout started",
		zap.String("order_number", orderNumber),
		zap.String("payment_session", session.SessionID))
	return &BeginCheckoutOutput{
		OrderNumber: orderNumber,
		CheckoutURL: session.CheckoutURL,
	}, nil
}

func (s *CheckoutService) generateOrderNumber(ctx context.Context) (string, error) {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		id := uuid.New()
		candidate := fmt.Sprintf("%s-%X", s.checkout.OrderNumberTag, id[:4])
		exists, err := s.orderRepo.ExistsOrderNumber(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", shared.NewDomainError("ORDER_NUMBER_EXHAUSTED", "Could not generate a unique order number")
}

func checkoutLineItems(lines []order.Line) []payment.CheckoutLineItem {
	items := make([]payment.CheckoutLineItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, payment.CheckoutLineItem{
			Name:      line.Title,
			UnitPrice: line.PriceAtOrder,
			Quantity:  line.Quantity,
		})
	}
	return items
}

// HandleReturn settles the synchronous payment return. It converges with the
// webhook path on the same row-locked confirmation; whichever arrives second
// observes the advanced state and no-ops.
func (s *CheckoutService) HandleReturn(ctx context.Context, paymentSessionID string) (*order.Order, error) {
	if paymentSessionID == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_REF", "Payment session ID cannot be empty")
	}

	status, err := s.payments.GetSessionStatus(ctx, paymentSessionID)
	if err != nil {
		return nil, err
	}

	orderNumber := status.OrderNumber
	if orderNumber == "" {
		// last resort: the stored session->order mapping
		o, err := s.orderRepo.FindByPaymentRef(ctx, paymentSessionID)
		if err != nil {
			return nil, err
		}
		orderNumber = o.OrderNumber
	}

	if !status.Paid {
		return s.orderRepo.FindByOrderNumber(ctx, orderNumber)
	}
	return s.confirmAndFulfill(ctx, orderNumber)
}

// HandleWebhook verifies, deduplicates and applies one payment webhook
// delivery. Signature verification happens before any payload inspection.
// An event ID is marked processed only after its handler succeeds, so the
// provider's redelivery retries a failed application; concurrent duplicate
// deliveries converge on the row-locked confirmation.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := s.payments.VerifyWebhook(payload, signatureHeader)
	if err != nil {
		return shared.ErrInvalidSignature
	}

	processed, err := s.events.IsProcessed(ctx, event.ID)
	if err != nil {
		return err
	}
	if processed {
		s.logger.Info("webhook event already processed", zap.String("event_id", event.ID))
		return nil
	}

	var handleErr error
	switch event.Type {
	case "checkout.session.completed":
		handleErr = s.applyCompletedSession(ctx, event)
	case "checkout.session.expired":
		handleErr = s.applyExpiredSession(ctx, event)
	default:
		s.logger.Debug("ignoring webhook event", zap.String("type", string(event.Type)))
	}
	if handleErr != nil {
		// unmarked; the next redelivery retries
		return handleErr
	}

	if _, err := s.events.MarkProcessed(ctx, event.ID, s.checkout.WebhookEventTTL); err != nil {
		// an unmarked event redelivers and no-ops on the state conflict
		s.logger.Warn("webhook event mark failed",
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
	return nil
}

func (s *CheckoutService) applyCompletedSession(ctx context.Context, event stripe.Event) error {
	corr := payment.ParseSessionCorrelation(event)

	orderNumber := corr.OrderNumber
	if orderNumber == "" && corr.SessionID != "" {
		if o, err := s.orderRepo.FindByPaymentRef(ctx, corr.SessionID); err == nil {
			orderNumber = o.OrderNumber
		}
	}
	if orderNumber == "" {
		s.logger.Error("webhook session has no resolvable order",
			zap.String("event_id", event.ID),
			zap.String("session_id", corr.SessionID))
		return shared.NewDomainError("UNRESOLVED_SESSION", "Payment session cannot be matched to an order")
	}

	if !corr.Paid {
		s.logger.Info("completed session not paid yet",
			zap.String("order_number", orderNumber))
		return nil
	}

	_, err := s.confirmAndFulfill(ctx, orderNumber)
	return err
}

func (s *CheckoutService) applyExpiredSession(ctx context.Context, event stripe.Event) error {
	corr := payment.ParseSessionCorrelation(event)
	if corr.OrderNumber == "" {
		return nil
	}

	_, err := s.orderRepo.Transition(ctx, corr.OrderNumber, func(o *order.Order) error {
		return o.FailPayment("payment session expired")
	})
	if err != nil && !isBenignConflict(err) {
		return err
	}
	return nil
}

// confirmAndFulfill confirms the payment under the per-order row lock and, on
// the winning path, creates the outbound shipment exactly once.
func (s *CheckoutService) confirmAndFulfill(ctx context.Context, orderNumber string) (*order.Order, error) {
	confirmed, err := s.orderRepo.Transition(ctx, orderNumber, func(o *order.Order) error {
		return o.ConfirmPayment()
	})
	if err != nil {
		if isBenignConflict(err) {
			current, findErr := s.orderRepo.FindByOrderNumber(ctx, orderNumber)
			if findErr != nil {
				return nil, findErr
			}
			// a released shipment claim is picked up by the next delivery
			if current.Status == order.StatusPaymentConfirmed {
				return s.fulfill(ctx, orderNumber)
			}
			// the other confirmation path won; nothing left to do here
			return current, nil
		}
		return nil, err
	}

	s.logger.Info("payment confirmed", zap.String("order_number", orderNumber))
	return s.fulfill(ctx, confirmed.OrderNumber)
}

// fulfill claims the single shipment-creation attempt and calls the upstream
// exactly once. The claim transition is the mutual exclusion: a second caller
// fails the claim and backs off. The upstream ref is persisted as soon as the
// shipment exists, before the order advances to fulfilled.
func (s *CheckoutService) fulfill(ctx context.Context, orderNumber string) (*order.Order, error) {
	claimed, err := s.orderRepo.Transition(ctx, orderNumber, func(o *order.Order) error {
		return o.BeginFulfillment()
	})
	if err != nil {
		if isBenignConflict(err) {
			return s.orderRepo.FindByOrderNumber(ctx, orderNumber)
		}
		return nil, err
	}

	result, shipErr := s.shipments.CreateOutboundOrder(ctx, s.outboundRequest(claimed))
	if shipErr != nil {
		return s.recordShipmentFailure(ctx, orderNumber, shipErr)
	}

	// the ref goes on the row before the fulfilled transition; a cancel
	// racing this window voids the shipment through that ref
	if _, err := s.orderRepo.Transition(ctx, orderNumber, func(o *order.Order) error {
		return o.AttachFulfillmentRef(result.OrderNum)
	}); err != nil {
		if isBenignConflict(err) {
			return s.voidOrphanedShipment(ctx, orderNumber, result.OrderNum)
		}
		return nil, err
	}

	fulfilled, err := s.orderRepo.Transition(ctx, orderNumber, func(o *order.Order) error {
		return o.CompleteFulfillment(result.OrderNum)
	})
	if err != nil {
		if isBenignConflict(err) {
			// cancelled between attach and completion; the cancel path
			// already voided upstream
			return s.orderRepo.FindByOrderNumber(ctx, orderNumber)
		}
		return nil, err
	}

	s.logger.Info("shipment created",
		zap.String("order_number", orderNumber),
		zap.String("fulfillment_ref", result.OrderNum))
	return fulfilled, nil
}

// recordShipmentFailure distinguishes a definitive upstream rejection from a
// transient transport failure. Rejections are terminal and flagged for manual
// reconciliation; money is never auto-refunded. Transient failures release
// the claim so the shipment can be retried.
func (s *CheckoutService) recordShipmentFailure(ctx context.Context, orderNumber string, shipErr error) (*order.Order, error) {
	var remote *fulfillment.RemoteError
	definitive := errors.As(shipErr, &remote)

	s.logger.Error("shipment creation failed",
		zap.String("order_number", orderNumber),
		zap.Bool("definitive", definitive),
		zap.Error(shipErr))

	failed, err := s.orderRepo.Transition(ctx, orderNumber, func(o *order.Order) error {
		if definitive {
			return o.FailFulfillment(shipErr.Error())
		}
		return o.ReleaseFulfillmentClaim(shipErr.Error())
	})
	if err != nil {
		return nil, err
	}
	return failed, fmt.Errorf("create shipment for %s: %w", orderNumber, shipErr)
}

// voidOrphanedShipment handles a shipment created for an order that was
// cancelled while the outbound call was in flight. The shipment is voided
// upstream; if the void fails the order is flagged for reconciliation.
func (s *CheckoutService) voidOrphanedShipment(ctx context.Context, orderNumber, fulfillmentRef string) (*order.Order, error) {
	if voidErr := s.shipments.VoidOutboundOrder(ctx, fulfillmentRef); voidErr != nil {
		s.logger.Error("void of orphaned shipment failed",
			zap.String("order_number", orderNumber),
			zap.String("fulfillment_ref", fulfillmentRef),
			zap.Error(voidErr))
		return s.orderRepo.Transition(ctx, orderNumber, func(o *order.Order) error {
			o.FlagReconciliation(fmt.Sprintf("shipment %s exists for cancelled order", fulfillmentRef))
			return nil
		})
	}
	s.logger.Info("orphaned shipment voided",
		zap.String("order_number", orderNumber),
		zap.String("fulfillment_ref", fulfillmentRef))
	return s.orderRepo.FindByOrderNumber(ctx, orderNumber)
}

func (s *CheckoutService) outboundRequest(o *order.Order) fulfillment.OutboundOrderRequest {
	products := make([]fulfillment.OutboundProduct, 0, len(o.Lines))
	for _, line := range o.Lines {
		products = append(products, fulfillment.OutboundProduct{
			ProductCode: line.SKU,
			ProductNum:  line.Quantity,
		})
	}

	deliveryWay := o.Shipping.DeliveryWayCode
	if deliveryWay == "" {
		deliveryWay = s.catalog.DeliveryWayCode
	}

	return fulfillment.OutboundOrderRequest{
		Repeatable:    "N",
		IsAuto:        "Y",
		SellerOrderNo: o.OrderNumber,
		RecipientName: o.Shipping.Name,
		PhoneNum:      o.Shipping.Phone,
		ZipCode:       o.Shipping.ZipCode,
		EmailAddress:  o.Shipping.Email,
		State:         o.Shipping.Country,
		Region:        o.Shipping.Region,
		City:          o.Shipping.City,
		Address1:      o.Shipping.Address1,
		Address2:      o.Shipping.Address2,
		PackageList: []fulfillment.OutboundPackage{{
			WarehouseCode:   s.catalog.WarehouseCode,
			DeliveryWayCode: deliveryWay,
			ProductList:     products,
		}},
	}
}

// GetOrder returns one order with its lines
func (s *CheckoutService) GetOrder(ctx context.Context, orderNumber string) (*order.Order, error) {
	return s.orderRepo.FindByOrderNumber(ctx, orderNumber)
}

// Cancel cancels an order. Orders with an upstream shipment are voided there
// first; an upstream rejection means the shipment already left and the local
// state is kept.
func (s *CheckoutService) Cancel(ctx context.Context, orderNumber, reason string) (*order.Order, error) {
	o, err := s.orderRepo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if o.Status == order.StatusFulfilled {
		return nil, shared.ErrTooLateToCancel
	}
	if !o.CanCancel() {
		return nil, shared.NewDomainErrorf("STATE_CONFLICT",
			"Order %s cannot be cancelled in status %s", o.OrderNumber, o.Status)
	}

	if o.ExternalFulfillmentRef != nil {
		if err := s.shipments.VoidOutboundOrder(ctx, *o.ExternalFulfillmentRef); err != nil {
			var remote *fulfillment.RemoteError
			if errors.As(err, &remote) {
				s.logger.Warn("upstream rejected void, shipment already in flight",
					zap.String("order_number", orderNumber),
					zap.String("remote_code", remote.Code))
				return nil, shared.ErrTooLateToCancel
			}
			return nil, fmt.Errorf("void shipment for %s: %w", orderNumber, err)
		}
	}

	return s.orderRepo.Transition(ctx, orderNumber, func(o *order.Order) error {
		return o.Cancel(reason)
	})
}

// RetryFulfillment re-runs the shipment attempt for an order whose previous
// attempt released its claim.
func (s *CheckoutService) RetryFulfillment(ctx context.Context, orderNumber string) (*order.Order, error) {
	return s.fulfill(ctx, orderNumber)
}

// SyncStatus pulls the upstream shipment detail and records tracking info
func (s *CheckoutService) SyncStatus(ctx context.Context, orderNumber string) (*SyncStatusOutput, error) {
	o, err := s.orderRepo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if o.ExternalFulfillmentRef == nil {
		return nil, shared.NewDomainError("NO_SHIPMENT", "Order has no upstream shipment to sync")
	}

	detail, err := s.shipments.QueryOutboundOrder(ctx, fulfillment.OrderQueryRequest{
		OrderNum: *o.ExternalFulfillmentRef,
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.orderRepo.Transition(ctx, orderNumber, func(o *order.Order) error {
		if detail.TrackingNumber != "" {
			o.SetTrackingNumber(detail.TrackingNumber)
		}
		if o.Status == order.StatusFulfillmentCreated &&
			fulfillment.MapUpstreamStatus(detail.Status) == order.StatusFulfilled {
			return o.CompleteFulfillment(*o.ExternalFulfillmentRef)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &SyncStatusOutput{
		OrderNumber:    updated.OrderNumber,
		Status:         updated.Status,
		UpstreamStatus: detail.Status,
		TrackingNumber: updated.TrackingNumber,
	}, nil
}

// isBenignConflict reports whether a transition failure just means another
// path already advanced the order.
func isBenignConflict(err error) bool {
	var domainErr *shared.DomainError
	return errors.As(err, &domainErr) && domainErr.Code == "STATE_CONFLICT"
}
