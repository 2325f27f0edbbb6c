package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// MetadataOrderNumber is the metadata key carrying the local order number
// through the hosted checkout round trip.
const MetadataOrderNumber = "order_number"

// CheckoutLineItem is one display line on the hosted checkout page
type CheckoutLineItem struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int64
}

// CheckoutSessionInput creates a hosted checkout session for one order
type CheckoutSessionInput struct {
	OrderNumber   string
	CustomerEmail string
	LineItems     []CheckoutLineItem
}

// CheckoutSessionOutput is the created session reference
type CheckoutSessionOutput struct {
	SessionID   string
	CheckoutURL string
}

// SessionStatus is the settled view of a checkout session
type SessionStatus struct {
	SessionID       string
	OrderNumber     string
	PaymentIntentID string
	Paid            bool
}

// StripeAdapter implements hosted checkout and webhook verification on Stripe
type StripeAdapter struct {
	config *StripeConfig
	logger *zap.Logger
}

// NewStripeAdapter creates a new Stripe adapter
func NewStripeAdapter(config *StripeConfig, logger *zap.Logger) (*StripeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	config.InitStripeClient()

	return &StripeAdapter{
		config: config,
		logger: logger.Named("stripe"),
	}, nil
}

// minorUnits converts a decimal amount to the currency's minor unit
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreateCheckoutSession creates a hosted checkout session. The order number
// rides in session metadata and is the primary correlation key when the
// session comes back via return URL or webhook.
func (a *StripeAdapter) CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*CheckoutSessionOutput, error) {
	if input.OrderNumber == "" {
		return nil, fmt.Errorf("stripe: order number is required")
	}
	if len(input.LineItems) == 0 {
		return nil, fmt.Errorf("stripe: at least one line item is required")
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(input.LineItems))
	for _, item := range input.LineItems {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(a.config.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(minorUnits(item.UnitPrice)),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:         lineItems,
		SuccessURL:        stripe.String(a.config.SuccessURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(a.config.CancelURL),
		ClientReferenceID: stripe.String(input.OrderNumber),
		Metadata: map[string]string{
			MetadataOrderNumber: input.OrderNumber,
		},
	}
	if input.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(input.CustomerEmail)
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		a.logger.Error("failed to create checkout session",
			zap.String("order_number", input.OrderNumber),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	a.logger.Info("created checkout session",
		zap.String("order_number", input.OrderNumber),
		zap.String("session_id", sess.ID))

	return &CheckoutSessionOutput{
		SessionID:   sess.ID,
		CheckoutURL: sess.URL,
	}, nil
}

// GetSessionStatus retrieves a checkout session and reports whether it is paid
func (a *StripeAdapter) GetSessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := session.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to get checkout session: %w", err)
	}

	status := &SessionStatus{
		SessionID:   sess.ID,
		OrderNumber: sess.Metadata[MetadataOrderNumber],
		Paid:        sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}
	if status.OrderNumber == "" {
		status.OrderNumber = sess.ClientReferenceID
	}
	if sess.PaymentIntent != nil {
		status.PaymentIntentID = sess.PaymentIntent.ID
	}
	return status, nil
}

// CreatePaymentIntent creates a direct payment intent for the given amount.
// Used for payment flows that bypass the hosted checkout page.
func (a *StripeAdapter) CreatePaymentIntent(ctx context.Context, orderNumber string, amount decimal.Decimal) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minorUnits(amount)),
		Currency: stripe.String(a.config.Currency),
		Metadata: map[string]string{
			MetadataOrderNumber: orderNumber,
		},
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: failed to create payment intent: %w", err)
	}
	return intent.ClientSecret, nil
}

// VerifyWebhook validates the webhook signature and returns the parsed event.
// Invalid signatures are rejected before any payload inspection.
func (a *StripeAdapter) VerifyWebhook(payload []byte, signatureHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, a.config.WebhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("stripe: webhook signature verification failed: %w", err)
	}
	return event, nil
}
