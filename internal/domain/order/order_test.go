package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locoganga/storefront/internal/domain/shared"
)

func testLines() []Line {
	return []Line{
		{
			BaseEntity:   shared.NewBaseEntity(),
			SKU:          "A1",
			SPU:          "SPU-A",
			Quantity:     2,
			PriceAtOrder: decimal.RequireFromString("10.00"),
			Title:        "Widget A",
		},
	}
}

func testShipping() ShippingInfo {
	return ShippingInfo{
		Name:            "Jane Doe",
		Phone:           "+441234567890",
		Email:           "jane@example.com",
		Address1:        "1 High Street",
		City:            "London",
		Region:          "Greater London",
		Country:         "GB",
		ZipCode:         "SW1A 1AA",
		DeliveryWayCode: "OSF1010520",
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		orderNumber string
		sessionID   string
		lines       []Line
		wantErr     bool
	}{
		{
			name:        "valid order",
			orderNumber: "ORD-1A2B3C4D",
			sessionID:   "sess-1",
			lines:       testLines(),
			wantErr:     false,
		},
		{
			name:        "empty order number",
			orderNumber: "",
			sessionID:   "sess-1",
			lines:       testLines(),
			wantErr:     true,
		},
		{
			name:        "empty session",
			orderNumber: "ORD-1A2B3C4D",
			sessionID:   "",
			lines:       testLines(),
			wantErr:     true,
		},
		{
			name:        "empty cart",
			orderNumber: "ORD-1A2B3C4D",
			sessionID:   "sess-1",
			lines:       nil,
			wantErr:     true,
		},
		{
			name:        "non-positive quantity",
			orderNumber: "ORD-1A2B3C4D",
			sessionID:   "sess-1",
			lines: []Line{
				{SKU: "A1", Quantity: 0, PriceAtOrder: decimal.RequireFromString("10.00")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := New(tt.orderNumber, tt.sessionID, testShipping(), tt.lines)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusPending, o.Status)
			assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("20.00")))
			assert.Nil(t, o.ExternalPaymentRef)
			assert.Nil(t, o.ExternalFulfillmentRef)
		})
	}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name   string
		from   Status
		to     Status
		expect bool
	}{
		{"pending to payment_created", StatusPending, StatusPaymentCreated, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending to payment_confirmed skips a step", StatusPending, StatusPaymentConfirmed, false},
		{"payment_created to payment_confirmed", StatusPaymentCreated, StatusPaymentConfirmed, true},
		{"payment_created to payment_failed", StatusPaymentCreated, StatusPaymentFailed, true},
		{"payment_created to cancelled", StatusPaymentCreated, StatusCancelled, true},
		{"payment_confirmed to fulfillment_created", StatusPaymentConfirmed, StatusFulfillmentCreated, true},
		{"payment_confirmed to cancelled", StatusPaymentConfirmed, StatusCancelled, true},
		{"payment_confirmed to fulfilled skips the claim", StatusPaymentConfirmed, StatusFulfilled, false},
		{"fulfillment_created to fulfilled", StatusFulfillmentCreated, StatusFulfilled, true},
		{"fulfillment_created to fulfillment_failed", StatusFulfillmentCreated, StatusFulfillmentFailed, true},
		{"fulfillment_created releases claim", StatusFulfillmentCreated, StatusPaymentConfirmed, true},
		{"fulfillment_created to cancelled", StatusFulfillmentCreated, StatusCancelled, true},
		{"fulfilled is terminal", StatusFulfilled, StatusCancelled, false},
		{"cancelled is terminal", StatusCancelled, StatusPaymentCreated, false},
		{"payment_failed is terminal", StatusPaymentFailed, StatusPaymentConfirmed, false},
		{"anything to error", StatusFulfilled, StatusError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrder_PaymentLifecycle(t *testing.T) {
	o, err := New("ORD-1A2B3C4D", "sess-1", testShipping(), testLines())
	require.NoError(t, err)

	require.NoError(t, o.AttachPaymentSession("cs_test_123"))
	assert.Equal(t, StatusPaymentCreated, o.Status)
	require.NotNil(t, o.ExternalPaymentRef)
	assert.Equal(t, "cs_test_123", *o.ExternalPaymentRef)

	require.NoError(t, o.ConfirmPayment())
	assert.Equal(t, StatusPaymentConfirmed, o.Status)
	assert.NotNil(t, o.PaymentConfirmedAt)

	// the losing confirmation path sees a state conflict
	err = o.ConfirmPayment()
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "STATE_CONFLICT", domainErr.Code)
}

func TestOrder_FulfillmentLifecycle(t *testing.T) {
	t.Run("successful shipment", func(t *testing.T) {
		o := confirmedOrder(t)

		require.NoError(t, o.BeginFulfillment())
		assert.Equal(t, StatusFulfillmentCreated, o.Status)

		// second claim is rejected
		assert.Error(t, o.BeginFulfillment())

		require.NoError(t, o.CompleteFulfillment("WIN-778899"))
		assert.Equal(t, StatusFulfilled, o.Status)
		require.NotNil(t, o.ExternalFulfillmentRef)
		assert.Equal(t, "WIN-778899", *o.ExternalFulfillmentRef)
		assert.NotNil(t, o.FulfilledAt)
	})

	t.Run("definitive rejection flags reconciliation", func(t *testing.T) {
		o := confirmedOrder(t)
		require.NoError(t, o.BeginFulfillment())

		require.NoError(t, o.FailFulfillment("upstream rejected recipient address"))
		assert.Equal(t, StatusFulfillmentFailed, o.Status)
		assert.True(t, o.NeedsReconciliation)
		assert.Nil(t, o.ExternalFulfillmentRef)
	})

	t.Run("transient failure releases the claim", func(t *testing.T) {
		o := confirmedOrder(t)
		require.NoError(t, o.BeginFulfillment())

		require.NoError(t, o.ReleaseFulfillmentClaim("upstream timeout"))
		assert.Equal(t, StatusPaymentConfirmed, o.Status)
		assert.True(t, o.NeedsReconciliation)

		// the claim can be retaken
		require.NoError(t, o.BeginFulfillment())
	})

	t.Run("empty fulfillment ref rejected", func(t *testing.T) {
		o := confirmedOrder(t)
		require.NoError(t, o.BeginFulfillment())
		assert.Error(t, o.CompleteFulfillment(""))
	})
}

func TestOrder_AttachFulfillmentRef(t *testing.T) {
	t.Run("records the ref without leaving the claim", func(t *testing.T) {
		o := confirmedOrder(t)
		require.NoError(t, o.BeginFulfillment())

		require.NoError(t, o.AttachFulfillmentRef("WIN-778899"))
		assert.Equal(t, StatusFulfillmentCreated, o.Status)
		require.NotNil(t, o.ExternalFulfillmentRef)
		assert.Equal(t, "WIN-778899", *o.ExternalFulfillmentRef)
		assert.Nil(t, o.FulfilledAt)
	})

	t.Run("empty ref rejected", func(t *testing.T) {
		o := confirmedOrder(t)
		require.NoError(t, o.BeginFulfillment())
		assert.Error(t, o.AttachFulfillmentRef(""))
	})

	t.Run("conflict outside the claim window", func(t *testing.T) {
		o := confirmedOrder(t)
		err := o.AttachFulfillmentRef("WIN-778899")
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "STATE_CONFLICT", domainErr.Code)
	})
}

func TestOrder_Cancel(t *testing.T) {
	t.Run("cancellable while payment pending", func(t *testing.T) {
		o, err := New("ORD-1A2B3C4D", "sess-1", testShipping(), testLines())
		require.NoError(t, err)

		require.NoError(t, o.Cancel("customer request"))
		assert.Equal(t, StatusCancelled, o.Status)
		assert.NotNil(t, o.CancelledAt)
	})

	t.Run("cancellable after payment confirmed", func(t *testing.T) {
		o := confirmedOrder(t)
		require.NoError(t, o.Cancel("customer request"))
		assert.Equal(t, StatusCancelled, o.Status)
	})

	t.Run("cancellable while the shipment is voidable", func(t *testing.T) {
		o := confirmedOrder(t)
		require.NoError(t, o.BeginFulfillment())
		require.NoError(t, o.AttachFulfillmentRef("WIN-778899"))

		require.NoError(t, o.Cancel("customer request"))
		assert.Equal(t, StatusCancelled, o.Status)
	})

	t.Run("too late once fulfilled", func(t *testing.T) {
		o := confirmedOrder(t)
		require.NoError(t, o.BeginFulfillment())
		require.NoError(t, o.CompleteFulfillment("WIN-778899"))

		err := o.Cancel("customer request")
		assert.ErrorIs(t, err, shared.ErrTooLateToCancel)
		assert.Equal(t, StatusFulfilled, o.Status)
	})

	t.Run("cancelled twice is a conflict", func(t *testing.T) {
		o, err := New("ORD-1A2B3C4D", "sess-1", testShipping(), testLines())
		require.NoError(t, err)
		require.NoError(t, o.Cancel("first"))
		assert.Error(t, o.Cancel("second"))
	})
}

func TestOrder_MarkError(t *testing.T) {
	o := confirmedOrder(t)
	o.MarkError("payment and fulfillment state diverged")

	assert.Equal(t, StatusError, o.Status)
	assert.True(t, o.NeedsReconciliation)
	assert.True(t, o.Status.IsTerminal())
	assert.False(t, o.Status.CanTransitionTo(StatusPaymentConfirmed))
}

func TestCartLine_ToOrderLine(t *testing.T) {
	cl, err := NewCartLine("sess-1", "A1", "SPU-A", 3, decimal.RequireFromString("4.50"), "Widget A")
	require.NoError(t, err)

	line := cl.ToOrderLine()
	assert.Equal(t, "A1", line.SKU)
	assert.Equal(t, int64(3), line.Quantity)
	assert.True(t, line.Amount().Equal(decimal.RequireFromString("13.50")))
	assert.Equal(t, "Widget A", line.Title)
}

func confirmedOrder(t *testing.T) *Order {
	t.Helper()
	o, err := New("ORD-1A2B3C4D", "sess-1", testShipping(), testLines())
	require.NoError(t, err)
	require.NoError(t, o.AttachPaymentSession("cs_test_123"))
	require.NoError(t, o.ConfirmPayment())
	return o
}
