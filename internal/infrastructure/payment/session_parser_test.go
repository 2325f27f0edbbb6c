package payment

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stretchr/testify/assert"
)

func sessionEvent(raw string) stripe.Event {
	event := stripe.Event{Type: "checkout.session.completed"}
	event.Data = &stripe.EventData{Raw: json.RawMessage(raw)}
	var obj map[string]any
	_ = json.Unmarshal([]byte(raw), &obj)
	event.Data.Object = obj
	return event
}

func TestParseSessionCorrelation(t *testing.T) {
	t.Run("typed metadata wins", func(t *testing.T) {
		event := sessionEvent(`{
			"id": "cs_test_1",
			"metadata": {"order_number": "ORD-1A2B3C4D"},
			"client_reference_id": "ORD-SHOULD-NOT-WIN",
			"payment_status": "paid",
			"payment_intent": {"id": "pi_123"}
		}`)

		c := ParseSessionCorrelation(event)
		assert.True(t, c.Parsed)
		assert.Equal(t, "cs_test_1", c.SessionID)
		assert.Equal(t, "ORD-1A2B3C4D", c.OrderNumber)
		assert.Equal(t, "pi_123", c.PaymentIntentID)
		assert.True(t, c.Paid)
	})

	t.Run("falls back to client reference id", func(t *testing.T) {
		event := sessionEvent(`{
			"id": "cs_test_2",
			"metadata": {},
			"client_reference_id": "ORD-22334455",
			"payment_status": "paid"
		}`)

		c := ParseSessionCorrelation(event)
		assert.True(t, c.Parsed)
		assert.Equal(t, "ORD-22334455", c.OrderNumber)
	})

	t.Run("recovers from object map when typed parse misses fields", func(t *testing.T) {
		// metadata values that are not plain strings defeat the typed
		// deserialization but survive in the object map
		event := stripe.Event{Type: "checkout.session.completed"}
		event.Data = &stripe.EventData{
			Raw: json.RawMessage(`{"id": "cs_test_3"}`),
			Object: map[string]any{
				"id":       "cs_test_3",
				"metadata": map[string]any{"order_number": "ORD-FROMMAP1"},
			},
		}

		c := ParseSessionCorrelation(event)
		assert.True(t, c.Parsed)
		assert.Equal(t, "ORD-FROMMAP1", c.OrderNumber)
	})

	t.Run("reparses raw payload when object map is absent", func(t *testing.T) {
		event := stripe.Event{Type: "checkout.session.completed"}
		event.Data = &stripe.EventData{
			Raw: json.RawMessage(`{
				"id": "cs_test_4",
				"metadata": {"order_number": "ORD-FROMRAW1"},
				"payment_intent": "pi_456"
			}`),
		}

		c := ParseSessionCorrelation(event)
		assert.True(t, c.Parsed)
		assert.Equal(t, "ORD-FROMRAW1", c.OrderNumber)
		assert.Equal(t, "pi_456", c.PaymentIntentID)
	})

	t.Run("unparseable payload reports parsed false", func(t *testing.T) {
		event := sessionEvent(`{"id": "cs_test_5", "payment_status": "unpaid"}`)

		c := ParseSessionCorrelation(event)
		assert.False(t, c.Parsed)
		assert.Equal(t, "cs_test_5", c.SessionID)
		assert.Empty(t, c.OrderNumber)
		assert.False(t, c.Paid)
	})

	t.Run("unpaid session is not marked paid", func(t *testing.T) {
		event := sessionEvent(`{
			"id": "cs_test_6",
			"metadata": {"order_number": "ORD-66778899"},
			"payment_status": "unpaid"
		}`)

		c := ParseSessionCorrelation(event)
		assert.True(t, c.Parsed)
		assert.False(t, c.Paid)
	})
}

func TestStripeConfig_Validate(t *testing.T) {
	valid := StripeConfig{
		SecretKey:     "sk_test_abc",
		WebhookSecret: "whsec_abc",
		Currency:      "gbp",
		SuccessURL:    "https://shop.example.com/checkout/return",
		CancelURL:     "https://shop.example.com/checkout/cancelled",
	}

	t.Run("valid", func(t *testing.T) {
		cfg := valid
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing secret key", func(t *testing.T) {
		cfg := valid
		cfg.SecretKey = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("malformed secret key", func(t *testing.T) {
		cfg := valid
		cfg.SecretKey = "pk_test_abc"
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing webhook secret", func(t *testing.T) {
		cfg := valid
		cfg.WebhookSecret = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing currency", func(t *testing.T) {
		cfg := valid
		cfg.Currency = ""
		assert.Error(t, cfg.Validate())
	})
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"10.00", 1000},
		{"0.99", 99},
		{"20.005", 2001},
		{"0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.amount)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, minorUnits(d))
		})
	}
}
