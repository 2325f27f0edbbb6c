package payment

import (
	"encoding/json"

	"github.com/stripe/stripe-go/v81"
)

// SessionCorrelation links a webhook checkout session back to a local order.
// Parsed is false when no order number could be recovered from the payload;
// the caller then falls back to the stored session-to-order mapping.
type SessionCorrelation struct {
	SessionID       string
	OrderNumber     string
	PaymentIntentID string
	Paid            bool
	Parsed          bool
}

// ParseSessionCorrelation extracts the order correlation from a checkout
// session webhook event. Resolution order is fixed: the typed session object,
// then the pre-decoded object map, then a fresh parse of the raw payload.
// Each step only fills what the previous steps left empty.
func ParseSessionCorrelation(event stripe.Event) SessionCorrelation {
	var c SessionCorrelation

	// 1. Typed deserialization
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err == nil {
		c.SessionID = sess.ID
		c.OrderNumber = sess.Metadata[MetadataOrderNumber]
		if c.OrderNumber == "" {
			c.OrderNumber = sess.ClientReferenceID
		}
		c.Paid = sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid
		if sess.PaymentIntent != nil {
			c.PaymentIntentID = sess.PaymentIntent.ID
		}
	}

	// 2. Pre-decoded object map
	if c.OrderNumber == "" && event.Data.Object != nil {
		fillFromMap(&c, event.Data.Object)
	}

	// 3. Raw payload reparse
	if c.OrderNumber == "" && len(event.Data.Raw) > 0 {
		var raw map[string]any
		if err := json.Unmarshal(event.Data.Raw, &raw); err == nil {
			fillFromMap(&c, raw)
		}
	}

	c.Parsed = c.OrderNumber != ""
	return c
}

// fillFromMap fills empty correlation fields from a generic object map
func fillFromMap(c *SessionCorrelation, obj map[string]any) {
	if c.SessionID == "" {
		if id, ok := obj["id"].(string); ok {
			c.SessionID = id
		}
	}
	if meta, ok := obj["metadata"].(map[string]any); ok {
		if num, ok := meta[MetadataOrderNumber].(string); ok && num != "" {
			c.OrderNumber = num
		}
	}
	if c.OrderNumber == "" {
		if ref, ok := obj["client_reference_id"].(string); ok {
			c.OrderNumber = ref
		}
	}
	if !c.Paid {
		if status, ok := obj["payment_status"].(string); ok {
			c.Paid = status == string(stripe.CheckoutSessionPaymentStatusPaid)
		}
	}
	if c.PaymentIntentID == "" {
		switch pi := obj["payment_intent"].(type) {
		case string:
			c.PaymentIntentID = pi
		case map[string]any:
			if id, ok := pi["id"].(string); ok {
				c.PaymentIntentID = id
			}
		}
	}
}
