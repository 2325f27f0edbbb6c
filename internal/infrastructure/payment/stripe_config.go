package payment

import (
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v81"
)

// StripeConfig holds configuration for Stripe integration
type StripeConfig struct {
	// SecretKey is the Stripe secret API key (sk_test_xxx or sk_live_xxx)
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`

	// WebhookSecret is the secret for verifying webhook signatures
	WebhookSecret string `json:"webhook_secret" mapstructure:"webhook_secret"`

	// Currency is the checkout currency (e.g. "gbp", "usd")
	Currency string `json:"currency" mapstructure:"currency"`

	// SuccessURL is the URL to redirect after successful checkout
	SuccessURL string `json:"success_url" mapstructure:"success_url"`

	// CancelURL is the URL to redirect after cancelled checkout
	CancelURL string `json:"cancel_url" mapstructure:"cancel_url"`
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}
	if !strings.HasPrefix(c.SecretKey, "sk_") {
		return fmt.Errorf("stripe: secret key must start with sk_")
	}
	if c.WebhookSecret == "" {
		return fmt.Errorf("stripe: webhook secret is required")
	}
	if c.Currency == "" {
		return fmt.Errorf("stripe: currency is required")
	}
	if c.SuccessURL == "" {
		return fmt.Errorf("stripe: success url is required")
	}
	return nil
}

// InitStripeClient initializes the Stripe client with the configured API key
func (c *StripeConfig) InitStripeClient() {
	stripe.Key = c.SecretKey
}
