package payment

import (
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v81"
)

// MetadataOrderID is the metadata key carrying the order id on Stripe objects
const MetadataOrderID = "order_id"

// CheckoutSessionPlaceholder is replaced by Stripe with the session id on redirect
const CheckoutSessionPlaceholder = "{CHECKOUT_SESSION_ID}"

// StripeConfig holds configuration for Stripe integration
type StripeConfig struct {
	// SecretKey is the Stripe secret API key (sk_test_xxx or sk_live_xxx)
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`

	// WebhookSecret is the secret for verifying webhook signatures
	WebhookSecret string `json:"webhook_secret" mapstructure:"webhook_secret"`

	// Currency is the ISO currency code charged at checkout (e.g., "usd")
	Currency string `json:"currency" mapstructure:"currency"`

	// SuccessURL is the URL to redirect after successful checkout
	SuccessURL string `json:"success_url" mapstructure:"success_url"`

	// CancelURL is the URL to redirect after cancelled checkout
	CancelURL string `json:"cancel_url" mapstructure:"cancel_url"`
}

// DefaultStripeConfig returns a default configuration for development/testing
func DefaultStripeConfig() *StripeConfig {
	return &StripeConfig{
		Currency:   "usd",
		SuccessURL: "http://localhost:3000/checkout/success",
		CancelURL:  "http://localhost:3000/cart",
	}
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}
	if !strings.HasPrefix(c.SecretKey, "sk_test_") && !strings.HasPrefix(c.SecretKey, "sk_live_") {
		return fmt.Errorf("stripe: secret key must start with sk_test_ or sk_live_")
	}
	if c.Currency == "" {
		return fmt.Errorf("stripe: currency is required")
	}
	if c.SuccessURL == "" || c.CancelURL == "" {
		return fmt.Errorf("stripe: success and cancel URLs are required")
	}
	return nil
}

// IsTestMode reports whether the secret key is a test key
func (c *StripeConfig) IsTestMode() bool {
	return strings.HasPrefix(c.SecretKey, "sk_test_")
}

// SuccessURLWithSession returns the success URL with the session id placeholder
// appended as a query parameter
func (c *StripeConfig) SuccessURLWithSession() string {
	if strings.Contains(c.SuccessURL, CheckoutSessionPlaceholder) {
		return c.SuccessURL
	}
	sep := "?"
	if strings.Contains(c.SuccessURL, "?") {
		sep = "&"
	}
	return c.SuccessURL + sep + "session_id=" + CheckoutSessionPlaceholder
}

// InitStripeClient initializes the Stripe client with the configured API key
func (c *StripeConfig) InitStripeClient() {
	stripe.Key = c.SecretKey
}
