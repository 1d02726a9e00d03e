package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"go.uber.org/zap"
)

// StripeCheckout creates Stripe-hosted checkout sessions for orders
type StripeCheckout struct {
	config *StripeConfig
	logger *zap.Logger
}

// NewStripeCheckout creates a new Stripe checkout adapter
func NewStripeCheckout(config *StripeConfig, logger *zap.Logger) (*StripeCheckout, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	config.InitStripeClient()

	return &StripeCheckout{
		config: config,
		logger: logger,
	}, nil
}

// CreateCheckoutSession creates a payment-mode checkout session whose session
// and payment intent both carry the order id in their metadata
func (a *StripeCheckout) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("stripe: checkout session requires at least one line")
	}

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = strings.ToLower(a.config.Currency)
	}

	a.logger.Debug("Creating Stripe checkout session",
		zap.String("order_id", req.OrderID.String()),
		zap.Int("lines", len(req.Lines)))

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines))
	for _, line := range req.Lines {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(line.Name),
		}
		if line.ImageURL != "" {
			productData.Images = stripe.StringSlice([]string{line.ImageURL})
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(ToMinorUnits(line.UnitPrice)),
			},
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
	}

	metadata := map[string]string{
		MetadataOrderID: req.OrderID.String(),
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(a.config.SuccessURLWithSession()),
		CancelURL:          stripe.String(a.config.CancelURL),
		ClientReferenceID:  stripe.String(req.OrderID.String()),
		Metadata:           metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe checkout session",
			zap.String("order_id", req.OrderID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	a.logger.Info("Created Stripe checkout session",
		zap.String("order_id", req.OrderID.String()),
		zap.String("session_id", sess.ID))

	return &CheckoutSession{
		ID:  sess.ID,
		URL: sess.URL,
	}, nil
}
