package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/customer"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PaymentGateway opens hosted checkout sessions with the payment processor
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error)
}

// PlacementService turns a cart into a committed order
type PlacementService struct {
	carts        cart.Store
	addressRepo  customer.AddressRepository
	productRepo  catalog.ProductRepository
	orderRepo    order.Repository
	placement    order.PlacementStore
	paymentStore order.PaymentStore
	gateway      PaymentGateway
	eventBus     shared.EventPublisher
	currency     string
	logger       *zap.Logger
	metrics      *telemetry.StoreMetrics
}

// PlacementServiceConfig contains the collaborators of PlacementService
type PlacementServiceConfig struct {
	Carts        cart.Store
	AddressRepo  customer.AddressRepository
	ProductRepo  catalog.ProductRepository
	OrderRepo    order.Repository
	Placement    order.PlacementStore
	PaymentStore order.PaymentStore
	Gateway      PaymentGateway
	EventBus     shared.EventPublisher
	Currency     string
	Logger       *zap.Logger
}

// NewPlacementService creates a new PlacementService
func NewPlacementService(cfg PlacementServiceConfig) *PlacementService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	currency := cfg.Currency
	if currency == "" {
		currency = order.DefaultCurrency
	}
	return &PlacementService{
		carts:        cfg.Carts,
		addressRepo:  cfg.AddressRepo,
		productRepo:  cfg.ProductRepo,
		orderRepo:    cfg.OrderRepo,
		placement:    cfg.Placement,
		paymentStore: cfg.PaymentStore,
		gateway:      cfg.Gateway,
		eventBus:     cfg.EventBus,
		currency:     currency,
		logger:       logger,
	}
}

// SetStoreMetrics sets the store metrics collector
func (s *PlacementService) SetStoreMetrics(m *telemetry.StoreMetrics) {
	s.metrics = m
}

type requestedLine struct {
	productID uuid.UUID
	quantity  int
}

// PlaceOrder validates the checkout, re-prices every line from the catalog
// and commits the order with its stock reservation atomically.
//
// When the order commits but the payment session cannot be opened, the
// result is returned together with a *order.PaymentSessionError so the
// caller can report the order ID and retry payment later.
func (s *PlacementService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (result *PlaceOrderResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "order", "place_order",
		telemetry.SpanAttrUserID.String(in.UserID.String()),
		telemetry.AttrPaymentMethod.String(string(in.PaymentMethod)))
	defer func() { telemetry.EndSpan(span, err) }()

	if in.UserID == uuid.Nil {
		return nil, order.ErrUnauthenticated
	}

	requested, fromCart, err := s.resolveLines(ctx, in)
	if err != nil {
		return nil, err
	}
	if len(requested) == 0 {
		return nil, order.ErrEmptyCart
	}

	address, err := s.resolveAddress(ctx, in.UserID, in.AddressID)
	if err != nil {
		return nil, err
	}

	lines, err := s.priceLines(ctx, requested)
	if err != nil {
		return nil, err
	}

	o, err := order.NewOrder(order.PlaceInput{
		UserID:          in.UserID,
		CustomerEmail:   in.Email,
		CustomerName:    in.Name,
		PaymentMethod:   in.PaymentMethod,
		Currency:        s.currency,
		ShippingAddress: address,
		Lines:           lines,
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(telemetry.SpanAttrOrderID.String(o.ID.String()))

	if err := s.placement.PlaceAtomically(ctx, o); err != nil {
		var stockErr *order.StockInsufficientError
		if errors.As(err, &stockErr) {
			if s.metrics != nil {
				s.metrics.RecordStockConflict(ctx)
			}
			s.logger.Info("Order rejected for insufficient stock",
				zap.String("user_id", in.UserID.String()),
				zap.String("product_id", stockErr.ProductID.String()),
				zap.Int("requested", stockErr.Requested),
				zap.Int("available", stockErr.Available))
			return nil, err
		}
		s.logger.Error("Failed to place order",
			zap.String("user_id", in.UserID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Order placed",
		zap.String("order_id", o.ID.String()),
		zap.String("user_id", in.UserID.String()),
		zap.String("payment_method", string(o.PaymentMethod)),
		zap.String("total", o.TotalAmount.StringFixed(2)),
		zap.Bool("from_cart", fromCart))

	if s.metrics != nil {
		s.metrics.RecordOrderPlaced(ctx, string(o.PaymentMethod), o.TotalAmount)
	}

	// The order is committed; from here on failures are reported, not rolled back
	if fromCart {
		if err := s.carts.Delete(ctx, in.UserID); err != nil {
			s.logger.Warn("Failed to clear cart after checkout",
				zap.String("user_id", in.UserID.String()),
				zap.Error(err))
		}
	}
	s.publish(ctx, o)

	result = &PlaceOrderResult{
		OrderID:       o.ID,
		Total:         o.TotalAmount,
		Currency:      o.Currency,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
	}

	if o.PaymentMethod == order.PaymentMethodCash {
		result.ManualPayment = true
		return result, nil
	}

	session, err := s.openSession(ctx, o)
	if err != nil {
		return result, err
	}
	result.CheckoutURL = session.URL
	result.SessionID = session.ID
	return result, nil
}

// RetryPayment opens a new checkout session for an owned card order whose
// payment is still pending
func (s *PlacementService) RetryPayment(ctx context.Context, userID, orderID uuid.UUID) (*PaymentSessionResponse, error) {
	if userID == uuid.Nil {
		return nil, order.ErrUnauthenticated
	}
	o, err := s.orderRepo.FindByIDForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !o.AwaitsCardPayment() {
		return nil, shared.NewDomainError("INVALID_STATE", "Order is not awaiting card payment")
	}

	session, err := s.openSession(ctx, o)
	if err != nil {
		return nil, err
	}
	return &PaymentSessionResponse{
		OrderID:     o.ID,
		CheckoutURL: session.URL,
		SessionID:   session.ID,
	}, nil
}

// resolveLines returns the explicit items when given, otherwise the session
// cart. Duplicate products are merged in first-seen order.
func (s *PlacementService) resolveLines(ctx context.Context, in PlaceOrderInput) ([]requestedLine, bool, error) {
	var raw []requestedLine
	fromCart := len(in.Items) == 0

	if fromCart {
		c, err := s.carts.Load(ctx, in.UserID)
		if err != nil {
			return nil, true, err
		}
		for _, l := range c.Lines {
			raw = append(raw, requestedLine{productID: l.ProductID, quantity: l.Quantity})
		}
	} else {
		for _, item := range in.Items {
			if item.ProductID == uuid.Nil {
				return nil, false, shared.NewDomainError("INVALID_ITEM", "Item product_id is required")
			}
			if item.Quantity < 1 {
				return nil, false, shared.NewDomainError("INVALID_ITEM", "Item quantity must be at least 1")
			}
			raw = append(raw, requestedLine{productID: item.ProductID, quantity: item.Quantity})
		}
	}

	merged := make([]requestedLine, 0, len(raw))
	index := make(map[uuid.UUID]int, len(raw))
	for _, l := range raw {
		if i, ok := index[l.productID]; ok {
			merged[i].quantity += l.quantity
			continue
		}
		index[l.productID] = len(merged)
		merged = append(merged, l)
	}
	return merged, fromCart, nil
}

func (s *PlacementService) resolveAddress(ctx context.Context, userID uuid.UUID, addressID *uuid.UUID) (*customer.Address, error) {
	if addressID != nil {
		address, err := s.addressRepo.FindByIDForUser(ctx, userID, *addressID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, order.ErrNoAddressSelected
			}
			return nil, err
		}
		return address, nil
	}

	addresses, err := s.addressRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	address, ok := customer.SelectDefaultForCheckout(addresses)
	if !ok {
		return nil, order.ErrNoAddressSelected
	}
	return address, nil
}

// priceLines re-reads every product so the order carries current prices,
// never the ones the client or cart remembered
func (s *PlacementService) priceLines(ctx context.Context, requested []requestedLine) ([]order.PricedLine, error) {
	ids := make([]uuid.UUID, len(requested))
	for i, l := range requested {
		ids[i] = l.productID
	}

	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	lines := make([]order.PricedLine, 0, len(requested))
	for _, l := range requested {
		product, ok := byID[l.productID]
		if !ok {
			return nil, shared.NewDomainError("INVALID_PRODUCT",
				fmt.Sprintf("Product %s is no longer available", l.productID))
		}
		lines = append(lines, order.PricedLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			ImageURL:    product.ImageURL,
			Quantity:    l.quantity,
			UnitPrice:   product.Price,
		})
	}
	return lines, nil
}

func (s *PlacementService) openSession(ctx context.Context, o *order.Order) (*payment.CheckoutSession, error) {
	req := payment.CheckoutRequest{
		OrderID:       o.ID,
		CustomerEmail: o.CustomerEmail,
		Currency:      o.Currency,
		Lines:         make([]payment.CheckoutLine, len(o.Items)),
	}
	for i, item := range o.Items {
		req.Lines[i] = payment.CheckoutLine{
			Name:      item.ProductName,
			ImageURL:  item.ImageURL,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		s.logger.Error("Failed to create checkout session",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
		return nil, &order.PaymentSessionError{OrderID: o.ID, Err: err}
	}

	if err := s.paymentStore.SetPaymentSession(ctx, o.ID, session.ID); err != nil {
		s.logger.Warn("Failed to record checkout session",
			zap.String("order_id", o.ID.String()),
			zap.String("session_id", session.ID),
			zap.Error(err))
	}
	return session, nil
}

func (s *PlacementService) publish(ctx context.Context, o *order.Order) {
	events := o.PullDomainEvents()
	if s.eventBus == nil || len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish order events",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
	}
}
