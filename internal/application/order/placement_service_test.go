package order

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/customer"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type placementFixture struct {
	ctx       context.Context
	userID    uuid.UUID
	carts     *memoryCarts
	addresses *MockAddressRepository
	products  *MockProductRepository
	orders    *MockOrderRepository
	placement *MockPlacementStore
	payments  *MockPaymentStore
	gateway   *MockPaymentGateway
	bus       *MockEventPublisher
	svc       *PlacementService

	mug     catalog.Product
	coaster catalog.Product
	address *customer.Address
}

func newPlacementFixture(t *testing.T) *placementFixture {
	f := &placementFixture{
		ctx:       context.Background(),
		userID:    uuid.New(),
		carts:     newMemoryCarts(),
		addresses: new(MockAddressRepository),
		products:  new(MockProductRepository),
		orders:    new(MockOrderRepository),
		placement: new(MockPlacementStore),
		payments:  new(MockPaymentStore),
		gateway:   new(MockPaymentGateway),
		bus:       new(MockEventPublisher),
	}
	f.svc = NewPlacementService(PlacementServiceConfig{
		Carts:        f.carts,
		AddressRepo:  f.addresses,
		ProductRepo:  f.products,
		OrderRepo:    f.orders,
		Placement:    f.placement,
		PaymentStore: f.payments,
		Gateway:      f.gateway,
		EventBus:     f.bus,
		Logger:       zap.NewNop(),
	})

	mug, err := catalog.NewProduct(catalog.ProductInput{Name: "Mug", Price: decimal.RequireFromString("10.00"), StockQuantity: 5})
	require.NoError(t, err)
	coaster, err := catalog.NewProduct(catalog.ProductInput{Name: "Coaster", Price: decimal.RequireFromString("2.50"), StockQuantity: 5})
	require.NoError(t, err)
	f.mug, f.coaster = *mug, *coaster

	f.address, err = customer.NewAddress(f.userID, customer.AddressFields{
		FullName: "Alan Turing", Street: "Bletchley Park", City: "Milton Keynes",
		PostalCode: "MK3 6EB", Country: "GB",
	}, true)
	require.NoError(t, err)

	return f
}

// fillCart stores a cart whose remembered mug price is stale
func (f *placementFixture) fillCart(t *testing.T) {
	c := cart.New(f.userID)
	require.NoError(t, c.Add(cart.ProductSnapshot{ID: f.mug.ID, Name: "Mug", Price: decimal.RequireFromString("8.00")}, 2))
	require.NoError(t, c.Add(cart.ProductSnapshot{ID: f.coaster.ID, Name: "Coaster", Price: f.coaster.Price}, 1))
	f.carts.carts[f.userID] = c
}

func (f *placementFixture) expectCatalog() {
	f.addresses.On("ListByUser", mock.Anything, f.userID).Return([]customer.Address{*f.address}, nil)
	f.products.On("FindByIDs", mock.Anything, []uuid.UUID{f.mug.ID, f.coaster.ID}).
		Return([]catalog.Product{f.mug, f.coaster}, nil)
}

func (f *placementFixture) input(method order.PaymentMethod) PlaceOrderInput {
	return PlaceOrderInput{
		UserID:        f.userID,
		Email:         "alan@example.com",
		Name:          "Alan Turing",
		PaymentMethod: method,
	}
}

func TestPlacementService_PlaceOrder_Card(t *testing.T) {
	f := newPlacementFixture(t)
	f.fillCart(t)
	f.expectCatalog()

	var placed *order.Order
	f.placement.On("PlaceAtomically", mock.Anything, mock.AnythingOfType("*order.Order")).
		Run(func(args mock.Arguments) { placed = args.Get(1).(*order.Order) }).
		Return(nil)
	f.bus.On("Publish", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return len(events) == 1 && events[0].EventType() == order.EventTypeOrderPlaced
	})).Return(nil)
	f.gateway.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(req payment.CheckoutRequest) bool {
		return req.OrderID == placed.ID && len(req.Lines) == 2 && req.CustomerEmail == "alan@example.com"
	})).Return(&payment.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/cs_test_1"}, nil)
	f.payments.On("SetPaymentSession", mock.Anything, mock.Anything, "cs_test_1").Return(nil)

	result, err := f.svc.PlaceOrder(f.ctx, f.input(order.PaymentMethodCard))
	require.NoError(t, err)

	require.NotNil(t, placed)
	assert.Equal(t, placed.ID, result.OrderID)
	assert.True(t, decimal.RequireFromString("22.50").Equal(result.Total), "prices are re-read from the catalog")
	assert.True(t, decimal.RequireFromString("10.00").Equal(placed.Items[0].UnitPrice))
	assert.NoError(t, placed.VerifyTotal())
	assert.Equal(t, "Milton Keynes", placed.ShippingAddress.City)
	assert.Equal(t, "cs_test_1", result.SessionID)
	assert.NotEmpty(t, result.CheckoutURL)
	assert.False(t, result.ManualPayment)
	assert.Empty(t, f.carts.carts, "cart is cleared after commit")

	f.placement.AssertExpectations(t)
	f.gateway.AssertExpectations(t)
	f.payments.AssertExpectations(t)
	f.bus.AssertExpectations(t)
}

func TestPlacementService_PlaceOrder_Cash(t *testing.T) {
	f := newPlacementFixture(t)
	f.fillCart(t)
	f.expectCatalog()
	f.placement.On("PlaceAtomically", mock.Anything, mock.Anything).Return(nil)
	f.bus.On("Publish", mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.PlaceOrder(f.ctx, f.input(order.PaymentMethodCash))
	require.NoError(t, err)

	assert.True(t, result.ManualPayment)
	assert.Equal(t, order.PaymentPending, result.PaymentStatus)
	assert.Empty(t, result.CheckoutURL)
	f.gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func TestPlacementService_PlaceOrder_Preconditions(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		f := newPlacementFixture(t)
		in := f.input(order.PaymentMethodCard)
		in.UserID = uuid.Nil

		_, err := f.svc.PlaceOrder(f.ctx, in)
		assert.ErrorIs(t, err, order.ErrUnauthenticated)
	})

	t.Run("empty cart touches nothing", func(t *testing.T) {
		f := newPlacementFixture(t)

		_, err := f.svc.PlaceOrder(f.ctx, f.input(order.PaymentMethodCard))
		assert.ErrorIs(t, err, order.ErrEmptyCart)
		f.addresses.AssertNotCalled(t, "ListByUser", mock.Anything, mock.Anything)
		f.placement.AssertNotCalled(t, "PlaceAtomically", mock.Anything, mock.Anything)
	})

	t.Run("no address", func(t *testing.T) {
		f := newPlacementFixture(t)
		f.fillCart(t)
		f.addresses.On("ListByUser", mock.Anything, f.userID).Return([]customer.Address{}, nil)

		_, err := f.svc.PlaceOrder(f.ctx, f.input(order.PaymentMethodCard))
		assert.ErrorIs(t, err, order.ErrNoAddressSelected)
		f.placement.AssertNotCalled(t, "PlaceAtomically", mock.Anything, mock.Anything)
		assert.Len(t, f.carts.carts, 1)
	})

	t.Run("explicit address of another user", func(t *testing.T) {
		f := newPlacementFixture(t)
		f.fillCart(t)
		foreign := uuid.New()
		f.addresses.On("FindByIDForUser", mock.Anything, f.userID, foreign).Return(nil, shared.ErrNotFound)

		in := f.input(order.PaymentMethodCard)
		in.AddressID = &foreign
		_, err := f.svc.PlaceOrder(f.ctx, in)
		assert.ErrorIs(t, err, order.ErrNoAddressSelected)
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newPlacementFixture(t)
		f.fillCart(t)
		f.addresses.On("ListByUser", mock.Anything, f.userID).Return([]customer.Address{*f.address}, nil)
		f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{f.mug}, nil)

		_, err := f.svc.PlaceOrder(f.ctx, f.input(order.PaymentMethodCard))
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "INVALID_PRODUCT", de.Code)
	})
}

func TestPlacementService_PlaceOrder_ExplicitItems(t *testing.T) {
	f := newPlacementFixture(t)
	f.fillCart(t)
	f.expectCatalog()

	var placed *order.Order
	f.placement.On("PlaceAtomically", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { placed = args.Get(1).(*order.Order) }).
		Return(nil)
	f.bus.On("Publish", mock.Anything, mock.Anything).Return(nil)

	in := f.input(order.PaymentMethodCash)
	in.Items = []CheckoutItem{
		{ProductID: f.mug.ID, Quantity: 1},
		{ProductID: f.coaster.ID, Quantity: 4},
		{ProductID: f.mug.ID, Quantity: 2},
	}
	_, err := f.svc.PlaceOrder(f.ctx, in)
	require.NoError(t, err)

	require.Len(t, placed.Items, 2, "duplicate products are merged")
	assert.Equal(t, 3, placed.Items[0].Quantity)
	assert.Equal(t, 4, placed.Items[1].Quantity)
	assert.True(t, decimal.RequireFromString("40.00").Equal(placed.TotalAmount))
	assert.Contains(t, f.carts.carts, f.userID, "session cart is untouched by an explicit checkout")
}

func TestPlacementService_PlaceOrder_InvalidExplicitItem(t *testing.T) {
	f := newPlacementFixture(t)
	in := f.input(order.PaymentMethodCash)
	in.Items = []CheckoutItem{{ProductID: f.mug.ID, Quantity: 0}}

	_, err := f.svc.PlaceOrder(f.ctx, in)
	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "INVALID_ITEM", de.Code)
}

func TestPlacementService_PlaceOrder_StoreFailures(t *testing.T) {
	t.Run("insufficient stock keeps the cart", func(t *testing.T) {
		f := newPlacementFixture(t)
		f.fillCart(t)
		f.expectCatalog()
		stockErr := &order.StockInsufficientError{ProductID: f.mug.ID, ProductName: "Mug", Requested: 2, Available: 1}
		f.placement.On("PlaceAtomically", mock.Anything, mock.Anything).Return(stockErr)

		result, err := f.svc.PlaceOrder(f.ctx, f.input(order.PaymentMethodCard))
		assert.Nil(t, result)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		var got *order.StockInsufficientError
		require.True(t, errors.As(err, &got))
		assert.Equal(t, 1, got.Available)

		assert.Len(t, f.carts.carts, 1)
		f.gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
		f.bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("persistence failure keeps the cart", func(t *testing.T) {
		f := newPlacementFixture(t)
		f.fillCart(t)
		f.expectCatalog()
		f.placement.On("PlaceAtomically", mock.Anything, mock.Anything).
			Return(order.NewPersistenceError("insert order items", errors.New("connection reset")))

		_, err := f.svc.PlaceOrder(f.ctx, f.input(order.PaymentMethodCard))
		assert.ErrorIs(t, err, order.ErrPersistence)
		assert.Len(t, f.carts.carts, 1)
	})
}

func TestPlacementService_PlaceOrder_PaymentSessionFailure(t *testing.T) {
	f := newPlacementFixture(t)
	f.fillCart(t)
	f.expectCatalog()
	f.placement.On("PlaceAtomically", mock.Anything, mock.Anything).Return(nil)
	f.bus.On("Publish", mock.Anything, mock.Anything).Return(nil)
	f.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(nil, errors.New("stripe unavailable"))

	result, err := f.svc.PlaceOrder(f.ctx, f.input(order.PaymentMethodCard))

	assert.ErrorIs(t, err, order.ErrPaymentSession)
	require.NotNil(t, result, "the committed order is still reported")
	assert.NotEqual(t, uuid.Nil, result.OrderID)
	assert.Empty(t, result.CheckoutURL)
	f.payments.AssertNotCalled(t, "SetPaymentSession", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlacementService_RetryPayment(t *testing.T) {
	t.Run("opens a new session for a pending card order", func(t *testing.T) {
		f := newPlacementFixture(t)
		o, err := order.NewOrder(order.PlaceInput{
			UserID: f.userID, PaymentMethod: order.PaymentMethodCard, ShippingAddress: f.address,
			Lines: []order.PricedLine{{ProductID: f.mug.ID, ProductName: "Mug", Quantity: 1, UnitPrice: f.mug.Price}},
		})
		require.NoError(t, err)

		f.orders.On("FindByIDForUser", mock.Anything, f.userID, o.ID).Return(o, nil)
		f.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything).
			Return(&payment.CheckoutSession{ID: "cs_retry", URL: "https://checkout.stripe.com/c/cs_retry"}, nil)
		f.payments.On("SetPaymentSession", mock.Anything, o.ID, "cs_retry").Return(nil)

		resp, err := f.svc.RetryPayment(f.ctx, f.userID, o.ID)
		require.NoError(t, err)
		assert.Equal(t, "cs_retry", resp.SessionID)
	})

	t.Run("rejects a settled order", func(t *testing.T) {
		f := newPlacementFixture(t)
		o, err := order.NewOrder(order.PlaceInput{
			UserID: f.userID, PaymentMethod: order.PaymentMethodCard, ShippingAddress: f.address,
			Lines: []order.PricedLine{{ProductID: f.mug.ID, ProductName: "Mug", Quantity: 1, UnitPrice: f.mug.Price}},
		})
		require.NoError(t, err)
		require.NoError(t, o.MarkPaid("pi_1", o.CreatedAt))

		f.orders.On("FindByIDForUser", mock.Anything, f.userID, o.ID).Return(o, nil)

		_, err = f.svc.RetryPayment(f.ctx, f.userID, o.ID)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}
