package handler

import (
	"context"

	"github.com/google/uuid"
	cartapp "github.com/storefront/backend/internal/application/cart"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	customerapp "github.com/storefront/backend/internal/application/customer"
	orderapp "github.com/storefront/backend/internal/application/order"
	paymentapp "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/domain/shared"
)

// The interfaces below are the slices of the application services each
// handler calls. The concrete services satisfy them.

// ProductService reads and manages catalog products
type ProductService interface {
	List(ctx context.Context, filter catalogapp.ProductListFilter) ([]catalogapp.ProductResponse, int64, error)
	GetByID(ctx context.Context, productID uuid.UUID) (*catalogapp.ProductResponse, error)
	Create(ctx context.Context, req catalogapp.CreateProductRequest) (*catalogapp.ProductResponse, error)
	Update(ctx context.Context, productID uuid.UUID, req catalogapp.UpdateProductRequest) (*catalogapp.ProductResponse, error)
	SetStock(ctx context.Context, productID uuid.UUID, req catalogapp.SetStockRequest) (*catalogapp.ProductResponse, error)
	Delete(ctx context.Context, productID uuid.UUID) error
}

// CategoryService reads and manages categories
type CategoryService interface {
	List(ctx context.Context) ([]catalogapp.CategoryResponse, error)
	Create(ctx context.Context, req catalogapp.CreateCategoryRequest) (*catalogapp.CategoryResponse, error)
	Update(ctx context.Context, categoryID uuid.UUID, req catalogapp.UpdateCategoryRequest) (*catalogapp.CategoryResponse, error)
	Delete(ctx context.Context, categoryID uuid.UUID) error
}

// ReviewService reads and writes product reviews
type ReviewService interface {
	List(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]catalogapp.ReviewResponse, error)
	Create(ctx context.Context, userID, productID uuid.UUID, req catalogapp.CreateReviewRequest) (*catalogapp.ReviewResponse, error)
}

// CartService manages the session cart
type CartService interface {
	Get(ctx context.Context, userID uuid.UUID) (*cartapp.CartResponse, error)
	AddItem(ctx context.Context, userID uuid.UUID, req cartapp.AddItemRequest) (*cartapp.CartResponse, error)
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, req cartapp.UpdateItemRequest) (*cartapp.CartResponse, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*cartapp.CartResponse, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// PlacementService places orders and reopens payment sessions
type PlacementService interface {
	PlaceOrder(ctx context.Context, in orderapp.PlaceOrderInput) (*orderapp.PlaceOrderResult, error)
	RetryPayment(ctx context.Context, userID, orderID uuid.UUID) (*orderapp.PaymentSessionResponse, error)
}

// OrderQueryService reads the caller's orders
type OrderQueryService interface {
	ListMine(ctx context.Context, userID uuid.UUID, filter orderapp.OrderListFilter) ([]orderapp.OrderResponse, int64, error)
	GetMine(ctx context.Context, userID, orderID uuid.UUID) (*orderapp.OrderResponse, error)
}

// OrderAdminService is the staff view of orders
type OrderAdminService interface {
	List(ctx context.Context, filter orderapp.OrderListFilter) ([]orderapp.OrderResponse, int64, error)
	Get(ctx context.Context, orderID uuid.UUID) (*orderapp.OrderResponse, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, req orderapp.UpdateStatusRequest) (*orderapp.OrderResponse, error)
	MarkCashPaid(ctx context.Context, orderID uuid.UUID) (*orderapp.OrderResponse, error)
	Dashboard(ctx context.Context) (*orderapp.DashboardResponse, error)
}

// AddressService manages the address book
type AddressService interface {
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]customerapp.AddressResponse, error)
	AddAddress(ctx context.Context, userID uuid.UUID, req customerapp.AddAddressRequest) (*customerapp.AddressResponse, error)
	DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error
}

// WishlistService manages saved products
type WishlistService interface {
	List(ctx context.Context, userID uuid.UUID) ([]customerapp.WishlistItemResponse, error)
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
}

// ProfileService returns the caller's profile
type ProfileService interface {
	Me(ctx context.Context, id customerapp.Identity) (*customerapp.ProfileResponse, error)
}

// WebhookProcessor applies payment processor callbacks
type WebhookProcessor interface {
	ProcessWebhook(ctx context.Context, payload []byte, signature string) (*paymentapp.WebhookResult, error)
}
