package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/customer"
	"github.com/storefront/backend/internal/domain/order"
)

// CheckoutItem is one explicitly requested line
type CheckoutItem struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1,max=999"`
}

// PlaceOrderRequest represents the checkout request body. Without items the
// session cart is used.
type PlaceOrderRequest struct {
	Items         []CheckoutItem `json:"items" binding:"omitempty,max=100,dive"`
	AddressID     *uuid.UUID     `json:"address_id"`
	PaymentMethod string         `json:"payment_method" binding:"required,oneof=card cash"`
}

// PlaceOrderInput carries the caller's identity alongside the request
type PlaceOrderInput struct {
	UserID        uuid.UUID
	Email         string
	Name          string
	Items         []CheckoutItem
	AddressID     *uuid.UUID
	PaymentMethod order.PaymentMethod
}

// PlaceOrderResult is returned after the order commits
type PlaceOrderResult struct {
	OrderID       uuid.UUID           `json:"order_id"`
	Total         decimal.Decimal     `json:"total"`
	Currency      string              `json:"currency"`
	PaymentMethod order.PaymentMethod `json:"payment_method"`
	PaymentStatus order.PaymentStatus `json:"payment_status"`
	CheckoutURL   string              `json:"checkout_url,omitempty"`
	SessionID     string              `json:"session_id,omitempty"`
	ManualPayment bool                `json:"manual_payment"`
}

// PaymentSessionResponse is returned by a payment retry
type PaymentSessionResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	CheckoutURL string    `json:"checkout_url"`
	SessionID   string    `json:"session_id"`
}

// UpdateStatusRequest represents an admin status change
type UpdateStatusRequest struct {
	Status            string     `json:"status" binding:"required,oneof=processing shipped delivered completed cancelled"`
	TrackingNumber    string     `json:"tracking_number" binding:"max=100"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
}

// OrderListFilter represents filter options for order listing
type OrderListFilter struct {
	Status        string `form:"status" binding:"omitempty,oneof=pending processing shipped delivered completed cancelled failed"`
	PaymentStatus string `form:"payment_status" binding:"omitempty,oneof=pending paid failed"`
	Page          int    `form:"page" binding:"min=0"`
	PageSize      int    `form:"page_size" binding:"min=0,max=100"`
}

// OrderItemResponse represents an order line in API responses
type OrderItemResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	ImageURL    string          `json:"image_url,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID                uuid.UUID           `json:"id"`
	UserID            uuid.UUID           `json:"user_id"`
	CustomerEmail     string              `json:"customer_email"`
	CustomerName      string              `json:"customer_name"`
	Status            order.Status        `json:"status"`
	PaymentStatus     order.PaymentStatus `json:"payment_status"`
	PaymentMethod     order.PaymentMethod `json:"payment_method"`
	TotalAmount       decimal.Decimal     `json:"total_amount"`
	Currency          string              `json:"currency"`
	ShippingAddress   customer.Snapshot   `json:"shipping_address"`
	TrackingNumber    string              `json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time          `json:"estimated_delivery,omitempty"`
	PaidAt            *time.Time          `json:"paid_at,omitempty"`
	ItemCount         int                 `json:"item_count"`
	Items             []OrderItemResponse `json:"items,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// ToOrderResponse converts a domain Order to OrderResponse
func ToOrderResponse(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i := range o.Items {
		item := &o.Items[i]
		items[i] = OrderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ImageURL:    item.ImageURL,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal(),
		}
	}
	return OrderResponse{
		ID:                o.ID,
		UserID:            o.UserID,
		CustomerEmail:     o.CustomerEmail,
		CustomerName:      o.CustomerName,
		Status:            o.Status,
		PaymentStatus:     o.PaymentStatus,
		PaymentMethod:     o.PaymentMethod,
		TotalAmount:       o.TotalAmount,
		Currency:          o.Currency,
		ShippingAddress:   o.ShippingAddress,
		TrackingNumber:    o.TrackingNumber,
		EstimatedDelivery: o.EstimatedDelivery,
		PaidAt:            o.PaidAt,
		ItemCount:         o.ItemCount(),
		Items:             items,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

// ToOrderResponses converts a slice of orders
func ToOrderResponses(orders []order.Order) []OrderResponse {
	responses := make([]OrderResponse, len(orders))
	for i := range orders {
		responses[i] = ToOrderResponse(&orders[i])
	}
	return responses
}

// DashboardResponse summarises the store for staff
type DashboardResponse struct {
	ProductCount int64           `json:"product_count"`
	OrderCount   int64           `json:"order_count"`
	Revenue      decimal.Decimal `json:"revenue"`
	RecentOrders []OrderResponse `json:"recent_orders"`
}
