package customer

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/customer"
)

// AddAddressRequest represents a request to add a shipping address
type AddAddressRequest struct {
	FullName   string `json:"full_name" binding:"required,max=200"`
	Street     string `json:"street" binding:"required,max=300"`
	City       string `json:"city" binding:"required,max=100"`
	State      string `json:"state" binding:"max=100"`
	PostalCode string `json:"postal_code" binding:"required,max=20"`
	Country    string `json:"country" binding:"required,max=100"`
	Phone      string `json:"phone" binding:"max=40"`
	IsDefault  bool   `json:"is_default"`
}

// Fields returns the address fields of the request
func (r AddAddressRequest) Fields() customer.AddressFields {
	return customer.AddressFields{
		FullName:   r.FullName,
		Street:     r.Street,
		City:       r.City,
		State:      r.State,
		PostalCode: r.PostalCode,
		Country:    r.Country,
		Phone:      r.Phone,
	}
}

// AddressResponse represents an address in API responses
type AddressResponse struct {
	ID         uuid.UUID `json:"id"`
	FullName   string    `json:"full_name"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	Phone      string    `json:"phone"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToAddressResponse converts a domain Address to AddressResponse
func ToAddressResponse(a *customer.Address) AddressResponse {
	return AddressResponse{
		ID:         a.ID,
		FullName:   a.FullName,
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
		IsDefault:  a.IsDefault,
		CreatedAt:  a.CreatedAt,
	}
}

// ProfileResponse represents the signed-in user's profile
type ProfileResponse struct {
	ID       uuid.UUID     `json:"id"`
	Email    string        `json:"email"`
	FullName string        `json:"full_name"`
	Role     customer.Role `json:"role"`
}

// Identity is what the verified token says about the caller
type Identity struct {
	UserID   uuid.UUID
	Email    string
	FullName string
}

// WishlistItemResponse represents a saved product
type WishlistItemResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	AddedAt   time.Time `json:"added_at"`
}
