package customer

import (
	"context"

	"github.com/google/uuid"
)

// AddressRepository defines the interface for address persistence.
// Every method is scoped to the owning user.
type AddressRepository interface {
	// ListByUser returns the user's addresses, default first then oldest first
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Address, error)

	// FindByIDForUser finds an address owned by the user
	FindByIDForUser(ctx context.Context, userID, id uuid.UUID) (*Address, error)

	// CountByUser counts the user's addresses
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// Insert stores a non-default address
	Insert(ctx context.Context, address *Address) error

	// InsertAsDefault clears is_default on the user's other addresses and then
	// inserts the address as default, in one transaction
	InsertAsDefault(ctx context.Context, address *Address) error

	// DeleteForUser deletes an address owned by the user. It returns
	// shared.ErrNotFound when no such address exists for that user.
	DeleteForUser(ctx context.Context, userID, id uuid.UUID) error
}

// ProfileRepository defines the interface for profile persistence
type ProfileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	// Upsert inserts the profile or refreshes email and name, never the role
	Upsert(ctx context.Context, profile *Profile) error
}

// WishlistRepository defines the interface for wishlist persistence
type WishlistRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]WishlistItem, error)
	// Add is idempotent for an existing (user, product) pair
	Add(ctx context.Context, item *WishlistItem) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
}
