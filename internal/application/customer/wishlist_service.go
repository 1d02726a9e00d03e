package customer

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/customer"
	"github.com/storefront/backend/internal/domain/shared"
)

// WishlistService manages saved products
type WishlistService struct {
	wishlistRepo customer.WishlistRepository
	productRepo  catalog.ProductRepository
}

// NewWishlistService creates a new WishlistService
func NewWishlistService(wishlistRepo customer.WishlistRepository, productRepo catalog.ProductRepository) *WishlistService {
	return &WishlistService{
		wishlistRepo: wishlistRepo,
		productRepo:  productRepo,
	}
}

// List returns the user's saved products, newest first
func (s *WishlistService) List(ctx context.Context, userID uuid.UUID) ([]WishlistItemResponse, error) {
	if userID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	items, err := s.wishlistRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]WishlistItemResponse, len(items))
	for i, item := range items {
		responses[i] = WishlistItemResponse{ProductID: item.ProductID, AddedAt: item.CreatedAt}
	}
	return responses, nil
}

// Add saves a product; saving it twice is a no-op
func (s *WishlistService) Add(ctx context.Context, userID, productID uuid.UUID) error {
	item, err := customer.NewWishlistItem(userID, productID)
	if err != nil {
		return err
	}
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		return err
	}
	return s.wishlistRepo.Add(ctx, item)
}

// Remove forgets a saved product
func (s *WishlistService) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return shared.ErrUnauthorized
	}
	return s.wishlistRepo.Remove(ctx, userID, productID)
}
