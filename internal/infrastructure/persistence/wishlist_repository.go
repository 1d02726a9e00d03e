package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/customer"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWishlistRepository implements customer.WishlistRepository using GORM
type GormWishlistRepository struct {
	db *gorm.DB
}

// NewGormWishlistRepository creates a new GormWishlistRepository
func NewGormWishlistRepository(db *gorm.DB) *GormWishlistRepository {
	return &GormWishlistRepository{db: db}
}

// ListByUser returns the user's saved products, most recent first
func (r *GormWishlistRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]customer.WishlistItem, error) {
	var items []customer.WishlistItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Add saves a product; saving it twice is a no-op
func (r *GormWishlistRepository) Add(ctx context.Context, item *customer.WishlistItem) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(item).Error
}

// Remove deletes the saved product if present
func (r *GormWishlistRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&customer.WishlistItem{}, "user_id = ? AND product_id = ?", userID, productID).Error
}

// Ensure GormWishlistRepository implements WishlistRepository
var _ customer.WishlistRepository = (*GormWishlistRepository)(nil)
