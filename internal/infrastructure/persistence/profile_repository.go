package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/customer"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProfileRepository implements customer.ProfileRepository using GORM
type GormProfileRepository struct {
	db *gorm.DB
}

// NewGormProfileRepository creates a new GormProfileRepository
func NewGormProfileRepository(db *gorm.DB) *GormProfileRepository {
	return &GormProfileRepository{db: db}
}

// FindByID finds a profile by the identity provider's user ID
func (r *GormProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*customer.Profile, error) {
	var profile customer.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// Upsert inserts the profile, or refreshes email and name of an existing one.
// The stored role is never overwritten.
func (r *GormProfileRepository) Upsert(ctx context.Context, profile *customer.Profile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "full_name", "updated_at"}),
		}).
		Create(profile).Error
}

// Ensure GormProfileRepository implements ProfileRepository
var _ customer.ProfileRepository = (*GormProfileRepository)(nil)
