package customer

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/customer"
	"github.com/storefront/backend/internal/domain/shared"
)

// ProfileService keeps local profiles in step with the identity provider
type ProfileService struct {
	profileRepo customer.ProfileRepository
}

// NewProfileService creates a new ProfileService
func NewProfileService(profileRepo customer.ProfileRepository) *ProfileService {
	return &ProfileService{profileRepo: profileRepo}
}

// Me upserts the caller's profile from the verified token and returns it
func (s *ProfileService) Me(ctx context.Context, id Identity) (*ProfileResponse, error) {
	profile, err := customer.NewProfile(id.UserID, id.Email, id.FullName)
	if err != nil {
		return nil, err
	}
	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, err
	}

	// Reload so the stored role wins over the default
	stored, err := s.profileRepo.FindByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	return &ProfileResponse{
		ID:       stored.ID,
		Email:    stored.Email,
		FullName: stored.FullName,
		Role:     stored.Role,
	}, nil
}

// IsAdmin reports whether the user's stored profile carries the admin role.
// A user without a profile is not an admin.
func (s *ProfileService) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return profile.IsAdmin(), nil
}
