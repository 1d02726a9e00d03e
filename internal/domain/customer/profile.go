package customer

import (
	"strings"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Role distinguishes staff from shoppers
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// Profile mirrors an identity-provider user. The ID is the provider's
// subject, so it is never generated locally.
type Profile struct {
	shared.BaseEntity
	Email    string `gorm:"type:varchar(320);not null" json:"email"`
	FullName string `gorm:"type:varchar(200)" json:"full_name"`
	Role     Role   `gorm:"type:varchar(20);not null;default:'customer'" json:"role"`
}

// TableName returns the table name for GORM
func (Profile) TableName() string {
	return "profiles"
}

// NewProfile creates a customer profile for an authenticated user
func NewProfile(userID uuid.UUID, email, fullName string) (*Profile, error) {
	if userID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	p := &Profile{
		BaseEntity: shared.NewBaseEntity(),
		Email:      strings.TrimSpace(strings.ToLower(email)),
		FullName:   strings.TrimSpace(fullName),
		Role:       RoleCustomer,
	}
	p.ID = userID
	return p, nil
}

// IsAdmin reports whether the profile may use the admin API
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// DisplayName falls back to a generic salutation
func (p *Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return "Valued Customer"
}
