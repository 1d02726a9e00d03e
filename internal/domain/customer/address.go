package customer

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// fieldValidator checks AddressFields against its validate tags and reports
// fields by their json names
var fieldValidator = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// Address is a shipping address owned by one user. At most one address per
// user carries IsDefault.
type Address struct {
	shared.BaseEntity
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	FullName   string    `gorm:"type:varchar(200);not null" json:"full_name"`
	Street     string    `gorm:"type:varchar(300);not null" json:"street"`
	City       string    `gorm:"type:varchar(100);not null" json:"city"`
	State      string    `gorm:"type:varchar(100)" json:"state"`
	PostalCode string    `gorm:"type:varchar(20);not null" json:"postal_code"`
	Country    string    `gorm:"type:varchar(100);not null" json:"country"`
	Phone      string    `gorm:"type:varchar(40)" json:"phone"`
	IsDefault  bool      `gorm:"not null;default:false" json:"is_default"`
}

// TableName returns the table name for GORM
func (Address) TableName() string {
	return "addresses"
}

// AddressFields are the user-supplied parts of an address
type AddressFields struct {
	FullName   string `json:"full_name" validate:"required,max=200"`
	Street     string `json:"street" validate:"required,max=300"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=100"`
	Phone      string `json:"phone" validate:"max=40"`
}

// Normalize trims surrounding whitespace from every field
func (f AddressFields) Normalize() AddressFields {
	return AddressFields{
		FullName:   strings.TrimSpace(f.FullName),
		Street:     strings.TrimSpace(f.Street),
		City:       strings.TrimSpace(f.City),
		State:      strings.TrimSpace(f.State),
		PostalCode: strings.TrimSpace(f.PostalCode),
		Country:    strings.TrimSpace(f.Country),
		Phone:      strings.TrimSpace(f.Phone),
	}
}

// Validate reports the first field, in declaration order, that is missing or
// too long once trimmed
func (f AddressFields) Validate() error {
	err := fieldValidator.Struct(f.Normalize())
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	if fe.Tag() == "required" {
		return shared.NewDomainError("INVALID_ADDRESS", fe.Field()+" is required")
	}
	return shared.NewDomainError("INVALID_ADDRESS", fe.Field()+" must be at most "+fe.Param()+" characters")
}

// NewAddress builds a validated address. isDefault should already be the
// effective flag (see EffectiveDefault).
func NewAddress(userID uuid.UUID, fields AddressFields, isDefault bool) (*Address, error) {
	if userID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	f := fields.Normalize()

	return &Address{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		FullName:   f.FullName,
		Street:     f.Street,
		City:       f.City,
		State:      f.State,
		PostalCode: f.PostalCode,
		Country:    f.Country,
		Phone:      f.Phone,
		IsDefault:  isDefault,
	}, nil
}

// EffectiveDefault applies the first-address rule: a user's first address is
// always the default, whatever was requested.
func EffectiveDefault(requested bool, existingCount int64) bool {
	return requested || existingCount == 0
}

// SelectDefaultForCheckout picks the default address, or the first address when
// none is flagged. The input order must be stable for the result to be.
func SelectDefaultForCheckout(addresses []Address) (*Address, bool) {
	if len(addresses) == 0 {
		return nil, false
	}
	for i := range addresses {
		if addresses[i].IsDefault {
			return &addresses[i], true
		}
	}
	return &addresses[0], true
}

// Snapshot is the address as frozen onto an order
type Snapshot struct {
	FullName   string `json:"full_name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// Snapshot copies the shipping fields
func (a *Address) Snapshot() Snapshot {
	return Snapshot{
		FullName:   a.FullName,
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}
