package customer

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFields() AddressFields {
	return AddressFields{
		FullName:   "Ada Lovelace",
		Street:     "12 St James's Square",
		City:       "London",
		PostalCode: "SW1Y 4JH",
		Country:    "GB",
	}
}

func TestNewAddress(t *testing.T) {
	userID := uuid.New()

	t.Run("trims and keeps fields", func(t *testing.T) {
		f := validFields()
		f.City = "  London  "
		addr, err := NewAddress(userID, f, true)
		require.NoError(t, err)
		assert.Equal(t, "London", addr.City)
		assert.Equal(t, userID, addr.UserID)
		assert.True(t, addr.IsDefault)
	})

	tests := []struct {
		name   string
		mutate func(f *AddressFields)
		field  string
	}{
		{"missing name", func(f *AddressFields) { f.FullName = "" }, "full_name"},
		{"blank street", func(f *AddressFields) { f.Street = "   " }, "street"},
		{"missing city", func(f *AddressFields) { f.City = "" }, "city"},
		{"missing postal code", func(f *AddressFields) { f.PostalCode = "" }, "postal_code"},
		{"missing country", func(f *AddressFields) { f.Country = "" }, "country"},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			f := validFields()
			tt.mutate(&f)
			_, err := NewAddress(userID, f, false)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	t.Run("rejects overlong fields", func(t *testing.T) {
		f := validFields()
		f.PostalCode = strings.Repeat("9", 21)
		_, err := NewAddress(userID, f, false)
		require.Error(t, err)
		assert.Equal(t, "postal_code must be at most 20 characters", err.Error())

		f = validFields()
		f.Phone = strings.Repeat("5", 41)
		_, err = NewAddress(userID, f, false)
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "INVALID_ADDRESS", de.Code)
		assert.Contains(t, de.Message, "phone")
	})

	t.Run("optional fields may be empty", func(t *testing.T) {
		f := validFields()
		f.State, f.Phone = "", ""
		_, err := NewAddress(userID, f, false)
		assert.NoError(t, err)
	})

	t.Run("rejects anonymous owner", func(t *testing.T) {
		_, err := NewAddress(uuid.Nil, validFields(), false)
		assert.Error(t, err)
	})
}

func TestEffectiveDefault(t *testing.T) {
	assert.True(t, EffectiveDefault(false, 0), "first address is always default")
	assert.True(t, EffectiveDefault(true, 0))
	assert.True(t, EffectiveDefault(true, 3))
	assert.False(t, EffectiveDefault(false, 1))
}

func TestSelectDefaultForCheckout(t *testing.T) {
	userID := uuid.New()
	mk := func(def bool) Address {
		a, err := NewAddress(userID, validFields(), def)
		require.NoError(t, err)
		return *a
	}

	t.Run("empty list", func(t *testing.T) {
		_, ok := SelectDefaultForCheckout(nil)
		assert.False(t, ok)
	})

	t.Run("prefers the default", func(t *testing.T) {
		list := []Address{mk(false), mk(true), mk(false)}
		got, ok := SelectDefaultForCheckout(list)
		require.True(t, ok)
		assert.Equal(t, list[1].ID, got.ID)
	})

	t.Run("falls back to the first", func(t *testing.T) {
		list := []Address{mk(false), mk(false)}
		got, ok := SelectDefaultForCheckout(list)
		require.True(t, ok)
		assert.Equal(t, list[0].ID, got.ID)
	})
}

func TestProfile(t *testing.T) {
	userID := uuid.New()
	p, err := NewProfile(userID, " Ada@Example.com ", "")
	require.NoError(t, err)

	assert.Equal(t, userID, p.ID)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.Equal(t, RoleCustomer, p.Role)
	assert.False(t, p.IsAdmin())
	assert.Equal(t, "Valued Customer", p.DisplayName())

	p.Role = RoleAdmin
	assert.True(t, p.IsAdmin())
	assert.False(t, Role("root").IsValid())
}
