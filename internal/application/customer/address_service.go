package customer

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/customer"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AddressService manages a user's address book. A user has at most one
// default address and the first address is always the default.
type AddressService struct {
	addressRepo customer.AddressRepository
	logger      *zap.Logger
}

// NewAddressService creates a new AddressService
func NewAddressService(addressRepo customer.AddressRepository, logger *zap.Logger) *AddressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AddressService{
		addressRepo: addressRepo,
		logger:      logger,
	}
}

// AddAddress validates and stores an address. Validation happens before any
// write, so a rejected address never clears an existing default.
func (s *AddressService) AddAddress(ctx context.Context, userID uuid.UUID, req AddAddressRequest) (*AddressResponse, error) {
	if userID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	fields := req.Fields()
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.addressRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	isDefault := customer.EffectiveDefault(req.IsDefault, existing)

	address, err := customer.NewAddress(userID, fields, isDefault)
	if err != nil {
		return nil, err
	}

	if isDefault {
		err = s.addressRepo.InsertAsDefault(ctx, address)
	} else {
		err = s.addressRepo.Insert(ctx, address)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Address added",
		zap.String("user_id", userID.String()),
		zap.String("address_id", address.ID.String()),
		zap.Bool("is_default", isDefault))

	response := ToAddressResponse(address)
	return &response, nil
}

// DeleteAddress removes an address owned by the user. Deleting the default
// does not promote another address.
func (s *AddressService) DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	if userID == uuid.Nil {
		return shared.ErrUnauthorized
	}
	return s.addressRepo.DeleteForUser(ctx, userID, addressID)
}

// ListAddresses returns the user's addresses, default first
func (s *AddressService) ListAddresses(ctx context.Context, userID uuid.UUID) ([]AddressResponse, error) {
	if userID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	addresses, err := s.addressRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]AddressResponse, len(addresses))
	for i := range addresses {
		responses[i] = ToAddressResponse(&addresses[i])
	}
	return responses, nil
}

// DefaultForCheckout returns the address checkout should ship to: the
// default, else the first. It returns nil when the user has no address.
func (s *AddressService) DefaultForCheckout(ctx context.Context, userID uuid.UUID) (*customer.Address, error) {
	addresses, err := s.addressRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	address, ok := customer.SelectDefaultForCheckout(addresses)
	if !ok {
		return nil, nil
	}
	return address, nil
}

// Resolve returns the address with the given ID when it belongs to the user
func (s *AddressService) Resolve(ctx context.Context, userID, addressID uuid.UUID) (*customer.Address, error) {
	return s.addressRepo.FindByIDForUser(ctx, userID, addressID)
}
