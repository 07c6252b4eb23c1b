package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sokoni-labs/babyshop/internal/domain"
)

// AddressService manages a user's saved delivery addresses. Default flags
// are unique per user; every write that sets one clears the previous
// holder in the same transaction.
type AddressService interface {
	// ListAddresses returns the user's addresses, defaults first.
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]domain.Address, error)

	// GetAddress returns one of the user's addresses.
	GetAddress(ctx context.Context, userID, addressID uuid.UUID) (*domain.Address, error)

	// CreateAddress saves a new address. The user's first address becomes
	// the default shipping and billing address automatically.
	CreateAddress(ctx context.Context, userID uuid.UUID, input AddressInput) (*domain.Address, error)

	// UpdateAddress replaces an address the user owns.
	UpdateAddress(ctx context.Context, userID, addressID uuid.UUID, input AddressInput) (*domain.Address, error)

	// DeleteAddress removes an address the user owns. Orders keep their
	// own copies, so deleting never touches order history.
	DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error

	// SetDefault marks the address as the user's default for shipping,
	// billing or both.
	SetDefault(ctx context.Context, userID, addressID uuid.UUID, input SetDefaultInput) (*domain.Address, error)
}

// AddressInput carries the writable address fields.
type AddressInput struct {
	Label domain.AddressLabel

	ContactName string
	Phone       string
	Line1       string
	Line2       string
	City        string
	County      string
	PostalCode  string
	Country     string

	DeliveryInstructions string

	IsDefaultShipping bool
	IsDefaultBilling  bool
}

// SetDefaultInput selects which default flags to claim.
type SetDefaultInput struct {
	Shipping bool
	Billing  bool
}

// AddressStore is the address persistence the service needs.
type AddressStore interface {
	ListAddressesByUser(ctx context.Context, userID uuid.UUID) ([]domain.Address, error)
	GetAddressByID(ctx context.Context, addressID uuid.UUID) (*domain.Address, error)
	CountAddressesByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteAddress(ctx context.Context, addressID uuid.UUID) error

	// InAddressTx runs fn against stores bound to one transaction,
	// committing when fn returns nil.
	InAddressTx(ctx context.Context, fn func(AddressTx) error) error
}

// AddressTx is the transactional view default-flag writes run against.
type AddressTx interface {
	GetAddressByID(ctx context.Context, addressID uuid.UUID) (*domain.Address, error)
	InsertAddress(ctx context.Context, address *domain.Address) (*domain.Address, error)
	UpdateAddress(ctx context.Context, address *domain.Address) (*domain.Address, error)
	ClearDefaultShipping(ctx context.Context, userID uuid.UUID) error
	ClearDefaultBilling(ctx context.Context, userID uuid.UUID) error
}

type addressService struct {
	store AddressStore
}

// NewAddressService creates a new address service.
func NewAddressService(store AddressStore) AddressService {
	return &addressService{store: store}
}

func (s *addressService) ListAddresses(ctx context.Context, userID uuid.UUID) ([]domain.Address, error) {
	addresses, err := s.store.ListAddressesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	return addresses, nil
}

func (s *addressService) GetAddress(ctx context.Context, userID, addressID uuid.UUID) (*domain.Address, error) {
	return s.ownedAddress(ctx, userID, addressID)
}

func (s *addressService) CreateAddress(ctx context.Context, userID uuid.UUID, input AddressInput) (*domain.Address, error) {
	address, err := buildAddress(userID, input)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.CountAddressesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count addresses: %w", err)
	}
	if existing == 0 {
		address.IsDefaultShipping = true
		address.IsDefaultBilling = true
	}

	var created *domain.Address
	err = s.store.InAddressTx(ctx, func(tx AddressTx) error {
		if err := s.claimDefaults(ctx, tx, userID, address.IsDefaultShipping, address.IsDefaultBilling); err != nil {
			return err
		}
		created, err = tx.InsertAddress(ctx, address)
		if err != nil {
			return fmt.Errorf("failed to insert address: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *addressService) UpdateAddress(ctx context.Context, userID, addressID uuid.UUID, input AddressInput) (*domain.Address, error) {
	if _, err := s.ownedAddress(ctx, userID, addressID); err != nil {
		return nil, err
	}

	address, err := buildAddress(userID, input)
	if err != nil {
		return nil, err
	}
	address.ID = addressID

	var updated *domain.Address
	err = s.store.InAddressTx(ctx, func(tx AddressTx) error {
		current, err := tx.GetAddressByID(ctx, addressID)
		if err != nil {
			return fmt.Errorf("failed to get address: %w", err)
		}

		// A default flag can only be claimed here, not dropped; clearing
		// happens implicitly when another address claims it.
		address.IsDefaultShipping = address.IsDefaultShipping || current.IsDefaultShipping
		address.IsDefaultBilling = address.IsDefaultBilling || current.IsDefaultBilling

		claimShipping := address.IsDefaultShipping && !current.IsDefaultShipping
		claimBilling := address.IsDefaultBilling && !current.IsDefaultBilling
		if err := s.claimDefaults(ctx, tx, userID, claimShipping, claimBilling); err != nil {
			return err
		}

		updated, err = tx.UpdateAddress(ctx, address)
		if err != nil {
			return fmt.Errorf("failed to update address: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *addressService) DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	if _, err := s.ownedAddress(ctx, userID, addressID); err != nil {
		return err
	}
	if err := s.store.DeleteAddress(ctx, addressID); err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	return nil
}

func (s *addressService) SetDefault(ctx context.Context, userID, addressID uuid.UUID, input SetDefaultInput) (*domain.Address, error) {
	if !input.Shipping && !input.Billing {
		return nil, domain.Invalid("address.set_default", "select shipping, billing or both")
	}

	if _, err := s.ownedAddress(ctx, userID, addressID); err != nil {
		return nil, err
	}

	var updated *domain.Address
	err := s.store.InAddressTx(ctx, func(tx AddressTx) error {
		address, err := tx.GetAddressByID(ctx, addressID)
		if err != nil {
			return fmt.Errorf("failed to get address: %w", err)
		}

		if err := s.claimDefaults(ctx, tx, userID, input.Shipping, input.Billing); err != nil {
			return err
		}

		if input.Shipping {
			address.IsDefaultShipping = true
		}
		if input.Billing {
			address.IsDefaultBilling = true
		}

		updated, err = tx.UpdateAddress(ctx, address)
		if err != nil {
			return fmt.Errorf("failed to update address: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// claimDefaults clears the user's current default holders for the flags
// being claimed so the unique partial indexes never collide.
func (s *addressService) claimDefaults(ctx context.Context, tx AddressTx, userID uuid.UUID, shipping, billing bool) error {
	if shipping {
		if err := tx.ClearDefaultShipping(ctx, userID); err != nil {
			return fmt.Errorf("failed to clear default shipping: %w", err)
		}
	}
	if billing {
		if err := tx.ClearDefaultBilling(ctx, userID); err != nil {
			return fmt.Errorf("failed to clear default billing: %w", err)
		}
	}
	return nil
}

func (s *addressService) ownedAddress(ctx context.Context, userID, addressID uuid.UUID) (*domain.Address, error) {
	address, err := s.store.GetAddressByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, ErrAddressNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to get address: %w", err)
	}
	if address.UserID != userID {
		return nil, ErrAddressNotFound
	}
	return address, nil
}

func buildAddress(userID uuid.UUID, input AddressInput) (*domain.Address, error) {
	label := input.Label
	if label == "" {
		label = domain.AddressHome
	}
	if !label.Valid() {
		return nil, domain.Invalid("address", fmt.Sprintf("unknown address label: %s", label))
	}

	country := input.Country
	if country == "" {
		country = "KE"
	}

	return &domain.Address{
		UserID:               userID,
		Label:                label,
		ContactName:          input.ContactName,
		Phone:                input.Phone,
		Line1:                input.Line1,
		Line2:                input.Line2,
		City:                 input.City,
		County:               input.County,
		PostalCode:           input.PostalCode,
		Country:              country,
		DeliveryInstructions: input.DeliveryInstructions,
		IsDefaultShipping:    input.IsDefaultShipping,
		IsDefaultBilling:     input.IsDefaultBilling,
	}, nil
}
