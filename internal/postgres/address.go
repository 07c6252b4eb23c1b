package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sokoni-labs/babyshop/internal/domain"
	"github.com/sokoni-labs/babyshop/internal/service"
)

const addressColumns = `id, user_id, label, contact_name, phone, line1, line2, city, county,
	postal_code, country, delivery_instructions, is_default_shipping, is_default_billing,
	created_at, updated_at`

func scanAddress(row pgx.Row) (*domain.Address, error) {
	var a domain.Address
	err := row.Scan(
		&a.ID, &a.UserID, &a.Label, &a.ContactName, &a.Phone, &a.Line1, &a.Line2, &a.City, &a.County,
		&a.PostalCode, &a.Country, &a.DeliveryInstructions, &a.IsDefaultShipping, &a.IsDefaultBilling,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAddressesByUser returns the user's address book, defaults first.
func (s *Store) ListAddressesByUser(ctx context.Context, userID uuid.UUID) ([]domain.Address, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+addressColumns+` FROM addresses WHERE user_id = $1
		ORDER BY is_default_shipping DESC, is_default_billing DESC, created_at DESC`, userID)
	if err != nil {
		return nil, domain.Internal(err, "address.list", "failed to list addresses")
	}
	defer rows.Close()

	var addresses []domain.Address
	for rows.Next() {
		address, err := scanAddress(rows)
		if err != nil {
			return nil, domain.Internal(err, "address.list", "failed to scan address")
		}
		addresses = append(addresses, *address)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "address.list", "failed to read addresses")
	}
	return addresses, nil
}

// GetAddressByID returns an address by id.
func (s *Store) GetAddressByID(ctx context.Context, addressID uuid.UUID) (*domain.Address, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+addressColumns+" FROM addresses WHERE id = $1", addressID)
	address, err := scanAddress(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrAddressNotFound
		}
		return nil, domain.Internal(err, "address.get", "failed to get address")
	}
	return address, nil
}

// CountAddressesByUser returns how many addresses the user has saved.
func (s *Store) CountAddressesByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	if err := s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM addresses WHERE user_id = $1", userID).Scan(&total); err != nil {
		return 0, domain.Internal(err, "address.count", "failed to count addresses")
	}
	return total, nil
}

// InsertAddress writes a new address and returns the stored row.
func (s *Store) InsertAddress(ctx context.Context, address *domain.Address) (*domain.Address, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO addresses (
			user_id, label, contact_name, phone, line1, line2, city, county,
			postal_code, country, delivery_instructions, is_default_shipping, is_default_billing
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+addressColumns,
		address.UserID, address.Label, address.ContactName, address.Phone, address.Line1,
		address.Line2, address.City, address.County, address.PostalCode, address.Country,
		address.DeliveryInstructions, address.IsDefaultShipping, address.IsDefaultBilling,
	)
	created, err := scanAddress(row)
	if err != nil {
		return nil, domain.Internal(err, "address.insert", "failed to insert address")
	}
	return created, nil
}

// UpdateAddress writes the address's mutable fields and returns the stored
// row.
func (s *Store) UpdateAddress(ctx context.Context, address *domain.Address) (*domain.Address, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE addresses SET
			label = $2, contact_name = $3, phone = $4, line1 = $5, line2 = $6,
			city = $7, county = $8, postal_code = $9, country = $10,
			delivery_instructions = $11, is_default_shipping = $12, is_default_billing = $13,
			updated_at = now()
		WHERE id = $1
		RETURNING `+addressColumns,
		address.ID,
		address.Label, address.ContactName, address.Phone, address.Line1, address.Line2,
		address.City, address.County, address.PostalCode, address.Country,
		address.DeliveryInstructions, address.IsDefaultShipping, address.IsDefaultBilling,
	)
	updated, err := scanAddress(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrAddressNotFound
		}
		return nil, domain.Internal(err, "address.update", "failed to update address")
	}
	return updated, nil
}

// DeleteAddress removes an address.
func (s *Store) DeleteAddress(ctx context.Context, addressID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM addresses WHERE id = $1", addressID)
	if err != nil {
		return domain.Internal(err, "address.delete", "failed to delete address")
	}
	if tag.RowsAffected() == 0 {
		return service.ErrAddressNotFound
	}
	return nil
}

// ClearDefaultShipping drops the user's current default shipping flag so
// another address can claim it.
func (s *Store) ClearDefaultShipping(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE addresses SET is_default_shipping = FALSE, updated_at = now()
		WHERE user_id = $1 AND is_default_shipping = TRUE`, userID)
	if err != nil {
		return domain.Internal(err, "address.clear_default", "failed to clear default shipping address")
	}
	return nil
}

// ClearDefaultBilling drops the user's current default billing flag so
// another address can claim it.
func (s *Store) ClearDefaultBilling(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE addresses SET is_default_billing = FALSE, updated_at = now()
		WHERE user_id = $1 AND is_default_billing = TRUE`, userID)
	if err != nil {
		return domain.Internal(err, "address.clear_default", "failed to clear default billing address")
	}
	return nil
}

// GetDefaultShippingAddress returns the user's default shipping address.
func (s *Store) GetDefaultShippingAddress(ctx context.Context, userID uuid.UUID) (*domain.Address, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+addressColumns+" FROM addresses WHERE user_id = $1 AND is_default_shipping = TRUE", userID)
	address, err := scanAddress(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrAddressNotFound
		}
		return nil, domain.Internal(err, "address.get_default", "failed to get default shipping address")
	}
	return address, nil
}

// GetDefaultBillingAddress returns the user's default billing address.
func (s *Store) GetDefaultBillingAddress(ctx context.Context, userID uuid.UUID) (*domain.Address, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+addressColumns+" FROM addresses WHERE user_id = $1 AND is_default_billing = TRUE", userID)
	address, err := scanAddress(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrAddressNotFound
		}
		return nil, domain.Internal(err, "address.get_default", "failed to get default billing address")
	}
	return address, nil
}
