package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sokoni-labs/babyshop/internal/domain"
	"github.com/sokoni-labs/babyshop/internal/service"
)

func scanCart(row pgx.Row) (*domain.Cart, error) {
	var c domain.Cart
	if err := row.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCartByUserID returns the user's cart.
func (s *Store) GetCartByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	row := s.db.QueryRow(ctx,
		"SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1", userID)
	cart, err := scanCart(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCartNotFound
		}
		return nil, domain.Internal(err, "cart.get", "failed to get cart")
	}
	return cart, nil
}

// GetCartByUserIDForUpdate returns the user's cart locked for the rest of
// the transaction, serializing concurrent checkouts of the same cart.
func (s *Store) GetCartByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	row := s.db.QueryRow(ctx,
		"SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1 FOR UPDATE", userID)
	cart, err := scanCart(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCartNotFound
		}
		return nil, domain.Internal(err, "cart.get_for_update", "failed to lock cart")
	}
	return cart, nil
}

// CreateCart creates the user's cart, returning the existing one when a
// concurrent request created it first.
func (s *Store) CreateCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
		RETURNING id, user_id, created_at, updated_at`, userID)
	cart, err := scanCart(row)
	if err != nil {
		return nil, domain.Internal(err, "cart.create", "failed to create cart")
	}
	return cart, nil
}

// TouchCart bumps the cart's updated_at.
func (s *Store) TouchCart(ctx context.Context, cartID uuid.UUID) error {
	if _, err := s.db.Exec(ctx, "UPDATE carts SET updated_at = now() WHERE id = $1", cartID); err != nil {
		return domain.Internal(err, "cart.touch", "failed to touch cart")
	}
	return nil
}

// cartItemSelect joins the product and variant so each line carries its
// resolved display fields and current unit price.
const cartItemSelect = `
	SELECT ci.id, ci.cart_id, ci.product_id, ci.variant_id, ci.quantity, ci.size, ci.color,
		p.name, p.slug, p.product_code, p.gender, p.age_range,
		(p.is_new OR p.is_featured OR p.is_bestseller
			OR (p.compare_at_price_cents IS NOT NULL AND p.compare_at_price_cents > p.price_cents)),
		p.image_url,
		p.price_cents + COALESCE(v.price_adjustment_cents, 0),
		ci.created_at, ci.updated_at
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
	LEFT JOIN product_variants v ON v.id = ci.variant_id`

func scanCartItem(row pgx.Row) (*domain.CartItem, error) {
	var i domain.CartItem
	err := row.Scan(
		&i.ID, &i.CartID, &i.ProductID, &i.VariantID, &i.Quantity, &i.Size, &i.Color,
		&i.ProductName, &i.ProductSlug, &i.ProductCode, &i.Gender, &i.AgeRange,
		&i.GiftSuitable, &i.ImageURL, &i.UnitPriceCents,
		&i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// ListCartItems returns the cart's lines oldest first.
func (s *Store) ListCartItems(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	rows, err := s.db.Query(ctx, cartItemSelect+" WHERE ci.cart_id = $1 ORDER BY ci.created_at, ci.id", cartID)
	if err != nil {
		return nil, domain.Internal(err, "cart.list_items", "failed to list cart items")
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, domain.Internal(err, "cart.list_items", "failed to scan cart item")
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "cart.list_items", "failed to read cart items")
	}
	return items, nil
}

// GetCartItemByID returns a single cart line.
func (s *Store) GetCartItemByID(ctx context.Context, itemID uuid.UUID) (*domain.CartItem, error) {
	row := s.db.QueryRow(ctx, cartItemSelect+" WHERE ci.id = $1", itemID)
	item, err := scanCartItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCartItemNotFound
		}
		return nil, domain.Internal(err, "cart.get_item", "failed to get cart item")
	}
	return item, nil
}

// FindCartItem locates the line matching the merge key (product, variant,
// size, color) within a cart.
func (s *Store) FindCartItem(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID, size, color string) (*domain.CartItem, error) {
	row := s.db.QueryRow(ctx, cartItemSelect+`
		WHERE ci.cart_id = $1 AND ci.product_id = $2
		AND ci.variant_id IS NOT DISTINCT FROM $3
		AND ci.size = $4 AND ci.color = $5`,
		cartID, productID, variantID, size, color)
	item, err := scanCartItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCartItemNotFound
		}
		return nil, domain.Internal(err, "cart.find_item", "failed to find cart item")
	}
	return item, nil
}

// InsertCartItem adds a line to a cart and returns it resolved.
func (s *Store) InsertCartItem(ctx context.Context, item *domain.CartItem) (*domain.CartItem, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx, `
		INSERT INTO cart_items (cart_id, product_id, variant_id, quantity, size, color)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		item.CartID, item.ProductID, item.VariantID, item.Quantity, item.Size, item.Color,
	).Scan(&id)
	if err != nil {
		return nil, domain.Internal(err, "cart.insert_item", "failed to insert cart item")
	}
	return s.GetCartItemByID(ctx, id)
}

// UpdateCartItemQuantity sets a line's quantity and returns it resolved.
func (s *Store) UpdateCartItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int32) (*domain.CartItem, error) {
	tag, err := s.db.Exec(ctx,
		"UPDATE cart_items SET quantity = $2, updated_at = now() WHERE id = $1", itemID, quantity)
	if err != nil {
		return nil, domain.Internal(err, "cart.update_quantity", "failed to update cart item")
	}
	if tag.RowsAffected() == 0 {
		return nil, service.ErrCartItemNotFound
	}
	return s.GetCartItemByID(ctx, itemID)
}

// DeleteCartItem removes a line.
func (s *Store) DeleteCartItem(ctx context.Context, itemID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM cart_items WHERE id = $1", itemID)
	if err != nil {
		return domain.Internal(err, "cart.delete_item", "failed to delete cart item")
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCartItemNotFound
	}
	return nil
}

// ClearCartItems removes every line in the cart.
func (s *Store) ClearCartItems(ctx context.Context, cartID uuid.UUID) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID); err != nil {
		return domain.Internal(err, "cart.clear", "failed to clear cart")
	}
	return nil
}
