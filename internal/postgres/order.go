package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sokoni-labs/babyshop/internal/domain"
	"github.com/sokoni-labs/babyshop/internal/service"
)

const orderColumns = `id, order_number, user_id, status, payment_status, payment_method,
	payment_reference, payment_date, shipping_method, shipping_address_id,
	shipping_contact_name, shipping_phone, shipping_line1, shipping_line2,
	shipping_city, shipping_county, shipping_postal_code,
	billing_same_as_shipping, billing_contact_name, billing_phone, billing_line1,
	billing_line2, billing_city, billing_county, billing_postal_code,
	subtotal_cents, shipping_cost_cents, tax_cents, discount_cents,
	gift_wrap_fee_cents, total_cents,
	customer_notes, is_gift, gift_message, gift_wrapping,
	tracking_number, carrier,
	confirmed_at, processed_at, shipped_at, delivered_at, cancelled_at,
	created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.PaymentReference, &o.PaymentDate, &o.ShippingMethod, &o.ShippingAddressID,
		&o.ShippingContactName, &o.ShippingPhone, &o.ShippingLine1, &o.ShippingLine2,
		&o.ShippingCity, &o.ShippingCounty, &o.ShippingPostalCode,
		&o.BillingSameAsShipping, &o.BillingContactName, &o.BillingPhone, &o.BillingLine1,
		&o.BillingLine2, &o.BillingCity, &o.BillingCounty, &o.BillingPostalCode,
		&o.SubtotalCents, &o.ShippingCostCents, &o.TaxCents, &o.DiscountCents,
		&o.GiftWrapFeeCents, &o.TotalCents,
		&o.CustomerNotes, &o.IsGift, &o.GiftMessage, &o.GiftWrapping,
		&o.TrackingNumber, &o.Carrier,
		&o.ConfirmedAt, &o.ProcessedAt, &o.ShippedAt, &o.DeliveredAt, &o.CancelledAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrderByNumber returns an order by its public number.
func (s *Store) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE order_number = $1", orderNumber)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrOrderNotFound
		}
		return nil, domain.Internal(err, "order.get", "failed to get order by number")
	}
	return order, nil
}

// GetOrderByIDForUpdate returns an order locked for the rest of the
// transaction.
func (s *Store) GetOrderByIDForUpdate(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", orderID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrOrderNotFound
		}
		return nil, domain.Internal(err, "order.get_for_update", "failed to lock order")
	}
	return order, nil
}

// ListOrdersByUser returns one page of the user's orders, newest first,
// plus the unpaged count.
func (s *Store) ListOrdersByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Order, int64, error) {
	var total int64
	if err := s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM orders WHERE user_id = $1", userID).Scan(&total); err != nil {
		return nil, 0, domain.Internal(err, "order.list", "failed to count orders")
	}

	rows, err := s.db.Query(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3",
		userID, limit, offset)
	if err != nil {
		return nil, 0, domain.Internal(err, "order.list", "failed to list orders")
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, domain.Internal(err, "order.list", "failed to scan order")
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.Internal(err, "order.list", "failed to read orders")
	}
	return orders, total, nil
}

// InsertOrder writes a new order. A colliding order number inserts nothing
// and reports the collision so the caller can retry with a fresh number
// without aborting the surrounding transaction.
func (s *Store) InsertOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO orders (
			order_number, user_id, status, payment_status, payment_method,
			payment_reference, payment_date, shipping_method, shipping_address_id,
			shipping_contact_name, shipping_phone, shipping_line1, shipping_line2,
			shipping_city, shipping_county, shipping_postal_code,
			billing_same_as_shipping, billing_contact_name, billing_phone, billing_line1,
			billing_line2, billing_city, billing_county, billing_postal_code,
			subtotal_cents, shipping_cost_cents, tax_cents, discount_cents,
			gift_wrap_fee_cents, total_cents,
			customer_notes, is_gift, gift_message, gift_wrapping,
			tracking_number, carrier
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
			$31, $32, $33, $34, $35, $36
		)
		ON CONFLICT (order_number) DO NOTHING
		RETURNING `+orderColumns,
		order.OrderNumber, order.UserID, order.Status, order.PaymentStatus, order.PaymentMethod,
		order.PaymentReference, order.PaymentDate, order.ShippingMethod, order.ShippingAddressID,
		order.ShippingContactName, order.ShippingPhone, order.ShippingLine1, order.ShippingLine2,
		order.ShippingCity, order.ShippingCounty, order.ShippingPostalCode,
		order.BillingSameAsShipping, order.BillingContactName, order.BillingPhone, order.BillingLine1,
		order.BillingLine2, order.BillingCity, order.BillingCounty, order.BillingPostalCode,
		order.SubtotalCents, order.ShippingCostCents, order.TaxCents, order.DiscountCents,
		order.GiftWrapFeeCents, order.TotalCents,
		order.CustomerNotes, order.IsGift, order.GiftMessage, order.GiftWrapping,
		order.TrackingNumber, order.Carrier,
	)
	created, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrDuplicateOrderNumber
		}
		return nil, domain.Internal(err, "order.insert", "failed to insert order")
	}
	return created, nil
}

// UpdateOrder writes the order's mutable fields and returns the stored row.
func (s *Store) UpdateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE orders SET
			status = $2, payment_status = $3, payment_method = $4,
			payment_reference = $5, payment_date = $6,
			subtotal_cents = $7, shipping_cost_cents = $8, tax_cents = $9,
			discount_cents = $10, gift_wrap_fee_cents = $11, total_cents = $12,
			customer_notes = $13, tracking_number = $14, carrier = $15,
			confirmed_at = $16, processed_at = $17, shipped_at = $18,
			delivered_at = $19, cancelled_at = $20,
			updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns,
		order.ID,
		order.Status, order.PaymentStatus, order.PaymentMethod,
		order.PaymentReference, order.PaymentDate,
		order.SubtotalCents, order.ShippingCostCents, order.TaxCents,
		order.DiscountCents, order.GiftWrapFeeCents, order.TotalCents,
		order.CustomerNotes, order.TrackingNumber, order.Carrier,
		order.ConfirmedAt, order.ProcessedAt, order.ShippedAt,
		order.DeliveredAt, order.CancelledAt,
	)
	updated, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrOrderNotFound
		}
		return nil, domain.Internal(err, "order.update", "failed to update order")
	}
	return updated, nil
}

const orderItemColumns = `id, order_id, product_id, product_name, product_code, size, color,
	color_code, gender, age_range, unit_price_cents, quantity, total_cents, created_at`

func scanOrderItem(row pgx.Row) (*domain.OrderItem, error) {
	var i domain.OrderItem
	err := row.Scan(
		&i.ID, &i.OrderID, &i.ProductID, &i.ProductName, &i.ProductCode, &i.Size, &i.Color,
		&i.ColorCode, &i.Gender, &i.AgeRange, &i.UnitPriceCents, &i.Quantity, &i.TotalCents,
		&i.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// ListOrderItems returns the order's line items.
func (s *Store) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+orderItemColumns+" FROM order_items WHERE order_id = $1 ORDER BY created_at, id", orderID)
	if err != nil {
		return nil, domain.Internal(err, "order.list_items", "failed to list order items")
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		item, err := scanOrderItem(rows)
		if err != nil {
			return nil, domain.Internal(err, "order.list_items", "failed to scan order item")
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "order.list_items", "failed to read order items")
	}
	return items, nil
}

// InsertOrderItems writes the order's line items and returns them with ids.
func (s *Store) InsertOrderItems(ctx context.Context, items []domain.OrderItem) ([]domain.OrderItem, error) {
	inserted := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		row := s.db.QueryRow(ctx, `
			INSERT INTO order_items (
				order_id, product_id, product_name, product_code, size, color,
				color_code, gender, age_range, unit_price_cents, quantity, total_cents
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING `+orderItemColumns,
			item.OrderID, item.ProductID, item.ProductName, item.ProductCode, item.Size, item.Color,
			item.ColorCode, item.Gender, item.AgeRange, item.UnitPriceCents, item.Quantity, item.TotalCents,
		)
		created, err := scanOrderItem(row)
		if err != nil {
			return nil, domain.Internal(err, "order.insert_items", "failed to insert order item")
		}
		inserted = append(inserted, *created)
	}
	return inserted, nil
}

// DecrementProductStock subtracts quantity from the product's stock,
// refusing to go negative, and keeps the stored availability in step.
func (s *Store) DecrementProductStock(ctx context.Context, productID uuid.UUID, quantity int32) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE products SET
			stock_quantity = stock_quantity - $2,
			availability = CASE
				WHEN stock_quantity - $2 > low_stock_threshold THEN 'in_stock'
				WHEN stock_quantity - $2 > 0 THEN 'low_stock'
				ELSE 'out_of_stock'
			END,
			updated_at = now()
		WHERE id = $1 AND stock_quantity >= $2`,
		productID, quantity)
	if err != nil {
		return domain.Internal(err, "order.decrement_stock", "failed to decrement product stock")
	}
	if tag.RowsAffected() == 0 {
		return service.ErrInsufficientStock
	}
	return nil
}

// DecrementVariantStock subtracts quantity from the variant's stock,
// refusing to go negative.
func (s *Store) DecrementVariantStock(ctx context.Context, variantID uuid.UUID, quantity int32) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE product_variants SET
			stock_quantity = stock_quantity - $2,
			updated_at = now()
		WHERE id = $1 AND stock_quantity >= $2`,
		variantID, quantity)
	if err != nil {
		return domain.Internal(err, "order.decrement_stock", "failed to decrement variant stock")
	}
	if tag.RowsAffected() == 0 {
		return service.ErrInsufficientStock
	}
	return nil
}
