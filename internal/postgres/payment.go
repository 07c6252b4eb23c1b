package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sokoni-labs/babyshop/internal/domain"
	"github.com/sokoni-labs/babyshop/internal/service"
)

const paymentColumns = `id, seq, order_id, user_id, payment_reference, amount_cents, currency,
	status, gateway, method, gateway_reference, paid_at,
	error_code, error_message, gateway_message,
	refund_amount_cents, refund_reference, refund_reason, refunded_at,
	mobile_number, mobile_network, transaction_code, card_last4, card_brand,
	bank_name, account_name, account_number, description, remarks,
	created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.Seq, &p.OrderID, &p.UserID, &p.PaymentReference, &p.AmountCents, &p.Currency,
		&p.Status, &p.Gateway, &p.Method, &p.GatewayReference, &p.PaidAt,
		&p.ErrorCode, &p.ErrorMessage, &p.GatewayMessage,
		&p.RefundAmountCents, &p.RefundReference, &p.RefundReason, &p.RefundedAt,
		&p.MobileNumber, &p.MobileNetwork, &p.TransactionCode, &p.CardLast4, &p.CardBrand,
		&p.BankName, &p.AccountName, &p.AccountNumber, &p.Description, &p.Remarks,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPaymentByReference returns a payment by its public reference.
func (s *Store) GetPaymentByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE payment_reference = $1", reference)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrPaymentNotFound
		}
		return nil, domain.Internal(err, "payment.get", "failed to get payment by reference")
	}
	return payment, nil
}

// GetPaymentByReferenceForUpdate returns a payment locked for the rest of
// the transaction.
func (s *Store) GetPaymentByReferenceForUpdate(ctx context.Context, reference string) (*domain.Payment, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE payment_reference = $1 FOR UPDATE", reference)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrPaymentNotFound
		}
		return nil, domain.Internal(err, "payment.get_for_update", "failed to lock payment")
	}
	return payment, nil
}

// ListPaymentsByUser returns one page of the user's payments, newest first,
// plus the unpaged count.
func (s *Store) ListPaymentsByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Payment, int64, error) {
	var total int64
	if err := s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM payments WHERE user_id = $1", userID).Scan(&total); err != nil {
		return nil, 0, domain.Internal(err, "payment.list", "failed to count payments")
	}

	rows, err := s.db.Query(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE user_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3",
		userID, limit, offset)
	if err != nil {
		return nil, 0, domain.Internal(err, "payment.list", "failed to list payments")
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, 0, domain.Internal(err, "payment.list", "failed to scan payment")
		}
		payments = append(payments, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.Internal(err, "payment.list", "failed to read payments")
	}
	return payments, total, nil
}

// GetSuccessfulPaymentForOrder returns the order's settled payment, if any.
func (s *Store) GetSuccessfulPaymentForOrder(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE order_id = $1 AND status = $2 ORDER BY created_at DESC LIMIT 1",
		orderID, domain.PaymentSuccessful)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrPaymentNotFound
		}
		return nil, domain.Internal(err, "payment.get_successful", "failed to get successful payment")
	}
	return payment, nil
}

// InsertPayment writes a new payment. The insert sequence used for mobile
// money transaction codes comes back on the returned row.
func (s *Store) InsertPayment(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO payments (
			order_id, user_id, payment_reference, amount_cents, currency,
			status, gateway, method, mobile_number, mobile_network,
			description, remarks
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+paymentColumns,
		payment.OrderID, payment.UserID, payment.PaymentReference, payment.AmountCents, payment.Currency,
		payment.Status, payment.Gateway, payment.Method, payment.MobileNumber, payment.MobileNetwork,
		payment.Description, payment.Remarks,
	)
	created, err := scanPayment(row)
	if err != nil {
		if isUniqueViolation(err, "payments_payment_reference_key") {
			return nil, service.ErrDuplicatePaymentReference
		}
		return nil, domain.Internal(err, "payment.insert", "failed to insert payment")
	}
	return created, nil
}

// UpdatePayment writes the payment's mutable fields and returns the stored
// row.
func (s *Store) UpdatePayment(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE payments SET
			status = $2, gateway_reference = $3, paid_at = $4,
			error_code = $5, error_message = $6, gateway_message = $7,
			refund_amount_cents = $8, refund_reference = $9, refund_reason = $10,
			refunded_at = $11,
			mobile_number = $12, mobile_network = $13, transaction_code = $14,
			card_last4 = $15, card_brand = $16,
			bank_name = $17, account_name = $18, account_number = $19,
			remarks = $20,
			updated_at = now()
		WHERE id = $1
		RETURNING `+paymentColumns,
		payment.ID,
		payment.Status, payment.GatewayReference, payment.PaidAt,
		payment.ErrorCode, payment.ErrorMessage, payment.GatewayMessage,
		payment.RefundAmountCents, payment.RefundReference, payment.RefundReason,
		payment.RefundedAt,
		payment.MobileNumber, payment.MobileNetwork, payment.TransactionCode,
		payment.CardLast4, payment.CardBrand,
		payment.BankName, payment.AccountName, payment.AccountNumber,
		payment.Remarks,
	)
	updated, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrPaymentNotFound
		}
		return nil, domain.Internal(err, "payment.update", "failed to update payment")
	}
	return updated, nil
}

// ListMethodConfigs returns every configured payment method in display
// order. Callers decide what an amount or inactive flag rules out.
func (s *Store) ListMethodConfigs(ctx context.Context) ([]domain.PaymentMethodConfig, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, gateway, method_type, is_active, is_default, sort_order,
			display_name, description, icon, min_amount_cents, max_amount_cents,
			fee_percent_basis_points, fee_fixed_cents, supported_networks,
			instructions, created_at, updated_at
		FROM payment_method_configs
		ORDER BY sort_order, name`)
	if err != nil {
		return nil, domain.Internal(err, "payment.list_methods", "failed to list payment methods")
	}
	defer rows.Close()

	var configs []domain.PaymentMethodConfig
	for rows.Next() {
		var c domain.PaymentMethodConfig
		var networks []string
		err := rows.Scan(
			&c.ID, &c.Name, &c.Gateway, &c.MethodType, &c.IsActive, &c.IsDefault, &c.SortOrder,
			&c.DisplayName, &c.Description, &c.Icon, &c.MinAmountCents, &c.MaxAmountCents,
			&c.FeePercentBasisPoints, &c.FeeFixedCents, &networks,
			&c.Instructions, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, domain.Internal(err, "payment.list_methods", "failed to scan payment method")
		}
		c.SupportedNetworks = make([]domain.MobileNetwork, 0, len(networks))
		for _, network := range networks {
			c.SupportedNetworks = append(c.SupportedNetworks, domain.MobileNetwork(network))
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "payment.list_methods", "failed to read payment methods")
	}
	return configs, nil
}

// InsertWebhook stores a raw webhook delivery.
func (s *Store) InsertWebhook(ctx context.Context, webhook *domain.PaymentWebhook) (*domain.PaymentWebhook, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO payment_webhooks (gateway, event_type, payload, headers, source_ip, payment_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, gateway, event_type, payload, headers, source_ip,
			is_processed, processing_error, processed_at, payment_id, created_at`,
		webhook.Gateway, webhook.EventType, webhook.Payload, webhook.Headers, webhook.SourceIP, webhook.PaymentID,
	)
	var w domain.PaymentWebhook
	err := row.Scan(
		&w.ID, &w.Gateway, &w.EventType, &w.Payload, &w.Headers, &w.SourceIP,
		&w.IsProcessed, &w.ProcessingError, &w.ProcessedAt, &w.PaymentID, &w.CreatedAt,
	)
	if err != nil {
		return nil, domain.Internal(err, "payment.insert_webhook", "failed to insert webhook")
	}
	return &w, nil
}

// MarkWebhookProcessed stamps the webhook as handled, recording any
// processing error.
func (s *Store) MarkWebhookProcessed(ctx context.Context, webhookID uuid.UUID, processingError string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE payment_webhooks SET is_processed = TRUE, processing_error = $2, processed_at = now()
		WHERE id = $1`,
		webhookID, processingError)
	if err != nil {
		return domain.Internal(err, "payment.mark_webhook", "failed to mark webhook processed")
	}
	if tag.RowsAffected() == 0 {
		return service.ErrWebhookNotFound
	}
	return nil
}
