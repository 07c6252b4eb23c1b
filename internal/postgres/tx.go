package postgres

import (
	"context"
	"fmt"

	"github.com/sokoni-labs/babyshop/internal/service"
)

// inTx runs fn against a Store bound to a fresh transaction, committing
// when fn returns nil and rolling back otherwise.
func (s *Store) inTx(ctx context.Context, fn func(*Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(s.WithTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InCheckoutTx runs a checkout under one transaction.
func (s *Store) InCheckoutTx(ctx context.Context, fn func(service.CheckoutTx) error) error {
	return s.inTx(ctx, func(tx *Store) error { return fn(tx) })
}

// InPaymentTx runs a payment status write under one transaction.
func (s *Store) InPaymentTx(ctx context.Context, fn func(service.PaymentTx) error) error {
	return s.inTx(ctx, func(tx *Store) error { return fn(tx) })
}

// InAddressTx runs an address default-flag write under one transaction.
func (s *Store) InAddressTx(ctx context.Context, fn func(service.AddressTx) error) error {
	return s.inTx(ctx, func(tx *Store) error { return fn(tx) })
}
