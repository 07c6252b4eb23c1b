package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sokoni-labs/babyshop/internal/service"
)

// DBTX is the query surface shared by the pool and an open transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements the service store interfaces on PostgreSQL. A Store
// bound to a transaction via WithTx runs every query inside it.
type Store struct {
	pool *pgxpool.Pool
	db   DBTX
}

// Compile-time checks that Store satisfies every service store surface.
var (
	_ service.CatalogStore  = (*Store)(nil)
	_ service.CartStore     = (*Store)(nil)
	_ service.OrderStore    = (*Store)(nil)
	_ service.CheckoutStore = (*Store)(nil)
	_ service.CheckoutTx    = (*Store)(nil)
	_ service.PaymentStore  = (*Store)(nil)
	_ service.PaymentTx     = (*Store)(nil)
	_ service.AddressStore  = (*Store)(nil)
	_ service.AddressTx     = (*Store)(nil)
)

// New creates a Store on the connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

// WithTx returns a Store that runs all queries inside tx.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	return &Store{pool: s.pool, db: tx}
}
