package orders

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const pgUniqueViolation = "23505"

// Repo is the Postgres-backed store for products, customers and orders.
type Repo struct{ DB *pgxpool.Pool }

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// InTx runs fn in one transaction: commit kalau fn sukses, rollback kalau error.
func (r *Repo) InTx(ctx context.Context, fn TxFunc) error {
	return r.inTx(ctx, func(q querier) error { return fn(ctx, &pgTx{q: q}) })
}

func (r *Repo) inTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// pgTx implements Tx over a live pgx transaction.
type pgTx struct{ q querier }

func (t *pgTx) LockPayment(ctx context.Context, paymentID string) error {
	_, err := t.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, paymentID)
	return errors.Wrap(err, "lock payment")
}

func (t *pgTx) FindOrderByPaymentID(ctx context.Context, paymentID string) (*Order, error) {
	return findOrderByPaymentID(ctx, t.q, paymentID)
}

func (r *Repo) FindOrderByPaymentID(ctx context.Context, paymentID string) (*Order, error) {
	return findOrderByPaymentID(ctx, r.DB, paymentID)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func now() time.Time { return time.Now().UTC() }
