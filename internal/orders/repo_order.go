package orders

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const orderColumns = `id, order_number, COALESCE(customer_id::text, ''), address, items,
	subtotal_minor, tax_minor, total_minor, status,
	gateway_order_id, payment_id, signature, amount_minor, currency,
	created_at, updated_at`

func findOrderByPaymentID(ctx context.Context, q querier, paymentID string) (*Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_id = $1`, paymentID))
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	addr, err := json.Marshal(o.Address)
	if err != nil {
		return errors.Wrap(err, "encode address")
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "encode items")
	}
	ts := now()
	_, err = t.q.Exec(ctx, `
		INSERT INTO orders(id, order_number, customer_id, address, items,
			subtotal_minor, tax_minor, total_minor, status,
			gateway_order_id, payment_id, signature, amount_minor, currency,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$15)`,
		o.ID, o.OrderNumber, o.CustomerID, addr, items,
		o.SubtotalMinor, o.TaxMinor, o.TotalMinor, string(o.Status),
		o.Payment.GatewayOrderID, o.Payment.PaymentID, o.Payment.Signature, o.Payment.AmountMinor, o.Payment.Currency,
		ts)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePayment
		}
		return errors.Wrap(err, "insert order")
	}
	o.CreatedAt, o.UpdatedAt = ts, ts
	return nil
}

// GetOrder looks an order up by id, falling back to the order number.
func (r *Repo) GetOrder(ctx context.Context, ref string) (*Order, error) {
	if _, err := uuid.Parse(ref); err == nil {
		o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, ref))
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrap(err, "get order by id")
		}
	}
	o, err := scanOrder(r.DB.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE order_number = $1
		ORDER BY created_at DESC LIMIT 1`, ref))
	if err != nil {
		return nil, errors.Wrap(notFound(err), "get order by number")
	}
	return o, nil
}

// MarkPaidByPaymentID moves a pending order to paid. updated is false when the
// order was already past pending, which makes repeated captures a no-op.
func (r *Repo) MarkPaidByPaymentID(ctx context.Context, paymentID string) (o *Order, updated bool, err error) {
	o, err = scanOrder(r.DB.QueryRow(ctx, `
		UPDATE orders SET status = 'paid', updated_at = now()
		WHERE payment_id = $1 AND status = 'pending'
		RETURNING `+orderColumns, paymentID))
	if err == nil {
		return o, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, errors.Wrap(err, "mark paid")
	}
	o, err = findOrderByPaymentID(ctx, r.DB, paymentID)
	if err != nil {
		return nil, false, err
	}
	return o, false, nil
}

// UpdateStatus applies an admin transition guarded by CanTransition.
func (r *Repo) UpdateStatus(ctx context.Context, orderID string, to Status) (*Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrNotFound
	}
	var out *Order
	err := r.inTx(ctx, func(q querier) error {
		var cur string
		if err := q.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&cur); err != nil {
			return notFound(err)
		}
		if !CanTransition(Status(cur), to) {
			return errors.Wrapf(ErrInvalidTransition, "%s -> %s", cur, to)
		}
		o, err := scanOrder(q.QueryRow(ctx, `
			UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
			RETURNING `+orderColumns, orderID, string(to)))
		if err != nil {
			return errors.Wrap(err, "update status")
		}
		out = o
		return nil
	})
	return out, err
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o      Order
		addr   []byte
		items  []byte
		status string
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &addr, &items,
		&o.SubtotalMinor, &o.TaxMinor, &o.TotalMinor, &status,
		&o.Payment.GatewayOrderID, &o.Payment.PaymentID, &o.Payment.Signature, &o.Payment.AmountMinor, &o.Payment.Currency,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	if len(addr) > 0 {
		if err := json.Unmarshal(addr, &o.Address); err != nil {
			return nil, errors.Wrap(err, "decode address")
		}
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, errors.Wrap(err, "decode items")
		}
	}
	return &o, nil
}
