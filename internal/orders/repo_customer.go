package orders

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const customerColumns = `id, full_name, COALESCE(email, ''), COALESCE(phone, ''), addresses, created_at, updated_at`

func (t *pgTx) FindCustomerByID(ctx context.Context, id string) (*Customer, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	c, err := scanCustomer(t.q.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, errors.Wrap(notFound(err), "find customer by id")
	}
	return c, nil
}

// FindCustomerByContact matches on email OR phone. Empty values never match.
// The oldest match wins so repeat buyers keep converging on one record.
func (t *pgTx) FindCustomerByContact(ctx context.Context, email, phone string) (*Customer, error) {
	if email == "" && phone == "" {
		return nil, ErrNotFound
	}
	c, err := scanCustomer(t.q.QueryRow(ctx, `
		SELECT `+customerColumns+` FROM customers
		WHERE ($1 <> '' AND email = $1) OR ($2 <> '' AND phone = $2)
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE`, email, phone))
	if err != nil {
		return nil, errors.Wrap(notFound(err), "find customer by contact")
	}
	return c, nil
}

func (t *pgTx) CreateCustomer(ctx context.Context, c *Customer) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	addrs, err := json.Marshal(nonNilAddresses(c.Addresses))
	if err != nil {
		return errors.Wrap(err, "encode addresses")
	}
	ts := now()
	_, err = t.q.Exec(ctx, `
		INSERT INTO customers(id, full_name, email, phone, addresses, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $6)`,
		c.ID, c.FullName, c.Email, c.Phone, addrs, ts)
	if err != nil {
		return errors.Wrap(err, "insert customer")
	}
	c.CreatedAt, c.UpdatedAt = ts, ts
	return nil
}

func (t *pgTx) UpdateCustomerAddresses(ctx context.Context, customerID string, addrs []Address) error {
	b, err := json.Marshal(nonNilAddresses(addrs))
	if err != nil {
		return errors.Wrap(err, "encode addresses")
	}
	ct, err := t.q.Exec(ctx, `UPDATE customers SET addresses = $2, updated_at = now() WHERE id = $1`, customerID, b)
	if err != nil {
		return errors.Wrap(err, "update customer addresses")
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func scanCustomer(row interface{ Scan(...any) error }) (*Customer, error) {
	var c Customer
	var addrs []byte
	if err := row.Scan(&c.ID, &c.FullName, &c.Email, &c.Phone, &addrs, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if len(addrs) > 0 {
		if err := json.Unmarshal(addrs, &c.Addresses); err != nil {
			return nil, errors.Wrap(err, "decode addresses")
		}
	}
	return &c, nil
}

func nonNilAddresses(a []Address) []Address {
	if a == nil {
		return []Address{}
	}
	return a
}
