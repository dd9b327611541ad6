package settlement

import (
	"context"

	"github.com/ariefcatur/storefront-settlement/internal/orders"
	"github.com/pkg/errors"
)

// resolveCustomer finds or creates the buyer and makes sure the shipping
// address is saved at the front of their address list.
func resolveCustomer(ctx context.Context, tx orders.Tx, customerID string, addr orders.Address) (*orders.Customer, error) {
	var c *orders.Customer
	if customerID != "" {
		found, err := tx.FindCustomerByID(ctx, customerID)
		switch {
		case err == nil:
			c = found
		case !errors.Is(err, orders.ErrNotFound):
			return nil, err
		}
	}

	if c == nil {
		if addr.Email == "" && addr.Phone == "" {
			return nil, ErrCustomerValidation
		}
		found, err := tx.FindCustomerByContact(ctx, addr.Email, addr.Phone)
		switch {
		case err == nil:
			c = found
		case errors.Is(err, orders.ErrNotFound):
			c = &orders.Customer{
				FullName:  addr.FullName,
				Email:     addr.Email,
				Phone:     addr.Phone,
				Addresses: []orders.Address{addr},
			}
			if err := tx.CreateCustomer(ctx, c); err != nil {
				return nil, err
			}
			return c, nil
		default:
			return nil, err
		}
	}

	if addr != (orders.Address{}) && !c.HasAddress(addr) {
		c.Addresses = append([]orders.Address{addr}, c.Addresses...)
		if err := tx.UpdateCustomerAddresses(ctx, c.ID, c.Addresses); err != nil {
			return nil, err
		}
	}
	return c, nil
}
