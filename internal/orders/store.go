package orders

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicatePayment  = errors.New("order already exists for payment")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Tx is the set of reads and writes a settlement performs. Every call made
// through one Tx commits or rolls back together.
type Tx interface {
	// LockPayment serializes transactions settling the same payment id
	// until the end of the transaction. It must be the first call.
	LockPayment(ctx context.Context, paymentID string) error
	FindOrderByPaymentID(ctx context.Context, paymentID string) (*Order, error)

	// StockLevels returns current stock keyed by SKU and locks the rows.
	// SKUs without a product are absent from the map.
	StockLevels(ctx context.Context, skus []string) (map[string]int, error)
	// DecrementStock applies stock -= qty only while stock >= qty.
	// It reports false when the precondition no longer holds.
	DecrementStock(ctx context.Context, sku string, qty int) (bool, error)

	FindCustomerByID(ctx context.Context, id string) (*Customer, error)
	FindCustomerByContact(ctx context.Context, email, phone string) (*Customer, error)
	CreateCustomer(ctx context.Context, c *Customer) error
	UpdateCustomerAddresses(ctx context.Context, customerID string, addrs []Address) error

	// InsertOrder returns ErrDuplicatePayment when an order for the same
	// payment id already exists.
	InsertOrder(ctx context.Context, o *Order) error
}

// TxFunc runs inside a transaction. Returning an error rolls it back.
type TxFunc func(ctx context.Context, tx Tx) error
