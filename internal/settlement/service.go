// Package settlement turns a captured payment confirmation into a persisted,
// stock-adjusted order.
//
// The idempotency check, stock reservation, customer upsert and order insert
// share one storage transaction. Notification runs only after commit.
package settlement

import (
	"context"
	"log/slog"

	"github.com/ariefcatur/storefront-settlement/internal/orders"
	"github.com/pkg/errors"
)

const defaultCurrency = "INR"

type Store interface {
	InTx(ctx context.Context, fn orders.TxFunc) error
	FindOrderByPaymentID(ctx context.Context, paymentID string) (*orders.Order, error)
}

type SignatureVerifier interface {
	VerifyCheckout(gatewayOrderID, paymentID, signature string) bool
}

// Notifier is told about freshly committed orders. It must not block and
// reports whether a confirmation email was queued.
type Notifier interface {
	OrderSettled(ctx context.Context, o *orders.Order) (emailQueued bool)
}

// ReplayCache remembers committed results by payment id.
type ReplayCache interface {
	Get(ctx context.Context, paymentID string) (Result, bool)
	Put(ctx context.Context, paymentID string, res Result)
}

type Service struct {
	Store    Store
	Verifier SignatureVerifier
	Notifier Notifier    // optional
	Cache    ReplayCache // optional
	Log      *slog.Logger

	// VerifyTotals rejects requests whose totals disagree with their items
	// or with the gateway amount.
	VerifyTotals bool
}

// Settle verifies the confirmation and settles it exactly once per payment id.
func (s *Service) Settle(ctx context.Context, req Request) (Result, error) {
	log := s.logger().With("payment_id", req.PaymentID, "gateway_order_id", req.GatewayOrderID)

	if err := req.validate(); err != nil {
		return Result{}, err
	}
	if !s.Verifier.VerifyCheckout(req.GatewayOrderID, req.PaymentID, req.Signature) {
		log.Warn("payment signature rejected")
		return Result{}, ErrInvalidSignature
	}
	if s.VerifyTotals {
		if err := checkTotals(req); err != nil {
			return Result{}, err
		}
	}

	if s.Cache != nil {
		if _, ok := s.Cache.Get(ctx, req.PaymentID); ok {
			// cache hit hanya dipercaya kalau order-nya masih ada di DB
			if existing, err := s.Store.FindOrderByPaymentID(ctx, req.PaymentID); err == nil {
				return replayResult(existing), nil
			}
		}
	}

	var (
		order    *orders.Order
		replayed bool
	)
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		order, replayed = nil, false

		if err := tx.LockPayment(ctx, req.PaymentID); err != nil {
			return err
		}
		existing, err := tx.FindOrderByPaymentID(ctx, req.PaymentID)
		if err == nil {
			order, replayed = existing, true
			return nil
		}
		if !errors.Is(err, orders.ErrNotFound) {
			return errors.Wrap(err, "idempotency lookup")
		}

		if err := reserveStock(ctx, tx, req.Items); err != nil {
			return err
		}
		cust, err := resolveCustomer(ctx, tx, req.CustomerID, req.Address)
		if err != nil {
			return err
		}
		o := buildOrder(req, cust)
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})

	if errors.Is(err, orders.ErrDuplicatePayment) {
		// a concurrent request with the same payment id committed first
		existing, ferr := s.Store.FindOrderByPaymentID(ctx, req.PaymentID)
		if ferr != nil {
			return Result{}, &StorageError{Err: ferr}
		}
		order, replayed, err = existing, true, nil
	}
	if err != nil && isDomainError(err) {
		// a twin may have committed while we were rejected
		if existing, ferr := s.Store.FindOrderByPaymentID(ctx, req.PaymentID); ferr == nil {
			order, replayed, err = existing, true, nil
		}
	}
	if err != nil {
		if isDomainError(err) {
			log.Info("settlement rejected", "err", err)
			return Result{}, err
		}
		log.Error("settlement transaction failed", "err", err)
		return Result{}, &StorageError{Err: err}
	}

	res := Result{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		Replayed:    replayed,
	}
	if s.Cache != nil {
		s.Cache.Put(ctx, req.PaymentID, res)
	}
	if replayed {
		log.Info("settlement replayed", "order_number", order.OrderNumber)
		return res, nil
	}

	log.Info("order settled", "order_id", order.ID, "order_number", order.OrderNumber, "total_minor", order.TotalMinor)
	if s.Notifier != nil {
		res.EmailQueued = s.Notifier.OrderSettled(ctx, order)
	}
	return res, nil
}

func replayResult(o *orders.Order) Result {
	return Result{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Replayed:    true,
	}
}

func buildOrder(req Request, cust *orders.Customer) *orders.Order {
	number := req.OrderNumber
	if number == "" {
		number = req.GatewayOrderID
	}
	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	items := make([]orders.LineItem, len(req.Items))
	copy(items, req.Items)

	return &orders.Order{
		OrderNumber:   number,
		CustomerID:    cust.ID,
		Address:       req.Address,
		Items:         items,
		SubtotalMinor: req.SubtotalMinor,
		TaxMinor:      req.TaxMinor,
		TotalMinor:    req.TotalMinor,
		Status:        orders.StatusPaid,
		Payment: orders.Payment{
			GatewayOrderID: req.GatewayOrderID,
			PaymentID:      req.PaymentID,
			Signature:      req.Signature,
			AmountMinor:    req.GatewayAmountMinor,
			Currency:       currency,
		},
	}
}

// checkTotals: subtotal = Σ price×qty, total = subtotal + tax, dan kalau
// gateway amount dikirim harus sama dengan total.
func checkTotals(req Request) error {
	var sum int64
	for _, it := range req.Items {
		sum += it.UnitPriceMinor * int64(it.Qty)
	}
	if sum != req.SubtotalMinor {
		return invalidRequest("subtotal %d does not match items %d", req.SubtotalMinor, sum)
	}
	if req.SubtotalMinor+req.TaxMinor != req.TotalMinor {
		return invalidRequest("total %d does not match subtotal %d + tax %d", req.TotalMinor, req.SubtotalMinor, req.TaxMinor)
	}
	if req.GatewayAmountMinor > 0 && req.GatewayAmountMinor != req.TotalMinor {
		return invalidRequest("gateway amount %d does not match total %d", req.GatewayAmountMinor, req.TotalMinor)
	}
	return nil
}

func (s *Service) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
