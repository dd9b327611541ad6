package httpx

import (
	"context"
	"sync"

	"github.com/ariefcatur/storefront-settlement/internal/orders"
	"github.com/ariefcatur/storefront-settlement/internal/settlement"
	"github.com/stretchr/testify/mock"
)

type MockSettler struct{ mock.Mock }

func (m *MockSettler) Settle(ctx context.Context, req settlement.Request) (settlement.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(settlement.Result), args.Error(1)
}

type MockPaymentMarker struct{ mock.Mock }

func (m *MockPaymentMarker) MarkPaidByPaymentID(ctx context.Context, paymentID string) (*orders.Order, bool, error) {
	args := m.Called(ctx, paymentID)
	o, _ := args.Get(0).(*orders.Order)
	return o, args.Bool(1), args.Error(2)
}

type MockInventoryStore struct{ mock.Mock }

func (m *MockInventoryStore) ResolveProduct(ctx context.Context, ref string) (orders.Product, bool, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(orders.Product), args.Bool(1), args.Error(2)
}

func (m *MockInventoryStore) Restock(ctx context.Context, productID string, qty int) (orders.Product, error) {
	args := m.Called(ctx, productID, qty)
	return args.Get(0).(orders.Product), args.Error(1)
}

type MockOrderStore struct{ mock.Mock }

func (m *MockOrderStore) GetOrder(ctx context.Context, ref string) (*orders.Order, error) {
	args := m.Called(ctx, ref)
	o, _ := args.Get(0).(*orders.Order)
	return o, args.Error(1)
}

func (m *MockOrderStore) UpdateStatus(ctx context.Context, orderID string, to orders.Status) (*orders.Order, error) {
	args := m.Called(ctx, orderID, to)
	o, _ := args.Get(0).(*orders.Order)
	return o, args.Error(1)
}

type capture struct {
	paymentID string
	order     *orders.Order
	updated   bool
}

// recorder implements CaptureNotifier and AdminPublisher.
type recorder struct {
	mu       sync.Mutex
	captures []capture
	admin    []orders.AdminEvent
}

func (r *recorder) PaymentCaptured(_ context.Context, paymentID string, o *orders.Order, updated bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captures = append(r.captures, capture{paymentID, o, updated})
}

func (r *recorder) Admin(ev orders.AdminEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admin = append(r.admin, ev)
}
