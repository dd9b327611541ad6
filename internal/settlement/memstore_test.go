package settlement

import (
	"context"
	"sync"

	"github.com/ariefcatur/storefront-settlement/internal/orders"
	"github.com/google/uuid"
)

// memState is one consistent snapshot of the store.
type memState struct {
	stock     map[string]int
	customers []orders.Customer
	orders    []orders.Order
}

func (s *memState) clone() *memState {
	out := &memState{
		stock:     make(map[string]int, len(s.stock)),
		customers: make([]orders.Customer, len(s.customers)),
		orders:    make([]orders.Order, len(s.orders)),
	}
	for k, v := range s.stock {
		out.stock[k] = v
	}
	for i, c := range s.customers {
		c.Addresses = append([]orders.Address(nil), c.Addresses...)
		out.customers[i] = c
	}
	copy(out.orders, s.orders)
	return out
}

// memStore serializes transactions and applies their writes only on commit.
type memStore struct {
	mu    sync.Mutex
	state *memState

	// beforeInsert runs against the committed state right before an order
	// insert; tests use it to simulate a concurrent twin committing first.
	beforeInsert func(committed *memState)
	// afterGuard runs right after the in-transaction payment lookup with both
	// the committed state and the transaction's view; tests use it to let a
	// twin commit while this transaction is still running.
	afterGuard func(committed, view *memState)
	// failInsert makes InsertOrder fail with the given error.
	failInsert error
	// locked counts LockPayment calls.
	locked int
}

func newMemStore(stock map[string]int) *memStore {
	st := &memState{stock: map[string]int{}}
	for k, v := range stock {
		st.stock[k] = v
	}
	return &memStore{state: st}
}

func (m *memStore) InTx(ctx context.Context, fn orders.TxFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.state.clone()
	if err := fn(ctx, &memTx{m: m, s: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memStore) FindOrderByPaymentID(_ context.Context, paymentID string) (*orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return findOrder(m.state, paymentID)
}

func (m *memStore) stockOf(sku string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.stock[sku]
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.orders)
}

func (m *memStore) customersSnapshot() []orders.Customer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone().customers
}

func findOrder(s *memState, paymentID string) (*orders.Order, error) {
	for i := range s.orders {
		if s.orders[i].Payment.PaymentID == paymentID {
			o := s.orders[i]
			return &o, nil
		}
	}
	return nil, orders.ErrNotFound
}

type memTx struct {
	m *memStore
	s *memState
}

// LockPayment is a no-op beyond bookkeeping: memStore already runs one
// transaction at a time.
func (t *memTx) LockPayment(_ context.Context, _ string) error {
	t.m.locked++
	return nil
}

func (t *memTx) FindOrderByPaymentID(_ context.Context, paymentID string) (*orders.Order, error) {
	o, err := findOrder(t.s, paymentID)
	if t.m.afterGuard != nil {
		t.m.afterGuard(t.m.state, t.s)
	}
	return o, err
}

func (t *memTx) StockLevels(_ context.Context, skus []string) (map[string]int, error) {
	out := map[string]int{}
	for _, sku := range skus {
		if v, ok := t.s.stock[sku]; ok {
			out[sku] = v
		}
	}
	return out, nil
}

func (t *memTx) DecrementStock(_ context.Context, sku string, qty int) (bool, error) {
	v, ok := t.s.stock[sku]
	if !ok || v < qty {
		return false, nil
	}
	t.s.stock[sku] = v - qty
	return true, nil
}

func (t *memTx) FindCustomerByID(_ context.Context, id string) (*orders.Customer, error) {
	for _, c := range t.s.customers {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, orders.ErrNotFound
}

func (t *memTx) FindCustomerByContact(_ context.Context, email, phone string) (*orders.Customer, error) {
	for _, c := range t.s.customers {
		if (email != "" && c.Email == email) || (phone != "" && c.Phone == phone) {
			return &c, nil
		}
	}
	return nil, orders.ErrNotFound
}

func (t *memTx) CreateCustomer(_ context.Context, c *orders.Customer) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	cp := *c
	cp.Addresses = append([]orders.Address(nil), c.Addresses...)
	t.s.customers = append(t.s.customers, cp)
	return nil
}

func (t *memTx) UpdateCustomerAddresses(_ context.Context, id string, addrs []orders.Address) error {
	for i := range t.s.customers {
		if t.s.customers[i].ID == id {
			t.s.customers[i].Addresses = append([]orders.Address(nil), addrs...)
			return nil
		}
	}
	return orders.ErrNotFound
}

func (t *memTx) InsertOrder(_ context.Context, o *orders.Order) error {
	if t.m.beforeInsert != nil {
		t.m.beforeInsert(t.m.state)
	}
	if t.m.failInsert != nil {
		return t.m.failInsert
	}
	if _, err := findOrder(t.m.state, o.Payment.PaymentID); err == nil {
		return orders.ErrDuplicatePayment
	}
	if _, err := findOrder(t.s, o.Payment.PaymentID); err == nil {
		return orders.ErrDuplicatePayment
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	t.s.orders = append(t.s.orders, *o)
	return nil
}

// ---- other doubles ----

type fakeNotifier struct {
	mu      sync.Mutex
	settled []string
	queue   bool
}

func (n *fakeNotifier) OrderSettled(_ context.Context, o *orders.Order) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.settled = append(n.settled, o.OrderNumber)
	return n.queue && o.Address.Email != ""
}

func (n *fakeNotifier) calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.settled)
}

type mapCache struct {
	mu sync.Mutex
	m  map[string]Result
}

func (c *mapCache) Get(_ context.Context, paymentID string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.m[paymentID]
	return r, ok
}

func (c *mapCache) Put(_ context.Context, paymentID string, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = map[string]Result{}
	}
	c.m[paymentID] = res
}
