package httpx

import (
	"net/http"
	"testing"
	"time"

	"github.com/ariefcatur/storefront-settlement/internal/orders"
	"github.com/ariefcatur/storefront-settlement/internal/settlement"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const checkoutBody = `{
  "razorpay_order_id": "order_X",
  "razorpay_payment_id": "pay_X",
  "razorpay_signature": "abc",
  "meta": {
    "items": [{"id": "TS-1", "name": "Tee", "price": "500", "qty": "2"}],
    "sub": 1000, "gst": 0, "total": 1000,
    "address": {"fullName": "Asha", "email": "asha@example.com", "address1": "12 MG Road", "pincode": "411001"}
  }
}`

type checkoutFixtures struct {
	router  *chi.Mux
	settler *MockSettler
}

func createTestCheckoutHandler(t *testing.T) checkoutFixtures {
	settler := &MockSettler{}
	t.Cleanup(func() { settler.AssertExpectations(t) })
	r := testRouter()
	h := &CheckoutHandler{Service: settler, Timeout: time.Second, RateLimit: 1000}
	h.Register(r)
	return checkoutFixtures{router: r, settler: settler}
}

func TestVerifyPayment_Success(t *testing.T) {
	fx := createTestCheckoutHandler(t)
	fx.settler.On("Settle", mock.Anything, mock.MatchedBy(func(req settlement.Request) bool {
		return req.PaymentID == "pay_X" &&
			req.GatewayOrderID == "order_X" &&
			len(req.Items) == 1 &&
			req.Items[0].SKU == "TS-1" &&
			req.Items[0].Title == "Tee" &&
			req.Items[0].Qty == 2 &&
			req.Items[0].UnitPriceMinor == 50000 &&
			req.TotalMinor == 100000
	})).Return(settlement.Result{OrderID: "ord-1", OrderNumber: "ORD-1", CustomerID: "cus-1", EmailQueued: true}, nil).Once()

	rec := do(t, fx.router, http.MethodPost, "/api/verify-payment", checkoutBody)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ORD-1", body["orderNumber"])
	assert.Equal(t, "cus-1", body["customerId"])
	assert.Equal(t, true, body["emailed"])
	assert.Equal(t, false, body["replayed"])
}

func TestVerifyPayment_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"signature", settlement.ErrInvalidSignature, http.StatusBadRequest, "Invalid signature"},
		{"customer", settlement.ErrCustomerValidation, http.StatusBadRequest, "Address email or phone required"},
		{"storage", &settlement.StorageError{Err: errors.New("conn reset")}, http.StatusServiceUnavailable, "Please retry"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "Server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := createTestCheckoutHandler(t)
			fx.settler.On("Settle", mock.Anything, mock.Anything).Return(settlement.Result{}, tt.err).Once()

			rec := do(t, fx.router, http.MethodPost, "/api/verify-payment", checkoutBody)

			assert.Equal(t, tt.code, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.msg, body["message"])
		})
	}
}

func TestVerifyPayment_Shortage(t *testing.T) {
	fx := createTestCheckoutHandler(t)
	fx.settler.On("Settle", mock.Anything, mock.Anything).Return(settlement.Result{},
		&settlement.InsufficientStockError{Shortages: []orders.Shortage{{SKU: "TS-1", Requested: 5, Available: 2}}}).Once()

	rec := do(t, fx.router, http.MethodPost, "/api/verify-payment", checkoutBody)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Stock insufficient after payment","insufficient":[{"sku":"TS-1","requested":5,"available":2}]}`, rec.Body.String())
}

func TestVerifyPayment_BadInput(t *testing.T) {
	fx := createTestCheckoutHandler(t)

	rec := do(t, fx.router, http.MethodPost, "/api/verify-payment", "{nope")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, fx.router, http.MethodPost, "/api/verify-payment", `{"meta":{"total":"-5"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	fx.settler.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything)
}

func TestVerifyPayment_RateLimited(t *testing.T) {
	settler := &MockSettler{}
	settler.On("Settle", mock.Anything, mock.Anything).Return(settlement.Result{OrderNumber: "ORD-1"}, nil)
	r := testRouter()
	(&CheckoutHandler{Service: settler, RateLimit: 2, RateWindow: time.Minute}).Register(r)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/verify-payment", checkoutBody).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/verify-payment", checkoutBody).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, r, http.MethodPost, "/api/verify-payment", checkoutBody).Code)
	settler.AssertNumberOfCalls(t, "Settle", 2)
}
