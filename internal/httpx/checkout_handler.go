package httpx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/storefront-settlement/internal/orders"
	"github.com/ariefcatur/storefront-settlement/internal/settlement"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/pkg/errors"
)

const maxBodyBytes = 1 << 20

type Settler interface {
	Settle(ctx context.Context, req settlement.Request) (settlement.Result, error)
}

type CheckoutHandler struct {
	Service    Settler
	Timeout    time.Duration // per settlement, default 10s
	RateLimit  int           // per IP per RateWindow, default 50
	RateWindow time.Duration // default 5m
	Log        *slog.Logger
}

type settleResp struct {
	Success bool `json:"success"`
	settlement.Result
}

type failureResp struct {
	Success      bool              `json:"success"`
	Message      string            `json:"message"`
	Insufficient []orders.Shortage `json:"insufficient,omitempty"`
}

func (h *CheckoutHandler) Register(r chi.Router) {
	limit, window := h.RateLimit, h.RateWindow
	if limit <= 0 {
		limit = 50
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	r.With(httprate.LimitByIP(limit, window)).Post("/api/verify-payment", h.verifyPayment)
}

func (h *CheckoutHandler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var in settlement.VerifyPaymentInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, failureResp{Message: "invalid json"})
		return
	}
	req, err := settlement.NormalizeRequest(in)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failureResp{Message: err.Error()})
		return
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	res, err := h.Service.Settle(ctx, req)
	if err != nil {
		h.writeSettlementError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, settleResp{Success: true, Result: res})
}

// writeSettlementError maps the settlement error taxonomy onto HTTP.
func (h *CheckoutHandler) writeSettlementError(w http.ResponseWriter, req settlement.Request, err error) {
	log := h.logger().With("payment_id", req.PaymentID, "gateway_order_id", req.GatewayOrderID)
	switch {
	case errors.Is(err, settlement.ErrInvalidSignature):
		writeJSON(w, http.StatusBadRequest, failureResp{Message: "Invalid signature"})
	case errors.Is(err, settlement.ErrInsufficientStock):
		shortages, _ := settlement.ShortagesOf(err)
		log.Warn("stock insufficient after payment", "shortages", shortages)
		writeJSON(w, http.StatusConflict, failureResp{
			Message:      "Stock insufficient after payment",
			Insufficient: shortages,
		})
	case errors.Is(err, settlement.ErrCustomerValidation):
		writeJSON(w, http.StatusBadRequest, failureResp{Message: "Address email or phone required"})
	case errors.Is(err, settlement.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, failureResp{Message: err.Error()})
	case errors.Is(err, settlement.ErrStorageTransaction):
		log.Error("settlement storage failure", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, failureResp{Message: "Please retry"})
	default:
		log.Error("settlement failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, failureResp{Message: "Server error"})
	}
}

func (h *CheckoutHandler) logger() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}
