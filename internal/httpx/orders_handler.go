package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/storefront-settlement/internal/orders"
	"github.com/ariefcatur/storefront-settlement/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type OrderStore interface {
	GetOrder(ctx context.Context, ref string) (*orders.Order, error)
	UpdateStatus(ctx context.Context, orderID string, to orders.Status) (*orders.Order, error)
}

type OrdersHandler struct {
	Repo   OrderStore
	Redis  *redis.Client // status cache, optional
	Admin  AdminPublisher
	Log    *slog.Logger
	Secret []byte // admin JWT
}

type UpdateStatusReq struct {
	Status string `json:"status"`
}

type orderResp struct {
	ID            string            `json:"id"`
	OrderNumber   string            `json:"orderNumber"`
	CustomerID    string            `json:"customerId"`
	Status        orders.Status     `json:"status"`
	Address       orders.Address    `json:"address"`
	Items         []orders.LineItem `json:"items"`
	SubtotalMinor int64             `json:"subtotal_minor"`
	TaxMinor      int64             `json:"tax_minor"`
	TotalMinor    int64             `json:"total_minor"`
	Payment       orders.Payment    `json:"payment"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(RequireAdmin(h.Secret))
		r.Get("/api/orders/{ref}", h.getOrder)
		r.Get("/api/orders/{ref}/status", h.getStatus)
		r.Patch("/api/orders/{ref}/status", h.updateStatus)
	})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, ok := h.lookup(ctx, w, chi.URLParam(r, "ref"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toOrderResp(o))
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, fmt.Sprintf(redisx.KeyOrderStatus, ref)).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	// 2) fallback DB
	o, ok := h.lookup(ctx, w, ref)
	if !ok {
		return
	}
	b, _ := json.Marshal(map[string]any{"id": o.ID, "orderNumber": o.OrderNumber, "status": o.Status})
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, fmt.Sprintf(redisx.KeyOrderStatus, ref), b, redisx.TTLStatusCache).Err()
	}
	writeJSON(w, http.StatusOK, json.RawMessage(b))
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "ref")
	var req UpdateStatusReq
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	to, ok := orders.ParseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Repo.UpdateStatus(ctx, id, to)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
		return
	case errors.Is(err, orders.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger().Error("update order status", "order_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	h.logger().Info("order status updated", "order_id", o.ID, "status", o.Status, "by", adminSubject(r.Context()))

	forgetStatus(ctx, h.Redis, o)
	if h.Admin != nil {
		h.Admin.Admin(orders.AdminEvent{
			Type:        orders.EventOrderUpdated,
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			PaymentID:   o.Payment.PaymentID,
			Status:      o.Status,
		})
	}
	writeJSON(w, http.StatusOK, toOrderResp(o))
}

func (h *OrdersHandler) lookup(ctx context.Context, w http.ResponseWriter, ref string) (*orders.Order, bool) {
	if ref == "" {
		writeError(w, http.StatusBadRequest, "missing id")
		return nil, false
	}
	o, err := h.Repo.GetOrder(ctx, ref)
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return nil, false
	}
	if err != nil {
		h.logger().Error("get order", "ref", ref, "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return nil, false
	}
	return o, true
}

// forgetStatus drops the cached status under both keys the status route uses.
func forgetStatus(ctx context.Context, rdb *redis.Client, o *orders.Order) {
	if rdb == nil {
		return
	}
	_ = rdb.Del(ctx,
		fmt.Sprintf(redisx.KeyOrderStatus, o.ID),
		fmt.Sprintf(redisx.KeyOrderStatus, o.OrderNumber),
	).Err()
}

func toOrderResp(o *orders.Order) orderResp {
	p := o.Payment
	p.Signature = ""
	return orderResp{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID,
		Status:        o.Status,
		Address:       o.Address,
		Items:         o.Items,
		SubtotalMinor: o.SubtotalMinor,
		TaxMinor:      o.TaxMinor,
		TotalMinor:    o.TotalMinor,
		Payment:       p,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func (h *OrdersHandler) logger() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}
