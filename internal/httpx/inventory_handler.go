package httpx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/storefront-settlement/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type InventoryStore interface {
	ResolveProduct(ctx context.Context, ref string) (orders.Product, bool, error)
	Restock(ctx context.Context, productID string, qty int) (orders.Product, error)
}

// AdminPublisher pushes events to the admin real-time channel.
type AdminPublisher interface {
	Admin(ev orders.AdminEvent)
}

type InventoryHandler struct {
	Store  InventoryStore
	Admin  AdminPublisher
	Log    *slog.Logger
	Secret []byte // admin JWT
}

type RestockReq struct {
	SKU string `json:"sku" validate:"required"`
	Qty int    `json:"qty" validate:"min=1"`
}

type stockResp struct {
	ProductID string `json:"productId"`
	SKU       string `json:"sku"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
}

var validate = validator.New()

func (h *InventoryHandler) Register(r chi.Router) {
	r.Get("/api/inventory/{ref}", h.getStock)
	r.With(RequireAdmin(h.Secret)).Patch("/api/inventory/restock", h.restock)
}

func (h *InventoryHandler) getStock(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, ok, err := h.Store.ResolveProduct(ctx, ref)
	if err != nil {
		h.logger().Error("resolve product", "ref", ref, "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, toStockResp(p))
}

func (h *InventoryHandler) restock(w http.ResponseWriter, r *http.Request) {
	var req RestockReq
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "sku and positive qty required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, ok, err := h.Store.ResolveProduct(ctx, req.SKU)
	if err != nil {
		h.logger().Error("resolve product", "sku", req.SKU, "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	p, err = h.Store.Restock(ctx, p.ID, req.Qty)
	if err != nil {
		h.logger().Error("restock", "sku", req.SKU, "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	h.logger().Info("restocked", "sku", p.SKU, "qty", req.Qty, "stock", p.Stock, "by", adminSubject(r.Context()))

	if h.Admin != nil {
		stock := p.Stock
		h.Admin.Admin(orders.AdminEvent{Type: orders.EventInventoryUpdated, SKU: p.SKU, Stock: &stock})
	}
	writeJSON(w, http.StatusOK, toStockResp(p))
}

func toStockResp(p orders.Product) stockResp {
	return stockResp{ProductID: p.ID, SKU: p.SKU, Slug: p.Slug, Name: p.Name, Stock: p.Stock}
}

func (h *InventoryHandler) logger() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}
