package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/storefront-settlement/internal/orders"
	"github.com/ariefcatur/storefront-settlement/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	HeaderWebhookSignature = "X-Razorpay-Signature"
	HeaderWebhookEventID   = "X-Razorpay-Event-Id"

	eventPaymentCaptured = "payment.captured"
)

type WebhookVerifier interface {
	WebhookConfigured() bool
	VerifyWebhook(body []byte, signature string) bool
}

type PaymentMarker interface {
	MarkPaidByPaymentID(ctx context.Context, paymentID string) (*orders.Order, bool, error)
}

type CaptureNotifier interface {
	PaymentCaptured(ctx context.Context, paymentID string, o *orders.Order, updated bool)
}

// WebhookHandler menerima event gateway. Selalu jawab {received:true}; hanya
// signature invalid yang dapat 400.
type WebhookHandler struct {
	Verifier WebhookVerifier
	Orders   PaymentMarker
	Notifier CaptureNotifier
	Redis    *redis.Client // dedup event id, optional
	Log      *slog.Logger
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

var received = map[string]bool{"received": true}

func (h *WebhookHandler) Register(r chi.Router) {
	r.Post("/api/webhooks/razorpay", h.razorpay)
}

func (h *WebhookHandler) razorpay(w http.ResponseWriter, r *http.Request) {
	log := h.logger()
	if !h.Verifier.WebhookConfigured() {
		writeJSON(w, http.StatusOK, received)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Warn("webhook body unreadable", "err", err)
		writeJSON(w, http.StatusOK, received)
		return
	}
	if !h.Verifier.VerifyWebhook(body, r.Header.Get(HeaderWebhookSignature)) {
		log.Warn("webhook signature invalid", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusBadRequest, received)
		return
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		log.Warn("webhook payload undecodable", "err", err)
		writeJSON(w, http.StatusOK, received)
		return
	}
	if ev.Event != eventPaymentCaptured || ev.Payload.Payment.Entity.ID == "" {
		writeJSON(w, http.StatusOK, received)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dedupKey := ""
	if id := r.Header.Get(HeaderWebhookEventID); id != "" && h.Redis != nil {
		dedupKey = fmt.Sprintf(redisx.KeyDedup, "webhook", id)
		first, err := redisx.MarkOnce(ctx, h.Redis, dedupKey, redisx.TTLDedup)
		if err != nil {
			log.Warn("webhook dedup unavailable", "err", err)
			dedupKey = ""
		} else if !first {
			writeJSON(w, http.StatusOK, received)
			return
		}
	}

	if err := h.captured(ctx, ev.Payload.Payment.Entity.ID); err != nil {
		log.Error("webhook payment.captured", "payment_id", ev.Payload.Payment.Entity.ID, "err", err)
		// biar delivery ulang bisa diproses lagi
		if dedupKey != "" {
			_ = h.Redis.Del(context.Background(), dedupKey).Err()
		}
	}
	writeJSON(w, http.StatusOK, received)
}

func (h *WebhookHandler) captured(ctx context.Context, paymentID string) error {
	o, updated, err := h.Orders.MarkPaidByPaymentID(ctx, paymentID)
	if errors.Is(err, orders.ErrNotFound) {
		// checkout belum settle; settlement sendiri yang akan membuat order paid
		h.logger().Info("captured payment has no order yet", "payment_id", paymentID)
		o, err = nil, nil
	}
	if err != nil {
		return err
	}
	if updated && o != nil {
		forgetStatus(ctx, h.Redis, o)
	}
	if h.Notifier != nil {
		h.Notifier.PaymentCaptured(ctx, paymentID, o, updated)
	}
	return nil
}

func (h *WebhookHandler) logger() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}
