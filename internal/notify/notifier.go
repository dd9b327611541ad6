// Package notify tells the outside world about settled and updated orders.
// Nothing here can fail a settlement: errors are logged and dropped.
package notify

import (
	"context"
	"log/slog"
	"time"

	kafkax "github.com/ariefcatur/storefront-settlement/internal/kafka"
	"github.com/ariefcatur/storefront-settlement/internal/orders"
	"github.com/ariefcatur/storefront-settlement/internal/redisx"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

const adminPublishTimeout = 2 * time.Second

// Publisher is the non-blocking side of kafkax.Producer.
type Publisher interface {
	TryPublish(key, value []byte, headers ...kafkago.Header) bool
}

type Notifier struct {
	Settled     Publisher     // order.settled
	Paid        Publisher     // order.paid
	Redis       *redis.Client // admin channel, optional
	ServiceName string
	Log         *slog.Logger
}

// OrderSettled emits the settled event and an admin update. It reports
// whether a confirmation email was queued for the mailer.
func (n *Notifier) OrderSettled(ctx context.Context, o *orders.Order) bool {
	queued := n.emit(n.Settled, orders.EventOrderSettled, o.ID, traceID(ctx), orders.SettledPayload(o))
	n.Admin(orders.AdminEvent{
		Type:        orders.EventOrderUpdated,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		PaymentID:   o.Payment.PaymentID,
		Status:      o.Status,
	})
	return queued && o.Address.Email != ""
}

// PaymentCaptured reports a gateway capture for an existing order.
func (n *Notifier) PaymentCaptured(ctx context.Context, paymentID string, o *orders.Order, updated bool) {
	p := orders.PaymentCapturedPayload{PaymentID: paymentID, Updated: updated}
	ev := orders.AdminEvent{Type: orders.EventOrderUpdated, PaymentID: paymentID}
	key := paymentID
	if o != nil {
		p.OrderID = o.ID
		ev.OrderID, ev.OrderNumber, ev.Status = o.ID, o.OrderNumber, o.Status
		key = o.ID
	}
	n.emit(n.Paid, orders.EventPaymentCaptured, key, traceID(ctx), p)
	n.Admin(ev)
}

// Admin publishes ev on the admin channel in the background.
func (n *Notifier) Admin(ev orders.AdminEvent) {
	if n.Redis == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), adminPublishTimeout)
		defer cancel()
		if err := redisx.PublishJSON(ctx, n.Redis, redisx.ChannelAdmin, ev); err != nil {
			n.logger().Error("admin event publish failed", "type", ev.Type, "order_id", ev.OrderID, "err", err)
		}
	}()
}

func (n *Notifier) emit(p Publisher, eventType, key, trace string, payload any) bool {
	if p == nil {
		return false
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      n.ServiceName,
		TraceID:       trace,
		CorrelationID: key,
		Payload:       kafkax.MustMarshal(payload),
	}
	ok := p.TryPublish(orders.PartitionKey(key), kafkax.MustMarshal(ev), kafkax.EventHeaders(eventType, 1)...)
	if !ok {
		n.logger().Error("event not queued", "event_type", eventType, "key", key)
	}
	return ok
}

func (n *Notifier) logger() *slog.Logger {
	if n.Log != nil {
		return n.Log
	}
	return slog.Default()
}

// traceID is the chi request id, carried into event envelopes.
func traceID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}
