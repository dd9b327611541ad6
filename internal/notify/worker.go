package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkax "github.com/ariefcatur/storefront-settlement/internal/kafka"
	"github.com/ariefcatur/storefront-settlement/internal/orders"
	"github.com/ariefcatur/storefront-settlement/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

const sendTimeout = 30 * time.Second

type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// MailWorker sends one confirmation email per settled order.
type MailWorker struct {
	Sender    Sender
	Redis     *redis.Client
	StoreName string
	Log       *slog.Logger
}

// HandleOrderSettled: dipasang sebagai handler consumer. A failed send is
// logged and the message is still committed; confirmations are never retried.
func (w *MailWorker) HandleOrderSettled(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		w.logger().Error("bad envelope, skipping", "offset", m.Offset, "err", err)
		return nil
	}
	if env.EventType != orders.EventOrderSettled {
		return nil
	} // ignore

	// 2) dedup via Redis (pakai event_id)
	if w.Redis != nil {
		first, err := redisx.MarkOnce(ctx, w.Redis, fmt.Sprintf(redisx.KeyDedup, "mailer", env.EventID), redisx.TTLDedup)
		if err != nil {
			return err
		}
		if !first {
			return nil
		}
	}

	// 3) decode payload
	p, err := kafkax.UnwrapPayload[orders.OrderSettledPayload](env.Payload)
	if err != nil {
		w.logger().Error("bad payload, skipping", "event_id", env.EventID, "err", err)
		return nil
	}
	log := w.logger().With("order_id", p.OrderID, "order_number", p.OrderNumber)
	if p.Address.Email == "" {
		log.Debug("no email on order, skipping confirmation")
		return nil
	}

	html, err := RenderConfirmation(w.StoreName, p)
	if err != nil {
		log.Error("render confirmation", "err", err)
		return nil
	}

	sctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	subject := fmt.Sprintf("Order confirmed • %s", p.OrderNumber)
	if err := w.Sender.Send(sctx, p.Address.Email, subject, html); err != nil {
		log.Error("confirmation email failed", "err", err)
		return nil
	}
	log.Info("confirmation email sent")
	return nil
}

func (w *MailWorker) logger() *slog.Logger {
	if w.Log != nil {
		return w.Log
	}
	return slog.Default()
}
