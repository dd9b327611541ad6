package redisx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ariefcatur/storefront-settlement/internal/settlement"
	"github.com/redis/go-redis/v9"
)

// SettleCache stores committed settlement results by payment id. Postgres
// stays the source of truth; a cache miss or error just falls through.
type SettleCache struct {
	Redis *redis.Client
	Log   *slog.Logger
}

func (c *SettleCache) Get(ctx context.Context, paymentID string) (settlement.Result, bool) {
	var res settlement.Result
	b, err := c.Redis.Get(ctx, fmt.Sprintf(KeyIdemSettle, paymentID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger().Warn("settle cache get", "payment_id", paymentID, "err", err)
		}
		return res, false
	}
	if err := json.Unmarshal(b, &res); err != nil || res.OrderNumber == "" {
		return settlement.Result{}, false
	}
	return res, true
}

func (c *SettleCache) Put(ctx context.Context, paymentID string, res settlement.Result) {
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.Redis.Set(ctx, fmt.Sprintf(KeyIdemSettle, paymentID), b, TTLIdempotency).Err(); err != nil {
		c.logger().Warn("settle cache put", "payment_id", paymentID, "err", err)
	}
}

func (c *SettleCache) logger() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}
