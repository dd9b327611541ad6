package redisx

import "time"

const (
	// Replay cache settlement: idem:settle:{payment_id} -> settlement result JSON
	KeyIdemSettle = "idem:settle:%s"

	// Cache status order: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{id} (id = event_id)
	KeyDedup = "dedup:%s:%s"

	// Pub/sub channel read by admin dashboards.
	ChannelAdmin = "admin:events"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
