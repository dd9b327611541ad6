package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderSettled     = "OrderSettled"
	EventPaymentCaptured  = "PaymentCaptured"
	EventOrderUpdated     = "order:updated"
	EventInventoryUpdated = "inventory:updated"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "settlement-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type OrderSettledPayload struct {
	OrderID       string     `json:"order_id"`
	OrderNumber   string     `json:"order_number"`
	CustomerID    string     `json:"customer_id"`
	PaymentID     string     `json:"payment_id"`
	Address       Address    `json:"address"`
	Items         []LineItem `json:"items"`
	SubtotalMinor int64      `json:"subtotal_minor"`
	TaxMinor      int64      `json:"tax_minor"`
	TotalMinor    int64      `json:"total_minor"`
	Currency      string     `json:"currency"`
}

type PaymentCapturedPayload struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id,omitempty"`
	Updated   bool   `json:"updated"`
}

// AdminEvent is what the admin real-time channel carries.
type AdminEvent struct {
	Type        string `json:"type"`
	OrderID     string `json:"order_id,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
	PaymentID   string `json:"payment_id,omitempty"`
	Status      Status `json:"status,omitempty"`
	SKU         string `json:"sku,omitempty"`
	Stock       *int   `json:"stock,omitempty"`
}

func SettledPayload(o *Order) OrderSettledPayload {
	return OrderSettledPayload{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID,
		PaymentID:     o.Payment.PaymentID,
		Address:       o.Address,
		Items:         o.Items,
		SubtotalMinor: o.SubtotalMinor,
		TaxMinor:      o.TaxMinor,
		TotalMinor:    o.TotalMinor,
		Currency:      o.Payment.Currency,
	}
}
