package orders

import "time"

// Amounts are int64 minor currency units (paise for INR).

type Product struct {
	ID         string
	SKU        string
	Slug       string
	Name       string
	PriceMinor int64
	Currency   string
	Stock      int
	Sizes      []string
	Colors     []string
	Images     []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Address struct {
	FullName   string `json:"fullName,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Address1   string `json:"address1,omitempty"`
	Address2   string `json:"address2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"pincode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// SameDestination reports whether two addresses deliver to the same place.
// Only line 1, postal code and phone take part in the comparison.
func (a Address) SameDestination(b Address) bool {
	return a.Address1 == b.Address1 && a.PostalCode == b.PostalCode && a.Phone == b.Phone
}

type Customer struct {
	ID        string
	FullName  string
	Email     string
	Phone     string
	Addresses []Address // most recent first
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasAddress reports whether addr is already saved for the customer.
func (c *Customer) HasAddress(addr Address) bool {
	for _, a := range c.Addresses {
		if a.SameDestination(addr) {
			return true
		}
	}
	return false
}

type LineItem struct {
	SKU            string `json:"sku" validate:"required"`
	Title          string `json:"title"`
	UnitPriceMinor int64  `json:"price_minor" validate:"gte=0"`
	Qty            int    `json:"qty" validate:"min=1"`
	Size           string `json:"size,omitempty"`
	Color          string `json:"color,omitempty"`
	Image          string `json:"image,omitempty"`
}

type Payment struct {
	GatewayOrderID string `json:"order_id"`
	PaymentID      string `json:"payment_id"`
	Signature      string `json:"signature"`
	AmountMinor    int64  `json:"amount_minor"`
	Currency       string `json:"currency"`
}

type Order struct {
	ID            string
	OrderNumber   string
	CustomerID    string
	Address       Address    // snapshot at settlement time
	Items         []LineItem // snapshot at settlement time
	SubtotalMinor int64
	TaxMinor      int64
	TotalMinor    int64
	Status        Status // lihat status.go
	Payment       Payment
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Shortage struct {
	SKU       string `json:"sku"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}
