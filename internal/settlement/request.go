package settlement

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ariefcatur/storefront-settlement/internal/orders"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Request is the normalized settlement input. Money is in minor units.
type Request struct {
	GatewayOrderID     string            `validate:"required"`
	PaymentID          string            `validate:"required"`
	Signature          string            `validate:"required"`
	Items              []orders.LineItem `validate:"min=1,dive"`
	SubtotalMinor      int64             `validate:"gte=0"`
	TaxMinor           int64             `validate:"gte=0"`
	TotalMinor         int64             `validate:"gte=0"`
	Address            orders.Address
	CustomerID         string
	OrderNumber        string
	GatewayAmountMinor int64 `validate:"gte=0"`
	Currency           string
}

type Result struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	CustomerID  string `json:"customerId"`
	EmailQueued bool   `json:"emailed"`
	Replayed    bool   `json:"replayed"`
}

var validate = validator.New()

func (r *Request) validate() error {
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(ErrInvalidRequest, err.Error())
	}
	if r.Address.Email != "" {
		if err := validate.Var(r.Address.Email, "email"); err != nil {
			return invalidRequest("address email %q", r.Address.Email)
		}
	}
	return nil
}

// ---- wire shapes accepted at the HTTP boundary ----

// VerifyPaymentInput is the checkout confirmation as clients send it.
type VerifyPaymentInput struct {
	GatewayOrderID string `json:"razorpay_order_id"`
	PaymentID      string `json:"razorpay_payment_id"`
	Signature      string `json:"razorpay_signature"`

	AltGatewayOrderID string `json:"gateway_order_id"`
	AltPaymentID      string `json:"payment_id"`
	AltSignature      string `json:"signature"`

	Meta MetaInput `json:"meta"`
}

type MetaInput struct {
	Items          []ItemInput    `json:"items"`
	Sub            Amount         `json:"sub"`
	GST            Amount         `json:"gst"`
	Total          Amount         `json:"total"`
	Address        orders.Address `json:"address"`
	CustomerID     string         `json:"customerId"`
	DisplayOrderID string         `json:"display_order_id"`
	GatewayAmount  Quantity       `json:"rzpAmount"`
	Currency       string         `json:"rzpCurrency"`
}

type ItemInput struct {
	ID    FlexString `json:"id"`
	SKU   string     `json:"sku"`
	Title string     `json:"title"`
	Name  string     `json:"name"`
	Price Amount     `json:"price"`
	Qty   Quantity   `json:"qty"`
	Size  string     `json:"size"`
	Color string     `json:"color"`
	Image string     `json:"image"`
}

// NormalizeRequest maps every accepted input shape onto one Request.
// id wins over sku, title over name, and a missing or invalid quantity
// becomes 1.
func NormalizeRequest(in VerifyPaymentInput) (Request, error) {
	req := Request{
		GatewayOrderID: firstNonEmpty(in.GatewayOrderID, in.AltGatewayOrderID),
		PaymentID:      firstNonEmpty(in.PaymentID, in.AltPaymentID),
		Signature:      firstNonEmpty(in.Signature, in.AltSignature),
		Address:        trimAddress(in.Meta.Address),
		CustomerID:     strings.TrimSpace(in.Meta.CustomerID),
		OrderNumber:    strings.TrimSpace(in.Meta.DisplayOrderID),
		Currency:       strings.ToUpper(strings.TrimSpace(in.Meta.Currency)),
	}
	if in.Meta.GatewayAmount > 0 {
		req.GatewayAmountMinor = int64(in.Meta.GatewayAmount)
	}

	var err error
	if req.SubtotalMinor, err = in.Meta.Sub.Minor("sub"); err != nil {
		return Request{}, err
	}
	if req.TaxMinor, err = in.Meta.GST.Minor("gst"); err != nil {
		return Request{}, err
	}
	if req.TotalMinor, err = in.Meta.Total.Minor("total"); err != nil {
		return Request{}, err
	}

	req.Items = make([]orders.LineItem, 0, len(in.Meta.Items))
	for i, it := range in.Meta.Items {
		price, err := it.Price.Minor("items[" + strconv.Itoa(i) + "].price")
		if err != nil {
			return Request{}, err
		}
		qty := int(it.Qty)
		if qty < 1 {
			qty = 1
		}
		req.Items = append(req.Items, orders.LineItem{
			SKU:            firstNonEmpty(string(it.ID), it.SKU),
			Title:          firstNonEmpty(it.Title, it.Name),
			UnitPriceMinor: price,
			Qty:            qty,
			Size:           it.Size,
			Color:          it.Color,
			Image:          it.Image,
		})
	}
	return req, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}

func trimAddress(a orders.Address) orders.Address {
	return orders.Address{
		FullName:   strings.TrimSpace(a.FullName),
		Email:      strings.ToLower(strings.TrimSpace(a.Email)),
		Phone:      strings.TrimSpace(a.Phone),
		Address1:   strings.TrimSpace(a.Address1),
		Address2:   strings.TrimSpace(a.Address2),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
}

// Amount is a major-unit money value sent as a JSON number or string.
// null and "" decode to zero.
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(b), `"`))
	if s == "" || s == "null" {
		a.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return errors.Wrapf(ErrInvalidRequest, "amount %q", s)
	}
	a.Decimal = d
	return nil
}

// Minor converts to minor units, rounding half away from zero at 2 places.
func (a Amount) Minor(field string) (int64, error) {
	if a.IsNegative() {
		return 0, invalidRequest("%s must not be negative", field)
	}
	return a.Shift(2).Round(0).IntPart(), nil
}

// Quantity accepts a JSON number or numeric string. Anything unparseable
// decodes to zero so the caller can apply its default.
type Quantity int64

func (q *Quantity) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(b), `"`))
	d, err := decimal.NewFromString(s)
	if err != nil {
		*q = 0
		return nil
	}
	*q = Quantity(d.IntPart())
	return nil
}

// FlexString accepts a JSON string or number.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.Wrapf(ErrInvalidRequest, "id %s", string(b))
	}
	*f = FlexString(n.String())
	return nil
}
