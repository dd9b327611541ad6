package notify

import (
	"bytes"
	"html/template"

	"github.com/ariefcatur/storefront-settlement/internal/orders"
	"github.com/shopspring/decimal"
)

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(template.FuncMap{
	"money": formatMinor,
	"lineTotal": func(it orders.LineItem) string {
		return formatMinor(it.UnitPriceMinor * int64(it.Qty))
	},
}).Parse(`<div style="font-family: Arial, sans-serif; color: #111; max-width:700px; margin:auto; padding:20px;">
  <h2 style="margin:0 0 8px;">Order Confirmation - {{.OrderNumber}}</h2>
  <p>Hi {{if .Address.FullName}}{{.Address.FullName}}{{else}}Customer{{end}},</p>
  <p>Thanks for shopping with <strong>{{.StoreName}}</strong>! Here is your order summary:</p>
  <table style="width:100%; border-collapse:collapse;">
    <thead>
      <tr><th align="left">Item</th><th align="right">Qty</th><th align="right">Price</th></tr>
    </thead>
    <tbody>
    {{- range .Items}}
      <tr><td>{{.Title}}{{if .Size}} ({{.Size}}){{end}}</td><td align="right">{{.Qty}}</td><td align="right">{{$.Symbol}}{{lineTotal .}}</td></tr>
    {{- end}}
    </tbody>
  </table>
  <div style="margin-top:12px;">
    <div>Subtotal: {{.Symbol}}{{money .SubtotalMinor}}</div>
    <div>GST: {{.Symbol}}{{money .TaxMinor}}</div>
    <div style="font-weight:700; margin-top:6px;">Total: {{.Symbol}}{{money .TotalMinor}}</div>
  </div>
  <hr style="margin:18px 0; border:none; border-top:1px solid #eee;" />
  <div>
    <strong>Ship to</strong>
    <div>{{.Address.Address1}} {{.Address.Address2}}</div>
    <div>{{.Address.City}} {{.Address.State}} {{.Address.PostalCode}}</div>
  </div>
  <p style="color:#666; margin-top:18px;">We will notify you once your order ships. - The {{.StoreName}} Team</p>
</div>
`))

type confirmationView struct {
	orders.OrderSettledPayload
	StoreName string
	Symbol    string
}

// RenderConfirmation builds the HTML body of the order confirmation email.
func RenderConfirmation(storeName string, p orders.OrderSettledPayload) (string, error) {
	var buf bytes.Buffer
	err := confirmationTmpl.Execute(&buf, confirmationView{
		OrderSettledPayload: p,
		StoreName:           storeName,
		Symbol:              currencySymbol(p.Currency),
	})
	return buf.String(), err
}

func formatMinor(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

func currencySymbol(code string) string {
	switch code {
	case "", "INR":
		return "₹"
	case "USD":
		return "$"
	case "EUR":
		return "€"
	default:
		return code + " "
	}
}
