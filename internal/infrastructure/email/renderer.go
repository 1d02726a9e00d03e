package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/storefront/backend/internal/domain/order"
	"golang.org/x/text/language"
)

const layoutTemplate = `{{define "layout"}}<!DOCTYPE html>
<html>
<body style="font-family: Helvetica, Arial, sans-serif; color: #1f2933;">
{{template "content" .}}
<p style="color: #7b8794; font-size: 12px;">Order reference {{.OrderID}}</p>
</body>
</html>{{end}}`

const confirmationTemplate = `{{define "content"}}<h1>Thank you for your order!</h1>
<p>Hi {{.CustomerName}},</p>
<p>Your order #{{.OrderNumber}} has been confirmed.</p>
<table cellpadding="6" style="border-collapse: collapse;">
<thead><tr><th align="left">Item</th><th align="right">Qty</th><th align="right">Price</th><th align="right">Subtotal</th></tr></thead>
<tbody>
{{range .Items}}<tr><td>{{.Name}}</td><td align="right">{{.Quantity}}</td><td align="right">{{.UnitPrice}}</td><td align="right">{{.Subtotal}}</td></tr>
{{end}}</tbody>
<tfoot><tr><td colspan="3" align="right"><strong>Total</strong></td><td align="right"><strong>{{.Total}}</strong></td></tr></tfoot>
</table>
{{with .ShipTo}}<p>Shipping to: {{.}}</p>{{end}}{{end}}`

const statusTemplate = `{{define "content"}}<h1>Order Status Update</h1>
<p>Hi {{.CustomerName}},</p>
<p>Your order #{{.OrderNumber}} has been updated to: <strong>{{.Status}}</strong></p>
{{if .PaymentFailed}}<p>We could not collect payment for this order. No charge was made and the order has been closed.</p>{{end}}
{{with .TrackingNumber}}<p>Tracking number: {{.}}</p>{{end}}
{{with .EstimatedDelivery}}<p>Estimated delivery: {{.}}</p>{{end}}{{end}}`

// Renderer builds order emails from HTML templates
type Renderer struct {
	confirmation *template.Template
	status       *template.Template
	money        *MoneyFormatter
}

// NewRenderer parses the order templates
func NewRenderer() *Renderer {
	base := template.Must(template.New("email").Parse(layoutTemplate))
	return &Renderer{
		confirmation: template.Must(template.Must(base.Clone()).Parse(confirmationTemplate)),
		status:       template.Must(template.Must(base.Clone()).Parse(statusTemplate)),
		money:        NewMoneyFormatter(language.English),
	}
}

type itemView struct {
	Name      string
	Quantity  int
	UnitPrice string
	Subtotal  string
}

type orderView struct {
	OrderID           string
	OrderNumber       string
	CustomerName      string
	Items             []itemView
	Total             string
	ShipTo            string
	Status            string
	PaymentFailed     bool
	TrackingNumber    string
	EstimatedDelivery string
}

// OrderConfirmation renders the confirmation sent once an order is paid
func (r *Renderer) OrderConfirmation(o *order.Order) (Message, error) {
	view := r.view(o)
	body, err := execute(r.confirmation, view)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      o.CustomerEmail,
		Subject: fmt.Sprintf("Order Confirmation #%s", view.OrderNumber),
		HTML:    body,
	}, nil
}

// OrderStatus renders a status update for status changes and failed payments
func (r *Renderer) OrderStatus(o *order.Order) (Message, error) {
	view := r.view(o)
	body, err := execute(r.status, view)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      o.CustomerEmail,
		Subject: fmt.Sprintf("Order Status Update #%s", view.OrderNumber),
		HTML:    body,
	}, nil
}

func (r *Renderer) view(o *order.Order) orderView {
	currencyCode := o.Currency
	if currencyCode == "" {
		currencyCode = order.DefaultCurrency
	}

	items := make([]itemView, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, itemView{
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: r.money.Format(item.UnitPrice, currencyCode),
			Subtotal:  r.money.Format(item.Subtotal(), currencyCode),
		})
	}

	name := o.CustomerName
	if name == "" {
		name = "Valued Customer"
	}

	view := orderView{
		OrderID:        o.ID.String(),
		OrderNumber:    OrderNumber(o),
		CustomerName:   name,
		Items:          items,
		Total:          r.money.Format(o.TotalAmount, currencyCode),
		ShipTo:         shipTo(o),
		Status:         string(o.Status),
		PaymentFailed:  o.PaymentStatus == order.PaymentFailed,
		TrackingNumber: o.TrackingNumber,
	}
	if o.EstimatedDelivery != nil {
		view.EstimatedDelivery = o.EstimatedDelivery.Format("January 2, 2006")
	}
	return view
}

// OrderNumber is the short customer-facing order reference
func OrderNumber(o *order.Order) string {
	return strings.ToUpper(strings.SplitN(o.ID.String(), "-", 2)[0])
}

func shipTo(o *order.Order) string {
	a := o.ShippingAddress
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.City, a.PostalCode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func execute(t *template.Template, data orderView) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("email: render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
