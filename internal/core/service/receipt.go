package service

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/driftndash/storefront/internal/core/domain"
)

const storeName = "Drift n' Dash"

var receiptTmpl = template.Must(template.New("receipt").Parse(`<h3>Hi {{.Name}},</h3>
{{if .StatusUpdate -}}
<p>Your order <strong>#{{.OrderID}}</strong> placed on <strong>{{.DatePlaced}}</strong> has been updated to:</p>
<p><strong>Status: {{.Status}}</strong></p>
{{- else -}}
<p>Thank you for placing your order with <strong>` + storeName + `</strong>!</p>
<p><strong>Order ID:</strong> {{.OrderID}}</p>
<p><strong>Date Placed:</strong> {{.DatePlaced}}</p>
{{- end}}
<h4>Order Summary</h4>
<table border="1" cellpadding="5" cellspacing="0" style="border-collapse: collapse;">
<thead><tr><th>Item</th><th>Qty</th><th>Price</th><th>Subtotal</th></tr></thead>
<tbody>
{{- range .Rows}}
<tr><td>{{.Name}}</td><td>{{.Qty}}</td><td>{{.Price}}</td><td>{{.Subtotal}}</td></tr>
{{- end}}
</tbody>
</table>
<p><strong>Shipping:</strong> {{.Region}} - {{.Rate}}</p>
<p><strong>Total:</strong> {{.Total}}</p>
<br><p>Thanks for shopping with <strong>` + storeName + `</strong>!</p>`))

type receiptRow struct {
	Name     string
	Qty      int
	Price    string
	Subtotal string
}

type receiptData struct {
	Name         string
	OrderID      string
	DatePlaced   string
	Status       string
	Region       string
	Rate         string
	Total        string
	Rows         []receiptRow
	StatusUpdate bool
}

func buildReceiptData(snap *domain.OrderSnapshot, statusUpdate bool) receiptData {
	name := snap.CustomerName
	if name == "" {
		name = "Customer"
	}
	data := receiptData{
		Name:         name,
		OrderID:      snap.OrderID,
		DatePlaced:   snap.DatePlaced.Format("January 2, 2006"),
		Status:       string(snap.Status),
		Region:       snap.Region,
		Rate:         snap.Rate.StringFixed(2),
		Total:        snap.GrandTotal().StringFixed(2),
		StatusUpdate: statusUpdate,
	}
	for _, ln := range snap.Lines {
		data.Rows = append(data.Rows, receiptRow{
			Name:     ln.ItemName,
			Qty:      ln.Quantity,
			Price:    ln.UnitPrice.StringFixed(2),
			Subtotal: ln.Total().StringFixed(2),
		})
	}
	return data
}

func renderReceipt(snap *domain.OrderSnapshot) domain.EmailMessage {
	var body strings.Builder
	_ = receiptTmpl.Execute(&body, buildReceiptData(snap, false))
	return domain.EmailMessage{
		To:          snap.Email,
		Subject:     fmt.Sprintf("%s - Order #%s Confirmation", storeName, snap.OrderID),
		HTMLBody:    body.String(),
		AttachPDF:   true,
		PDFFilename: fmt.Sprintf("Order_%s_Receipt.pdf", snap.OrderID),
	}
}

func renderStatusUpdate(snap *domain.OrderSnapshot) domain.EmailMessage {
	var body strings.Builder
	_ = receiptTmpl.Execute(&body, buildReceiptData(snap, true))
	return domain.EmailMessage{
		To:          snap.Email,
		Subject:     fmt.Sprintf("Your Order #%s Status: %s", snap.OrderID, snap.Status),
		HTMLBody:    body.String(),
		AttachPDF:   true,
		PDFFilename: fmt.Sprintf("Order_%s_Status_%s.pdf", snap.OrderID, snap.Status),
	}
}
