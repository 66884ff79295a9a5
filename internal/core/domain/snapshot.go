package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineDetail is an order line resolved against the catalog: name and unit
// price come from the item table at read time.
type LineDetail struct {
	ItemID    string
	ItemName  string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (d LineDetail) Total() decimal.Decimal {
	return d.UnitPrice.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

// OrderSummary is a listing row: header plus shipping info, with lines
// attached for customer-facing lists.
type OrderSummary struct {
	OrderID       string
	CustomerName  string
	Status        OrderStatus
	DatePlaced    time.Time
	DateShipped   *time.Time
	DateDelivered *time.Time
	DeletedAt     *time.Time
	Region        string
	Rate          decimal.Decimal
	Lines         []LineDetail
}

// OrderDetail is the single-order admin view with resolved lines.
type OrderDetail struct {
	OrderID       string
	CustomerName  string
	Status        OrderStatus
	DatePlaced    time.Time
	DateShipped   *time.Time
	DateDelivered *time.Time
	Region        string
	Rate          decimal.Decimal
	Lines         []LineDetail
}

func (d *OrderDetail) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, ln := range d.Lines {
		sum = sum.Add(ln.Total())
	}
	return sum
}

// OrderSnapshot is the fully resolved view handed to the notification
// dispatcher. It is read-only and built after the owning transaction commits.
type OrderSnapshot struct {
	OrderID      string
	CustomerName string
	Email        string
	Region       string
	Rate         decimal.Decimal
	Status       OrderStatus
	DatePlaced   time.Time
	Lines        []LineDetail
}

func (s *OrderSnapshot) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, ln := range s.Lines {
		sum = sum.Add(ln.Total())
	}
	return sum
}

func (s *OrderSnapshot) GrandTotal() decimal.Decimal {
	return s.Subtotal().Add(s.Rate)
}

// EmailMessage is the rendered payload handed to the notification channel.
// Delivery (and the optional PDF attachment) is owned by the external mailer.
type EmailMessage struct {
	To          string `json:"to"`
	Subject     string `json:"subject"`
	HTMLBody    string `json:"html_body"`
	AttachPDF   bool   `json:"attach_pdf"`
	PDFFilename string `json:"pdf_filename,omitempty"`
}
