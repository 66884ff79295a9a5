package port

import (
	"context"

	"github.com/driftndash/storefront/internal/core/domain"
)

type DatabaseRepository interface {
	// CreateOrder persists header, lines and stock reservations in one
	// transaction; any failed reservation rolls everything back.
	CreateOrder(ctx context.Context, order domain.Order) error

	// SetStatus applies a status transition with its side effects: first-write
	// lifecycle date stamping and, on cancellation, stock release. Cancelling
	// an already-cancelled order must not release again.
	SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) error

	// SoftDelete hides an order from default listings without touching
	// inventory or lines. Restore undoes it.
	SoftDelete(ctx context.Context, orderID string) error
	Restore(ctx context.Context, orderID string) error

	ListByCustomer(ctx context.Context, customerID string) ([]domain.OrderSummary, error)
	ListAll(ctx context.Context) ([]domain.OrderSummary, error)
	ListArchived(ctx context.Context) ([]domain.OrderSummary, error)
	GetDetail(ctx context.Context, orderID string) (*domain.OrderDetail, error)

	// GetSnapshot resolves the notification view for a committed order.
	GetSnapshot(ctx context.Context, orderID string) (*domain.OrderSnapshot, error)

	ListShippingOptions(ctx context.Context) ([]domain.ShippingOption, error)

	// GetStock reads the current counter; nil if the item has no stock row.
	GetStock(ctx context.Context, itemID string) (*domain.StockEntry, error)
}
