package domain

import (
	"fmt"
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ParseStatus canonicalizes a caller-supplied status string. Input is
// case-insensitive; anything outside the closed set is rejected.
func ParseStatus(s string) (OrderStatus, error) {
	switch OrderStatus(strings.ToLower(strings.TrimSpace(s))) {
	case OrderStatusPending:
		return OrderStatusPending, nil
	case OrderStatusShipped:
		return OrderStatusShipped, nil
	case OrderStatusDelivered:
		return OrderStatusDelivered, nil
	case OrderStatusCancelled:
		return OrderStatusCancelled, nil
	}
	return "", fmt.Errorf("%w: unrecognized status %q", ErrInvalidRequest, s)
}

// Order is the aggregate root. Lines are immutable after creation; only
// Status, the two lifecycle dates and DeletedAt change afterwards.
type Order struct {
	ID            string
	CustomerID    string
	ShippingID    string
	Status        OrderStatus
	DatePlaced    time.Time
	DateShipped   *time.Time
	DateDelivered *time.Time
	DeletedAt     *time.Time
	Lines         []OrderLine
}

type OrderLine struct {
	ItemID   string
	Quantity int
}
