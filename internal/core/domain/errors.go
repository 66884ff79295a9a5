package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest means the input was malformed; storage was never touched.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound means the order does not exist, or is soft-deleted where the
	// operation only sees live orders.
	ErrNotFound = errors.New("order not found")
)

// InsufficientStockError is a business rejection, distinct from storage
// failures: the order was not created and nothing was decremented. Callers
// must not retry it blindly.
type InsufficientStockError struct {
	ItemID string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s", e.ItemID)
}
