package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/driftndash/storefront/internal/core/domain"
)

// execer is satisfied by *sql.Tx and *sql.DB.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// reserveStock subtracts qty behind a sufficiency guard. This single
// conditional UPDATE is the only decrement path: concurrent reservations for
// the same item serialize on the row lock, and zero affected rows means the
// item was missing or short.
func reserveStock(ctx context.Context, ex execer, itemID string, qty int) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE stock
		SET quantity = quantity - ?, updated_at = NOW()
		WHERE item_id = ? AND quantity >= ?`,
		qty, itemID, qty,
	)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return &domain.InsufficientStockError{ItemID: itemID}
	}
	return nil
}

// releaseStock adds qty back unconditionally. Releasing more than was ever
// reserved is a caller error, not a ledger error.
func releaseStock(ctx context.Context, ex execer, itemID string, qty int) error {
	_, err := ex.ExecContext(ctx, `
		UPDATE stock
		SET quantity = quantity + ?, updated_at = NOW()
		WHERE item_id = ?`,
		qty, itemID,
	)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	return nil
}
