package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/driftndash/storefront/internal/core/domain"
)

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// CreateOrder inserts the header and every line, then reserves stock for each
// line in request order, all inside one transaction. A short reservation
// aborts the whole unit of work: no partial orders, no partial decrements.
func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orderinfo (order_id, customer_id, shipping_id, status, date_placed)
		VALUES (?, ?, ?, ?, ?)`,
		order.ID, order.CustomerID, order.ShippingID, order.Status, order.DatePlaced,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, ln := range order.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO orderline (order_id, item_id, quantity)
			VALUES (?, ?, ?)`,
			order.ID, ln.ItemID, ln.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	for _, ln := range order.Lines {
		if err := reserveStock(ctx, tx, ln.ItemID, ln.Quantity); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SetStatus locks the header row, applies the target status and its side
// effects, and commits. The row lock plus the current-status check make
// cancellation idempotent: a second cancel sees status already cancelled and
// skips the release.
func (m *MySQLAdapter) SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current domain.OrderStatus
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM orderinfo
		WHERE order_id = ? AND deleted_at IS NULL
		FOR UPDATE`, orderID,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock order: %w", err)
	}

	if status == domain.OrderStatusCancelled && current != domain.OrderStatusCancelled {
		if err := m.releaseOrderLines(ctx, tx, orderID); err != nil {
			return err
		}
	}

	switch status {
	case domain.OrderStatusShipped:
		// First write wins: re-issuing "shipped" never moves the timestamp.
		_, err = tx.ExecContext(ctx, `
			UPDATE orderinfo
			SET status = ?, date_shipped = COALESCE(date_shipped, NOW())
			WHERE order_id = ?`, status, orderID)
	case domain.OrderStatusDelivered:
		_, err = tx.ExecContext(ctx, `
			UPDATE orderinfo
			SET status = ?, date_delivered = COALESCE(date_delivered, NOW())
			WHERE order_id = ?`, status, orderID)
	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE orderinfo SET status = ? WHERE order_id = ?`, status, orderID)
	}
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	return tx.Commit()
}

func (m *MySQLAdapter) releaseOrderLines(ctx context.Context, tx *sql.Tx, orderID string) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT item_id, quantity FROM orderline WHERE order_id = ?`, orderID)
	if err != nil {
		return fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var ln domain.OrderLine
		if err := rows.Scan(&ln.ItemID, &ln.Quantity); err != nil {
			return fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, ln)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read order lines: %w", err)
	}

	for _, ln := range lines {
		if err := releaseStock(ctx, tx, ln.ItemID, ln.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (m *MySQLAdapter) SoftDelete(ctx context.Context, orderID string) error {
	res, err := m.db.ExecContext(ctx, `
		UPDATE orderinfo SET deleted_at = NOW()
		WHERE order_id = ? AND deleted_at IS NULL`, orderID)
	if err != nil {
		return fmt.Errorf("soft delete order: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Restore clears only the soft-delete marker; status and shipment dates stay
// exactly as they were.
func (m *MySQLAdapter) Restore(ctx context.Context, orderID string) error {
	res, err := m.db.ExecContext(ctx, `
		UPDATE orderinfo SET deleted_at = NULL
		WHERE order_id = ? AND deleted_at IS NOT NULL`, orderID)
	if err != nil {
		return fmt.Errorf("restore order: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (m *MySQLAdapter) ListByCustomer(ctx context.Context, customerID string) ([]domain.OrderSummary, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT o.order_id, o.status, o.date_placed, o.date_shipped, o.date_delivered,
		       s.region, s.rate
		FROM orderinfo o
		JOIN shipping s ON s.shipping_id = o.shipping_id
		WHERE o.customer_id = ? AND o.deleted_at IS NULL
		ORDER BY o.date_placed DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("query customer orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.OrderSummary
	var ids []string
	for rows.Next() {
		var sum domain.OrderSummary
		var shipped, delivered sql.NullTime
		if err := rows.Scan(&sum.OrderID, &sum.Status, &sum.DatePlaced,
			&shipped, &delivered, &sum.Region, &sum.Rate); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		sum.DateShipped = timePtr(shipped)
		sum.DateDelivered = timePtr(delivered)
		orders = append(orders, sum)
		ids = append(ids, sum.OrderID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read orders: %w", err)
	}

	if len(orders) == 0 {
		return []domain.OrderSummary{}, nil
	}

	grouped, err := m.lineDetailsByOrder(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = grouped[orders[i].OrderID]
	}
	return orders, nil
}

func (m *MySQLAdapter) ListAll(ctx context.Context) ([]domain.OrderSummary, error) {
	return m.listAdmin(ctx, false)
}

func (m *MySQLAdapter) ListArchived(ctx context.Context) ([]domain.OrderSummary, error) {
	return m.listAdmin(ctx, true)
}

func (m *MySQLAdapter) listAdmin(ctx context.Context, archived bool) ([]domain.OrderSummary, error) {
	deletedCond := "o.deleted_at IS NULL"
	if archived {
		deletedCond = "o.deleted_at IS NOT NULL"
	}
	rows, err := m.db.QueryContext(ctx, `
		SELECT o.order_id, c.full_name, o.status, o.date_placed,
		       o.date_shipped, o.date_delivered, o.deleted_at, s.region, s.rate
		FROM orderinfo o
		JOIN customer c ON c.customer_id = o.customer_id
		JOIN shipping s ON s.shipping_id = o.shipping_id
		WHERE `+deletedCond+`
		ORDER BY o.date_placed DESC`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.OrderSummary{}
	for rows.Next() {
		var sum domain.OrderSummary
		var shipped, delivered, deleted sql.NullTime
		if err := rows.Scan(&sum.OrderID, &sum.CustomerName, &sum.Status,
			&sum.DatePlaced, &shipped, &delivered, &deleted,
			&sum.Region, &sum.Rate); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		sum.DateShipped = timePtr(shipped)
		sum.DateDelivered = timePtr(delivered)
		sum.DeletedAt = timePtr(deleted)
		orders = append(orders, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read orders: %w", err)
	}
	return orders, nil
}

// GetDetail resolves a single order with its lines. Archive state is not
// filtered here: admins inspect archived orders through the same view.
func (m *MySQLAdapter) GetDetail(ctx context.Context, orderID string) (*domain.OrderDetail, error) {
	var det domain.OrderDetail
	var shipped, delivered sql.NullTime
	err := m.db.QueryRowContext(ctx, `
		SELECT o.order_id, c.full_name, o.status, o.date_placed,
		       o.date_shipped, o.date_delivered, s.region, s.rate
		FROM orderinfo o
		JOIN customer c ON c.customer_id = o.customer_id
		JOIN shipping s ON s.shipping_id = o.shipping_id
		WHERE o.order_id = ?`, orderID,
	).Scan(&det.OrderID, &det.CustomerName, &det.Status, &det.DatePlaced,
		&shipped, &delivered, &det.Region, &det.Rate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order detail: %w", err)
	}
	det.DateShipped = timePtr(shipped)
	det.DateDelivered = timePtr(delivered)

	lines, err := m.lineDetails(ctx, orderID)
	if err != nil {
		return nil, err
	}
	det.Lines = lines
	return &det, nil
}

func (m *MySQLAdapter) GetSnapshot(ctx context.Context, orderID string) (*domain.OrderSnapshot, error) {
	var snap domain.OrderSnapshot
	err := m.db.QueryRowContext(ctx, `
		SELECT o.order_id, c.full_name, c.email, s.region, s.rate,
		       o.status, o.date_placed
		FROM orderinfo o
		JOIN customer c ON c.customer_id = o.customer_id
		JOIN shipping s ON s.shipping_id = o.shipping_id
		WHERE o.order_id = ?`, orderID,
	).Scan(&snap.OrderID, &snap.CustomerName, &snap.Email, &snap.Region,
		&snap.Rate, &snap.Status, &snap.DatePlaced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order snapshot: %w", err)
	}

	lines, err := m.lineDetails(ctx, orderID)
	if err != nil {
		return nil, err
	}
	snap.Lines = lines
	return &snap, nil
}

func (m *MySQLAdapter) lineDetails(ctx context.Context, orderID string) ([]domain.LineDetail, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT ol.item_id, i.item_name, ol.quantity, i.sell_price
		FROM orderline ol
		JOIN item i ON i.item_id = ol.item_id
		WHERE ol.order_id = ?`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query line details: %w", err)
	}
	defer rows.Close()

	var lines []domain.LineDetail
	for rows.Next() {
		var ln domain.LineDetail
		if err := rows.Scan(&ln.ItemID, &ln.ItemName, &ln.Quantity, &ln.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan line detail: %w", err)
		}
		lines = append(lines, ln)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read line details: %w", err)
	}
	return lines, nil
}

func (m *MySQLAdapter) lineDetailsByOrder(ctx context.Context, orderIDs []string) (map[string][]domain.LineDetail, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(orderIDs)), ",")
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT ol.order_id, ol.item_id, i.item_name, ol.quantity, i.sell_price
		FROM orderline ol
		JOIN item i ON i.item_id = ol.item_id
		WHERE ol.order_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query line details: %w", err)
	}
	defer rows.Close()

	grouped := make(map[string][]domain.LineDetail)
	for rows.Next() {
		var orderID string
		var ln domain.LineDetail
		if err := rows.Scan(&orderID, &ln.ItemID, &ln.ItemName, &ln.Quantity, &ln.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan line detail: %w", err)
		}
		grouped[orderID] = append(grouped[orderID], ln)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read line details: %w", err)
	}
	return grouped, nil
}

func (m *MySQLAdapter) ListShippingOptions(ctx context.Context) ([]domain.ShippingOption, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT shipping_id, region, rate FROM shipping ORDER BY shipping_id`)
	if err != nil {
		return nil, fmt.Errorf("query shipping options: %w", err)
	}
	defer rows.Close()

	var opts []domain.ShippingOption
	for rows.Next() {
		var opt domain.ShippingOption
		if err := rows.Scan(&opt.ID, &opt.Region, &opt.Rate); err != nil {
			return nil, fmt.Errorf("scan shipping option: %w", err)
		}
		opts = append(opts, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read shipping options: %w", err)
	}
	return opts, nil
}

func (m *MySQLAdapter) GetStock(ctx context.Context, itemID string) (*domain.StockEntry, error) {
	var entry domain.StockEntry
	err := m.db.QueryRowContext(ctx, `
		SELECT item_id, quantity, updated_at FROM stock WHERE item_id = ?`, itemID,
	).Scan(&entry.ItemID, &entry.Quantity, &entry.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	return &entry, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
