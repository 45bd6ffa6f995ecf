package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ledgerline/commission/internal/commission/storage"
	"github.com/ledgerline/commission/internal/commission/storage/sqlite/migrations"
	sqlitemigrate "github.com/ledgerline/commission/internal/platform/storage/sqlitemigrate"
)

// OrdersStore reads the marketplace order read model. The commission engine
// only queries it; writes happen through the seed tool or an external
// ingestion pipeline.
type OrdersStore struct {
	sqlDB *sql.DB
}

// OpenOrders opens the order read model at the provided path and applies
// pending migrations.
func OpenOrders(path string) (*OrdersStore, error) {
	sqlDB, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.OrdersFS, "orders"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &OrdersStore{sqlDB: sqlDB}, nil
}

// Close closes the underlying SQLite database.
func (s *OrdersStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

const lineItemSelect = `
SELECT li.order_id, li.item_id, li.product_id, li.vendor_id, li.category_id,
       COALESCE(v.name, ''), COALESCE(c.name, ''),
       li.price, li.quantity, o.ordered_at
FROM order_line_items li
JOIN orders o ON o.order_id = li.order_id
LEFT JOIN vendors v ON v.id = li.vendor_id
LEFT JOIN categories c ON c.id = li.category_id
`

// ListLineItemsByOrderIDs returns every line belonging to the given orders,
// joined with vendor and category names, in stable (order, item) order.
func (s *OrdersStore) ListLineItemsByOrderIDs(ctx context.Context, orderIDs []int64) ([]storage.LineItemRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if len(orderIDs) == 0 {
		return []storage.LineItemRecord{}, nil
	}

	placeholders := strings.Repeat("?, ", len(orderIDs))
	placeholders = placeholders[:len(placeholders)-2]
	params := make([]any, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		params = append(params, orderID)
	}

	query := lineItemSelect + fmt.Sprintf("WHERE li.order_id IN (%s)\nORDER BY li.order_id, li.item_id", placeholders)
	rows, err := s.sqlDB.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("list line items by orders: %w", err)
	}
	defer rows.Close()
	return collectLineItems(rows)
}

// ListLineItemsInWindow returns every line whose order date falls in
// [start, end), optionally restricted to one vendor.
func (s *OrdersStore) ListLineItemsInWindow(ctx context.Context, start time.Time, end time.Time, vendorID string) ([]storage.LineItemRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	query := lineItemSelect + "WHERE o.ordered_at >= ? AND o.ordered_at < ?"
	params := []any{toMillis(start), toMillis(end)}
	if vendorID = strings.TrimSpace(vendorID); vendorID != "" {
		query += " AND li.vendor_id = ?"
		params = append(params, vendorID)
	}
	query += "\nORDER BY li.order_id, li.item_id"

	rows, err := s.sqlDB.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("list line items in window: %w", err)
	}
	defer rows.Close()
	return collectLineItems(rows)
}

// PutVendor upserts one vendor display row.
func (s *OrdersStore) PutVendor(ctx context.Context, record storage.VendorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record.ID = strings.TrimSpace(record.ID)
	if record.ID == "" {
		return fmt.Errorf("vendor id is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO vendors (id, name) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name
`, record.ID, strings.TrimSpace(record.Name)); err != nil {
		return fmt.Errorf("put vendor: %w", err)
	}
	return nil
}

// PutCategory upserts one category display row.
func (s *OrdersStore) PutCategory(ctx context.Context, record storage.CategoryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record.ID = strings.TrimSpace(record.ID)
	if record.ID == "" {
		return fmt.Errorf("category id is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO categories (id, name) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name
`, record.ID, strings.TrimSpace(record.Name)); err != nil {
		return fmt.Errorf("put category: %w", err)
	}
	return nil
}

// PutOrder atomically writes one order header with its line items, replacing
// any previous lines for the same order.
func (s *OrdersStore) PutOrder(ctx context.Context, order storage.OrderRecord, items []storage.OrderItemRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if order.OrderID <= 0 {
		return fmt.Errorf("order id must be positive")
	}
	if order.OrderedAt.IsZero() {
		return fmt.Errorf("order ordered_at is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order write: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback order write: %v", cause, rollbackErr)
		}
		return cause
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO orders (order_id, ordered_at) VALUES (?, ?)
ON CONFLICT(order_id) DO UPDATE SET ordered_at = excluded.ordered_at
`, order.OrderID, toMillis(order.OrderedAt)); err != nil {
		return rollbackWith(fmt.Errorf("put order: %w", err))
	}

	if _, err := tx.ExecContext(ctx, `
DELETE FROM order_line_items WHERE order_id = ?
`, order.OrderID); err != nil {
		return rollbackWith(fmt.Errorf("clear order lines: %w", err))
	}

	for _, item := range items {
		itemID := strings.TrimSpace(item.ItemID)
		if itemID == "" {
			return rollbackWith(fmt.Errorf("order %d line item id is required", order.OrderID))
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO order_line_items (
	order_id, item_id, product_id, vendor_id, category_id, price, quantity
) VALUES (?, ?, ?, ?, ?, ?, ?)
`,
			order.OrderID,
			itemID,
			strings.TrimSpace(item.ProductID),
			strings.TrimSpace(item.VendorID),
			strings.TrimSpace(item.CategoryID),
			item.Price,
			item.Quantity,
		); err != nil {
			if isUniqueConstraintError(err) {
				return rollbackWith(storage.ErrConflict)
			}
			return rollbackWith(fmt.Errorf("put order line item: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order write: %w", err)
	}
	return nil
}

func collectLineItems(rows *sql.Rows) ([]storage.LineItemRecord, error) {
	records := make([]storage.LineItemRecord, 0)
	for rows.Next() {
		var record storage.LineItemRecord
		var orderedAt int64
		if err := rows.Scan(
			&record.OrderID,
			&record.ItemID,
			&record.ProductID,
			&record.VendorID,
			&record.CategoryID,
			&record.VendorName,
			&record.CategoryName,
			&record.Price,
			&record.Quantity,
			&orderedAt,
		); err != nil {
			return nil, fmt.Errorf("scan line item row: %w", err)
		}
		record.OrderedAt = fromMillis(orderedAt)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line item rows: %w", err)
	}
	return records, nil
}
