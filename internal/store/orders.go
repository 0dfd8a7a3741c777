package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/qrdine/qrdine/internal/model"
)

// OrderLine is one requested item in a new order.
type OrderLine struct {
	ItemID   int64  `json:"item_id"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

// CreateOrder places an order for a table in a single transaction. Each
// line's unit price is snapshotted from the current menu so later syncs
// cannot change it. Unavailable items are rejected.
func CreateOrder(ctx context.Context, db *sql.DB, tenantID, tableID int64, lines []OrderLine, notes string) (*model.Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("order must contain at least one item")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO orders (tenant_id, table_id, notes) VALUES (?, ?, ?)`,
		tenantID, tableID, notes,
	)
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}
	orderID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting order id: %w", err)
	}

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("quantity must be positive")
		}

		item, err := GetItem(ctx, tx, line.ItemID)
		if err != nil {
			return nil, err
		}
		if item == nil || item.TenantID != tenantID {
			return nil, fmt.Errorf("menu item %d not found", line.ItemID)
		}
		if !item.Available {
			return nil, fmt.Errorf("menu item %q is not available", item.Name)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, item_id, quantity, unit_price, notes) VALUES (?, ?, ?, ?, ?)`,
			orderID, line.ItemID, line.Quantity, item.Price, line.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("adding order line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing order: %w", err)
	}

	return GetOrder(ctx, db, orderID)
}

// GetOrder returns an order with its lines.
func GetOrder(ctx context.Context, db DBTX, id int64) (*model.Order, error) {
	o := &model.Order{}
	var notes sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, tenant_id, table_id, status, notes, created_at, updated_at
		 FROM orders WHERE id = ?`, id,
	).Scan(&o.ID, &o.TenantID, &o.TableID, &o.Status, &notes, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}
	o.Notes = notes.String

	rows, err := db.QueryContext(ctx,
		`SELECT oi.id, oi.order_id, oi.item_id, i.name, oi.quantity, oi.unit_price, oi.notes
		 FROM order_items oi
		 JOIN menu_items i ON i.id = oi.item_id
		 WHERE oi.order_id = ?
		 ORDER BY oi.id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line model.OrderItem
		var lineNotes sql.NullString
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ItemID, &line.ItemName, &line.Quantity, &line.UnitPrice, &lineNotes); err != nil {
			return nil, fmt.Errorf("scanning order line: %w", err)
		}
		line.Notes = lineNotes.String
		o.Items = append(o.Items, line)
	}
	return o, rows.Err()
}

// ListOrders returns a tenant's orders, newest first, optionally
// filtered by status.
func ListOrders(ctx context.Context, db DBTX, tenantID int64, status string) ([]model.Order, error) {
	query := `SELECT id, tenant_id, table_id, status, notes, created_at, updated_at
	          FROM orders WHERE tenant_id = ?`
	args := []any{tenantID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		var notes sql.NullString
		if err := rows.Scan(&o.ID, &o.TenantID, &o.TableID, &o.Status, &notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		o.Notes = notes.String
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateOrderStatus moves an order to a new status.
func UpdateOrderStatus(ctx context.Context, db DBTX, id int64, status string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}
	return nil
}
