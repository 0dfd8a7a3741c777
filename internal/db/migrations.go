package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at
// the end.
var migrations = []string{
	// Migration 1: lookup indexes for the hot queries, order listing by
	// tenant and item listing by category.
	`CREATE INDEX IF NOT EXISTS idx_orders_tenant_created
	     ON orders(tenant_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_items_tenant_category
	     ON menu_items(tenant_id, category_id)`,
}

// Migrate creates the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
