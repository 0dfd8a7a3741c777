package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/qrdine/qrdine/internal/model"
)

// CreateTable creates a dining table with a fresh QR token.
func CreateTable(ctx context.Context, db DBTX, tenantID int64, label string) (*model.DiningTable, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generating qr token: %w", err)
	}
	token := hex.EncodeToString(buf)

	result, err := db.ExecContext(ctx,
		`INSERT INTO dining_tables (tenant_id, label, qr_token) VALUES (?, ?, ?)`,
		tenantID, label, token,
	)
	if err != nil {
		return nil, fmt.Errorf("creating table: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting table id: %w", err)
	}
	return GetTable(ctx, db, id)
}

// GetTable returns a dining table by ID.
func GetTable(ctx context.Context, db DBTX, id int64) (*model.DiningTable, error) {
	t := &model.DiningTable{}
	err := db.QueryRowContext(ctx,
		`SELECT id, tenant_id, label, qr_token, created_at, deleted_at
		 FROM dining_tables WHERE id = ?`, id,
	).Scan(&t.ID, &t.TenantID, &t.Label, &t.QRToken, &t.CreatedAt, &t.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting table: %w", err)
	}
	return t, nil
}

// GetTableByToken resolves a scanned QR token to its table. Deleted
// tables do not resolve.
func GetTableByToken(ctx context.Context, db DBTX, token string) (*model.DiningTable, error) {
	t := &model.DiningTable{}
	err := db.QueryRowContext(ctx,
		`SELECT id, tenant_id, label, qr_token, created_at, deleted_at
		 FROM dining_tables WHERE qr_token = ? AND deleted_at IS NULL`, token,
	).Scan(&t.ID, &t.TenantID, &t.Label, &t.QRToken, &t.CreatedAt, &t.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting table by token: %w", err)
	}
	return t, nil
}

// ListTables returns a tenant's non-deleted tables.
func ListTables(ctx context.Context, db DBTX, tenantID int64) ([]model.DiningTable, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, tenant_id, label, qr_token, created_at, deleted_at
		 FROM dining_tables WHERE tenant_id = ? AND deleted_at IS NULL ORDER BY label`, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []model.DiningTable
	for rows.Next() {
		var t model.DiningTable
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Label, &t.QRToken, &t.CreatedAt, &t.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning table: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// DeleteTable soft-deletes a dining table.
func DeleteTable(ctx context.Context, db DBTX, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE dining_tables SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting table: %w", err)
	}
	return nil
}
