package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/qrdine/qrdine/internal/model"
)

const categoryColumns = `id, tenant_id, name, description, sort_order, is_system,
	external_id, external_version, last_synced_at, created_at, updated_at`

func scanCategory(row interface{ Scan(...any) error }) (*model.MenuCategory, error) {
	c := &model.MenuCategory{}
	var description, externalVersion sql.NullString
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &description, &c.SortOrder, &c.System,
		&c.ExternalID, &externalVersion, &c.LastSyncedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Description = description.String
	c.ExternalVersion = externalVersion.String
	return c, nil
}

// CreateCategory creates a manually managed category (no external ID).
func CreateCategory(ctx context.Context, db DBTX, tenantID int64, name, description string, sortOrder int) (*model.MenuCategory, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO menu_categories (tenant_id, name, description, sort_order) VALUES (?, ?, ?, ?)`,
		tenantID, name, description, sortOrder,
	)
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting category id: %w", err)
	}
	return GetCategory(ctx, db, id)
}

// CreateSyncedCategory creates a category from a provider catalog entry.
func CreateSyncedCategory(ctx context.Context, db DBTX, tenantID int64, externalID, name, description, version string, sortOrder int, syncedAt time.Time) (*model.MenuCategory, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO menu_categories (tenant_id, name, description, sort_order, external_id, external_version, last_synced_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tenantID, name, description, sortOrder, externalID, version, syncedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating synced category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting category id: %w", err)
	}
	return GetCategory(ctx, db, id)
}

// UpdateSyncedCategory refreshes a category from a provider catalog entry.
func UpdateSyncedCategory(ctx context.Context, db DBTX, id int64, name, description, version string, syncedAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE menu_categories
		 SET name = ?, description = ?, external_version = ?, last_synced_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		name, description, version, syncedAt, id,
	)
	if err != nil {
		return fmt.Errorf("updating synced category: %w", err)
	}
	return nil
}

// GetCategory returns a category by ID.
func GetCategory(ctx context.Context, db DBTX, id int64) (*model.MenuCategory, error) {
	c, err := scanCategory(db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM menu_categories WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return c, nil
}

// GetCategoryByExternalID returns a tenant's category with the given
// provider ID. This lookup is the identity-preservation mechanism: at
// most one category exists per (tenant, external ID) pair.
func GetCategoryByExternalID(ctx context.Context, db DBTX, tenantID int64, externalID string) (*model.MenuCategory, error) {
	c, err := scanCategory(db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM menu_categories WHERE tenant_id = ? AND external_id = ?`,
		tenantID, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category by external id: %w", err)
	}
	return c, nil
}

// ListCategories returns a tenant's categories in sort order.
func ListCategories(ctx context.Context, db DBTX, tenantID int64) ([]model.MenuCategory, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM menu_categories WHERE tenant_id = ? ORDER BY sort_order, id`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []model.MenuCategory
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

// UpdateCategory updates a manually managed category's metadata.
func UpdateCategory(ctx context.Context, db DBTX, id int64, name, description string, sortOrder int) error {
	_, err := db.ExecContext(ctx,
		`UPDATE menu_categories SET name = ?, description = ?, sort_order = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		name, description, sortOrder, id,
	)
	if err != nil {
		return fmt.Errorf("updating category: %w", err)
	}
	return nil
}

// NextCategorySortOrder returns the sort position for a newly created
// category: one past the current maximum, so new categories never
// reorder existing ones.
func NextCategorySortOrder(ctx context.Context, db DBTX, tenantID int64) (int, error) {
	var next int
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order), 0) + 1 FROM menu_categories WHERE tenant_id = ?`,
		tenantID,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("getting next sort order: %w", err)
	}
	return next, nil
}

// EnsureSystemCategory returns the tenant's system category with the
// given name, creating it if absent. Uses INSERT OR IGNORE backed by
// the partial unique index on (tenant_id, name) so concurrent or
// repeated calls cannot create duplicates.
func EnsureSystemCategory(ctx context.Context, db DBTX, tenantID int64, name string) (*model.MenuCategory, error) {
	next, err := NextCategorySortOrder(ctx, db, tenantID)
	if err != nil {
		return nil, err
	}

	_, err = db.ExecContext(ctx,
		`INSERT OR IGNORE INTO menu_categories (tenant_id, name, sort_order, is_system) VALUES (?, ?, ?, 1)`,
		tenantID, name, next,
	)
	if err != nil {
		return nil, fmt.Errorf("ensuring system category: %w", err)
	}

	// Always read back (either our insert or the existing row).
	c, err := scanCategory(db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM menu_categories WHERE tenant_id = ? AND name = ? AND is_system = 1`,
		tenantID, name))
	if err != nil {
		return nil, fmt.Errorf("getting system category: %w", err)
	}
	return c, nil
}
