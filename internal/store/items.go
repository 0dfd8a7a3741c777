package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/qrdine/qrdine/internal/model"
)

const itemColumns = `id, tenant_id, category_id, name, description, price, image_url, image_mime,
	available, external_id, external_version, last_synced_at, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (*model.MenuItem, error) {
	it := &model.MenuItem{}
	var description, imageURL, imageMime, externalVersion sql.NullString
	err := row.Scan(&it.ID, &it.TenantID, &it.CategoryID, &it.Name, &description, &it.Price,
		&imageURL, &imageMime, &it.Available, &it.ExternalID, &externalVersion,
		&it.LastSyncedAt, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	it.Description = description.String
	it.ImageURL = imageURL.String
	it.ImageMime = imageMime.String
	it.ExternalVersion = externalVersion.String
	return it, nil
}

// CreateItem creates a manually managed menu item (no external ID).
func CreateItem(ctx context.Context, db DBTX, tenantID, categoryID int64, name, description string, price float64) (*model.MenuItem, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO menu_items (tenant_id, category_id, name, description, price) VALUES (?, ?, ?, ?, ?)`,
		tenantID, categoryID, name, description, price,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}
	return GetItem(ctx, db, id)
}

// CreateSyncedItem creates a menu item from a provider catalog entry.
func CreateSyncedItem(ctx context.Context, db DBTX, tenantID, categoryID int64, externalID, name, description string, price float64, imageURL, version string, syncedAt time.Time) (*model.MenuItem, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO menu_items (tenant_id, category_id, name, description, price, image_url,
		                         available, external_id, external_version, last_synced_at)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
		tenantID, categoryID, name, description, price, imageURL, externalID, version, syncedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating synced item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}
	return GetItem(ctx, db, id)
}

// UpdateSyncedItem refreshes a menu item from a provider catalog entry
// and marks it available again.
func UpdateSyncedItem(ctx context.Context, db DBTX, id, categoryID int64, name, description string, price float64, imageURL, version string, syncedAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE menu_items
		 SET category_id = ?, name = ?, description = ?, price = ?, image_url = ?,
		     available = 1, external_version = ?, last_synced_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		categoryID, name, description, price, imageURL, version, syncedAt, id,
	)
	if err != nil {
		return fmt.Errorf("updating synced item: %w", err)
	}
	return nil
}

// MarkUnavailableByExternalID soft-deletes all of a tenant's items with
// the given provider ID: available goes to false, everything else
// (name, price, category) is left untouched. Rows are never removed
// because order lines reference them.
func MarkUnavailableByExternalID(ctx context.Context, db DBTX, tenantID int64, externalID string, syncedAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE menu_items SET available = 0, last_synced_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE tenant_id = ? AND external_id = ?`,
		syncedAt, tenantID, externalID,
	)
	if err != nil {
		return fmt.Errorf("marking item unavailable: %w", err)
	}
	return nil
}

// GetItem returns a menu item by ID.
func GetItem(ctx context.Context, db DBTX, id int64) (*model.MenuItem, error) {
	it, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM menu_items WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return it, nil
}

// GetItemByExternalID returns a tenant's item with the given provider
// ID. At most one exists per (tenant, external ID) pair.
func GetItemByExternalID(ctx context.Context, db DBTX, tenantID int64, externalID string) (*model.MenuItem, error) {
	it, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM menu_items WHERE tenant_id = ? AND external_id = ?`,
		tenantID, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item by external id: %w", err)
	}
	return it, nil
}

// ListItems returns a tenant's menu items, optionally filtered by
// category and availability.
func ListItems(ctx context.Context, db DBTX, tenantID int64, categoryID int64, availableOnly bool) ([]model.MenuItem, error) {
	query := `SELECT ` + itemColumns + ` FROM menu_items WHERE tenant_id = ?`
	args := []any{tenantID}

	if categoryID > 0 {
		query += ` AND category_id = ?`
		args = append(args, categoryID)
	}
	if availableOnly {
		query += ` AND available = 1`
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.MenuItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// UpdateItem updates a manually managed item's metadata.
func UpdateItem(ctx context.Context, db DBTX, id, categoryID int64, name, description string, price float64, available bool) error {
	_, err := db.ExecContext(ctx,
		`UPDATE menu_items SET category_id = ?, name = ?, description = ?, price = ?, available = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		categoryID, name, description, price, available, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// SetItemImage stores a processed photo for an item.
func SetItemImage(ctx context.Context, db DBTX, id int64, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE menu_items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's photo data and MIME type.
func GetItemImage(ctx context.Context, db DBTX, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM menu_items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}
