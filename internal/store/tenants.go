package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/qrdine/qrdine/internal/model"
)

// CreateTenant creates a new tenant.
func CreateTenant(ctx context.Context, db DBTX, name, slug, currency string) (*model.Tenant, error) {
	if currency == "" {
		currency = "USD"
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO tenants (name, slug, currency) VALUES (?, ?, ?)`,
		name, slug, currency,
	)
	if err != nil {
		return nil, fmt.Errorf("creating tenant: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting tenant id: %w", err)
	}

	return GetTenant(ctx, db, id)
}

// GetTenant returns a tenant by ID.
func GetTenant(ctx context.Context, db DBTX, id int64) (*model.Tenant, error) {
	t := &model.Tenant{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, slug, currency, created_at FROM tenants WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.Currency, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting tenant: %w", err)
	}
	return t, nil
}

// GetTenantBySlug returns a tenant by its URL slug.
func GetTenantBySlug(ctx context.Context, db DBTX, slug string) (*model.Tenant, error) {
	t := &model.Tenant{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, slug, currency, created_at FROM tenants WHERE slug = ?`, slug,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.Currency, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting tenant by slug: %w", err)
	}
	return t, nil
}
