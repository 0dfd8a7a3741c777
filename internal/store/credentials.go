package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/qrdine/qrdine/internal/model"
)

// UpsertPOSCredentials stores a tenant's provider connection. Tokens
// must already be vault-encrypted by the caller.
func UpsertPOSCredentials(ctx context.Context, db DBTX, c *model.POSCredentials) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO pos_credentials (tenant_id, provider, access_token, refresh_token, merchant_id, location_id, expires_at, enabled, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (tenant_id) DO UPDATE SET
		     provider = excluded.provider,
		     access_token = excluded.access_token,
		     refresh_token = excluded.refresh_token,
		     merchant_id = excluded.merchant_id,
		     location_id = excluded.location_id,
		     expires_at = excluded.expires_at,
		     enabled = excluded.enabled,
		     updated_at = CURRENT_TIMESTAMP`,
		c.TenantID, c.Provider, c.AccessToken, c.RefreshToken, c.MerchantID, c.LocationID, c.ExpiresAt, c.Enabled,
	)
	if err != nil {
		return fmt.Errorf("storing pos credentials: %w", err)
	}
	return nil
}

// GetPOSCredentials returns a tenant's provider connection, or nil if
// none is configured.
func GetPOSCredentials(ctx context.Context, db DBTX, tenantID int64) (*model.POSCredentials, error) {
	c := &model.POSCredentials{}
	var refreshToken, merchantID, locationID sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT tenant_id, provider, access_token, refresh_token, merchant_id, location_id, expires_at, enabled, updated_at
		 FROM pos_credentials WHERE tenant_id = ?`, tenantID,
	).Scan(&c.TenantID, &c.Provider, &c.AccessToken, &refreshToken, &merchantID, &locationID, &c.ExpiresAt, &c.Enabled, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting pos credentials: %w", err)
	}
	c.RefreshToken = refreshToken.String
	c.MerchantID = merchantID.String
	c.LocationID = locationID.String
	return c, nil
}

// FindTenantByMerchant maps a provider-side account reference to the
// tenant connected to it. Square identifies accounts by merchant ID;
// Toast by restaurant (location) GUID. Returns 0 when no enabled
// integration matches.
func FindTenantByMerchant(ctx context.Context, db DBTX, provider, ref string) (int64, error) {
	if ref == "" {
		return 0, nil
	}
	var tenantID int64
	err := db.QueryRowContext(ctx,
		`SELECT tenant_id FROM pos_credentials
		 WHERE provider = ? AND enabled = 1 AND (merchant_id = ? OR location_id = ?)`,
		provider, ref, ref,
	).Scan(&tenantID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("resolving merchant reference: %w", err)
	}
	return tenantID, nil
}

// SetPOSIntegrationEnabled toggles a tenant's integration without
// touching stored tokens.
func SetPOSIntegrationEnabled(ctx context.Context, db DBTX, tenantID int64, enabled bool) error {
	_, err := db.ExecContext(ctx,
		`UPDATE pos_credentials SET enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE tenant_id = ?`,
		enabled, tenantID,
	)
	if err != nil {
		return fmt.Errorf("toggling pos integration: %w", err)
	}
	return nil
}
