package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/qrdine/qrdine/internal/model"
)

// Sync status writes run against the bare connection, never the
// reconciliation transaction, so the polling UI sees "syncing" while a
// long run is still open.

// SetSyncing marks a tenant's sync as running and clears the previous
// error.
func SetSyncing(ctx context.Context, db DBTX, tenantID int64) error {
	return upsertSyncStatus(ctx, db, tenantID,
		`status = 'syncing', last_error = NULL`, model.SyncStatusSyncing, nil, nil)
}

// SetSyncIdle marks a tenant's sync as successfully completed.
func SetSyncIdle(ctx context.Context, db DBTX, tenantID int64, syncedAt time.Time) error {
	return upsertSyncStatus(ctx, db, tenantID,
		`status = 'idle', last_synced_at = excluded.last_synced_at, last_error = NULL`,
		model.SyncStatusIdle, &syncedAt, nil)
}

// SetSyncError records a failed run with a human-readable message.
func SetSyncError(ctx context.Context, db DBTX, tenantID int64, message string) error {
	return upsertSyncStatus(ctx, db, tenantID,
		`status = 'error', last_error = excluded.last_error`,
		model.SyncStatusError, nil, &message)
}

func upsertSyncStatus(ctx context.Context, db DBTX, tenantID int64, updateSet, status string, syncedAt *time.Time, lastError *string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO sync_status (tenant_id, status, last_synced_at, last_error, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (tenant_id) DO UPDATE SET `+updateSet+`, updated_at = CURRENT_TIMESTAMP`,
		tenantID, status, syncedAt, lastError,
	)
	if err != nil {
		return fmt.Errorf("writing sync status: %w", err)
	}
	return nil
}

// GetSyncStatus returns a tenant's sync state. A tenant that has never
// synced reports idle.
func GetSyncStatus(ctx context.Context, db DBTX, tenantID int64) (*model.SyncStatus, error) {
	s := &model.SyncStatus{}
	var lastError sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT tenant_id, status, last_synced_at, last_error, updated_at
		 FROM sync_status WHERE tenant_id = ?`, tenantID,
	).Scan(&s.TenantID, &s.Status, &s.LastSyncedAt, &lastError, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return &model.SyncStatus{TenantID: tenantID, Status: model.SyncStatusIdle}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting sync status: %w", err)
	}
	s.LastError = lastError.String
	return s, nil
}
