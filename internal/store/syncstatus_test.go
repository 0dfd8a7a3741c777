package store

import (
	"context"
	"testing"
	"time"

	"github.com/qrdine/qrdine/internal/db"
	"github.com/qrdine/qrdine/internal/model"
)

func TestSyncStatusTransitions(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	tenant := createTestTenant(t, database)

	// Never-synced tenants report idle.
	status, err := GetSyncStatus(ctx, database, tenant.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != model.SyncStatusIdle {
		t.Errorf("expected idle for fresh tenant, got %q", status.Status)
	}

	if err := SetSyncing(ctx, database, tenant.ID); err != nil {
		t.Fatalf("SetSyncing: %v", err)
	}
	status, _ = GetSyncStatus(ctx, database, tenant.ID)
	if status.Status != model.SyncStatusSyncing || status.LastError != "" {
		t.Errorf("unexpected status %+v", status)
	}

	syncedAt := time.Now()
	if err := SetSyncIdle(ctx, database, tenant.ID, syncedAt); err != nil {
		t.Fatalf("SetSyncIdle: %v", err)
	}
	status, _ = GetSyncStatus(ctx, database, tenant.ID)
	if status.Status != model.SyncStatusIdle || status.LastSyncedAt == nil {
		t.Errorf("unexpected status %+v", status)
	}

	if err := SetSyncError(ctx, database, tenant.ID, "provider returned 500"); err != nil {
		t.Fatalf("SetSyncError: %v", err)
	}
	status, _ = GetSyncStatus(ctx, database, tenant.ID)
	if status.Status != model.SyncStatusError || status.LastError != "provider returned 500" {
		t.Errorf("unexpected status %+v", status)
	}
	// Last successful sync time survives the error.
	if status.LastSyncedAt == nil {
		t.Error("expected last_synced_at to survive an error")
	}

	// Next trigger clears the error.
	SetSyncing(ctx, database, tenant.ID)
	status, _ = GetSyncStatus(ctx, database, tenant.ID)
	if status.LastError != "" {
		t.Error("expected error cleared on new run")
	}
}
