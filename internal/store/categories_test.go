package store

import (
	"context"
	"testing"
	"time"

	"github.com/qrdine/qrdine/internal/db"
	"github.com/qrdine/qrdine/internal/model"
)

func createTestTenant(t *testing.T, database DBTX) *model.Tenant {
	t.Helper()
	tenant, err := CreateTenant(context.Background(), database, "Test Cafe", "test-cafe", "USD")
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	return tenant
}

func TestCategoryExternalIDLookup(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	tenant := createTestTenant(t, database)

	now := time.Now()
	created, err := CreateSyncedCategory(ctx, database, tenant.ID, "sq-cat-1", "Drinks", "", "5", 1, now)
	if err != nil {
		t.Fatalf("CreateSyncedCategory: %v", err)
	}

	found, err := GetCategoryByExternalID(ctx, database, tenant.ID, "sq-cat-1")
	if err != nil {
		t.Fatalf("GetCategoryByExternalID: %v", err)
	}
	if found == nil || found.ID != created.ID {
		t.Fatalf("expected category %d, got %+v", created.ID, found)
	}

	// A different tenant must not see it.
	otherTenant, _ := CreateTenant(ctx, database, "Other", "other", "USD")
	found, err = GetCategoryByExternalID(ctx, database, otherTenant.ID, "sq-cat-1")
	if err != nil {
		t.Fatal(err)
	}
	if found != nil {
		t.Error("external id lookup must be tenant-scoped")
	}
}

func TestEnsureSystemCategoryIdempotent(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	tenant := createTestTenant(t, database)

	first, err := EnsureSystemCategory(ctx, database, tenant.ID, model.UncategorizedName)
	if err != nil {
		t.Fatalf("EnsureSystemCategory: %v", err)
	}
	second, err := EnsureSystemCategory(ctx, database, tenant.ID, model.UncategorizedName)
	if err != nil {
		t.Fatalf("EnsureSystemCategory (second): %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("expected one fallback category, got %d and %d", first.ID, second.ID)
	}

	categories, _ := ListCategories(ctx, database, tenant.ID)
	if len(categories) != 1 {
		t.Errorf("expected 1 category, got %d", len(categories))
	}
}

func TestNextCategorySortOrder(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	tenant := createTestTenant(t, database)

	next, err := NextCategorySortOrder(ctx, database, tenant.ID)
	if err != nil {
		t.Fatal(err)
	}
	if next != 1 {
		t.Errorf("expected 1 for empty menu, got %d", next)
	}

	CreateCategory(ctx, database, tenant.ID, "Starters", "", 7)
	next, _ = NextCategorySortOrder(ctx, database, tenant.ID)
	if next != 8 {
		t.Errorf("expected 8 after sort_order 7, got %d", next)
	}
}
