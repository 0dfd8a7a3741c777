package possync

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/qrdine/qrdine/internal/db"
	"github.com/qrdine/qrdine/internal/model"
	"github.com/qrdine/qrdine/internal/pos"
	"github.com/qrdine/qrdine/internal/store"
	"github.com/qrdine/qrdine/internal/vault"
)

type stubClient struct {
	catalog *pos.Catalog
	err     error
	// block, when set, delays the fetch until the channel closes.
	block chan struct{}
}

func (s *stubClient) FetchFullCatalog(ctx context.Context) (*pos.Catalog, error) {
	if s.block != nil {
		<-s.block
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.catalog, nil
}

// testEngine wires an engine against an in-memory database, a real
// vault, stored credentials, and a stub provider client.
func testEngine(t *testing.T, client pos.Client) (*Engine, *sql.DB, int64) {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	tenant, err := store.CreateTenant(ctx, database, "Sync Cafe", "sync-cafe", "USD")
	if err != nil {
		t.Fatal(err)
	}

	key := make([]byte, vault.KeySize)
	v, err := vault.New(key)
	if err != nil {
		t.Fatal(err)
	}

	encrypted, err := v.Encrypt("provider-access-token")
	if err != nil {
		t.Fatal(err)
	}
	err = store.UpsertPOSCredentials(ctx, database, &model.POSCredentials{
		TenantID:    tenant.ID,
		Provider:    model.ProviderSquare,
		AccessToken: encrypted,
		Enabled:     true,
	})
	if err != nil {
		t.Fatal(err)
	}

	engine := &Engine{
		DB:    database,
		Vault: v,
		ClientFactory: func(creds *model.POSCredentials, accessToken string) (pos.Client, error) {
			if accessToken != "provider-access-token" {
				t.Errorf("expected decrypted token, got %q", accessToken)
			}
			return client, nil
		},
	}
	return engine, database, tenant.ID
}

func scenarioCatalog() *pos.Catalog {
	return &pos.Catalog{
		Categories: []pos.Category{
			{ExternalID: "cat-1", Name: "Drinks", Version: "1"},
			{ExternalID: "cat-2", Name: "Mains", Version: "1"},
		},
		Items: []pos.Item{
			{
				ExternalID:         "item-1",
				ExternalCategoryID: "cat-1",
				Name:               "Latte",
				PriceMinorUnits:    450,
				Version:            "1",
				ModifierGroups: []pos.ModifierGroup{
					{ExternalID: "mods-1", Name: "Milk", Required: true, Options: []pos.ModifierOption{
						{ExternalID: "opt-1", Name: "Oat", PriceMinorUnits: 50},
						{ExternalID: "opt-2", Name: "Whole"},
					}},
				},
			},
			{
				ExternalID:         "item-2",
				ExternalCategoryID: "cat-2",
				Name:               "Pad Thai",
				PriceMinorUnits:    1299,
				Version:            "1",
			},
			{ExternalID: "item-3", Name: "Retired Dish", PriceMinorUnits: 900, Deleted: true},
		},
	}
}

func TestRunScenario(t *testing.T) {
	catalog := scenarioCatalog()
	engine, database, tenantID := testEngine(t, &stubClient{catalog: catalog})
	ctx := context.Background()

	// Pre-existing row for the item the provider will report deleted.
	fallbackCat, _ := store.CreateCategory(ctx, database, tenantID, "Old Menu", "", 1)
	store.CreateSyncedItem(ctx, database, tenantID, fallbackCat.ID, "item-3", "Retired Dish", "", 9.00, "", "0", time.Now())

	result, err := engine.Run(ctx, tenantID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, errors: %v", result.Errors)
	}
	if result.CategoriesSynced != 2 || result.ItemsSynced != 2 || result.ModifiersSynced != 1 {
		t.Errorf("unexpected counts %+v", result)
	}

	// Deleted item is soft-deleted with price and name untouched.
	retired, _ := store.GetItemByExternalID(ctx, database, tenantID, "item-3")
	if retired == nil {
		t.Fatal("soft-deleted item row must persist")
	}
	if retired.Available || retired.Name != "Retired Dish" || retired.Price != 9.00 {
		t.Errorf("unexpected soft-deleted item %+v", retired)
	}

	// Price conversion is exact minor units / 100.
	latte, _ := store.GetItemByExternalID(ctx, database, tenantID, "item-1")
	if latte.Price != 4.50 {
		t.Errorf("expected price 4.50, got %v", latte.Price)
	}
	padThai, _ := store.GetItemByExternalID(ctx, database, tenantID, "item-2")
	if padThai.Price != 12.99 {
		t.Errorf("expected price 12.99, got %v", padThai.Price)
	}

	// Modifier group with its options.
	mods, _ := store.ListModifiersForItem(ctx, database, latte.ID)
	if len(mods) != 1 || !mods[0].Required || len(mods[0].Options) != 2 {
		t.Errorf("unexpected modifiers %+v", mods)
	}

	status, _ := store.GetSyncStatus(ctx, database, tenantID)
	if status.Status != model.SyncStatusIdle || status.LastSyncedAt == nil {
		t.Errorf("unexpected status after success %+v", status)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	engine, database, tenantID := testEngine(t, &stubClient{catalog: scenarioCatalog()})
	ctx := context.Background()

	first, err := engine.Run(ctx, tenantID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := engine.Run(ctx, tenantID)
	if err != nil {
		t.Fatal(err)
	}

	if first.CategoriesSynced != second.CategoriesSynced ||
		first.ItemsSynced != second.ItemsSynced ||
		first.ModifiersSynced != second.ModifiersSynced {
		t.Errorf("counts changed between identical runs: %+v vs %+v", first, second)
	}

	categories, _ := store.ListCategories(ctx, database, tenantID)
	if len(categories) != 2 {
		t.Errorf("expected 2 categories after double run, got %d", len(categories))
	}
	items, _ := store.ListItems(ctx, database, tenantID, 0, false)
	if len(items) != 2 {
		t.Errorf("expected 2 items after double run, got %d", len(items))
	}
}

func TestIdentityStability(t *testing.T) {
	client := &stubClient{catalog: scenarioCatalog()}
	engine, database, tenantID := testEngine(t, client)
	ctx := context.Background()

	if _, err := engine.Run(ctx, tenantID); err != nil {
		t.Fatal(err)
	}
	before, _ := store.GetItemByExternalID(ctx, database, tenantID, "item-1")

	// Rename, reprice, and recategorize the item on the provider side.
	client.catalog = &pos.Catalog{
		Categories: []pos.Category{{ExternalID: "cat-2", Name: "Mains", Version: "2"}},
		Items: []pos.Item{{
			ExternalID:         "item-1",
			ExternalCategoryID: "cat-2",
			Name:               "Flat White",
			PriceMinorUnits:    500,
			Version:            "2",
		}},
	}
	if _, err := engine.Run(ctx, tenantID); err != nil {
		t.Fatal(err)
	}

	after, _ := store.GetItemByExternalID(ctx, database, tenantID, "item-1")
	if after.ID != before.ID {
		t.Errorf("external id must map to the same local row, got %d then %d", before.ID, after.ID)
	}
	if after.Name != "Flat White" || after.Price != 5.00 {
		t.Errorf("unexpected updated item %+v", after)
	}
}

func TestUncategorizedFallbackIsSingleton(t *testing.T) {
	catalog := &pos.Catalog{
		Items: []pos.Item{
			{ExternalID: "item-a", Name: "Mystery A", PriceMinorUnits: 100, Version: "1"},
			{ExternalID: "item-b", Name: "Mystery B", PriceMinorUnits: 200, Version: "1", ExternalCategoryID: "dangling-ref"},
		},
	}
	engine, database, tenantID := testEngine(t, &stubClient{catalog: catalog})
	ctx := context.Background()

	if _, err := engine.Run(ctx, tenantID); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Run(ctx, tenantID); err != nil {
		t.Fatal(err)
	}

	categories, _ := store.ListCategories(ctx, database, tenantID)
	fallbacks := 0
	for _, c := range categories {
		if c.Name == model.UncategorizedName {
			fallbacks++
		}
	}
	if fallbacks != 1 {
		t.Errorf("expected exactly one %q category, got %d", model.UncategorizedName, fallbacks)
	}
}

func TestRunRollsBackOnFailure(t *testing.T) {
	// The second item is invalid, so the run fails after the first item
	// was applied inside the transaction.
	catalog := &pos.Catalog{
		Categories: []pos.Category{{ExternalID: "cat-1", Name: "Drinks", Version: "1"}},
		Items: []pos.Item{
			{ExternalID: "item-1", ExternalCategoryID: "cat-1", Name: "Latte", PriceMinorUnits: 450, Version: "1"},
			{ExternalID: "", Name: "Broken", PriceMinorUnits: 100, Version: "1"},
		},
	}
	engine, database, tenantID := testEngine(t, &stubClient{catalog: catalog})
	ctx := context.Background()

	result, err := engine.Run(ctx, tenantID)
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if result.Success {
		t.Error("expected success = false")
	}

	// Nothing from the failed run persists.
	categories, _ := store.ListCategories(ctx, database, tenantID)
	if len(categories) != 0 {
		t.Errorf("expected rollback of categories, got %d", len(categories))
	}
	items, _ := store.ListItems(ctx, database, tenantID, 0, false)
	if len(items) != 0 {
		t.Errorf("expected rollback of items, got %d", len(items))
	}

	status, _ := store.GetSyncStatus(ctx, database, tenantID)
	if status.Status != model.SyncStatusError || status.LastError == "" {
		t.Errorf("unexpected status after failure %+v", status)
	}
}

func TestRunProviderErrorRecorded(t *testing.T) {
	provErr := &pos.ProviderError{StatusCode: 502, Body: "upstream exploded"}
	engine, database, tenantID := testEngine(t, &stubClient{err: provErr})
	ctx := context.Background()

	result, err := engine.Run(ctx, tenantID)
	var got *pos.ProviderError
	if !errors.As(err, &got) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "upstream exploded") {
		t.Errorf("expected raw body in result errors, got %v", result.Errors)
	}

	status, _ := store.GetSyncStatus(ctx, database, tenantID)
	if status.Status != model.SyncStatusError || !strings.Contains(status.LastError, "upstream exploded") {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestRunIntegrationNotEnabled(t *testing.T) {
	engine, database, tenantID := testEngine(t, &stubClient{catalog: &pos.Catalog{}})
	ctx := context.Background()

	store.SetPOSIntegrationEnabled(ctx, database, tenantID, false)

	_, err := engine.Run(ctx, tenantID)
	if !errors.Is(err, pos.ErrIntegrationNotEnabled) {
		t.Fatalf("expected ErrIntegrationNotEnabled, got %v", err)
	}
}

func TestRunTamperedCredentials(t *testing.T) {
	engine, database, tenantID := testEngine(t, &stubClient{catalog: &pos.Catalog{}})
	ctx := context.Background()

	creds, _ := store.GetPOSCredentials(ctx, database, tenantID)
	creds.AccessToken = "00." + strings.Repeat("ab", 16) + ".cafe"
	store.UpsertPOSCredentials(ctx, database, creds)

	_, err := engine.Run(ctx, tenantID)
	if err == nil {
		t.Fatal("expected decrypt failure to abort the run")
	}

	status, _ := store.GetSyncStatus(ctx, database, tenantID)
	if status.Status != model.SyncStatusError {
		t.Errorf("expected error status, got %q", status.Status)
	}
}

func TestPriceFromMinorUnits(t *testing.T) {
	cases := []struct {
		minor int64
		want  float64
	}{
		{1299, 12.99},
		{100, 1.00},
		{0, 0},
		{5, 0.05},
		{450, 4.50},
	}
	for _, c := range cases {
		if got := priceFromMinorUnits(c.minor); got != c.want {
			t.Errorf("priceFromMinorUnits(%d) = %v, want %v", c.minor, got, c.want)
		}
	}
}

func TestRunnerRejectsConcurrentRun(t *testing.T) {
	block := make(chan struct{})
	client := &stubClient{catalog: &pos.Catalog{}, block: block}
	engine, _, tenantID := testEngine(t, client)
	runner := NewRunner(engine)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runner.Run(context.Background(), tenantID)
	}()

	// Wait for the first run to hold the slot.
	deadline := time.After(2 * time.Second)
	for {
		runner.mu.Lock()
		active := runner.active[tenantID]
		runner.mu.Unlock()
		if active {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first run never became active")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := runner.Run(context.Background(), tenantID); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("expected ErrSyncInProgress, got %v", err)
	}

	close(block)
	<-done

	// After the first run finishes, a new one is accepted.
	if _, err := runner.Run(context.Background(), tenantID); errors.Is(err, ErrSyncInProgress) {
		t.Error("expected runner slot to be released")
	}
}
