// Package possync implements the POS catalog reconciliation engine: it
// pulls a provider's full catalog, normalizes it, and merges it into
// the tenant's local menu inside one transaction.
package possync

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/qrdine/qrdine/internal/model"
	"github.com/qrdine/qrdine/internal/pos"
	"github.com/qrdine/qrdine/internal/pos/square"
	"github.com/qrdine/qrdine/internal/pos/toast"
	"github.com/qrdine/qrdine/internal/store"
	"github.com/qrdine/qrdine/internal/vault"
)

// Result reports one reconciliation run. Counts accumulated before a
// failure are informational only: the transaction has rolled back, so
// they do not reflect persisted state.
type Result struct {
	Success          bool     `json:"success"`
	CategoriesSynced int      `json:"categories_synced"`
	ItemsSynced      int      `json:"items_synced"`
	ModifiersSynced  int      `json:"modifiers_synced"`
	Errors           []string `json:"errors"`
}

// ClientFactory builds a provider client from stored credentials and
// the decrypted access token.
type ClientFactory func(creds *model.POSCredentials, accessToken string) (pos.Client, error)

// Engine runs catalog reconciliation for tenants. It is not safe to
// run twice concurrently for the same tenant; callers go through a
// Runner, which enforces that.
type Engine struct {
	DB    *sql.DB
	Vault *vault.Vault
	// ClientFactory is overridable for tests; NewEngine installs the
	// real provider clients.
	ClientFactory ClientFactory
}

// NewEngine creates an engine with the real provider clients.
func NewEngine(db *sql.DB, v *vault.Vault) *Engine {
	return &Engine{
		DB:    db,
		Vault: v,
		ClientFactory: func(creds *model.POSCredentials, accessToken string) (pos.Client, error) {
			var expiresAt time.Time
			if creds.ExpiresAt != nil {
				expiresAt = *creds.ExpiresAt
			}
			switch creds.Provider {
			case model.ProviderSquare:
				return square.NewClient(square.Options{
					AccessToken: accessToken,
					ExpiresAt:   expiresAt,
				}), nil
			case model.ProviderToast:
				return toast.NewClient(toast.Options{
					AccessToken:  accessToken,
					RestaurantID: creds.LocationID,
					ExpiresAt:    expiresAt,
				}), nil
			default:
				return nil, fmt.Errorf("unknown provider %q", creds.Provider)
			}
		},
	}
}

// Run executes one reconciliation run for a tenant: fetch, normalize,
// apply. All menu writes happen in a single transaction; a failure at
// any point rolls back every change from this run. Status transitions
// are written outside that transaction so polling clients see progress.
func (e *Engine) Run(ctx context.Context, tenantID int64) (*Result, error) {
	result := &Result{Errors: []string{}}

	if err := store.SetSyncing(ctx, e.DB, tenantID); err != nil {
		return e.fail(ctx, tenantID, result, err)
	}

	creds, err := store.GetPOSCredentials(ctx, e.DB, tenantID)
	if err != nil {
		return e.fail(ctx, tenantID, result, err)
	}
	if creds == nil || !creds.Enabled || creds.AccessToken == "" {
		return e.fail(ctx, tenantID, result, pos.ErrIntegrationNotEnabled)
	}

	accessToken, err := e.Vault.Decrypt(creds.AccessToken)
	if err != nil {
		return e.fail(ctx, tenantID, result, err)
	}

	client, err := e.ClientFactory(creds, accessToken)
	if err != nil {
		return e.fail(ctx, tenantID, result, err)
	}

	catalog, err := client.FetchFullCatalog(ctx)
	if err != nil {
		return e.fail(ctx, tenantID, result, err)
	}

	now := time.Now().UTC()
	if err := e.applyInTx(ctx, tenantID, catalog, result, now); err != nil {
		return e.fail(ctx, tenantID, result, err)
	}

	if err := store.SetSyncIdle(ctx, e.DB, tenantID, now); err != nil {
		// The catalog is committed; a status write failure must not turn
		// a successful run into a failed one.
		log.Printf("sync: recording idle status for tenant %d: %v", tenantID, err)
	}

	result.Success = true
	return result, nil
}

// applyInTx merges the catalog into the menu inside one transaction.
// The transaction is committed or rolled back before this returns:
// SQLite allows a single writer, so the error-status write in fail
// cannot happen while the run's own transaction is still open.
func (e *Engine) applyInTx(ctx context.Context, tenantID int64, catalog *pos.Catalog, result *Result, now time.Time) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := applyCatalog(ctx, tx, tenantID, catalog, result, now); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sync: %w", err)
	}
	return nil
}

// fail records the error in the status tracker and the result. The
// status write is best-effort so it never masks the primary error.
func (e *Engine) fail(ctx context.Context, tenantID int64, result *Result, err error) (*Result, error) {
	if serr := store.SetSyncError(ctx, e.DB, tenantID, err.Error()); serr != nil {
		log.Printf("sync: recording error status for tenant %d: %v", tenantID, serr)
	}
	result.Success = false
	result.Errors = append(result.Errors, err.Error())
	return result, err
}

// applyCatalog merges the canonical catalog into the tenant's menu.
// Categories are reconciled fully before any item, so every item's
// category lookup sees rows already written in this transaction.
func applyCatalog(ctx context.Context, tx store.DBTX, tenantID int64, catalog *pos.Catalog, result *Result, now time.Time) error {
	for _, c := range catalog.Categories {
		// Categories have no soft-delete path; one the provider removed
		// is left untouched and its items get soft-deleted individually.
		if c.Deleted {
			continue
		}

		local, err := store.GetCategoryByExternalID(ctx, tx, tenantID, c.ExternalID)
		if err != nil {
			return err
		}
		if local != nil {
			if err := store.UpdateSyncedCategory(ctx, tx, local.ID, c.Name, c.Description, c.Version, now); err != nil {
				return err
			}
		} else {
			// New categories append after existing ones; a sync never
			// reorders what the tenant already arranged.
			next, err := store.NextCategorySortOrder(ctx, tx, tenantID)
			if err != nil {
				return err
			}
			if _, err := store.CreateSyncedCategory(ctx, tx, tenantID, c.ExternalID, c.Name, c.Description, c.Version, next, now); err != nil {
				return err
			}
		}
		result.CategoriesSynced++
	}

	for _, item := range catalog.Items {
		if item.ExternalID == "" {
			return fmt.Errorf("catalog item %q has no external id", item.Name)
		}

		if item.Deleted {
			if err := store.MarkUnavailableByExternalID(ctx, tx, tenantID, item.ExternalID, now); err != nil {
				return err
			}
			continue
		}

		categoryID, err := resolveCategory(ctx, tx, tenantID, item.ExternalCategoryID)
		if err != nil {
			return err
		}

		price := priceFromMinorUnits(item.PriceMinorUnits)
		local, err := store.GetItemByExternalID(ctx, tx, tenantID, item.ExternalID)
		if err != nil {
			return err
		}

		var itemID int64
		if local != nil {
			itemID = local.ID
			if err := store.UpdateSyncedItem(ctx, tx, local.ID, categoryID, item.Name, item.Description, price, item.ImageURL, item.Version, now); err != nil {
				return err
			}
		} else {
			created, err := store.CreateSyncedItem(ctx, tx, tenantID, categoryID, item.ExternalID, item.Name, item.Description, price, item.ImageURL, item.Version, now)
			if err != nil {
				return err
			}
			itemID = created.ID
		}
		result.ItemsSynced++

		for _, group := range item.ModifierGroups {
			if err := applyModifierGroup(ctx, tx, itemID, group, now); err != nil {
				return err
			}
			result.ModifiersSynced++
		}
	}

	return nil
}

// resolveCategory maps a canonical category reference to a local
// category ID, falling back to the tenant's "Uncategorized" category
// when the reference is empty or dangling.
func resolveCategory(ctx context.Context, tx store.DBTX, tenantID int64, externalCategoryID string) (int64, error) {
	if externalCategoryID != "" {
		c, err := store.GetCategoryByExternalID(ctx, tx, tenantID, externalCategoryID)
		if err != nil {
			return 0, err
		}
		if c != nil {
			return c.ID, nil
		}
	}

	fallback, err := store.EnsureSystemCategory(ctx, tx, tenantID, model.UncategorizedName)
	if err != nil {
		return 0, err
	}
	return fallback.ID, nil
}

func applyModifierGroup(ctx context.Context, tx store.DBTX, itemID int64, group pos.ModifierGroup, now time.Time) error {
	local, err := store.GetModifierByExternalID(ctx, tx, itemID, group.ExternalID)
	if err != nil {
		return err
	}

	var modifierID int64
	if local != nil {
		modifierID = local.ID
		if err := store.UpdateSyncedModifier(ctx, tx, local.ID, group.Name, group.Required, now); err != nil {
			return err
		}
	} else {
		modifierID, err = store.CreateSyncedModifier(ctx, tx, itemID, group.ExternalID, group.Name, group.Required, now)
		if err != nil {
			return err
		}
	}

	for _, opt := range group.Options {
		price := priceFromMinorUnits(opt.PriceMinorUnits)
		existing, err := store.GetOptionByExternalID(ctx, tx, modifierID, opt.ExternalID)
		if err != nil {
			return err
		}
		if existing != nil {
			if err := store.UpdateSyncedOption(ctx, tx, existing.ID, opt.Name, price); err != nil {
				return err
			}
		} else {
			if err := store.CreateSyncedOption(ctx, tx, modifierID, opt.ExternalID, opt.Name, price); err != nil {
				return err
			}
		}
	}
	return nil
}

// priceFromMinorUnits converts a provider amount in the smallest
// currency unit to the stored decimal price.
func priceFromMinorUnits(m int64) float64 {
	return float64(m) / 100
}
