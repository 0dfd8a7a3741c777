// Package pos defines the provider-agnostic catalog representation that
// the reconciliation engine consumes. Provider-specific payloads never
// leave the client packages; each client normalizes its own object
// graph into these types.
package pos

import "context"

// Category is a normalized catalog category.
type Category struct {
	ExternalID  string
	Name        string
	Description string
	Ordinal     int
	Version     string
	Deleted     bool
}

// ModifierOption is a single choice within a modifier group.
type ModifierOption struct {
	ExternalID      string
	Name            string
	PriceMinorUnits int64
}

// ModifierGroup is a normalized modifier group attached to an item.
type ModifierGroup struct {
	ExternalID string
	Name       string
	Required   bool
	Options    []ModifierOption
}

// Item is a normalized catalog item. PriceMinorUnits is the provider's
// integer amount in the smallest currency unit; conversion to a decimal
// price happens at local write time. Version is opaque and used only
// for change detection, never for ordering. Deleted items still carry
// their last known name and price so the engine can match and soft
// delete them, but their modifier groups are not populated.
type Item struct {
	ExternalID         string
	ExternalCategoryID string
	Name               string
	Description        string
	PriceMinorUnits    int64
	ImageURL           string
	Version            string
	ModifierGroups     []ModifierGroup
	Deleted            bool
}

// Catalog is one provider's full catalog for one location.
type Catalog struct {
	Categories []Category
	Items      []Item
}

// Client is the uniform surface the sync engine uses. FetchFullCatalog
// paginates until the provider reports no further pages and either
// returns the complete catalog or an error; it never returns a partial
// one.
type Client interface {
	FetchFullCatalog(ctx context.Context) (*Catalog, error)
}

// Fallback names for provider objects that arrive unnamed.
const (
	UnnamedCategory = "Unnamed Category"
	UnnamedItem     = "Unnamed Item"
)
