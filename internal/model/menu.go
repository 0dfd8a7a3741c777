package model

import "time"

// MenuCategory groups menu items. Categories created by a POS sync carry
// the provider's external ID; manually created ones have none and are
// never touched by sync.
type MenuCategory struct {
	ID              int64      `json:"id"`
	TenantID        int64      `json:"tenant_id"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	SortOrder       int        `json:"sort_order"`
	System          bool       `json:"system"`
	ExternalID      *string    `json:"external_id,omitempty"`
	ExternalVersion string     `json:"external_version,omitempty"`
	LastSyncedAt    *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// UncategorizedName is the name of the per-tenant fallback category that
// synced items land in when the provider supplies no resolvable category.
const UncategorizedName = "Uncategorized"

// MenuItem is a sellable item. Price is a decimal amount (provider minor
// units divided by 100 at sync time). Items removed on the provider side
// are marked unavailable, never deleted, because historical orders
// reference them.
type MenuItem struct {
	ID              int64      `json:"id"`
	TenantID        int64      `json:"tenant_id"`
	CategoryID      int64      `json:"category_id"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	Price           float64    `json:"price"`
	ImageURL        string     `json:"image_url,omitempty"`
	ImageMime       string     `json:"image_mime,omitempty"`
	Available       bool       `json:"available"`
	ExternalID      *string    `json:"external_id,omitempty"`
	ExternalVersion string     `json:"external_version,omitempty"`
	LastSyncedAt    *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Modifier is a group of options attached to a menu item (e.g. "Size").
type Modifier struct {
	ID           int64            `json:"id"`
	ItemID       int64            `json:"item_id"`
	Name         string           `json:"name"`
	Required     bool             `json:"required"`
	ExternalID   *string          `json:"external_id,omitempty"`
	LastSyncedAt *time.Time       `json:"last_synced_at,omitempty"`
	Options      []ModifierOption `json:"options,omitempty"`
}

// ModifierOption is a single choice within a modifier group.
type ModifierOption struct {
	ID         int64   `json:"id"`
	ModifierID int64   `json:"modifier_id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	ExternalID *string `json:"external_id,omitempty"`
}
