package model

import "time"

// POS providers.
const (
	ProviderSquare = "square"
	ProviderToast  = "toast"
)

// POSCredentials holds a tenant's provider connection. AccessToken and
// RefreshToken are vault-encrypted at rest.
type POSCredentials struct {
	TenantID     int64      `json:"tenant_id"`
	Provider     string     `json:"provider"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	MerchantID   string     `json:"merchant_id,omitempty"`
	LocationID   string     `json:"location_id,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Enabled      bool       `json:"enabled"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Sync states. A run moves idle -> syncing -> {idle, error}; a failed
// tenant goes back to syncing on the next trigger.
const (
	SyncStatusIdle    = "idle"
	SyncStatusSyncing = "syncing"
	SyncStatusError   = "error"
)

// SyncStatus is the per-tenant coarse sync state polled by the UI.
type SyncStatus struct {
	TenantID     int64      `json:"tenant_id"`
	Status       string     `json:"status"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
