package model

import "time"

// DiningTable is a physical table identified by the opaque token encoded
// in its QR code.
type DiningTable struct {
	ID        int64      `json:"id"`
	TenantID  int64      `json:"tenant_id"`
	Label     string     `json:"label"`
	QRToken   string     `json:"qr_token"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Order is a guest order placed from a table.
type Order struct {
	ID        int64       `json:"id"`
	TenantID  int64       `json:"tenant_id"`
	TableID   int64       `json:"table_id"`
	Status    string      `json:"status"`
	Notes     string      `json:"notes,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Items     []OrderItem `json:"items,omitempty"`
}

// OrderItem is one line of an order. UnitPrice is snapshotted at order
// time so later menu syncs cannot change what the guest agreed to pay.
type OrderItem struct {
	ID        int64   `json:"id"`
	OrderID   int64   `json:"order_id"`
	ItemID    int64   `json:"item_id"`
	ItemName  string  `json:"item_name,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Notes     string  `json:"notes,omitempty"`
}

// Order statuses.
const (
	OrderStatusOpen      = "open"
	OrderStatusPreparing = "preparing"
	OrderStatusServed    = "served"
	OrderStatusCancelled = "cancelled"
)
