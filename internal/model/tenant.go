package model

import "time"

// Tenant represents a single restaurant. Every menu, table, order and
// credential row is partitioned by tenant ID.
type Tenant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}
