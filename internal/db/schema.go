package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS tenants (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    slug       TEXT NOT NULL UNIQUE,
    currency   TEXT NOT NULL DEFAULT 'USD',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    tenant_id     INTEGER NOT NULL REFERENCES tenants(id),
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'staff' CHECK (role IN ('admin', 'manager', 'staff')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_tenant_username_active
    ON users(tenant_id, username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS menu_categories (
    id               INTEGER PRIMARY KEY,
    tenant_id        INTEGER NOT NULL REFERENCES tenants(id),
    name             TEXT NOT NULL,
    description      TEXT,
    sort_order       INTEGER NOT NULL DEFAULT 0,
    is_system        INTEGER NOT NULL DEFAULT 0,
    external_id      TEXT,
    external_version TEXT,
    last_synced_at   DATETIME,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_tenant_external
    ON menu_categories(tenant_id, external_id) WHERE external_id IS NOT NULL;

CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_tenant_system_name
    ON menu_categories(tenant_id, name) WHERE is_system = 1;

CREATE TABLE IF NOT EXISTS menu_items (
    id               INTEGER PRIMARY KEY,
    tenant_id        INTEGER NOT NULL REFERENCES tenants(id),
    category_id      INTEGER NOT NULL REFERENCES menu_categories(id),
    name             TEXT NOT NULL,
    description      TEXT,
    price            REAL NOT NULL DEFAULT 0,
    image_url        TEXT,
    image            BLOB,
    image_mime       TEXT,
    available        INTEGER NOT NULL DEFAULT 1,
    external_id      TEXT,
    external_version TEXT,
    last_synced_at   DATETIME,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_items_tenant_external
    ON menu_items(tenant_id, external_id) WHERE external_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS modifiers (
    id             INTEGER PRIMARY KEY,
    item_id        INTEGER NOT NULL REFERENCES menu_items(id),
    name           TEXT NOT NULL,
    required       INTEGER NOT NULL DEFAULT 0,
    external_id    TEXT,
    last_synced_at DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_modifiers_item_external
    ON modifiers(item_id, external_id) WHERE external_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS modifier_options (
    id          INTEGER PRIMARY KEY,
    modifier_id INTEGER NOT NULL REFERENCES modifiers(id),
    name        TEXT NOT NULL,
    price       REAL NOT NULL DEFAULT 0,
    external_id TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_options_modifier_external
    ON modifier_options(modifier_id, external_id) WHERE external_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS dining_tables (
    id         INTEGER PRIMARY KEY,
    tenant_id  INTEGER NOT NULL REFERENCES tenants(id),
    label      TEXT NOT NULL,
    qr_token   TEXT NOT NULL UNIQUE,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS orders (
    id         INTEGER PRIMARY KEY,
    tenant_id  INTEGER NOT NULL REFERENCES tenants(id),
    table_id   INTEGER NOT NULL REFERENCES dining_tables(id),
    status     TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'preparing', 'served', 'cancelled')),
    notes      TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS order_items (
    id         INTEGER PRIMARY KEY,
    order_id   INTEGER NOT NULL REFERENCES orders(id),
    item_id    INTEGER NOT NULL REFERENCES menu_items(id),
    quantity   INTEGER NOT NULL CHECK (quantity > 0),
    unit_price REAL NOT NULL,
    notes      TEXT
);

CREATE TABLE IF NOT EXISTS pos_credentials (
    tenant_id     INTEGER PRIMARY KEY REFERENCES tenants(id),
    provider      TEXT NOT NULL CHECK (provider IN ('square', 'toast')),
    access_token  TEXT NOT NULL,
    refresh_token TEXT,
    merchant_id   TEXT,
    location_id   TEXT,
    expires_at    DATETIME,
    enabled       INTEGER NOT NULL DEFAULT 1,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sync_status (
    tenant_id      INTEGER PRIMARY KEY REFERENCES tenants(id),
    status         TEXT NOT NULL DEFAULT 'idle' CHECK (status IN ('idle', 'syncing', 'error')),
    last_synced_at DATETIME,
    last_error     TEXT,
    updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
