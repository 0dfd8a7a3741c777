package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/qrdine/qrdine/internal/model"
)

// GetModifierByExternalID returns an item's modifier group with the
// given provider ID.
func GetModifierByExternalID(ctx context.Context, db DBTX, itemID int64, externalID string) (*model.Modifier, error) {
	m := &model.Modifier{}
	err := db.QueryRowContext(ctx,
		`SELECT id, item_id, name, required, external_id, last_synced_at
		 FROM modifiers WHERE item_id = ? AND external_id = ?`,
		itemID, externalID,
	).Scan(&m.ID, &m.ItemID, &m.Name, &m.Required, &m.ExternalID, &m.LastSyncedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting modifier by external id: %w", err)
	}
	return m, nil
}

// CreateSyncedModifier creates a modifier group from a provider catalog
// entry and returns its ID.
func CreateSyncedModifier(ctx context.Context, db DBTX, itemID int64, externalID, name string, required bool, syncedAt time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO modifiers (item_id, name, required, external_id, last_synced_at) VALUES (?, ?, ?, ?, ?)`,
		itemID, name, required, externalID, syncedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("creating modifier: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting modifier id: %w", err)
	}
	return id, nil
}

// UpdateSyncedModifier refreshes a modifier group from a provider
// catalog entry.
func UpdateSyncedModifier(ctx context.Context, db DBTX, id int64, name string, required bool, syncedAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE modifiers SET name = ?, required = ?, last_synced_at = ? WHERE id = ?`,
		name, required, syncedAt, id,
	)
	if err != nil {
		return fmt.Errorf("updating modifier: %w", err)
	}
	return nil
}

// GetOptionByExternalID returns a modifier's option with the given
// provider ID.
func GetOptionByExternalID(ctx context.Context, db DBTX, modifierID int64, externalID string) (*model.ModifierOption, error) {
	o := &model.ModifierOption{}
	err := db.QueryRowContext(ctx,
		`SELECT id, modifier_id, name, price, external_id
		 FROM modifier_options WHERE modifier_id = ? AND external_id = ?`,
		modifierID, externalID,
	).Scan(&o.ID, &o.ModifierID, &o.Name, &o.Price, &o.ExternalID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting option by external id: %w", err)
	}
	return o, nil
}

// CreateSyncedOption creates a modifier option from a provider catalog
// entry.
func CreateSyncedOption(ctx context.Context, db DBTX, modifierID int64, externalID, name string, price float64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO modifier_options (modifier_id, name, price, external_id) VALUES (?, ?, ?, ?)`,
		modifierID, name, price, externalID,
	)
	if err != nil {
		return fmt.Errorf("creating option: %w", err)
	}
	return nil
}

// UpdateSyncedOption refreshes a modifier option from a provider
// catalog entry.
func UpdateSyncedOption(ctx context.Context, db DBTX, id int64, name string, price float64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE modifier_options SET name = ?, price = ? WHERE id = ?`,
		name, price, id,
	)
	if err != nil {
		return fmt.Errorf("updating option: %w", err)
	}
	return nil
}

// ListModifiersForItem returns an item's modifier groups with their
// options populated.
func ListModifiersForItem(ctx context.Context, db DBTX, itemID int64) ([]model.Modifier, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, item_id, name, required, external_id, last_synced_at
		 FROM modifiers WHERE item_id = ? ORDER BY id`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing modifiers: %w", err)
	}
	defer rows.Close()

	var modifiers []model.Modifier
	for rows.Next() {
		var m model.Modifier
		if err := rows.Scan(&m.ID, &m.ItemID, &m.Name, &m.Required, &m.ExternalID, &m.LastSyncedAt); err != nil {
			return nil, fmt.Errorf("scanning modifier: %w", err)
		}
		modifiers = append(modifiers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range modifiers {
		options, err := listOptions(ctx, db, modifiers[i].ID)
		if err != nil {
			return nil, err
		}
		modifiers[i].Options = options
	}
	return modifiers, nil
}

func listOptions(ctx context.Context, db DBTX, modifierID int64) ([]model.ModifierOption, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, modifier_id, name, price, external_id
		 FROM modifier_options WHERE modifier_id = ? ORDER BY id`, modifierID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing options: %w", err)
	}
	defer rows.Close()

	var options []model.ModifierOption
	for rows.Next() {
		var o model.ModifierOption
		if err := rows.Scan(&o.ID, &o.ModifierID, &o.Name, &o.Price, &o.ExternalID); err != nil {
			return nil, fmt.Errorf("scanning option: %w", err)
		}
		options = append(options, o)
	}
	return options, rows.Err()
}
