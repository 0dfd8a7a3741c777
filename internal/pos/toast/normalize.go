package toast

import "github.com/qrdine/qrdine/internal/pos"

// normalize maps menu groups and items to the canonical representation.
// Pure function, no I/O.
func normalize(groups []menuGroup, items []menuItem) *pos.Catalog {
	catalog := &pos.Catalog{}

	for _, g := range groups {
		c := pos.Category{
			ExternalID:  g.GUID,
			Name:        g.Name,
			Description: g.Description,
			Ordinal:     g.Ordinal,
			Version:     g.LastUpdated,
			Deleted:     g.Deleted,
		}
		if c.Name == "" {
			c.Name = pos.UnnamedCategory
		}
		catalog.Categories = append(catalog.Categories, c)
	}

	for _, it := range items {
		catalog.Items = append(catalog.Items, normalizeItem(it))
	}
	return catalog
}

func normalizeItem(it menuItem) pos.Item {
	item := pos.Item{
		ExternalID:  it.GUID,
		Name:        it.Name,
		Description: it.Description,
		ImageURL:    it.ImageLink,
		Version:     it.LastUpdated,
		Deleted:     it.Deleted,
	}
	if item.Name == "" {
		item.Name = pos.UnnamedItem
	}

	// Singular group reference first, then the first element of the
	// group array; unresolved stays empty for the engine's fallback.
	switch {
	case it.MenuGroupGUID != "":
		item.ExternalCategoryID = it.MenuGroupGUID
	case len(it.MenuGroups) > 0:
		item.ExternalCategoryID = it.MenuGroups[0].GUID
	}

	// First pricing entry only; additional tiers are ignored. Observed
	// provider-integration behavior, kept as is pending product
	// clarification.
	if len(it.Pricing) > 0 {
		item.PriceMinorUnits = it.Pricing[0].AmountCents
	}

	// Deleted items keep name and price for soft-delete matching; their
	// modifiers are not processed.
	if item.Deleted {
		return item
	}

	for _, g := range it.ModifierGroups {
		group := pos.ModifierGroup{
			ExternalID: g.GUID,
			Name:       g.Name,
			Required:   g.Required || g.MinSelections > 0,
		}
		for _, opt := range g.Options {
			group.Options = append(group.Options, pos.ModifierOption{
				ExternalID:      opt.GUID,
				Name:            opt.Name,
				PriceMinorUnits: opt.AmountCents,
			})
		}
		item.ModifierGroups = append(item.ModifierGroups, group)
	}
	return item
}
