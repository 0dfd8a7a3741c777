package square

import (
	"strconv"

	"github.com/qrdine/qrdine/internal/pos"
)

// normalize maps the flat catalog object list to the canonical
// representation. Pure function, no I/O.
func normalize(objects []catalogObject) *pos.Catalog {
	// Images and modifier lists are referenced by ID; index them first.
	imageURLs := make(map[string]string)
	modifierLists := make(map[string]pos.ModifierGroup)
	for _, obj := range objects {
		switch obj.Type {
		case objectTypeImage:
			if obj.ImageData != nil {
				imageURLs[obj.ID] = obj.ImageData.URL
			}
		case objectTypeModifierList:
			if obj.ModifierListData != nil && !obj.IsDeleted {
				modifierLists[obj.ID] = normalizeModifierList(obj)
			}
		}
	}

	catalog := &pos.Catalog{}
	for _, obj := range objects {
		switch obj.Type {
		case objectTypeCategory:
			catalog.Categories = append(catalog.Categories, normalizeCategory(obj))
		case objectTypeItem:
			catalog.Items = append(catalog.Items, normalizeItem(obj, imageURLs, modifierLists))
		}
	}
	return catalog
}

func normalizeCategory(obj catalogObject) pos.Category {
	c := pos.Category{
		ExternalID: obj.ID,
		Name:       pos.UnnamedCategory,
		Version:    strconv.FormatInt(obj.Version, 10),
		Deleted:    obj.IsDeleted,
	}
	if obj.CategoryData != nil {
		if obj.CategoryData.Name != "" {
			c.Name = obj.CategoryData.Name
		}
		c.Ordinal = obj.CategoryData.Ordinal
	}
	return c
}

func normalizeItem(obj catalogObject, imageURLs map[string]string, modifierLists map[string]pos.ModifierGroup) pos.Item {
	item := pos.Item{
		ExternalID: obj.ID,
		Name:       pos.UnnamedItem,
		Version:    strconv.FormatInt(obj.Version, 10),
		Deleted:    obj.IsDeleted,
	}

	data := obj.ItemData
	if data == nil {
		return item
	}
	if data.Name != "" {
		item.Name = data.Name
	}
	item.Description = data.Description

	// Category resolution: singular reference first, then the first
	// element of the category array. Unresolvable stays empty for the
	// engine's fallback.
	switch {
	case data.CategoryID != "":
		item.ExternalCategoryID = data.CategoryID
	case len(data.Categories) > 0:
		item.ExternalCategoryID = data.Categories[0].ID
	}

	// Only the first variation's price is taken; additional price tiers
	// are ignored. Observed provider-integration behavior, kept as is
	// pending product clarification.
	if len(data.Variations) > 0 {
		if vd := data.Variations[0].ItemVariationData; vd != nil && vd.PriceMoney != nil {
			item.PriceMinorUnits = vd.PriceMoney.Amount
		}
	}

	// Only the first image reference is used.
	if len(data.ImageIDs) > 0 {
		item.ImageURL = imageURLs[data.ImageIDs[0]]
	}

	// Deleted items keep name and price for soft-delete matching, but
	// their modifiers are not processed.
	if item.Deleted {
		return item
	}

	for _, info := range data.ModifierListInfo {
		if info.Enabled != nil && !*info.Enabled {
			continue
		}
		if group, ok := modifierLists[info.ModifierListID]; ok {
			item.ModifierGroups = append(item.ModifierGroups, group)
		}
	}
	return item
}

func normalizeModifierList(obj catalogObject) pos.ModifierGroup {
	data := obj.ModifierListData
	group := pos.ModifierGroup{
		ExternalID: obj.ID,
		Name:       data.Name,
		Required:   data.MinSelectedModifiers > 0,
	}
	for _, mod := range data.Modifiers {
		opt := pos.ModifierOption{ExternalID: mod.ID}
		if mod.ModifierData != nil {
			opt.Name = mod.ModifierData.Name
			if mod.ModifierData.PriceMoney != nil {
				opt.PriceMinorUnits = mod.ModifierData.PriceMoney.Amount
			}
		}
		group.Options = append(group.Options, opt)
	}
	return group
}
