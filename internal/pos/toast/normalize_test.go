package toast

import (
	"testing"

	"github.com/qrdine/qrdine/internal/pos"
)

func TestNormalizeGroupsAndItems(t *testing.T) {
	catalog := normalize(
		[]menuGroup{
			{GUID: "g-1", Name: "Mains", Ordinal: 2, LastUpdated: "2026-08-01T10:00:00Z"},
			{GUID: "g-2", Deleted: true},
		},
		[]menuItem{{
			GUID:          "i-1",
			Name:          "Green Curry",
			Description:   "Spicy",
			MenuGroupGUID: "g-1",
			Pricing:       []itemPrice{{AmountCents: 1450}, {AmountCents: 1650}},
			ImageLink:     "https://cdn.example/curry.jpg",
			ModifierGroups: []modifierGroup{
				{GUID: "mg-1", Name: "Protein", MinSelections: 1, Options: []modifier{
					{GUID: "m-1", Name: "Tofu"},
					{GUID: "m-2", Name: "Chicken", AmountCents: 200},
				}},
				{GUID: "mg-2", Name: "Extras", Required: false},
			},
		}},
	)

	if len(catalog.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(catalog.Categories))
	}
	if catalog.Categories[0].Ordinal != 2 || catalog.Categories[0].Version != "2026-08-01T10:00:00Z" {
		t.Errorf("unexpected category %+v", catalog.Categories[0])
	}
	if catalog.Categories[1].Name != pos.UnnamedCategory || !catalog.Categories[1].Deleted {
		t.Errorf("unexpected deleted category %+v", catalog.Categories[1])
	}

	item := catalog.Items[0]
	if item.ExternalCategoryID != "g-1" || item.ImageURL != "https://cdn.example/curry.jpg" {
		t.Errorf("unexpected item %+v", item)
	}
	if item.PriceMinorUnits != 1450 {
		t.Errorf("expected first pricing tier 1450, got %d", item.PriceMinorUnits)
	}
	if !item.ModifierGroups[0].Required {
		t.Error("minSelections > 0 should mark the group required")
	}
	if item.ModifierGroups[1].Required {
		t.Error("optional group should not be required")
	}
	if item.ModifierGroups[0].Options[1].PriceMinorUnits != 200 {
		t.Errorf("unexpected option price %+v", item.ModifierGroups[0].Options[1])
	}
}

func TestNormalizeDeletedItemSkipsModifiers(t *testing.T) {
	catalog := normalize(nil, []menuItem{{
		GUID:    "i-1",
		Name:    "Retired Dish",
		Deleted: true,
		Pricing: []itemPrice{{AmountCents: 900}},
		ModifierGroups: []modifierGroup{
			{GUID: "mg-1", Name: "Size"},
		},
	}})

	item := catalog.Items[0]
	if !item.Deleted || item.Name != "Retired Dish" || item.PriceMinorUnits != 900 {
		t.Errorf("deleted item should keep name and price, got %+v", item)
	}
	if len(item.ModifierGroups) != 0 {
		t.Error("deleted items must not carry modifier groups")
	}
}

func TestNormalizeFallbacksAndGroupArray(t *testing.T) {
	catalog := normalize(nil, []menuItem{
		{GUID: "i-1", MenuGroups: []guidRef{{GUID: "g-arr"}}},
		{GUID: "i-2"},
	})

	if catalog.Items[0].Name != pos.UnnamedItem {
		t.Errorf("expected item fallback name, got %q", catalog.Items[0].Name)
	}
	if catalog.Items[0].ExternalCategoryID != "g-arr" {
		t.Errorf("expected first group array element, got %q", catalog.Items[0].ExternalCategoryID)
	}
	if catalog.Items[1].ExternalCategoryID != "" {
		t.Error("expected unresolved category to stay empty")
	}
}
