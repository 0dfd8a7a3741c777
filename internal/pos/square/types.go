package square

// Wire types for the Square-shaped catalog API. The catalog is a flat
// list of typed objects; items reference categories, images and
// modifier lists by ID, and carry their variations inline as nested
// objects.

type listCatalogResponse struct {
	Objects []catalogObject `json:"objects"`
	Cursor  string          `json:"cursor"`
}

type catalogObject struct {
	Type              string             `json:"type"`
	ID                string             `json:"id"`
	Version           int64              `json:"version"`
	IsDeleted         bool               `json:"is_deleted"`
	CategoryData      *categoryData      `json:"category_data,omitempty"`
	ItemData          *itemData          `json:"item_data,omitempty"`
	ItemVariationData *itemVariationData `json:"item_variation_data,omitempty"`
	ImageData         *imageData         `json:"image_data,omitempty"`
	ModifierListData  *modifierListData  `json:"modifier_list_data,omitempty"`
}

// Catalog object types.
const (
	objectTypeCategory     = "CATEGORY"
	objectTypeItem         = "ITEM"
	objectTypeImage        = "IMAGE"
	objectTypeModifierList = "MODIFIER_LIST"
)

type categoryData struct {
	Name    string `json:"name"`
	Ordinal int    `json:"ordinal"`
}

type itemData struct {
	Name             string             `json:"name"`
	Description      string             `json:"description"`
	CategoryID       string             `json:"category_id"`
	Categories       []objectRef        `json:"categories"`
	ImageIDs         []string           `json:"image_ids"`
	Variations       []catalogObject    `json:"variations"`
	ModifierListInfo []modifierListInfo `json:"modifier_list_info"`
}

type objectRef struct {
	ID string `json:"id"`
}

type itemVariationData struct {
	Name       string `json:"name"`
	PriceMoney *money `json:"price_money,omitempty"`
}

type money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type imageData struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type modifierListInfo struct {
	ModifierListID string `json:"modifier_list_id"`
	Enabled        *bool  `json:"enabled,omitempty"`
}

type modifierListData struct {
	Name                 string           `json:"name"`
	SelectionType        string           `json:"selection_type"`
	MinSelectedModifiers int              `json:"min_selected_modifiers"`
	Modifiers            []modifierObject `json:"modifiers"`
}

type modifierObject struct {
	ID           string        `json:"id"`
	ModifierData *modifierData `json:"modifier_data,omitempty"`
}

type modifierData struct {
	Name       string `json:"name"`
	PriceMoney *money `json:"price_money,omitempty"`
}
