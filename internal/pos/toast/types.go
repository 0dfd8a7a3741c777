package toast

// Wire types for the Toast-shaped menu configuration API. Unlike the
// Square shape, endpoints return bare arrays per entity, pagination is
// page-numbered, modifier groups arrive embedded in their items, and
// images are direct links rather than referenced objects.

type menuGroup struct {
	GUID        string `json:"guid"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Ordinal     int    `json:"ordinal"`
	Deleted     bool   `json:"deleted"`
	LastUpdated string `json:"lastUpdated"`
}

type menuItem struct {
	GUID           string          `json:"guid"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	MenuGroupGUID  string          `json:"menuGroupGuid"`
	MenuGroups     []guidRef       `json:"menuGroups"`
	Pricing        []itemPrice     `json:"pricing"`
	ImageLink      string          `json:"imageLink"`
	Deleted        bool            `json:"deleted"`
	LastUpdated    string          `json:"lastUpdated"`
	ModifierGroups []modifierGroup `json:"modifierGroups"`
}

type guidRef struct {
	GUID string `json:"guid"`
}

type itemPrice struct {
	AmountCents int64 `json:"amountCents"`
}

type modifierGroup struct {
	GUID          string     `json:"guid"`
	Name          string     `json:"name"`
	Required      bool       `json:"required"`
	MinSelections int        `json:"minSelections"`
	Options       []modifier `json:"options"`
}

type modifier struct {
	GUID        string `json:"guid"`
	Name        string `json:"name"`
	AmountCents int64  `json:"amountCents"`
}
