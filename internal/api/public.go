package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/qrdine/qrdine/internal/model"
	"github.com/qrdine/qrdine/internal/store"
)

// PublicHandler serves the unauthenticated guest surface: the menu
// behind a table's QR token and order placement from that table.
type PublicHandler struct {
	DB *sql.DB
}

type menuCategoryView struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Items       []menuItemView `json:"items"`
}

type menuItemView struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Price       float64          `json:"price"`
	ImageURL    string           `json:"image_url,omitempty"`
	Modifiers   []model.Modifier `json:"modifiers,omitempty"`
}

type placeOrderRequest struct {
	Items []orderLineRequest `json:"items"`
	Notes string             `json:"notes"`
}

type orderLineRequest struct {
	ItemID   int64  `json:"item_id"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

// resolveTable maps the QR token in the path to a live table, writing
// the 404 itself when the token is unknown or the table was removed.
func (h *PublicHandler) resolveTable(w http.ResponseWriter, r *http.Request) *model.DiningTable {
	table, err := store.GetTableByToken(r.Context(), h.DB, r.PathValue("token"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return nil
	}
	if table == nil {
		jsonError(w, http.StatusNotFound, "unknown table")
		return nil
	}
	return table
}

// GetMenu handles GET /menu/{token}. Only available items appear;
// categories with nothing available are omitted.
func (h *PublicHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	table := h.resolveTable(w, r)
	if table == nil {
		return
	}

	categories, err := store.ListCategories(r.Context(), h.DB, table.TenantID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to load menu")
		return
	}

	var view []menuCategoryView
	for _, c := range categories {
		items, err := store.ListItems(r.Context(), h.DB, table.TenantID, c.ID, true)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to load menu")
			return
		}
		if len(items) == 0 {
			continue
		}

		cv := menuCategoryView{ID: c.ID, Name: c.Name, Description: c.Description}
		for _, item := range items {
			modifiers, err := store.ListModifiersForItem(r.Context(), h.DB, item.ID)
			if err != nil {
				jsonError(w, http.StatusInternalServerError, "failed to load menu")
				return
			}
			cv.Items = append(cv.Items, menuItemView{
				ID:          item.ID,
				Name:        item.Name,
				Description: item.Description,
				Price:       item.Price,
				ImageURL:    item.ImageURL,
				Modifiers:   modifiers,
			})
		}
		view = append(view, cv)
	}
	if view == nil {
		view = []menuCategoryView{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"table":      table.Label,
		"categories": view,
	})
}

// GetItemImage handles GET /menu/{token}/items/{id}/image so guests can
// load photos without authentication.
func (h *PublicHandler) GetItemImage(w http.ResponseWriter, r *http.Request) {
	table := h.resolveTable(w, r)
	if table == nil {
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if item == nil || item.TenantID != table.TenantID {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// PlaceOrder handles POST /menu/{token}/orders.
func (h *PublicHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	table := h.resolveTable(w, r)
	if table == nil {
		return
	}

	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Items) == 0 {
		jsonError(w, http.StatusBadRequest, "order must contain at least one item")
		return
	}

	var lines []store.OrderLine
	for _, l := range req.Items {
		if l.Quantity <= 0 {
			jsonError(w, http.StatusBadRequest, "quantity must be positive")
			return
		}
		lines = append(lines, store.OrderLine{ItemID: l.ItemID, Quantity: l.Quantity, Notes: l.Notes})
	}

	order, err := store.CreateOrder(r.Context(), h.DB, table.TenantID, table.ID, lines, req.Notes)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	jsonResponse(w, http.StatusCreated, order)
}
