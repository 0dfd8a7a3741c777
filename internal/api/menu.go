package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/qrdine/qrdine/internal/imaging"
	"github.com/qrdine/qrdine/internal/model"
	"github.com/qrdine/qrdine/internal/store"
)

// MenuHandler handles menu category and item endpoints.
type MenuHandler struct {
	DB *sql.DB
}

type createCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   *int   `json:"sort_order"`
}

type createItemRequest struct {
	CategoryID  int64   `json:"category_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

type updateItemRequest struct {
	CategoryID  int64   `json:"category_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Available   bool    `json:"available"`
}

// ListCategories handles GET /api/menu/categories.
func (h *MenuHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	categories, err := store.ListCategories(r.Context(), h.DB, claims.TenantID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	if categories == nil {
		categories = []model.MenuCategory{}
	}
	jsonResponse(w, http.StatusOK, categories)
}

// CreateCategory handles POST /api/menu/categories.
func (h *MenuHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	claims := GetClaims(r.Context())
	sortOrder := 0
	if req.SortOrder != nil {
		sortOrder = *req.SortOrder
	} else {
		next, err := store.NextCategorySortOrder(r.Context(), h.DB, claims.TenantID)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to create category")
			return
		}
		sortOrder = next
	}

	category, err := store.CreateCategory(r.Context(), h.DB, claims.TenantID, req.Name, req.Description, sortOrder)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create category")
		return
	}

	jsonResponse(w, http.StatusCreated, category)
}

// UpdateCategory handles PUT /api/menu/categories/{id}.
func (h *MenuHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	category, err := h.tenantCategory(r, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get category")
		return
	}
	if category == nil {
		jsonError(w, http.StatusNotFound, "category not found")
		return
	}

	sortOrder := category.SortOrder
	if req.SortOrder != nil {
		sortOrder = *req.SortOrder
	}
	if err := store.UpdateCategory(r.Context(), h.DB, id, req.Name, req.Description, sortOrder); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update category")
		return
	}

	updated, _ := store.GetCategory(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, updated)
}

// ListItems handles GET /api/menu/items.
func (h *MenuHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var categoryID int64
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid category id")
			return
		}
		categoryID = id
	}
	availableOnly := r.URL.Query().Get("available") == "true"

	items, err := store.ListItems(r.Context(), h.DB, claims.TenantID, categoryID, availableOnly)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.MenuItem{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// CreateItem handles POST /api/menu/items.
func (h *MenuHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.CategoryID == 0 {
		jsonError(w, http.StatusBadRequest, "name and category_id required")
		return
	}
	if req.Price < 0 {
		jsonError(w, http.StatusBadRequest, "price cannot be negative")
		return
	}

	category, err := h.tenantCategory(r, req.CategoryID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get category")
		return
	}
	if category == nil {
		jsonError(w, http.StatusBadRequest, "unknown category")
		return
	}

	claims := GetClaims(r.Context())
	item, err := store.CreateItem(r.Context(), h.DB, claims.TenantID, req.CategoryID, req.Name, req.Description, req.Price)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	jsonResponse(w, http.StatusCreated, item)
}

// GetItem handles GET /api/menu/items/{id}, including modifiers.
func (h *MenuHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item := h.requireItem(w, r)
	if item == nil {
		return
	}

	modifiers, err := store.ListModifiersForItem(r.Context(), h.DB, item.ID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get modifiers")
		return
	}
	if modifiers == nil {
		modifiers = []model.Modifier{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"item":      item,
		"modifiers": modifiers,
	})
}

// UpdateItem handles PUT /api/menu/items/{id}.
func (h *MenuHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	item := h.requireItem(w, r)
	if item == nil {
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}
	if req.Price < 0 {
		jsonError(w, http.StatusBadRequest, "price cannot be negative")
		return
	}

	categoryID := req.CategoryID
	if categoryID == 0 {
		categoryID = item.CategoryID
	} else {
		category, err := h.tenantCategory(r, categoryID)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to get category")
			return
		}
		if category == nil {
			jsonError(w, http.StatusBadRequest, "unknown category")
			return
		}
	}

	if err := store.UpdateItem(r.Context(), h.DB, item.ID, categoryID, req.Name, req.Description, req.Price, req.Available); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	updated, _ := store.GetItem(r.Context(), h.DB, item.ID)
	jsonResponse(w, http.StatusOK, updated)
}

// UploadImage handles PUT /api/menu/items/{id}/image. The upload is
// re-encoded and downscaled before storage.
func (h *MenuHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	item := h.requireItem(w, r)
	if item == nil {
		return
	}

	// Limit to 5 MB.
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20)

	if err := r.ParseMultipartForm(5 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	processed, err := imaging.Process(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, item.ID, processed.Data, processed.MIME); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to save image")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/menu/items/{id}/image.
func (h *MenuHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	item := h.requireItem(w, r)
	if item == nil {
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, item.ID)
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

// tenantCategory loads a category and verifies tenant ownership.
func (h *MenuHandler) tenantCategory(r *http.Request, id int64) (*model.MenuCategory, error) {
	category, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		return nil, err
	}
	claims := GetClaims(r.Context())
	if category == nil || claims == nil || category.TenantID != claims.TenantID {
		return nil, nil
	}
	return category, nil
}

// requireItem parses the path ID, loads the item, and enforces tenant
// ownership, writing the error response itself when anything fails.
func (h *MenuHandler) requireItem(w http.ResponseWriter, r *http.Request) *model.MenuItem {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return nil
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return nil
	}
	claims := GetClaims(r.Context())
	if item == nil || claims == nil || item.TenantID != claims.TenantID {
		jsonError(w, http.StatusNotFound, "item not found")
		return nil
	}
	return item
}
