package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/qrdine/qrdine/internal/model"
	"github.com/qrdine/qrdine/internal/store"
)

// TablesHandler handles dining table management. Each table gets an
// opaque token at creation; the QR code printed for the table encodes
// the public menu URL containing that token.
type TablesHandler struct {
	DB *sql.DB
}

type createTableRequest struct {
	Label string `json:"label"`
}

// List handles GET /api/tables.
func (h *TablesHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	tables, err := store.ListTables(r.Context(), h.DB, claims.TenantID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list tables")
		return
	}
	if tables == nil {
		tables = []model.DiningTable{}
	}
	jsonResponse(w, http.StatusOK, tables)
}

// Create handles POST /api/tables.
func (h *TablesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Label == "" {
		jsonError(w, http.StatusBadRequest, "label required")
		return
	}

	claims := GetClaims(r.Context())
	table, err := store.CreateTable(r.Context(), h.DB, claims.TenantID, req.Label)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create table")
		return
	}

	jsonResponse(w, http.StatusCreated, table)
}

// Delete handles DELETE /api/tables/{id}. The table is soft-deleted so
// its past orders stay attributable; its QR token stops resolving.
func (h *TablesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid table id")
		return
	}

	table, err := store.GetTable(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get table")
		return
	}
	claims := GetClaims(r.Context())
	if table == nil || table.TenantID != claims.TenantID {
		jsonError(w, http.StatusNotFound, "table not found")
		return
	}

	if err := store.DeleteTable(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete table")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "table deleted"})
}
