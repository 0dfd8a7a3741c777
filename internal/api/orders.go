package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/qrdine/qrdine/internal/model"
	"github.com/qrdine/qrdine/internal/store"
)

// OrdersHandler handles the staff-facing order endpoints.
type OrdersHandler struct {
	DB *sql.DB
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// List handles GET /api/orders.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	status := r.URL.Query().Get("status")
	if status != "" && !validOrderStatus(status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	orders, err := store.ListOrders(r.Context(), h.DB, claims.TenantID, status)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	jsonResponse(w, http.StatusOK, orders)
}

// Get handles GET /api/orders/{id}.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	order := h.requireOrder(w, r)
	if order == nil {
		return
	}
	jsonResponse(w, http.StatusOK, order)
}

// UpdateStatus handles PUT /api/orders/{id}/status.
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	order := h.requireOrder(w, r)
	if order == nil {
		return
	}

	var req updateOrderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validOrderStatus(req.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if err := store.UpdateOrderStatus(r.Context(), h.DB, order.ID, req.Status); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update order")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("order status updated", "user", claims.Username, "order", order.ID, "status", req.Status)
	updated, _ := store.GetOrder(r.Context(), h.DB, order.ID)
	jsonResponse(w, http.StatusOK, updated)
}

func validOrderStatus(status string) bool {
	switch status {
	case model.OrderStatusOpen, model.OrderStatusPreparing, model.OrderStatusServed, model.OrderStatusCancelled:
		return true
	}
	return false
}

// requireOrder parses the path ID, loads the order, and enforces
// tenant ownership.
func (h *OrdersHandler) requireOrder(w http.ResponseWriter, r *http.Request) *model.Order {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid order id")
		return nil
	}

	order, err := store.GetOrder(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get order")
		return nil
	}
	claims := GetClaims(r.Context())
	if order == nil || claims == nil || order.TenantID != claims.TenantID {
		jsonError(w, http.StatusNotFound, "order not found")
		return nil
	}
	return order
}
