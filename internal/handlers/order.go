package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/stock-app/internal/httpx"
	"github.com/diewo77/stock-app/internal/models"
	"github.com/diewo77/stock-app/internal/services"
	"github.com/diewo77/stock-app/internal/store"
	"github.com/diewo77/stock-app/internal/validation"
)

type OrderHandler struct {
	Store *store.Store
	Svc   *services.OrderService
}

func NewOrderHandler(st *store.Store, svc *services.OrderService) *OrderHandler {
	return &OrderHandler{Store: st, Svc: svc}
}

// List: GET /orders: the tenant's orders, newest first. Optional
// product_id narrows to one product (any status).
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	entrepriseID, ok := requireEntreprise(w, r)
	if !ok {
		return
	}
	var (
		orders []models.Order
		err    error
	)
	if v := r.URL.Query().Get("product_id"); v != "" {
		productID, perr := strconv.ParseUint(v, 10, 64)
		if perr != nil || productID == 0 {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_product_id", nil)
			return
		}
		orders, err = h.Store.OrdersForProduct(entrepriseID, uint(productID))
	} else {
		orders, err = h.Store.Orders(entrepriseID)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": orders, "total": len(orders)})
}

// Create: POST /orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	entrepriseID, ok := requireEntreprise(w, r)
	if !ok {
		return
	}
	var input struct {
		ProductID    uint       `json:"product_id"`
		Quantity     float64    `json:"quantity"`
		UnitPrice    float64    `json:"unit_price"`
		OrderDate    *time.Time `json:"order_date"`
		DeliveryDate *time.Time `json:"delivery_date"`
		Status       string     `json:"status"`
		Notes        string     `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	if input.ProductID == 0 {
		v["product_id"] = "required"
	}
	validation.PositiveFloat("quantity", input.Quantity, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	in := services.CreateOrderInput{
		ProductID:    input.ProductID,
		Quantity:     input.Quantity,
		UnitPrice:    input.UnitPrice,
		DeliveryDate: input.DeliveryDate,
		Status:       models.OrderStatus(input.Status),
		Notes:        input.Notes,
	}
	if input.OrderDate != nil {
		in.OrderDate = *input.OrderDate
	}
	order, err := h.Svc.Create(entrepriseID, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

// UpdateStatus: POST /orders/status?id=<public id>
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	entrepriseID, ok := requireEntreprise(w, r)
	if !ok {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var input struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	order, err := h.Svc.UpdateStatus(entrepriseID, id, models.OrderStatus(input.Status), input.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

// Update: POST /orders/update?id=<public id>: partial edit outside the
// status flow.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	entrepriseID, ok := requireEntreprise(w, r)
	if !ok {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var input struct {
		Quantity     *float64   `json:"quantity"`
		OrderDate    *time.Time `json:"order_date"`
		DeliveryDate *time.Time `json:"delivery_date"`
		Notes        *string    `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	order, err := h.Svc.Update(entrepriseID, id, services.UpdateOrderInput{
		Quantity:     input.Quantity,
		OrderDate:    input.OrderDate,
		DeliveryDate: input.DeliveryDate,
		Notes:        input.Notes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

// Delete: POST /orders/delete?id=<public id>. Removes the order and its
// history entries together.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	entrepriseID, ok := requireEntreprise(w, r)
	if !ok {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	if err := h.Svc.Delete(entrepriseID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// History: GET /orders/history: audit trail, newest first; optional
// product_id narrows to one product.
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	entrepriseID, ok := requireEntreprise(w, r)
	if !ok {
		return
	}
	var (
		entries []models.OrderHistory
		err     error
	)
	if v := r.URL.Query().Get("product_id"); v != "" {
		productID, perr := strconv.ParseUint(v, 10, 64)
		if perr != nil || productID == 0 {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_product_id", nil)
			return
		}
		entries, err = h.Store.HistoryForProduct(entrepriseID, uint(productID))
	} else {
		entries, err = h.Store.History(entrepriseID)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": entries, "total": len(entries)})
}
