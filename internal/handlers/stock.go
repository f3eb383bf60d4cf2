package handlers

import (
	"net/http"
	"strconv"

	"github.com/diewo77/stock-app/internal/httpx"
	"github.com/diewo77/stock-app/internal/services"
)

type StockHandler struct {
	Svc *services.StockService
}

func NewStockHandler(svc *services.StockService) *StockHandler { return &StockHandler{Svc: svc} }

func productIDParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.URL.Query().Get("product_id"), 10, 64)
	if err != nil || id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "missing_product_id", nil)
		return 0, false
	}
	return uint(id), true
}

// Stats: GET /orders/stats?product_id=N
func (h *StockHandler) Stats(w http.ResponseWriter, r *http.Request) {
	entrepriseID, ok := requireEntreprise(w, r)
	if !ok {
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	stats, err := h.Svc.StatsForProduct(entrepriseID, productID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

// Remaining: GET /stock/remaining?product_id=N
func (h *StockHandler) Remaining(w http.ResponseWriter, r *http.Request) {
	entrepriseID, ok := requireEntreprise(w, r)
	if !ok {
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	info, err := h.Svc.RemainingStock(entrepriseID, productID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, info)
}

// Report: GET /stock/report: per-product rows plus tenant totals.
func (h *StockHandler) Report(w http.ResponseWriter, r *http.Request) {
	entrepriseID, ok := requireEntreprise(w, r)
	if !ok {
		return
	}
	rows, summary, err := h.Svc.Report(entrepriseID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": rows, "summary": summary})
}
