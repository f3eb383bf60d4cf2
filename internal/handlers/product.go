package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/diewo77/stock-app/internal/httpx"
	"github.com/diewo77/stock-app/internal/models"
	"github.com/diewo77/stock-app/internal/validation"

	"gorm.io/gorm"
)

type ProductHandler struct {
	DB *gorm.DB
}

func NewProductHandler(db *gorm.DB) *ProductHandler { return &ProductHandler{DB: db} }

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	entrepriseID, ok := requireEntreprise(w, r)
	if !ok {
		return
	}
	// Pagination params
	pageSize := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			pageSize = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * pageSize
		}
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	dbq := h.DB.Where("entreprise_id = ?", entrepriseID)
	if query != "" {
		// Very basic safe pattern: allow alnum, dash, space; strip others
		safe := regexp.MustCompile(`[^a-zA-Z0-9 \-_]`).ReplaceAllString(query, "")
		like := "%" + strings.ToLower(safe) + "%"
		dbq = dbq.Where("lower(name) LIKE ? OR lower(category) LIKE ?", like, like)
	}
	var total int64
	dbq.Model(&models.Product{}).Count(&total)
	var products []models.Product
	if err := dbq.Order("name asc").Limit(pageSize).Offset(offset).Find(&products).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_products", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": products, "total": total, "limit": pageSize, "offset": offset})
}

type productInput struct {
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Unit          string  `json:"unit"`
	PurchasePrice float64 `json:"purchase_price"`
	SalePrice     float64 `json:"sale_price"`
	Stock         float64 `json:"stock"`
	MinStock      float64 `json:"min_stock"`
}

func (in productInput) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.Required("unit", in.Unit, v)
	validation.NonNegativeFloat("purchase_price", in.PurchasePrice, v)
	validation.PositiveFloat("sale_price", in.SalePrice, v)
	validation.NonNegativeFloat("stock", in.Stock, v)
	validation.NonNegativeFloat("min_stock", in.MinStock, v)
	return v
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	entrepriseID, ok := requireEntreprise(w, r)
	if !ok {
		return
	}
	var input productInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := input.validate(); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	p := models.Product{
		EntrepriseID:  entrepriseID,
		Name:          input.Name,
		Category:      input.Category,
		Unit:          input.Unit,
		PurchasePrice: input.PurchasePrice,
		SalePrice:     input.SalePrice,
		Stock:         input.Stock,
		MinStock:      input.MinStock,
	}
	if err := h.DB.Create(&p).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_product", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

// Update: POST /products/update?id=N: full replacement of the editable fields.
// The initial Stock is editable here too; remaining stock stays derived.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	entrepriseID, ok := requireEntreprise(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var input productInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := input.validate(); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	var p models.Product
	if err := h.DB.Where("entreprise_id = ? AND id = ?", entrepriseID, id).First(&p).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "product_not_found", nil)
		return
	}
	p.Name = input.Name
	p.Category = input.Category
	p.Unit = input.Unit
	p.PurchasePrice = input.PurchasePrice
	p.SalePrice = input.SalePrice
	p.Stock = input.Stock
	p.MinStock = input.MinStock
	if err := h.DB.Save(&p).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_product", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Delete: POST /products/delete?id=N. Refused while orders reference the
// product; order rows denormalize the name but keep the foreign key.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	entrepriseID, ok := requireEntreprise(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var count int64
	if err := h.DB.Model(&models.Order{}).
		Where("entreprise_id = ? AND product_id = ?", entrepriseID, id).
		Count(&count).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_product", nil)
		return
	}
	if count > 0 {
		httpx.JSONError(w, http.StatusConflict, "product_has_orders", map[string]any{"orders": count})
		return
	}
	res := h.DB.Where("entreprise_id = ?", entrepriseID).Delete(&models.Product{}, id)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_product", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "product_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
