package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/diewo77/stock-app/internal/httpx"
	"github.com/diewo77/stock-app/internal/models"
	"github.com/diewo77/stock-app/internal/validation"

	"gorm.io/gorm"
)

type EntrepriseHandler struct {
	DB *gorm.DB
}

func NewEntrepriseHandler(db *gorm.DB) *EntrepriseHandler { return &EntrepriseHandler{DB: db} }

func (h *EntrepriseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("name", input.Name, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	ent := models.Entreprise{Name: input.Name}
	if err := h.DB.Create(&ent).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_entreprise", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, ent)
}

func (h *EntrepriseHandler) List(w http.ResponseWriter, r *http.Request) {
	var ents []models.Entreprise
	if err := h.DB.Order("id asc").Find(&ents).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_entreprises", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": ents, "total": len(ents)})
}
