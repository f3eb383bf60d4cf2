package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/diewo77/stock-app/internal/httpx"
	"github.com/diewo77/stock-app/internal/store"
)

// entrepriseFrom resolves the tenant scope of the request: the
// X-Entreprise-ID header, or the entreprise_id query param as a fallback.
// Every collection is partitioned by this id, so no handler runs without it.
func entrepriseFrom(r *http.Request) (uint, bool) {
	v := r.Header.Get("X-Entreprise-ID")
	if v == "" {
		v = r.URL.Query().Get("entreprise_id")
	}
	if v == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func requireEntreprise(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, ok := entrepriseFrom(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_entreprise_id", nil)
	}
	return id, ok
}

// writeServiceError maps the store error classes onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, store.ErrInvalid):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		log.Printf("handler error: %v", err)
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
