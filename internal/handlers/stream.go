package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/diewo77/stock-app/internal/httpx"
	"github.com/diewo77/stock-app/internal/models"
	"github.com/diewo77/stock-app/internal/repository"
	"github.com/diewo77/stock-app/internal/store"
)

// StreamHandler is the live-listener surface: each request opens a repository
// session over the tenant's two collections and pushes a fresh snapshot as a
// server-sent event whenever either collection changes. Closing the request
// tears the session down, so no listener outlives its client.
type StreamHandler struct {
	Store *store.Store
}

func NewStreamHandler(st *store.Store) *StreamHandler { return &StreamHandler{Store: st} }

type snapshotEvent struct {
	Orders  []models.Order        `json:"orders"`
	History []models.OrderHistory `json:"history"`
}

// Stream: GET /orders/stream
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	entrepriseID, ok := requireEntreprise(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.JSONError(w, http.StatusInternalServerError, "streaming_unsupported", nil)
		return
	}
	session, err := repository.Open(h.Store, entrepriseID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer session.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func() bool {
		payload, err := json.Marshal(snapshotEvent{Orders: session.Orders(), History: session.History()})
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	// Initial snapshot, then one event per coalesced change.
	if !send() {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case <-session.Changed():
			if !send() {
				return
			}
		}
	}
}
