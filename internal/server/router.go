package server

import (
	"log"
	"net/http"
	"time"

	"github.com/diewo77/stock-app/internal/config"
	"github.com/diewo77/stock-app/internal/handlers"
	"github.com/diewo77/stock-app/internal/httpx"
	"github.com/diewo77/stock-app/internal/services"
	"github.com/diewo77/stock-app/internal/store"

	"gorm.io/gorm"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, cfg config.Config) http.Handler {
	mux := http.NewServeMux()

	st := store.New(db)
	orderSvc := services.NewOrderService(st, cfg.StrictTransitions)
	stockSvc := services.NewStockService(st)

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		// Lightweight DB check: detailed errors stay out of the body.
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Entreprise endpoints
	eh := handlers.NewEntrepriseHandler(db)
	mux.HandleFunc("/entreprises", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			eh.List(w, r)
		case http.MethodPost:
			eh.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})

	// Product endpoints. List/Create via /products; Update/Delete via
	// /products/update & /products/delete for simplicity.
	ph := handlers.NewProductHandler(db)
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ph.List(w, r)
		case http.MethodPost:
			ph.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})
	mux.HandleFunc("/products/update", ph.Update)
	mux.HandleFunc("/products/delete", ph.Delete)

	// Order endpoints
	oh := handlers.NewOrderHandler(st, orderSvc)
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			oh.List(w, r)
		case http.MethodPost:
			oh.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})
	mux.HandleFunc("/orders/status", oh.UpdateStatus)
	mux.HandleFunc("/orders/update", oh.Update)
	mux.HandleFunc("/orders/delete", oh.Delete)
	mux.HandleFunc("/orders/history", oh.History)

	// Reconciliation endpoints
	sh := handlers.NewStockHandler(stockSvc)
	mux.HandleFunc("/orders/stats", sh.Stats)
	mux.HandleFunc("/stock/remaining", sh.Remaining)
	mux.HandleFunc("/stock/report", sh.Report)

	// Live snapshot stream (SSE)
	stream := handlers.NewStreamHandler(st)
	mux.HandleFunc("/orders/stream", stream.Stream)

	// Root placeholder
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Stock App API"))
	})

	return withRecover(withLogging(mux))
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
