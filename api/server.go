/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the register frontend

ROUTE GROUPS:
  /api/products/*       Catalog queries
  /api/catalog/*        Catalog import
  /api/cart/*           Cart commands
  /api/billing/*        Billing mode
  /api/checkout         Payment
  /api/sales/*          Sales journal
  /api/scenarios/*      Demo catalogs
  /api/stock/*          Low-stock report
  /*                    Static files (frontend)

STATIC FILE SERVING:
  Serves the built register UI from web/dist/ when present.
  Falls back to index.html for client-side routing.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: false,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Catalog routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/{id}", h.GetProduct)
		})
		r.Post("/catalog/load", h.LoadCatalog)

		// Cart routes
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/items", h.AddItem)
			r.Post("/items/{id}/quantity", h.ChangeQuantity)
			r.Delete("/items/{id}", h.RemoveItem)
			r.Post("/clear", h.ClearCart)
		})

		// Billing routes
		r.Put("/billing/mode", h.SetBillingMode)

		// Checkout routes
		r.Post("/checkout", h.Checkout)
		r.Route("/sales", func(r chi.Router) {
			r.Get("/", h.ListSales)
			r.Get("/{id}", h.GetSale)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})

		// Stock routes
		r.Get("/stock/alerts", h.GetStockAlerts)
	})

	// Serve static files (register UI)
	staticDir := "./web/dist"
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		// Try relative to executable
		exe, _ := os.Executable()
		staticDir = filepath.Join(filepath.Dir(exe), "web", "dist")
	}

	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, filepath.Clean(r.URL.Path))
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				// SPA routing: serve index.html
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>MAS POS</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>MAS POS API</h1>
<p>The register UI is not built. The API is available under /api.</p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/products">/api/products</a> - Catalog</li>
<li><a href="/api/cart">/api/cart</a> - Current cart</li>
<li><a href="/api/sales">/api/sales</a> - Sales journal</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo catalogs</li>
</ul>
</body>
</html>`))
		})
	}

	return r
}
