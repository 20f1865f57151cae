/*
scenarios.go - Demo catalog loaders for testing and demonstrations

PURPOSE:

	Provides pre-built catalogs that populate the database with realistic
	products for demos and manual testing. Each scenario replaces the whole
	catalog and discards the current cart.

AVAILABLE SCENARIOS:

	almacen:    The default corner store catalog
	last-units: Same products with one or two units left, for stock limits
	kiosco:     A small kiosk catalog with decimal prices
	empty:      No products at all

HOW SCENARIOS WORK:
 1. Clear the cart (fails with 409 while a checkout is in flight)
 2. Reset database (catalog and sales journal)
 3. Parse the scenario JSON via the catalog factory
 4. Save the products

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "last-units"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description and catalog JSON

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Catalog endpoints
  - factory/catalog.go: Catalog JSON format
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/factory"
	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/pos"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	catalogJSON string
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "almacen",
			Name:        "Almacén",
			Description: "Default corner store catalog",
		},
		catalogJSON: factory.DefaultCatalogJSON,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "last-units",
			Name:        "Last Units",
			Description: "Few units left per product; exercises stock limits and sold-out products",
		},
		catalogJSON: lastUnitsCatalogJSON,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "kiosco",
			Name:        "Kiosco",
			Description: "Small kiosk catalog with cent prices",
		},
		catalogJSON: kioscoCatalogJSON,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "empty",
			Name:        "Empty",
			Description: "No products",
		},
		catalogJSON: `{"currency": "ARS", "products": []}`,
	},
}

const lastUnitsCatalogJSON = `{
  "currency": "ARS",
  "products": [
    {"id": "1", "name": "Yerba Mate Taragüi 1Kg", "price": 3500, "stock": 2, "category": "almacen"},
    {"id": "2", "name": "Fernet Branca 750ml", "price": 8900, "stock": 1, "category": "bebidas"},
    {"id": "3", "name": "Coca Cola V. Retornable 2L", "price": 2100, "stock": 0, "category": "bebidas"},
    {"id": "6", "name": "Vino Rutini Malbec", "price": 14500, "stock": 1, "category": "bebidas"}
  ]
}`

const kioscoCatalogJSON = `{
  "currency": "ARS",
  "products": [
    {"id": "k1", "name": "Chicle Beldent Menta", "price": 450.50, "stock": 60, "category": "almacen"},
    {"id": "k2", "name": "Agua Villavicencio 500ml", "price": 899.99, "stock": 24, "category": "bebidas"},
    {"id": "k3", "name": "Alfajor Jorgito", "price": 700.25, "stock": 8, "category": "almacen"},
    {"id": "k4", "name": "COMBO: Alfajor + Agua", "price": 1500, "stock": 8, "category": "combos"}
  ]
}`

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, 0, len(scenarios))
	for _, s := range scenarios {
		dto := s.ScenarioDTO
		if products, err := h.CatalogFactory.ParseCatalog(s.catalogJSON); err == nil {
			dto.Products = len(products)
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	s, ok := findScenario(h.currentScenario)
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.ScenarioDTO)
}

// LoadScenario replaces the catalog with a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	// Lines priced from the old catalog must not survive the swap
	if _, err := h.Coordinator.Cancel(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}

	n, err := h.loadScenario(r.Context(), s)
	if errors.Is(err, pos.ErrCurrencyMismatch) {
		writeDomainError(w, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.Logger.WithField("scenario", s.ID).WithField("products", n).Info("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]any{"status": "loaded", "scenario": s.ID, "products": n})
}

func (h *Handler) loadScenario(ctx context.Context, s scenario) (int, error) {
	products, err := h.CatalogFactory.ParseCatalog(s.catalogJSON)
	if err != nil {
		return 0, err
	}

	h.currentScenario = ""
	if err := h.Store.Reset(ctx); err != nil {
		return 0, fmt.Errorf("failed to reset database: %w", err)
	}
	if err := h.Store.SaveProducts(ctx, products); err != nil {
		return 0, err
	}
	h.currentScenario = s.ID

	if h.Monitor != nil {
		h.Monitor.Trigger()
	}
	return len(products), nil
}
