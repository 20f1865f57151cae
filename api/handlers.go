/*
handlers.go - HTTP API handlers for the point-of-sale register

PURPOSE:
  Exposes the register session, checkout coordinator and catalog via REST
  API. Handles HTTP request/response, JSON serialization, and delegates to
  the pos package.

ENDPOINTS:
  Catalog:
    GET    /api/products                 List products (?q=, ?category=)
    GET    /api/products/{id}            Get product
    POST   /api/catalog/load             Load catalog JSON (?replace=true)

  Cart:
    GET    /api/cart                     Current register view
    POST   /api/cart/items               Add one unit of a product
    POST   /api/cart/items/{id}/quantity Step a line by +1/-1
    DELETE /api/cart/items/{id}          Remove a line
    POST   /api/cart/clear               Discard the cart (confirmation gated)

  Billing:
    PUT    /api/billing/mode             Switch internal/fiscal

  Checkout:
    POST   /api/checkout                 Request payment with a tender
    GET    /api/sales                    Sales journal (?limit=)
    GET    /api/sales/{id}               Sale details

  Scenarios:
    GET    /api/scenarios                List demo catalogs
    POST   /api/scenarios/load           Load a demo catalog

  Stock:
    GET    /api/stock/alerts             Latest low-stock report

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Catalog and sales journal
  - Coordinator: Checkout, owns the Session
  - CatalogFactory: JSON to Product conversion
  - Monitor: Optional low-stock monitor

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Empty cart, invalid input
  - 404: Unknown product or cart line
  - 409: Stock limits, checkout in progress, confirmation required
  - 502: Fiscal authorization failed (cart kept, retry allowed)
  - 500: Internal errors

SECURITY NOTE:
  No authentication. The register is meant to run on the shop LAN.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo catalog loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/factory"
	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/pos"
	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/store/sqlite"
)

// errConfirmationRequired is returned when clearing a non-empty cart
// without the cashier's confirmation.
var errConfirmationRequired = errors.New("clearing a non-empty cart requires confirmation")

// errCartNotEmpty is returned when a catalog import would reprice or
// restock products that cart lines already hold.
var errCartNotEmpty = errors.New("catalog cannot change while the cart has lines")

const defaultSalesLimit = 50

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Store          *sqlite.Store
	Coordinator    *pos.Coordinator
	CatalogFactory *factory.CatalogFactory
	Monitor        *StockMonitor // optional
	Logger         logrus.FieldLogger

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler for the register driven by coordinator.
func NewHandler(store *sqlite.Store, coordinator *pos.Coordinator, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		Store:          store,
		Coordinator:    coordinator,
		CatalogFactory: factory.NewCatalogFactory(),
		Logger:         logger,
	}
}

func (h *Handler) session() *pos.Session { return h.Coordinator.Session() }

// =============================================================================
// CATALOG ENDPOINTS
// =============================================================================

// ListProducts returns the catalog, optionally filtered.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := pos.ProductFilter{
		Search:   r.URL.Query().Get("q"),
		Category: pos.Category(r.URL.Query().Get("category")),
	}
	if filter.Category != "" && !filter.Category.Valid() {
		writeError(w, http.StatusBadRequest, "unknown category", fmt.Errorf("%q", filter.Category))
		return
	}

	products, err := h.Store.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list products", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.Lookup(r.Context(), pos.ProductID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// LoadCatalog imports a catalog JSON document. With ?replace=true the
// existing catalog is dropped first; otherwise products are upserted.
// The cart must be empty, which also rules out a checkout in flight.
func (h *Handler) LoadCatalog(w http.ResponseWriter, r *http.Request) {
	if h.session().TotalItemCount() > 0 {
		writeDomainError(w, errCartNotEmpty)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body", err)
		return
	}
	products, err := h.CatalogFactory.ParseCatalog(string(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid catalog", err)
		return
	}

	if r.URL.Query().Get("replace") == "true" {
		err = h.Store.ReplaceCatalog(r.Context(), products)
	} else {
		err = h.Store.SaveProducts(r.Context(), products)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save catalog", err)
		return
	}

	h.Logger.WithField("products", len(products)).Info("catalog loaded")
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

// =============================================================================
// CART ENDPOINTS
// =============================================================================

// GetCart returns the current register view.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toCartViewDTO(h.session().View()))
}

// AddItem adds one unit of a product to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required", nil)
		return
	}

	view, err := h.session().AddItem(r.Context(), pos.ProductID(req.ProductID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartViewDTO(view))
}

// ChangeQuantity steps a cart line by +1 or -1.
func (h *Handler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	var req ChangeQuantityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	view, err := h.session().ChangeQuantity(r.Context(), pos.ProductID(chi.URLParam(r, "id")), req.Delta)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartViewDTO(view))
}

// RemoveItem drops a cart line. Removing an absent line is a no-op.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.session().RemoveItem(pos.ProductID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartViewDTO(view))
}

// ClearCart discards every line. A non-empty cart needs confirmed=true.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	var req ClearCartRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	if h.session().TotalItemCount() > 0 && !req.Confirmed {
		writeDomainError(w, errConfirmationRequired)
		return
	}

	view, err := h.Coordinator.Cancel(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartViewDTO(view))
}

// =============================================================================
// BILLING ENDPOINTS
// =============================================================================

// SetBillingMode switches between internal and fiscal billing.
func (h *Handler) SetBillingMode(w http.ResponseWriter, r *http.Request) {
	var req SetModeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	view, err := h.session().SetMode(pos.BillingMode(req.Mode))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartViewDTO(view))
}

// =============================================================================
// CHECKOUT ENDPOINTS
// =============================================================================

// Checkout requests payment for the current cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	outcome, err := h.Coordinator.RequestPayment(r.Context(), pos.TenderType(req.Tender))
	if err != nil {
		if outcome.Status == pos.OutcomeFailed {
			writeJSON(w, statusFor(err), ErrorResponse{
				Error:   err.Error(),
				Code:    codeFor(err),
				Details: toSaleOutcomeDTO(outcome),
			})
			return
		}
		writeDomainError(w, err)
		return
	}

	if h.Monitor != nil {
		h.Monitor.Trigger()
	}
	writeJSON(w, http.StatusCreated, toSaleOutcomeDTO(outcome))
}

// ListSales returns the most recent sales, newest first.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	limit := defaultSalesLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive number", err)
			return
		}
		limit = n
	}

	sales, err := h.Store.ListSales(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sales", err)
		return
	}
	out := make([]SaleDTO, len(sales))
	for i, s := range sales {
		out[i] = toSaleDTO(s)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetSale returns a single sale.
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.Store.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get sale", err)
		return
	}
	if sale == nil {
		writeError(w, http.StatusNotFound, "sale not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(*sale))
}

// =============================================================================
// STOCK ENDPOINTS
// =============================================================================

// GetStockAlerts returns the latest low-stock report.
func (h *Handler) GetStockAlerts(w http.ResponseWriter, r *http.Request) {
	if h.Monitor == nil {
		writeJSON(w, http.StatusOK, StockReportDTO{Alerts: []StockAlertDTO{}})
		return
	}
	writeJSON(w, http.StatusOK, h.Monitor.Report())
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

// statusFor maps register errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case pos.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, pos.ErrOutOfStock),
		errors.Is(err, pos.ErrStockExceeded),
		errors.Is(err, pos.ErrCheckoutInProgress),
		errors.Is(err, pos.ErrCurrencyMismatch),
		errors.Is(err, errConfirmationRequired),
		errors.Is(err, errCartNotEmpty):
		return http.StatusConflict
	case errors.Is(err, pos.ErrFiscalAuthorizationFailed):
		return http.StatusBadGateway
	case pos.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, pos.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, pos.ErrUnknownLine):
		return "unknown_line"
	case errors.Is(err, pos.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, pos.ErrStockExceeded):
		return "stock_exceeded"
	case errors.Is(err, pos.ErrCheckoutInProgress):
		return "checkout_in_progress"
	case errors.Is(err, errConfirmationRequired):
		return "confirmation_required"
	case errors.Is(err, errCartNotEmpty):
		return "cart_not_empty"
	case errors.Is(err, pos.ErrCurrencyMismatch):
		return "currency_mismatch"
	case errors.Is(err, pos.ErrFiscalAuthorizationFailed):
		return "fiscal_authorization_failed"
	case errors.Is(err, pos.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, pos.ErrInvalidDelta),
		errors.Is(err, pos.ErrInvalidTender),
		errors.Is(err, pos.ErrInvalidBillingMode):
		return "invalid_input"
	default:
		return ""
	}
}

// writeDomainError writes err with the status and code it maps to.
func writeDomainError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error(), Code: codeFor(err)}
	var stockErr *pos.StockError
	if errors.As(err, &stockErr) {
		resp.Details = map[string]any{
			"product_id": stockErr.ProductID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		}
	}
	writeJSON(w, statusFor(err), resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
