/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the register core from the external API contract, allowing:
  - Field renaming without breaking clients
  - Money rendered as fixed two-decimal strings
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Catalog:
    ProductDTO

  Cart:
    CartViewDTO, CartLineDTO, BillingDTO
    AddItemRequest, ChangeQuantityRequest, ClearCartRequest, SetModeRequest

  Checkout:
    CheckoutRequest, SaleOutcomeDTO, SaleDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

  Stock:
    StockAlertDTO

MONEY:
  Amounts are decimal strings with two places ("19239.00"). Clients must not
  parse them as floats for arithmetic.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/catalog.go: CatalogJSON type
*/
package api

import (
	"time"

	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/pos"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

type AddItemRequest struct {
	ProductID string `json:"product_id"`
}

// ChangeQuantityRequest carries a +1 or -1 step.
type ChangeQuantityRequest struct {
	Delta int `json:"delta"`
}

// ClearCartRequest must carry confirmed=true to discard a non-empty cart.
type ClearCartRequest struct {
	Confirmed bool `json:"confirmed"`
}

type SetModeRequest struct {
	Mode string `json:"mode"`
}

type CheckoutRequest struct {
	Tender string `json:"tender"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ProductDTO represents a catalog product in API responses.
type ProductDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
	Stock    int    `json:"stock"`
	Category string `json:"category"`
	LowStock bool   `json:"low_stock"`
}

type CartLineDTO struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

// BillingDTO is the billing snapshot. Tax and tax rate are omitted in
// internal mode, where they are never shown.
type BillingDTO struct {
	Mode     string  `json:"mode"`
	Currency string  `json:"currency"`
	Subtotal string  `json:"subtotal"`
	TaxRate  *string `json:"tax_rate,omitempty"`
	Tax      *string `json:"tax,omitempty"`
	Total    string  `json:"total"`
}

// CartViewDTO is the full register view returned by every cart command.
type CartViewDTO struct {
	Lines      []CartLineDTO `json:"lines"`
	TotalItems int           `json:"total_items"`
	Billing    BillingDTO    `json:"billing"`
	Mode       string        `json:"mode"`
	State      string        `json:"state"`
}

// SaleOutcomeDTO is the result of a payment attempt.
type SaleOutcomeDTO struct {
	Status            string        `json:"status"`
	SaleID            string        `json:"sale_id,omitempty"`
	AmountCharged     string        `json:"amount_charged"`
	Tender            string        `json:"tender"`
	AuthorizationCode string        `json:"authorization_code,omitempty"`
	Reason            string        `json:"reason,omitempty"`
	Billing           BillingDTO    `json:"billing"`
	Lines             []CartLineDTO `json:"lines"`
	CompletedAt       string        `json:"completed_at"`
}

// SaleDTO is a sales journal entry.
type SaleDTO struct {
	ID                string        `json:"id"`
	Mode              string        `json:"mode"`
	Tender            string        `json:"tender"`
	Currency          string        `json:"currency"`
	Subtotal          string        `json:"subtotal"`
	Tax               string        `json:"tax"`
	Total             string        `json:"total"`
	AuthorizationCode string        `json:"authorization_code,omitempty"`
	Lines             []CartLineDTO `json:"lines"`
	CreatedAt         string        `json:"created_at"`
}

// ScenarioDTO describes a demo catalog scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Products    int    `json:"products"`
}

// StockAlertDTO is a product at or near stock-out.
type StockAlertDTO struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	SoldOut   bool   `json:"sold_out"`
}

// StockReportDTO is the latest stock monitor pass.
type StockReportDTO struct {
	CheckedAt string          `json:"checked_at,omitempty"`
	Alerts    []StockAlertDTO `json:"alerts"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func money(m pos.Money) string {
	return m.Value.StringFixed(pos.MoneyDecimals)
}

func toProductDTO(p pos.Product) ProductDTO {
	return ProductDTO{
		ID:       string(p.ID),
		Name:     p.Name,
		Price:    money(p.UnitPrice),
		Currency: string(p.UnitPrice.Currency),
		Stock:    p.Stock,
		Category: string(p.Category),
		LowStock: p.LowStock(),
	}
}

func toProductDTOs(products []pos.Product) []ProductDTO {
	out := make([]ProductDTO, len(products))
	for i, p := range products {
		out[i] = toProductDTO(p)
	}
	return out
}

func toCartLineDTOs(lines []pos.CartLine) []CartLineDTO {
	out := make([]CartLineDTO, len(lines))
	for i, l := range lines {
		out[i] = CartLineDTO{
			ProductID: string(l.ProductID),
			Name:      l.Name,
			UnitPrice: money(l.UnitPrice),
			Quantity:  l.Quantity,
			LineTotal: money(l.Total()),
		}
	}
	return out
}

func toBillingDTO(b pos.BillingSnapshot) BillingDTO {
	dto := BillingDTO{
		Mode:     string(b.Mode),
		Currency: string(b.Total.Currency),
		Subtotal: money(b.Subtotal),
		Total:    money(b.Total),
	}
	if b.Mode == pos.ModeFiscal {
		rate := b.TaxRate.String()
		tax := money(b.Tax)
		dto.TaxRate = &rate
		dto.Tax = &tax
	}
	return dto
}

func toCartViewDTO(v pos.View) CartViewDTO {
	return CartViewDTO{
		Lines:      toCartLineDTOs(v.Lines),
		TotalItems: v.TotalItems,
		Billing:    toBillingDTO(v.Billing),
		Mode:       string(v.Mode),
		State:      string(v.State),
	}
}

func toSaleOutcomeDTO(o pos.SaleOutcome) SaleOutcomeDTO {
	return SaleOutcomeDTO{
		Status:            string(o.Status),
		SaleID:            o.SaleID,
		AmountCharged:     money(o.AmountCharged),
		Tender:            string(o.Tender),
		AuthorizationCode: o.AuthorizationCode,
		Reason:            o.Reason,
		Billing:           toBillingDTO(o.Billing),
		Lines:             toCartLineDTOs(o.Lines),
		CompletedAt:       o.CompletedAt.UTC().Format(time.RFC3339),
	}
}

func toSaleDTO(s pos.Sale) SaleDTO {
	return SaleDTO{
		ID:                s.ID,
		Mode:              string(s.Mode),
		Tender:            string(s.Tender),
		Currency:          string(s.Total.Currency),
		Subtotal:          money(s.Subtotal),
		Tax:               money(s.Tax),
		Total:             money(s.Total),
		AuthorizationCode: s.AuthorizationCode,
		Lines:             toCartLineDTOs(s.Lines),
		CreatedAt:         s.CreatedAt.UTC().Format(time.RFC3339),
	}
}
