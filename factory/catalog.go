/*
Package factory provides JSON to Go catalog conversion.

PURPOSE:
  Converts JSON product definitions into pos.Product values. This keeps the
  catalog editable without code changes: the back office exports a JSON
  document and the register loads it into its store.

JSON SCHEMA:
  {
    "currency": "ARS",
    "products": [
      {"id": "1", "name": "Yerba Mate Taragüi 1Kg", "price": 3500, "stock": 45, "category": "almacen"}
    ]
  }

  "price" accepts a JSON number or a decimal string ("12.50"). It is parsed
  straight into decimal.Decimal, never through float64.

VALIDATION:
  - id and name are required, ids must be unique
  - price and stock must be non-negative
  - category must be one of pos.Categories
  - currency must match the factory's Currency (ARS by default);
    a catalog without one is priced in it

USAGE:
  f := factory.NewCatalogFactory()
  products, err := f.ParseCatalog(factory.DefaultCatalogJSON)

SEE ALSO:
  - pos/types.go: Product definition
  - store/sqlite/sqlite.go: SaveProducts for loading the result
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/pos"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CatalogJSON is the JSON representation of a catalog export.
type CatalogJSON struct {
	Currency string        `json:"currency,omitempty"`
	Products []ProductJSON `json:"products"`
}

// ProductJSON is the JSON representation of a single product.
type ProductJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Category string          `json:"category"`
}

// =============================================================================
// CATALOG FACTORY
// =============================================================================

// CatalogFactory converts JSON catalogs to products.
type CatalogFactory struct {
	// Currency is the register's billing currency. Every product is
	// priced in it; a catalog declaring another currency is rejected.
	Currency pos.Currency
}

func NewCatalogFactory() *CatalogFactory {
	return &CatalogFactory{Currency: pos.CurrencyARS}
}

// ParseCatalog parses a JSON document into products, in document order.
func (f *CatalogFactory) ParseCatalog(jsonStr string) ([]pos.Product, error) {
	var cj CatalogJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	return f.FromJSON(cj)
}

// FromJSON validates and converts a CatalogJSON.
func (f *CatalogFactory) FromJSON(cj CatalogJSON) ([]pos.Product, error) {
	currency := f.Currency
	if declared := pos.Currency(strings.ToUpper(cj.Currency)); declared != "" && declared != currency {
		return nil, fmt.Errorf("%w: catalog is priced in %s, register bills in %s",
			pos.ErrCurrencyMismatch, declared, currency)
	}

	seen := make(map[string]bool, len(cj.Products))
	products := make([]pos.Product, 0, len(cj.Products))
	for i, pj := range cj.Products {
		if err := validateProduct(pj); err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
		if seen[pj.ID] {
			return nil, fmt.Errorf("product %d: duplicate id %q", i, pj.ID)
		}
		seen[pj.ID] = true

		products = append(products, pos.Product{
			ID:        pos.ProductID(pj.ID),
			Name:      pj.Name,
			UnitPrice: pos.NewMoneyFromDecimal(pj.Price, currency),
			Stock:     pj.Stock,
			Category:  pos.Category(pj.Category),
		})
	}
	return products, nil
}

func validateProduct(pj ProductJSON) error {
	switch {
	case strings.TrimSpace(pj.ID) == "":
		return fmt.Errorf("id is required")
	case strings.TrimSpace(pj.Name) == "":
		return fmt.Errorf("name is required for %q", pj.ID)
	case pj.Price.IsNegative():
		return fmt.Errorf("price must be non-negative for %q", pj.ID)
	case pj.Stock < 0:
		return fmt.Errorf("stock must be non-negative for %q", pj.ID)
	case !pos.Category(pj.Category).Valid():
		return fmt.Errorf("unknown category %q for %q", pj.Category, pj.ID)
	}
	return nil
}

// ToJSON converts products back into the export format.
func ToJSON(products []pos.Product) CatalogJSON {
	cj := CatalogJSON{Products: make([]ProductJSON, len(products))}
	for i, p := range products {
		if cj.Currency == "" {
			cj.Currency = string(p.UnitPrice.Currency)
		}
		cj.Products[i] = ProductJSON{
			ID:       string(p.ID),
			Name:     p.Name,
			Price:    p.UnitPrice.Value,
			Stock:    p.Stock,
			Category: string(p.Category),
		}
	}
	return cj
}

// =============================================================================
// PRESETS
// =============================================================================

// DefaultCatalogJSON is the starter catalog of a corner store register.
const DefaultCatalogJSON = `{
  "currency": "ARS",
  "products": [
    {"id": "1", "name": "Yerba Mate Taragüi 1Kg", "price": 3500, "stock": 45, "category": "almacen"},
    {"id": "2", "name": "Fernet Branca 750ml", "price": 8900, "stock": 12, "category": "bebidas"},
    {"id": "3", "name": "Coca Cola V. Retornable 2L", "price": 2100, "stock": 30, "category": "bebidas"},
    {"id": "4", "name": "Alfajor Guaymallen (Caja x 40)", "price": 8500, "stock": 5, "category": "almacen"},
    {"id": "5", "name": "COMBO: Fernet + 2 Cocas", "price": 12500, "stock": 10, "category": "combos"},
    {"id": "6", "name": "Vino Rutini Malbec", "price": 14500, "stock": 3, "category": "bebidas"},
    {"id": "7", "name": "Cerveza Quilmes Lata 473ml", "price": 1200, "stock": 100, "category": "bebidas"},
    {"id": "8", "name": "Fideos Matarazzo 500g", "price": 950, "stock": 80, "category": "almacen"}
  ]
}`

// DefaultCatalog parses DefaultCatalogJSON. It panics only if the constant is broken.
func DefaultCatalog() []pos.Product {
	products, err := NewCatalogFactory().ParseCatalog(DefaultCatalogJSON)
	if err != nil {
		panic(err)
	}
	return products
}
