/*
catalog.go - Ports to the external collaborators of the register

PURPOSE:
  Defines the interfaces between the cart core and everything it does not
  own: the product catalog, the fiscal authority and the sales journal.
  Different implementations can use SQLite, HTTP or in-memory storage.

KEY INTERFACES:
  Catalog:         Read-only product lookup and current stock
  ProductLister:   Search/category listing for the product grid
  FiscalAuthority: Invoice authorization (fiscal mode only)
  SaleRecorder:    Sales journal written after a finalized sale

IMPLEMENTATIONS:
  - pos/store/memory.go: In-memory catalog and journal for tests
  - store/sqlite/sqlite.go: SQLite catalog and journal
  - fiscal/client.go, fiscal/simulator.go: Fiscal authority adapters
*/
package pos

import (
	"context"
	"time"
)

// =============================================================================
// CATALOG - Read-only product source
// =============================================================================

type Catalog interface {
	// Lookup returns the product or ErrProductNotFound.
	Lookup(ctx context.Context, id ProductID) (Product, error)

	// CurrentStock returns the available stock or ErrProductNotFound.
	CurrentStock(ctx context.Context, id ProductID) (int, error)
}

// ProductFilter narrows a product listing. Zero value lists everything.
type ProductFilter struct {
	Search   string   // case-insensitive substring of the product name
	Category Category // empty means all categories
}

type ProductLister interface {
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
}

// =============================================================================
// FISCAL AUTHORITY - External invoice authorization
// =============================================================================

type FiscalLine struct {
	ProductID ProductID
	UnitPrice Money
	Quantity  int
}

type FiscalRequest struct {
	Lines []FiscalLine
	Total Money
}

type FiscalResponse struct {
	AuthorizationCode string
}

// FiscalAuthority issues invoice authorization codes. Any returned error is
// treated by the coordinator as a recoverable authorization failure.
type FiscalAuthority interface {
	Authorize(ctx context.Context, req FiscalRequest) (FiscalResponse, error)
}

// NewFiscalRequest builds the authority payload from ordered cart lines.
func NewFiscalRequest(lines []CartLine, total Money) FiscalRequest {
	out := make([]FiscalLine, len(lines))
	for i, l := range lines {
		out[i] = FiscalLine{ProductID: l.ProductID, UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}
	return FiscalRequest{Lines: out, Total: total}
}

// =============================================================================
// SALES JOURNAL
// =============================================================================

// Sale is a finalized outcome as handed to the journal.
type Sale struct {
	ID                string
	Mode              BillingMode
	Tender            TenderType
	Subtotal          Money
	Tax               Money
	Total             Money
	AuthorizationCode string
	Lines             []CartLine
	CreatedAt         time.Time
}

// SaleRecorder persists finalized sales and deducts the sold stock.
type SaleRecorder interface {
	RecordSale(ctx context.Context, sale Sale) error
}

func saleFromOutcome(o SaleOutcome) Sale {
	return Sale{
		ID:                o.SaleID,
		Mode:              o.Billing.Mode,
		Tender:            o.Tender,
		Subtotal:          o.Billing.Subtotal,
		Tax:               o.Billing.Tax,
		Total:             o.Billing.Total,
		AuthorizationCode: o.AuthorizationCode,
		Lines:             o.Lines,
		CreatedAt:         o.CompletedAt,
	}
}
