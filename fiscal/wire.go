/*
Package fiscal provides adapters to the fiscal authority that authorizes
invoices issued in fiscal billing mode.

IMPLEMENTATIONS:
  Client:    JSON over HTTP against a remote authorization service
  Simulator: In-process authority for development and tests. It can also
             be served over HTTP with Router(), which is what Client talks
             to in the tests.

WIRE FORMAT:
  POST {base}/invoices
    {"currency": "ARS", "total": "19239",
     "lines": [{"product_id": "1", "unit_price": "3500", "quantity": 2}]}

  200 {"authorization_code": "CAE-..."}
  4xx/5xx {"error": "reason"}

  Amounts travel as decimal strings.
*/
package fiscal

import (
	"github.com/shopspring/decimal"

	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/pos"
)

// InvoiceRequest is the JSON body of POST /invoices.
type InvoiceRequest struct {
	Currency string          `json:"currency"`
	Total    decimal.Decimal `json:"total"`
	Lines    []InvoiceLine   `json:"lines"`
}

type InvoiceLine struct {
	ProductID string          `json:"product_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// InvoiceResponse carries either an authorization code or an error.
type InvoiceResponse struct {
	AuthorizationCode string `json:"authorization_code,omitempty"`
	Error             string `json:"error,omitempty"`
}

func toWire(req pos.FiscalRequest) InvoiceRequest {
	out := InvoiceRequest{
		Currency: string(req.Total.Currency),
		Total:    req.Total.Value,
		Lines:    make([]InvoiceLine, len(req.Lines)),
	}
	for i, l := range req.Lines {
		out.Lines[i] = InvoiceLine{
			ProductID: string(l.ProductID),
			UnitPrice: l.UnitPrice.Value,
			Quantity:  l.Quantity,
		}
	}
	return out
}

func fromWire(req InvoiceRequest) pos.FiscalRequest {
	currency := pos.Currency(req.Currency)
	out := pos.FiscalRequest{
		Total: pos.NewMoneyFromDecimal(req.Total, currency),
		Lines: make([]pos.FiscalLine, len(req.Lines)),
	}
	for i, l := range req.Lines {
		out.Lines[i] = pos.FiscalLine{
			ProductID: pos.ProductID(l.ProductID),
			UnitPrice: pos.NewMoneyFromDecimal(l.UnitPrice, currency),
			Quantity:  l.Quantity,
		}
	}
	return out
}
