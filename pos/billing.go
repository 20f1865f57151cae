/*
billing.go - Billing engine: subtotal, tax and total

PURPOSE:
  Turns cart lines into a BillingSnapshot under the current billing mode.
  The engine holds no state besides the mode and the tax rate, and it never
  touches the ledger.

ARITHMETIC:
  subtotal = sum(unit price x quantity)           (both modes)
  internal: tax = 0,                    total = subtotal
  fiscal:   tax = round(subtotal x rate, 2), total = subtotal + tax

  Fiscal prices are tax-exclusive: tax is added on top of catalog prices,
  so switching to fiscal changes what the customer pays, not only what the
  receipt shows.

EXAMPLE:
  3500 x 2 + 8900 x 1 = 15900
  internal -> total 15900
  fiscal   -> tax 3339, total 19239
*/
package pos

import "github.com/shopspring/decimal"

// DefaultTaxRate is the IVA rate applied to fiscal invoices.
var DefaultTaxRate = decimal.RequireFromString("0.21")

type BillingEngine struct {
	mode     BillingMode
	taxRate  decimal.Decimal
	currency Currency
}

// NewBillingEngine starts in internal mode.
func NewBillingEngine(taxRate decimal.Decimal, currency Currency) *BillingEngine {
	return &BillingEngine{mode: ModeInternal, taxRate: taxRate, currency: currency}
}

func (b *BillingEngine) Mode() BillingMode        { return b.mode }
func (b *BillingEngine) TaxRate() decimal.Decimal { return b.taxRate }
func (b *BillingEngine) Currency() Currency       { return b.currency }

// SetMode switches the billing regime. Invalid modes leave the engine unchanged.
func (b *BillingEngine) SetMode(mode BillingMode) error {
	if !mode.Valid() {
		return ErrInvalidBillingMode
	}
	b.mode = mode
	return nil
}

// Compute derives the snapshot for lines under the current mode.
func (b *BillingEngine) Compute(lines []CartLine) BillingSnapshot {
	subtotal := NewMoney(0, b.currency)
	for _, line := range lines {
		subtotal = subtotal.Add(line.Total())
	}

	snap := BillingSnapshot{
		Mode:     b.mode,
		TaxRate:  decimal.Zero,
		Subtotal: subtotal,
		Tax:      subtotal.Zero(),
		Total:    subtotal,
	}
	if b.mode == ModeFiscal {
		snap.TaxRate = b.taxRate
		snap.Tax = subtotal.Mul(b.taxRate).Round()
		snap.Total = subtotal.Add(snap.Tax)
	}
	return snap
}
