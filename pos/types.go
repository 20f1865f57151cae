/*
Package pos provides the point-of-sale cart and billing core.

PURPOSE:
  This package owns the only stateful part of the register: the cart
  ledger, the billing engine that turns the ledger into totals, and the
  checkout coordinator that settles a sale. Catalog storage, rendering and
  the fiscal authority are collaborators reached through interfaces.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A decimal amount in a currency (e.g., ARS 3500.00)
  - Product: Catalog entry, read-only to the core
  - CartLine: One product in the cart with a price captured at add time
  - BillingMode: Internal receipt vs. fiscal invoice
  - SaleOutcome: Result of a payment attempt

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so repeated additions never drift
  2. Price stability: Lines keep the unit price seen when first added
  3. Type Safety: Strong typing for IDs, modes and tender types

USAGE:
  price := pos.NewMoney(3500, pos.CurrencyARS)
  line := pos.CartLine{ProductID: "1", UnitPrice: price, Quantity: 2}
  line.Total() // ARS 7000.00

SEE ALSO:
  - ledger.go: Cart ledger operations
  - billing.go: Subtotal/tax/total computation
  - checkout.go: Payment lifecycle
*/
package pos

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal amount with currency
// =============================================================================

type Money struct {
	Value    decimal.Decimal
	Currency Currency
}

type Currency string

const CurrencyARS Currency = "ARS"

// MoneyDecimals is the number of minor-unit digits used for display and tax rounding.
const MoneyDecimals = 2

func NewMoney(value int64, currency Currency) Money {
	return Money{Value: decimal.NewFromInt(value), Currency: currency}
}

func NewMoneyFromDecimal(value decimal.Decimal, currency Currency) Money {
	return Money{Value: value, Currency: currency}
}

// ParseMoney parses a decimal string such as "3500" or "12.50".
func ParseMoney(s string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{Value: d, Currency: currency}, nil
}

func (m Money) Zero() Money                 { return Money{Value: decimal.Zero, Currency: m.Currency} }
func (m Money) Add(o Money) Money           { return Money{Value: m.Value.Add(o.Value), Currency: m.Currency} }
func (m Money) Sub(o Money) Money           { return Money{Value: m.Value.Sub(o.Value), Currency: m.Currency} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Value: m.Value.Mul(s), Currency: m.Currency} }
func (m Money) MulInt(n int) Money          { return m.Mul(decimal.NewFromInt(int64(n))) }
func (m Money) Round() Money                { return Money{Value: m.Value.Round(MoneyDecimals), Currency: m.Currency} }
func (m Money) IsZero() bool                { return m.Value.IsZero() }
func (m Money) Equal(o Money) bool          { return m.Currency == o.Currency && m.Value.Equal(o.Value) }

// String renders the amount with two decimals, e.g. "ARS 19239.00".
// Locale formatting belongs to the rendering layer.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Currency, m.Value.StringFixed(MoneyDecimals))
}

// =============================================================================
// CATALOG TYPES
// =============================================================================

type ProductID string

type Category string

const (
	CategoryPantry    Category = "almacen"
	CategoryBeverages Category = "bebidas"
	CategoryCombos    Category = "combos"
)

// Categories lists every valid category label in display order.
var Categories = []Category{CategoryPantry, CategoryBeverages, CategoryCombos}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Product is owned by the catalog. The core never mutates it.
type Product struct {
	ID        ProductID
	Name      string
	UnitPrice Money
	Stock     int
	Category  Category
}

// LowStockThreshold marks products the rendering layer should flag.
const LowStockThreshold = 10

func (p Product) LowStock() bool { return p.Stock < LowStockThreshold }

// =============================================================================
// CART LINE
// =============================================================================

// CartLine is one product in the cart. UnitPrice is captured when the line is
// created and is never re-read from the catalog.
type CartLine struct {
	ProductID ProductID
	Name      string
	UnitPrice Money
	Quantity  int
}

func (l CartLine) Total() Money { return l.UnitPrice.MulInt(l.Quantity) }

// =============================================================================
// BILLING MODE
// =============================================================================

type BillingMode string

const (
	ModeInternal BillingMode = "internal" // Non-fiscal receipt, no tax disclosed
	ModeFiscal   BillingMode = "fiscal"   // Authorized invoice with tax on top of prices
)

func (m BillingMode) Valid() bool { return m == ModeInternal || m == ModeFiscal }

// BillingSnapshot is derived from the ledger and the mode. It is never stored.
type BillingSnapshot struct {
	Mode     BillingMode
	TaxRate  decimal.Decimal
	Subtotal Money
	Tax      Money
	Total    Money
}

// =============================================================================
// CHECKOUT TYPES
// =============================================================================

type TenderType string

const (
	TenderCash TenderType = "cash"
	TenderCard TenderType = "card"
)

func (t TenderType) Valid() bool { return t == TenderCash || t == TenderCard }

type CheckoutState string

const (
	StateIdle           CheckoutState = "idle"
	StateAwaitingTender CheckoutState = "awaiting_tender"
)

type OutcomeStatus string

const (
	OutcomeFinalized OutcomeStatus = "finalized"
	OutcomeFailed    OutcomeStatus = "failed"
)

// SaleOutcome is produced by the coordinator for every payment attempt that
// got past validation. It is never stored inside the core.
type SaleOutcome struct {
	Status            OutcomeStatus
	SaleID            string
	AmountCharged     Money
	Tender            TenderType
	AuthorizationCode string // fiscal mode only
	Reason            string // failed only
	Billing           BillingSnapshot
	Lines             []CartLine
	CompletedAt       time.Time
}

func (o SaleOutcome) Finalized() bool { return o.Status == OutcomeFinalized }
