/*
ledger.go - Cart ledger with stock-constrained quantities

PURPOSE:
  The CartLedger holds the lines of the sale being assembled. It is the
  only place where quantities change, and it checks every increase against
  the catalog's current stock.

CRITICAL INVARIANTS:
  1. UNIQUE: At most one line per product
  2. POSITIVE: A line never holds quantity 0; it is removed instead
  3. BOUNDED: 0 < quantity <= current stock of the product
  4. ORDERED: Lines keep insertion order

FAILED OPERATIONS:
  A rejected add or increment leaves the ledger untouched and returns a
  *StockError. Nothing is partially applied.

VERSIONING:
  Every mutation bumps Version(). The session compares versions to decide
  whether its cached billing snapshot is stale.

The ledger is not safe for concurrent use on its own; Session serializes
access to it.
*/
package pos

import (
	"context"
	"fmt"
)

type CartLedger struct {
	catalog  Catalog
	currency Currency // when set, new lines must be priced in it
	lines    []CartLine
	index    map[ProductID]int
	version  uint64
}

func NewCartLedger(catalog Catalog) *CartLedger {
	return &CartLedger{
		catalog: catalog,
		index:   make(map[ProductID]int),
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

// AddItem adds one unit of the product. A new line snapshots the catalog price.
func (l *CartLedger) AddItem(ctx context.Context, id ProductID) error {
	product, err := l.catalog.Lookup(ctx, id)
	if err != nil {
		return err
	}

	if i, ok := l.index[id]; ok {
		next := l.lines[i].Quantity + 1
		if next > product.Stock {
			return stockExceeded(id, next, product.Stock)
		}
		l.lines[i].Quantity = next
		l.version++
		return nil
	}

	if product.Stock <= 0 {
		return outOfStock(id)
	}
	if l.currency != "" && product.UnitPrice.Currency != l.currency {
		return fmt.Errorf("%w: product %s is priced in %s, register bills in %s",
			ErrCurrencyMismatch, id, product.UnitPrice.Currency, l.currency)
	}
	l.index[id] = len(l.lines)
	l.lines = append(l.lines, CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.UnitPrice,
		Quantity:  1,
	})
	l.version++
	return nil
}

// ChangeQuantity applies delta (+1 or -1) to an existing line.
// Decrementing the last unit removes the line.
func (l *CartLedger) ChangeQuantity(ctx context.Context, id ProductID, delta int) error {
	if delta != 1 && delta != -1 {
		return ErrInvalidDelta
	}
	i, ok := l.index[id]
	if !ok {
		return ErrUnknownLine
	}

	next := l.lines[i].Quantity + delta
	if delta > 0 {
		stock, err := l.catalog.CurrentStock(ctx, id)
		if err != nil {
			return err
		}
		if next > stock {
			return stockExceeded(id, next, stock)
		}
	}
	if next <= 0 {
		l.RemoveItem(id)
		return nil
	}
	l.lines[i].Quantity = next
	l.version++
	return nil
}

// RemoveItem deletes the line for id. Absent lines are a no-op.
func (l *CartLedger) RemoveItem(id ProductID) {
	i, ok := l.index[id]
	if !ok {
		return
	}
	l.lines = append(l.lines[:i], l.lines[i+1:]...)
	delete(l.index, id)
	for j := i; j < len(l.lines); j++ {
		l.index[l.lines[j].ProductID] = j
	}
	l.version++
}

func (l *CartLedger) Clear() {
	if len(l.lines) == 0 {
		return
	}
	l.lines = nil
	l.index = make(map[ProductID]int)
	l.version++
}

// =============================================================================
// QUERIES
// =============================================================================

// Lines returns a copy of the lines in insertion order.
func (l *CartLedger) Lines() []CartLine {
	out := make([]CartLine, len(l.lines))
	copy(out, l.lines)
	return out
}

// Line returns the line for id, if present.
func (l *CartLedger) Line(id ProductID) (CartLine, bool) {
	i, ok := l.index[id]
	if !ok {
		return CartLine{}, false
	}
	return l.lines[i], true
}

func (l *CartLedger) Len() int { return len(l.lines) }

func (l *CartLedger) TotalItemCount() int {
	total := 0
	for _, line := range l.lines {
		total += line.Quantity
	}
	return total
}

func (l *CartLedger) Version() uint64 { return l.version }
