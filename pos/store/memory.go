// Package store provides in-memory implementations of the register ports.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/pos"
)

// =============================================================================
// MEMORY STORE - In-memory catalog and sales journal (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	products map[pos.ProductID]pos.Product
	order    []pos.ProductID
	sales    []pos.Sale
}

func NewMemory(products ...pos.Product) *Memory {
	m := &Memory{products: make(map[pos.ProductID]pos.Product)}
	for _, p := range products {
		m.putLocked(p)
	}
	return m
}

// SaveProduct inserts or replaces a product.
func (m *Memory) SaveProduct(_ context.Context, p pos.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(p)
	return nil
}

// SetStock overwrites the stock of an existing product.
func (m *Memory) SetStock(id pos.ProductID, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		p.Stock = stock
		m.products[id] = p
	}
}

func (m *Memory) putLocked(p pos.Product) {
	if _, exists := m.products[p.ID]; !exists {
		m.order = append(m.order, p.ID)
	}
	m.products[p.ID] = p
}

func (m *Memory) Lookup(_ context.Context, id pos.ProductID) (pos.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return pos.Product{}, fmt.Errorf("%w: %s", pos.ErrProductNotFound, id)
	}
	return p, nil
}

func (m *Memory) CurrentStock(ctx context.Context, id pos.ProductID) (int, error) {
	p, err := m.Lookup(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.Stock, nil
}

// List returns products in insertion order, filtered by name and category.
func (m *Memory) List(_ context.Context, filter pos.ProductFilter) ([]pos.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var out []pos.Product
	for _, id := range m.order {
		p := m.products[id]
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// RecordSale appends the sale and deducts sold quantities from stock.
// Stock never goes below zero.
func (m *Memory) RecordSale(_ context.Context, sale pos.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, line := range sale.Lines {
		p, ok := m.products[line.ProductID]
		if !ok {
			continue
		}
		p.Stock -= line.Quantity
		if p.Stock < 0 {
			p.Stock = 0
		}
		m.products[line.ProductID] = p
	}
	m.sales = append(m.sales, sale)
	return nil
}

// Sales returns recorded sales, newest first.
func (m *Memory) Sales() []pos.Sale {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]pos.Sale, len(m.sales))
	copy(out, m.sales)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
