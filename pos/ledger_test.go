package pos_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/pos"
	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/pos/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func product(id string, price int64, stock int) pos.Product {
	return pos.Product{
		ID:        pos.ProductID(id),
		Name:      "Product " + id,
		UnitPrice: pos.NewMoney(price, pos.CurrencyARS),
		Stock:     stock,
		Category:  pos.CategoryPantry,
	}
}

func newTestCatalog() *store.Memory {
	return store.NewMemory(
		product("yerba", 3500, 45),
		product("fernet", 8900, 12),
		product("alfajor", 8500, 5),
		product("empty", 1000, 0),
	)
}

func newTestLedger(t *testing.T) (*pos.CartLedger, *store.Memory) {
	t.Helper()
	catalog := newTestCatalog()
	return pos.NewCartLedger(catalog), catalog
}

// =============================================================================
// ADD ITEM
// =============================================================================

func TestCartLedger_AddItem_NewLineSnapshotsPrice(t *testing.T) {
	ledger, catalog := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.AddItem(ctx, "yerba"))

	// Catalog price changes after the line exists
	p := product("yerba", 9999, 45)
	require.NoError(t, catalog.SaveProduct(ctx, p))
	require.NoError(t, ledger.AddItem(ctx, "yerba"))

	line, ok := ledger.Line("yerba")
	require.True(t, ok)
	assert.Equal(t, 2, line.Quantity)
	assert.True(t, line.UnitPrice.Equal(pos.NewMoney(3500, pos.CurrencyARS)), "price must stay at add-time snapshot")
}

func TestCartLedger_AddItem_OutOfStock(t *testing.T) {
	ledger, _ := newTestLedger(t)

	err := ledger.AddItem(context.Background(), "empty")

	assert.ErrorIs(t, err, pos.ErrOutOfStock)
	assert.Equal(t, 0, ledger.Len(), "no line may be created")
	assert.Equal(t, uint64(0), ledger.Version())
}

func TestCartLedger_AddItem_StockExceeded(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, ledger.AddItem(ctx, "alfajor"))
	}
	err := ledger.AddItem(ctx, "alfajor")

	var stockErr *pos.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.ErrorIs(t, err, pos.ErrStockExceeded)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)

	line, _ := ledger.Line("alfajor")
	assert.Equal(t, 5, line.Quantity, "line must be unchanged")
}

func TestCartLedger_AddItem_UnknownProduct(t *testing.T) {
	ledger, _ := newTestLedger(t)

	err := ledger.AddItem(context.Background(), "nope")

	assert.ErrorIs(t, err, pos.ErrProductNotFound)
	assert.True(t, pos.IsNotFound(err))
}

// =============================================================================
// CHANGE QUANTITY
// =============================================================================

func TestCartLedger_ChangeQuantity_IncrementUpToStock(t *testing.T) {
	// GIVEN: A product with stock 5 already in the cart once
	// WHEN: Incrementing until the ceiling is hit
	// THEN: The increment past stock fails and the quantity stays at 5
	//
	// The six "+" presses on a stock-5 product: the add makes quantity 1,
	// four increments reach 5, and the sixth press is rejected.

	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, ledger.AddItem(ctx, "alfajor"))

	for i := 0; i < 4; i++ {
		require.NoError(t, ledger.ChangeQuantity(ctx, "alfajor", +1))
	}
	err := ledger.ChangeQuantity(ctx, "alfajor", +1)

	assert.ErrorIs(t, err, pos.ErrStockExceeded)
	line, _ := ledger.Line("alfajor")
	assert.Equal(t, 5, line.Quantity)
}

func TestCartLedger_ChangeQuantity_UsesCurrentStock(t *testing.T) {
	ledger, catalog := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, ledger.AddItem(ctx, "yerba"))

	catalog.SetStock("yerba", 1)

	assert.ErrorIs(t, ledger.ChangeQuantity(ctx, "yerba", +1), pos.ErrStockExceeded)
}

func TestCartLedger_ChangeQuantity_DecrementLastUnitRemovesLine(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, ledger.AddItem(ctx, "yerba"))
	require.NoError(t, ledger.AddItem(ctx, "fernet"))

	require.NoError(t, ledger.ChangeQuantity(ctx, "yerba", -1))

	_, ok := ledger.Line("yerba")
	assert.False(t, ok, "line with quantity 0 must not exist")
	lines := ledger.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, pos.ProductID("fernet"), lines[0].ProductID)

	// index is still consistent after removal
	require.NoError(t, ledger.ChangeQuantity(ctx, "fernet", +1))
	line, _ := ledger.Line("fernet")
	assert.Equal(t, 2, line.Quantity)
}

func TestCartLedger_ChangeQuantity_Errors(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, ledger.AddItem(ctx, "yerba"))

	tests := []struct {
		name  string
		id    pos.ProductID
		delta int
		want  error
	}{
		{"unknown line", "fernet", +1, pos.ErrUnknownLine},
		{"unknown line decrement", "fernet", -1, pos.ErrUnknownLine},
		{"zero delta", "yerba", 0, pos.ErrInvalidDelta},
		{"large delta", "yerba", 2, pos.ErrInvalidDelta},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ledger.ChangeQuantity(ctx, tt.id, tt.delta), tt.want)
		})
	}

	line, _ := ledger.Line("yerba")
	assert.Equal(t, 1, line.Quantity)
}

// =============================================================================
// REMOVE / CLEAR / QUERIES
// =============================================================================

func TestCartLedger_RemoveItem_AbsentIsNoop(t *testing.T) {
	ledger, _ := newTestLedger(t)

	ledger.RemoveItem("yerba")

	assert.Equal(t, 0, ledger.Len())
	assert.Equal(t, uint64(0), ledger.Version())
}

func TestCartLedger_LinesKeepInsertionOrder(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	for _, id := range []pos.ProductID{"fernet", "yerba", "alfajor", "yerba"} {
		require.NoError(t, ledger.AddItem(ctx, id))
	}
	ledger.RemoveItem("fernet")

	var ids []pos.ProductID
	for _, l := range ledger.Lines() {
		ids = append(ids, l.ProductID)
	}
	assert.Equal(t, []pos.ProductID{"yerba", "alfajor"}, ids)
	assert.Equal(t, 3, ledger.TotalItemCount())

	// Lines returns a copy
	lines := ledger.Lines()
	lines[0].Quantity = 100
	assert.Equal(t, 3, ledger.TotalItemCount())

	ledger.Clear()
	assert.Equal(t, 0, ledger.TotalItemCount())
	assert.Empty(t, ledger.Lines())
}

func TestCartLedger_QuantityInvariantHoldsForAnySequence(t *testing.T) {
	ledger, catalog := newTestLedger(t)
	ctx := context.Background()
	ids := []pos.ProductID{"yerba", "fernet", "alfajor", "empty"}

	for step := 0; step < 400; step++ {
		id := ids[step%len(ids)]
		switch (step / len(ids)) % 3 {
		case 0, 1:
			_ = ledger.AddItem(ctx, id)
		case 2:
			delta := 1
			if step%2 == 0 {
				delta = -1
			}
			_ = ledger.ChangeQuantity(ctx, id, delta)
		}

		for _, line := range ledger.Lines() {
			stock, err := catalog.CurrentStock(ctx, line.ProductID)
			require.NoError(t, err)
			require.Greater(t, line.Quantity, 0)
			require.LessOrEqual(t, line.Quantity, stock)
		}
	}
}
