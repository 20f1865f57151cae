package pos_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/pos"
)

func newTestSession(t *testing.T) *pos.Session {
	t.Helper()
	return pos.NewSession(newTestCatalog(), pos.NewBillingEngine(pos.DefaultTaxRate, pos.CurrencyARS))
}

func TestSession_EndToEndTotals(t *testing.T) {
	// GIVEN: Yerba (3500, stock 45) x2 and Fernet (8900, stock 12) x1
	// WHEN: Reading totals in internal mode, then switching to fiscal
	// THEN: 15900 internal; 3339 tax and 19239 total in fiscal

	s := newTestSession(t)
	ctx := context.Background()

	_, err := s.AddItem(ctx, "yerba")
	require.NoError(t, err)
	_, err = s.AddItem(ctx, "yerba")
	require.NoError(t, err)
	v, err := s.AddItem(ctx, "fernet")
	require.NoError(t, err)

	assert.Equal(t, 3, v.TotalItems)
	assert.Equal(t, pos.ModeInternal, v.Mode)
	assert.True(t, v.Billing.Subtotal.Equal(ars(15900)))
	assert.True(t, v.Billing.Total.Equal(ars(15900)))
	assert.True(t, v.Billing.Tax.IsZero(), "tax suppressed in internal mode")

	v, err = s.SetMode(pos.ModeFiscal)
	require.NoError(t, err)
	assert.True(t, v.Billing.Tax.Equal(ars(3339)))
	assert.True(t, v.Billing.Total.Equal(ars(19239)))
	assert.Equal(t, 3, v.TotalItems, "mode switch never touches the ledger")
}

func TestSession_ModeRoundTripKeepsSnapshot(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	_, err := s.AddItem(ctx, "fernet")
	require.NoError(t, err)
	before := s.Billing()

	_, err = s.SetMode(pos.ModeFiscal)
	require.NoError(t, err)
	_, err = s.SetMode(pos.ModeInternal)
	require.NoError(t, err)

	assert.Equal(t, before, s.Billing())
}

func TestSession_SnapshotTracksMutations(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	_, err := s.AddItem(ctx, "yerba")
	require.NoError(t, err)
	assert.True(t, s.Billing().Total.Equal(ars(3500)))

	_, err = s.ChangeQuantity(ctx, "yerba", +1)
	require.NoError(t, err)
	assert.True(t, s.Billing().Total.Equal(ars(7000)))

	_, err = s.RemoveItem("yerba")
	require.NoError(t, err)
	assert.True(t, s.Billing().Total.IsZero())
	assert.Equal(t, 0, s.TotalItemCount())
}

func TestSession_SubscribersSeeEveryChange(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	var views []pos.View
	unsubscribe := s.Subscribe(func(v pos.View) { views = append(views, v) })

	_, err := s.AddItem(ctx, "yerba")
	require.NoError(t, err)
	_, err = s.SetMode(pos.ModeFiscal)
	require.NoError(t, err)

	// Failed commands change nothing and notify nobody
	_, err = s.AddItem(ctx, "empty")
	require.ErrorIs(t, err, pos.ErrOutOfStock)
	_, err = s.RemoveItem("fernet")
	require.NoError(t, err)

	require.Len(t, views, 2)
	assert.Equal(t, 1, views[0].TotalItems)
	assert.Equal(t, pos.ModeFiscal, views[1].Mode)
	assert.True(t, views[1].Billing.Total.Equal(ars(4235)))

	unsubscribe()
	_, err = s.AddItem(ctx, "yerba")
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestSession_FailedCommandReturnsCurrentView(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	_, err := s.AddItem(ctx, "yerba")
	require.NoError(t, err)

	v, err := s.ChangeQuantity(ctx, "fernet", +1)

	assert.ErrorIs(t, err, pos.ErrUnknownLine)
	assert.Equal(t, 1, v.TotalItems)
	assert.Equal(t, pos.StateIdle, v.State)
}

func TestSession_RejectsProductsInAnotherCurrency(t *testing.T) {
	// GIVEN: A register billing in USD over a catalog priced in ARS
	// WHEN: Adding a product
	// THEN: The line is refused instead of summing ARS prices as USD

	billing := pos.NewBillingEngine(pos.DefaultTaxRate, pos.Currency("USD"))
	s := pos.NewSession(newTestCatalog(), billing)

	v, err := s.AddItem(context.Background(), "yerba")

	assert.ErrorIs(t, err, pos.ErrCurrencyMismatch)
	assert.Equal(t, 0, v.TotalItems)
	assert.True(t, v.Billing.Total.IsZero())
	assert.Equal(t, pos.Currency("USD"), v.Billing.Total.Currency)
}
