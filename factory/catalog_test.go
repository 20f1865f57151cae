package factory_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/factory"
	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/pos"
)

func TestParseCatalog_Default(t *testing.T) {
	products, err := factory.NewCatalogFactory().ParseCatalog(factory.DefaultCatalogJSON)
	require.NoError(t, err)
	require.Len(t, products, 8)

	yerba := products[0]
	assert.Equal(t, pos.ProductID("1"), yerba.ID)
	assert.Equal(t, "Yerba Mate Taragüi 1Kg", yerba.Name)
	assert.True(t, yerba.UnitPrice.Equal(pos.NewMoney(3500, pos.CurrencyARS)))
	assert.Equal(t, 45, yerba.Stock)
	assert.Equal(t, pos.CategoryPantry, yerba.Category)

	assert.Equal(t, pos.CategoryCombos, products[4].Category)
	assert.True(t, products[5].LowStock())
}

func TestParseCatalog_DecimalStringPrice(t *testing.T) {
	products, err := factory.NewCatalogFactory().ParseCatalog(`{
		"products": [{"id": "x", "name": "Chicle", "price": "12.50", "stock": 3, "category": "almacen"}]
	}`)
	require.NoError(t, err)

	assert.Equal(t, "ARS 12.50", products[0].UnitPrice.String())
}

func TestParseCatalog_CurrencyMatchesRegister(t *testing.T) {
	f := factory.NewCatalogFactory()
	f.Currency = pos.Currency("USD")

	products, err := f.ParseCatalog(`{
		"currency": "usd",
		"products": [{"id": "x", "name": "Chicle", "price": 1, "stock": 3, "category": "almacen"}]
	}`)
	require.NoError(t, err)

	assert.Equal(t, pos.Currency("USD"), products[0].UnitPrice.Currency)
}

func TestParseCatalog_CurrencyMismatchRejected(t *testing.T) {
	// GIVEN: A register billing in USD
	f := factory.NewCatalogFactory()
	f.Currency = pos.Currency("USD")

	// WHEN: The built-in catalog, priced in ARS, is parsed
	products, err := f.ParseCatalog(factory.DefaultCatalogJSON)

	// THEN: Nothing is relabelled; the catalog is refused
	require.ErrorIs(t, err, pos.ErrCurrencyMismatch)
	assert.Nil(t, products)
}

func TestParseCatalog_MissingCurrencyUsesRegister(t *testing.T) {
	f := factory.NewCatalogFactory()
	f.Currency = pos.Currency("USD")

	products, err := f.ParseCatalog(`{
		"products": [{"id": "x", "name": "Chicle", "price": 1, "stock": 3, "category": "almacen"}]
	}`)
	require.NoError(t, err)

	assert.Equal(t, pos.Currency("USD"), products[0].UnitPrice.Currency)
}

func TestParseCatalog_Validation(t *testing.T) {
	tests := []struct {
		name    string
		product string
		wantErr string
	}{
		{"missing id", `{"name": "A", "price": 1, "stock": 1, "category": "almacen"}`, "id is required"},
		{"missing name", `{"id": "a", "price": 1, "stock": 1, "category": "almacen"}`, "name is required"},
		{"negative price", `{"id": "a", "name": "A", "price": -1, "stock": 1, "category": "almacen"}`, "price must be non-negative"},
		{"negative stock", `{"id": "a", "name": "A", "price": 1, "stock": -1, "category": "almacen"}`, "stock must be non-negative"},
		{"unknown category", `{"id": "a", "name": "A", "price": 1, "stock": 1, "category": "ropa"}`, "unknown category"},
	}

	f := factory.NewCatalogFactory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseCatalog(`{"products": [` + tt.product + `]}`)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseCatalog_DuplicateID(t *testing.T) {
	_, err := factory.NewCatalogFactory().ParseCatalog(`{"products": [
		{"id": "a", "name": "A", "price": 1, "stock": 1, "category": "almacen"},
		{"id": "a", "name": "B", "price": 2, "stock": 1, "category": "almacen"}
	]}`)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
}

func TestParseCatalog_InvalidJSON(t *testing.T) {
	_, err := factory.NewCatalogFactory().ParseCatalog(`{"products": [`)
	assert.ErrorContains(t, err, "failed to parse catalog JSON")
}

func TestToJSON_RoundTripsThroughFactory(t *testing.T) {
	original := factory.DefaultCatalog()

	raw, err := json.Marshal(factory.ToJSON(original))
	require.NoError(t, err)
	parsed, err := factory.NewCatalogFactory().ParseCatalog(string(raw))
	require.NoError(t, err)

	require.Len(t, parsed, len(original))
	for i := range original {
		assert.Equal(t, original[i].ID, parsed[i].ID)
		assert.True(t, original[i].UnitPrice.Equal(parsed[i].UnitPrice))
	}
}
