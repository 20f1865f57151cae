package fiscal_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/fiscal"
	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/pos"
	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/pos/store"
)

func ars(v int64) pos.Money { return pos.NewMoney(v, pos.CurrencyARS) }

func sampleRequest() pos.FiscalRequest {
	return pos.FiscalRequest{
		Lines: []pos.FiscalLine{
			{ProductID: "1", UnitPrice: ars(3500), Quantity: 2},
			{ProductID: "2", UnitPrice: ars(8900), Quantity: 1},
		},
		Total: ars(19239),
	}
}

func newCatalog() *store.Memory {
	return store.NewMemory(pos.Product{
		ID: "1", Name: "Yerba Mate Taragüi 1Kg", UnitPrice: ars(3500), Stock: 45, Category: pos.CategoryPantry,
	})
}

func newTestServer(t *testing.T) (*fiscal.Simulator, *fiscal.Client) {
	t.Helper()
	sim := fiscal.NewSimulator()
	srv := httptest.NewServer(sim.Router())
	t.Cleanup(srv.Close)
	return sim, fiscal.NewClient(srv.URL + "/")
}

// =============================================================================
// SIMULATOR
// =============================================================================

func TestSimulator_IssuesCodes(t *testing.T) {
	sim := fiscal.NewSimulator()

	resp, err := sim.Authorize(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.AuthorizationCode, "CAE-"))

	inv, ok := sim.Invoice(resp.AuthorizationCode)
	require.True(t, ok)
	assert.True(t, inv.Total.Equal(ars(19239)))

	other, err := sim.Authorize(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.NotEqual(t, resp.AuthorizationCode, other.AuthorizationCode)
}

func TestSimulator_RejectsInvalidInvoices(t *testing.T) {
	sim := fiscal.NewSimulator()

	_, err := sim.Authorize(context.Background(), pos.FiscalRequest{Total: ars(100)})
	assert.ErrorContains(t, err, "no lines")

	req := sampleRequest()
	req.Total = ars(0)
	_, err = sim.Authorize(context.Background(), req)
	assert.ErrorContains(t, err, "total must be positive")
}

func TestSimulator_RejectMode(t *testing.T) {
	sim := fiscal.NewSimulator()
	sim.Reject("CUIT inhabilitado")

	_, err := sim.Authorize(context.Background(), sampleRequest())
	assert.ErrorContains(t, err, "CUIT inhabilitado")

	sim.Reject("")
	_, err = sim.Authorize(context.Background(), sampleRequest())
	assert.NoError(t, err)
}

func TestSimulator_LatencyHonorsContext(t *testing.T) {
	sim := fiscal.NewSimulator()
	sim.SetLatency(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := sim.Authorize(ctx, sampleRequest())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// =============================================================================
// HTTP CLIENT
// =============================================================================

func TestClient_AuthorizeOverHTTP(t *testing.T) {
	sim, client := newTestServer(t)

	resp, err := client.Authorize(context.Background(), sampleRequest())
	require.NoError(t, err)

	inv, ok := sim.Invoice(resp.AuthorizationCode)
	require.True(t, ok, "invoice recorded by the authority")
	require.Len(t, inv.Lines, 2)
	assert.Equal(t, pos.ProductID("1"), inv.Lines[0].ProductID)
	assert.Equal(t, 2, inv.Lines[0].Quantity)
	assert.True(t, inv.Lines[0].UnitPrice.Equal(ars(3500)))
	assert.True(t, inv.Total.Equal(ars(19239)))
}

func TestClient_RejectionIsError(t *testing.T) {
	sim, client := newTestServer(t)
	sim.Reject("padrón no encontrado")

	_, err := client.Authorize(context.Background(), sampleRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")
	assert.Contains(t, err.Error(), "padrón no encontrado")
}

func TestClient_ContextDeadline(t *testing.T) {
	sim, client := newTestServer(t)
	sim.SetLatency(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.Authorize(ctx, sampleRequest())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_ErrorFieldWith200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(fiscal.InvoiceResponse{Error: "servicio en mantenimiento"})
	}))
	defer srv.Close()

	_, err := fiscal.NewClient(srv.URL).Authorize(context.Background(), sampleRequest())

	assert.ErrorContains(t, err, "servicio en mantenimiento")
}

func TestClient_GarbageResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := fiscal.NewClient(srv.URL).Authorize(context.Background(), sampleRequest())

	assert.ErrorContains(t, err, "status 502")
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := fiscal.NewClient(url).Authorize(context.Background(), sampleRequest())

	assert.ErrorContains(t, err, "unreachable")
}

func TestSimulatorRouter_GetInvoice(t *testing.T) {
	sim := fiscal.NewSimulator()
	resp, err := sim.Authorize(context.Background(), sampleRequest())
	require.NoError(t, err)
	router := sim.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/"+resp.AuthorizationCode, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body fiscal.InvoiceRequest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ARS", body.Currency)
	assert.Equal(t, "19239", body.Total.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCoordinator_WithHTTPAuthority(t *testing.T) {
	// GIVEN: A register in fiscal mode talking to the authority over HTTP
	// WHEN: Paying, first while the authority rejects, then after it recovers
	// THEN: The first attempt fails and keeps the cart, the retry finalizes

	sim, client := newTestServer(t)
	catalog := newCatalog()
	session := pos.NewSession(catalog, pos.NewBillingEngine(pos.DefaultTaxRate, pos.CurrencyARS))
	coordinator := pos.NewCoordinator(session, client)
	ctx := context.Background()

	_, err := session.AddItem(ctx, "1")
	require.NoError(t, err)
	_, err = session.SetMode(pos.ModeFiscal)
	require.NoError(t, err)

	sim.Reject("sin conexión con AFIP")
	_, err = coordinator.RequestPayment(ctx, pos.TenderCash)
	require.ErrorIs(t, err, pos.ErrFiscalAuthorizationFailed)
	assert.Equal(t, 1, session.TotalItemCount())

	sim.Reject("")
	outcome, err := coordinator.RequestPayment(ctx, pos.TenderCash)
	require.NoError(t, err)
	assert.True(t, outcome.AmountCharged.Equal(ars(4235)))
	_, ok := sim.Invoice(outcome.AuthorizationCode)
	assert.True(t, ok)
}
