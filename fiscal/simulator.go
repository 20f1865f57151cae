package fiscal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/pos"
)

// Simulator is an in-process fiscal authority. It issues "CAE-" codes and
// keeps every authorized invoice in memory.
type Simulator struct {
	mu       sync.Mutex
	latency  time.Duration
	reject   string
	invoices map[string]pos.FiscalRequest
}

func NewSimulator() *Simulator {
	return &Simulator{invoices: make(map[string]pos.FiscalRequest)}
}

// SetLatency delays every authorization by d.
func (s *Simulator) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// Reject makes every following authorization fail with reason.
// An empty reason restores normal operation.
func (s *Simulator) Reject(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = reason
}

// Invoice returns an authorized invoice by code.
func (s *Simulator) Invoice(code string) (pos.FiscalRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[code]
	return inv, ok
}

// Authorize implements pos.FiscalAuthority.
func (s *Simulator) Authorize(ctx context.Context, req pos.FiscalRequest) (pos.FiscalResponse, error) {
	s.mu.Lock()
	latency, reject := s.latency, s.reject
	s.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return pos.FiscalResponse{}, ctx.Err()
		}
	}

	if reject != "" {
		return pos.FiscalResponse{}, errors.New(reject)
	}
	if err := validateInvoice(req); err != nil {
		return pos.FiscalResponse{}, err
	}

	code := "CAE-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:14])
	s.mu.Lock()
	s.invoices[code] = req
	s.mu.Unlock()
	return pos.FiscalResponse{AuthorizationCode: code}, nil
}

func validateInvoice(req pos.FiscalRequest) error {
	if len(req.Lines) == 0 {
		return errors.New("invoice has no lines")
	}
	if !req.Total.Value.IsPositive() {
		return errors.New("invoice total must be positive")
	}
	for _, l := range req.Lines {
		if l.Quantity <= 0 {
			return errors.New("invoice line quantity must be positive")
		}
	}
	return nil
}

// =============================================================================
// HTTP
// =============================================================================

// Router exposes the simulator with the wire format Client speaks.
func (s *Simulator) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Post("/invoices", s.handleAuthorize)
	r.Get("/invoices/{code}", s.handleGetInvoice)
	return r
}

func (s *Simulator) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	var req InvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvoiceResponse(w, http.StatusBadRequest, InvoiceResponse{Error: "invalid request body"})
		return
	}

	resp, err := s.Authorize(r.Context(), fromWire(req))
	if err != nil {
		writeInvoiceResponse(w, http.StatusUnprocessableEntity, InvoiceResponse{Error: err.Error()})
		return
	}
	writeInvoiceResponse(w, http.StatusOK, InvoiceResponse{AuthorizationCode: resp.AuthorizationCode})
}

func (s *Simulator) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.Invoice(chi.URLParam(r, "code"))
	if !ok {
		writeInvoiceResponse(w, http.StatusNotFound, InvoiceResponse{Error: "invoice not found"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(toWire(inv))
}

func writeInvoiceResponse(w http.ResponseWriter, status int, resp InvoiceResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
