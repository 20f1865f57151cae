/*
session.go - Session-scoped register state

PURPOSE:
  A Session owns everything one register mutates: the cart ledger, the
  billing engine, the cached billing snapshot and the checkout state.
  There is no package-level state; tests and registers each build their own.

COMMANDS AND QUERIES:
  Commands (AddItem, ChangeQuantity, RemoveItem, SetMode) return the new
  View plus an error. Queries (View, Lines, Billing, ...) only read.
  Subscribers registered with Subscribe receive the View after every
  mutation that changed something.

SNAPSHOT CACHE:
  The billing snapshot is recomputed lazily, keyed by ledger version and
  billing mode, so reads between mutations never redo the arithmetic.

CHECKOUT GUARD:
  While a payment attempt is outstanding (StateAwaitingTender) every
  command returns ErrCheckoutInProgress. The amount sent to the fiscal
  authority is therefore the amount charged.
*/
package pos

import (
	"context"
	"sync"
)

// View is the read-only state handed to the rendering layer.
type View struct {
	Lines      []CartLine
	TotalItems int
	Billing    BillingSnapshot
	Mode       BillingMode
	State      CheckoutState
}

type Session struct {
	mu      sync.Mutex
	ledger  *CartLedger
	billing *BillingEngine
	state   CheckoutState

	cached        BillingSnapshot
	cachedVersion uint64
	cachedMode    BillingMode
	cacheValid    bool

	subMu       sync.Mutex
	subscribers map[int]func(View)
	nextSub     int
}

func NewSession(catalog Catalog, billing *BillingEngine) *Session {
	ledger := NewCartLedger(catalog)
	ledger.currency = billing.Currency()
	return &Session{
		ledger:      ledger,
		billing:     billing,
		state:       StateIdle,
		subscribers: make(map[int]func(View)),
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

func (s *Session) AddItem(ctx context.Context, id ProductID) (View, error) {
	return s.mutate(func() error { return s.ledger.AddItem(ctx, id) })
}

func (s *Session) ChangeQuantity(ctx context.Context, id ProductID, delta int) (View, error) {
	return s.mutate(func() error { return s.ledger.ChangeQuantity(ctx, id, delta) })
}

func (s *Session) RemoveItem(id ProductID) (View, error) {
	return s.mutate(func() error {
		s.ledger.RemoveItem(id)
		return nil
	})
}

// SetMode switches billing mode. The ledger is never touched.
func (s *Session) SetMode(mode BillingMode) (View, error) {
	return s.mutate(func() error { return s.billing.SetMode(mode) })
}

// clear empties the ledger. Only reachable through Coordinator.Cancel.
func (s *Session) clear() (View, error) {
	return s.mutate(func() error {
		s.ledger.Clear()
		return nil
	})
}

func (s *Session) mutate(fn func() error) (View, error) {
	s.mu.Lock()
	if s.state == StateAwaitingTender {
		v := s.viewLocked()
		s.mu.Unlock()
		return v, ErrCheckoutInProgress
	}

	version, mode := s.ledger.Version(), s.billing.Mode()
	err := fn()
	changed := s.ledger.Version() != version || s.billing.Mode() != mode
	v := s.viewLocked()
	s.mu.Unlock()

	if changed {
		s.notify(v)
	}
	return v, err
}

// =============================================================================
// QUERIES
// =============================================================================

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) Lines() []CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Lines()
}

func (s *Session) TotalItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.TotalItemCount()
}

func (s *Session) Billing() BillingSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.billingLocked()
}

func (s *Session) Mode() BillingMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.billing.Mode()
}

func (s *Session) State() CheckoutState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) viewLocked() View {
	return View{
		Lines:      s.ledger.Lines(),
		TotalItems: s.ledger.TotalItemCount(),
		Billing:    s.billingLocked(),
		Mode:       s.billing.Mode(),
		State:      s.state,
	}
}

func (s *Session) billingLocked() BillingSnapshot {
	if s.cacheValid && s.cachedVersion == s.ledger.Version() && s.cachedMode == s.billing.Mode() {
		return s.cached
	}
	s.cached = s.billing.Compute(s.ledger.lines)
	s.cachedVersion = s.ledger.Version()
	s.cachedMode = s.billing.Mode()
	s.cacheValid = true
	return s.cached
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers fn to receive the View after each state change.
// The returned func removes the subscription.
func (s *Session) Subscribe(fn func(View)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *Session) notify(v View) {
	s.subMu.Lock()
	fns := make([]func(View), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// =============================================================================
// CHECKOUT SUPPORT (used by Coordinator)
// =============================================================================

type checkoutTicket struct {
	lines   []CartLine
	billing BillingSnapshot
}

// beginCheckout moves the session to StateAwaitingTender and captures what
// will be charged. Empty carts and concurrent attempts are rejected without
// any state change.
func (s *Session) beginCheckout() (checkoutTicket, error) {
	s.mu.Lock()
	if s.state == StateAwaitingTender {
		s.mu.Unlock()
		return checkoutTicket{}, ErrCheckoutInProgress
	}
	if s.ledger.Len() == 0 {
		s.mu.Unlock()
		return checkoutTicket{}, ErrEmptyCart
	}
	s.state = StateAwaitingTender
	ticket := checkoutTicket{lines: s.ledger.Lines(), billing: s.billingLocked()}
	v := s.viewLocked()
	s.mu.Unlock()

	s.notify(v)
	return ticket, nil
}

// endCheckout returns the session to idle, clearing the ledger when the sale
// was finalized.
func (s *Session) endCheckout(finalized bool) View {
	s.mu.Lock()
	s.state = StateIdle
	if finalized {
		s.ledger.Clear()
	}
	v := s.viewLocked()
	s.mu.Unlock()

	s.notify(v)
	return v
}
