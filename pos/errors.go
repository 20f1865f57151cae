/*
errors.go - Centralized error types for the register core

PURPOSE:
  All error types in one place. Every failure here is recoverable: the cart
  and billing state are left exactly as they were before the call, so the
  caller can report the condition and let the cashier retry or correct.

ERROR CATEGORIES:
  1. Cart errors - Stock limits, unknown lines, unknown products
  2. Checkout errors - Empty cart, concurrent attempt, fiscal rejection
  3. Input errors - Invalid delta, tender or billing mode

USAGE:
  if errors.Is(err, pos.ErrStockExceeded) {
      var stockErr *pos.StockError
      errors.As(err, &stockErr) // stockErr.Available
  }
*/
package pos

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrOutOfStock is returned when adding a product whose stock is zero.
	ErrOutOfStock = errors.New("product out of stock")

	// ErrStockExceeded is returned when an increment would go past available stock.
	ErrStockExceeded = errors.New("stock exceeded")

	// ErrUnknownLine is returned when changing the quantity of a product not in the cart.
	ErrUnknownLine = errors.New("no cart line for product")

	// ErrEmptyCart is returned when requesting payment with no lines.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrCheckoutInProgress is returned while a payment attempt is outstanding.
	ErrCheckoutInProgress = errors.New("checkout in progress")

	// ErrFiscalAuthorizationFailed is returned when the fiscal authority
	// rejects, errors or times out. The cart is left intact for retry.
	ErrFiscalAuthorizationFailed = errors.New("fiscal authorization failed")

	// ErrProductNotFound is returned by catalogs for unknown product IDs.
	ErrProductNotFound = errors.New("product not found")

	ErrInvalidDelta       = errors.New("quantity delta must be +1 or -1")
	ErrInvalidTender      = errors.New("invalid tender type")
	ErrInvalidBillingMode = errors.New("invalid billing mode")

	// ErrCurrencyMismatch is returned when a price is not in the register's currency.
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StockError reports a stock violation. It unwraps to ErrOutOfStock or ErrStockExceeded.
type StockError struct {
	ProductID ProductID
	Requested int
	Available int
	kind      error
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%v: product %s requested %d, available %d",
		e.kind, e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return e.kind }

func outOfStock(id ProductID) error {
	return &StockError{ProductID: id, Requested: 1, Available: 0, kind: ErrOutOfStock}
}

func stockExceeded(id ProductID, requested, available int) error {
	return &StockError{ProductID: id, Requested: requested, Available: available, kind: ErrStockExceeded}
}

// FiscalError wraps the collaborator failure behind ErrFiscalAuthorizationFailed.
type FiscalError struct {
	Cause error
}

func (e *FiscalError) Error() string {
	return fmt.Sprintf("%v: %v", ErrFiscalAuthorizationFailed, e.Cause)
}

func (e *FiscalError) Unwrap() []error { return []error{ErrFiscalAuthorizationFailed, e.Cause} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the same call may succeed without user correction.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrFiscalAuthorizationFailed) || errors.Is(err, ErrCheckoutInProgress)
}

// IsClientError returns true if the error is due to invalid cashier input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrOutOfStock) ||
		errors.Is(err, ErrStockExceeded) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrInvalidDelta) ||
		errors.Is(err, ErrInvalidTender) ||
		errors.Is(err, ErrInvalidBillingMode)
}

// IsNotFound returns true if the error indicates a missing product or line.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrUnknownLine)
}
