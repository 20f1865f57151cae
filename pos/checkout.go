/*
checkout.go - Checkout coordinator

PURPOSE:
  Drives a payment attempt from request to outcome:

    idle --RequestPayment--> awaiting_tender --> finalized | failed --> idle

  Internal mode finalizes straight away. Fiscal mode first asks the fiscal
  authority for an authorization code; only a code finalizes the sale.

OUTCOMES:
  Finalized: amount charged = billing total at request time, the sale is
             handed to the recorder and the ledger is cleared.
  Failed:    the authority errored, rejected or timed out. The ledger is
             left intact so the cashier can retry.

CONCURRENCY:
  At most one attempt is outstanding per session. A second RequestPayment
  during the fiscal call fails with ErrCheckoutInProgress and never reaches
  the authority. The authority call is bounded by FiscalTimeout; expiry or
  caller cancellation counts as a failure, never as success.

RECORDING:
  Recorder errors are logged. The authority has already issued the invoice
  by then, so the sale stays finalized.
*/
package pos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultFiscalTimeout bounds the wait for the fiscal authority.
const DefaultFiscalTimeout = 10 * time.Second

var errNoFiscalAuthority = errors.New("no fiscal authority configured")

type Coordinator struct {
	Recorder      SaleRecorder // optional
	FiscalTimeout time.Duration
	Logger        logrus.FieldLogger
	NewSaleID     func() string
	Now           func() time.Time

	session   *Session
	authority FiscalAuthority
}

// NewCoordinator creates a coordinator for session. authority may be nil when
// the register never bills in fiscal mode; fiscal attempts then fail.
func NewCoordinator(session *Session, authority FiscalAuthority) *Coordinator {
	return &Coordinator{
		FiscalTimeout: DefaultFiscalTimeout,
		Logger:        logrus.StandardLogger(),
		NewSaleID:     uuid.NewString,
		Now:           time.Now,
		session:       session,
		authority:     authority,
	}
}

func (c *Coordinator) Session() *Session { return c.session }

// RequestPayment settles the current cart with tender.
//
// Validation failures (ErrInvalidTender, ErrEmptyCart, ErrCheckoutInProgress)
// return a zero outcome and leave the session untouched. A fiscal failure
// returns a Failed outcome together with an error wrapping
// ErrFiscalAuthorizationFailed.
func (c *Coordinator) RequestPayment(ctx context.Context, tender TenderType) (SaleOutcome, error) {
	if !tender.Valid() {
		return SaleOutcome{}, ErrInvalidTender
	}
	ticket, err := c.session.beginCheckout()
	if err != nil {
		return SaleOutcome{}, err
	}

	outcome := SaleOutcome{
		SaleID:  c.NewSaleID(),
		Tender:  tender,
		Billing: ticket.billing,
		Lines:   ticket.lines,
	}
	log := c.Logger.WithFields(logrus.Fields{
		"sale_id": outcome.SaleID,
		"mode":    ticket.billing.Mode,
		"tender":  tender,
		"total":   ticket.billing.Total.String(),
	})

	if ticket.billing.Mode == ModeFiscal {
		code, err := c.authorize(ctx, ticket)
		if err != nil {
			outcome.Status = OutcomeFailed
			outcome.Reason = err.Error()
			outcome.CompletedAt = c.Now()
			c.session.endCheckout(false)
			log.WithError(err).Warn("fiscal authorization failed, cart kept for retry")
			return outcome, &FiscalError{Cause: err}
		}
		outcome.AuthorizationCode = code
	}

	outcome.Status = OutcomeFinalized
	outcome.AmountCharged = ticket.billing.Total
	outcome.CompletedAt = c.Now()

	if c.Recorder != nil {
		if err := c.Recorder.RecordSale(context.WithoutCancel(ctx), saleFromOutcome(outcome)); err != nil {
			log.WithError(err).Error("failed to record sale")
		}
	}
	c.session.endCheckout(true)

	log.WithField("authorization_code", outcome.AuthorizationCode).Info("sale finalized")
	return outcome, nil
}

// Cancel empties the cart. The caller must have obtained the cashier's
// confirmation first; an empty cart is a no-op.
func (c *Coordinator) Cancel(_ context.Context) (View, error) {
	return c.session.clear()
}

func (c *Coordinator) authorize(ctx context.Context, ticket checkoutTicket) (string, error) {
	if c.authority == nil {
		return "", errNoFiscalAuthority
	}
	if c.FiscalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.FiscalTimeout)
		defer cancel()
	}

	type result struct {
		resp FiscalResponse
		err  error
	}
	done := make(chan result, 1)
	req := NewFiscalRequest(ticket.lines, ticket.billing.Total)
	go func() {
		resp, err := c.authority.Authorize(ctx, req)
		done <- result{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		if r.resp.AuthorizationCode == "" {
			return "", errors.New("fiscal authority returned no authorization code")
		}
		return r.resp.AuthorizationCode, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
