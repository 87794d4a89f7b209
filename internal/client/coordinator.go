package client

import (
	"context"

	"github.com/clubledger/clubledger/internal/api/dto"
	ierr "github.com/clubledger/clubledger/internal/errors"
	"github.com/clubledger/clubledger/internal/logger"
	"github.com/clubledger/clubledger/internal/types"
	"github.com/shopspring/decimal"
)

// Coordinator drives the optimistic mutation cycle for one invoice view:
// build the request against the current snapshot, show the projection
// immediately, send the mutation, then confirm, conflict or roll back when
// the server answers.
//
// One Coordinator per open invoice view. It is not meant to be shared
// across views; the Store underneath serializes attempts within the view.
type Coordinator struct {
	store      *Store
	builder    *RequestBuilder
	reconciler *Reconciler
	api        API
	logger     *logger.Logger
}

// NewCoordinator creates a coordinator with an empty snapshot store
func NewCoordinator(api API, log *logger.Logger) *Coordinator {
	store := NewStore()
	return &Coordinator{
		store:      store,
		builder:    NewRequestBuilder(),
		reconciler: NewReconciler(store, api, log),
		api:        api,
		logger:     log,
	}
}

// Load fetches the invoice and installs it as the current snapshot
func (c *Coordinator) Load(ctx context.Context, invoiceID string) (*Snapshot, error) {
	snap, err := c.api.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	c.store.Replace(snap)
	return c.store.Current(), nil
}

// Reload refetches the loaded invoice, discarding the current snapshot
func (c *Coordinator) Reload(ctx context.Context) (*Snapshot, error) {
	snap := c.store.Current()
	if snap == nil {
		return nil, ierr.NewError("no invoice loaded").
			WithHint("Load the invoice before reloading it").
			Mark(ierr.ErrInvalidOperation)
	}
	return c.Load(ctx, snap.ID)
}

// Current returns the snapshot the view should display right now
func (c *Coordinator) Current() *Snapshot {
	return c.store.Current()
}

// ApplyDiscount runs the full mutation cycle for a discount
func (c *Coordinator) ApplyDiscount(ctx context.Context, amount decimal.Decimal, discountCode string) (*Outcome, error) {
	intent, err := c.builder.BuildDiscount(c.store.Current(), amount, discountCode)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, intent, func(ctx context.Context) (*dto.MutationResponse, error) {
		return c.api.ApplyDiscount(ctx, intent.InvoiceID, &dto.ApplyDiscountRequest{
			MutationRequest: c.mutationRequest(intent),
			Amount:          intent.Amount,
			DiscountCode:    intent.DiscountCode,
		})
	})
}

// ProcessPayment runs the full mutation cycle for a payment
func (c *Coordinator) ProcessPayment(ctx context.Context, amount decimal.Decimal, method types.PaymentMethod) (*Outcome, error) {
	intent, err := c.builder.BuildPayment(c.store.Current(), amount, method)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, intent, func(ctx context.Context) (*dto.MutationResponse, error) {
		return c.api.ProcessPayment(ctx, intent.InvoiceID, &dto.ProcessPaymentRequest{
			MutationRequest: c.mutationRequest(intent),
			Amount:          intent.Amount,
			Method:          intent.Method,
		})
	})
}

// RecordDeposit runs the full mutation cycle for a deposit
func (c *Coordinator) RecordDeposit(ctx context.Context, amount decimal.Decimal) (*Outcome, error) {
	intent, err := c.builder.BuildDeposit(c.store.Current(), amount)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, intent, func(ctx context.Context) (*dto.MutationResponse, error) {
		return c.api.RecordDeposit(ctx, intent.InvoiceID, &dto.RecordDepositRequest{
			MutationRequest: c.mutationRequest(intent),
			Amount:          intent.Amount,
		})
	})
}

// Cancel runs the full mutation cycle for a cancellation
func (c *Coordinator) Cancel(ctx context.Context, reason string) (*Outcome, error) {
	intent, err := c.builder.BuildCancel(c.store.Current(), reason)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, intent, func(ctx context.Context) (*dto.MutationResponse, error) {
		return c.api.CancelInvoice(ctx, intent.InvoiceID, &dto.CancelInvoiceRequest{
			MutationRequest: c.mutationRequest(intent),
			Reason:          intent.Reason,
		})
	})
}

// Close detaches the coordinator from its view. Any response still in
// flight resolves against the closed store and is dropped.
func (c *Coordinator) Close() {
	c.store.Close()
}

// execute is the shared mutation cycle: project optimistically, make the
// projection visible, send exactly one request, then hand the response to
// the reconciler. Begin enforces one attempt at a time.
func (c *Coordinator) execute(ctx context.Context, intent *Intent, send func(context.Context) (*dto.MutationResponse, error)) (*Outcome, error) {
	projected := Project(c.store.Current(), intent)
	if err := c.store.Begin(projected); err != nil {
		return nil, err
	}

	c.logger.Debugw("mutation dispatched",
		"invoice_id", intent.InvoiceID,
		"kind", intent.Kind,
		"version", intent.Version,
		"idempotency_key", intent.IdempotencyKey,
	)

	resp, err := send(ctx)
	switch {
	case err == nil:
		return c.reconciler.Confirm(projected, resp), nil
	case ierr.IsVersionConflict(err):
		return c.reconciler.Conflict(ctx, intent, err), nil
	default:
		return c.reconciler.Fail(intent, err), nil
	}
}

func (c *Coordinator) mutationRequest(intent *Intent) dto.MutationRequest {
	return dto.MutationRequest{
		Version:        intent.Version,
		IdempotencyKey: intent.IdempotencyKey,
	}
}
