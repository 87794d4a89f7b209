package client

import (
	"time"

	ierr "github.com/clubledger/clubledger/internal/errors"
	"github.com/clubledger/clubledger/internal/idempotency"
	"github.com/clubledger/clubledger/internal/types"
	"github.com/shopspring/decimal"
)

// Intent is a fully prepared mutation attempt. The version and idempotency
// key are bound at build time, before any network traffic: the version is
// the one the operator was looking at, and the key is fresh per attempt so
// a retry after a conflict is a new attempt, never a replay.
type Intent struct {
	Kind           types.MutationKind
	InvoiceID      string
	Amount         decimal.Decimal
	DiscountCode   string
	Method         types.PaymentMethod
	Reason         string
	Version        int
	IdempotencyKey string
}

// RequestBuilder validates operator input against the current snapshot and
// produces Intents. Validation failures here never touch the network and
// never alter the snapshot.
type RequestBuilder struct {
	generator *idempotency.Generator
}

func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{generator: idempotency.NewGenerator()}
}

// BuildDiscount prepares a discount mutation. The amount must be positive
// and must not push the cumulative discount past the subtotal.
func (b *RequestBuilder) BuildDiscount(snap *Snapshot, amount decimal.Decimal, discountCode string) (*Intent, error) {
	if err := requireMutable(snap); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, ierr.NewError("discount amount must be positive").
			WithHint("Discount amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if snap.Discount.Add(amount).GreaterThan(snap.Subtotal) {
		return nil, ierr.NewError("discount exceeds subtotal").
			WithHint("Discount cannot exceed the invoice subtotal").
			WithReportableDetails(map[string]any{
				"amount":           amount,
				"current_discount": snap.Discount,
				"subtotal":         snap.Subtotal,
			}).
			Mark(ierr.ErrValidation)
	}

	intent := b.newIntent(types.MutationKindDiscount, snap, idempotency.ScopeDiscount)
	intent.Amount = amount
	intent.DiscountCode = discountCode
	return intent, nil
}

// BuildPayment prepares a payment mutation. The amount must be positive and
// must not exceed the outstanding balance.
func (b *RequestBuilder) BuildPayment(snap *Snapshot, amount decimal.Decimal, method types.PaymentMethod) (*Intent, error) {
	if err := requireMutable(snap); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, ierr.NewError("payment amount must be positive").
			WithHint("Payment amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if amount.GreaterThan(snap.BalanceDue) {
		return nil, ierr.NewError("payment exceeds balance due").
			WithHint("Payment cannot exceed the outstanding balance").
			WithReportableDetails(map[string]any{
				"amount":      amount,
				"balance_due": snap.BalanceDue,
			}).
			Mark(ierr.ErrValidation)
	}
	if err := method.Validate(); err != nil {
		return nil, err
	}

	intent := b.newIntent(types.MutationKindPayment, snap, idempotency.ScopePayment)
	intent.Amount = amount
	intent.Method = method
	return intent, nil
}

// BuildDeposit prepares a deposit mutation. Deposits may exceed the current
// balance, so only positivity is checked locally.
func (b *RequestBuilder) BuildDeposit(snap *Snapshot, amount decimal.Decimal) (*Intent, error) {
	if err := requireMutable(snap); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, ierr.NewError("deposit amount must be positive").
			WithHint("Deposit amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}

	intent := b.newIntent(types.MutationKindDeposit, snap, idempotency.ScopeDeposit)
	intent.Amount = amount
	return intent, nil
}

// BuildCancel prepares a cancellation. A reason is mandatory.
func (b *RequestBuilder) BuildCancel(snap *Snapshot, reason string) (*Intent, error) {
	if err := requireMutable(snap); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, ierr.NewError("cancellation reason is required").
			WithHint("Please provide a reason for cancelling the invoice").
			Mark(ierr.ErrValidation)
	}

	intent := b.newIntent(types.MutationKindCancel, snap, idempotency.ScopeCancel)
	intent.Reason = reason
	return intent, nil
}

func (b *RequestBuilder) newIntent(kind types.MutationKind, snap *Snapshot, scope idempotency.Scope) *Intent {
	// The nanosecond nonce makes the key unique per attempt: the server
	// deduplicates network-level retries of one attempt, while an operator
	// retry after a conflict carries a new key and is processed afresh.
	key := b.generator.GenerateKey(scope, map[string]interface{}{
		"invoice_id":   snap.ID,
		"version":      snap.Version,
		"attempted_at": time.Now().UnixNano(),
	})
	return &Intent{
		Kind:           kind,
		InvoiceID:      snap.ID,
		Version:        snap.Version,
		IdempotencyKey: key,
	}
}

func requireMutable(snap *Snapshot) error {
	if snap == nil {
		return ierr.NewError("no invoice loaded").
			WithHint("Load the invoice before mutating it").
			Mark(ierr.ErrInvalidOperation)
	}
	if snap.Status.IsTerminal() {
		return ierr.NewError("invoice is in a terminal status").
			WithHint("Cancelled and refunded invoices cannot be modified").
			WithReportableDetails(map[string]any{
				"invoice_status": snap.Status,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}
