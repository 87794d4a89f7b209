package invoice

import (
	"time"

	ierr "github.com/clubledger/clubledger/internal/errors"
	"github.com/clubledger/clubledger/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice represents the invoice domain model. Version is the optimistic
// locking token: a mutation is applied iff the request carries the stored
// version, and the server increments it on every accepted mutation.
type Invoice struct {
	ID                 string              `db:"id" json:"id"`
	InvoiceNumber      *string             `db:"invoice_number" json:"invoice_number"`
	GuestID            string              `db:"guest_id" json:"guest_id"`
	ReservationID      *string             `db:"reservation_id" json:"reservation_id,omitempty"`
	Currency           string              `db:"currency" json:"currency"`
	Subtotal           decimal.Decimal     `db:"subtotal" json:"subtotal"`
	Discount           decimal.Decimal     `db:"discount" json:"discount"`
	Tax                decimal.Decimal     `db:"tax" json:"tax"`
	ServiceCharge      decimal.Decimal     `db:"service_charge" json:"service_charge"`
	Total              decimal.Decimal     `db:"total" json:"total"`
	AmountPaid         decimal.Decimal     `db:"amount_paid" json:"amount_paid"`
	BalanceDue         decimal.Decimal     `db:"balance_due" json:"balance_due"`
	InvoiceStatus      types.InvoiceStatus `db:"invoice_status" json:"invoice_status"`
	Description        string              `db:"description" json:"description,omitempty"`
	DueDate            *time.Time          `db:"due_date" json:"due_date,omitempty"`
	PaidAt             *time.Time          `db:"paid_at" json:"paid_at,omitempty"`
	CancelledAt        *time.Time          `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancellationReason *string             `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	IdempotencyKey     *string             `db:"idempotency_key" json:"idempotency_key,omitempty"`
	Metadata           types.Metadata      `db:"metadata" json:"metadata,omitempty"`
	LineItems          []*LineItem         `json:"line_items,omitempty"`
	Version            int                 `db:"version" json:"version"`
	types.BaseModel
}

// Recalculate re-derives the dependent amounts from their inputs:
// total = subtotal - discount + tax + service_charge and
// balance_due = total - amount_paid.
func (i *Invoice) Recalculate() {
	i.Total = i.Subtotal.Sub(i.Discount).Add(i.Tax).Add(i.ServiceCharge)
	i.BalanceDue = i.Total.Sub(i.AmountPaid)
}

// GetRemainingAmount returns the outstanding balance
func (i *Invoice) GetRemainingAmount() decimal.Decimal {
	return i.Total.Sub(i.AmountPaid)
}

// ApplyDiscount increases the discount by amount and re-derives the
// dependent totals. The invoice must not be in a terminal or paid state and
// the cumulative discount must not exceed the subtotal.
func (i *Invoice) ApplyDiscount(amount decimal.Decimal) error {
	if err := i.ensureMutable(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return ierr.NewError("discount amount must be positive").
			WithHint("Discount amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if i.Discount.Add(amount).GreaterThan(i.Subtotal) {
		return ierr.NewError("discount exceeds subtotal").
			WithHint("Discount cannot exceed the invoice subtotal").
			WithReportableDetails(map[string]any{
				"subtotal":         i.Subtotal.String(),
				"current_discount": i.Discount.String(),
				"requested":        amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	i.Discount = i.Discount.Add(amount)
	i.Recalculate()
	return nil
}

// ApplyPayment records a payment against the invoice and moves it to
// partial or paid depending on the remaining balance.
func (i *Invoice) ApplyPayment(amount decimal.Decimal, at time.Time) error {
	if err := i.ensureMutable(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return ierr.NewError("payment amount must be positive").
			WithHint("Payment amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if amount.GreaterThan(i.BalanceDue) {
		return ierr.NewError("payment exceeds balance due").
			WithHint("Payment cannot exceed the outstanding balance").
			WithReportableDetails(map[string]any{
				"balance_due": i.BalanceDue.String(),
				"requested":   amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	i.AmountPaid = i.AmountPaid.Add(amount)
	i.Recalculate()

	target := types.InvoiceStatusPartial
	if i.BalanceDue.IsZero() {
		target = types.InvoiceStatusPaid
		i.PaidAt = &at
	}
	if i.InvoiceStatus != target && i.InvoiceStatus.CanTransitionTo(target) {
		i.InvoiceStatus = target
	}
	return nil
}

// ApplyDeposit records an advance payment. Unlike ApplyPayment it is allowed
// before issuance and does not force a status transition for pre-issue
// invoices.
func (i *Invoice) ApplyDeposit(amount decimal.Decimal) error {
	if err := i.ensureMutable(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return ierr.NewError("deposit amount must be positive").
			WithHint("Deposit amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if amount.GreaterThan(i.BalanceDue) {
		return ierr.NewError("deposit exceeds balance due").
			WithHint("Deposit cannot exceed the outstanding balance").
			WithReportableDetails(map[string]any{
				"balance_due": i.BalanceDue.String(),
				"requested":   amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	i.AmountPaid = i.AmountPaid.Add(amount)
	i.Recalculate()

	// Post-issue deposits behave like payments for status purposes
	if i.InvoiceStatus == types.InvoiceStatusIssued || i.InvoiceStatus == types.InvoiceStatusPartial || i.InvoiceStatus == types.InvoiceStatusOverdue {
		target := types.InvoiceStatusPartial
		if i.BalanceDue.IsZero() {
			target = types.InvoiceStatusPaid
		}
		if i.InvoiceStatus != target && i.InvoiceStatus.CanTransitionTo(target) {
			i.InvoiceStatus = target
		}
	}
	return nil
}

// Cancel moves the invoice into the terminal cancelled state
func (i *Invoice) Cancel(reason string, at time.Time) error {
	if reason == "" {
		return ierr.NewError("cancellation reason is required").
			WithHint("Please provide a cancellation reason").
			Mark(ierr.ErrValidation)
	}
	if !i.InvoiceStatus.CanTransitionTo(types.InvoiceStatusCancelled) {
		return ierr.NewError("invoice cannot be cancelled").
			WithHintf("Invoice in status %s cannot be cancelled", i.InvoiceStatus).
			Mark(ierr.ErrInvalidOperation)
	}

	i.InvoiceStatus = types.InvoiceStatusCancelled
	i.CancelledAt = &at
	i.CancellationReason = &reason
	return nil
}

func (i *Invoice) ensureMutable() error {
	if i.InvoiceStatus.IsTerminal() {
		return ierr.NewError("invoice is in a terminal state").
			WithHintf("Invoice in status %s can no longer be modified", i.InvoiceStatus).
			Mark(ierr.ErrInvalidOperation)
	}
	if i.InvoiceStatus == types.InvoiceStatusPaid {
		return ierr.NewError("invoice is already paid").
			WithHint("A paid invoice can only be refunded").
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

// Clone returns a deep copy of the invoice
func (i *Invoice) Clone() *Invoice {
	if i == nil {
		return nil
	}

	clone := *i

	if i.InvoiceNumber != nil {
		n := *i.InvoiceNumber
		clone.InvoiceNumber = &n
	}
	if i.ReservationID != nil {
		r := *i.ReservationID
		clone.ReservationID = &r
	}
	if i.DueDate != nil {
		t := *i.DueDate
		clone.DueDate = &t
	}
	if i.PaidAt != nil {
		t := *i.PaidAt
		clone.PaidAt = &t
	}
	if i.CancelledAt != nil {
		t := *i.CancelledAt
		clone.CancelledAt = &t
	}
	if i.CancellationReason != nil {
		r := *i.CancellationReason
		clone.CancellationReason = &r
	}
	if i.IdempotencyKey != nil {
		k := *i.IdempotencyKey
		clone.IdempotencyKey = &k
	}
	if i.Metadata != nil {
		clone.Metadata = make(types.Metadata, len(i.Metadata))
		for k, v := range i.Metadata {
			clone.Metadata[k] = v
		}
	}
	if i.LineItems != nil {
		clone.LineItems = make([]*LineItem, len(i.LineItems))
		for idx, item := range i.LineItems {
			clone.LineItems[idx] = item.Clone()
		}
	}

	return &clone
}

// Validate enforces the monetary invariants on the invoice
func (i *Invoice) Validate() error {
	if i.Subtotal.IsNegative() {
		return validationError("subtotal", "must be non negative")
	}
	if i.Discount.IsNegative() {
		return validationError("discount", "must be non negative")
	}
	if i.Discount.GreaterThan(i.Subtotal) {
		return validationError("discount", "must be less than or equal to subtotal")
	}
	if i.Tax.IsNegative() {
		return validationError("tax", "must be non negative")
	}
	if i.ServiceCharge.IsNegative() {
		return validationError("service_charge", "must be non negative")
	}
	if i.AmountPaid.IsNegative() {
		return validationError("amount_paid", "must be non negative")
	}
	if i.AmountPaid.GreaterThan(i.Total) {
		return validationError("amount_paid", "must be less than or equal to total")
	}

	expectedTotal := i.Subtotal.Sub(i.Discount).Add(i.Tax).Add(i.ServiceCharge)
	if !i.Total.Equal(expectedTotal) {
		return validationError("total", "must equal subtotal - discount + tax + service_charge")
	}
	if !i.BalanceDue.Equal(i.Total.Sub(i.AmountPaid)) {
		return validationError("balance_due", "must equal total - amount_paid")
	}

	if err := i.InvoiceStatus.Validate(); err != nil {
		return err
	}

	for _, item := range i.LineItems {
		if item.Currency != i.Currency {
			return validationError("line_items", "currency must match invoice currency")
		}
		if err := item.Validate(); err != nil {
			return err
		}
	}

	return nil
}

func validationError(field, message string) error {
	return ierr.NewError("invalid invoice").
		WithHintf("%s %s", field, message).
		WithReportableDetails(map[string]any{
			"field": field,
		}).
		Mark(ierr.ErrValidation)
}
