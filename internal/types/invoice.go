package types

import (
	"time"

	ierr "github.com/clubledger/clubledger/internal/errors"
	"github.com/samber/lo"
)

// InvoiceStatus represents the current state of an invoice in its lifecycle.
// Transitions are monotonic forward only; cancelled and refunded are terminal.
type InvoiceStatus string

const (
	// InvoiceStatusDraft indicates the invoice is being assembled and can still be modified
	InvoiceStatusDraft InvoiceStatus = "draft"
	// InvoiceStatusPending indicates the invoice is awaiting review before issuance
	InvoiceStatusPending InvoiceStatus = "pending"
	// InvoiceStatusIssued indicates the invoice has been issued to the guest and is payable
	InvoiceStatusIssued InvoiceStatus = "issued"
	// InvoiceStatusPartial indicates the invoice has been partially paid
	InvoiceStatusPartial InvoiceStatus = "partial"
	// InvoiceStatusPaid indicates the invoice has been paid in full
	InvoiceStatusPaid InvoiceStatus = "paid"
	// InvoiceStatusOverdue indicates the invoice passed its due date with a balance outstanding
	InvoiceStatusOverdue InvoiceStatus = "overdue"
	// InvoiceStatusCancelled indicates the invoice was cancelled; terminal
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
	// InvoiceStatusRefunded indicates a paid invoice was refunded; terminal
	InvoiceStatusRefunded InvoiceStatus = "refunded"
)

// invoiceStatusTransitions is the forward-only transition map. A status not
// present as a key is terminal.
var invoiceStatusTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:   {InvoiceStatusPending, InvoiceStatusIssued, InvoiceStatusCancelled},
	InvoiceStatusPending: {InvoiceStatusIssued, InvoiceStatusCancelled},
	InvoiceStatusIssued:  {InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
	InvoiceStatusPartial: {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
	InvoiceStatusOverdue: {InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusCancelled},
	InvoiceStatusPaid:    {InvoiceStatusRefunded},
}

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	allowed := []InvoiceStatus{
		InvoiceStatusDraft,
		InvoiceStatusPending,
		InvoiceStatusIssued,
		InvoiceStatusPartial,
		InvoiceStatusPaid,
		InvoiceStatusOverdue,
		InvoiceStatusCancelled,
		InvoiceStatusRefunded,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice status").
			WithHint("Please provide a valid invoice status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsTerminal returns true when no further status transitions are allowed
func (s InvoiceStatus) IsTerminal() bool {
	_, ok := invoiceStatusTransitions[s]
	return !ok
}

// CanTransitionTo reports whether moving from s to target is a valid forward
// transition
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	return lo.Contains(invoiceStatusTransitions[s], target)
}

// MutationKind identifies an amount-changing or status-changing operation
// applied to an invoice through the version-checked mutation endpoints.
type MutationKind string

const (
	MutationKindDiscount MutationKind = "discount"
	MutationKindPayment  MutationKind = "payment"
	MutationKindDeposit  MutationKind = "deposit"
	MutationKindCancel   MutationKind = "cancel"
)

func (k MutationKind) String() string {
	return string(k)
}

func (k MutationKind) Validate() error {
	allowed := []MutationKind{
		MutationKindDiscount,
		MutationKindPayment,
		MutationKindDeposit,
		MutationKindCancel,
	}
	if !lo.Contains(allowed, k) {
		return ierr.NewError("invalid mutation kind").
			WithHint("Please provide a valid mutation kind").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PaymentMethod is the tender type used to settle an invoice
type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "cash"
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodRoomCharge PaymentMethod = "room_charge"
	PaymentMethodVoucher    PaymentMethod = "voucher"
)

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) Validate() error {
	allowed := []PaymentMethod{
		PaymentMethodCash,
		PaymentMethodCard,
		PaymentMethodRoomCharge,
		PaymentMethodVoucher,
	}
	if !lo.Contains(allowed, m) {
		return ierr.NewError("invalid payment method").
			WithHint("Please provide a valid payment method").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceFilter represents the filter options for listing invoices
type InvoiceFilter struct {
	*QueryFilter

	GuestID       string          `json:"guest_id,omitempty" form:"guest_id"`
	ReservationID string          `json:"reservation_id,omitempty" form:"reservation_id"`
	InvoiceStatus []InvoiceStatus `json:"invoice_status,omitempty" form:"invoice_status"`
	DueBefore     *time.Time      `json:"due_before,omitempty" form:"due_before"`
	DueAfter      *time.Time      `json:"due_after,omitempty" form:"due_after"`
}

func NewInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

func (f *InvoiceFilter) Validate() error {
	if f.QueryFilter == nil {
		f.QueryFilter = NewDefaultQueryFilter()
	}
	if err := f.QueryFilter.Validate(); err != nil {
		return err
	}
	for _, status := range f.InvoiceStatus {
		if err := status.Validate(); err != nil {
			return err
		}
	}
	if f.DueBefore != nil && f.DueAfter != nil && f.DueBefore.Before(*f.DueAfter) {
		return ierr.NewError("due_before must be after due_after").
			WithHint("Please provide a valid due date range").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (f *InvoiceFilter) GetLimit() int {
	if f.QueryFilter == nil {
		return FilterDefaultLimit
	}
	return f.QueryFilter.GetLimit()
}

func (f *InvoiceFilter) GetOffset() int {
	if f.QueryFilter == nil {
		return 0
	}
	return f.QueryFilter.GetOffset()
}

func (f *InvoiceFilter) IsUnlimited() bool {
	if f.QueryFilter == nil {
		return false
	}
	return f.QueryFilter.IsUnlimited()
}
