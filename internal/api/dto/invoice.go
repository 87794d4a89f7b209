package dto

import (
	"context"
	"time"

	"github.com/clubledger/clubledger/internal/domain/invoice"
	ierr "github.com/clubledger/clubledger/internal/errors"
	"github.com/clubledger/clubledger/internal/types"
	"github.com/clubledger/clubledger/internal/validator"
	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest creates a new invoice for a guest's reservation or
// one-off services
type CreateInvoiceRequest struct {
	GuestID        string                         `json:"guest_id" validate:"required"`
	ReservationID  *string                        `json:"reservation_id,omitempty"`
	Currency       string                         `json:"currency" validate:"required,len=3"`
	Description    string                         `json:"description,omitempty"`
	DueDate        *time.Time                     `json:"due_date,omitempty"`
	Tax            decimal.Decimal                `json:"tax"`
	ServiceCharge  decimal.Decimal                `json:"service_charge"`
	LineItems      []CreateInvoiceLineItemRequest `json:"line_items" validate:"required,min=1,dive"`
	IdempotencyKey *string                        `json:"idempotency_key,omitempty"`
	Metadata       types.Metadata                 `json:"metadata,omitempty"`
}

type CreateInvoiceLineItemRequest struct {
	ServiceCode string          `json:"service_code" validate:"required"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (r *CreateInvoiceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Tax.IsNegative() || r.ServiceCharge.IsNegative() {
		return ierr.NewError("tax and service charge must be non negative").
			WithHint("Tax and service charge must be non negative").
			Mark(ierr.ErrValidation)
	}
	for _, item := range r.LineItems {
		if item.Quantity.IsNegative() || item.UnitPrice.IsNegative() {
			return ierr.NewError("line item amounts must be non negative").
				WithHint("Quantity and unit price must be non negative").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// ToInvoice converts the request to a domain invoice in draft status
func (r *CreateInvoiceRequest) ToInvoice(ctx context.Context) *invoice.Invoice {
	invoiceID := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE)

	subtotal := decimal.Zero
	lineItems := make([]*invoice.LineItem, len(r.LineItems))
	for i, item := range r.LineItems {
		amount := item.Quantity.Mul(item.UnitPrice)
		subtotal = subtotal.Add(amount)
		lineItems[i] = &invoice.LineItem{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
			InvoiceID:   invoiceID,
			ServiceCode: item.ServiceCode,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      amount,
			Currency:    r.Currency,
			BaseModel:   types.GetDefaultBaseModel(ctx),
		}
	}

	inv := &invoice.Invoice{
		ID:            invoiceID,
		GuestID:       r.GuestID,
		ReservationID: r.ReservationID,
		Currency:      r.Currency,
		Subtotal:      subtotal,
		Discount:      decimal.Zero,
		Tax:           r.Tax,
		ServiceCharge: r.ServiceCharge,
		AmountPaid:    decimal.Zero,
		InvoiceStatus: types.InvoiceStatusDraft,
		Description:   r.Description,
		DueDate:       r.DueDate,
		IdempotencyKey: r.IdempotencyKey,
		Metadata:      r.Metadata,
		LineItems:     lineItems,
		Version:       1,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	inv.Recalculate()
	return inv
}

// MutationRequest carries the fields shared by all version-checked invoice
// mutations: the last-known version and a per-attempt idempotency key.
type MutationRequest struct {
	Version        int    `json:"version" validate:"min=1"`
	IdempotencyKey string `json:"idempotency_key" validate:"required"`
}

// ApplyDiscountRequest applies a discount amount to an invoice
type ApplyDiscountRequest struct {
	MutationRequest
	Amount       decimal.Decimal `json:"amount"`
	DiscountCode string          `json:"discount_code,omitempty"`
}

func (r *ApplyDiscountRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return ierr.NewError("discount amount must be positive").
			WithHint("Discount amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ProcessPaymentRequest records a payment against an invoice
type ProcessPaymentRequest struct {
	MutationRequest
	Amount decimal.Decimal     `json:"amount"`
	Method types.PaymentMethod `json:"method" validate:"required"`
}

func (r *ProcessPaymentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return ierr.NewError("payment amount must be positive").
			WithHint("Payment amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return r.Method.Validate()
}

// RecordDepositRequest records an advance payment against an invoice
type RecordDepositRequest struct {
	MutationRequest
	Amount decimal.Decimal `json:"amount"`
}

func (r *RecordDepositRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return ierr.NewError("deposit amount must be positive").
			WithHint("Deposit amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CancelInvoiceRequest cancels an invoice with a mandatory reason
type CancelInvoiceRequest struct {
	MutationRequest
	Reason string `json:"reason" validate:"required"`
}

func (r *CancelInvoiceRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// MutationResponse returns the authoritative post-mutation figures. The
// client adopts these verbatim; it never trusts its own optimistic math.
type MutationResponse struct {
	InvoiceID     string              `json:"invoice_id"`
	NewTotal      decimal.Decimal     `json:"new_total"`
	NewBalanceDue decimal.Decimal     `json:"new_balance_due"`
	NewDiscount   decimal.Decimal     `json:"new_discount"`
	AmountPaid    decimal.Decimal     `json:"amount_paid"`
	InvoiceStatus types.InvoiceStatus `json:"invoice_status"`
	Version       int                 `json:"version"`
}

// NewMutationResponse builds a mutation response from the persisted invoice
func NewMutationResponse(inv *invoice.Invoice) *MutationResponse {
	return &MutationResponse{
		InvoiceID:     inv.ID,
		NewTotal:      inv.Total,
		NewBalanceDue: inv.BalanceDue,
		NewDiscount:   inv.Discount,
		AmountPaid:    inv.AmountPaid,
		InvoiceStatus: inv.InvoiceStatus,
		Version:       inv.Version,
	}
}

// InvoiceResponse represents the full invoice representation returned by
// the API
type InvoiceResponse struct {
	*invoice.Invoice
}

// NewInvoiceResponse creates a new invoice response from domain invoice
func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	return &InvoiceResponse{Invoice: inv}
}

// ListInvoicesResponse represents the paginated response for listing
// invoices; list endpoints use the `results` envelope
type ListInvoicesResponse struct {
	Results []*InvoiceResponse `json:"results"`
	Total   int                `json:"total"`
	Offset  int                `json:"offset"`
	Limit   int                `json:"limit"`
}
