package invoice

import (
	ierr "github.com/clubledger/clubledger/internal/errors"
	"github.com/clubledger/clubledger/internal/types"
	"github.com/shopspring/decimal"
)

// LineItem represents a single billable entry on an invoice: a service,
// treatment, or retail sale. Line items are read-mostly; the mutation
// endpoints never alter them.
type LineItem struct {
	ID          string          `db:"id" json:"id"`
	InvoiceID   string          `db:"invoice_id" json:"invoice_id"`
	ServiceCode string          `db:"service_code" json:"service_code"`
	Description string          `db:"description" json:"description"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Currency    string          `db:"currency" json:"currency"`
	types.BaseModel
}

// Clone returns a deep copy of the line item
func (li *LineItem) Clone() *LineItem {
	if li == nil {
		return nil
	}
	clone := *li
	return &clone
}

func (li *LineItem) Validate() error {
	if li.Quantity.IsNegative() {
		return ierr.NewError("line item quantity must be non negative").
			WithHint("Quantity must be non negative").
			Mark(ierr.ErrValidation)
	}
	if li.Amount.IsNegative() {
		return ierr.NewError("line item amount must be non negative").
			WithHint("Amount must be non negative").
			Mark(ierr.ErrValidation)
	}
	if !li.Amount.Equal(li.Quantity.Mul(li.UnitPrice)) {
		return ierr.NewError("line item amount mismatch").
			WithHint("Amount must equal quantity * unit_price").
			WithReportableDetails(map[string]any{
				"amount":     li.Amount.String(),
				"quantity":   li.Quantity.String(),
				"unit_price": li.UnitPrice.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
