package client

import (
	"github.com/clubledger/clubledger/internal/types"
	"github.com/shopspring/decimal"
)

// Snapshot is the client's view of one server-held invoice. It is a
// projection, not the source of truth: every monetary figure is mirrored
// from the server, and Version is authoritative only when it arrived in a
// server response.
type Snapshot struct {
	ID            string              `json:"id"`
	InvoiceNumber string              `json:"invoice_number"`
	GuestID       string              `json:"guest_id"`
	Currency      string              `json:"currency"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Discount      decimal.Decimal     `json:"discount"`
	Tax           decimal.Decimal     `json:"tax"`
	ServiceCharge decimal.Decimal     `json:"service_charge"`
	Total         decimal.Decimal     `json:"total"`
	AmountPaid    decimal.Decimal     `json:"amount_paid"`
	BalanceDue    decimal.Decimal     `json:"balance_due"`
	Status        types.InvoiceStatus `json:"invoice_status"`
	Version       int                 `json:"version"`
	Items         []SnapshotItem      `json:"line_items,omitempty"`
}

// SnapshotItem is a line entry on the invoice. Read-mostly: the mutation
// protocol never alters line items.
type SnapshotItem struct {
	ID          string          `json:"id"`
	ServiceCode string          `json:"service_code"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
}

// Clone returns a deep copy of the snapshot
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Items != nil {
		clone.Items = make([]SnapshotItem, len(s.Items))
		copy(clone.Items, s.Items)
	}
	return &clone
}

// Equal reports whether two snapshots carry the same state. Monetary
// fields are compared by value, so 90 and 90.00 are equal.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.ID != other.ID ||
		s.Status != other.Status ||
		s.Version != other.Version ||
		s.Currency != other.Currency {
		return false
	}
	if !s.Subtotal.Equal(other.Subtotal) ||
		!s.Discount.Equal(other.Discount) ||
		!s.Tax.Equal(other.Tax) ||
		!s.ServiceCharge.Equal(other.ServiceCharge) ||
		!s.Total.Equal(other.Total) ||
		!s.AmountPaid.Equal(other.AmountPaid) ||
		!s.BalanceDue.Equal(other.BalanceDue) {
		return false
	}
	if len(s.Items) != len(other.Items) {
		return false
	}
	for i := range s.Items {
		a, b := s.Items[i], other.Items[i]
		if a.ID != b.ID || a.ServiceCode != b.ServiceCode || !a.Amount.Equal(b.Amount) {
			return false
		}
	}
	return true
}
