package client

import (
	"github.com/clubledger/clubledger/internal/types"
	"github.com/shopspring/decimal"
)

// Project returns the optimistic projection of applying the intent to the
// snapshot. Only the fields the mutation directly affects move; derived
// figures the server computes (tax, service charge) are left untouched, and
// the version stays at its pre-mutation value until the server confirms.
func Project(snap *Snapshot, intent *Intent) *Snapshot {
	projected := snap.Clone()

	switch intent.Kind {
	case types.MutationKindDiscount:
		projected.Discount = projected.Discount.Add(intent.Amount)
		projected.Total = projected.Total.Sub(intent.Amount)
		projected.BalanceDue = projected.BalanceDue.Sub(intent.Amount)
	case types.MutationKindPayment, types.MutationKindDeposit:
		projected.AmountPaid = projected.AmountPaid.Add(intent.Amount)
		projected.BalanceDue = projected.BalanceDue.Sub(intent.Amount)
		if projected.BalanceDue.IsNegative() {
			projected.BalanceDue = decimal.Zero
		}
	case types.MutationKindCancel:
		projected.Status = types.InvoiceStatusCancelled
	}

	return projected
}
