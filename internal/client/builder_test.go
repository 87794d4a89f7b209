package client

import (
	"testing"

	ierr "github.com/clubledger/clubledger/internal/errors"
	"github.com/clubledger/clubledger/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDiscountBindsVersionAndKey(t *testing.T) {
	b := NewRequestBuilder()
	snap := issuedSnapshot()

	intent, err := b.BuildDiscount(snap, decimal.NewFromInt(10), "LOYALTY")
	require.NoError(t, err)

	assert.Equal(t, types.MutationKindDiscount, intent.Kind)
	assert.Equal(t, snap.ID, intent.InvoiceID)
	assert.Equal(t, snap.Version, intent.Version)
	assert.Equal(t, "LOYALTY", intent.DiscountCode)
	assert.NotEmpty(t, intent.IdempotencyKey)
}

func TestBuildDiscountCumulativeLimit(t *testing.T) {
	b := NewRequestBuilder()
	snap := issuedSnapshot()
	snap.Discount = decimal.NewFromInt(95)

	// 95 already applied; 10 more would exceed the 100 subtotal
	_, err := b.BuildDiscount(snap, decimal.NewFromInt(10), "")
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	_, err = b.BuildDiscount(snap, decimal.NewFromInt(5), "")
	assert.NoError(t, err)
}

func TestBuildPaymentLimits(t *testing.T) {
	b := NewRequestBuilder()
	snap := issuedSnapshot()

	_, err := b.BuildPayment(snap, decimal.Zero, types.PaymentMethodCash)
	assert.True(t, ierr.IsValidation(err))

	_, err = b.BuildPayment(snap, decimal.NewFromInt(200), types.PaymentMethodCash)
	assert.True(t, ierr.IsValidation(err))

	_, err = b.BuildPayment(snap, decimal.NewFromInt(50), types.PaymentMethod("iou"))
	assert.True(t, ierr.IsValidation(err))

	intent, err := b.BuildPayment(snap, decimal.NewFromInt(50), types.PaymentMethodCard)
	require.NoError(t, err)
	assert.Equal(t, types.MutationKindPayment, intent.Kind)
}

func TestBuildDepositMayExceedBalance(t *testing.T) {
	b := NewRequestBuilder()
	snap := issuedSnapshot()

	intent, err := b.BuildDeposit(snap, decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.Equal(t, types.MutationKindDeposit, intent.Kind)
}

func TestBuildOnTerminalSnapshotRejected(t *testing.T) {
	b := NewRequestBuilder()
	snap := issuedSnapshot()
	snap.Status = types.InvoiceStatusCancelled

	_, err := b.BuildDiscount(snap, decimal.NewFromInt(10), "")
	assert.True(t, ierr.IsInvalidOperation(err))

	_, err = b.BuildCancel(snap, "duplicate")
	assert.True(t, ierr.IsInvalidOperation(err))
}

func TestBuildOnNilSnapshotRejected(t *testing.T) {
	b := NewRequestBuilder()

	_, err := b.BuildDeposit(nil, decimal.NewFromInt(10))
	assert.True(t, ierr.IsInvalidOperation(err))
}

func TestProjectDiscount(t *testing.T) {
	snap := issuedSnapshot()
	intent := &Intent{Kind: types.MutationKindDiscount, Amount: decimal.NewFromInt(10)}

	projected := Project(snap, intent)

	assert.True(t, projected.Discount.Equal(decimal.NewFromInt(10)))
	assert.True(t, projected.Total.Equal(decimal.NewFromInt(98)))
	assert.True(t, projected.BalanceDue.Equal(decimal.NewFromInt(98)))
	// Untouched fields and version stay put
	assert.True(t, projected.Tax.Equal(snap.Tax))
	assert.Equal(t, snap.Version, projected.Version)
	// The source snapshot is not mutated
	assert.True(t, snap.Discount.IsZero())
}

func TestProjectPayment(t *testing.T) {
	snap := issuedSnapshot()
	intent := &Intent{Kind: types.MutationKindPayment, Amount: decimal.NewFromInt(60)}

	projected := Project(snap, intent)

	assert.True(t, projected.AmountPaid.Equal(decimal.NewFromInt(60)))
	assert.True(t, projected.BalanceDue.Equal(decimal.NewFromInt(48)))
	assert.Equal(t, snap.Status, projected.Status)
}

func TestProjectCancel(t *testing.T) {
	snap := issuedSnapshot()
	intent := &Intent{Kind: types.MutationKindCancel, Reason: "no-show"}

	projected := Project(snap, intent)

	assert.Equal(t, types.InvoiceStatusCancelled, projected.Status)
	assert.True(t, projected.Total.Equal(snap.Total))
	assert.Equal(t, snap.Version, projected.Version)
}
