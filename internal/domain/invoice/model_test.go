package invoice

import (
	"testing"
	"time"

	ierr "github.com/clubledger/clubledger/internal/errors"
	"github.com/clubledger/clubledger/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInvoice(status types.InvoiceStatus) *Invoice {
	inv := &Invoice{
		ID:            "inv_test",
		GuestID:       "guest_1",
		Currency:      "USD",
		Subtotal:      decimal.NewFromInt(100),
		Discount:      decimal.Zero,
		Tax:           decimal.NewFromInt(8),
		ServiceCharge: decimal.NewFromInt(2),
		AmountPaid:    decimal.Zero,
		InvoiceStatus: status,
		Version:       1,
	}
	inv.Recalculate()
	return inv
}

func TestRecalculate(t *testing.T) {
	inv := testInvoice(types.InvoiceStatusIssued)

	assert.True(t, inv.Total.Equal(decimal.NewFromInt(110)))
	assert.True(t, inv.BalanceDue.Equal(decimal.NewFromInt(110)))

	inv.Discount = decimal.NewFromInt(10)
	inv.AmountPaid = decimal.NewFromInt(40)
	inv.Recalculate()

	assert.True(t, inv.Total.Equal(decimal.NewFromInt(100)))
	assert.True(t, inv.BalanceDue.Equal(decimal.NewFromInt(60)))
}

func TestApplyDiscount(t *testing.T) {
	inv := testInvoice(types.InvoiceStatusIssued)

	require.NoError(t, inv.ApplyDiscount(decimal.NewFromInt(10)))
	assert.True(t, inv.Discount.Equal(decimal.NewFromInt(10)))
	assert.True(t, inv.Total.Equal(decimal.NewFromInt(100)))

	// Discounts accumulate
	require.NoError(t, inv.ApplyDiscount(decimal.NewFromInt(20)))
	assert.True(t, inv.Discount.Equal(decimal.NewFromInt(30)))

	// The cumulative discount may not pass the subtotal
	err := inv.ApplyDiscount(decimal.NewFromInt(80))
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
	assert.True(t, inv.Discount.Equal(decimal.NewFromInt(30)))
}

func TestApplyDiscountRejectsNonPositive(t *testing.T) {
	inv := testInvoice(types.InvoiceStatusIssued)

	assert.Error(t, inv.ApplyDiscount(decimal.Zero))
	assert.Error(t, inv.ApplyDiscount(decimal.NewFromInt(-5)))
}

func TestApplyPayment(t *testing.T) {
	inv := testInvoice(types.InvoiceStatusIssued)
	now := time.Now().UTC()

	require.NoError(t, inv.ApplyPayment(decimal.NewFromInt(50), now))
	assert.Equal(t, types.InvoiceStatusPartial, inv.InvoiceStatus)
	assert.True(t, inv.BalanceDue.Equal(decimal.NewFromInt(60)))
	assert.Nil(t, inv.PaidAt)

	require.NoError(t, inv.ApplyPayment(decimal.NewFromInt(60), now))
	assert.Equal(t, types.InvoiceStatusPaid, inv.InvoiceStatus)
	assert.True(t, inv.BalanceDue.IsZero())
	require.NotNil(t, inv.PaidAt)
	assert.Equal(t, now, *inv.PaidAt)
}

func TestApplyPaymentExceedsBalance(t *testing.T) {
	inv := testInvoice(types.InvoiceStatusIssued)

	err := inv.ApplyPayment(decimal.NewFromInt(200), time.Now().UTC())
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
	assert.True(t, inv.AmountPaid.IsZero())
}

func TestApplyPaymentOnPaidInvoice(t *testing.T) {
	inv := testInvoice(types.InvoiceStatusIssued)
	now := time.Now().UTC()
	require.NoError(t, inv.ApplyPayment(decimal.NewFromInt(110), now))

	err := inv.ApplyPayment(decimal.NewFromInt(10), now)
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidOperation(err))
}

func TestApplyDepositOnDraftKeepsStatus(t *testing.T) {
	inv := testInvoice(types.InvoiceStatusDraft)

	require.NoError(t, inv.ApplyDeposit(decimal.NewFromInt(30)))
	assert.Equal(t, types.InvoiceStatusDraft, inv.InvoiceStatus)
	assert.True(t, inv.AmountPaid.Equal(decimal.NewFromInt(30)))
	assert.True(t, inv.BalanceDue.Equal(decimal.NewFromInt(80)))
}

func TestApplyDepositAfterIssueActsLikePayment(t *testing.T) {
	inv := testInvoice(types.InvoiceStatusIssued)

	require.NoError(t, inv.ApplyDeposit(decimal.NewFromInt(30)))
	assert.Equal(t, types.InvoiceStatusPartial, inv.InvoiceStatus)

	require.NoError(t, inv.ApplyDeposit(decimal.NewFromInt(80)))
	assert.Equal(t, types.InvoiceStatusPaid, inv.InvoiceStatus)
}

func TestCancel(t *testing.T) {
	inv := testInvoice(types.InvoiceStatusIssued)
	now := time.Now().UTC()

	require.NoError(t, inv.Cancel("guest dispute", now))
	assert.Equal(t, types.InvoiceStatusCancelled, inv.InvoiceStatus)
	require.NotNil(t, inv.CancelledAt)
	require.NotNil(t, inv.CancellationReason)
	assert.Equal(t, "guest dispute", *inv.CancellationReason)

	// Terminal; further mutations are rejected
	err := inv.ApplyDiscount(decimal.NewFromInt(5))
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidOperation(err))
}

func TestCancelRequiresReason(t *testing.T) {
	inv := testInvoice(types.InvoiceStatusIssued)

	err := inv.Cancel("", time.Now().UTC())
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
	assert.Equal(t, types.InvoiceStatusIssued, inv.InvoiceStatus)
}

func TestCancelPaidInvoiceRejected(t *testing.T) {
	inv := testInvoice(types.InvoiceStatusIssued)
	require.NoError(t, inv.ApplyPayment(decimal.NewFromInt(110), time.Now().UTC()))

	err := inv.Cancel("too late", time.Now().UTC())
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidOperation(err))
}

func TestCloneIsDeep(t *testing.T) {
	inv := testInvoice(types.InvoiceStatusIssued)
	number := "INV-X7K2M9"
	inv.InvoiceNumber = &number
	inv.Metadata = types.Metadata{"source": "front-desk"}
	inv.LineItems = []*LineItem{
		{
			ID:          "inv_line_1",
			InvoiceID:   inv.ID,
			ServiceCode: "massage-60",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(100),
			Amount:      decimal.NewFromInt(100),
			Currency:    "USD",
		},
	}

	clone := inv.Clone()
	clone.Discount = decimal.NewFromInt(50)
	*clone.InvoiceNumber = "INV-OTHER"
	clone.Metadata["source"] = "import"
	clone.LineItems[0].ServiceCode = "sauna"

	assert.True(t, inv.Discount.IsZero())
	assert.Equal(t, "INV-X7K2M9", *inv.InvoiceNumber)
	assert.Equal(t, "front-desk", inv.Metadata["source"])
	assert.Equal(t, "massage-60", inv.LineItems[0].ServiceCode)
}

func TestValidate(t *testing.T) {
	inv := testInvoice(types.InvoiceStatusIssued)
	assert.NoError(t, inv.Validate())

	broken := testInvoice(types.InvoiceStatusIssued)
	broken.Total = decimal.NewFromInt(999)
	assert.Error(t, broken.Validate())

	negative := testInvoice(types.InvoiceStatusIssued)
	negative.Discount = decimal.NewFromInt(-1)
	assert.Error(t, negative.Validate())

	overpaid := testInvoice(types.InvoiceStatusIssued)
	overpaid.AmountPaid = decimal.NewFromInt(500)
	overpaid.Recalculate()
	assert.Error(t, overpaid.Validate())
}
