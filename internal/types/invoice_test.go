package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvoiceStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    InvoiceStatus
		to      InvoiceStatus
		allowed bool
	}{
		{"draft to issued", InvoiceStatusDraft, InvoiceStatusIssued, true},
		{"draft to pending", InvoiceStatusDraft, InvoiceStatusPending, true},
		{"draft to cancelled", InvoiceStatusDraft, InvoiceStatusCancelled, true},
		{"draft to paid", InvoiceStatusDraft, InvoiceStatusPaid, false},
		{"pending to issued", InvoiceStatusPending, InvoiceStatusIssued, true},
		{"issued to partial", InvoiceStatusIssued, InvoiceStatusPartial, true},
		{"issued to paid", InvoiceStatusIssued, InvoiceStatusPaid, true},
		{"issued to overdue", InvoiceStatusIssued, InvoiceStatusOverdue, true},
		{"issued to draft", InvoiceStatusIssued, InvoiceStatusDraft, false},
		{"partial to paid", InvoiceStatusPartial, InvoiceStatusPaid, true},
		{"partial to issued", InvoiceStatusPartial, InvoiceStatusIssued, false},
		{"overdue to paid", InvoiceStatusOverdue, InvoiceStatusPaid, true},
		{"paid to refunded", InvoiceStatusPaid, InvoiceStatusRefunded, true},
		{"paid to issued", InvoiceStatusPaid, InvoiceStatusIssued, false},
		{"cancelled to anything", InvoiceStatusCancelled, InvoiceStatusDraft, false},
		{"refunded to anything", InvoiceStatusRefunded, InvoiceStatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestInvoiceStatusIsTerminal(t *testing.T) {
	assert.True(t, InvoiceStatusCancelled.IsTerminal())
	assert.True(t, InvoiceStatusRefunded.IsTerminal())
	assert.False(t, InvoiceStatusDraft.IsTerminal())
	assert.False(t, InvoiceStatusIssued.IsTerminal())
	assert.False(t, InvoiceStatusPaid.IsTerminal())
}

func TestInvoiceStatusValidate(t *testing.T) {
	assert.NoError(t, InvoiceStatusIssued.Validate())
	assert.Error(t, InvoiceStatus("finalized").Validate())
}

func TestMutationKindValidate(t *testing.T) {
	assert.NoError(t, MutationKindDiscount.Validate())
	assert.NoError(t, MutationKindCancel.Validate())
	assert.Error(t, MutationKind("refund").Validate())
}

func TestPaymentMethodValidate(t *testing.T) {
	assert.NoError(t, PaymentMethodRoomCharge.Validate())
	assert.Error(t, PaymentMethod("check").Validate())
}

func TestInvoiceFilterValidate(t *testing.T) {
	f := NewInvoiceFilter()
	assert.NoError(t, f.Validate())

	f.InvoiceStatus = []InvoiceStatus{InvoiceStatusIssued, "bogus"}
	assert.Error(t, f.Validate())
}
