package service

import (
	"testing"

	"github.com/clubledger/clubledger/internal/api/dto"
	ierr "github.com/clubledger/clubledger/internal/errors"
	"github.com/clubledger/clubledger/internal/testutil"
	"github.com/clubledger/clubledger/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service InvoiceService
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewInvoiceService(
		s.GetStores().InvoiceRepo,
		s.GetCatalog(),
		s.GetRecorder(),
		s.GetLogger(),
		s.GetDB(),
	)
}

func (s *InvoiceServiceSuite) createDraftInvoice(guestID string) *dto.InvoiceResponse {
	// Explicit key per call so repeated creates for the same guest do not
	// replay through the create-level idempotency check
	key := types.GenerateUUID()
	resp, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		GuestID:        guestID,
		Currency:       "USD",
		IdempotencyKey: &key,
		Tax:            decimal.NewFromInt(8),
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{ServiceCode: "massage-60", Description: "60 minute massage", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(80)},
			{ServiceCode: "sauna", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(10)},
		},
	})
	s.NoError(err)
	s.NotNil(resp)
	return resp
}

func (s *InvoiceServiceSuite) createIssuedInvoice(guestID string) *dto.InvoiceResponse {
	resp := s.createDraftInvoice(guestID)
	s.NoError(s.service.IssueInvoice(s.GetContext(), resp.ID))
	issued, err := s.service.GetInvoice(s.GetContext(), resp.ID)
	s.NoError(err)
	return issued
}

func (s *InvoiceServiceSuite) TestCreateInvoice() {
	resp := s.createDraftInvoice("guest_1")

	s.Equal(types.InvoiceStatusDraft, resp.InvoiceStatus)
	s.Equal(1, resp.Version)
	s.NotNil(resp.InvoiceNumber)
	s.True(resp.Subtotal.Equal(decimal.NewFromInt(100)))
	s.True(resp.Total.Equal(decimal.NewFromInt(108)))
	s.True(resp.BalanceDue.Equal(decimal.NewFromInt(108)))
	s.Len(resp.LineItems, 2)
}

func (s *InvoiceServiceSuite) TestCreateInvoiceReplaysOnIdempotencyKey() {
	key := "create-abc123"
	req := dto.CreateInvoiceRequest{
		GuestID:        "guest_1",
		Currency:       "USD",
		IdempotencyKey: &key,
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{ServiceCode: "massage-60", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(80)},
		},
	}

	first, err := s.service.CreateInvoice(s.GetContext(), req)
	s.NoError(err)
	second, err := s.service.CreateInvoice(s.GetContext(), req)
	s.NoError(err)

	s.Equal(first.ID, second.ID)

	count, err := s.GetStores().InvoiceRepo.Count(s.GetContext(), types.NewInvoiceFilter())
	s.NoError(err)
	s.Equal(1, count)
}

func (s *InvoiceServiceSuite) TestIssueInvoice() {
	resp := s.createDraftInvoice("guest_1")

	s.NoError(s.service.IssueInvoice(s.GetContext(), resp.ID))

	issued, err := s.service.GetInvoice(s.GetContext(), resp.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusIssued, issued.InvoiceStatus)
	s.Equal(2, issued.Version)

	// Issuing twice is not a valid transition
	err = s.service.IssueInvoice(s.GetContext(), resp.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestApplyDiscount() {
	inv := s.createIssuedInvoice("guest_1")

	resp, err := s.service.ApplyDiscount(s.GetContext(), inv.ID, dto.ApplyDiscountRequest{
		MutationRequest: dto.MutationRequest{Version: inv.Version, IdempotencyKey: "disc-1"},
		Amount:          decimal.NewFromInt(10),
	})
	s.NoError(err)
	s.True(resp.NewDiscount.Equal(decimal.NewFromInt(10)))
	s.True(resp.NewTotal.Equal(decimal.NewFromInt(98)))
	s.True(resp.NewBalanceDue.Equal(decimal.NewFromInt(98)))
	s.Equal(inv.Version+1, resp.Version)
}

func (s *InvoiceServiceSuite) TestApplyDiscountStaleVersion() {
	inv := s.createIssuedInvoice("guest_1")

	_, err := s.service.ApplyDiscount(s.GetContext(), inv.ID, dto.ApplyDiscountRequest{
		MutationRequest: dto.MutationRequest{Version: inv.Version, IdempotencyKey: "disc-1"},
		Amount:          decimal.NewFromInt(10),
	})
	s.NoError(err)

	// Second mutation with the old version must be rejected
	_, err = s.service.ProcessPayment(s.GetContext(), inv.ID, dto.ProcessPaymentRequest{
		MutationRequest: dto.MutationRequest{Version: inv.Version, IdempotencyKey: "pay-1"},
		Amount:          decimal.NewFromInt(50),
		Method:          types.PaymentMethodCard,
	})
	s.Error(err)
	s.True(ierr.IsVersionConflict(err))

	// The rejected mutation must not have touched the invoice
	current, err := s.service.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(current.AmountPaid.IsZero())
	s.Equal(inv.Version+1, current.Version)
}

func (s *InvoiceServiceSuite) TestMutationReplayAfterVersionMoved() {
	inv := s.createIssuedInvoice("guest_1")

	first, err := s.service.ApplyDiscount(s.GetContext(), inv.ID, dto.ApplyDiscountRequest{
		MutationRequest: dto.MutationRequest{Version: inv.Version, IdempotencyKey: "disc-1"},
		Amount:          decimal.NewFromInt(10),
	})
	s.NoError(err)

	// Resending the same key succeeds with the recorded result even though
	// the stored version has moved past the supplied one
	replayed, err := s.service.ApplyDiscount(s.GetContext(), inv.ID, dto.ApplyDiscountRequest{
		MutationRequest: dto.MutationRequest{Version: inv.Version, IdempotencyKey: "disc-1"},
		Amount:          decimal.NewFromInt(10),
	})
	s.NoError(err)
	s.Equal(first, replayed)

	// The discount was applied exactly once
	current, err := s.service.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(current.Discount.Equal(decimal.NewFromInt(10)))
	s.Equal(first.Version, current.Version)
}

func (s *InvoiceServiceSuite) TestApplyDiscountExceedsSubtotal() {
	inv := s.createIssuedInvoice("guest_1")

	_, err := s.service.ApplyDiscount(s.GetContext(), inv.ID, dto.ApplyDiscountRequest{
		MutationRequest: dto.MutationRequest{Version: inv.Version, IdempotencyKey: "disc-1"},
		Amount:          decimal.NewFromInt(150),
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestApplyDiscountHonoursCatalogLimit() {
	inv := s.createIssuedInvoice("guest_1")

	// LOYALTY allows at most 20% of the 100 subtotal
	_, err := s.service.ApplyDiscount(s.GetContext(), inv.ID, dto.ApplyDiscountRequest{
		MutationRequest: dto.MutationRequest{Version: inv.Version, IdempotencyKey: "disc-1"},
		Amount:          decimal.NewFromInt(25),
		DiscountCode:    "LOYALTY",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))

	resp, err := s.service.ApplyDiscount(s.GetContext(), inv.ID, dto.ApplyDiscountRequest{
		MutationRequest: dto.MutationRequest{Version: inv.Version, IdempotencyKey: "disc-2"},
		Amount:          decimal.NewFromInt(20),
		DiscountCode:    "LOYALTY",
	})
	s.NoError(err)
	s.True(resp.NewDiscount.Equal(decimal.NewFromInt(20)))
}

func (s *InvoiceServiceSuite) TestProcessPayment() {
	inv := s.createIssuedInvoice("guest_1")

	partial, err := s.service.ProcessPayment(s.GetContext(), inv.ID, dto.ProcessPaymentRequest{
		MutationRequest: dto.MutationRequest{Version: inv.Version, IdempotencyKey: "pay-1"},
		Amount:          decimal.NewFromInt(50),
		Method:          types.PaymentMethodCard,
	})
	s.NoError(err)
	s.Equal(types.InvoiceStatusPartial, partial.InvoiceStatus)
	s.True(partial.NewBalanceDue.Equal(decimal.NewFromInt(58)))

	paid, err := s.service.ProcessPayment(s.GetContext(), inv.ID, dto.ProcessPaymentRequest{
		MutationRequest: dto.MutationRequest{Version: partial.Version, IdempotencyKey: "pay-2"},
		Amount:          decimal.NewFromInt(58),
		Method:          types.PaymentMethodCash,
	})
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, paid.InvoiceStatus)
	s.True(paid.NewBalanceDue.IsZero())

	current, err := s.service.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.NotNil(current.PaidAt)
}

func (s *InvoiceServiceSuite) TestProcessPaymentOnDraftRejected() {
	inv := s.createDraftInvoice("guest_1")

	_, err := s.service.ProcessPayment(s.GetContext(), inv.ID, dto.ProcessPaymentRequest{
		MutationRequest: dto.MutationRequest{Version: inv.Version, IdempotencyKey: "pay-1"},
		Amount:          decimal.NewFromInt(10),
		Method:          types.PaymentMethodCash,
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestPaymentExceedsBalance() {
	inv := s.createIssuedInvoice("guest_1")

	_, err := s.service.ProcessPayment(s.GetContext(), inv.ID, dto.ProcessPaymentRequest{
		MutationRequest: dto.MutationRequest{Version: inv.Version, IdempotencyKey: "pay-1"},
		Amount:          decimal.NewFromInt(500),
		Method:          types.PaymentMethodCash,
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestRecordDepositOnDraft() {
	inv := s.createDraftInvoice("guest_1")

	// Deposits are allowed before issuance and leave the status alone
	resp, err := s.service.RecordDeposit(s.GetContext(), inv.ID, dto.RecordDepositRequest{
		MutationRequest: dto.MutationRequest{Version: inv.Version, IdempotencyKey: "dep-1"},
		Amount:          decimal.NewFromInt(30),
	})
	s.NoError(err)
	s.Equal(types.InvoiceStatusDraft, resp.InvoiceStatus)
	s.True(resp.AmountPaid.Equal(decimal.NewFromInt(30)))
	s.True(resp.NewBalanceDue.Equal(decimal.NewFromInt(78)))
}

func (s *InvoiceServiceSuite) TestCancelInvoice() {
	inv := s.createIssuedInvoice("guest_1")

	resp, err := s.service.CancelInvoice(s.GetContext(), inv.ID, dto.CancelInvoiceRequest{
		MutationRequest: dto.MutationRequest{Version: inv.Version, IdempotencyKey: "cancel-1"},
		Reason:          "guest disputed the charge",
	})
	s.NoError(err)
	s.Equal(types.InvoiceStatusCancelled, resp.InvoiceStatus)

	// Cancelled is terminal; no further mutation goes through
	_, err = s.service.ApplyDiscount(s.GetContext(), inv.ID, dto.ApplyDiscountRequest{
		MutationRequest: dto.MutationRequest{Version: resp.Version, IdempotencyKey: "disc-1"},
		Amount:          decimal.NewFromInt(5),
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestCancelRequiresReason() {
	inv := s.createIssuedInvoice("guest_1")

	_, err := s.service.CancelInvoice(s.GetContext(), inv.ID, dto.CancelInvoiceRequest{
		MutationRequest: dto.MutationRequest{Version: inv.Version, IdempotencyKey: "cancel-1"},
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestListInvoices() {
	s.createDraftInvoice("guest_1")
	s.createDraftInvoice("guest_2")
	s.createDraftInvoice("guest_2")

	filter := types.NewInvoiceFilter()
	filter.GuestID = "guest_2"

	resp, err := s.service.ListInvoices(s.GetContext(), filter)
	s.NoError(err)
	s.Equal(2, resp.Total)
	s.Len(resp.Results, 2)
	for _, inv := range resp.Results {
		s.Equal("guest_2", inv.GuestID)
	}
}

func (s *InvoiceServiceSuite) TestGetInvoiceNotFound() {
	_, err := s.service.GetInvoice(s.GetContext(), "inv_missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
