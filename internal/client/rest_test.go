package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/clubledger/clubledger/internal/api/dto"
	"github.com/clubledger/clubledger/internal/config"
	ierr "github.com/clubledger/clubledger/internal/errors"
	"github.com/clubledger/clubledger/internal/logger"
	"github.com/clubledger/clubledger/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRestAPI(mock *testutil.MockHTTPClient) API {
	cfg := config.GetDefaultConfig()
	return NewAPI(cfg, mock, logger.L)
}

func TestGetInvoiceDecodesSnapshot(t *testing.T) {
	mock := testutil.NewMockHTTPClient()
	mock.RegisterResponse(http.MethodGet, "/v1/invoices/inv_01", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body: []byte(`{
			"id": "inv_01",
			"invoice_number": "INV-X7K2M9",
			"guest_id": "guest_1",
			"currency": "USD",
			"subtotal": "100",
			"discount": "0",
			"tax": "8",
			"service_charge": "0",
			"total": "108",
			"amount_paid": "0",
			"balance_due": "108",
			"invoice_status": "issued",
			"version": 3
		}`),
	})

	api := newRestAPI(mock)
	snap, err := api.GetInvoice(context.Background(), "inv_01")
	require.NoError(t, err)

	assert.Equal(t, "inv_01", snap.ID)
	assert.True(t, snap.Total.Equal(decimal.NewFromInt(108)))
	assert.Equal(t, 3, snap.Version)
}

func TestMutationConflictMapsToVersionConflict(t *testing.T) {
	mock := testutil.NewMockHTTPClient()
	mock.RegisterResponse(http.MethodPost, "/v1/invoices/inv_01/apply-discount", testutil.MockResponse{
		StatusCode: http.StatusConflict,
		Body:       []byte(`{"success":false,"error":{"message":"The invoice was modified by another user"}}`),
	})

	api := newRestAPI(mock)
	_, err := api.ApplyDiscount(context.Background(), "inv_01", &dto.ApplyDiscountRequest{
		MutationRequest: dto.MutationRequest{Version: 3, IdempotencyKey: "disc-1"},
		Amount:          decimal.NewFromInt(10),
	})

	require.Error(t, err)
	assert.True(t, ierr.IsVersionConflict(err))
}

func TestMutationBadRequestMapsToValidation(t *testing.T) {
	mock := testutil.NewMockHTTPClient()
	mock.RegisterResponse(http.MethodPost, "/v1/invoices/inv_01/process-payment", testutil.MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       []byte(`{"success":false,"error":{"message":"Payment cannot exceed the outstanding balance"}}`),
	})

	api := newRestAPI(mock)
	_, err := api.ProcessPayment(context.Background(), "inv_01", &dto.ProcessPaymentRequest{
		MutationRequest: dto.MutationRequest{Version: 3, IdempotencyKey: "pay-1"},
		Amount:          decimal.NewFromInt(500),
	})

	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
	assert.Contains(t, err.Error(), "Payment cannot exceed the outstanding balance")
}

func TestMutationDecodesResponse(t *testing.T) {
	mock := testutil.NewMockHTTPClient()
	mock.RegisterResponse(http.MethodPost, "/v1/invoices/inv_01/record-deposit", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"invoice_id":"inv_01","new_total":"108","new_balance_due":"78","new_discount":"0","amount_paid":"30","invoice_status":"issued","version":4}`),
	})

	api := newRestAPI(mock)
	resp, err := api.RecordDeposit(context.Background(), "inv_01", &dto.RecordDepositRequest{
		MutationRequest: dto.MutationRequest{Version: 3, IdempotencyKey: "dep-1"},
		Amount:          decimal.NewFromInt(30),
	})
	require.NoError(t, err)

	assert.True(t, resp.AmountPaid.Equal(decimal.NewFromInt(30)))
	assert.True(t, resp.NewBalanceDue.Equal(decimal.NewFromInt(78)))
	assert.Equal(t, 4, resp.Version)

	// The wire request carried version and idempotency key
	last := mock.LastRequest()
	require.NotNil(t, last)
	assert.Contains(t, string(last.Body), `"version":3`)
	assert.Contains(t, string(last.Body), `"idempotency_key":"dep-1"`)
}

func TestListInvoicesResultsEnvelope(t *testing.T) {
	mock := testutil.NewMockHTTPClient()
	mock.RegisterResponse(http.MethodGet, "/v1/invoices", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"results":[{"id":"inv_01","version":1},{"id":"inv_02","version":4}],"total":2,"offset":0,"limit":50}`),
	})

	api := newRestAPI(mock)
	snaps, err := api.ListInvoices(context.Background(), "guest_1")
	require.NoError(t, err)

	require.Len(t, snaps, 2)
	assert.Equal(t, "inv_01", snaps[0].ID)
	assert.Equal(t, 4, snaps[1].Version)
}

func TestListInvoicesBareArrayTolerated(t *testing.T) {
	mock := testutil.NewMockHTTPClient()
	mock.RegisterResponse(http.MethodGet, "/v1/invoices", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`[{"id":"inv_01","version":1}]`),
	})

	api := newRestAPI(mock)
	snaps, err := api.ListInvoices(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "inv_01", snaps[0].ID)
}
