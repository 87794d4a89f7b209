package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/clubledger/clubledger/internal/api/dto"
	"github.com/clubledger/clubledger/internal/config"
	ierr "github.com/clubledger/clubledger/internal/errors"
	"github.com/clubledger/clubledger/internal/httpclient"
	"github.com/clubledger/clubledger/internal/logger"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// API is the invoice service surface the coordinator talks to. Mutations
// return the authoritative post-mutation figures; reads return full
// snapshots.
type API interface {
	GetInvoice(ctx context.Context, invoiceID string) (*Snapshot, error)
	ListInvoices(ctx context.Context, guestID string) ([]*Snapshot, error)
	ApplyDiscount(ctx context.Context, invoiceID string, req *dto.ApplyDiscountRequest) (*dto.MutationResponse, error)
	ProcessPayment(ctx context.Context, invoiceID string, req *dto.ProcessPaymentRequest) (*dto.MutationResponse, error)
	RecordDeposit(ctx context.Context, invoiceID string, req *dto.RecordDepositRequest) (*dto.MutationResponse, error)
	CancelInvoice(ctx context.Context, invoiceID string, req *dto.CancelInvoiceRequest) (*dto.MutationResponse, error)
}

type restAPI struct {
	baseURL string
	apiKey  string
	client  httpclient.Client
	logger  *logger.Logger
}

// NewAPI creates a REST-backed API client
func NewAPI(cfg *config.Configuration, client httpclient.Client, log *logger.Logger) API {
	return &restAPI{
		baseURL: cfg.Client.BaseURL,
		apiKey:  cfg.Client.APIKey,
		client:  client,
		logger:  log,
	}
}

// GetInvoice fetches the current server snapshot. Reads are idempotent so
// transient failures are retried with exponential backoff; mutations are
// never retried this way.
func (a *restAPI) GetInvoice(ctx context.Context, invoiceID string) (*Snapshot, error) {
	var snap Snapshot

	operation := func() error {
		resp, err := a.send(ctx, http.MethodGet, fmt.Sprintf("/v1/invoices/%s", invoiceID), nil)
		if err != nil {
			if isRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if err := json.Unmarshal(resp.Body, &snap); err != nil {
			return backoff.Permanent(ierr.WithError(err).
				WithHint("The invoice response could not be parsed").
				Mark(ierr.ErrHTTPClient))
		}
		return nil
	}

	b := backoff.WithContext(newBackoff(), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListInvoices fetches invoice snapshots for a guest. The endpoint wraps
// items in a results envelope; a bare array is tolerated for older servers.
func (a *restAPI) ListInvoices(ctx context.Context, guestID string) ([]*Snapshot, error) {
	path := "/v1/invoices"
	if guestID != "" {
		path = fmt.Sprintf("%s?guest_id=%s", path, guestID)
	}

	resp, err := a.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Results []*Snapshot `json:"results"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err == nil && envelope.Results != nil {
		return envelope.Results, nil
	}

	var bare []*Snapshot
	if err := json.Unmarshal(resp.Body, &bare); err != nil {
		return nil, ierr.WithError(err).
			WithHint("The invoice list response could not be parsed").
			Mark(ierr.ErrHTTPClient)
	}
	return bare, nil
}

func (a *restAPI) ApplyDiscount(ctx context.Context, invoiceID string, req *dto.ApplyDiscountRequest) (*dto.MutationResponse, error) {
	return a.mutate(ctx, fmt.Sprintf("/v1/invoices/%s/apply-discount", invoiceID), req)
}

func (a *restAPI) ProcessPayment(ctx context.Context, invoiceID string, req *dto.ProcessPaymentRequest) (*dto.MutationResponse, error) {
	return a.mutate(ctx, fmt.Sprintf("/v1/invoices/%s/process-payment", invoiceID), req)
}

func (a *restAPI) RecordDeposit(ctx context.Context, invoiceID string, req *dto.RecordDepositRequest) (*dto.MutationResponse, error) {
	return a.mutate(ctx, fmt.Sprintf("/v1/invoices/%s/record-deposit", invoiceID), req)
}

func (a *restAPI) CancelInvoice(ctx context.Context, invoiceID string, req *dto.CancelInvoiceRequest) (*dto.MutationResponse, error) {
	return a.mutate(ctx, fmt.Sprintf("/v1/invoices/%s/cancel", invoiceID), req)
}

// mutate sends one mutation request exactly once. No transport-level retry
// here: the idempotency key protects against duplicate delivery, but retry
// policy belongs to the operator, not the transport.
func (a *restAPI) mutate(ctx context.Context, path string, payload any) (*dto.MutationResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("The mutation request could not be encoded").
			Mark(ierr.ErrSystem)
	}

	resp, err := a.send(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	var result dto.MutationResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, ierr.WithError(err).
			WithHint("The mutation response could not be parsed").
			Mark(ierr.ErrHTTPClient)
	}
	return &result, nil
}

func (a *restAPI) send(ctx context.Context, method, path string, body []byte) (*httpclient.Response, error) {
	headers := make(map[string]string)
	if a.apiKey != "" {
		headers["X-API-Key"] = a.apiKey
	}

	resp, err := a.client.Send(ctx, &httpclient.Request{
		Method:  method,
		URL:     a.baseURL + path,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return nil, a.classify(err)
	}
	return resp, nil
}

// classify maps transport errors onto the domain error taxonomy: 409 is a
// version conflict, other 4xx are validation failures with the server's
// message surfaced, 5xx and network failures are transient.
func (a *restAPI) classify(err error) error {
	httpErr, ok := httpclient.IsHTTPError(err)
	if !ok {
		return err
	}

	var envelope ierr.ErrorResponse
	message := "request failed"
	if jsonErr := json.Unmarshal(httpErr.Response, &envelope); jsonErr == nil && envelope.Error.Display != "" {
		message = envelope.Error.Display
	}

	switch {
	case httpErr.StatusCode == http.StatusConflict:
		return ierr.NewError(message).
			WithHint(message).
			WithReportableDetails(envelope.Error.Details).
			Mark(ierr.ErrVersionConflict)
	case httpErr.StatusCode == http.StatusNotFound:
		return ierr.NewError(message).
			WithHint(message).
			Mark(ierr.ErrNotFound)
	case httpErr.StatusCode >= 400 && httpErr.StatusCode < 500:
		return ierr.NewError(message).
			WithHint(message).
			WithReportableDetails(envelope.Error.Details).
			Mark(ierr.ErrValidation)
	default:
		return ierr.NewError(message).
			WithHint("The invoice service is temporarily unavailable").
			Mark(ierr.ErrHTTPClient)
	}
}

func isRetryable(err error) bool {
	return ierr.IsHTTPClient(err)
}

func newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	return b
}
