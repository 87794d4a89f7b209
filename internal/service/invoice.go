package service

import (
	"context"
	"time"

	"github.com/clubledger/clubledger/internal/api/dto"
	"github.com/clubledger/clubledger/internal/catalog"
	"github.com/clubledger/clubledger/internal/domain/invoice"
	ierr "github.com/clubledger/clubledger/internal/errors"
	"github.com/clubledger/clubledger/internal/idempotency"
	"github.com/clubledger/clubledger/internal/logger"
	"github.com/clubledger/clubledger/internal/postgres"
	"github.com/clubledger/clubledger/internal/types"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

// InvoiceService is the authoritative side of the invoice mutation
// protocol. Every mutation is guarded by the invoice version token and an
// idempotency key: a stale version is rejected with a conflict, a resent
// key returns the previously applied result.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)
	IssueInvoice(ctx context.Context, id string) error
	ApplyDiscount(ctx context.Context, id string, req dto.ApplyDiscountRequest) (*dto.MutationResponse, error)
	ProcessPayment(ctx context.Context, id string, req dto.ProcessPaymentRequest) (*dto.MutationResponse, error)
	RecordDeposit(ctx context.Context, id string, req dto.RecordDepositRequest) (*dto.MutationResponse, error)
	CancelInvoice(ctx context.Context, id string, req dto.CancelInvoiceRequest) (*dto.MutationResponse, error)
}

type invoiceService struct {
	db          postgres.IClient
	logger      *logger.Logger
	invoiceRepo invoice.Repository
	catalog     catalog.Service
	idempGen    *idempotency.Generator
	recorder    idempotency.Recorder
}

func NewInvoiceService(
	invoiceRepo invoice.Repository,
	catalogService catalog.Service,
	recorder idempotency.Recorder,
	logger *logger.Logger,
	db postgres.IClient,
) InvoiceService {
	return &invoiceService{
		db:          db,
		logger:      logger,
		invoiceRepo: invoiceRepo,
		catalog:     catalogService,
		idempGen:    idempotency.NewGenerator(),
		recorder:    recorder,
	}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var resp *dto.InvoiceResponse
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		var idempKey string
		if req.IdempotencyKey == nil {
			idempKey = s.idempGen.GenerateKey(idempotency.ScopeInvoice, map[string]interface{}{
				"tenant_id":      types.GetTenantID(ctx),
				"guest_id":       req.GuestID,
				"reservation_id": types.FromNillableString(req.ReservationID),
			})
		} else {
			idempKey = *req.IdempotencyKey
		}

		existing, err := s.invoiceRepo.GetByIdempotencyKey(ctx, idempKey)
		if err != nil && !ierr.IsNotFound(err) {
			return err
		}
		if existing != nil {
			s.logger.Infow("returning existing invoice for idempotency key",
				"idempotency_key", idempKey,
				"invoice_id", existing.ID)
			resp = dto.NewInvoiceResponse(existing)
			return nil
		}

		inv := req.ToInvoice(ctx)
		inv.IdempotencyKey = &idempKey
		invoiceNumber := types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_INVOICE_NUMBER)
		inv.InvoiceNumber = &invoiceNumber

		if err := inv.Validate(); err != nil {
			return err
		}
		if err := s.invoiceRepo.Create(ctx, inv); err != nil {
			return err
		}

		resp = dto.NewInvoiceResponse(inv)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("created invoice",
		"invoice_id", resp.ID,
		"guest_id", resp.GuestID,
		"total", resp.Total)
	return resp, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.invoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	var invoices []*invoice.Invoice
	var total int

	// Page and count are independent reads; fetch them concurrently
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		invoices, err = s.invoiceRepo.List(ctx, filter)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		total, err = s.invoiceRepo.Count(ctx, filter)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	results := make([]*dto.InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		results[i] = dto.NewInvoiceResponse(inv)
	}

	return &dto.ListInvoicesResponse{
		Results: results,
		Total:   total,
		Offset:  filter.GetOffset(),
		Limit:   filter.GetLimit(),
	}, nil
}

func (s *invoiceService) IssueInvoice(ctx context.Context, id string) error {
	return s.db.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.invoiceRepo.Get(ctx, id)
		if err != nil {
			return err
		}

		if !inv.InvoiceStatus.CanTransitionTo(types.InvoiceStatusIssued) {
			return ierr.NewError("invoice cannot be issued").
				WithHintf("Invoice in status %s cannot be issued", inv.InvoiceStatus).
				Mark(ierr.ErrInvalidOperation)
		}

		inv.InvoiceStatus = types.InvoiceStatusIssued
		s.touch(ctx, inv)
		return s.invoiceRepo.Update(ctx, inv)
	})
}

func (s *invoiceService) ApplyDiscount(ctx context.Context, id string, req dto.ApplyDiscountRequest) (*dto.MutationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, req.MutationRequest, func(ctx context.Context, inv *invoice.Invoice) error {
		if req.DiscountCode != "" {
			dt, err := s.catalog.GetDiscountType(ctx, req.DiscountCode)
			if err != nil {
				return err
			}
			maxDiscount := inv.Subtotal.Mul(decimal.NewFromInt(int64(dt.MaxPercent))).Div(decimal.NewFromInt(100))
			if inv.Discount.Add(req.Amount).GreaterThan(maxDiscount) {
				return ierr.NewError("discount exceeds allowed percentage").
					WithHintf("Discount type %s allows at most %d%% of the subtotal", dt.Code, dt.MaxPercent).
					Mark(ierr.ErrValidation)
			}
		}
		return inv.ApplyDiscount(req.Amount)
	})
}

func (s *invoiceService) ProcessPayment(ctx context.Context, id string, req dto.ProcessPaymentRequest) (*dto.MutationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, req.MutationRequest, func(ctx context.Context, inv *invoice.Invoice) error {
		if inv.InvoiceStatus == types.InvoiceStatusDraft || inv.InvoiceStatus == types.InvoiceStatusPending {
			return ierr.NewError("invoice is not payable yet").
				WithHint("The invoice must be issued before payments can be recorded").
				Mark(ierr.ErrInvalidOperation)
		}
		return inv.ApplyPayment(req.Amount, time.Now().UTC())
	})
}

func (s *invoiceService) RecordDeposit(ctx context.Context, id string, req dto.RecordDepositRequest) (*dto.MutationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, req.MutationRequest, func(ctx context.Context, inv *invoice.Invoice) error {
		return inv.ApplyDeposit(req.Amount)
	})
}

func (s *invoiceService) CancelInvoice(ctx context.Context, id string, req dto.CancelInvoiceRequest) (*dto.MutationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, req.MutationRequest, func(ctx context.Context, inv *invoice.Invoice) error {
		return inv.Cancel(req.Reason, time.Now().UTC())
	})
}

// mutate runs one version-checked, idempotent mutation. The order matters:
// the replay check comes before the version check so that a resend of an
// already-applied key succeeds even though the stored version has moved on.
func (s *invoiceService) mutate(
	ctx context.Context,
	id string,
	meta dto.MutationRequest,
	apply func(ctx context.Context, inv *invoice.Invoice) error,
) (*dto.MutationResponse, error) {
	if cached, ok := s.recorder.Lookup(ctx, meta.IdempotencyKey); ok {
		if resp, ok := cached.(*dto.MutationResponse); ok {
			s.logger.Infow("returning recorded result for idempotency key",
				"idempotency_key", meta.IdempotencyKey,
				"invoice_id", resp.InvoiceID)
			return resp, nil
		}
	}

	var resp *dto.MutationResponse
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.invoiceRepo.Get(ctx, id)
		if err != nil {
			return err
		}

		if inv.Version != meta.Version {
			return ierr.NewError("invoice version conflict").
				WithHint("The invoice was modified by another user").
				WithReportableDetails(map[string]any{
					"invoice_id":       inv.ID,
					"supplied_version": meta.Version,
					"current_version":  inv.Version,
				}).
				Mark(ierr.ErrVersionConflict)
		}

		if err := apply(ctx, inv); err != nil {
			return err
		}

		if err := inv.Validate(); err != nil {
			return err
		}

		s.touch(ctx, inv)
		if err := s.invoiceRepo.Update(ctx, inv); err != nil {
			return err
		}

		resp = dto.NewMutationResponse(inv)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, meta.IdempotencyKey, resp)
	s.logger.Infow("applied invoice mutation",
		"invoice_id", resp.InvoiceID,
		"invoice_status", resp.InvoiceStatus,
		"version", resp.Version)
	return resp, nil
}

func (s *invoiceService) touch(ctx context.Context, inv *invoice.Invoice) {
	inv.UpdatedAt = time.Now().UTC()
	inv.UpdatedBy = types.GetUserID(ctx)
}
