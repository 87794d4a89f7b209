package testutil

import (
	"context"

	"github.com/clubledger/clubledger/internal/domain/invoice"
	ierr "github.com/clubledger/clubledger/internal/errors"
	"github.com/clubledger/clubledger/internal/types"
	"github.com/samber/lo"
)

var _ invoice.Repository = (*InMemoryInvoiceStore)(nil)

// InMemoryInvoiceStore implements invoice.Repository with the same version
// guard semantics as the postgres repository: Update rejects a stale
// version with a conflict and increments the stored version on success.
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
}

// NewInMemoryInvoiceStore creates a new in-memory invoice store
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
	}
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Create(ctx, inv.ID, inv.Clone()); err != nil {
		return ierr.WithError(err).
			WithHint("Invoice already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || inv.Status == types.StatusDeleted {
		return nil, ierr.NewError("invoice not found").
			WithHintf("Invoice with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return inv.Clone(), nil
}

// Update applies the version-guarded write. The stored invoice must carry
// the same version as the one being written; on success both copies advance
// by one, mirroring the SQL `version = version + 1 ... WHERE version = ?`.
func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").
			Mark(ierr.ErrValidation)
	}

	stored, err := s.InMemoryStore.Get(ctx, inv.ID)
	if err != nil || stored.Status == types.StatusDeleted {
		return ierr.NewError("invoice not found").
			WithHintf("Invoice with ID %s was not found", inv.ID).
			Mark(ierr.ErrNotFound)
	}

	if stored.Version != inv.Version {
		return ierr.NewError("invoice version mismatch").
			WithHint("The invoice was modified by another request").
			WithReportableDetails(map[string]any{
				"supplied_version": inv.Version,
				"current_version":  stored.Version,
			}).
			Mark(ierr.ErrVersionConflict)
	}

	updated := inv.Clone()
	updated.Version++
	if err := s.InMemoryStore.Update(ctx, inv.ID, updated); err != nil {
		return ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	inv.Version++
	return nil
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	invoices, err := s.InMemoryStore.List(ctx, filter, invoiceFilterFn, invoiceSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(invoices, func(inv *invoice.Invoice, _ int) *invoice.Invoice {
		return inv.Clone()
	}), nil
}

func (s *InMemoryInvoiceStore) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, invoiceFilterFn)
}

func (s *InMemoryInvoiceStore) GetByIdempotencyKey(ctx context.Context, key string) (*invoice.Invoice, error) {
	invoices, err := s.InMemoryStore.List(ctx, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	for _, inv := range invoices {
		if inv.IdempotencyKey != nil && *inv.IdempotencyKey == key && inv.Status != types.StatusDeleted {
			return inv.Clone(), nil
		}
	}
	return nil, ierr.NewError("invoice not found").
		WithHint("No invoice exists for this idempotency key").
		Mark(ierr.ErrNotFound)
}

func invoiceFilterFn(ctx context.Context, inv *invoice.Invoice, filter interface{}) bool {
	if inv == nil || inv.Status == types.StatusDeleted {
		return false
	}
	if tenantID := types.GetTenantID(ctx); tenantID != "" && inv.TenantID != tenantID {
		return false
	}

	f, ok := filter.(*types.InvoiceFilter)
	if !ok || f == nil {
		return true
	}

	if f.GuestID != "" && inv.GuestID != f.GuestID {
		return false
	}
	if f.ReservationID != "" && (inv.ReservationID == nil || *inv.ReservationID != f.ReservationID) {
		return false
	}
	if len(f.InvoiceStatus) > 0 && !lo.Contains(f.InvoiceStatus, inv.InvoiceStatus) {
		return false
	}
	if f.DueBefore != nil && (inv.DueDate == nil || !inv.DueDate.Before(*f.DueBefore)) {
		return false
	}
	if f.DueAfter != nil && (inv.DueDate == nil || !inv.DueDate.After(*f.DueAfter)) {
		return false
	}
	return true
}

func invoiceSortFn(i, j *invoice.Invoice) bool {
	return i.CreatedAt.After(j.CreatedAt)
}
