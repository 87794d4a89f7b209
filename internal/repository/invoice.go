package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/clubledger/clubledger/internal/domain/invoice"
	ierr "github.com/clubledger/clubledger/internal/errors"
	"github.com/clubledger/clubledger/internal/logger"
	"github.com/clubledger/clubledger/internal/postgres"
	"github.com/clubledger/clubledger/internal/types"
	"github.com/jmoiron/sqlx"
)

type invoiceRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewInvoiceRepository creates a postgres-backed invoice repository
func NewInvoiceRepository(db postgres.IClient, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{
		db:     db,
		logger: logger,
	}
}

const invoiceColumns = `
	id, invoice_number, guest_id, reservation_id, currency,
	subtotal, discount, tax, service_charge, total, amount_paid, balance_due,
	invoice_status, description, due_date, paid_at, cancelled_at,
	cancellation_reason, idempotency_key, metadata, version,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

const lineItemColumns = `
	id, invoice_id, service_code, description, quantity, unit_price, amount,
	currency, tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	q := r.db.Querier(ctx)

	query := fmt.Sprintf(`
		INSERT INTO invoices (%s) VALUES (
			:id, :invoice_number, :guest_id, :reservation_id, :currency,
			:subtotal, :discount, :tax, :service_charge, :total, :amount_paid, :balance_due,
			:invoice_status, :description, :due_date, :paid_at, :cancelled_at,
			:cancellation_reason, :idempotency_key, :metadata, :version,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`, invoiceColumns)

	if _, err := sqlx.NamedExecContext(ctx, q, query, inv); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("An invoice with this idempotency key already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create invoice").
			Mark(ierr.ErrDatabase)
	}

	for _, item := range inv.LineItems {
		if err := r.insertLineItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (r *invoiceRepository) insertLineItem(ctx context.Context, item *invoice.LineItem) error {
	q := r.db.Querier(ctx)

	query := fmt.Sprintf(`
		INSERT INTO invoice_line_items (%s) VALUES (
			:id, :invoice_id, :service_code, :description, :quantity, :unit_price, :amount,
			:currency, :tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`, lineItemColumns)

	if _, err := sqlx.NamedExecContext(ctx, q, query, item); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create invoice line item").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	q := r.db.Querier(ctx)

	var inv invoice.Invoice
	query := fmt.Sprintf(
		`SELECT %s FROM invoices WHERE id = $1 AND tenant_id = $2 AND status != $3`,
		invoiceColumns,
	)
	err := sqlx.GetContext(ctx, q, &inv, query, id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("invoice not found").
				WithHintf("Invoice %s does not exist", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice").
			Mark(ierr.ErrDatabase)
	}

	items, err := r.getLineItems(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.LineItems = items
	return &inv, nil
}

func (r *invoiceRepository) getLineItems(ctx context.Context, invoiceID string) ([]*invoice.LineItem, error) {
	q := r.db.Querier(ctx)

	var items []*invoice.LineItem
	query := fmt.Sprintf(
		`SELECT %s FROM invoice_line_items WHERE invoice_id = $1 AND status != $2 ORDER BY created_at`,
		lineItemColumns,
	)
	if err := sqlx.SelectContext(ctx, q, &items, query, invoiceID, types.StatusDeleted); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice line items").
			Mark(ierr.ErrDatabase)
	}
	return items, nil
}

// Update persists a mutated invoice guarded by its pre-mutation version.
// Zero affected rows means another writer got there first (version conflict)
// or the invoice is gone (not found).
func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	q := r.db.Querier(ctx)

	query := `
		UPDATE invoices SET
			subtotal = :subtotal,
			discount = :discount,
			tax = :tax,
			service_charge = :service_charge,
			total = :total,
			amount_paid = :amount_paid,
			balance_due = :balance_due,
			invoice_status = :invoice_status,
			description = :description,
			due_date = :due_date,
			paid_at = :paid_at,
			cancelled_at = :cancelled_at,
			cancellation_reason = :cancellation_reason,
			metadata = :metadata,
			version = version + 1,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND version = :version`

	result, err := sqlx.NamedExecContext(ctx, q, query, inv)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update invoice").
			Mark(ierr.ErrDatabase)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update invoice").
			Mark(ierr.ErrDatabase)
	}

	if affected == 0 {
		// Distinguish a stale version from a missing row
		if _, getErr := r.Get(ctx, inv.ID); getErr != nil {
			return getErr
		}
		return ierr.NewError("invoice version conflict").
			WithHint("The invoice was modified by another user").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"version":    inv.Version,
			}).
			Mark(ierr.ErrVersionConflict)
	}

	inv.Version++
	return nil
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	q := r.db.Querier(ctx)

	where, args := buildInvoiceWhere(ctx, filter)
	query := fmt.Sprintf(`SELECT %s FROM invoices %s ORDER BY created_at DESC`, invoiceColumns, where)
	if !filter.IsUnlimited() {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.GetLimit(), filter.GetOffset())
	}

	var invoices []*invoice.Invoice
	if err := sqlx.SelectContext(ctx, q, &invoices, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}
	return invoices, nil
}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	q := r.db.Querier(ctx)

	where, args := buildInvoiceWhere(ctx, filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM invoices %s`, where)

	var count int
	if err := sqlx.GetContext(ctx, q, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count invoices").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *invoiceRepository) GetByIdempotencyKey(ctx context.Context, key string) (*invoice.Invoice, error) {
	q := r.db.Querier(ctx)

	var inv invoice.Invoice
	query := fmt.Sprintf(
		`SELECT %s FROM invoices WHERE idempotency_key = $1 AND tenant_id = $2 AND status != $3`,
		invoiceColumns,
	)
	err := sqlx.GetContext(ctx, q, &inv, query, key, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("invoice not found").
				WithHint("No invoice exists for this idempotency key").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice by idempotency key").
			Mark(ierr.ErrDatabase)
	}
	return &inv, nil
}

func buildInvoiceWhere(ctx context.Context, filter *types.InvoiceFilter) (string, []interface{}) {
	conditions := []string{"tenant_id = $1", "status != $2"}
	args := []interface{}{types.GetTenantID(ctx), types.StatusDeleted}
	next := 3

	if filter == nil {
		return "WHERE " + strings.Join(conditions, " AND "), args
	}

	if filter.GuestID != "" {
		conditions = append(conditions, fmt.Sprintf("guest_id = $%d", next))
		args = append(args, filter.GuestID)
		next++
	}
	if filter.ReservationID != "" {
		conditions = append(conditions, fmt.Sprintf("reservation_id = $%d", next))
		args = append(args, filter.ReservationID)
		next++
	}
	if len(filter.InvoiceStatus) > 0 {
		placeholders := make([]string, len(filter.InvoiceStatus))
		for i, status := range filter.InvoiceStatus {
			placeholders[i] = fmt.Sprintf("$%d", next)
			args = append(args, status)
			next++
		}
		conditions = append(conditions, fmt.Sprintf("invoice_status IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.DueBefore != nil {
		conditions = append(conditions, fmt.Sprintf("due_date < $%d", next))
		args = append(args, *filter.DueBefore)
		next++
	}
	if filter.DueAfter != nil {
		conditions = append(conditions, fmt.Sprintf("due_date > $%d", next))
		args = append(args, *filter.DueAfter)
		next++
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate key value")
}
