package invoice

import (
	"context"

	"github.com/clubledger/clubledger/internal/types"
)

// Repository defines the interface for invoice persistence operations
type Repository interface {
	// Create creates a new invoice with its line items
	Create(ctx context.Context, invoice *Invoice) error

	// Get retrieves an invoice by ID including its line items
	Get(ctx context.Context, id string) (*Invoice, error)

	// Update persists a mutated invoice. The write is guarded by the
	// invoice's pre-mutation version: when the stored version differs the
	// update fails with a version conflict and the invoice is untouched.
	// On success the stored version is the invoice's version + 1.
	Update(ctx context.Context, invoice *Invoice) error

	// List retrieves invoices based on filter criteria
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)

	// Count returns the total count of invoices based on filter criteria
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)

	// GetByIdempotencyKey retrieves the invoice created under the given key
	GetByIdempotencyKey(ctx context.Context, key string) (*Invoice, error)
}
