package client

import (
	"context"

	"github.com/clubledger/clubledger/internal/api/dto"
	"github.com/clubledger/clubledger/internal/logger"
	"github.com/cockroachdb/errors"
)

// AttemptState is the terminal state of one mutation attempt
type AttemptState string

const (
	AttemptPending    AttemptState = "pending"
	AttemptConfirmed  AttemptState = "confirmed"
	AttemptConflicted AttemptState = "conflicted"
	AttemptFailed     AttemptState = "failed"
)

// Outcome describes how a mutation attempt resolved. Snapshot is the state
// the view should show afterwards: the server-confirmed state, the reloaded
// state after a conflict, or the rolled-back state after a failure.
type Outcome struct {
	State    AttemptState
	Snapshot *Snapshot
	Notice   string
	Err      error
}

// Reconciler resolves in-flight mutations against server responses. Exactly
// one of three paths runs per attempt: confirm, conflict or fail.
type Reconciler struct {
	store  *Store
	api    API
	logger *logger.Logger
}

func NewReconciler(store *Store, api API, log *logger.Logger) *Reconciler {
	return &Reconciler{store: store, api: api, logger: log}
}

// Confirm adopts the server's post-mutation figures verbatim. The
// optimistic projection is discarded even when it matches; only the server
// copy advances the version.
func (r *Reconciler) Confirm(projected *Snapshot, resp *dto.MutationResponse) *Outcome {
	confirmed := projected.Clone()
	confirmed.Total = resp.NewTotal
	confirmed.BalanceDue = resp.NewBalanceDue
	confirmed.Discount = resp.NewDiscount
	confirmed.AmountPaid = resp.AmountPaid
	confirmed.Status = resp.InvoiceStatus
	confirmed.Version = resp.Version

	r.store.Commit(confirmed)
	r.logger.Debugw("mutation confirmed",
		"invoice_id", confirmed.ID,
		"version", confirmed.Version,
	)

	return &Outcome{
		State:    AttemptConfirmed,
		Snapshot: r.store.Current(),
	}
}

// Conflict handles a version rejection: roll back the projection, then
// reload the invoice from the server. The stale and fresh copies are never
// merged; the reload replaces the snapshot wholesale.
func (r *Reconciler) Conflict(ctx context.Context, intent *Intent, cause error) *Outcome {
	r.store.Rollback()
	r.logger.Infow("mutation rejected on version conflict",
		"invoice_id", intent.InvoiceID,
		"supplied_version", intent.Version,
	)

	fresh, err := r.api.GetInvoice(ctx, intent.InvoiceID)
	if err != nil {
		// Rolled back but stale. The operator keeps a consistent view and
		// can retry the reload manually.
		r.logger.Errorw("reload after conflict failed",
			"invoice_id", intent.InvoiceID,
			"error", err,
		)
		return &Outcome{
			State:    AttemptConflicted,
			Snapshot: r.store.Current(),
			Notice:   "This invoice was modified by another user. The latest version could not be loaded; please refresh.",
			Err:      cause,
		}
	}

	r.store.Replace(fresh)
	return &Outcome{
		State:    AttemptConflicted,
		Snapshot: r.store.Current(),
		Notice:   "This invoice was modified by another user. The latest version has been loaded; please review and retry.",
		Err:      cause,
	}
}

// Fail rolls the view back to its pre-mutation state and surfaces the
// error. The snapshot afterwards is byte-for-byte the one from before the
// attempt.
func (r *Reconciler) Fail(intent *Intent, cause error) *Outcome {
	r.store.Rollback()
	r.logger.Warnw("mutation failed",
		"invoice_id", intent.InvoiceID,
		"kind", intent.Kind,
		"error", cause,
	)

	notice := "The operation could not be completed. Please try again."
	if hints := errors.GetAllHints(cause); len(hints) > 0 {
		notice = hints[0]
	}

	return &Outcome{
		State:    AttemptFailed,
		Snapshot: r.store.Current(),
		Notice:   notice,
		Err:      cause,
	}
}
