package client

import (
	"sync"

	ierr "github.com/clubledger/clubledger/internal/errors"
)

// Store holds the snapshot for exactly one invoice view. The owning view
// has exclusive access; concurrently open views each run their own Store,
// which is why cross-client conflicts are detected rather than prevented.
//
// While a mutation is in flight the pre-mutation snapshot is retained as a
// rollback buffer. At most one mutation may be in flight at a time.
type Store struct {
	mu       sync.Mutex
	current  *Snapshot
	rollback *Snapshot
	inFlight bool
	closed   bool
}

// NewStore creates an empty snapshot store
func NewStore() *Store {
	return &Store{}
}

// Current returns the snapshot currently visible to the view. During a
// pending mutation this is the optimistic projection.
func (s *Store) Current() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Replace installs a freshly fetched snapshot, superseding whatever was
// held before. No-op after Close.
func (s *Store) Replace(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.current = snap
	s.rollback = nil
	s.inFlight = false
}

// Begin makes the projected snapshot visible and retains the pre-mutation
// snapshot for rollback. It fails when no snapshot is loaded, when the
// store is closed, or when another mutation is still pending.
func (s *Store) Begin(projected *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ierr.NewError("snapshot store is closed").
			WithHint("The invoice view is no longer active").
			Mark(ierr.ErrInvalidOperation)
	}
	if s.current == nil {
		return ierr.NewError("no snapshot loaded").
			WithHint("Load the invoice before mutating it").
			Mark(ierr.ErrInvalidOperation)
	}
	if s.inFlight {
		return ierr.NewError("mutation already in flight").
			WithHint("Wait for the pending operation to finish").
			Mark(ierr.ErrInvalidOperation)
	}

	s.rollback = s.current.Clone()
	s.current = projected
	s.inFlight = true
	return nil
}

// Commit resolves the pending mutation with the authoritative snapshot and
// discards the rollback buffer. A late commit after Close is ignored.
func (s *Store) Commit(authoritative *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.inFlight {
		return
	}
	s.current = authoritative
	s.rollback = nil
	s.inFlight = false
}

// Rollback restores the pre-mutation snapshot. A late rollback after Close
// is ignored.
func (s *Store) Rollback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.inFlight {
		return
	}
	s.current = s.rollback
	s.rollback = nil
	s.inFlight = false
}

// InFlight reports whether a mutation is pending
func (s *Store) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Close detaches the store from its view. Responses arriving after Close
// must not mutate state, so every later Commit/Rollback/Replace is a no-op.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.current = nil
	s.rollback = nil
	s.inFlight = false
}
