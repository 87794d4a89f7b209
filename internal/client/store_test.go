package client

import (
	"testing"

	ierr "github.com/clubledger/clubledger/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreBeginRequiresSnapshot(t *testing.T) {
	s := NewStore()

	err := s.Begin(issuedSnapshot())
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidOperation(err))
}

func TestStoreBeginCommit(t *testing.T) {
	s := NewStore()
	s.Replace(issuedSnapshot())

	projected := issuedSnapshot()
	projected.Discount = decimal.NewFromInt(10)
	require.NoError(t, s.Begin(projected))
	assert.True(t, s.InFlight())

	// The projection is what the view sees while pending
	assert.True(t, s.Current().Discount.Equal(decimal.NewFromInt(10)))

	confirmed := issuedSnapshot()
	confirmed.Discount = decimal.NewFromInt(10)
	confirmed.Version = 4
	s.Commit(confirmed)

	assert.False(t, s.InFlight())
	assert.Equal(t, 4, s.Current().Version)
}

func TestStoreRollbackRestoresExactState(t *testing.T) {
	s := NewStore()
	original := issuedSnapshot()
	s.Replace(original.Clone())

	projected := issuedSnapshot()
	projected.Discount = decimal.NewFromInt(10)
	projected.Total = decimal.NewFromInt(98)
	require.NoError(t, s.Begin(projected))

	s.Rollback()

	assert.False(t, s.InFlight())
	assert.True(t, s.Current().Equal(original))
}

func TestStoreSingleFlight(t *testing.T) {
	s := NewStore()
	s.Replace(issuedSnapshot())

	require.NoError(t, s.Begin(issuedSnapshot()))

	err := s.Begin(issuedSnapshot())
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidOperation(err))
}

func TestStoreClosedIgnoresLateResolution(t *testing.T) {
	s := NewStore()
	s.Replace(issuedSnapshot())
	require.NoError(t, s.Begin(issuedSnapshot()))

	s.Close()

	s.Commit(issuedSnapshot())
	assert.Nil(t, s.Current())

	s.Replace(issuedSnapshot())
	assert.Nil(t, s.Current())

	err := s.Begin(issuedSnapshot())
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidOperation(err))
}

func TestStoreCurrentReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Replace(issuedSnapshot())

	got := s.Current()
	got.Discount = decimal.NewFromInt(99)

	assert.True(t, s.Current().Discount.IsZero())
}
