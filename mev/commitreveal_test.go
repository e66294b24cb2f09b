package mev

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/orbitintent/core/infrastructure/errors"
	"github.com/orbitintent/core/infrastructure/state"
	"github.com/orbitintent/core/types"
)

func testAddr(b byte) types.Address {
	var a types.Address
	a[19] = b
	return a
}

func TestRevealTooEarly(t *testing.T) {
	s := NewCommitRevealStore(CommitRevealConfig{MinDelayBlocks: 2, ExpiryBlocks: 20})
	trader := testAddr(1)
	fields := []byte("swap:0->1:10000")
	hash := HashFields(fields)

	_, err := s.Commit(trader, hash, 100)
	require.NoError(t, err)

	_, err = s.Reveal(trader, hash, fields, 101)
	ce, ok := coreerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, coreerrors.RevealTooEarly, ce.Kind)

	_, err = s.Reveal(trader, hash, fields, 102)
	require.NoError(t, err)
}

// S5 — commit without reveal expires.
func TestCommitmentExpiresThenResubmits(t *testing.T) {
	s := NewCommitRevealStore(CommitRevealConfig{MinDelayBlocks: 2, ExpiryBlocks: 20})
	trader := testAddr(1)
	fields := []byte("swap:0->1:10000")
	hash := HashFields(fields)

	_, err := s.Commit(trader, hash, 100)
	require.NoError(t, err)

	_, err = s.Reveal(trader, hash, fields, 121)
	ce, ok := coreerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, coreerrors.CommitmentExpired, ce.Kind)

	_, err = s.Commit(trader, hash, 130)
	require.NoError(t, err)
	_, err = s.Reveal(trader, hash, fields, 132)
	require.NoError(t, err)
}

func TestRevealRejectsMismatchedFields(t *testing.T) {
	s := NewCommitRevealStore(CommitRevealConfig{})
	trader := testAddr(1)
	hash := HashFields([]byte("original"))
	_, err := s.Commit(trader, hash, 100)
	require.NoError(t, err)

	_, err = s.Reveal(trader, hash, []byte("tampered"), 103)
	ce, ok := coreerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, coreerrors.InvalidReveal, ce.Kind)
}

func TestConsumeOnlyOnceAfterReveal(t *testing.T) {
	s := NewCommitRevealStore(CommitRevealConfig{})
	trader := testAddr(1)
	fields := []byte("swap")
	hash := HashFields(fields)
	_, _ = s.Commit(trader, hash, 100)
	_, err := s.Reveal(trader, hash, fields, 103)
	require.NoError(t, err)

	require.NoError(t, s.Consume(trader, hash))
	assert.Error(t, s.Consume(trader, hash))
}

// A store backed by a PersistenceBackend survives being rebuilt from
// scratch: a fresh store pointed at the same backend and Restore()d sees
// the same outstanding commitment the original store wrote.
func TestCommitRevealStoreRestoresFromBackend(t *testing.T) {
	backend := state.NewMemoryBackend(0)
	ctx := context.Background()

	s, err := NewCommitRevealStoreWithBackend(CommitRevealConfig{MinDelayBlocks: 2, ExpiryBlocks: 20}, backend)
	require.NoError(t, err)

	trader := testAddr(7)
	fields := []byte("swap:0->1:5000")
	hash := HashFields(fields)
	_, err = s.Commit(trader, hash, 100)
	require.NoError(t, err)

	restored, err := NewCommitRevealStoreWithBackend(CommitRevealConfig{MinDelayBlocks: 2, ExpiryBlocks: 20}, backend)
	require.NoError(t, err)
	require.NoError(t, restored.Restore(ctx))

	_, err = restored.Reveal(trader, hash, fields, 103)
	require.NoError(t, err)

	// The restored, revealed commitment can be consumed exactly once, as on
	// the original store, proving its state carried over.
	require.NoError(t, restored.Consume(trader, hash))
	assert.Error(t, restored.Consume(trader, hash))
}
