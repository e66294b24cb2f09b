package mev

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/orbitintent/core/infrastructure/errors"
	"github.com/orbitintent/core/types"
)

// S4 — sandwich attempt: trader A swaps 0->1, B swaps in between, A swaps
// 1->0 bracketing B's trade within the window.
func TestSandwichPatternDetected(t *testing.T) {
	g := NewSandwichGuard(SandwichGuardConfig{WindowBlocks: 3, CooldownBlocks: 10})
	poolID := testPoolID()
	traderA, traderB := testAddr(1), testAddr(2)
	tok0, tok1 := testAddr(10), testAddr(11)

	require.NoError(t, g.Check(poolID, 100, traderA, tok0, tok1))
	require.NoError(t, g.Check(poolID, 101, traderB, tok0, tok1))

	err := g.Check(poolID, 102, traderA, tok1, tok0)
	ce, ok := coreerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, coreerrors.ArbitrageDetected, ce.Kind)

	// B's own next swap is unaffected by A's lock in a different pool... but
	// within the SAME pool, B is locked out too since the cooldown is
	// pool-wide, not trader-specific (spec §4.2: "the pool is locked").
	err = g.Check(poolID, 103, traderB, tok0, tok1)
	ce, ok = coreerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, coreerrors.ArbitrageDetected, ce.Kind)
}

func TestSandwichGuardAutoUnlocksAfterCooldown(t *testing.T) {
	g := NewSandwichGuard(SandwichGuardConfig{WindowBlocks: 3, CooldownBlocks: 5})
	poolID := testPoolID()
	traderA, traderB := testAddr(1), testAddr(2)
	tok0, tok1 := testAddr(10), testAddr(11)

	require.NoError(t, g.Check(poolID, 100, traderA, tok0, tok1))
	require.NoError(t, g.Check(poolID, 101, traderB, tok0, tok1))
	require.Error(t, g.Check(poolID, 102, traderA, tok1, tok0))

	// Still within cooldown.
	require.Error(t, g.Check(poolID, 106, traderB, tok0, tok1))
	// Past cooldown (lock set at block 102+5=107).
	require.NoError(t, g.Check(poolID, 108, traderB, tok0, tok1))
}

func TestSameDirectionTradesNeverFlagged(t *testing.T) {
	g := NewSandwichGuard(SandwichGuardConfig{})
	poolID := testPoolID()
	traderA := testAddr(1)
	tok0, tok1 := testAddr(10), testAddr(11)

	require.NoError(t, g.Check(poolID, 100, traderA, tok0, tok1))
	require.NoError(t, g.Check(poolID, 101, traderA, tok0, tok1))
}

func testPoolID() types.Hash {
	var h types.Hash
	h[0] = 0xAB
	return h
}
