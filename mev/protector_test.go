package mev

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitintent/core/pool"
	"github.com/orbitintent/core/types"
)

func newGuardedPool(t *testing.T) (*pool.Pool, *Protector) {
	t.Helper()
	tok0, tok1, tok2 := testAddr(20), testAddr(21), testAddr(22)
	p, err := pool.New(pool.Config{
		ID:              types.Hash{9},
		Tokens:          []types.Address{tok0, tok1, tok2},
		InitialReserves: []*types.U256{types.U256FromUint64(1_000_000), types.U256FromUint64(1_000_000), types.U256FromUint64(1_000_000)},
		RadiusSquared:   types.U256FromUint64(3_000_000),
		SuperellipseU:   2,
	})
	require.NoError(t, err)

	protector := NewProtector(
		NewCommitRevealStore(CommitRevealConfig{}),
		NewTWAPGuard(DefaultMaxDeviationBp),
		NewSandwichGuard(SandwichGuardConfig{WindowBlocks: 3, CooldownBlocks: 10}),
		NewBatcher(DefaultBatchWindow),
	)
	protector.RegisterPool(p.ID, p)
	p.SetGuard(protector)
	return p, protector
}

// S4 through the real Swap path: A's bracketing second swap is rejected,
// B's swap in between succeeds.
func TestProtectorBlocksSandwichThroughSwap(t *testing.T) {
	p, _ := newGuardedPool(t)
	tok0, tok1 := testAddr(20), testAddr(21)
	traderA, traderB := testAddr(1), testAddr(2)

	base := time.Unix(1_700_000_000, 0)
	_, err := p.Swap(tok0, tok1, types.U256FromUint64(1_000), types.U256FromUint64(1), traderA, base)
	require.NoError(t, err)

	_, err = p.Swap(tok0, tok1, types.U256FromUint64(500), types.U256FromUint64(1), traderB, base.Add(1*time.Second))
	require.NoError(t, err)

	_, err = p.Swap(tok1, tok0, types.U256FromUint64(500), types.U256FromUint64(1), traderA, base.Add(2*time.Second))
	assert.Error(t, err)
}
