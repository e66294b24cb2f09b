package pool

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitintent/core/types"
)

func testAddr(b byte) types.Address {
	var a types.Address
	a[19] = b
	return a
}

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	tok0, tok1, tok2 := testAddr(1), testAddr(2), testAddr(3)
	p, err := New(Config{
		ID:              types.Hash{1},
		Tokens:          []types.Address{tok0, tok1, tok2},
		InitialReserves: []*types.U256{u64(1_000_000), u64(1_000_000), u64(1_000_000)},
		RadiusSquared:   u64(3_000_000),
		SuperellipseU:   2,
		FeeConfig:       FeeConfig{BaseBp: 30, MinBp: 5, MaxBp: 100},
	})
	require.NoError(t, err)
	return p
}

func u64(v uint64) *types.U256 { return types.U256FromUint64(v) }

// S1 — happy swap, same chain (spec §8).
func TestSwapHappyPathS1(t *testing.T) {
	p := newTestPool(t)
	tok0, tok1 := testAddr(1), testAddr(2)

	receipt, err := p.Swap(tok0, tok1, u64(10_000), u64(1), testAddr(9), time.Unix(1000, 0))
	require.NoError(t, err)

	out := receipt.AmountOut.Uint64()
	assert.GreaterOrEqual(t, out, uint64(9_960))
	assert.LessOrEqual(t, out, uint64(9_975))

	reserves := p.reservesSnapshot()
	startK := invariantK([]*big.Int{wadUnits(1_000_000), wadUnits(1_000_000), wadUnits(1_000_000)}, p.superellipseU)
	residual := residualBp(reserves, p.superellipseU, startK)
	assert.LessOrEqual(t, residual, ToleranceBp)
}

func wadUnits(v int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), wadScale)
}

func TestSwapRejectsZeroAmountWithoutStateChange(t *testing.T) {
	p := newTestPool(t)
	before := p.Reserves()

	_, err := p.Swap(testAddr(1), testAddr(2), u64(0), u64(0), testAddr(9), time.Unix(1000, 0))
	require.Error(t, err)

	after := p.Reserves()
	for i := range before {
		assert.Equal(t, before[i].Uint64(), after[i].Uint64())
	}
}

func TestSwapInsufficientLiquidityWhenOutputWouldDrainReserve(t *testing.T) {
	p := newTestPool(t)
	_, err := p.Swap(testAddr(1), testAddr(2), u64(999_999_999), u64(0), testAddr(9), time.Unix(1000, 0))
	require.Error(t, err)
}

func TestSwapEnforcesMinOutSlippage(t *testing.T) {
	p := newTestPool(t)
	_, err := p.Swap(testAddr(1), testAddr(2), u64(10_000), u64(1_000_000), testAddr(9), time.Unix(1000, 0))
	require.Error(t, err)
}

func TestQuoteDoesNotMutateState(t *testing.T) {
	p := newTestPool(t)
	before := p.Reserves()

	_, err := p.Quote(testAddr(1), testAddr(2), u64(10_000))
	require.NoError(t, err)

	after := p.Reserves()
	for i := range before {
		assert.Equal(t, before[i].Uint64(), after[i].Uint64())
	}
}

func TestSwapRejectsUnknownToken(t *testing.T) {
	p := newTestPool(t)
	_, err := p.Swap(testAddr(99), testAddr(2), u64(10_000), u64(0), testAddr(9), time.Unix(1000, 0))
	require.Error(t, err)
}

func TestSwapPushesTWAPObservation(t *testing.T) {
	p := newTestPool(t)
	now := time.Unix(1000, 0)
	_, err := p.Swap(testAddr(1), testAddr(2), u64(10_000), u64(1), testAddr(9), now)
	require.NoError(t, err)

	price, ok := p.LatestPrice()
	require.True(t, ok)
	assert.Greater(t, price, 0.0)
}

func TestAddTickRejectsOverlap(t *testing.T) {
	p := newTestPool(t)
	require.NoError(t, p.AddTick(0, 100, map[int]float64{0: 500}))
	err := p.AddTick(50, 150, map[int]float64{0: 500})
	assert.ErrorIs(t, err, ErrInvalidTickRange)
}

func TestGuardRejectsSwap(t *testing.T) {
	p := newTestPool(t)
	p.SetGuard(denyGuard{})
	_, err := p.Swap(testAddr(1), testAddr(2), u64(10_000), u64(1), testAddr(9), time.Unix(1000, 0))
	require.Error(t, err)
}

type denyGuard struct{}

var errDenied = errors.New("denied")

func (denyGuard) CheckSwap(types.Hash, types.Address, types.Address, types.Address, *types.U256, time.Time) error {
	return errDenied
}
