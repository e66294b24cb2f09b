package matcher_test

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/orbitintent/core/matcher"
	"github.com/orbitintent/core/reputation"
	"github.com/orbitintent/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeSolver(reg *reputation.Registry, addr types.Address, now time.Time) {
	reg.Register(addr, types.U256FromUint64(100_000), now.Add(-8*24*time.Hour))
	for i := 0; i < 10; i++ {
		reg.RecordMatch(addr, now)
		reg.RecordSuccess(addr, 15, now)
	}
}

func TestMatchPicksEligibleSolver(t *testing.T) {
	reg := reputation.NewRegistry(types.U256FromUint64(1_000), types.U256FromUint64(100), 30)
	now := time.Now()
	addr := common.HexToAddress("0xaaaa")
	activeSolver(reg, addr, now)

	m := matcher.New(reg)
	res, err := m.Match(matcher.Request{SourceChainID: 1, DestChainID: 10}, types.U256FromUint64(1_000), now)
	require.NoError(t, err)
	assert.Equal(t, addr, res.Solver)
}

func TestMatchExcludesProbationSolvers(t *testing.T) {
	reg := reputation.NewRegistry(types.U256FromUint64(1_000), types.U256FromUint64(100), 30)
	now := time.Now()
	reg.Register(common.HexToAddress("0xaaaa"), types.U256FromUint64(100_000), now)

	m := matcher.New(reg)
	_, err := m.Match(matcher.Request{SourceChainID: 1, DestChainID: 10}, types.U256FromUint64(1_000), now)
	assert.Error(t, err)
}

func TestMatchTieBreaksByLowerAddress(t *testing.T) {
	reg := reputation.NewRegistry(types.U256FromUint64(1_000), types.U256FromUint64(100), 30)
	now := time.Now()
	lower := common.HexToAddress("0x0000000000000000000000000000000000000001")
	higher := common.HexToAddress("0x0000000000000000000000000000000000000002")
	activeSolver(reg, lower, now)
	activeSolver(reg, higher, now)

	m := matcher.New(reg)
	res, err := m.Match(matcher.Request{SourceChainID: 1, DestChainID: 10}, types.U256FromUint64(1_000), now)
	require.NoError(t, err)
	assert.Equal(t, lower, res.Solver)
}

func TestMatchRequiresMinStake(t *testing.T) {
	reg := reputation.NewRegistry(types.U256FromUint64(1_000), types.U256FromUint64(100), 30)
	now := time.Now()
	addr := common.HexToAddress("0xaaaa")
	activeSolver(reg, addr, now)

	m := matcher.New(reg)
	_, err := m.Match(matcher.Request{SourceChainID: 1, DestChainID: 10}, types.U256FromUint64(1_000_000), now)
	assert.Error(t, err)
}
