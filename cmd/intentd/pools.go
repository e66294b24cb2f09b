package main

import (
	"time"

	coreerrors "github.com/orbitintent/core/infrastructure/errors"
	"github.com/orbitintent/core/mev"
	"github.com/orbitintent/core/pool"
	"github.com/orbitintent/core/types"
)

// poolRegistry maps a source chain ID to the single Orbital pool this
// reference build runs on that chain. A real deployment would look pools up
// by (chainID, token pair) against a deployed-pools index; this build seeds
// one demo pool per chain so Execute has somewhere to quote/swap against.
type poolRegistry struct {
	byChain map[uint64]*pool.Pool
}

func newPools(guard *mev.Protector) *poolRegistry {
	chains := []uint64{1, 42161, 10, 8453}
	r := &poolRegistry{byChain: make(map[uint64]*pool.Pool)}
	for _, chainID := range chains {
		p, err := pool.New(pool.Config{
			ID:              types.Hash{byte(chainID)},
			Tokens:          demoTokens(chainID),
			InitialReserves: demoReserves(),
			RadiusSquared:   types.U256FromUint64(1_000_000_000_000),
			SuperellipseU:   2,
			FeeConfig: pool.FeeConfig{
				BaseBp: 30,
				MinBp:  5,
				MaxBp:  100,
				Window: 5 * time.Minute,
			},
			TWAPWindow:          30 * time.Minute,
			MaxNewtonIterations: 64,
			ToleranceBp:         10,
		})
		if err != nil {
			panic(err) // demo seed data; a real deployment loads pools from chain state
		}
		p.SetGuard(guard)
		r.byChain[chainID] = p
	}
	return r
}

func (r *poolRegistry) find(chainID uint64, token0, token1 types.Address) (*pool.Pool, error) {
	p, ok := r.byChain[chainID]
	if !ok {
		return nil, coreerrors.New(coreerrors.InvalidToken, "no pool on this chain").WithDetail("chain_id", chainID)
	}
	return p, nil
}

// demoTokens seeds three placeholder token addresses per chain, distinct
// per chain so pools don't collide across the map.
func demoTokens(chainID uint64) []types.Address {
	return []types.Address{
		demoToken(chainID, 1),
		demoToken(chainID, 2),
		demoToken(chainID, 3),
	}
}

func demoToken(chainID uint64, index byte) types.Address {
	var a types.Address
	a[18] = byte(chainID)
	a[19] = index
	return a
}

func demoReserves() []*types.U256 {
	return []*types.U256{
		types.U256FromUint64(1_000_000_000),
		types.U256FromUint64(1_000_000_000),
		types.U256FromUint64(1_000_000_000),
	}
}
