package mev

import (
	"sync"
	"time"

	coreerrors "github.com/orbitintent/core/infrastructure/errors"
	"github.com/orbitintent/core/types"
)

// DefaultSandwichWindowBlocks and DefaultCooldownBlocks are spec §4.2's
// arbitrage-guard defaults.
const (
	DefaultSandwichWindowBlocks = 3
	DefaultCooldownBlocks       = 10
)

// trade is one bounded-deque entry the sandwich detector inspects.
type trade struct {
	block    uint64
	trader   types.Address
	tokenIn  types.Address
	tokenOut types.Address
}

// SandwichGuardConfig bounds the detector's window and lock duration.
type SandwichGuardConfig struct {
	WindowBlocks   uint64
	CooldownBlocks uint64
	MaxTrades      int
}

// SandwichGuard maintains, per pool, a bounded deque of recent trades and
// locks the pool for cooldown_blocks once a sandwich pattern is detected
// (spec §4.2).
type SandwichGuard struct {
	cfg SandwichGuardConfig

	mu     sync.Mutex
	trades map[types.Hash][]trade
	locks  map[types.Hash]uint64 // pool -> block the lock clears at
}

func NewSandwichGuard(cfg SandwichGuardConfig) *SandwichGuard {
	if cfg.WindowBlocks == 0 {
		cfg.WindowBlocks = DefaultSandwichWindowBlocks
	}
	if cfg.CooldownBlocks == 0 {
		cfg.CooldownBlocks = DefaultCooldownBlocks
	}
	if cfg.MaxTrades == 0 {
		cfg.MaxTrades = 256
	}
	return &SandwichGuard{
		cfg:    cfg,
		trades: make(map[types.Hash][]trade),
		locks:  make(map[types.Hash]uint64),
	}
}

// Check rejects the incoming trade if the pool is still under cooldown from
// a prior detection, and otherwise scans the recent deque for a bracketing
// sandwich pattern: the same trader submitting two opposite-direction
// trades within WindowBlocks, with at least one other trader's trade
// in between (spec §4.2). On detection the pool is locked for
// CooldownBlocks. The trade is recorded into the deque regardless of
// outcome so later checks see it.
//
// Note: Pool.Swap calls this before it takes the pool's own lock, and one
// guard may serve several pools, so Check serializes on the guard's own
// mutex.
func (g *SandwichGuard) Check(poolID types.Hash, block uint64, trader, tokenIn, tokenOut types.Address) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var detected error
	if clearBlock, locked := g.locks[poolID]; locked {
		if block < clearBlock {
			detected = coreerrors.ArbitrageDetectedError(poolID.Hex(), g.cfg.CooldownBlocks)
		} else {
			delete(g.locks, poolID)
		}
	}

	recent := g.trades[poolID]
	if detected == nil {
		for k := len(recent) - 1; k >= 0; k-- {
			t := recent[k]
			if block-t.block > g.cfg.WindowBlocks {
				break
			}
			if t.trader != trader {
				continue
			}
			opposite := t.tokenIn == tokenOut && t.tokenOut == tokenIn
			if !opposite {
				continue
			}
			bracketsOther := false
			for m := k + 1; m < len(recent); m++ {
				if recent[m].trader != trader {
					bracketsOther = true
					break
				}
			}
			if bracketsOther {
				g.locks[poolID] = block + g.cfg.CooldownBlocks
				detected = coreerrors.ArbitrageDetectedError(poolID.Hex(), g.cfg.CooldownBlocks)
				break
			}
		}
	}

	recent = append(recent, trade{block: block, trader: trader, tokenIn: tokenIn, tokenOut: tokenOut})
	if len(recent) > g.cfg.MaxTrades {
		recent = recent[len(recent)-g.cfg.MaxTrades:]
	}
	g.trades[poolID] = recent
	return detected
}

// blockFromTime derives a coarse monotonic "block number" from a wall-clock
// timestamp for pools driven purely by time.Time rather than a ChainClient's
// block height (tests, same-chain quoting). Production callers should pass
// the real chain block number instead.
func blockFromTime(now time.Time) uint64 {
	return uint64(now.Unix())
}
