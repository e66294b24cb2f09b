package mev

import (
	"time"

	"github.com/orbitintent/core/types"
)

// PriceSource is the subset of *pool.Pool the Protector needs to run its
// TWAP deviation check; kept as a local interface so mev never has to
// import the pool package's concrete type.
type PriceSource interface {
	LatestPrice() (float64, bool)
	TWAP(now time.Time) (float64, bool)
}

// Protector composes the three MEV-protection sub-services into the single
// guard a Pool checks before every swap (spec §4.2, §4.1 step 1).
type Protector struct {
	CommitReveal *CommitRevealStore
	TWAPGuard    *TWAPGuard
	Sandwich     *SandwichGuard
	Batcher      *Batcher

	prices map[types.Hash]PriceSource
}

func NewProtector(commitReveal *CommitRevealStore, twap *TWAPGuard, sandwich *SandwichGuard, batcher *Batcher) *Protector {
	return &Protector{
		CommitReveal: commitReveal,
		TWAPGuard:    twap,
		Sandwich:     sandwich,
		Batcher:      batcher,
		prices:       make(map[types.Hash]PriceSource),
	}
}

// RegisterPool associates a pool's price source with its ID so CheckSwap can
// evaluate the TWAP deviation guard without the caller threading it through
// every call.
func (p *Protector) RegisterPool(poolID types.Hash, src PriceSource) {
	p.prices[poolID] = src
}

// CheckSwap implements pool.Guard: it runs the TWAP deviation guard and the
// sandwich/arbitrage guard ahead of every swap. Commit-reveal consumption is
// a separate, explicit step (CommitReveal.Consume) since not every swap is
// gated by a commitment.
func (p *Protector) CheckSwap(poolID types.Hash, trader types.Address, tokenIn, tokenOut types.Address, amountIn *types.U256, now time.Time) error {
	if src, ok := p.prices[poolID]; ok {
		current, hasCurrent := src.LatestPrice()
		twap, hasTWAP := src.TWAP(now)
		if hasCurrent && hasTWAP {
			if err := p.TWAPGuard.Check(poolID, current, twap); err != nil {
				return err
			}
		}
	}

	block := blockFromTime(now)
	return p.Sandwich.Check(poolID, block, trader, tokenIn, tokenOut)
}
