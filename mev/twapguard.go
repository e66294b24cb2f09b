package mev

import (
	"math"

	coreerrors "github.com/orbitintent/core/infrastructure/errors"
	"github.com/orbitintent/core/types"
)

// DefaultMaxDeviationBp is the default TWAP deviation bound (spec §4.2).
const DefaultMaxDeviationBp = 50

// TWAPGuard rejects a swap whose current pool price deviates from its TWAP
// beyond max_deviation_bps (spec §4.2).
type TWAPGuard struct {
	MaxDeviationBp int
}

func NewTWAPGuard(maxDeviationBp int) *TWAPGuard {
	if maxDeviationBp <= 0 {
		maxDeviationBp = DefaultMaxDeviationBp
	}
	return &TWAPGuard{MaxDeviationBp: maxDeviationBp}
}

// Check compares currentPrice to twapPrice and rejects if the deviation
// exceeds the configured bound.
func (g *TWAPGuard) Check(poolID types.Hash, currentPrice, twapPrice float64) error {
	if twapPrice == 0 {
		return nil // no history yet; nothing to deviate from
	}
	deviationBp := math.Abs(currentPrice-twapPrice) / twapPrice * 10_000
	if deviationBp > float64(g.MaxDeviationBp) {
		return coreerrors.PriceDeviationError(poolID.Hex(), deviationBp)
	}
	return nil
}
