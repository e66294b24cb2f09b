package pool

import (
	"math/big"
	"sort"
)

// Tick is a concentrated-liquidity band (spec §4.1): a contiguous integer
// tick-index range within which its liquidity is active. Ticks never
// overlap.
type Tick struct {
	Lower     int64
	Upper     int64
	Liquidity map[int]*tickLiquidity // token index -> amount (float64 bounded precision)
	Active    bool
}

type tickLiquidity struct {
	amount float64
}

func overlaps(a, b *Tick) bool {
	return a.Lower < b.Upper && b.Lower < a.Upper
}

// AddTick inserts a new liquidity tick, rejecting ranges that overlap an
// existing tick (spec §4.1: InvalidTickRange).
func (p *Pool) AddTick(lower, upper int64, liquidityByToken map[int]float64) error {
	if lower >= upper {
		return ErrInvalidTickRange
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	candidate := &Tick{Lower: lower, Upper: upper, Active: true, Liquidity: make(map[int]*tickLiquidity, len(liquidityByToken))}
	for tok, amt := range liquidityByToken {
		candidate.Liquidity[tok] = &tickLiquidity{amount: amt}
	}

	for _, existing := range p.ticks {
		if overlaps(existing, candidate) {
			return ErrInvalidTickRange
		}
	}

	p.ticks = append(p.ticks, candidate)
	sort.Slice(p.ticks, func(i, j int) bool { return p.ticks[i].Lower < p.ticks[j].Lower })
	return nil
}

// Ticks returns a copy of the current tick list.
func (p *Pool) Ticks() []*Tick {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Tick, len(p.ticks))
	copy(out, p.ticks)
	return out
}

// currentTickIndex derives a coarse price-dimension index from the ratio of
// reserves i to j, used to find the narrowest covering tick (spec §4.1).
func currentTickIndex(reserves []*big.Int, i, j int) int64 {
	if reserves[j].Sign() == 0 {
		return 0
	}
	ratio := wadDiv(reserves[i], reserves[j])
	// linear index: the reserve ratio in hundredths, truncated to an
	// integer.
	idx := new(big.Int).Mul(ratio, big.NewInt(100))
	idx.Quo(idx, wadScale)
	return idx.Int64()
}

// routeThroughTicks returns the ticks_crossed count for a swap at tickIdx:
// 1 if an active tick covers tickIdx, otherwise the number of ticks that do
// not contain tickIdx, and 0 if no ticks are configured. It does not route
// liquidity through ticks: tick liquidity never limits or changes a swap's
// output.
func (p *Pool) routeThroughTicks(tickIdx int64) int {
	if len(p.ticks) == 0 {
		return 0
	}

	type candidate struct {
		tick     *Tick
		width    int64
		distance int64
	}
	var covering []candidate
	for _, t := range p.ticks {
		if !t.Active {
			continue
		}
		if tickIdx >= t.Lower && tickIdx < t.Upper {
			covering = append(covering, candidate{tick: t, width: t.Upper - t.Lower})
		}
	}
	if len(covering) > 0 {
		sort.Slice(covering, func(i, j int) bool { return covering[i].width < covering[j].width })
		return 1
	}

	// No active covering tick: count every tick that does not contain tickIdx.
	crossed := 0
	for _, t := range p.ticks {
		var dist int64
		if tickIdx < t.Lower {
			dist = t.Lower - tickIdx
		} else {
			dist = tickIdx - t.Upper
		}
		if dist >= 0 {
			crossed++
		}
	}
	if crossed > len(p.ticks) {
		crossed = len(p.ticks)
	}
	return crossed
}
