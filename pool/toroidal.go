package pool

import "math/big"

// Category partitions a pool's tokens into the stable subset (traded on the
// superellipse arc) and the volatile pair (traded on the circular, u=2 arc).
// Pools that mix both use the toroidal path for swaps crossing categories
// (spec §4.1 "Toroidal mode").
type Category int

const (
	CategoryStable Category = iota
	CategoryVolatile
)

const toroidalMaxIterations = 32

// crossesCategory reports whether a swap between i and j must take the
// composed toroidal path rather than a single superellipse arc.
func (p *Pool) crossesCategory(i, j int) bool {
	if len(p.categories) == 0 {
		return false
	}
	return p.categories[i] != p.categories[j]
}

// bisectSign classifies a WAD fixed-point value as negative or
// non-negative, mirroring math.Signbit's two-way split for the bisection
// below (an exact zero crossing is vanishingly unlikely in WAD terms and is
// treated the same as a positive crossing, as in the float64 original).
func bisectSign(x *big.Int) bool {
	return x.Sign() < 0
}

// toroidalOut splits effectiveIn between the stable-subset arc (exponent u)
// and the volatile-pair arc (exponent 2) by bisecting the split ratio p in
// [0, 1] (WAD fixed point) so the two legs imply the same marginal price at
// token j — the split minimizing the L² distance between the projected
// post-trade reserves and the combined invariant surface (spec §4.1).
// Bounded to toroidalMaxIterations.
func toroidalOut(reserves []*big.Int, i, j int, u int, k, effectiveIn *big.Int, maxNewton int) (out *big.Int, finalReserves []*big.Int, err error) {
	legOutput := func(pWad *big.Int) (*big.Int, error) {
		trial := cloneReserves(reserves)
		trial[i] = new(big.Int).Add(trial[i], wadMul(pWad, effectiveIn))
		rj, solveErr := solveForReserve(trial, j, u, k, maxNewton)
		if solveErr != nil {
			return nil, solveErr
		}
		trial[j] = rj
		return new(big.Int).Sub(reserves[j], rj), nil
	}

	// f(p) compares the marginal output rate implied by routing the full
	// amount through the stable arc (p=1) against routing it through the
	// pure circular pair arc (p=0); bisect for the crossover point.
	f := func(pWad *big.Int) (*big.Int, error) {
		stableOut, err := legOutput(pWad)
		if err != nil {
			return nil, err
		}
		volatileOut, err := legOutput(new(big.Int).Sub(wadOne, pWad))
		if err != nil {
			return nil, err
		}
		return new(big.Int).Sub(stableOut, volatileOut), nil
	}

	lo, hi := big.NewInt(0), new(big.Int).Set(wadOne)
	fLo, err := f(lo)
	if err != nil {
		return nil, nil, err
	}
	fHi, err := f(hi)
	if err != nil {
		return nil, nil, err
	}

	var mid *big.Int
	if bisectSign(fLo) == bisectSign(fHi) {
		// No sign change: the split with the larger magnitude output wins
		// outright rather than bisecting toward a crossover that doesn't
		// exist in range.
		if wadAbs(fLo).Cmp(wadAbs(fHi)) <= 0 {
			mid = big.NewInt(0)
		} else {
			mid = new(big.Int).Set(wadOne)
		}
	} else {
		for iter := 0; iter < toroidalMaxIterations; iter++ {
			mid = new(big.Int).Add(lo, hi)
			mid.Quo(mid, big.NewInt(2))
			fMid, err := f(mid)
			if err != nil {
				return nil, nil, err
			}
			if bisectSign(fMid) == bisectSign(fLo) {
				lo = mid
			} else {
				hi = mid
			}
		}
		mid = new(big.Int).Add(lo, hi)
		mid.Quo(mid, big.NewInt(2))
	}

	trial := cloneReserves(reserves)
	trial[i] = new(big.Int).Add(trial[i], wadMul(mid, effectiveIn))
	rj, err := solveForReserve(trial, j, u, k, maxNewton)
	if err != nil {
		return nil, nil, err
	}
	trial[j] = rj
	return new(big.Int).Sub(reserves[j], rj), trial, nil
}
