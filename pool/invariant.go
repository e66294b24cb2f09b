package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/orbitintent/core/types"
)

func hashBytes(b []byte) types.Hash {
	return types.Hash(crypto.Keccak256Hash(b))
}

// invariantK computes Σ rᵢ^u for the given WAD fixed-point reserves and
// integer exponent u (spec §4.1, §9).
func invariantK(reserves []*big.Int, u int) *big.Int {
	sum := new(big.Int)
	for _, r := range reserves {
		sum.Add(sum, wadPow(r, u))
	}
	return sum
}

// residualBp returns |Σrᵢ^u - K| / K in basis points, as an exact integer.
func residualBp(reserves []*big.Int, u int, k *big.Int) int {
	if k.Sign() == 0 {
		return 0
	}
	actual := invariantK(reserves, u)
	diff := new(big.Int).Sub(actual, k)
	diff.Abs(diff)
	diff.Mul(diff, big.NewInt(10_000))
	diff.Quo(diff, k)
	return int(diff.Int64())
}

// solveForReserve solves Σₖ (rₖ')^u = K for the single unknown r_j given
// every other reserve held fixed, using Newton's method in WAD fixed point,
// bounded by maxIterations. It returns an error if the interior term would
// be non-positive (spec §4.1: "reject inputs that would make the interior
// term non-positive").
func solveForReserve(reserves []*big.Int, j int, u int, k *big.Int, maxIterations int) (*big.Int, error) {
	fixedSum := new(big.Int)
	for i, r := range reserves {
		if i == j {
			continue
		}
		fixedSum.Add(fixedSum, wadPow(r, u))
	}

	interior := new(big.Int).Sub(k, fixedSum)
	if interior.Sign() <= 0 {
		return nil, errNonPositiveInterior
	}

	// Newton's method is seeded from the pool's current reserve for token j
	// rather than a closed-form interior^(1/u) guess: a swap perturbs the
	// invariant only slightly, so the pre-trade reserve already sits close
	// to the root, and unlike a closed-form guess it needs no fixed-point
	// nth-root bootstrap.
	x := new(big.Int).Set(reserves[j])
	if x.Sign() <= 0 {
		return nil, errNonPositiveInterior
	}

	uWad := new(big.Int).Mul(big.NewInt(int64(u)), wadScale)
	for iter := 0; iter < maxIterations; iter++ {
		fx := new(big.Int).Sub(wadPow(x, u), interior)
		dfx := wadMul(uWad, wadPow(x, u-1))
		if dfx.Sign() == 0 {
			break
		}
		step := wadDiv(fx, dfx)
		next := new(big.Int).Sub(x, step)
		if next.Sign() <= 0 {
			break
		}
		delta := new(big.Int).Sub(next, x)
		delta.Abs(delta)
		// Converged once the step is smaller than 1e-12 of x, matching the
		// teacher's relative-tolerance stopping rule.
		bound := new(big.Int).Quo(x, big.NewInt(1_000_000_000_000))
		if delta.Cmp(bound) < 0 {
			x = next
			break
		}
		x = next
	}

	return x, nil
}
