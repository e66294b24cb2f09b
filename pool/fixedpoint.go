package pool

import (
	"math/big"

	"github.com/orbitintent/core/types"
)

// wadScale is the fixed-point scale for the Orbital invariant's reserve,
// invariant, and settlement arithmetic (spec §4.1, §9: "fixed-point integer
// arithmetic and an iterative root (Newton)"). 1e18 matches the fractional
// precision token reserves already carry on-chain, so lifting a U256 reserve
// into this representation and back never discards a digit the reserve
// itself didn't already have — unlike float64, whose 52-bit mantissa loses
// precision well before a U256 reserve near 2^256 does.
var wadScale = big.NewInt(1_000_000_000_000_000_000)

var wadOne = new(big.Int).Set(wadScale)

// wadFromU256 lifts a raw U256 reserve to WAD fixed point.
func wadFromU256(v *types.U256) *big.Int {
	return new(big.Int).Mul(v.ToBig(), wadScale)
}

// wadToU256 lowers a WAD fixed-point value back to a saturating U256,
// truncating any fractional remainder below a whole token unit and
// clamping non-positive inputs to zero.
func wadToU256(w *big.Int) *types.U256 {
	if w.Sign() <= 0 {
		return types.ZeroU256()
	}
	raw := new(big.Int).Quo(w, wadScale)
	out := new(types.U256)
	if overflow := out.SetFromBig(raw); overflow {
		return new(types.U256).SetAllOne()
	}
	return out
}

// wadToFloat64 converts a WAD value to float64 for the reporting-only paths
// that the fixed-point contract excludes from settlement math: the dynamic
// fee model's volatility sample and the TWAP price accessor (spec §9 confines
// float64 to "the stdev computation").
func wadToFloat64(w *big.Int) float64 {
	f := new(big.Float).SetInt(w)
	f.Quo(f, new(big.Float).SetInt(wadScale))
	out, _ := f.Float64()
	return out
}

func wadMul(a, b *big.Int) *big.Int {
	out := new(big.Int).Mul(a, b)
	return out.Quo(out, wadScale)
}

func wadDiv(a, b *big.Int) *big.Int {
	if b.Sign() == 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(a, wadScale)
	return out.Quo(out, b)
}

// wadPow raises a WAD fixed-point base to the integer exponent n by
// exponentiation-by-squaring. n is always the superellipse exponent u, or
// u-1 during Newton's method — always a small whole number in practice (2
// for the spherical invariant and the default, 4 for the toroidal test
// pool's superellipse; spec §4.1
// never configures a fractional exponent), so this needs no fixed-point
// ln/exp to generalize to non-integer exponents.
func wadPow(x *big.Int, n int) *big.Int {
	if n <= 0 {
		return new(big.Int).Set(wadOne)
	}
	result := new(big.Int).Set(wadOne)
	base := new(big.Int).Set(x)
	for n > 0 {
		if n&1 == 1 {
			result = wadMul(result, base)
		}
		n >>= 1
		if n > 0 {
			base = wadMul(base, base)
		}
	}
	return result
}

func wadAbs(x *big.Int) *big.Int {
	return new(big.Int).Abs(x)
}

func cloneReserves(reserves []*big.Int) []*big.Int {
	out := make([]*big.Int, len(reserves))
	for i, r := range reserves {
		out[i] = new(big.Int).Set(r)
	}
	return out
}
