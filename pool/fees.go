package pool

import (
	"math"
	"math/big"
	"time"
)

// FeeConfig bounds and seeds the dynamic fee model of spec §4.1.
type FeeConfig struct {
	BaseBp   int
	MinBp    int
	MaxBp    int
	Window   time.Duration // recompute at most once per window (default 5m)
}

// FeeState tracks the pool's current fee and the rolling samples feeding
// the volatility/volume/utilization factors.
type FeeState struct {
	currentBp int
	cfg       FeeConfig

	lastRecompute time.Time

	logReturns   []float64 // rolling log-returns sample for volatility
	recentVolume float64
	longVolume   float64
	utilization  float64 // 0..1
}

func newFeeState(cfg FeeConfig) FeeState {
	if cfg.Window <= 0 {
		cfg.Window = 5 * time.Minute
	}
	if cfg.BaseBp <= 0 {
		cfg.BaseBp = 30
	}
	if cfg.MinBp <= 0 {
		cfg.MinBp = 5
	}
	if cfg.MaxBp <= 0 {
		cfg.MaxBp = 100
	}
	return FeeState{currentBp: cfg.BaseBp, cfg: cfg}
}

// observeSwap folds a swap's price change and volume into the fee model's
// rolling samples. Must be called with the pool's write lock held.
func (p *Pool) observeSwap(priceBefore, priceAfter, volume float64, now time.Time) {
	if priceBefore > 0 && priceAfter > 0 {
		logReturn := math.Log(priceAfter / priceBefore)
		p.fee.logReturns = append(p.fee.logReturns, logReturn)
		if len(p.fee.logReturns) > 500 {
			p.fee.logReturns = p.fee.logReturns[len(p.fee.logReturns)-500:]
		}
	}
	p.fee.recentVolume += volume
	p.fee.longVolume = 0.95*p.fee.longVolume + 0.05*p.fee.recentVolume

	p.recomputeFee(now)
}

// recomputeFee applies spec §4.1's weighted fee model, at most once per
// configured window, with hysteresis on ties.
func (p *Pool) recomputeFee(now time.Time) {
	if !p.fee.lastRecompute.IsZero() && now.Sub(p.fee.lastRecompute) < p.fee.cfg.Window {
		return
	}
	p.fee.lastRecompute = now

	volatility := sampleStdDev(p.fee.logReturns) * math.Sqrt(365)
	volatilityBp := clampFloat(volatility*10_000, 0, float64(p.fee.cfg.MaxBp))

	volumeFactorBp := float64(p.fee.cfg.BaseBp)
	if p.fee.longVolume > 0 {
		ratio := p.fee.recentVolume / p.fee.longVolume
		switch {
		case ratio < 0.5:
			volumeFactorBp = float64(p.fee.cfg.MaxBp)
		case ratio > 1.5:
			volumeFactorBp = float64(p.fee.cfg.MinBp)
		default:
			volumeFactorBp = float64(p.fee.cfg.BaseBp)
		}
	}

	utilBp := utilizationFeeBp(p.fee.utilization, p.fee.cfg)

	weighted := 0.40*volatilityBp + 0.30*volumeFactorBp + 0.30*utilBp
	newBp := int(math.Round(clampFloat(weighted, float64(p.fee.cfg.MinBp), float64(p.fee.cfg.MaxBp))))

	if newBp == p.fee.currentBp {
		return // hysteresis: ties keep the previous value
	}
	p.fee.currentBp = newBp
}

// utilizationFeeBp implements the sigmoid-shaped utilization factor: <=50%
// reduces fees, 50-80% neutral, 80-100% strongly raises fees.
func utilizationFeeBp(utilization float64, cfg FeeConfig) float64 {
	switch {
	case utilization <= 0.5:
		return float64(cfg.MinBp)
	case utilization <= 0.8:
		return float64(cfg.BaseBp)
	default:
		t := (utilization - 0.8) / 0.2
		return float64(cfg.BaseBp) + t*float64(cfg.MaxBp-cfg.BaseBp)
	}
}

func sampleStdDev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(n)

	sumSq := 0.0
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// effectiveInput applies the current fee in basis points (spec §4.1:
// "effective input = amount_in * (10000 - fee_bps) / 10000") in exact WAD
// fixed-point integer arithmetic — settlement math, not the volatility
// sample, so it stays outside the float64 carve-out of spec §9.
func (p *Pool) effectiveInput(amountIn *big.Int) (effective, feeAmount *big.Int) {
	factor := big.NewInt(10_000 - int64(p.fee.currentBp))
	effective = new(big.Int).Mul(amountIn, factor)
	effective.Quo(effective, big.NewInt(10_000))
	feeAmount = new(big.Int).Sub(amountIn, effective)
	return effective, feeAmount
}
