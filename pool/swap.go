package pool

import (
	"math/big"
	"time"

	coreerrors "github.com/orbitintent/core/infrastructure/errors"
	"github.com/orbitintent/core/types"
)

// Guard is the MEV Protector hook consulted before any Swap mutates pool
// state (spec §4.1 step 1: "check MEV Protector"). Wiring the concrete
// protector in means a pool never needs to import the mev package directly.
type Guard interface {
	CheckSwap(poolID types.Hash, trader types.Address, tokenIn, tokenOut types.Address, amountIn *types.U256, now time.Time) error
}

// noGuard is the default no-op guard for pools constructed without a MEV
// Protector wired in (e.g. in isolated pool tests).
type noGuard struct{}

func (noGuard) CheckSwap(types.Hash, types.Address, types.Address, types.Address, *types.U256, time.Time) error {
	return nil
}

// SetGuard wires a MEV Protector (or test double) into the pool's swap path.
func (p *Pool) SetGuard(g Guard) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.guard = g
}

func (p *Pool) guardOrDefault() Guard {
	if p.guard != nil {
		return p.guard
	}
	return noGuard{}
}

// Swap executes a trade against the pool's invariant (spec §4.1). It:
//  1. checks the MEV Protector guard,
//  2. computes amount_out via the invariant,
//  3. enforces amount_out >= min_out,
//  4. updates reserves (ticks are only read, to count ticks_crossed; they
//     are not modified),
//  5. pushes a TWAP observation,
//  6. returns a SwapReceipt.
//
// Any failing step leaves the pool's reserves untouched — partial swaps are
// not observable (spec §8 property).
func (p *Pool) Swap(tokenIn, tokenOut types.Address, amountIn, minOut *types.U256, trader types.Address, now time.Time) (*SwapReceipt, error) {
	if err := p.guardOrDefault().CheckSwap(p.ID, trader, tokenIn, tokenOut, amountIn, now); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	i, ok := p.tokenIndex[tokenIn]
	if !ok {
		return nil, coreerrors.New(coreerrors.InvalidToken, "token_in not part of pool").WithDetail("token", tokenIn.Hex())
	}
	j, ok := p.tokenIndex[tokenOut]
	if !ok {
		return nil, coreerrors.New(coreerrors.InvalidToken, "token_out not part of pool").WithDetail("token", tokenOut.Hex())
	}
	if amountIn == nil || amountIn.IsZero() {
		return nil, coreerrors.ValidationError("amount_in", "must be greater than zero")
	}

	reserves := p.reservesSnapshot()
	priceBefore := priceOf(reserves, i, j)

	k := invariantK(reserves, p.superellipseU)
	amountInWad := wadFromU256(amountIn)
	effectiveIn, feeAmount := p.effectiveInput(amountInWad)

	tickIdx := currentTickIndex(reserves, i, j)
	ticksCrossed := p.routeThroughTicks(tickIdx)

	var out *big.Int
	var working []*big.Int
	var err error
	if p.crossesCategory(i, j) {
		out, working, err = toroidalOut(reserves, i, j, p.superellipseU, k, effectiveIn, p.maxNewtonIterations)
		if err != nil {
			return nil, coreerrors.InsufficientLiquidityError(p.ID.Hex(), tokenOut.Hex())
		}
	} else {
		working = cloneReserves(reserves)
		working[i].Add(working[i], effectiveIn)
		rjPrime, solveErr := solveForReserve(working, j, p.superellipseU, k, p.maxNewtonIterations)
		if solveErr != nil {
			return nil, coreerrors.InsufficientLiquidityError(p.ID.Hex(), tokenOut.Hex())
		}
		if rjPrime.Sign() <= 0 || rjPrime.Cmp(working[j]) >= 0 {
			return nil, coreerrors.InsufficientLiquidityError(p.ID.Hex(), tokenOut.Hex())
		}
		out = new(big.Int).Sub(working[j], rjPrime)
		working[j] = rjPrime
	}
	if out.Sign() <= 0 {
		return nil, coreerrors.InsufficientLiquidityError(p.ID.Hex(), tokenOut.Hex())
	}
	if residual := residualBp(working, p.superellipseU, k); residual > p.toleranceBp {
		return nil, coreerrors.ConstraintViolationError(p.ID.Hex(), float64(residual))
	}

	amountOut := wadToU256(out)
	if minOut != nil && amountOut.Cmp(minOut) < 0 {
		return nil, coreerrors.SlippageExceededError(minOut.Dec(), amountOut.Dec())
	}

	// Commit: no step past this point can fail, so the pool's observable
	// state only changes once every precondition above has passed.
	p.reserves[i] = wadToU256(working[i])
	p.reserves[j] = wadToU256(working[j])

	priceAfter := priceOf(working, i, j)
	p.observeSwap(priceBefore, priceAfter, wadToFloat64(amountInWad), now)
	p.twap.push(now, priceAfter)

	return &SwapReceipt{
		AmountOut:       amountOut,
		FeePaid:         wadToU256(feeAmount),
		TicksCrossed:    ticksCrossed,
		NewReservesHash: p.reservesHash(),
	}, nil
}

// priceOf returns the post-state marginal price rⱼ/rᵢ used for TWAP and fee
// volatility observation (spec §4.1). The division itself runs in WAD fixed
// point; the result is converted to float64 only at this reporting boundary
// (spec §9 confines float64 to the volatility/TWAP reporting path, not the
// reserve or settlement arithmetic feeding it).
func priceOf(reserves []*big.Int, i, j int) float64 {
	if reserves[i].Sign() == 0 {
		return 0
	}
	return wadToFloat64(wadDiv(reserves[j], reserves[i]))
}
