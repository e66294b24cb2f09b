package pool

import (
	"math/big"

	coreerrors "github.com/orbitintent/core/infrastructure/errors"
	"github.com/orbitintent/core/types"
)

// Quote computes amount_out for a prospective swap without mutating state
// (spec §4.1): pure, observes no state mutation.
func (p *Pool) Quote(tokenIn, tokenOut types.Address, amountIn *types.U256) (*types.U256, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out, _, _, err := p.quoteLocked(tokenIn, tokenOut, amountIn)
	return out, err
}

// quoteLocked performs the invariant computation against the current
// snapshot. Caller must hold at least a read lock.
func (p *Pool) quoteLocked(tokenIn, tokenOut types.Address, amountIn *types.U256) (amountOut *types.U256, i, j int, err error) {
	i, ok := p.tokenIndex[tokenIn]
	if !ok {
		return nil, 0, 0, coreerrors.New(coreerrors.InvalidToken, "token_in not part of pool").WithDetail("token", tokenIn.Hex())
	}
	j, ok = p.tokenIndex[tokenOut]
	if !ok {
		return nil, 0, 0, coreerrors.New(coreerrors.InvalidToken, "token_out not part of pool").WithDetail("token", tokenOut.Hex())
	}
	if amountIn == nil || amountIn.IsZero() {
		return nil, i, j, coreerrors.ValidationError("amount_in", "must be greater than zero")
	}

	reserves := p.reservesSnapshot()
	k := invariantK(reserves, p.superellipseU)
	effectiveIn, _ := p.effectiveInput(wadFromU256(amountIn))

	var out *big.Int
	var final []*big.Int
	if p.crossesCategory(i, j) {
		out, final, err = toroidalOut(reserves, i, j, p.superellipseU, k, effectiveIn, p.maxNewtonIterations)
		if err != nil {
			return nil, i, j, coreerrors.InsufficientLiquidityError(p.ID.Hex(), tokenOut.Hex())
		}
	} else {
		final = cloneReserves(reserves)
		final[i].Add(final[i], effectiveIn)
		rjPrime, solveErr := solveForReserve(final, j, p.superellipseU, k, p.maxNewtonIterations)
		if solveErr != nil {
			return nil, i, j, coreerrors.InsufficientLiquidityError(p.ID.Hex(), tokenOut.Hex())
		}
		if rjPrime.Sign() <= 0 || rjPrime.Cmp(final[j]) >= 0 {
			return nil, i, j, coreerrors.InsufficientLiquidityError(p.ID.Hex(), tokenOut.Hex())
		}
		out = new(big.Int).Sub(final[j], rjPrime)
		final[j] = rjPrime
	}
	if out.Sign() <= 0 {
		return nil, i, j, coreerrors.InsufficientLiquidityError(p.ID.Hex(), tokenOut.Hex())
	}
	if residual := residualBp(final, p.superellipseU, k); residual > p.toleranceBp {
		return nil, i, j, coreerrors.ConstraintViolationError(p.ID.Hex(), float64(residual))
	}

	return wadToU256(out), i, j, nil
}
