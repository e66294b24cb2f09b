// Package pool implements the Orbital Pool Engine (spec §4.1): an
// N-dimensional spherical/toroidal invariant Σ rᵢ^u = K with
// concentrated-liquidity ticks, a dynamic fee model, and TWAP tracking.
package pool

import (
	"math/big"
	"sync"
	"time"

	coreerrors "github.com/orbitintent/core/infrastructure/errors"
	"github.com/orbitintent/core/types"
)

// ToleranceBp is the default maximum allowed invariant residual, in basis
// points of K (spec §8 property 1).
const ToleranceBp = 10

// MinTokens and MaxTokens bound the pool's token list size (spec §3).
const (
	MinTokens = 3
	MaxTokens = 1000
)

// SwapReceipt is returned by a successful Swap (spec §4.1).
type SwapReceipt struct {
	AmountOut       *types.U256
	FeePaid         *types.U256
	TicksCrossed    int
	NewReservesHash types.Hash
}

// Pool is the Orbital Pool Engine's mutable state (spec §3). Mutation of
// reserves and ticks is serialized by mu. Swap holds the write lock for its
// whole computation, not only the mutation step, and Quote holds the read
// lock for its whole computation; quotes are not lock-free.
type Pool struct {
	ID types.Hash

	mu sync.RWMutex

	tokens        []types.Address
	tokenIndex    map[types.Address]int
	reserves      []*types.U256
	radiusSquared *types.U256
	superellipseU int // u >= 2; 2 means the pure spherical invariant

	categories []Category // empty means every token is on the single superellipse arc

	ticks []*Tick

	fee FeeState

	twap *twapBuffer

	maxNewtonIterations int
	toleranceBp         int

	guard Guard
}

// Config configures a new Pool.
type Config struct {
	ID                  types.Hash
	Tokens              []types.Address
	InitialReserves     []*types.U256
	RadiusSquared       *types.U256
	SuperellipseU       int
	Categories          []Category // optional; enables the toroidal path when set
	FeeConfig           FeeConfig
	TWAPWindow          time.Duration
	MaxNewtonIterations int
	ToleranceBp         int
}

// New constructs a Pool from Config, validating the token/reserve
// invariants of spec §3.
func New(cfg Config) (*Pool, error) {
	n := len(cfg.Tokens)
	if n < MinTokens || n > MaxTokens {
		return nil, coreerrors.ValidationError("tokens", "pool must have between 3 and 1000 tokens")
	}
	if len(cfg.InitialReserves) != n {
		return nil, coreerrors.ValidationError("reserves", "one reserve required per token")
	}
	if len(cfg.Categories) != 0 && len(cfg.Categories) != n {
		return nil, coreerrors.ValidationError("categories", "one category required per token when set")
	}
	if cfg.SuperellipseU < 2 {
		cfg.SuperellipseU = 2
	}
	if cfg.MaxNewtonIterations <= 0 {
		cfg.MaxNewtonIterations = 64
	}
	if cfg.ToleranceBp <= 0 {
		cfg.ToleranceBp = ToleranceBp
	}
	if cfg.TWAPWindow <= 0 {
		cfg.TWAPWindow = 30 * time.Minute
	}

	idx := make(map[types.Address]int, n)
	reserves := make([]*types.U256, n)
	for i, tok := range cfg.Tokens {
		if _, dup := idx[tok]; dup {
			return nil, coreerrors.ValidationError("tokens", "duplicate token in pool")
		}
		idx[tok] = i
		reserves[i] = new(types.U256).Set(cfg.InitialReserves[i])
	}

	p := &Pool{
		ID:                  cfg.ID,
		tokens:              append([]types.Address(nil), cfg.Tokens...),
		tokenIndex:          idx,
		reserves:            reserves,
		radiusSquared:       new(types.U256).Set(cfg.RadiusSquared),
		superellipseU:       cfg.SuperellipseU,
		categories:          append([]Category(nil), cfg.Categories...),
		fee:                 newFeeState(cfg.FeeConfig),
		twap:                newTWAPBuffer(cfg.TWAPWindow),
		maxNewtonIterations: cfg.MaxNewtonIterations,
		toleranceBp:         cfg.ToleranceBp,
	}
	return p, nil
}

// TokenIndex returns the pool-internal index of a token, or an error if the
// token is not part of this pool.
func (p *Pool) TokenIndex(tok types.Address) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	i, ok := p.tokenIndex[tok]
	if !ok {
		return 0, coreerrors.New(coreerrors.InvalidToken, "token not part of pool").WithDetail("token", tok.Hex())
	}
	return i, nil
}

// reservesSnapshot returns a WAD fixed-point view of current reserves for
// computation; the Newton solver and invariant math operate on this exact,
// bounded-precision integer representation (spec §4.1, §9), while reserve
// storage itself stays U256.
func (p *Pool) reservesSnapshot() []*big.Int {
	out := make([]*big.Int, len(p.reserves))
	for i, r := range p.reserves {
		out[i] = wadFromU256(r)
	}
	return out
}

// Reserves returns a copy of the current U256 reserves.
func (p *Pool) Reserves() []*types.U256 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*types.U256, len(p.reserves))
	for i, r := range p.reserves {
		out[i] = new(types.U256).Set(r)
	}
	return out
}

// reservesHash content-hashes the current reserves (used for SwapReceipt's
// new_reserves_hash).
func (p *Pool) reservesHash() types.Hash {
	buf := make([]byte, 0, 32*len(p.reserves))
	for _, r := range p.reserves {
		buf = types.PutU256BE(buf, r)
	}
	return hashBytes(buf)
}

// Stats is a read-only snapshot for introspection (teacher's stats-snapshot
// pattern): reserves, current fee, and TWAP window — never a mutation path.
type Stats struct {
	Reserves   []*types.U256
	FeeBp      int
	TWAPWindow time.Duration
}

func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	reserves := make([]*types.U256, len(p.reserves))
	for i, r := range p.reserves {
		reserves[i] = new(types.U256).Set(r)
	}
	return Stats{
		Reserves:   reserves,
		FeeBp:      p.fee.currentBp,
		TWAPWindow: p.twap.window,
	}
}
