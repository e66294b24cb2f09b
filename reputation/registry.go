package reputation

import (
	"sync"
	"time"

	coreerrors "github.com/orbitintent/core/infrastructure/errors"
	"github.com/orbitintent/core/types"
)

// LowSuccessRateThresholdBp triggers an automatic slash on failure recording
// when the solver's success rate drops below it (spec §4.4).
const LowSuccessRateThresholdBp = 8_000

// emaAlpha is the exponential-moving-average weight used to update
// avg_execution_time_s on every successful execution (spec §4.4).
const emaAlpha = 0.2

// Registry is the Reputation Registry of spec §4.4: shared, with writes
// serialized per solver via a per-address lock.
type Registry struct {
	minStake    *types.U256
	slashAmount *types.U256
	idealTimeS  float64

	mu      sync.RWMutex
	solvers map[types.Address]*Solver
	locks   map[types.Address]*sync.Mutex
}

// NewRegistry builds a Registry with the given minimum stake, slash
// amount, and "ideal" execution time used in the speed score factor.
func NewRegistry(minStake, slashAmount *types.U256, idealTimeS float64) *Registry {
	return &Registry{
		minStake:    minStake,
		slashAmount: slashAmount,
		idealTimeS:  idealTimeS,
		solvers:     make(map[types.Address]*Solver),
		locks:       make(map[types.Address]*sync.Mutex),
	}
}

func (r *Registry) lockFor(addr types.Address) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[addr]
	if !ok {
		l = &sync.Mutex{}
		r.locks[addr] = l
	}
	return l
}

// Register adds a new solver in Probation, or is a no-op if already
// registered.
func (r *Registry) Register(addr types.Address, stake *types.U256, now time.Time) *Solver {
	lock := r.lockFor(addr)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.solvers[addr]; ok {
		return s
	}
	s := NewSolver(addr, stake, now)
	r.solvers[addr] = s
	return s
}

// Get returns a read-only snapshot copy of a solver's record.
func (r *Registry) Get(addr types.Address) (*Solver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.solvers[addr]
	if !ok {
		return nil, coreerrors.New(coreerrors.NotEligible, "solver not registered").WithDetail("solver", addr.Hex())
	}
	cp := *s
	return &cp, nil
}

// Snapshot returns a copy of every solver currently registered, used by the
// Matcher's eligibility scan.
func (r *Registry) Snapshot() []*Solver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Solver, 0, len(r.solvers))
	for _, s := range r.solvers {
		cp := *s
		out = append(out, &cp)
	}
	return out
}

// RecordMatch increments intents_matched when the Matcher assigns an
// intent to this solver.
func (r *Registry) RecordMatch(addr types.Address, now time.Time) error {
	lock := r.lockFor(addr)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.solvers[addr]
	if !ok {
		return coreerrors.New(coreerrors.NotEligible, "solver not registered").WithDetail("solver", addr.Hex())
	}
	s.IntentsMatched++
	s.LastActive = now
	return nil
}

// RecordSuccess increments intents_executed, updates the execution-time
// EMA, and recomputes status (spec §4.4).
func (r *Registry) RecordSuccess(addr types.Address, executionTimeS float64, now time.Time) error {
	lock := r.lockFor(addr)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	s, ok := r.solvers[addr]
	r.mu.Unlock()
	if !ok {
		return coreerrors.New(coreerrors.NotEligible, "solver not registered").WithDetail("solver", addr.Hex())
	}

	s.IntentsExecuted++
	s.LastActive = now
	if s.AvgExecutionTimeS == 0 {
		s.AvgExecutionTimeS = executionTimeS
	} else {
		s.AvgExecutionTimeS = emaAlpha*executionTimeS + (1-emaAlpha)*s.AvgExecutionTimeS
	}
	s.PerformanceHistory = append(s.PerformanceHistory, Outcome{At: now, Success: true})
	s.pruneHistory(now)
	s.recomputeStatus(now, r.minStake)
	return nil
}

// RecordFailure increments intents_failed and, if the success rate falls
// below the threshold, applies one automatic slash (spec §4.4).
func (r *Registry) RecordFailure(addr types.Address, now time.Time) error {
	lock := r.lockFor(addr)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	s, ok := r.solvers[addr]
	r.mu.Unlock()
	if !ok {
		return coreerrors.New(coreerrors.NotEligible, "solver not registered").WithDetail("solver", addr.Hex())
	}

	s.IntentsFailed++
	s.LastActive = now
	s.PerformanceHistory = append(s.PerformanceHistory, Outcome{At: now, Success: false})
	s.pruneHistory(now)

	if s.SuccessRateBp() < LowSuccessRateThresholdBp {
		r.applySlash(s, now)
	}
	s.recomputeStatus(now, r.minStake)
	return nil
}

// Slash deducts the configured slash amount (capped at remaining stake),
// increments the slash counter, and recomputes status.
func (r *Registry) Slash(addr types.Address, now time.Time) error {
	lock := r.lockFor(addr)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	s, ok := r.solvers[addr]
	r.mu.Unlock()
	if !ok {
		return coreerrors.New(coreerrors.NotEligible, "solver not registered").WithDetail("solver", addr.Hex())
	}
	r.applySlash(s, now)
	s.recomputeStatus(now, r.minStake)
	return nil
}

func (r *Registry) applySlash(s *Solver, now time.Time) {
	amount := r.slashAmount
	if s.Stake.Lt(amount) {
		amount = s.Stake
	}
	s.Stake = types.SubSaturating(s.Stake, amount)
	s.Slashes++
}

// Score returns the current weighted score for a solver (spec §4.4).
func (r *Registry) Score(addr types.Address, now time.Time) (int, error) {
	s, err := r.Get(addr)
	if err != nil {
		return 0, err
	}
	return s.Score(now, r.idealTimeS), nil
}

// Stats returns counts of solvers by status, following the teacher's
// stats-snapshot pattern (read-only introspection, never a mutation path).
func (r *Registry) Stats() map[Status]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[Status]int{
		StatusProbation: 0,
		StatusActive:    0,
		StatusSuspended: 0,
		StatusSlashed:   0,
	}
	for _, s := range r.solvers {
		out[s.Status]++
	}
	return out
}
