// Package reputation implements the Solver Reputation Registry (spec
// §4.4): per-solver stake, execution counters, a weighted reputation
// score, and the Probation/Active/Suspended/Slashed status machine. It is
// the sole mutator of solver state; writes are serialized per solver.
package reputation

import (
	"math"
	"time"

	"github.com/orbitintent/core/types"
)

// Status is one of the four solver lifecycle states (spec §4.4).
type Status string

const (
	StatusProbation Status = "Probation"
	StatusActive    Status = "Active"
	StatusSuspended Status = "Suspended"
	StatusSlashed   Status = "Slashed"
)

// ScoreMax is the upper bound of the 0..10000 reputation score range.
const ScoreMax = 10_000

// SlashPenalty is subtracted from the score per recorded slash (spec §4.4).
const SlashPenalty = 500

// performanceWindow bounds the performance_history ring buffer to 30 days.
const performanceWindow = 30 * 24 * time.Hour

// Outcome is one entry in a solver's performance_history ring buffer.
type Outcome struct {
	At      time.Time
	Success bool
}

// Solver is the per-solver record of spec §3. Invariant: IntentsExecuted +
// IntentsFailed <= IntentsMatched.
type Solver struct {
	Address             types.Address
	Stake               *types.U256
	IntentsMatched      uint64
	IntentsExecuted     uint64
	IntentsFailed       uint64
	AvgExecutionTimeS   float64
	Slashes             int
	Status              Status
	Specializations     map[uint64]bool // chain ids; empty means "all"
	RegisteredAt        time.Time
	LastActive          time.Time
	PerformanceHistory  []Outcome
}

// NewSolver registers a new solver in Probation with zero counters.
func NewSolver(addr types.Address, stake *types.U256, now time.Time) *Solver {
	return &Solver{
		Address:         addr,
		Stake:           stake,
		Status:          StatusProbation,
		Specializations: make(map[uint64]bool),
		RegisteredAt:    now,
		LastActive:      now,
	}
}

// SuccessRateBp returns the solver's success rate in basis points
// (IntentsExecuted / IntentsMatched), or 0 if no intents have been matched.
func (s *Solver) SuccessRateBp() int {
	if s.IntentsMatched == 0 {
		return 0
	}
	return int(float64(s.IntentsExecuted) / float64(s.IntentsMatched) * 10_000)
}

// Score computes the weighted reputation score of spec §4.4: success rate
// 40%, uptime 20%, speed 20%, volume 20%, minus 500 per slash, clamped to
// [0, 10000].
func (s *Solver) Score(now time.Time, idealTimeS float64) int {
	successRate := float64(s.SuccessRateBp()) / 10_000.0

	uptimeDays := now.Sub(s.RegisteredAt).Hours() / 24
	if uptimeDays < 0 {
		uptimeDays = 0
	}
	uptime := math.Min(uptimeDays/365.0, 1.0)

	speed := 0.0
	if s.AvgExecutionTimeS > 0 && idealTimeS > 0 {
		speed = math.Min(idealTimeS/s.AvgExecutionTimeS, 1.0)
	}

	volume := 0.0
	if s.IntentsExecuted > 0 {
		volume = math.Min(math.Log(float64(s.IntentsExecuted))/math.Log(22_000), 1.0)
	}

	weighted := 0.40*successRate + 0.20*uptime + 0.20*speed + 0.20*volume
	score := weighted*ScoreMax - float64(s.Slashes)*SlashPenalty

	return clampInt(int(math.Round(score)), 0, ScoreMax)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// pruneHistory drops outcomes older than the 30-day performance window.
func (s *Solver) pruneHistory(now time.Time) {
	cutoff := now.Add(-performanceWindow)
	kept := s.PerformanceHistory[:0]
	for _, o := range s.PerformanceHistory {
		if o.At.After(cutoff) {
			kept = append(kept, o)
		}
	}
	s.PerformanceHistory = kept
}

// recomputeStatus applies the status transitions of spec §4.4 after a
// counter/stake mutation. minStake is the registry-wide threshold below
// which a solver is Slashed.
func (s *Solver) recomputeStatus(now time.Time, minStake *types.U256) {
	if s.Stake.Lt(minStake) {
		s.Status = StatusSlashed
		return
	}
	if s.Slashes >= 3 {
		s.Status = StatusSuspended
		return
	}
	if s.Status == StatusProbation {
		daysSinceReg := now.Sub(s.RegisteredAt).Hours() / 24
		if daysSinceReg >= 7 && s.IntentsExecuted >= 10 && s.SuccessRateBp() >= 9_000 {
			s.Status = StatusActive
		}
	}
}
