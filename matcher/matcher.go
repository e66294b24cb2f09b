// Package matcher implements the Solver Matcher (spec §4.4): given an
// intent, it consults the Reputation Registry, filters eligible solvers,
// scores the route, and picks a winner deterministically.
package matcher

import (
	"bytes"
	"time"

	coreerrors "github.com/orbitintent/core/infrastructure/errors"
	"github.com/orbitintent/core/reputation"
	"github.com/orbitintent/core/types"
)

// activityWindow bounds "active in the last 24h" for the activity score
// factor (spec §4.4).
const activityWindow = 24 * time.Hour

// idealExecutionTimeS is the "ideal" time against which speed is scored.
const idealExecutionTimeS = 30.0

// Request describes the route a solver must cover.
type Request struct {
	SourceChainID uint64
	DestChainID   uint64
}

// Result is the Matcher's decision: the winning solver and its score.
type Result struct {
	Solver types.Address
	Score  float64
}

// Matcher selects the winning solver for a route from the Reputation
// Registry's current snapshot.
type Matcher struct {
	registry *reputation.Registry
}

// New builds a Matcher over the given registry.
func New(registry *reputation.Registry) *Matcher {
	return &Matcher{registry: registry}
}

func isEligible(s *reputation.Solver, req Request, minStake *types.U256) bool {
	if s.Status != reputation.StatusActive {
		return false
	}
	if s.Stake.Lt(minStake) {
		return false
	}
	if len(s.Specializations) == 0 {
		return true
	}
	return s.Specializations[req.SourceChainID] && s.Specializations[req.DestChainID]
}

func specializationBonus(s *reputation.Solver, req Request) float64 {
	if len(s.Specializations) == 0 {
		return 0
	}
	if s.Specializations[req.SourceChainID] && s.Specializations[req.DestChainID] {
		return 0.2
	}
	return 0
}

func activityScore(s *reputation.Solver, now time.Time) float64 {
	if now.Sub(s.LastActive) <= activityWindow {
		return 1.0
	}
	return 0.0
}

func speedScore(s *reputation.Solver) float64 {
	if s.AvgExecutionTimeS <= 0 {
		return 0
	}
	speed := idealExecutionTimeS / s.AvgExecutionTimeS
	if speed > 1 {
		speed = 1
	}
	return speed
}

// Match picks the winning solver for req, given the route's minimum stake
// requirement. Ties break by lower solver address (deterministic).
func (m *Matcher) Match(req Request, minStake *types.U256, now time.Time) (*Result, error) {
	candidates := m.registry.Snapshot()

	var best *reputation.Solver
	var bestScore float64

	for _, s := range candidates {
		if !isEligible(s, req, minStake) {
			continue
		}
		rep := float64(s.Score(now, idealExecutionTimeS)) / float64(reputation.ScoreMax)
		score := 0.5*rep + 0.3*speedScore(s) + 0.1*specializationBonus(s, req) + 0.1*activityScore(s, now)

		switch {
		case best == nil:
			best, bestScore = s, score
		case score > bestScore:
			best, bestScore = s, score
		case score == bestScore && bytes.Compare(s.Address.Bytes(), best.Address.Bytes()) < 0:
			best, bestScore = s, score
		}
	}

	if best == nil {
		return nil, coreerrors.New(coreerrors.NotEligible, "no eligible solver for route").
			WithDetail("source_chain", req.SourceChainID).WithDetail("dest_chain", req.DestChainID)
	}

	return &Result{Solver: best.Address, Score: bestScore}, nil
}
