// Package executor drives a single cross-chain swap through the seven
// phases of spec §4.5, under a global timeout, with phase-scoped retry and
// idempotent rollback.
package executor

import (
	"time"

	"github.com/orbitintent/core/intent"
	"github.com/orbitintent/core/pkg/logger"
	"github.com/orbitintent/core/types"
)

// Phase identifies one of the Executor's seven steps (spec §4.5).
type Phase int

const (
	PhaseValidate Phase = iota + 1
	PhaseMEVDelay
	PhaseLockSource
	PhaseSourceSwap
	PhaseBridgeDispatch
	PhaseAwaitDestination
	PhaseVerifyProof
)

func (p Phase) String() string {
	switch p {
	case PhaseValidate:
		return "validate"
	case PhaseMEVDelay:
		return "mev_delay"
	case PhaseLockSource:
		return "lock_source"
	case PhaseSourceSwap:
		return "source_swap"
	case PhaseBridgeDispatch:
		return "bridge_dispatch"
	case PhaseAwaitDestination:
		return "await_destination"
	case PhaseVerifyProof:
		return "verify_proof"
	default:
		return "unknown"
	}
}

// ExecutionContext is the Executor's transient, per-intent state (spec §3):
// it is owned exclusively by the Executor for the lifetime of one
// execution, never shared across concurrent runs.
type ExecutionContext struct {
	IntentID types.Hash
	TraceID  string
	Phase    Phase

	LockID          string
	BridgeMessageID types.Hash
	SourceTxHash    types.Hash
	DestTxHash      types.Hash

	StartTime time.Time

	RetryCountPerPhase map[Phase]int

	rolledBack bool // set once the saga has unwound at least one committed step
}

// RolledBack reports whether this execution has already run its rollback
// path (spec §4.5's idempotent-rollback requirement).
func (ec *ExecutionContext) RolledBack() bool { return ec.rolledBack }

func newExecutionContext(in *intent.Intent, now time.Time) *ExecutionContext {
	return &ExecutionContext{
		IntentID:           in.ID,
		TraceID:            logger.NewTraceID(),
		Phase:              PhaseValidate,
		StartTime:          now,
		RetryCountPerPhase: make(map[Phase]int),
	}
}
