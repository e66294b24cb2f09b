// Package errors provides the unified error taxonomy shared by the Intent
// Engine, Solver Matcher, Executor, Orbital Pool, and MEV Protector. Every
// exported operation in those packages returns exactly one Kind, wrapped in
// a *CoreError.
package errors

import (
	"errors"
	"fmt"
)

// Kind is one of the error kinds named in the platform's error-handling
// design. Every operation returns exactly one kind.
type Kind string

const (
	Validation            Kind = "VALIDATION"
	NotEligible           Kind = "NOT_ELIGIBLE"
	IllegalTransition     Kind = "ILLEGAL_TRANSITION"
	Timeout               Kind = "TIMEOUT"
	ChainRpcError         Kind = "CHAIN_RPC_ERROR"
	BridgeError           Kind = "BRIDGE_ERROR"
	InsufficientLiquidity Kind = "INSUFFICIENT_LIQUIDITY"
	ConstraintViolation   Kind = "CONSTRAINT_VIOLATION"
	PriceDeviation        Kind = "PRICE_DEVIATION"
	ArbitrageDetected     Kind = "ARBITRAGE_DETECTED"
	RevealTooEarly        Kind = "REVEAL_TOO_EARLY"
	CommitmentExpired     Kind = "COMMITMENT_EXPIRED"
	InvalidReveal         Kind = "INVALID_REVEAL"
	SlippageExceeded      Kind = "SLIPPAGE_EXCEEDED"
	ProofInvalid          Kind = "PROOF_INVALID"
	InternalError         Kind = "INTERNAL_ERROR"
	InvalidToken          Kind = "INVALID_TOKEN"

	// Executor failure taxonomy (spec §4.5): one per rollback-triggering
	// phase failure, each carrying a retryable flag.
	ValidationFailed      Kind = "VALIDATION_FAILED"
	SourceLockFailed      Kind = "SOURCE_LOCK_FAILED"
	SourceSwapFailed      Kind = "SOURCE_SWAP_FAILED"
	BridgeDispatchFailed  Kind = "BRIDGE_DISPATCH_FAILED"
	DestinationTimeout    Kind = "DESTINATION_TIMEOUT"
)

// CoreError is a structured error carrying a Kind, a human-readable message,
// optional details, and an optional wrapped cause. Error strings never
// include a user's signature; a solver or pool address may appear.
type CoreError struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Err }

// WithDetail attaches a detail key/value and returns the error for chaining.
func (e *CoreError) WithDetail(key string, value any) *CoreError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Retryable reports whether this error kind is a transient one (ChainRpc or
// Bridge). The Executor's per-phase retries do not consult it: they retry
// every error until the phase's attempt budget is spent.
func (e *CoreError) Retryable() bool {
	return e.Kind == ChainRpcError || e.Kind == BridgeError
}

// New creates a CoreError with no wrapped cause.
func New(kind Kind, message string) *CoreError {
	return &CoreError{Kind: kind, Message: message}
}

// Wrap creates a CoreError wrapping an existing error.
func Wrap(kind Kind, message string, err error) *CoreError {
	return &CoreError{Kind: kind, Message: message, Err: err}
}

// As extracts a *CoreError from an error chain.
func As(err error) (*CoreError, bool) {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or InternalError if err is not a CoreError.
func KindOf(err error) Kind {
	if ce, ok := As(err); ok {
		return ce.Kind
	}
	return InternalError
}

// Is reports whether err is a CoreError of the given kind.
func Is(err error, kind Kind) bool {
	ce, ok := As(err)
	return ok && ce.Kind == kind
}

// Constructors for the recurring per-kind shapes used across the core.

func ValidationError(field, reason string) *CoreError {
	return New(Validation, "invalid input").WithDetail("field", field).WithDetail("reason", reason)
}

func NotEligibleError(subject, reason string) *CoreError {
	return New(NotEligible, "not eligible").WithDetail("subject", subject).WithDetail("reason", reason)
}

func IllegalTransitionError(from, to, entity string) *CoreError {
	return New(IllegalTransition, "illegal state transition").
		WithDetail("from", from).WithDetail("to", to).WithDetail("entity", entity)
}

func TimeoutError(operation string) *CoreError {
	return New(Timeout, "operation timed out").WithDetail("operation", operation)
}

func ChainRPCError(operation string, err error) *CoreError {
	return Wrap(ChainRpcError, "chain RPC call failed", err).WithDetail("operation", operation)
}

func BridgeAdapterError(operation string, err error) *CoreError {
	return Wrap(BridgeError, "bridge adapter call failed", err).WithDetail("operation", operation)
}

func InsufficientLiquidityError(pool, tokenOut string) *CoreError {
	return New(InsufficientLiquidity, "insufficient liquidity for requested swap").
		WithDetail("pool", pool).WithDetail("token_out", tokenOut)
}

func ConstraintViolationError(pool string, residualBp float64) *CoreError {
	return New(ConstraintViolation, "invariant cannot be restored within tolerance").
		WithDetail("pool", pool).WithDetail("residual_bp", residualBp)
}

func PriceDeviationError(pool string, deviationBp float64) *CoreError {
	return New(PriceDeviation, "price deviates from TWAP beyond bound").
		WithDetail("pool", pool).WithDetail("deviation_bp", deviationBp)
}

func ArbitrageDetectedError(pool string, cooldownBlocks uint64) *CoreError {
	return New(ArbitrageDetected, "sandwich pattern detected, pool locked").
		WithDetail("pool", pool).WithDetail("cooldown_blocks", cooldownBlocks)
}

func RevealTooEarlyError(commitBlock, nowBlock, minDelay uint64) *CoreError {
	return New(RevealTooEarly, "reveal submitted before minimum delay").
		WithDetail("commit_block", commitBlock).WithDetail("now_block", nowBlock).WithDetail("min_delay", minDelay)
}

func CommitmentExpiredError(expiryBlock, nowBlock uint64) *CoreError {
	return New(CommitmentExpired, "commitment expired before reveal").
		WithDetail("expiry_block", expiryBlock).WithDetail("now_block", nowBlock)
}

func InvalidRevealError(reason string) *CoreError {
	return New(InvalidReveal, "reveal does not match commitment").WithDetail("reason", reason)
}

func SlippageExceededError(minOut, actualOut string) *CoreError {
	return New(SlippageExceeded, "swap output below minimum").
		WithDetail("min_out", minOut).WithDetail("actual_out", actualOut)
}

func ProofInvalidError(reason string) *CoreError {
	return New(ProofInvalid, "destination proof verification failed").WithDetail("reason", reason)
}

func Internal(message string, err error) *CoreError {
	return Wrap(InternalError, message, err)
}

// ExecutorFailureError builds one of the Executor's failure-taxonomy errors
// (spec §4.5), carrying a human-readable detail string and an explicit
// retryable flag alongside the Kind.
func ExecutorFailureError(kind Kind, detail string, retryable bool) *CoreError {
	return New(kind, detail).WithDetail("detail", detail).WithDetail("retryable", retryable)
}

// IsRetryable reports whether err is a CoreError explicitly flagged
// retryable (via ExecutorFailureError) or is one of the kinds treated as
// transient by default (Retryable).
func IsRetryable(err error) bool {
	ce, ok := As(err)
	if !ok {
		return false
	}
	if v, ok := ce.Details["retryable"].(bool); ok {
		return v
	}
	return ce.Retryable()
}
