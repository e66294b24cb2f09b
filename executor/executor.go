package executor

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/orbitintent/core/adapter"
	"github.com/orbitintent/core/message"
	coreerrors "github.com/orbitintent/core/infrastructure/errors"
	"github.com/orbitintent/core/infrastructure/resilience"
	"github.com/orbitintent/core/infrastructure/transaction"
	"github.com/orbitintent/core/intent"
	"github.com/orbitintent/core/pkg/config"
	"github.com/orbitintent/core/pkg/logger"
	"github.com/orbitintent/core/pool"
	"github.com/orbitintent/core/reputation"
	"github.com/orbitintent/core/infrastructure/telemetry"
	"github.com/orbitintent/core/types"
)

// PoolLookup resolves the Orbital Pool that serves a chain's leg of an
// intent. The core treats each chain's pool as independent (spec §9).
type PoolLookup func(chainID uint64, token0, token1 types.Address) (*pool.Pool, error)

// Executor drives a single cross-chain swap through the seven phases of
// spec §4.5. It runs multiple intents concurrently up to cfg.MaxConcurrent;
// two concurrent executions never share an ExecutionContext.
type Executor struct {
	intents      *intent.Engine
	reputations  *reputation.Registry
	pools        PoolLookup
	chains       map[uint64]adapter.ChainClient
	bridge       adapter.BridgeAdapter
	locker       Locker
	cfg          config.ExecutorConfig
	log          *logger.Logger
	sem          *semaphore.Weighted
	circuitChain *resilience.CircuitBreaker
	circuitBridge *resilience.CircuitBreaker
	metrics      *telemetry.Recorder
}

// SetMetrics attaches a telemetry sink; nil disables recording. Never part
// of the control flow, purely observational.
func (x *Executor) SetMetrics(r *telemetry.Recorder) { x.metrics = r }

// New builds an Executor. log may be nil.
func New(
	intents *intent.Engine,
	reputations *reputation.Registry,
	pools PoolLookup,
	chains map[uint64]adapter.ChainClient,
	bridge adapter.BridgeAdapter,
	locker Locker,
	cfg config.ExecutorConfig,
	log *logger.Logger,
) *Executor {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	return &Executor{
		intents:       intents,
		reputations:   reputations,
		pools:         pools,
		chains:        chains,
		bridge:        bridge,
		locker:        locker,
		cfg:           cfg,
		log:           log,
		sem:           semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		circuitChain:  resilience.New(resilience.DefaultConfig()),
		circuitBridge: resilience.New(resilience.DefaultConfig()),
	}
}

// Execute runs one intent's seven phases under the configured global
// timeout, blocking until completion, failure, or the concurrency cap is
// acquired. It records the outcome on the Intent Engine and the Reputation
// Registry before returning.
func (x *Executor) Execute(ctx context.Context, in *intent.Intent, minDestAmount *types.U256) (*ExecutionContext, error) {
	if err := x.sem.Acquire(ctx, 1); err != nil {
		return nil, coreerrors.Internal("acquire executor concurrency slot", err)
	}
	defer x.sem.Release(1)

	globalTimeout := x.cfg.GlobalTimeout
	if globalTimeout <= 0 {
		globalTimeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, globalTimeout)
	defer cancel()

	now := time.Now()
	ec := newExecutionContext(in, now)
	ctx = logger.WithTraceID(ctx, ec.TraceID)
	x.logInfo(ec, "execution started")

	if err := x.intents.RecordExecutionStart(ctx, in.ID, now); err != nil {
		return ec, err
	}

	if err := x.runPhases(ctx, ec, in, minDestAmount); err != nil {
		x.recordFailure(ctx, in, ec, err)
		x.logError(ec, err, "execution failed")
		x.metrics.Counter("executor_executions_total", map[string]string{"outcome": "failed", "phase": ec.Phase.String()}, 1)
		return ec, err
	}

	execTime := time.Since(ec.StartTime).Seconds()
	_ = x.intents.RecordCompletion(ctx, in.ID, in.ExpectedDest, x.lastProof(ec), time.Now())
	_ = x.reputations.RecordSuccess(in.Solver, execTime, time.Now())
	x.logInfo(ec, "execution completed")
	x.metrics.Counter("executor_executions_total", map[string]string{"outcome": "completed"}, 1)
	x.metrics.Histogram("executor_execution_seconds", nil, execTime)
	return ec, nil
}

// logInfo and logError are no-ops when the Executor was built without a
// logger (New's log parameter may be nil).
func (x *Executor) logInfo(ec *ExecutionContext, msg string) {
	if x.log == nil {
		return
	}
	x.log.WithFields(logrus.Fields{"trace_id": ec.TraceID, "intent_id": ec.IntentID.Hex(), "phase": ec.Phase.String()}).Info(msg)
}

func (x *Executor) logError(ec *ExecutionContext, err error, msg string) {
	if x.log == nil {
		return
	}
	x.log.WithFields(logrus.Fields{"trace_id": ec.TraceID, "intent_id": ec.IntentID.Hex(), "phase": ec.Phase.String()}).WithError(err).Error(msg)
}

// lastProof returns the bytes of ec.DestTxHash (the bridge message id, see
// phaseAwaitDestination) as the proof slice RecordCompletion persists.
func (x *Executor) lastProof(ec *ExecutionContext) []byte {
	return ec.DestTxHash.Bytes()
}

func (x *Executor) recordFailure(ctx context.Context, in *intent.Intent, ec *ExecutionContext, err error) {
	reason := "InternalError"
	if ce, ok := coreerrors.As(err); ok {
		reason = string(ce.Kind)
	}
	_ = x.intents.RecordFailure(ctx, in.ID, reason, time.Now())
	if in.Solver != (types.Address{}) {
		_ = x.reputations.RecordFailure(in.Solver, time.Now())
	}
}

// runPhases executes phases 1-7 in order. Phases 3-7 are modeled as a
// transaction.Transaction (spec §4.5's seven-phase saga): each step's
// compensation undoes exactly that step's own side effect, so a failure at
// any point unwinds everything committed before it, in reverse, which is
// precisely the per-phase failure-effect column of spec §4.5 — a lock
// acquired three phases ago is released whether the saga fails at bridge
// dispatch, destination delivery, or proof verification.
func (x *Executor) runPhases(ctx context.Context, ec *ExecutionContext, in *intent.Intent, minDestAmount *types.U256) error {
	ec.Phase = PhaseValidate
	if err := x.phaseValidate(ctx, in); err != nil {
		return coreerrors.ExecutorFailureError(coreerrors.ValidationFailed, err.Error(), false)
	}

	ec.Phase = PhaseMEVDelay
	if err := x.phaseMEVDelay(ctx); err != nil {
		return err
	}

	tx := x.buildSaga(ec, in, minDestAmount)
	if err := tx.Execute(ctx); err != nil {
		if tx.ExecutedSteps() > 0 {
			ec.rolledBack = true
		}
		return err
	}
	return nil
}

// buildSaga assembles phases 3-7 as a transaction.Transaction. Only
// lock_source and bridge_dispatch carry a compensation: the source swap and
// destination delivery/proof steps have no reversible on-chain effect of
// their own once they succeed.
func (x *Executor) buildSaga(ec *ExecutionContext, in *intent.Intent, minDestAmount *types.U256) *transaction.Transaction {
	tx := transaction.NewTransaction()

	tx.AddStep("lock_source", func(ctx context.Context) error {
		ec.Phase = PhaseLockSource
		if err := x.phaseLockSource(ctx, ec, in); err != nil {
			return coreerrors.ExecutorFailureError(coreerrors.SourceLockFailed, err.Error(), false)
		}
		return nil
	}, func(ctx context.Context) error {
		return x.locker.Release(ctx, in.SourceChainID, ec.LockID)
	})

	tx.AddStep("source_swap", func(ctx context.Context) error {
		ec.Phase = PhaseSourceSwap
		if err := x.phaseSourceSwap(ctx, ec, in, minDestAmount); err != nil {
			return coreerrors.ExecutorFailureError(coreerrors.SourceSwapFailed, err.Error(), false)
		}
		return nil
	}, nil) // irreversible once settled; releasing the lock (previous step) is what returns value to the user.

	tx.AddStep("bridge_dispatch", func(ctx context.Context) error {
		ec.Phase = PhaseBridgeDispatch
		if err := x.phaseBridgeDispatch(ctx, ec, in); err != nil {
			return coreerrors.ExecutorFailureError(coreerrors.BridgeDispatchFailed, err.Error(), false)
		}
		return nil
	}, func(ctx context.Context) error {
		return x.bridge.AbandonMessage(ctx, ec.BridgeMessageID)
	})

	tx.AddStep("await_destination", func(ctx context.Context) error {
		ec.Phase = PhaseAwaitDestination
		if err := x.phaseAwaitDestination(ctx, ec, in); err != nil {
			return coreerrors.ExecutorFailureError(coreerrors.DestinationTimeout, err.Error(), true)
		}
		return nil
	}, nil)

	tx.AddStep("verify_proof", func(ctx context.Context) error {
		ec.Phase = PhaseVerifyProof
		if err := x.phaseVerifyProof(ctx, ec, in); err != nil {
			return coreerrors.ProofInvalidError(err.Error())
		}
		return nil
	}, nil)

	return tx
}

// phaseValidate re-checks the intent is still sane to execute (spec §4.5
// phase 1): no retry, any failure is fatal.
func (x *Executor) phaseValidate(ctx context.Context, in *intent.Intent) error {
	if in.SourceAmount == nil || in.SourceAmount.IsZero() {
		return errValidation("source_amount is zero")
	}
	if in.Deadline < time.Now().Unix() {
		return errValidation("deadline has passed")
	}
	if _, ok := x.chains[in.SourceChainID]; !ok {
		return errValidation("unsupported source chain")
	}
	if _, ok := x.chains[in.DestChainID]; !ok {
		return errValidation("unsupported dest chain")
	}
	return nil
}

// phaseMEVDelay sleeps a uniformly random duration in [min, max] (spec §4.5
// phase 2), cooperatively honoring ctx cancellation.
func (x *Executor) phaseMEVDelay(ctx context.Context) error {
	lo, hi := x.cfg.MEVDelayMin, x.cfg.MEVDelayMax
	if lo <= 0 {
		lo = 2 * time.Second
	}
	if hi <= lo {
		hi = 8 * time.Second
	}
	d := lo + time.Duration(rand.Int63n(int64(hi-lo+1)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// retryBaseDelay returns the configured base delay, defaulting to 1 second.
func (x *Executor) retryBaseDelay() time.Duration {
	if x.cfg.RetryBaseDelay > 0 {
		return x.cfg.RetryBaseDelay
	}
	return 1 * time.Second
}

func (x *Executor) phaseLockSource(ctx context.Context, ec *ExecutionContext, in *intent.Intent) error {
	base := x.retryBaseDelay()
	cfg := resilience.RetryConfig{MaxAttempts: 4, InitialDelay: base, Multiplier: 2, MaxDelay: 16 * base}
	return resilience.Retry(ctx, cfg, func() error {
		lockID, txHash, err := x.locker.Lock(ctx, in.SourceChainID, in.User, in.SourceToken, in.SourceAmount)
		if err != nil {
			ec.RetryCountPerPhase[PhaseLockSource]++
			return err
		}
		ec.LockID = lockID
		ec.SourceTxHash = txHash
		return nil
	})
}

func (x *Executor) phaseSourceSwap(ctx context.Context, ec *ExecutionContext, in *intent.Intent, minDestAmount *types.U256) error {
	p, err := x.pools(in.SourceChainID, in.SourceToken, in.DestToken)
	if err != nil {
		return err
	}
	base := x.retryBaseDelay()
	cfg := resilience.RetryConfig{MaxAttempts: 4, InitialDelay: base, Multiplier: 2, MaxDelay: 16 * base}
	return resilience.Retry(ctx, cfg, func() error {
		receipt, err := p.Swap(in.SourceToken, in.DestToken, in.SourceAmount, minDestAmount, in.User, time.Now())
		if err != nil {
			ec.RetryCountPerPhase[PhaseSourceSwap]++
			return err
		}
		in.ExpectedDest = receipt.AmountOut
		return nil
	})
}

func (x *Executor) phaseBridgeDispatch(ctx context.Context, ec *ExecutionContext, in *intent.Intent) error {
	base := x.retryBaseDelay()
	cfg := resilience.RetryConfig{MaxAttempts: 4, InitialDelay: base, Multiplier: 3, MaxDelay: 27 * base}
	return resilience.Retry(ctx, cfg, func() error {
		env := message.New(in.SourceChainID, in.DestChainID, in.User, in.Solver, in.Nonce, uint64(time.Now().Unix()), uint64(in.Deadline), types.ZeroU256(), 0, message.KindIntentExec, in.ID.Bytes())
		messageID, err := x.circuitBridgeCall(ctx, env)
		if err != nil {
			ec.RetryCountPerPhase[PhaseBridgeDispatch]++
			return err
		}
		ec.BridgeMessageID = messageID
		return nil
	})
}

func (x *Executor) circuitBridgeCall(ctx context.Context, env *message.Envelope) (types.Hash, error) {
	var messageID types.Hash
	err := x.circuitBridge.Execute(ctx, func() error {
		id, err := x.bridge.SendMessage(ctx, env)
		if err != nil {
			return coreerrors.BridgeAdapterError("send_message", err)
		}
		messageID = id
		return nil
	})
	return messageID, err
}

// phaseAwaitDestination polls the bridge for delivery every DestinationPollInt,
// up to DestinationPollMax times (spec §4.5 phase 6).
func (x *Executor) phaseAwaitDestination(ctx context.Context, ec *ExecutionContext, in *intent.Intent) error {
	interval := x.cfg.DestinationPollInt
	if interval <= 0 {
		interval = 10 * time.Second
	}
	maxPolls := x.cfg.DestinationPollMax
	if maxPolls <= 0 {
		maxPolls = 30
	}

	for i := 0; i < maxPolls; i++ {
		delivered, err := x.bridge.VerifyDelivery(ctx, ec.BridgeMessageID)
		if err == nil && delivered {
			// The bridge message id is the cross-chain correlator; the
			// destination chain client indexes receipts under it.
			ec.DestTxHash = ec.BridgeMessageID
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return coreerrors.TimeoutError("await_destination")
}

// phaseVerifyProof confirms the dest-chain receipt succeeded and has at least
// FinalityThreshold confirmations, then fetches the bridge proof and checks
// only that it is non-empty; the proof's contents are not verified against
// the receipt (spec §4.5 phase 7).
func (x *Executor) phaseVerifyProof(ctx context.Context, ec *ExecutionContext, in *intent.Intent) error {
	destClient, ok := x.chains[in.DestChainID]
	if !ok {
		return errValidation("unsupported dest chain")
	}

	receipt, err := destClient.Receipt(ctx, ec.DestTxHash)
	if err != nil || receipt == nil || !receipt.Success {
		return errProof("destination receipt missing or unsuccessful")
	}
	head, err := destClient.BlockNumber(ctx)
	if err != nil {
		return errProof("could not read destination chain head")
	}
	if head < receipt.BlockNumber+adapter.FinalityThreshold(in.DestChainID) {
		return errProof("insufficient confirmations")
	}

	proof, err := x.bridge.GetProof(ctx, ec.BridgeMessageID)
	if err != nil {
		return errProof("bridge proof unavailable")
	}
	if len(proof) == 0 {
		return errProof("empty bridge proof")
	}
	return nil
}

func errValidation(msg string) error { return coreerrors.New(coreerrors.ValidationFailed, msg) }
func errProof(msg string) error      { return coreerrors.New(coreerrors.ProofInvalid, msg) }
