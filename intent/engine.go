package intent

import (
	"context"
	"sync"
	"time"

	coreerrors "github.com/orbitintent/core/infrastructure/errors"
	"github.com/orbitintent/core/infrastructure/ratelimit"
	"github.com/orbitintent/core/pkg/logger"
	"github.com/orbitintent/core/types"
	"github.com/sirupsen/logrus"
)

// SignatureVerifier authenticates an intent's signature against its user
// address over the canonical field bytes (spec §1 treats ECDSA helpers as a
// capability; go-ethereum's crypto package backs the reference adapter).
type SignatureVerifier interface {
	Verify(fieldBytes []byte, signature []byte, user types.Address) bool
}

// Repository persists intents keyed by id. The core depends only on this
// narrow interface; the concrete Postgres/in-memory implementation is a
// thin collaborator per spec §1's "persistence schema is external".
type Repository interface {
	Save(ctx context.Context, i *Intent) error
	Get(ctx context.Context, id types.Hash) (*Intent, error)
	NonceUsed(ctx context.Context, user types.Address, nonce uint64) (bool, error)
	ListPendingOrMatched(ctx context.Context) ([]*Intent, error)
}

// MinHorizon is the minimum time an intent's deadline must sit beyond "now"
// at submission, per spec §4.3.
const MinHorizon = 30 * time.Second

// Engine is the sole mutator of intent status (spec §5). Transitions for a
// single intent are serialized by a per-intent entry in locks.
type Engine struct {
	repo     Repository
	verifier SignatureVerifier
	log      *logger.Logger

	mu    sync.Mutex
	locks map[types.Hash]*sync.Mutex

	submitMu      sync.Mutex
	submitLimiter map[types.Address]*ratelimit.RateLimiter
	submitRate    ratelimit.RateLimitConfig
}

// NewEngine builds an Engine. log may be nil.
func NewEngine(repo Repository, verifier SignatureVerifier, log *logger.Logger) *Engine {
	return &Engine{
		repo:          repo,
		verifier:      verifier,
		locks:         make(map[types.Hash]*sync.Mutex),
		log:           log,
		submitLimiter: make(map[types.Address]*ratelimit.RateLimiter),
		submitRate:    ratelimit.RateLimitConfig{RequestsPerSecond: 5, Burst: 10},
	}
}

// SetSubmitRateLimit overrides the per-user Submit rate limit (spec §1
// treats spam submission as an ambient concern, not a state-machine one).
func (e *Engine) SetSubmitRateLimit(cfg ratelimit.RateLimitConfig) {
	e.submitMu.Lock()
	defer e.submitMu.Unlock()
	e.submitRate = cfg
	e.submitLimiter = make(map[types.Address]*ratelimit.RateLimiter)
}

func (e *Engine) submitAllowed(user types.Address) bool {
	e.submitMu.Lock()
	l, ok := e.submitLimiter[user]
	if !ok {
		l = ratelimit.New(e.submitRate)
		e.submitLimiter[user] = l
	}
	e.submitMu.Unlock()
	return l.Allow()
}

func (e *Engine) lockFor(id types.Hash) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

func (e *Engine) logf(msg string, fields map[string]any) {
	if e.log == nil {
		return
	}
	lf := make(logrus.Fields, len(fields))
	for k, v := range fields {
		lf[k] = v
	}
	e.log.WithFields(lf).Info(msg)
}

// Submit validates and persists a new intent, transitioning it to Pending.
func (e *Engine) Submit(ctx context.Context, draft *Intent, now time.Time) (types.Hash, error) {
	if !e.submitAllowed(draft.User) {
		return types.Hash{}, coreerrors.NotEligibleError(draft.User.Hex(), "submission rate exceeded")
	}
	if draft.SourceAmount == nil || draft.SourceAmount.IsZero() {
		return types.Hash{}, coreerrors.ValidationError("source_amount", "must be greater than zero")
	}
	if draft.MinDestAmount == nil {
		draft.MinDestAmount = types.ZeroU256()
	}
	if draft.Deadline <= now.Add(MinHorizon).Unix() {
		return types.Hash{}, coreerrors.ValidationError("deadline", "must be after now plus the minimum horizon")
	}
	if draft.SourceChainID == 0 || draft.DestChainID == 0 {
		return types.Hash{}, coreerrors.ValidationError("chain_id", "source and dest chain ids are required")
	}

	used, err := e.repo.NonceUsed(ctx, draft.User, draft.Nonce)
	if err != nil {
		return types.Hash{}, coreerrors.Internal("check nonce", err)
	}
	if used {
		return types.Hash{}, coreerrors.ValidationError("nonce", "already used by this user")
	}

	fieldBytes := draft.fieldBytes()
	if e.verifier != nil && !e.verifier.Verify(fieldBytes, draft.Signature, draft.User) {
		return types.Hash{}, coreerrors.ValidationError("signature", "does not match user")
	}

	id := draft.computeIDFromVerifier(fieldBytes)
	draft.ID = id
	draft.Status = StatusPending
	draft.CreatedAt = now
	draft.UpdatedAt = now

	if err := e.repo.Save(ctx, draft); err != nil {
		return types.Hash{}, coreerrors.Internal("save intent", err)
	}
	e.logf("intent submitted", map[string]any{"intent_id": id.Hex(), "user": draft.User.Hex()})
	return id, nil
}

// transition loads the intent, checks the state machine edge, applies
// mutate, and persists — all under the intent's own lock.
func (e *Engine) transition(ctx context.Context, id types.Hash, to Status, mutate func(i *Intent), now time.Time) error {
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	i, err := e.repo.Get(ctx, id)
	if err != nil {
		return coreerrors.Internal("load intent", err)
	}

	if i.Status == to {
		return nil // idempotent no-op, e.g. double match_and_dispatch
	}
	if !canTransition(i.Status, to) {
		return coreerrors.IllegalTransitionError(string(i.Status), string(to), "intent")
	}

	mutate(i)
	i.Status = to
	i.UpdatedAt = now
	if err := e.repo.Save(ctx, i); err != nil {
		return coreerrors.Internal("save intent", err)
	}
	e.logf("intent transitioned", map[string]any{"intent_id": id.Hex(), "to": string(to)})
	return nil
}

// MatchAndDispatch moves Pending -> Matched, recording the winning solver
// and expected destination amount. Idempotent.
func (e *Engine) MatchAndDispatch(ctx context.Context, id types.Hash, solver types.Address, expectedDest *types.U256, now time.Time) error {
	return e.transition(ctx, id, StatusMatched, func(i *Intent) {
		i.Solver = solver
		i.ExpectedDest = expectedDest
	}, now)
}

// RecordExecutionStart moves Matched -> Executing.
func (e *Engine) RecordExecutionStart(ctx context.Context, id types.Hash, now time.Time) error {
	return e.transition(ctx, id, StatusExecuting, func(*Intent) {}, now)
}

// RecordCompletion moves Executing -> Completed, only if dest_amount_actual
// meets the user's minimum.
func (e *Engine) RecordCompletion(ctx context.Context, id types.Hash, destAmountActual *types.U256, proof []byte, now time.Time) error {
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	i, err := e.repo.Get(ctx, id)
	if err != nil {
		return coreerrors.Internal("load intent", err)
	}
	if i.Status == StatusCompleted {
		return nil
	}
	if !canTransition(i.Status, StatusCompleted) {
		return coreerrors.IllegalTransitionError(string(i.Status), string(StatusCompleted), "intent")
	}
	if destAmountActual.Lt(i.MinDestAmount) {
		return coreerrors.SlippageExceededError(i.MinDestAmount.Dec(), destAmountActual.Dec())
	}

	i.DestAmountFinal = destAmountActual
	i.Status = StatusCompleted
	i.UpdatedAt = now
	if err := e.repo.Save(ctx, i); err != nil {
		return coreerrors.Internal("save intent", err)
	}
	e.logf("intent completed", map[string]any{"intent_id": id.Hex()})
	return nil
}

// RecordFailure moves the intent to terminal Failed with a reason.
func (e *Engine) RecordFailure(ctx context.Context, id types.Hash, reason string, now time.Time) error {
	return e.transition(ctx, id, StatusFailed, func(i *Intent) {
		i.FailureReason = reason
	}, now)
}

// Cancel moves Pending -> Cancelled, only by the intent's own user.
func (e *Engine) Cancel(ctx context.Context, id types.Hash, caller types.Address, now time.Time) error {
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	i, err := e.repo.Get(ctx, id)
	if err != nil {
		return coreerrors.Internal("load intent", err)
	}
	if i.Status != StatusPending {
		return coreerrors.IllegalTransitionError(string(i.Status), string(StatusCancelled), "intent")
	}
	if caller != i.User {
		return coreerrors.NotEligibleError(caller.Hex(), "only the intent's own user may cancel")
	}

	i.Status = StatusCancelled
	i.UpdatedAt = now
	if err := e.repo.Save(ctx, i); err != nil {
		return coreerrors.Internal("save intent", err)
	}
	return nil
}

// ExpireTick moves every Pending or Matched intent whose deadline has
// passed to Expired. Intended to run on a schedule (cron).
func (e *Engine) ExpireTick(ctx context.Context, now time.Time) (int, error) {
	candidates, err := e.repo.ListPendingOrMatched(ctx)
	if err != nil {
		return 0, coreerrors.Internal("list pending/matched intents", err)
	}

	expired := 0
	for _, i := range candidates {
		if i.Deadline >= now.Unix() {
			continue
		}
		if err := e.transition(ctx, i.ID, StatusExpired, func(*Intent) {}, now); err != nil {
			continue
		}
		expired++
	}
	return expired, nil
}

// AllowRematch reports whether a Failed intent with a future deadline may
// be re-matched (spec §7: at most one re-match per intent).
func AllowRematch(i *Intent, now time.Time) bool {
	return i.Status == StatusFailed && i.Deadline > now.Unix() && i.RematchCount < 1
}
