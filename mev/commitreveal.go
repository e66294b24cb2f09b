// Package mev implements the MEV-protection subsystem (spec §4.2):
// commit-reveal, a TWAP deviation guard, a sandwich/arbitrage detector with
// cooldown lock, and a fair-ordering batcher.
package mev

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	coreerrors "github.com/orbitintent/core/infrastructure/errors"
	"github.com/orbitintent/core/infrastructure/state"
	"github.com/orbitintent/core/types"
)

// CommitStatus is a Commitment's lifecycle state (spec §3).
type CommitStatus int

const (
	StatusCommitted CommitStatus = iota
	StatusRevealed
	StatusExpired
	StatusExecuted
)

// Commitment is a trader's pending commit-reveal record (spec §3).
type Commitment struct {
	Hash        types.Hash
	Trader      types.Address
	CommitBlock uint64
	ExpiryBlock uint64
	Status      CommitStatus
}

// CommitRevealConfig bounds the store's default delays (spec §4.2).
type CommitRevealConfig struct {
	MinDelayBlocks uint64
	ExpiryBlocks   uint64
}

func defaultCommitRevealConfig(cfg CommitRevealConfig) CommitRevealConfig {
	if cfg.MinDelayBlocks == 0 {
		cfg.MinDelayBlocks = 2
	}
	if cfg.ExpiryBlocks == 0 {
		cfg.ExpiryBlocks = 20
	}
	return cfg
}

// commitKey identifies a commitment by trader + hash; a trader may have at
// most one outstanding commitment per hash at a time.
type commitKey struct {
	trader types.Address
	hash   types.Hash
}

const commitRevealKeyPrefix = "mev:commitreveal:"

// CommitRevealStore tracks outstanding commitments, keyed per trader+hash
// behind a single mutex (the teacher's map-behind-a-lock cache pattern,
// generalized from wall-clock TTL to block-number expiry).
//
// persist is optional: without it the store is pure in-memory, matching a
// single-node deployment. With it, every state change is mirrored to a
// PersistenceBackend so a restarted node can rebuild outstanding
// commitments, with their status and block window, via Restore instead of
// silently forgetting them. Commit itself replaces any existing commitment
// for the same trader and hash.
type CommitRevealStore struct {
	cfg     CommitRevealConfig
	mu      sync.Mutex
	commits map[commitKey]*Commitment
	persist *state.PersistentState
}

func NewCommitRevealStore(cfg CommitRevealConfig) *CommitRevealStore {
	return &CommitRevealStore{
		cfg:     defaultCommitRevealConfig(cfg),
		commits: make(map[commitKey]*Commitment),
	}
}

// NewCommitRevealStoreWithBackend is NewCommitRevealStore plus a durability
// backend; call Restore once at startup to repopulate commits from it.
func NewCommitRevealStoreWithBackend(cfg CommitRevealConfig, backend state.PersistenceBackend) (*CommitRevealStore, error) {
	s := NewCommitRevealStore(cfg)
	ps, err := state.NewPersistentState(state.Config{Backend: backend, KeyPrefix: commitRevealKeyPrefix})
	if err != nil {
		return nil, fmt.Errorf("build commit-reveal persistence: %w", err)
	}
	s.persist = ps
	return s, nil
}

func commitRecordKey(k commitKey) string {
	return fmt.Sprintf("%s:%s", k.trader.Hex(), k.hash.Hex())
}

// save mirrors c to the backend, if one is configured. Errors are swallowed
// by callers: the in-memory store is always authoritative for the running
// process, persistence only serves a future restart.
func (s *CommitRevealStore) save(key commitKey, c *Commitment) {
	if s.persist == nil {
		return
	}
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	_ = s.persist.Save(context.Background(), commitRecordKey(key), data)
}

// Restore repopulates commits from the configured backend (a no-op store
// without one). Intended to run once, before the store serves traffic.
func (s *CommitRevealStore) Restore(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	keys, err := s.persist.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list persisted commitments: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fullKey := range keys {
		// List returns keys already carrying the store's own prefix; trim it
		// back off since Load re-applies it.
		relKey := fullKey
		if len(fullKey) >= len(commitRevealKeyPrefix) && fullKey[:len(commitRevealKeyPrefix)] == commitRevealKeyPrefix {
			relKey = fullKey[len(commitRevealKeyPrefix):]
		}
		data, err := s.persist.Load(ctx, relKey)
		if err != nil {
			continue
		}
		var c Commitment
		if err := json.Unmarshal(data, &c); err != nil {
			continue
		}
		cp := c
		s.commits[commitKey{trader: c.Trader, hash: c.Hash}] = &cp
	}
	return nil
}

// Commit stores a new Commitment (spec §4.2).
func (s *CommitRevealStore) Commit(trader types.Address, hash types.Hash, nowBlock uint64) (*Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &Commitment{
		Hash:        hash,
		Trader:      trader,
		CommitBlock: nowBlock,
		ExpiryBlock: nowBlock + s.cfg.ExpiryBlocks,
		Status:      StatusCommitted,
	}
	key := commitKey{trader: trader, hash: hash}
	s.commits[key] = c
	s.save(key, c)
	cp := *c
	return &cp, nil
}

// Reveal checks fields against the stored commitment's hash and the
// min-delay/expiry window (spec §4.2), transitioning it to Revealed on
// success.
func (s *CommitRevealStore) Reveal(trader types.Address, hash types.Hash, fields []byte, nowBlock uint64) (*Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := commitKey{trader: trader, hash: hash}
	c, ok := s.commits[key]
	if !ok {
		return nil, coreerrors.InvalidRevealError("no commitment for trader/hash")
	}
	if c.Status != StatusCommitted {
		return nil, coreerrors.InvalidRevealError("commitment already consumed or expired")
	}
	if hashFields(fields) != hash {
		return nil, coreerrors.InvalidRevealError("revealed fields do not hash to the commitment")
	}
	if nowBlock > c.ExpiryBlock {
		c.Status = StatusExpired
		s.save(key, c)
		return nil, coreerrors.CommitmentExpiredError(c.ExpiryBlock, nowBlock)
	}
	if nowBlock-c.CommitBlock < s.cfg.MinDelayBlocks {
		return nil, coreerrors.RevealTooEarlyError(c.CommitBlock, nowBlock, s.cfg.MinDelayBlocks)
	}

	c.Status = StatusRevealed
	s.save(key, c)
	cp := *c
	return &cp, nil
}

// Consume marks a Revealed commitment Executed; it may be consumed by
// exactly one swap (spec §4.2). Returns InvalidReveal if the commitment is
// not currently Revealed.
func (s *CommitRevealStore) Consume(trader types.Address, hash types.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := commitKey{trader: trader, hash: hash}
	c, ok := s.commits[key]
	if !ok || c.Status != StatusRevealed {
		return coreerrors.InvalidRevealError("commitment not in Revealed state")
	}
	c.Status = StatusExecuted
	s.save(key, c)
	return nil
}

// hashFields computes H(fields) for a reveal (spec §4.2: H(fields) == hash).
func hashFields(fields []byte) types.Hash {
	return types.Hash(crypto.Keccak256Hash(fields))
}

// HashFields exposes hashFields for callers constructing a commitment hash
// ahead of calling Commit.
func HashFields(fields []byte) types.Hash { return hashFields(fields) }
