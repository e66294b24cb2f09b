// Package intent owns the Intent lifecycle state machine (spec §4.3): it
// validates and persists intents, and is the sole mutator of intent status.
package intent

import (
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/orbitintent/core/types"
)

// Status is one of the seven intent lifecycle states (spec §3).
type Status string

const (
	StatusPending   Status = "Pending"
	StatusMatched   Status = "Matched"
	StatusExecuting Status = "Executing"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusCancelled Status = "Cancelled"
	StatusExpired   Status = "Expired"
)

// Terminal reports whether a status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// allowedTransitions enumerates the state machine edges of spec §4.3. Every
// mutating operation checks this table before touching stored state.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusMatched:   true,
		StatusCancelled: true,
		StatusExpired:   true,
	},
	StatusMatched: {
		StatusExecuting: true,
		StatusFailed:    true,
		StatusExpired:   true,
	},
	StatusExecuting: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
}

func canTransition(from, to Status) bool {
	edges, ok := allowedTransitions[from]
	return ok && edges[to]
}

// Intent is the immutable-once-created record of spec §3. Signature is the
// user's EIP-191/712-style authorization over the canonical field bytes.
// The fields up to Signature are fixed at creation; Status and the fields
// after it record the intent's progress and change as it moves through the
// state machine.
type Intent struct {
	ID              types.Hash
	User            types.Address
	SourceChainID   uint64
	DestChainID     uint64
	SourceToken     types.Address
	DestToken       types.Address
	SourceAmount    *types.U256
	MinDestAmount   *types.U256
	Deadline        int64 // Unix seconds
	Nonce           uint64
	Signature       []byte
	Status          Status
	Solver          types.Address
	ExpectedDest    *types.U256
	DestAmountFinal *types.U256
	FailureReason   string
	RematchCount    int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// fieldBytes returns the canonical content-hash input ordered per §3/§6:
// every field except ID and Signature, fixed-width big-endian for integers
// and 20 bytes for addresses.
func (i *Intent) fieldBytes() []byte {
	out := make([]byte, 0, 20+8+8+20+20+32+32+8+8)
	out = types.PutAddress(out, i.User)
	out = types.PutUint64BE(out, i.SourceChainID)
	out = types.PutUint64BE(out, i.DestChainID)
	out = types.PutAddress(out, i.SourceToken)
	out = types.PutAddress(out, i.DestToken)
	out = types.PutU256BE(out, i.SourceAmount)
	out = types.PutU256BE(out, i.MinDestAmount)
	out = types.PutUint64BE(out, uint64(i.Deadline))
	out = types.PutUint64BE(out, i.Nonce)
	return out
}

// computeIDFromVerifier derives the content-hash id (spec §3) over the
// canonical field bytes already computed by the caller.
func (i *Intent) computeIDFromVerifier(fieldBytes []byte) types.Hash {
	return types.Hash(crypto.Keccak256Hash(fieldBytes))
}
