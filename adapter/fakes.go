package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/orbitintent/core/message"
	"github.com/orbitintent/core/types"
)

// FakeChainClient is an in-memory ChainClient for tests and the reference
// cmd/intentd wiring; it never touches a network.
type FakeChainClient struct {
	mu       sync.Mutex
	chainID  uint64
	head     uint64
	receipts map[types.Hash]*Receipt
}

func NewFakeChainClient(chainID uint64) *FakeChainClient {
	return &FakeChainClient{chainID: chainID, receipts: make(map[types.Hash]*Receipt)}
}

func (f *FakeChainClient) ChainID() uint64 { return f.chainID }

func (f *FakeChainClient) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, nil
}

// AdvanceBlocks lets tests simulate confirmations accruing.
func (f *FakeChainClient) AdvanceBlocks(n uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head += n
}

// SubmitReceipt records a transaction's outcome at the current head.
func (f *FakeChainClient) SubmitReceipt(txHash types.Hash, success bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipts[txHash] = &Receipt{TxHash: txHash, BlockNumber: f.head, Success: success}
	f.head++
}

func (f *FakeChainClient) Receipt(ctx context.Context, txHash types.Hash) (*Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receipts[txHash]
	if !ok {
		return nil, errNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *FakeChainClient) Call(ctx context.Context, to types.Address, data []byte) ([]byte, error) {
	return nil, nil
}

func (f *FakeChainClient) SendRaw(ctx context.Context, signedTx []byte) (types.Hash, error) {
	return types.Hash(crypto.Keccak256Hash(signedTx)), nil
}

func (f *FakeChainClient) EstimateGas(ctx context.Context, to types.Address, data []byte) (uint64, error) {
	return 21_000, nil
}

var errNotFound = bridgeError("receipt not found")

// FakeBridgeAdapter is an in-memory BridgeAdapter; delivery is simulated by
// the test calling MarkDelivered.
type FakeBridgeAdapter struct {
	name string

	// SendHook, if set, runs synchronously inside SendMessage after a
	// successful send, letting a test simulate destination-side delivery
	// (e.g. via MarkDelivered) without racing the Executor goroutine for
	// the envelope's content-hash message id.
	SendHook func(env *message.Envelope)

	mu        sync.Mutex
	delivered map[types.Hash]bool
	proofs    map[types.Hash][]byte
	fails     int // remaining forced SendMessage failures, for rollback tests
}

func NewFakeBridgeAdapter(name string) *FakeBridgeAdapter {
	return &FakeBridgeAdapter{name: name, delivered: make(map[types.Hash]bool), proofs: make(map[types.Hash][]byte)}
}

// FailNextSends makes the next n SendMessage calls return an error, for
// exercising the Executor's retry and rollback paths.
func (f *FakeBridgeAdapter) FailNextSends(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails = n
}

func (f *FakeBridgeAdapter) Name() string { return f.name }

func (f *FakeBridgeAdapter) SendMessage(ctx context.Context, env *message.Envelope) (types.Hash, error) {
	f.mu.Lock()
	if f.fails > 0 {
		f.fails--
		f.mu.Unlock()
		return types.Hash{}, errSendFailed
	}
	f.mu.Unlock()
	if f.SendHook != nil {
		f.SendHook(env)
	}
	return env.MessageID, nil
}

var errSendFailed = bridgeError("bridge send failed")

func (f *FakeBridgeAdapter) AbandonMessage(ctx context.Context, messageID types.Hash) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.delivered, messageID)
	return nil
}

// MarkDelivered simulates the destination chain having executed the
// message, with an accompanying opaque proof blob.
func (f *FakeBridgeAdapter) MarkDelivered(messageID types.Hash, proof []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered[messageID] = true
	f.proofs[messageID] = proof
}

func (f *FakeBridgeAdapter) VerifyDelivery(ctx context.Context, messageID types.Hash) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.delivered[messageID], nil
}

func (f *FakeBridgeAdapter) GetProof(ctx context.Context, messageID types.Hash) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.proofs[messageID]
	if !ok {
		return nil, errNotFound
	}
	return p, nil
}

func (f *FakeBridgeAdapter) EstimateFee(ctx context.Context, env *message.Envelope) (*types.U256, error) {
	return types.U256FromUint64(1_000), nil
}

func (f *FakeBridgeAdapter) EstimateDeliveryTime(ctx context.Context, env *message.Envelope) (time.Duration, error) {
	return 2 * time.Minute, nil
}
