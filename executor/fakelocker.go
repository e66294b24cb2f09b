package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/orbitintent/core/types"
)

// FakeLocker is an in-memory Locker for tests and the reference cmd/intentd
// wiring; it never touches a chain.
type FakeLocker struct {
	seq int64

	mu     sync.Mutex
	locked map[string]bool

	failLocks    int // remaining forced Lock failures
	failReleases int // remaining forced Release failures
}

func NewFakeLocker() *FakeLocker {
	return &FakeLocker{locked: make(map[string]bool)}
}

// FailNextLocks makes the next n Lock calls return an error, for exercising
// the Executor's retry path on phase 3.
func (f *FakeLocker) FailNextLocks(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failLocks = n
}

func (f *FakeLocker) Lock(ctx context.Context, chainID uint64, user types.Address, token types.Address, amount *types.U256) (string, types.Hash, error) {
	f.mu.Lock()
	if f.failLocks > 0 {
		f.failLocks--
		f.mu.Unlock()
		return "", types.Hash{}, errLockFailed
	}
	f.mu.Unlock()

	n := atomic.AddInt64(&f.seq, 1)
	lockID := fmt.Sprintf("lock-%d", n)
	txHash := types.Hash(crypto.Keccak256Hash([]byte(lockID)))

	f.mu.Lock()
	f.locked[lockID] = true
	f.mu.Unlock()
	return lockID, txHash, nil
}

// IsLocked reports whether lockID is still held, for test assertions.
func (f *FakeLocker) IsLocked(lockID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locked[lockID]
}

func (f *FakeLocker) Release(ctx context.Context, chainID uint64, lockID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.locked[lockID] {
		return nil // idempotent: already released or never locked
	}
	delete(f.locked, lockID)
	return nil
}

var errLockFailed = fakeLockerError("source lock failed")

type fakeLockerError string

func (e fakeLockerError) Error() string { return string(e) }
