package executor

import (
	"context"

	"github.com/orbitintent/core/types"
)

// Locker is the source-chain lock contract capability phase 3 and its
// rollback depend on: it locks the user's source asset and, on rollback,
// releases it back to the user (spec §4.5).
type Locker interface {
	Lock(ctx context.Context, chainID uint64, user types.Address, token types.Address, amount *types.U256) (lockID string, txHash types.Hash, err error)
	Release(ctx context.Context, chainID uint64, lockID string) error
}
