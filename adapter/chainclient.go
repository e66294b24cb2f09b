// Package adapter defines the capability boundaries the core treats as
// collaborators rather than owning: ChainClient (RPC access to a chain),
// BridgeAdapter (cross-chain message transport), and a concrete
// SignatureVerifier. The core is oblivious to any specific chain's VM or
// bridge wire format (spec §1 Non-goals); these interfaces are the seam.
package adapter

import (
	"context"
	"time"

	"github.com/orbitintent/core/types"
)

// Well-known chain ids and their finality thresholds, in confirmations
// (spec §4.5's proof-verification contract).
const (
	ChainEthereum = 1
	ChainArbitrum = 42161
	ChainOptimism = 10
	ChainBase     = 8453
)

// FinalityThreshold returns the number of confirmations required before a
// dest-chain receipt is considered final, per spec §4.5.
func FinalityThreshold(chainID uint64) uint64 {
	switch chainID {
	case ChainEthereum:
		return 64
	case ChainArbitrum:
		return 20
	case ChainOptimism, ChainBase:
		return 120
	default:
		return 64
	}
}

// Receipt is the chain-agnostic view of a transaction's outcome the
// Executor needs.
type Receipt struct {
	TxHash      types.Hash
	BlockNumber uint64
	Success     bool
	Logs        [][]byte
}

// ChainClient is the capability the core uses to talk to a single chain; a
// concrete implementation wraps that chain's actual RPC client (out of
// scope for this core, spec §1).
type ChainClient interface {
	ChainID() uint64
	BlockNumber(ctx context.Context) (uint64, error)
	Receipt(ctx context.Context, txHash types.Hash) (*Receipt, error)
	Call(ctx context.Context, to types.Address, data []byte) ([]byte, error)
	SendRaw(ctx context.Context, signedTx []byte) (types.Hash, error)
	EstimateGas(ctx context.Context, to types.Address, data []byte) (uint64, error)
}

// AwaitFinality polls Receipt until the chain head has advanced far enough
// past the receipt's block to satisfy FinalityThreshold, or ctx is done.
func AwaitFinality(ctx context.Context, c ChainClient, txHash types.Hash, pollInterval time.Duration) (*Receipt, error) {
	for {
		receipt, err := c.Receipt(ctx, txHash)
		if err == nil && receipt != nil {
			head, err := c.BlockNumber(ctx)
			if err == nil && head >= receipt.BlockNumber+FinalityThreshold(c.ChainID()) {
				return receipt, nil
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
