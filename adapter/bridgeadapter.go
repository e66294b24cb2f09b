package adapter

import (
	"context"
	"sort"
	"time"

	"github.com/orbitintent/core/message"
	"github.com/orbitintent/core/types"
)

// BridgeAdapter is the capability the core uses to move a message across
// chains; the actual bridge wire format is out of scope (spec §1).
type BridgeAdapter interface {
	Name() string
	SendMessage(ctx context.Context, env *message.Envelope) (messageID types.Hash, err error)
	// AbandonMessage signals that the Executor is giving up on this message
	// after a rollback (spec §4.5): the adapter may be optimistic about it
	// or require its own proof window before honoring the abandonment.
	AbandonMessage(ctx context.Context, messageID types.Hash) error
	VerifyDelivery(ctx context.Context, messageID types.Hash) (bool, error)
	GetProof(ctx context.Context, messageID types.Hash) ([]byte, error)
	EstimateFee(ctx context.Context, env *message.Envelope) (*types.U256, error)
	EstimateDeliveryTime(ctx context.Context, env *message.Envelope) (time.Duration, error)
}

// RouteStats summarizes a candidate bridge route's recent performance,
// feeding RouteScore's weighted selection.
type RouteStats struct {
	Adapter            BridgeAdapter
	ReliabilityScore   float64 // 0..1, recent successful-delivery rate
	EstimatedDeliverS  float64 // lower is better
	EstimatedCostUSD   float64 // lower is better
}

// RouteScore ranks candidate routes 0.4 reliability + 0.3 speed (inverse,
// normalized against the slowest candidate) + 0.3 cost (inverse, normalized
// against the most expensive candidate), returning the winner.
func RouteScore(routes []RouteStats) (BridgeAdapter, error) {
	if len(routes) == 0 {
		return nil, errNoRoutes
	}
	maxDeliver, maxCost := 0.0, 0.0
	for _, r := range routes {
		if r.EstimatedDeliverS > maxDeliver {
			maxDeliver = r.EstimatedDeliverS
		}
		if r.EstimatedCostUSD > maxCost {
			maxCost = r.EstimatedCostUSD
		}
	}

	type scored struct {
		route RouteStats
		score float64
	}
	out := make([]scored, len(routes))
	for i, r := range routes {
		speedInverse := 1.0
		if maxDeliver > 0 {
			speedInverse = 1 - r.EstimatedDeliverS/maxDeliver
		}
		costInverse := 1.0
		if maxCost > 0 {
			costInverse = 1 - r.EstimatedCostUSD/maxCost
		}
		out[i] = scored{
			route: r,
			score: 0.4*r.ReliabilityScore + 0.3*speedInverse + 0.3*costInverse,
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out[0].route.Adapter, nil
}

var errNoRoutes = bridgeError("no candidate bridge routes")

type bridgeError string

func (e bridgeError) Error() string { return string(e) }
