package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteScorePicksMostReliableCheapestFastestRoute(t *testing.T) {
	best := NewFakeBridgeAdapter("best")
	slow := NewFakeBridgeAdapter("slow")
	expensive := NewFakeBridgeAdapter("expensive")

	winner, err := RouteScore([]RouteStats{
		{Adapter: best, ReliabilityScore: 0.99, EstimatedDeliverS: 30, EstimatedCostUSD: 1},
		{Adapter: slow, ReliabilityScore: 0.99, EstimatedDeliverS: 600, EstimatedCostUSD: 1},
		{Adapter: expensive, ReliabilityScore: 0.99, EstimatedDeliverS: 30, EstimatedCostUSD: 500},
	})
	require.NoError(t, err)
	assert.Equal(t, "best", winner.Name())
}

func TestRouteScorePrefersHigherReliabilityAtEqualSpeedAndCost(t *testing.T) {
	reliable := NewFakeBridgeAdapter("reliable")
	flaky := NewFakeBridgeAdapter("flaky")

	winner, err := RouteScore([]RouteStats{
		{Adapter: reliable, ReliabilityScore: 0.95, EstimatedDeliverS: 60, EstimatedCostUSD: 5},
		{Adapter: flaky, ReliabilityScore: 0.40, EstimatedDeliverS: 60, EstimatedCostUSD: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, "reliable", winner.Name())
}

func TestRouteScoreRejectsEmptyCandidateList(t *testing.T) {
	_, err := RouteScore(nil)
	assert.Error(t, err)
}
