package mev

import (
	"bytes"
	"sort"
	"time"

	"github.com/orbitintent/core/types"
)

// DefaultBatchWindow is the fair-ordering batch window (spec §4.2).
const DefaultBatchWindow = 12 * time.Second

// PendingTrade is one trade awaiting delivery to the Orbital Pool within a
// fair-ordering batch.
type PendingTrade struct {
	Arrival    time.Time
	CommitHash types.Hash
	Payload    any
}

// Batcher collects pending trades into deterministic wall-clock-rounded
// windows and delivers them FCFS by arrival, tie-broken by commit hash
// (spec §4.2).
type Batcher struct {
	window  time.Duration
	pending []PendingTrade
}

func NewBatcher(window time.Duration) *Batcher {
	if window <= 0 {
		window = DefaultBatchWindow
	}
	return &Batcher{window: window}
}

// WindowStart rounds now down to the batcher's deterministic window boundary.
func (b *Batcher) WindowStart(now time.Time) time.Time {
	return now.Truncate(b.window)
}

// Add enqueues a trade for the next flush.
func (b *Batcher) Add(t PendingTrade) {
	b.pending = append(b.pending, t)
}

// Flush returns all pending trades whose arrival falls at or before
// windowEnd, in FCFS order (arrival timestamp, then commit hash
// lexicographically), removing them from the pending set.
func (b *Batcher) Flush(windowEnd time.Time) []PendingTrade {
	var ready, remaining []PendingTrade
	for _, t := range b.pending {
		if !t.Arrival.After(windowEnd) {
			ready = append(ready, t)
		} else {
			remaining = append(remaining, t)
		}
	}
	b.pending = remaining

	sort.SliceStable(ready, func(i, j int) bool {
		if !ready[i].Arrival.Equal(ready[j].Arrival) {
			return ready[i].Arrival.Before(ready[j].Arrival)
		}
		return bytes.Compare(ready[i].CommitHash.Bytes(), ready[j].CommitHash.Bytes()) < 0
	})
	return ready
}
