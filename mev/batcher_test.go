package mev

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitintent/core/types"
)

func TestBatcherFlushesFCFSOrderTieBrokenByCommitHash(t *testing.T) {
	b := NewBatcher(12 * time.Second)
	base := time.Unix(1_700_000_000, 0)

	hashLow := types256(1)
	hashHigh := types256(2)

	b.Add(PendingTrade{Arrival: base, CommitHash: hashHigh})
	b.Add(PendingTrade{Arrival: base, CommitHash: hashLow})
	b.Add(PendingTrade{Arrival: base.Add(1 * time.Second), CommitHash: hashLow})

	out := b.Flush(base.Add(2 * time.Second))
	require.Len(t, out, 3)
	assert.Equal(t, hashLow, out[0].CommitHash)
	assert.Equal(t, hashHigh, out[1].CommitHash)
	assert.Equal(t, base.Add(1*time.Second), out[2].Arrival)
}

func TestBatcherLeavesFutureTradesPending(t *testing.T) {
	b := NewBatcher(12 * time.Second)
	now := time.Unix(1_700_000_000, 0)
	b.Add(PendingTrade{Arrival: now.Add(30 * time.Second)})

	out := b.Flush(now)
	assert.Empty(t, out)
}

func TestWindowStartTruncatesDeterministically(t *testing.T) {
	b := NewBatcher(12 * time.Second)
	now := time.Unix(1_700_000_005, 0)
	start := b.WindowStart(now)
	assert.Equal(t, int64(0), start.Unix()%12)
}

func types256(b byte) types.Hash {
	var h types.Hash
	h[31] = b
	return h
}
