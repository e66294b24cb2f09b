package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteCacheReturnsSameValueWithinTTL(t *testing.T) {
	p := newTestPool(t)
	tok0, tok1 := testAddr(1), testAddr(2)
	qc := NewQuoteCache(p, time.Minute)

	first, err := qc.Quote(tok0, tok1, u64(10_000))
	require.NoError(t, err)

	second, err := qc.Quote(tok0, tok1, u64(10_000))
	require.NoError(t, err)
	assert.Equal(t, first.Dec(), second.Dec())
}

func TestQuoteCacheInvalidateForcesRecompute(t *testing.T) {
	p := newTestPool(t)
	tok0, tok1 := testAddr(1), testAddr(2)
	qc := NewQuoteCache(p, time.Minute)

	_, err := qc.Quote(tok0, tok1, u64(10_000))
	require.NoError(t, err)

	_, err = p.Swap(tok0, tok1, u64(10_000), u64(1), testAddr(9), time.Now())
	require.NoError(t, err)
	qc.Invalidate()

	after, err := qc.Quote(tok0, tok1, u64(10_000))
	require.NoError(t, err)
	assert.NotNil(t, after)
}
