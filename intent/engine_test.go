package intent_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/orbitintent/core/intent"
	"github.com/orbitintent/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alwaysValidVerifier struct{}

func (alwaysValidVerifier) Verify([]byte, []byte, types.Address) bool { return true }

func newTestIntent(user types.Address, now time.Time) *intent.Intent {
	return &intent.Intent{
		User:          user,
		SourceChainID: 1,
		DestChainID:   10,
		SourceToken:   common.HexToAddress("0xaaaa"),
		DestToken:     common.HexToAddress("0xbbbb"),
		SourceAmount:  types.U256FromUint64(1_000_000),
		MinDestAmount: types.U256FromUint64(900_000),
		Deadline:      now.Add(time.Hour).Unix(),
		Nonce:         1,
		Signature:     []byte("sig"),
	}
}

func newEngine() *intent.Engine {
	return intent.NewEngine(intent.NewMemoryRepository(), alwaysValidVerifier{}, nil)
}

func TestSubmitThenHappyPath(t *testing.T) {
	eng := newEngine()
	user := common.HexToAddress("0x1234")
	now := time.Now()

	id, err := eng.Submit(context.Background(), newTestIntent(user, now), now)
	require.NoError(t, err)

	solver := common.HexToAddress("0x5678")
	require.NoError(t, eng.MatchAndDispatch(context.Background(), id, solver, types.U256FromUint64(950_000), now))
	require.NoError(t, eng.RecordExecutionStart(context.Background(), id, now))
	require.NoError(t, eng.RecordCompletion(context.Background(), id, types.U256FromUint64(950_000), nil, now))
}

func TestMatchAndDispatchIdempotent(t *testing.T) {
	eng := newEngine()
	user := common.HexToAddress("0x1234")
	now := time.Now()
	id, err := eng.Submit(context.Background(), newTestIntent(user, now), now)
	require.NoError(t, err)

	solver := common.HexToAddress("0x5678")
	require.NoError(t, eng.MatchAndDispatch(context.Background(), id, solver, types.U256FromUint64(950_000), now))
	require.NoError(t, eng.MatchAndDispatch(context.Background(), id, solver, types.U256FromUint64(950_000), now))
}

func TestCancelOnlyFromPendingByOwner(t *testing.T) {
	eng := newEngine()
	user := common.HexToAddress("0x1234")
	other := common.HexToAddress("0x9999")
	now := time.Now()
	id, err := eng.Submit(context.Background(), newTestIntent(user, now), now)
	require.NoError(t, err)

	err = eng.Cancel(context.Background(), id, other, now)
	assert.Error(t, err)

	require.NoError(t, eng.Cancel(context.Background(), id, user, now))

	err = eng.Cancel(context.Background(), id, user, now)
	assert.Error(t, err)
}

func TestCompletionRejectsBelowMinimum(t *testing.T) {
	eng := newEngine()
	user := common.HexToAddress("0x1234")
	now := time.Now()
	id, err := eng.Submit(context.Background(), newTestIntent(user, now), now)
	require.NoError(t, err)

	solver := common.HexToAddress("0x5678")
	require.NoError(t, eng.MatchAndDispatch(context.Background(), id, solver, types.U256FromUint64(950_000), now))
	require.NoError(t, eng.RecordExecutionStart(context.Background(), id, now))

	err = eng.RecordCompletion(context.Background(), id, types.U256FromUint64(100), nil, now)
	assert.Error(t, err)
}

func TestExpireTickReapsDeadlinePassed(t *testing.T) {
	eng := newEngine()
	user := common.HexToAddress("0x1234")
	now := time.Now()
	draft := newTestIntent(user, now)
	draft.Deadline = now.Add(60 * time.Second).Unix()
	id, err := eng.Submit(context.Background(), draft, now)
	require.NoError(t, err)

	later := now.Add(61 * time.Second)
	n, err := eng.ExpireTick(context.Background(), later)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	err = eng.MatchAndDispatch(context.Background(), id, common.HexToAddress("0x5678"), types.ZeroU256(), later)
	assert.Error(t, err)
}

func TestSubmitRejectsZeroAmount(t *testing.T) {
	eng := newEngine()
	now := time.Now()
	draft := newTestIntent(common.HexToAddress("0x1234"), now)
	draft.SourceAmount = types.ZeroU256()
	_, err := eng.Submit(context.Background(), draft, now)
	assert.Error(t, err)
}

func TestSubmitRejectsNearDeadline(t *testing.T) {
	eng := newEngine()
	now := time.Now()
	draft := newTestIntent(common.HexToAddress("0x1234"), now)
	draft.Deadline = now.Unix()
	_, err := eng.Submit(context.Background(), draft, now)
	assert.Error(t, err)
}
