package message_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/orbitintent/core/message"
	"github.com/orbitintent/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	sender := common.HexToAddress("0x1111111111111111111111111111111111111111")
	receiver := common.HexToAddress("0x2222222222222222222222222222222222222222")
	gasLimit := types.U256FromUint64(21000)

	env := message.New(1, 10, sender, receiver, 7, 1_700_000_000, 1_700_003_600, gasLimit, 200, message.KindIntentExec, []byte("payload-bytes"))

	encoded := env.Encode()
	decoded, err := message.Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, env.MessageID, decoded.MessageID)
	assert.Equal(t, encoded, decoded.Encode())
	assert.Equal(t, env.SourceChain, decoded.SourceChain)
	assert.Equal(t, env.DestChain, decoded.DestChain)
	assert.Equal(t, env.Payload, decoded.Payload)
}

func TestDecodeRejectsTamperedMessageID(t *testing.T) {
	sender := common.HexToAddress("0x1111111111111111111111111111111111111111")
	receiver := common.HexToAddress("0x2222222222222222222222222222222222222222")
	env := message.New(1, 10, sender, receiver, 1, 1, 2, types.ZeroU256(), 0, message.KindAck, nil)
	encoded := env.Encode()
	encoded[0] ^= 0xFF

	_, err := message.Decode(encoded)
	assert.Error(t, err)
}

func TestDecodeRejectsTruncated(t *testing.T) {
	_, err := message.Decode([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestEmptyPayloadRoundTrip(t *testing.T) {
	sender := common.HexToAddress("0x1111111111111111111111111111111111111111")
	receiver := common.HexToAddress("0x2222222222222222222222222222222222222222")
	env := message.New(5, 5, sender, receiver, 0, 0, 0, types.ZeroU256(), 0, message.KindStateSync, nil)
	decoded, err := message.Decode(env.Encode())
	require.NoError(t, err)
	assert.Empty(t, decoded.Payload)
}
