package adapter

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitintent/core/types"
)

func TestECDSAVerifierAcceptsValidSignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	fields := []byte("intent fields to sign")
	digest := accounts.TextHash(fields)
	sig, err := crypto.Sign(digest, key)
	require.NoError(t, err)

	v := NewECDSAVerifier()
	assert.True(t, v.Verify(fields, sig, addr))
}

func TestECDSAVerifierRejectsWrongSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	otherAddr := crypto.PubkeyToAddress(other.PublicKey)

	fields := []byte("intent fields to sign")
	digest := accounts.TextHash(fields)
	sig, err := crypto.Sign(digest, key)
	require.NoError(t, err)

	v := NewECDSAVerifier()
	assert.False(t, v.Verify(fields, sig, otherAddr))
}

func TestECDSAVerifierRejectsMalformedSignature(t *testing.T) {
	v := NewECDSAVerifier()
	assert.False(t, v.Verify([]byte("fields"), []byte("short"), types.Address{}))
}
