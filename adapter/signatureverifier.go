package adapter

import (
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/orbitintent/core/types"
)

// ECDSAVerifier implements intent.SignatureVerifier using go-ethereum's
// secp256k1 recovery over an EIP-191 personal-message digest. The ECDSA
// helpers themselves are treated as a capability (spec §1 Non-goals); this
// is the one concrete binding the core wires in by default.
type ECDSAVerifier struct{}

func NewECDSAVerifier() *ECDSAVerifier { return &ECDSAVerifier{} }

// Verify recovers the signer from an EIP-191-prefixed hash of fieldBytes and
// checks it against user. signature must be the 65-byte [R || S || V] form;
// V may be in {0, 1} or {27, 28}, and 27/28 are normalized to 0/1 before
// recovery.
func (v *ECDSAVerifier) Verify(fieldBytes []byte, signature []byte, user types.Address) bool {
	if len(signature) != 65 {
		return false
	}
	digest := accounts.TextHash(fieldBytes)

	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pubKey, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return false
	}
	recovered := crypto.PubkeyToAddress(*pubKey)
	return recovered == user
}
