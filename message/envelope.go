// Package message implements the cross-chain message envelope's wire layout
// (spec §6): a fixed-header, variable-payload format whose message_id is a
// content hash over every other field, used by the Executor's bridge
// dispatch phase and verified bit-exact by the round-trip property in §8.
package message

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/orbitintent/core/types"
)

// Kind enumerates the envelope's payload discriminant.
type Kind uint8

const (
	KindIntentExec Kind = 0
	KindStateSync  Kind = 1
	KindTransfer   Kind = 2
	KindProof      Kind = 3
	KindAck        Kind = 4
)

// Envelope is the cross-chain message as defined in spec §6. MessageID is
// derived, never set directly by callers; use New to build one.
type Envelope struct {
	MessageID   types.Hash
	SourceChain uint64
	DestChain   uint64
	Sender      types.Address
	Receiver    types.Address
	Nonce       uint64
	Timestamp   uint64
	Expiry      uint64
	GasLimit    *types.U256
	Priority    uint8
	Kind        Kind
	Payload     []byte
}

// New builds an Envelope and computes its content-hash MessageID.
func New(sourceChain, destChain uint64, sender, receiver types.Address, nonce, timestamp, expiry uint64, gasLimit *types.U256, priority uint8, kind Kind, payload []byte) *Envelope {
	e := &Envelope{
		SourceChain: sourceChain,
		DestChain:   destChain,
		Sender:      sender,
		Receiver:    receiver,
		Nonce:       nonce,
		Timestamp:   timestamp,
		Expiry:      expiry,
		GasLimit:    gasLimit,
		Priority:    priority,
		Kind:        kind,
		Payload:     payload,
	}
	e.MessageID = e.computeID()
	return e
}

// fieldBytes returns the canonical byte layout of every field except
// MessageID itself, in the order given in spec §6.
func (e *Envelope) fieldBytes() []byte {
	out := make([]byte, 0, 8+8+20+20+8+8+8+32+1+1+4+len(e.Payload))
	out = types.PutUint64BE(out, e.SourceChain)
	out = types.PutUint64BE(out, e.DestChain)
	out = types.PutAddress(out, e.Sender)
	out = types.PutAddress(out, e.Receiver)
	out = types.PutUint64BE(out, e.Nonce)
	out = types.PutUint64BE(out, e.Timestamp)
	out = types.PutUint64BE(out, e.Expiry)
	gasLimit := e.GasLimit
	if gasLimit == nil {
		gasLimit = types.ZeroU256()
	}
	out = types.PutU256BE(out, gasLimit)
	out = append(out, e.Priority)
	out = append(out, uint8(e.Kind))
	out = types.PutUint32BE(out, uint32(len(e.Payload)))
	out = append(out, e.Payload...)
	return out
}

func (e *Envelope) computeID() types.Hash {
	return types.Hash(crypto.Keccak256Hash(e.fieldBytes()))
}

// Encode serializes the envelope to its wire form: MessageID followed by
// the canonical field bytes.
func (e *Envelope) Encode() []byte {
	body := e.fieldBytes()
	out := make([]byte, 0, 32+len(body))
	out = append(out, e.MessageID.Bytes()...)
	out = append(out, body...)
	return out
}

// Decode parses the wire form produced by Encode, verifying the embedded
// message_id matches the recomputed content hash.
func Decode(data []byte) (*Envelope, error) {
	const headerLen = 32 + 8 + 8 + 20 + 20 + 8 + 8 + 8 + 32 + 1 + 1 + 4
	if len(data) < headerLen {
		return nil, fmt.Errorf("message: truncated envelope: got %d bytes, need at least %d", len(data), headerLen)
	}

	e := &Envelope{}
	off := 0
	copy(e.MessageID[:], data[off:off+32])
	off += 32

	e.SourceChain = binary.BigEndian.Uint64(data[off : off+8])
	off += 8
	e.DestChain = binary.BigEndian.Uint64(data[off : off+8])
	off += 8
	copy(e.Sender[:], data[off:off+20])
	off += 20
	copy(e.Receiver[:], data[off:off+20])
	off += 20
	e.Nonce = binary.BigEndian.Uint64(data[off : off+8])
	off += 8
	e.Timestamp = binary.BigEndian.Uint64(data[off : off+8])
	off += 8
	e.Expiry = binary.BigEndian.Uint64(data[off : off+8])
	off += 8

	gasLimit := new(types.U256)
	gasLimit.SetBytes(data[off : off+32])
	e.GasLimit = gasLimit
	off += 32

	e.Priority = data[off]
	off++
	e.Kind = Kind(data[off])
	off++

	payloadLen := binary.BigEndian.Uint32(data[off : off+4])
	off += 4

	if uint32(len(data)-off) < payloadLen {
		return nil, fmt.Errorf("message: truncated payload: got %d bytes, need %d", len(data)-off, payloadLen)
	}
	e.Payload = append([]byte(nil), data[off:off+int(payloadLen)]...)

	want := e.computeID()
	if want != e.MessageID {
		return nil, fmt.Errorf("message: message_id mismatch: embedded %s, computed %s", e.MessageID.Hex(), want.Hex())
	}

	return e, nil
}
