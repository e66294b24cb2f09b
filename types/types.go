// Package types holds the primitives shared by every core package: chain
// addresses, 256-bit amounts, and the fixed-width big-endian encoding used by
// the intent content hash and the cross-chain message envelope.
package types

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Address is a 20-byte chain address, shared across every chain id the core
// touches (the core itself never interprets it beyond equality and sorting).
type Address = common.Address

// Hash is a 32-byte content hash (intent id, message id, pool id).
type Hash = common.Hash

// U256 is a 256-bit unsigned integer (uint256.Int, whose own methods wrap
// on overflow). The arithmetic helpers below saturate rather than wrap.
type U256 = uint256.Int

// ZeroU256 returns a fresh zero-valued U256.
func ZeroU256() *U256 { return new(uint256.Int) }

// U256FromUint64 builds a U256 from a native uint64.
func U256FromUint64(v uint64) *U256 { return new(uint256.Int).SetUint64(v) }

// AddSaturating returns a+b, clamped to the maximum U256 value on overflow
// instead of wrapping.
func AddSaturating(a, b *U256) *U256 {
	out := new(uint256.Int)
	if out.AddOverflow(a, b) {
		return new(uint256.Int).SetAllOne()
	}
	return out
}

// SubSaturating returns a-b, clamped to zero if b > a instead of wrapping.
func SubSaturating(a, b *U256) *U256 {
	if a.Lt(b) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(a, b)
}

// MulSaturating returns a*b, clamped to the maximum U256 value on overflow.
func MulSaturating(a, b *U256) *U256 {
	out := new(uint256.Int)
	if out.MulOverflow(a, b) {
		return new(uint256.Int).SetAllOne()
	}
	return out
}

// PutUint64BE appends v to dst as 8-byte big-endian, returning the extended
// slice.
func PutUint64BE(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

// PutUint32BE writes v into dst as 4-byte big-endian.
func PutUint32BE(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

// PutU256BE appends v as a fixed 32-byte big-endian encoding.
func PutU256BE(dst []byte, v *U256) []byte {
	var buf [32]byte
	v.WriteToSlice(buf[:])
	return append(dst, buf[:]...)
}

// PutAddress appends the 20-byte address.
func PutAddress(dst []byte, a Address) []byte {
	return append(dst, a.Bytes()...)
}
