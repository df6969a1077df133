// Package wire defines the canonical binary encodings and JSON wire types
// exchanged between client, coordinator and peer. Go has no ecosystem
// equivalent of Rust's `bincode`; the canonical share encoding below is
// therefore hand-rolled on top of encoding/binary (see DESIGN.md for why no
// third-party codec was a better fit for this exact boundary).
package wire

import (
	"bytes"
	"encoding/binary"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"
)

// KeyShare is one peer's replicated (2-of-3) binary share of a 32-bit user
// key: two ring elements, per spec.md section 4 ("32-bit key shares are two
// 32-bit ring elements per peer").
type KeyShare struct {
	Lo uint32
	Hi uint32
}

// FieldShare is one peer's replicated share of a field element: a pair of
// field elements, per spec.md section 6.
type FieldShare struct {
	Lo fr.Element
	Hi fr.Element
}

// EncodeKeyShare produces the canonical fixed-size encoding of a KeyShare:
// two little-endian uint32s.
func EncodeKeyShare(s KeyShare) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], s.Lo)
	binary.LittleEndian.PutUint32(buf[4:8], s.Hi)
	return buf
}

// DecodeKeyShare parses the canonical KeyShare encoding.
func DecodeKeyShare(data []byte) (KeyShare, error) {
	if len(data) != 8 {
		return KeyShare{}, errors.Errorf("key share: expected 8 bytes, got %d", len(data))
	}
	return KeyShare{
		Lo: binary.LittleEndian.Uint32(data[0:4]),
		Hi: binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}

// EncodeFieldShare produces the canonical fixed-size encoding of a
// FieldShare: two little-endian canonical field elements.
func EncodeFieldShare(s FieldShare) []byte {
	lo := s.Lo.Bytes()
	hi := s.Hi.Bytes()
	var buf bytes.Buffer
	buf.Write(reverse(lo[:]))
	buf.Write(reverse(hi[:]))
	return buf.Bytes()
}

// DecodeFieldShare parses the canonical FieldShare encoding.
func DecodeFieldShare(data []byte) (FieldShare, error) {
	const elemSize = fr.Bytes
	if len(data) != 2*elemSize {
		return FieldShare{}, errors.Errorf("field share: expected %d bytes, got %d", 2*elemSize, len(data))
	}
	var lo, hi fr.Element
	var loBytes, hiBytes [elemSize]byte
	copy(loBytes[:], reverse(data[:elemSize]))
	copy(hiBytes[:], reverse(data[elemSize:]))
	lo.SetBytes(loBytes[:])
	hi.SetBytes(hiBytes[:])
	return FieldShare{Lo: lo, Hi: hi}, nil
}

// reverse returns a little-endian copy of a big-endian canonical field
// element byte slice (gnark-crypto's Bytes() is big-endian; the wire format
// documented in spec.md section 6 is little-endian canonical bytes).
func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
