package wire

import (
	"encoding/hex"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"
)

// FieldElement is a JSON-friendly wrapper around fr.Element: it marshals as
// the little-endian canonical hex encoding described in spec.md section 6.
type FieldElement struct {
	fr.Element
}

func NewFieldElement(e fr.Element) FieldElement { return FieldElement{e} }

func (f FieldElement) MarshalJSON() ([]byte, error) {
	b := f.Element.Bytes() // big-endian canonical
	le := reverse(b[:])
	return []byte(`"` + hex.EncodeToString(le) + `"`), nil
}

func (f *FieldElement) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("field element: expected JSON string")
	}
	le, err := hex.DecodeString(string(data[1 : len(data)-1]))
	if err != nil {
		return errors.Wrap(err, "field element: invalid hex")
	}
	be := reverse(le)
	var buf [fr.Bytes]byte
	copy(buf[:], be)
	f.Element.SetBytes(buf[:])
	return nil
}

// Groth16Proof is the wire representation of a Groth16 SNARK proof: three
// curve points (A, C in G1, B in G2), each canonically compressed, matching
// spec.md section 6's proof wire format and the original_source's
// bitservice-types::groth16::Groth16Proof layout (pi_a/pi_b/pi_c).
type Groth16Proof struct {
	A CompressedG1 `json:"pi_a"`
	B CompressedG2 `json:"pi_b"`
	C CompressedG1 `json:"pi_c"`
}

// CompressedG1 is the canonical-compressed encoding of a bn254.G1Affine
// point, hex-encoded for JSON transport.
type CompressedG1 struct {
	bn254.G1Affine
}

func (p CompressedG1) MarshalJSON() ([]byte, error) {
	b := p.G1Affine.Bytes()
	return []byte(`"` + hex.EncodeToString(b[:]) + `"`), nil
}

func (p *CompressedG1) UnmarshalJSON(data []byte) error {
	if len(data) < 2 {
		return errors.New("g1: expected JSON string")
	}
	raw, err := hex.DecodeString(string(data[1 : len(data)-1]))
	if err != nil {
		return errors.Wrap(err, "g1: invalid hex")
	}
	var buf [bn254.SizeOfG1AffineCompressed]byte
	copy(buf[:], raw)
	_, err = p.G1Affine.SetBytes(buf[:])
	return err
}

// CompressedG2 is the canonical-compressed encoding of a bn254.G2Affine
// point, hex-encoded for JSON transport.
type CompressedG2 struct {
	bn254.G2Affine
}

func (p CompressedG2) MarshalJSON() ([]byte, error) {
	b := p.G2Affine.Bytes()
	return []byte(`"` + hex.EncodeToString(b[:]) + `"`), nil
}

func (p *CompressedG2) UnmarshalJSON(data []byte) error {
	if len(data) < 2 {
		return errors.New("g2: expected JSON string")
	}
	raw, err := hex.DecodeString(string(data[1 : len(data)-1]))
	if err != nil {
		return errors.Wrap(err, "g2: invalid hex")
	}
	var buf [bn254.SizeOfG2AffineCompressed]byte
	copy(buf[:], raw)
	_, err = p.G2Affine.SetBytes(buf[:])
	return err
}
