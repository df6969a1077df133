package snark

import (
	"encoding/json"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/pkg/errors"

	"github.com/TaceoLabs/bitservice/internal/wire"
)

// circomVerifyingKey is the circom-json-compatible wire shape of a Groth16
// verifying key, mirroring the original_source's
// bitservice-types::groth16::Groth16VerificationKey. The client binary
// loads verifying keys in this JSON shape from files.
type circomVerifyingKey struct {
	Protocol string              `json:"protocol"`
	Curve    string              `json:"curve"`
	NPublic  int                 `json:"nPublic"`
	Alpha1   wire.CompressedG1   `json:"vk_alpha_1"`
	Beta2    wire.CompressedG2   `json:"vk_beta_2"`
	Gamma2   wire.CompressedG2   `json:"vk_gamma_2"`
	Delta2   wire.CompressedG2   `json:"vk_delta_2"`
	IC       []wire.CompressedG1 `json:"IC"`
}

// ParseVerifyingKey decodes a circom-json-compatible verifying key, as
// published alongside the read or write circuit's trusted setup.
func ParseVerifyingKey(data []byte) (VerifyingKey, error) {
	var raw circomVerifyingKey
	if err := json.Unmarshal(data, &raw); err != nil {
		return VerifyingKey{}, errors.Wrap(err, "snark: parsing verifying key")
	}
	if raw.Protocol != "groth16" {
		return VerifyingKey{}, errors.Errorf("snark: unsupported protocol %q", raw.Protocol)
	}
	if raw.Curve != "bn128" && raw.Curve != "bn254" {
		return VerifyingKey{}, errors.Errorf("snark: unsupported curve %q", raw.Curve)
	}
	if len(raw.IC) != raw.NPublic+1 {
		return VerifyingKey{}, errors.Errorf("snark: IC length %d does not match nPublic+1 %d", len(raw.IC), raw.NPublic+1)
	}

	ic := make([]bn254.G1Affine, len(raw.IC))
	for i, p := range raw.IC {
		ic[i] = p.G1Affine
	}
	return VerifyingKey{
		Alpha: raw.Alpha1.G1Affine,
		Beta:  raw.Beta2.G2Affine,
		Gamma: raw.Gamma2.G2Affine,
		Delta: raw.Delta2.G2Affine,
		IC:    ic,
	}, nil
}
