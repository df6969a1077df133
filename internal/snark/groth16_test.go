package snark

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TaceoLabs/bitservice/internal/wire"
)

// trivialVerifyingProof builds a Groth16-shaped (vk, proof) pair that
// satisfies the pairing equation by construction, without a trusted setup or
// a real circuit: vk.Alpha and IC[0] are left at the G1 identity, which
// makes the alpha/beta and vk_x/gamma pairing terms trivially 1 regardless
// of beta/gamma, and C is set equal to A with delta set equal to B, which
// makes e(C,delta) cancel e(A,B) exactly.
func trivialVerifyingProof(t *testing.T) (VerifyingKey, wire.Groth16Proof) {
	t.Helper()
	_, _, g1Gen, g2Gen := bn254.Generators()

	vk := VerifyingKey{
		Alpha: bn254.G1Affine{}, // identity
		Beta:  g2Gen,
		Gamma: g2Gen,
		Delta: g2Gen,
		IC:    []bn254.G1Affine{{}}, // identity, zero public inputs
	}
	proof := wire.Groth16Proof{
		A: wire.CompressedG1{G1Affine: g1Gen},
		B: wire.CompressedG2{G2Affine: g2Gen},
		C: wire.CompressedG1{G1Affine: g1Gen},
	}
	return vk, proof
}

func TestVerifyAcceptsIdentityConstructedProof(t *testing.T) {
	vk, proof := trivialVerifyingProof(t)
	err := Verify(vk, proof, nil)
	require.NoError(t, err)
}

func TestVerifyRejectsTamperedProof(t *testing.T) {
	vk, proof := trivialVerifyingProof(t)

	two := big.NewInt(2)
	proof.A.G1Affine.ScalarMultiplication(&proof.A.G1Affine, two)

	err := Verify(vk, proof, nil)
	assert.Error(t, err)
}

func TestVerifyRejectsWrongPublicInputCount(t *testing.T) {
	vk, proof := trivialVerifyingProof(t)
	vk.IC = append(vk.IC, bn254.G1Affine{})

	err := Verify(vk, proof, nil)
	assert.Error(t, err)
}
