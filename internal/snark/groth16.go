// Package snark verifies the Groth16 proofs peers attach to every read and
// write response, binding each operation to the published commitment and
// Merkle root. It is a thin adapter over gnark-crypto's bn254 pairing
// primitives: bitservice does not prove circuits (that is the peers'
// MPC-SNARK prover, out of scope here), it only checks the pairing equation
// a verifier needs, mirroring the original_source's `r1cs::verify` calls in
// bitservice-client/src/lib.rs.
package snark

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"

	"github.com/TaceoLabs/bitservice/internal/wire"
)

// VerifyingKey is the circom-style Groth16 verifying key: alpha in G1, beta
// and gamma and delta in G2, plus one G1 input-commitment point (ic) per
// public input (including the constant-one input at index 0).
type VerifyingKey struct {
	Alpha bn254.G1Affine
	Beta  bn254.G2Affine
	Gamma bn254.G2Affine
	Delta bn254.G2Affine
	IC    []bn254.G1Affine
}

// Verify checks proof against vk for the given public inputs, in the order
// the circuit declares them. It returns nil if and only if the proof is
// valid.
func Verify(vk VerifyingKey, proof wire.Groth16Proof, publicInputs []fr.Element) error {
	if len(publicInputs)+1 != len(vk.IC) {
		return errors.Errorf("snark: expected %d public inputs, got %d", len(vk.IC)-1, len(publicInputs))
	}

	// vk_x = IC[0] + sum_i publicInputs[i] * IC[i+1]
	vkX := vk.IC[0]
	for i, input := range publicInputs {
		var term bn254.G1Affine
		var inputBig big.Int
		input.BigInt(&inputBig)
		term.ScalarMultiplication(&vk.IC[i+1], &inputBig)
		vkX.Add(&vkX, &term)
	}

	// Groth16 pairing check:
	//   e(A, B) == e(alpha, beta) * e(vk_x, gamma) * e(C, delta)
	// rearranged as e(A,B) * e(-alpha,beta) * e(-vk_x,gamma) * e(-C,delta) == 1
	var negAlpha, negVkX, negC bn254.G1Affine
	negAlpha.Neg(&vk.Alpha)
	negVkX.Neg(&vkX)
	negC.Neg(&proof.C.G1Affine)

	ok, err := bn254.PairingCheck(
		[]bn254.G1Affine{proof.A.G1Affine, negAlpha, negVkX, negC},
		[]bn254.G2Affine{proof.B.G2Affine, vk.Beta, vk.Gamma, vk.Delta},
	)
	if err != nil {
		return errors.Wrap(err, "snark: pairing check")
	}
	if !ok {
		return errors.New("snark: proof does not verify")
	}
	return nil
}
