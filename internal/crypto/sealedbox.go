// Package crypto implements the sealed-box primitive used to encrypt each
// client share to its target peer's public key, and the peer's private-key
// identity used to unseal it.
//
// A sealed box is anonymous, one-shot authenticated encryption: the sender
// generates a fresh ephemeral keypair, NaCl-boxes the message to the
// recipient under (ephemeralPriv, recipientPub), and prepends the ephemeral
// public key to the ciphertext so the recipient can open it with only its
// own private key. It is built on golang.org/x/crypto/nacl/box in the style
// of libsodium's crypto_box_seal, but draws a random nonce and carries it
// after the ephemeral public key, so its ciphertexts are not byte-compatible
// with crypto_box_seal.
package crypto

import (
	"crypto/rand"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/box"
)

const (
	PublicKeySize  = 32
	PrivateKeySize = 32
	overhead       = box.Overhead + 24 // poly1305 tag + nonce
)

// PublicKey is a peer's sealed-box recipient public key.
type PublicKey [PublicKeySize]byte

// PrivateKey is a peer's sealed-box identity private key. It must never be
// logged, serialized, or copied beyond the file it was loaded from.
type PrivateKey [PrivateKeySize]byte

// KeyPair is a freshly generated identity.
type KeyPair struct {
	Public  PublicKey
	Private PrivateKey
}

// GenerateKeyPair creates a new peer identity keypair.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, errors.Wrap(err, "generating sealed-box keypair")
	}
	return KeyPair{Public: PublicKey(*pub), Private: PrivateKey(*priv)}, nil
}

// Seal anonymously encrypts message to recipient's public key. The
// ephemeral public key is prepended to the returned ciphertext.
func Seal(message []byte, recipient PublicKey) ([]byte, error) {
	ephPub, ephPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "generating ephemeral keypair")
	}

	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, errors.Wrap(err, "generating nonce")
	}

	recipientKey := [32]byte(recipient)
	sealed := box.Seal(nonce[:], message, &nonce, &recipientKey, ephPriv)
	out := make([]byte, 0, PublicKeySize+len(sealed))
	out = append(out, ephPub[:]...)
	out = append(out, sealed...)
	return out, nil
}

// Unseal opens a sealed box addressed to the holder of recipientPrivate.
func Unseal(sealed []byte, recipientPrivate PrivateKey) ([]byte, error) {
	if len(sealed) < PublicKeySize+24 {
		return nil, errors.New("sealed box too short")
	}
	var ephPub [32]byte
	copy(ephPub[:], sealed[:PublicKeySize])

	rest := sealed[PublicKeySize:]
	if len(rest) < 24 {
		return nil, errors.New("sealed box missing nonce")
	}
	var nonce [24]byte
	copy(nonce[:], rest[:24])
	ciphertext := rest[24:]

	privateKey := [32]byte(recipientPrivate)
	opened, ok := box.Open(nil, ciphertext, &nonce, &ephPub, &privateKey)
	if !ok {
		return nil, errors.New("failed to open sealed box: authentication failed")
	}
	return opened, nil
}
