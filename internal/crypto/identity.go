package crypto

import (
	"os"

	"github.com/pkg/errors"
)

// SavePrivateKey writes priv to path with 0600 permissions, generalizing
// bitservice-peer/src/bin/key-gen.rs's key file output.
func SavePrivateKey(path string, priv PrivateKey) error {
	return os.WriteFile(path, priv[:], 0o600)
}

// LoadPrivateKey reads a peer identity private key previously written by
// SavePrivateKey.
func LoadPrivateKey(path string) (PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PrivateKey{}, errors.Wrap(err, "reading private key file")
	}
	if len(data) != PrivateKeySize {
		return PrivateKey{}, errors.Errorf("private key file: expected %d bytes, got %d", PrivateKeySize, len(data))
	}
	var priv PrivateKey
	copy(priv[:], data)
	return priv, nil
}

// SavePublicKey writes pub to path, used to distribute a peer's public key
// to clients and fellow peers out of band.
func SavePublicKey(path string, pub PublicKey) error {
	return os.WriteFile(path, pub[:], 0o644)
}

// LoadPublicKey reads a public key file previously written by
// SavePublicKey.
func LoadPublicKey(path string) (PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PublicKey{}, errors.Wrap(err, "reading public key file")
	}
	if len(data) != PublicKeySize {
		return PublicKey{}, errors.Errorf("public key file: expected %d bytes, got %d", PublicKeySize, len(data))
	}
	var pub PublicKey
	copy(pub[:], data)
	return pub, nil
}
