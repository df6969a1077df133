package wire

import (
	"encoding/base64"

	"github.com/TaceoLabs/bitservice/internal/bserror"
	"github.com/TaceoLabs/bitservice/internal/crypto"
)

// SealKeyShare canonically encodes then seals a KeyShare to peer, returning
// the base64-standard-encoded envelope string that rides the wire.
func SealKeyShare(s KeyShare, peer crypto.PublicKey) (string, error) {
	return sealAndEncode(EncodeKeyShare(s), peer)
}

// SealFieldShare canonically encodes then seals a FieldShare to peer.
func SealFieldShare(s FieldShare, peer crypto.PublicKey) (string, error) {
	return sealAndEncode(EncodeFieldShare(s), peer)
}

func sealAndEncode(plain []byte, peer crypto.PublicKey) (string, error) {
	sealed, err := crypto.Seal(plain, peer)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// OpenKeyShare base64-decodes, unseals and canonically decodes an envelope
// into a KeyShare. field names the offending request field for error
// reporting, matching spec.md section 4.3 step 1.
func OpenKeyShare(envelope string, priv crypto.PrivateKey, field string) (KeyShare, error) {
	plain, err := openAndDecode(envelope, priv, field)
	if err != nil {
		return KeyShare{}, err
	}
	share, err := DecodeKeyShare(plain)
	if err != nil {
		return KeyShare{}, bserror.Wrap(bserror.BadRequest, err, "decoding key share").WithField(field)
	}
	return share, nil
}

// OpenFieldShare base64-decodes, unseals and canonically decodes an
// envelope into a FieldShare.
func OpenFieldShare(envelope string, priv crypto.PrivateKey, field string) (FieldShare, error) {
	plain, err := openAndDecode(envelope, priv, field)
	if err != nil {
		return FieldShare{}, err
	}
	share, err := DecodeFieldShare(plain)
	if err != nil {
		return FieldShare{}, bserror.Wrap(bserror.BadRequest, err, "decoding field share").WithField(field)
	}
	return share, nil
}

func openAndDecode(envelope string, priv crypto.PrivateKey, field string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, bserror.Wrap(bserror.BadRequest, err, "base64-decoding envelope").WithField(field)
	}
	plain, err := crypto.Unseal(sealed, priv)
	if err != nil {
		return nil, bserror.Wrap(bserror.BadRequest, err, "unsealing envelope").WithField(field)
	}
	return plain, nil
}
