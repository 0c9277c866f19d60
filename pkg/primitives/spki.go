package primitives

import (
	"github.com/tomjoyce1/filevault/internal/constants"
	"github.com/tomjoyce1/filevault/internal/verrors"
)

// Minimal X.509 SubjectPublicKeyInfo DER headers for the two 32-byte
// classical key families the bundle uses. Both encode to exactly 44 bytes:
// a 2-byte outer SEQUENCE header, a 7-byte AlgorithmIdentifier SEQUENCE, a
// 3-byte BIT STRING tag/length/unused-bits prefix, and the 32-byte raw key.
//
//	SEQUENCE (42 bytes content)
//	  SEQUENCE (OID, 5 bytes content)
//	    OID 1.3.101.110 (X25519) or 1.3.101.112 (Ed25519)
//	  BIT STRING (0 unused bits) || raw key (32 bytes)
var (
	x25519SPKIPrefix  = []byte{0x30, 0x2a, 0x30, 0x05, 0x06, 0x03, 0x2b, 0x65, 0x6e, 0x03, 0x21, 0x00}
	ed25519SPKIPrefix = []byte{0x30, 0x2a, 0x30, 0x05, 0x06, 0x03, 0x2b, 0x65, 0x70, 0x03, 0x21, 0x00}
)

func spkiPrefix(alg ClassicalAlg) ([]byte, error) {
	switch alg {
	case AlgX25519:
		return x25519SPKIPrefix, nil
	case AlgEd25519:
		return ed25519SPKIPrefix, nil
	default:
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "spkiPrefix", nil)
	}
}

// SPKIWrap wraps a 32-byte raw classical public key in its minimal SPKI DER
// envelope, producing exactly 44 bytes.
func SPKIWrap(alg ClassicalAlg, raw []byte) ([]byte, error) {
	if len(raw) != constants.RawClassicalKeySize {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "SPKIWrap", nil)
	}
	prefix, err := spkiPrefix(alg)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, constants.SPKIWrappedSize)
	out = append(out, prefix...)
	out = append(out, raw...)
	return out, nil
}

// SPKIUnwrap extracts the 32-byte raw key from a 44-byte SPKI DER blob.
func SPKIUnwrap(alg ClassicalAlg, der []byte) ([]byte, error) {
	if len(der) != constants.SPKIWrappedSize {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "SPKIUnwrap", nil)
	}
	prefix, err := spkiPrefix(alg)
	if err != nil {
		return nil, err
	}
	if !ConstantTimeCompare(der[:len(prefix)], prefix) {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "SPKIUnwrap", nil)
	}
	raw := make([]byte, constants.RawClassicalKeySize)
	copy(raw, der[len(prefix):])
	return raw, nil
}

// ImportClassicalPublicKey accepts either a 32-byte raw key or a 44-byte
// SPKI-wrapped key and always returns the 32-byte raw form, per the
// length-based auto-detection the bundle's import path requires.
func ImportClassicalPublicKey(alg ClassicalAlg, data []byte) ([]byte, error) {
	switch len(data) {
	case constants.RawClassicalKeySize:
		raw := make([]byte, constants.RawClassicalKeySize)
		copy(raw, data)
		return raw, nil
	case constants.SPKIWrappedSize:
		return SPKIUnwrap(alg, data)
	default:
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "ImportClassicalPublicKey", nil)
	}
}
