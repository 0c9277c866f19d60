// Package kem implements the hybrid key encapsulation mechanism (C4) used to
// derive the symmetric secret shared between a share's creator and its
// recipient: an ephemeral X25519 exchange combined with an ML-KEM-1024
// encapsulation under the recipient's long-term post-quantum public key.
//
// The two shared secrets are combined with plain SHA-256 over their
// concatenation (classical first, then post-quantum), not a transcript-bound
// XOF — see SPEC_FULL.md §4.4 for why this hybrid deliberately does not bind
// the combiner to a handshake transcript the way a session-oriented KEM
// would.
package kem

import (
	"crypto/ecdh"

	"github.com/cloudflare/circl/kem/mlkem/mlkem1024"

	"github.com/tomjoyce1/filevault/internal/constants"
	"github.com/tomjoyce1/filevault/internal/verrors"
	"github.com/tomjoyce1/filevault/pkg/primitives"
)

// KeyPair holds a recipient's long-term hybrid KEM key pair: an X25519 key
// pair for the classical half and an ML-KEM-1024 key pair for the
// post-quantum half.
type KeyPair struct {
	ClassicalPriv *ecdh.PrivateKey
	ClassicalPub  *ecdh.PublicKey
	PQPub         *mlkem1024.PublicKey
	PQPriv        *mlkem1024.PrivateKey
}

// GenerateKeyPair creates a fresh hybrid KEM key pair.
func GenerateKeyPair() (*KeyPair, error) {
	classicalPriv, err := ecdh.X25519().GenerateKey(primitives.Reader)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoRandFailed, "kem.GenerateKeyPair", err)
	}
	pqPub, pqPriv, err := mlkem1024.GenerateKeyPair(primitives.Reader)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoRandFailed, "kem.GenerateKeyPair", err)
	}
	return &KeyPair{
		ClassicalPriv: classicalPriv,
		ClassicalPub:  classicalPriv.PublicKey(),
		PQPub:         pqPub,
		PQPriv:        pqPriv,
	}, nil
}

// ClassicalPublicKeyBytes returns the 32-byte raw X25519 public key.
func (kp *KeyPair) ClassicalPublicKeyBytes() []byte {
	return kp.ClassicalPub.Bytes()
}

// PQPublicKeyBytes returns the 1568-byte encoded ML-KEM-1024 public key.
func (kp *KeyPair) PQPublicKeyBytes() []byte {
	buf := make([]byte, mlkem1024.PublicKeySize)
	kp.PQPub.Pack(buf)
	return buf
}

// PQPrivateKeyBytes returns the 3168-byte encoded ML-KEM-1024 private key.
func (kp *KeyPair) PQPrivateKeyBytes() []byte {
	buf := make([]byte, mlkem1024.PrivateKeySize)
	kp.PQPriv.Pack(buf)
	return buf
}

// ImportKeyPair reconstructs a hybrid KEM key pair from three raw
// encodings: the X25519 private key and the ML-KEM-1024 private and public
// keys. The X25519 public key is re-derived from the private key.
func ImportKeyPair(classicalPriv, pqPrivBytes, pqPubBytes []byte) (*KeyPair, error) {
	if len(classicalPriv) != constants.X25519PrivateKeySize {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "kem.ImportKeyPair", nil)
	}
	priv, err := ecdh.X25519().NewPrivateKey(classicalPriv)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "kem.ImportKeyPair", err)
	}

	pqPub, err := ParsePQPublicKey(pqPubBytes)
	if err != nil {
		return nil, err
	}
	if len(pqPrivBytes) != constants.MLKEMPrivateKeySize {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "kem.ImportKeyPair", nil)
	}
	pqPriv := new(mlkem1024.PrivateKey)
	if err := pqPriv.Unpack(pqPrivBytes); err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "kem.ImportKeyPair", err)
	}

	return &KeyPair{
		ClassicalPriv: priv,
		ClassicalPub:  priv.PublicKey(),
		PQPub:         pqPub,
		PQPriv:        pqPriv,
	}, nil
}

// ParsePQPublicKey decodes a recipient's ML-KEM-1024 public key from its
// wire bytes.
func ParsePQPublicKey(data []byte) (*mlkem1024.PublicKey, error) {
	if len(data) != constants.MLKEMPublicKeySize {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "kem.ParsePQPublicKey", nil)
	}
	pub := new(mlkem1024.PublicKey)
	if err := pub.Unpack(data); err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "kem.ParsePQPublicKey", err)
	}
	return pub, nil
}

// Encapsulate performs the sender side of the hybrid exchange against a
// recipient's long-term public keys: it generates a fresh ephemeral X25519
// key pair, runs ML-KEM-1024 encapsulation against recipientPQPub, and
// combines both shared secrets into the 32-byte secret the caller uses to
// wrap the file encryption key and metadata encryption key.
//
// It returns the ephemeral classical public key and the ML-KEM ciphertext,
// both of which the recipient needs to decapsulate, alongside the combined
// secret.
func Encapsulate(recipientClassicalPub, recipientPQPubBytes []byte) (ephemeralClassicalPub, pqCiphertext, sharedSecret []byte, err error) {
	if len(recipientClassicalPub) != constants.X25519PublicKeySize {
		return nil, nil, nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "kem.Encapsulate", nil)
	}
	recipientPQPub, err := ParsePQPublicKey(recipientPQPubBytes)
	if err != nil {
		return nil, nil, nil, err
	}
	recipientPub, err := ecdh.X25519().NewPublicKey(recipientClassicalPub)
	if err != nil {
		return nil, nil, nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "kem.Encapsulate", err)
	}

	ephemeralPriv, err := ecdh.X25519().GenerateKey(primitives.Reader)
	if err != nil {
		return nil, nil, nil, verrors.NewCryptoError(verrors.CryptoRandFailed, "kem.Encapsulate", err)
	}
	classicalSS, err := ephemeralPriv.ECDH(recipientPub)
	if err != nil {
		return nil, nil, nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "kem.Encapsulate", err)
	}

	seed, err := primitives.Random(mlkem1024.EncapsulationSeedSize)
	if err != nil {
		return nil, nil, nil, err
	}
	ct := make([]byte, mlkem1024.CiphertextSize)
	pqSS := make([]byte, mlkem1024.SharedKeySize)
	recipientPQPub.EncapsulateTo(ct, pqSS, seed)

	combined := combine(classicalSS, pqSS)
	primitives.WipeAll(classicalSS, pqSS, seed)
	return ephemeralPriv.PublicKey().Bytes(), ct, combined, nil
}

// Decapsulate performs the recipient side of the hybrid exchange: an ECDH
// against the sender's ephemeral classical public key plus an ML-KEM-1024
// decapsulation, combined the same way Encapsulate did.
func Decapsulate(kp *KeyPair, ephemeralClassicalPub, pqCiphertext []byte) ([]byte, error) {
	if len(ephemeralClassicalPub) != constants.X25519PublicKeySize {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "kem.Decapsulate", nil)
	}
	if len(pqCiphertext) != constants.MLKEMCiphertextSize {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "kem.Decapsulate", nil)
	}
	senderPub, err := ecdh.X25519().NewPublicKey(ephemeralClassicalPub)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "kem.Decapsulate", err)
	}
	classicalSS, err := kp.ClassicalPriv.ECDH(senderPub)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "kem.Decapsulate", err)
	}

	pqSS := make([]byte, mlkem1024.SharedKeySize)
	kp.PQPriv.DecapsulateTo(pqSS, pqCiphertext)

	combined := combine(classicalSS, pqSS)
	primitives.WipeAll(classicalSS, pqSS)
	return combined, nil
}

// combine folds the classical and post-quantum shared secrets into a single
// 32-byte secret via SHA-256(classical || pq).
func combine(classicalSS, pqSS []byte) []byte {
	buf := make([]byte, 0, len(classicalSS)+len(pqSS))
	buf = append(buf, classicalSS...)
	buf = append(buf, pqSS...)
	combined := primitives.SHA256(buf)
	primitives.Wipe(buf)
	return combined
}
