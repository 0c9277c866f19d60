// Package signer implements the hybrid digital signature primitive (C3):
// a classical Ed25519 signer and a post-quantum ML-DSA-87 signer, each
// satisfying the same Signer capability so callers that need a dual
// signature (pkg/filecrypto, pkg/authproto) can treat both variants
// uniformly.
package signer

import (
	"crypto/ed25519"

	"github.com/cloudflare/circl/sign/mldsa/mldsa87"

	"github.com/tomjoyce1/filevault/internal/constants"
	"github.com/tomjoyce1/filevault/internal/verrors"
	"github.com/tomjoyce1/filevault/pkg/primitives"
)

// Signer is the capability every variant in this package satisfies.
type Signer interface {
	Sign(msg []byte) ([]byte, error)
	Public() []byte
}

// ClassicalKeyPair wraps an Ed25519 key pair. The private key uses the
// stdlib's seed‖public 64-byte layout directly — it is already bit-identical
// to the wire format the bundle expects.
type ClassicalKeyPair struct {
	priv ed25519.PrivateKey
}

// GenerateClassicalKeyPair creates a fresh Ed25519 key pair.
func GenerateClassicalKeyPair() (*ClassicalKeyPair, error) {
	_, priv, err := ed25519.GenerateKey(primitives.Reader)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoRandFailed, "GenerateClassicalKeyPair", err)
	}
	return &ClassicalKeyPair{priv: priv}, nil
}

// LoadClassicalPrivate loads a 64-byte Ed25519 private key (seed‖public) and
// re-derives the public half from the embedded seed.
func LoadClassicalPrivate(raw []byte) (*ClassicalKeyPair, error) {
	if len(raw) != constants.Ed25519PrivateKeySize {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "LoadClassicalPrivate", nil)
	}
	priv := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	copy(priv, raw)
	// Re-derive the public half from the seed rather than trusting the
	// embedded suffix, matching the classical re-derivation invariant.
	seed := priv.Seed()
	derived := ed25519.NewKeyFromSeed(seed)
	return &ClassicalKeyPair{priv: derived}, nil
}

// Sign produces a 64-byte Ed25519 signature over msg.
func (kp *ClassicalKeyPair) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(kp.priv, msg), nil
}

// Public returns the 32-byte Ed25519 public key.
func (kp *ClassicalKeyPair) Public() []byte {
	pub, ok := kp.priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil
	}
	return []byte(pub)
}

// Private returns the raw 64-byte private key (seed‖public).
func (kp *ClassicalKeyPair) Private() []byte {
	return []byte(kp.priv)
}

// VerifyClassical is total: malformed key or signature lengths return false
// rather than erroring or panicking.
func VerifyClassical(pub, msg, sig []byte) bool {
	if len(pub) != constants.Ed25519PublicKeySize || len(sig) != constants.Ed25519SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}

// PostQuantumKeyPair wraps an ML-DSA-87 key pair.
type PostQuantumKeyPair struct {
	priv *mldsa87.PrivateKey
	pub  *mldsa87.PublicKey
}

// GeneratePostQuantumKeyPair creates a fresh ML-DSA-87 key pair.
func GeneratePostQuantumKeyPair() (*PostQuantumKeyPair, error) {
	pub, priv, err := mldsa87.GenerateKey(primitives.Reader)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoRandFailed, "GeneratePostQuantumKeyPair", err)
	}
	return &PostQuantumKeyPair{priv: priv, pub: pub}, nil
}

// LoadPostQuantumPrivate loads an ML-DSA-87 key pair from its canonical
// private and public encodings. Unlike the classical scheme, ML-DSA-87
// cannot cheaply re-derive its public half from the private encoding alone,
// so callers that import a stored bundle must supply both halves together.
func LoadPostQuantumPrivate(rawPriv, rawPub []byte) (*PostQuantumKeyPair, error) {
	if len(rawPriv) != constants.MLDSA87PrivateKeySize {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "LoadPostQuantumPrivate", nil)
	}
	priv := new(mldsa87.PrivateKey)
	if err := priv.UnmarshalBinary(rawPriv); err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "LoadPostQuantumPrivate", err)
	}
	pub, err := LoadPostQuantumPublic(rawPub)
	if err != nil {
		return nil, err
	}
	return &PostQuantumKeyPair{priv: priv, pub: pub}, nil
}

// LoadPostQuantumPublic loads an ML-DSA-87 public key from its canonical
// encoding, for verification only.
func LoadPostQuantumPublic(raw []byte) (*mldsa87.PublicKey, error) {
	if len(raw) != constants.MLDSA87PublicKeySize {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "LoadPostQuantumPublic", nil)
	}
	pub := new(mldsa87.PublicKey)
	if err := pub.UnmarshalBinary(raw); err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "LoadPostQuantumPublic", err)
	}
	return pub, nil
}

// Sign produces an ML-DSA-87 signature over msg (no context string, pure
// mode).
func (kp *PostQuantumKeyPair) Sign(msg []byte) ([]byte, error) {
	sig := make([]byte, mldsa87.SignatureSize)
	if err := mldsa87.SignTo(kp.priv, msg, nil, false, sig); err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoSignFailed, "PostQuantumKeyPair.Sign", err)
	}
	return sig, nil
}

// Private returns the canonical encoding of the private key.
func (kp *PostQuantumKeyPair) Private() []byte {
	b, err := kp.priv.MarshalBinary()
	if err != nil {
		return nil
	}
	return b
}

// Public returns the canonical encoding of the public key, or nil if this
// key pair was loaded from a private-only encoding.
func (kp *PostQuantumKeyPair) Public() []byte {
	if kp.pub == nil {
		return nil
	}
	b, err := kp.pub.MarshalBinary()
	if err != nil {
		return nil
	}
	return b
}

// VerifyPostQuantum is total: malformed key or signature lengths return
// false rather than erroring.
func VerifyPostQuantum(pub, msg, sig []byte) bool {
	if len(pub) != constants.MLDSA87PublicKeySize || len(sig) != constants.MLDSA87SignatureSize {
		return false
	}
	pubKey := new(mldsa87.PublicKey)
	if err := pubKey.UnmarshalBinary(pub); err != nil {
		return false
	}
	return mldsa87.Verify(pubKey, msg, nil, sig)
}
