// Package keybundle implements the identity key bundle (C5): the four key
// pairs a registered user owns (classical KEM, classical signing,
// post-quantum KEM, post-quantum signing), their JSON wire encodings, and
// the public/private round-trip import path.
package keybundle

import (
	"encoding/json"

	"github.com/tomjoyce1/filevault/internal/verrors"
	"github.com/tomjoyce1/filevault/pkg/kem"
	"github.com/tomjoyce1/filevault/pkg/primitives"
	"github.com/tomjoyce1/filevault/pkg/signer"
)

// KeyBundle composes one hybrid KEM key pair and one hybrid signer key pair
// into the single identity a registered user owns.
type KeyBundle struct {
	KEM    *kem.KeyPair
	Signer struct {
		Classical   *signer.ClassicalKeyPair
		PostQuantum *signer.PostQuantumKeyPair
	}
}

type preQuantumPublic struct {
	IdentityKemPublicKey     string `json:"identityKemPublicKey"`
	IdentitySigningPublicKey string `json:"identitySigningPublicKey"`
}

type postQuantumPublic struct {
	IdentityKemPublicKey     string `json:"identityKemPublicKey"`
	IdentitySigningPublicKey string `json:"identitySigningPublicKey"`
}

// PublicBundle is the wire JSON layout for a bundle's public half — what a
// user publishes and what sharers fetch for a recipient.
type PublicBundle struct {
	PreQuantum  preQuantumPublic  `json:"preQuantum"`
	PostQuantum postQuantumPublic `json:"postQuantum"`
}

type preQuantumPrivate struct {
	preQuantumPublic
	IdentityKemPrivateKey     string `json:"identityKemPrivateKey"`
	IdentitySigningPrivateKey string `json:"identitySigningPrivateKey"`
}

type postQuantumPrivate struct {
	postQuantumPublic
	IdentityKemPrivateKey     string `json:"identityKemPrivateKey"`
	IdentitySigningPrivateKey string `json:"identitySigningPrivateKey"`
}

// PrivateBundle is the full wire JSON layout, used only in memory and in the
// encrypted local client store — it is never sent to the server.
type PrivateBundle struct {
	PreQuantum  preQuantumPrivate  `json:"preQuantum"`
	PostQuantum postQuantumPrivate `json:"postQuantum"`
}

// GenerateKeyBundle creates a brand-new identity: a fresh hybrid KEM key
// pair and a fresh hybrid signer key pair.
func GenerateKeyBundle() (*KeyBundle, error) {
	kemPair, err := kem.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	classical, err := signer.GenerateClassicalKeyPair()
	if err != nil {
		return nil, err
	}
	pq, err := signer.GeneratePostQuantumKeyPair()
	if err != nil {
		return nil, err
	}
	kb := &KeyBundle{KEM: kemPair}
	kb.Signer.Classical = classical
	kb.Signer.PostQuantum = pq
	return kb, nil
}

// ToPublicJSON renders the bundle's public half.
func (kb *KeyBundle) ToPublicJSON() ([]byte, error) {
	wrappedClassicalKem, err := primitives.SPKIWrap(primitives.AlgX25519, kb.KEM.ClassicalPublicKeyBytes())
	if err != nil {
		return nil, err
	}
	wrappedSigningPub, err := primitives.SPKIWrap(primitives.AlgEd25519, kb.Signer.Classical.Public())
	if err != nil {
		return nil, err
	}

	pub := PublicBundle{
		PreQuantum: preQuantumPublic{
			IdentityKemPublicKey:     primitives.Base64Encode(wrappedClassicalKem),
			IdentitySigningPublicKey: primitives.Base64Encode(wrappedSigningPub),
		},
		PostQuantum: postQuantumPublic{
			IdentityKemPublicKey:     primitives.Base64Encode(kb.KEM.PQPublicKeyBytes()),
			IdentitySigningPublicKey: primitives.Base64Encode(kb.Signer.PostQuantum.Public()),
		},
	}
	return json.Marshal(pub)
}

// ToPrivateJSON renders the bundle's full private layout, including all four
// private keys.
func (kb *KeyBundle) ToPrivateJSON() ([]byte, error) {
	pubJSON, err := kb.ToPublicJSON()
	if err != nil {
		return nil, err
	}
	var pub PublicBundle
	if err := json.Unmarshal(pubJSON, &pub); err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "ToPrivateJSON", err)
	}

	priv := PrivateBundle{
		PreQuantum: preQuantumPrivate{
			preQuantumPublic:          pub.PreQuantum,
			IdentityKemPrivateKey:     primitives.Base64Encode(kb.KEM.ClassicalPriv.Bytes()),
			IdentitySigningPrivateKey: primitives.Base64Encode(kb.Signer.Classical.Private()),
		},
		PostQuantum: postQuantumPrivate{
			postQuantumPublic:        pub.PostQuantum,
			IdentityKemPrivateKey:     primitives.Base64Encode(kb.KEM.PQPrivateKeyBytes()),
			IdentitySigningPrivateKey: primitives.Base64Encode(kb.Signer.PostQuantum.Private()),
		},
	}
	return json.Marshal(priv)
}

// ImportKeyBundle reconstructs a KeyBundle from its full private JSON
// layout.
func ImportKeyBundle(data []byte) (*KeyBundle, error) {
	var priv PrivateBundle
	if err := json.Unmarshal(data, &priv); err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "ImportKeyBundle", err)
	}

	classicalKemPriv, err := primitives.Base64Decode(priv.PreQuantum.IdentityKemPrivateKey)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "ImportKeyBundle", err)
	}
	pqKemPriv, err := primitives.Base64Decode(priv.PostQuantum.IdentityKemPrivateKey)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "ImportKeyBundle", err)
	}
	pqKemPub, err := primitives.Base64Decode(priv.PostQuantum.IdentityKemPublicKey)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "ImportKeyBundle", err)
	}
	kemPair, err := kem.ImportKeyPair(classicalKemPriv, pqKemPriv, pqKemPub)
	if err != nil {
		return nil, err
	}

	classicalSigningPriv, err := primitives.Base64Decode(priv.PreQuantum.IdentitySigningPrivateKey)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "ImportKeyBundle", err)
	}
	classical, err := signer.LoadClassicalPrivate(classicalSigningPriv)
	if err != nil {
		return nil, err
	}

	pqSigningPriv, err := primitives.Base64Decode(priv.PostQuantum.IdentitySigningPrivateKey)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "ImportKeyBundle", err)
	}
	pqSigningPub, err := primitives.Base64Decode(priv.PostQuantum.IdentitySigningPublicKey)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "ImportKeyBundle", err)
	}
	pq, err := signer.LoadPostQuantumPrivate(pqSigningPriv, pqSigningPub)
	if err != nil {
		return nil, err
	}

	kb := &KeyBundle{KEM: kemPair}
	kb.Signer.Classical = classical
	kb.Signer.PostQuantum = pq
	return kb, nil
}

// ImportPublicBundle reconstructs only the public half of a bundle — what a
// sharer needs to encapsulate to a recipient or verify their signatures.
func ImportPublicBundle(data []byte) (*PublicBundle, error) {
	var pub PublicBundle
	if err := json.Unmarshal(data, &pub); err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "ImportPublicBundle", err)
	}
	return &pub, nil
}

// ClassicalKemPublicKey returns the raw 32-byte X25519 public key, unwrapping
// SPKI-DER if present.
func (pub *PublicBundle) ClassicalKemPublicKey() ([]byte, error) {
	return decodeAndImportClassical(pub.PreQuantum.IdentityKemPublicKey, primitives.AlgX25519)
}

// ClassicalSigningPublicKey returns the raw 32-byte Ed25519 public key,
// unwrapping SPKI-DER if present.
func (pub *PublicBundle) ClassicalSigningPublicKey() ([]byte, error) {
	return decodeAndImportClassical(pub.PreQuantum.IdentitySigningPublicKey, primitives.AlgEd25519)
}

// PQKemPublicKey returns the raw ML-KEM-1024 public key.
func (pub *PublicBundle) PQKemPublicKey() ([]byte, error) {
	return primitives.Base64Decode(pub.PostQuantum.IdentityKemPublicKey)
}

// PQSigningPublicKey returns the raw ML-DSA-87 public key.
func (pub *PublicBundle) PQSigningPublicKey() ([]byte, error) {
	return primitives.Base64Decode(pub.PostQuantum.IdentitySigningPublicKey)
}

func decodeAndImportClassical(b64 string, alg primitives.ClassicalAlg) ([]byte, error) {
	wrapped, err := primitives.Base64Decode(b64)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "decodeAndImportClassical", err)
	}
	return primitives.ImportClassicalPublicKey(alg, wrapped)
}
