// Package constants defines byte sizes and domain separators for the
// filevault cryptographic core.
package constants

// Protocol/version identification
const (
	// ProtocolVersion identifies the wire format of the public KeyBundle JSON
	// and the canonical signing strings.
	ProtocolVersion uint16 = 0x0001

	// ProtocolName names the protocol; no key derivation mixes it in.
	ProtocolName = "filevault-core-v1"
)

// X25519 (classical KEM half of the hybrid bundle)
const (
	X25519PublicKeySize  = 32
	X25519PrivateKeySize = 32
	X25519SharedSecretSize = 32
)

// Ed25519 (classical signing half of the hybrid bundle)
const (
	Ed25519PublicKeySize  = 32
	Ed25519PrivateKeySize = 64 // seed (32) || public (32)
	Ed25519SignatureSize  = 64
)

// ML-KEM-1024 (post-quantum KEM half, NIST FIPS 203)
const (
	MLKEMPublicKeySize     = 1568
	MLKEMPrivateKeySize    = 3168
	MLKEMCiphertextSize    = 1568
	MLKEMSharedSecretSize  = 32
)

// ML-DSA-87 (post-quantum signing half, NIST FIPS 204).
// circl's sign/mldsa/mldsa87 encodes these exact sizes.
const (
	MLDSA87PublicKeySize  = 2592
	MLDSA87PrivateKeySize = 4896
	MLDSA87SignatureSize  = 4627
)

// SPKI DER wrapping of 32-byte classical public keys.
const (
	// SPKIWrappedSize is the size of a 32-byte raw key wrapped in a minimal
	// X.509 SubjectPublicKeyInfo DER envelope.
	SPKIWrappedSize = 44
	RawClassicalKeySize = 32
)

// Envelope encryption (C6 FileCrypto / C9 ClientStore)
const (
	// FEKSize is the File Encryption Key size.
	FEKSize = 32
	// MEKSize is the Metadata Encryption Key size.
	MEKSize = 32
	// NonceSize is the CTR-mode IV size used throughout the core.
	NonceSize = 16
	// SaltSize is the Argon2 salt size for password-derived keys.
	SaltSize = 16
)

// Domain separator string for subkey derivation (C2). kdf.DeriveSubkey does
// not mix it in; its 8-byte context string separates the subkeys.
const (
	DomainSeparatorSubkey = "filevault-subkey-v1"
)

// AuthProtocol (C8)
const (
	// ReplayWindowSeconds is the maximum allowed clock skew between the
	// signed timestamp and the server's observed time.
	ReplayWindowSeconds = 60
)
