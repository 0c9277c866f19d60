// Package primitives implements the low-level cryptographic building blocks
// (C1) shared by every other component of the filevault core: counter-mode
// symmetric encryption with no authentication tag, hashing, base64 and
// minimal SPKI DER wrapping for classical public keys, secure randomness and
// best-effort zeroization.
//
// Integrity for ciphertext produced here is NOT provided at this layer — the
// outer hybrid dual signature (pkg/signer, pkg/authproto, pkg/filecrypto) is
// what authenticates stored and transmitted bytes. See SPEC_FULL.md §9 for
// the rationale.
package primitives

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"runtime"

	"github.com/tomjoyce1/filevault/internal/constants"
	"github.com/tomjoyce1/filevault/internal/verrors"
)

// ClassicalAlg identifies which classical key family an SPKI blob wraps.
type ClassicalAlg int

const (
	AlgX25519 ClassicalAlg = iota
	AlgEd25519
)

// Encrypt runs AES-256-CTR over plaintext under key (32 bytes), generating a
// fresh random 16-byte IV. Output length always equals input length.
func Encrypt(plaintext, key []byte) (ciphertext, iv []byte, err error) {
	if len(key) != constants.FEKSize {
		return nil, nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "Encrypt", nil)
	}
	iv, err = Random(constants.NonceSize)
	if err != nil {
		return nil, nil, err
	}
	ct, err := streamXOR(plaintext, key, iv)
	if err != nil {
		return nil, nil, err
	}
	return ct, iv, nil
}

// Decrypt inverts Encrypt. It fails only on malformed key/IV length; there is
// no authentication tag to check.
func Decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	if len(key) != constants.FEKSize {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "Decrypt", nil)
	}
	if len(iv) != constants.NonceSize {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "Decrypt", nil)
	}
	return streamXOR(ciphertext, key, iv)
}

func streamXOR(input, key, iv []byte) ([]byte, error) {
	if len(iv) != constants.NonceSize {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "streamXOR", nil)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "streamXOR", err)
	}
	// CTR needs a 16-byte (block-size) IV; our on-disk/wire nonce is already
	// 16 bytes, matching AES's block size exactly.
	stream := cipher.NewCTR(block, iv)
	out := make([]byte, len(input))
	stream.XORKeyStream(out, input)
	return out, nil
}

// SHA256 returns the 32-byte SHA-256 digest of data.
func SHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// Base64Encode returns the standard padded base64 encoding of data.
func Base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Base64Decode decodes a standard padded base64 string.
func Base64Decode(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "Base64Decode", err)
	}
	return b, nil
}

// Random returns n cryptographically secure random bytes from the OS CSPRNG.
func Random(n int) ([]byte, error) {
	b := make([]byte, n)
	if err := secureRead(b); err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoRandFailed, "Random", err)
	}
	return b, nil
}

// Wipe overwrites buf with zeros. runtime.KeepAlive guards against the
// compiler eliding the loop when buf is otherwise dead after this call.
func Wipe(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	runtime.KeepAlive(buf)
}

// WipeAll wipes every slice given.
func WipeAll(slices ...[]byte) {
	for _, s := range slices {
		Wipe(s)
	}
}
