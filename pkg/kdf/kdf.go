// Package kdf implements the two key derivation functions (C2) every other
// component builds on: a memory-hard password KDF for turning a user's
// password into a key-wrapping key, and a SHAKE-256 subkey derivation used
// to fan a single master secret out into multiple independent keys.
package kdf

import (
	"encoding/binary"
	"unicode"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/sha3"

	"github.com/tomjoyce1/filevault/internal/constants"
	"github.com/tomjoyce1/filevault/internal/verrors"
)

// Argon2id parameters. Moderate profile: 64 MiB memory, a single pass,
// four lanes — tuned for an interactive client unlock, not a server-side
// batch job.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // KiB
	argon2Threads = 4
)

// DerivePasswordKey turns a user's password and a 16-byte salt into a
// 32-byte key-wrapping key via Argon2id.
func DerivePasswordKey(password []byte, salt []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "DerivePasswordKey", nil)
	}
	if len(salt) != constants.SaltSize {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "DerivePasswordKey", nil)
	}
	key := argon2.IDKey(password, salt, argon2Time, argon2Memory, argon2Threads, constants.FEKSize)
	return key, nil
}

// DeriveSubkey derives length bytes of subkey material from a 32-byte
// master secret using SHAKE-256 with domain separation, following the
// teacher's length-prefixed construction:
//
//	output = SHAKE-256(
//	    len(context) || context ||
//	    id ||
//	    len(master) || master,
//	    length
//	)
//
// context must be exactly 8 ASCII bytes (spec invariant); id folds a
// caller-chosen discriminator (e.g. a file id) into the derivation so the
// same master secret never produces the same subkey for two different ids.
func DeriveSubkey(master []byte, id uint64, context string, length int) ([]byte, error) {
	if len(context) != 8 || !isASCII(context) {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "DeriveSubkey", nil)
	}
	if length <= 0 || length > 1<<20 {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "DeriveSubkey", nil)
	}
	if len(master) == 0 {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "DeriveSubkey", nil)
	}

	h := sha3.NewShake256()
	lenBuf := make([]byte, 4)

	ctxBytes := []byte(context)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(ctxBytes)))
	h.Write(lenBuf)
	h.Write(ctxBytes)

	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], id)
	h.Write(idBuf[:])

	binary.BigEndian.PutUint32(lenBuf, uint32(len(master)))
	h.Write(lenBuf)
	h.Write(master)

	out := make([]byte, length)
	_, _ = h.Read(out) // SHAKE256.Read never fails
	return out, nil
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
