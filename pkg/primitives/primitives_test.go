package primitives_test

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/tomjoyce1/filevault/internal/constants"
	"github.com/tomjoyce1/filevault/pkg/primitives"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := primitives.Random(constants.FEKSize)
	if err != nil {
		t.Fatalf("Random failed: %v", err)
	}
	plaintext := []byte("hello world")

	ciphertext, iv, err := primitives.Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if len(iv) != constants.NonceSize {
		t.Fatalf("iv length = %d, want %d", len(iv), constants.NonceSize)
	}
	if len(ciphertext) != len(plaintext) {
		t.Fatalf("ciphertext length = %d, want %d", len(ciphertext), len(plaintext))
	}

	decrypted, err := primitives.Decrypt(ciphertext, key, iv)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("Decrypt() = %q, want %q", decrypted, plaintext)
	}
}

func TestEncryptZeroLength(t *testing.T) {
	key, _ := primitives.Random(constants.FEKSize)
	ciphertext, iv, err := primitives.Encrypt(nil, key)
	if err != nil {
		t.Fatalf("Encrypt(nil) failed: %v", err)
	}
	if len(ciphertext) != 0 {
		t.Errorf("Encrypt(nil) ciphertext length = %d, want 0", len(ciphertext))
	}
	if _, err := primitives.Decrypt(ciphertext, key, iv); err != nil {
		t.Errorf("Decrypt of zero-length ciphertext failed: %v", err)
	}
}

func TestEncryptInvalidKeySize(t *testing.T) {
	if _, _, err := primitives.Encrypt([]byte("x"), make([]byte, 10)); err == nil {
		t.Error("Encrypt with wrong key size should fail")
	}
}

func TestDecryptInvalidIVSize(t *testing.T) {
	key, _ := primitives.Random(constants.FEKSize)
	if _, err := primitives.Decrypt([]byte("ciphertext"), key, make([]byte, 4)); err == nil {
		t.Error("Decrypt with wrong IV size should fail")
	}
}

func TestSHA256KnownAnswer(t *testing.T) {
	got := primitives.SHA256([]byte("abc"))
	want, _ := hex.DecodeString("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")
	if !bytes.Equal(got, want) {
		t.Errorf("SHA256(\"abc\") = %x, want %x", got, want)
	}
}

func TestBase64RoundTrip(t *testing.T) {
	data := []byte{0x00, 0x01, 0xff, 0x10, 0x20}
	encoded := primitives.Base64Encode(data)
	decoded, err := primitives.Base64Decode(encoded)
	if err != nil {
		t.Fatalf("Base64Decode failed: %v", err)
	}
	if !bytes.Equal(decoded, data) {
		t.Errorf("Base64 round trip = %v, want %v", decoded, data)
	}
}

func TestBase64DecodeInvalid(t *testing.T) {
	if _, err := primitives.Base64Decode("not valid base64!!"); err == nil {
		t.Error("Base64Decode of invalid input should fail")
	}
}

func TestSPKIWrapUnwrapRoundTrip(t *testing.T) {
	for _, alg := range []primitives.ClassicalAlg{primitives.AlgX25519, primitives.AlgEd25519} {
		raw, _ := primitives.Random(constants.RawClassicalKeySize)
		wrapped, err := primitives.SPKIWrap(alg, raw)
		if err != nil {
			t.Fatalf("SPKIWrap failed: %v", err)
		}
		if len(wrapped) != constants.SPKIWrappedSize {
			t.Fatalf("wrapped length = %d, want %d", len(wrapped), constants.SPKIWrappedSize)
		}
		unwrapped, err := primitives.SPKIUnwrap(alg, wrapped)
		if err != nil {
			t.Fatalf("SPKIUnwrap failed: %v", err)
		}
		if !bytes.Equal(unwrapped, raw) {
			t.Errorf("SPKIUnwrap() = %x, want %x", unwrapped, raw)
		}
	}
}

func TestImportClassicalPublicKeyDetection(t *testing.T) {
	raw, _ := primitives.Random(constants.RawClassicalKeySize)
	wrapped, _ := primitives.SPKIWrap(primitives.AlgX25519, raw)

	fromRaw, err := primitives.ImportClassicalPublicKey(primitives.AlgX25519, raw)
	if err != nil || !bytes.Equal(fromRaw, raw) {
		t.Errorf("ImportClassicalPublicKey(raw) = %x, %v", fromRaw, err)
	}
	fromWrapped, err := primitives.ImportClassicalPublicKey(primitives.AlgX25519, wrapped)
	if err != nil || !bytes.Equal(fromWrapped, raw) {
		t.Errorf("ImportClassicalPublicKey(wrapped) = %x, %v", fromWrapped, err)
	}
}

func TestWipe(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	primitives.Wipe(buf)
	for i, b := range buf {
		if b != 0 {
			t.Errorf("Wipe failed at index %d: got %d, want 0", i, b)
		}
	}
}

func TestRandomDistinct(t *testing.T) {
	a, _ := primitives.Random(32)
	b, _ := primitives.Random(32)
	if bytes.Equal(a, b) {
		t.Error("two calls to Random(32) produced identical output")
	}
}
