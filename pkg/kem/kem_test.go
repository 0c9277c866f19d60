package kem_test

import (
	"bytes"
	"testing"

	"github.com/tomjoyce1/filevault/pkg/kem"
)

func TestEncapsulateDecapsulateRoundTrip(t *testing.T) {
	recipient, err := kem.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}

	ephPub, ct, senderSS, err := kem.Encapsulate(recipient.ClassicalPublicKeyBytes(), recipient.PQPublicKeyBytes())
	if err != nil {
		t.Fatalf("Encapsulate failed: %v", err)
	}
	if len(senderSS) != 32 {
		t.Fatalf("sender shared secret length = %d, want 32", len(senderSS))
	}

	recipientSS, err := kem.Decapsulate(recipient, ephPub, ct)
	if err != nil {
		t.Fatalf("Decapsulate failed: %v", err)
	}
	if !bytes.Equal(senderSS, recipientSS) {
		t.Errorf("shared secrets differ: sender=%x recipient=%x", senderSS, recipientSS)
	}
}

func TestEncapsulateRejectsMalformedClassicalKey(t *testing.T) {
	recipient, _ := kem.GenerateKeyPair()
	_, _, _, err := kem.Encapsulate(make([]byte, 10), recipient.PQPublicKeyBytes())
	if err == nil {
		t.Error("Encapsulate with truncated classical key should fail")
	}
}

func TestEncapsulateRejectsMalformedPQKey(t *testing.T) {
	recipient, _ := kem.GenerateKeyPair()
	_, _, _, err := kem.Encapsulate(recipient.ClassicalPublicKeyBytes(), make([]byte, 10))
	if err == nil {
		t.Error("Encapsulate with truncated PQ key should fail")
	}
}

func TestDecapsulateRejectsWrongRecipient(t *testing.T) {
	recipient, _ := kem.GenerateKeyPair()
	other, _ := kem.GenerateKeyPair()

	ephPub, ct, _, err := kem.Encapsulate(recipient.ClassicalPublicKeyBytes(), recipient.PQPublicKeyBytes())
	if err != nil {
		t.Fatalf("Encapsulate failed: %v", err)
	}

	wrongSS, err := kem.Decapsulate(other, ephPub, ct)
	if err != nil {
		t.Fatalf("Decapsulate should not error on wrong recipient (implicit rejection): %v", err)
	}
	rightSS, _ := kem.Decapsulate(recipient, ephPub, ct)
	if bytes.Equal(wrongSS, rightSS) {
		t.Error("wrong recipient derived the same shared secret")
	}
}

func TestImportKeyPairRoundTrip(t *testing.T) {
	original, err := kem.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}
	imported, err := kem.ImportKeyPair(original.ClassicalPriv.Bytes(), original.PQPrivateKeyBytes(), original.PQPublicKeyBytes())
	if err != nil {
		t.Fatalf("ImportKeyPair failed: %v", err)
	}
	if !bytes.Equal(imported.ClassicalPublicKeyBytes(), original.ClassicalPublicKeyBytes()) {
		t.Error("ImportKeyPair did not re-derive the matching classical public key")
	}

	ephPub, ct, senderSS, err := kem.Encapsulate(imported.ClassicalPublicKeyBytes(), imported.PQPublicKeyBytes())
	if err != nil {
		t.Fatalf("Encapsulate against imported key failed: %v", err)
	}
	recipientSS, err := kem.Decapsulate(imported, ephPub, ct)
	if err != nil {
		t.Fatalf("Decapsulate with imported key failed: %v", err)
	}
	if !bytes.Equal(senderSS, recipientSS) {
		t.Error("imported key pair failed to decapsulate its own encapsulation")
	}
}

func TestTwoEncapsulationsDiffer(t *testing.T) {
	recipient, _ := kem.GenerateKeyPair()
	_, _, ss1, _ := kem.Encapsulate(recipient.ClassicalPublicKeyBytes(), recipient.PQPublicKeyBytes())
	_, _, ss2, _ := kem.Encapsulate(recipient.ClassicalPublicKeyBytes(), recipient.PQPublicKeyBytes())
	if bytes.Equal(ss1, ss2) {
		t.Error("two encapsulations to the same recipient produced identical shared secrets")
	}
}
