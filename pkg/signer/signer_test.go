package signer_test

import (
	"bytes"
	"testing"

	"github.com/tomjoyce1/filevault/pkg/signer"
)

func TestClassicalSignVerifyRoundTrip(t *testing.T) {
	kp, err := signer.GenerateClassicalKeyPair()
	if err != nil {
		t.Fatalf("GenerateClassicalKeyPair failed: %v", err)
	}
	msg := []byte("upload manifest")
	sig, err := kp.Sign(msg)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if len(sig) != 64 {
		t.Fatalf("signature length = %d, want 64", len(sig))
	}
	if !signer.VerifyClassical(kp.Public(), msg, sig) {
		t.Error("VerifyClassical rejected a valid signature")
	}
}

func TestClassicalVerifyRejectsTamperedMessage(t *testing.T) {
	kp, _ := signer.GenerateClassicalKeyPair()
	sig, _ := kp.Sign([]byte("original"))
	if signer.VerifyClassical(kp.Public(), []byte("tampered"), sig) {
		t.Error("VerifyClassical accepted a signature over a different message")
	}
}

func TestClassicalVerifyIsTotal(t *testing.T) {
	if signer.VerifyClassical([]byte("short"), []byte("msg"), []byte("sig")) {
		t.Error("VerifyClassical should return false, not panic, on malformed input")
	}
	if signer.VerifyClassical(nil, nil, nil) {
		t.Error("VerifyClassical(nil, nil, nil) should return false")
	}
}

func TestLoadClassicalPrivateRederivesPublic(t *testing.T) {
	kp, _ := signer.GenerateClassicalKeyPair()
	loaded, err := signer.LoadClassicalPrivate(kp.Private())
	if err != nil {
		t.Fatalf("LoadClassicalPrivate failed: %v", err)
	}
	if !bytes.Equal(loaded.Public(), kp.Public()) {
		t.Error("LoadClassicalPrivate did not re-derive the matching public key")
	}
}

func TestLoadClassicalPrivateRejectsWrongLength(t *testing.T) {
	if _, err := signer.LoadClassicalPrivate([]byte("too short")); err == nil {
		t.Error("LoadClassicalPrivate with wrong length should fail")
	}
}

func TestPostQuantumSignVerifyRoundTrip(t *testing.T) {
	kp, err := signer.GeneratePostQuantumKeyPair()
	if err != nil {
		t.Fatalf("GeneratePostQuantumKeyPair failed: %v", err)
	}
	msg := []byte("share record")
	sig, err := kp.Sign(msg)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if !signer.VerifyPostQuantum(kp.Public(), msg, sig) {
		t.Error("VerifyPostQuantum rejected a valid signature")
	}
}

func TestPostQuantumVerifyRejectsTamperedMessage(t *testing.T) {
	kp, _ := signer.GeneratePostQuantumKeyPair()
	sig, _ := kp.Sign([]byte("original"))
	if signer.VerifyPostQuantum(kp.Public(), []byte("tampered"), sig) {
		t.Error("VerifyPostQuantum accepted a signature over a different message")
	}
}

func TestPostQuantumVerifyIsTotal(t *testing.T) {
	if signer.VerifyPostQuantum([]byte("short"), []byte("msg"), []byte("sig")) {
		t.Error("VerifyPostQuantum should return false, not panic, on malformed input")
	}
}

func TestLoadPostQuantumPrivateRejectsWrongLength(t *testing.T) {
	kp, _ := signer.GeneratePostQuantumKeyPair()
	if _, err := signer.LoadPostQuantumPrivate([]byte("too short"), kp.Public()); err == nil {
		t.Error("LoadPostQuantumPrivate with wrong length should fail")
	}
}

func TestLoadPostQuantumPrivateRoundTrip(t *testing.T) {
	kp, _ := signer.GeneratePostQuantumKeyPair()
	loaded, err := signer.LoadPostQuantumPrivate(kp.Private(), kp.Public())
	if err != nil {
		t.Fatalf("LoadPostQuantumPrivate failed: %v", err)
	}
	msg := []byte("round trip")
	sig, err := loaded.Sign(msg)
	if err != nil {
		t.Fatalf("Sign failed on loaded key: %v", err)
	}
	if !signer.VerifyPostQuantum(loaded.Public(), msg, sig) {
		t.Error("loaded key failed to verify its own signature")
	}
}

func TestLoadPostQuantumPublicRoundTrip(t *testing.T) {
	kp, _ := signer.GeneratePostQuantumKeyPair()
	pub, err := signer.LoadPostQuantumPublic(kp.Public())
	if err != nil {
		t.Fatalf("LoadPostQuantumPublic failed: %v", err)
	}
	b, _ := pub.MarshalBinary()
	if !bytes.Equal(b, kp.Public()) {
		t.Error("LoadPostQuantumPublic did not round-trip")
	}
}
