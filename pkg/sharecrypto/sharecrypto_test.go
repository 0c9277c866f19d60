package sharecrypto_test

import (
	"bytes"
	"testing"

	"github.com/tomjoyce1/filevault/internal/verrors"
	"github.com/tomjoyce1/filevault/pkg/filecrypto"
	"github.com/tomjoyce1/filevault/pkg/keybundle"
	"github.com/tomjoyce1/filevault/pkg/sharecrypto"
)

func TestCreateReceiveShareRoundTrip(t *testing.T) {
	ownerBundle, _ := keybundle.GenerateKeyBundle()
	recipientBundle, err := keybundle.GenerateKeyBundle()
	if err != nil {
		t.Fatalf("GenerateKeyBundle failed: %v", err)
	}

	enc, err := filecrypto.EncryptFile(7, "secret.txt", []byte("top secret"), map[string]string{"name": "secret.txt"})
	if err != nil {
		t.Fatalf("EncryptFile failed: %v", err)
	}

	recipientPubJSON, _ := recipientBundle.ToPublicJSON()
	recipientPub, err := keybundle.ImportPublicBundle(recipientPubJSON)
	if err != nil {
		t.Fatalf("ImportPublicBundle failed: %v", err)
	}
	_ = ownerBundle

	record, err := sharecrypto.CreateShare("alice", "bob", enc.ClientData, recipientPub)
	if err != nil {
		t.Fatalf("CreateShare failed: %v", err)
	}

	fek, mek, err := sharecrypto.ReceiveShare(record, recipientBundle.KEM)
	if err != nil {
		t.Fatalf("ReceiveShare failed: %v", err)
	}
	if !bytes.Equal(fek, enc.ClientData.FEK) {
		t.Error("recovered FEK does not match original")
	}
	if !bytes.Equal(mek, enc.ClientData.MEK) {
		t.Error("recovered MEK does not match original")
	}

	plaintext, err := filecrypto.DecryptContent(enc.EncContent, fek, record.FileContentNonce)
	if err != nil {
		t.Fatalf("DecryptContent with shared FEK failed: %v", err)
	}
	if string(plaintext) != "top secret" {
		t.Errorf("DecryptContent() = %q, want %q", plaintext, "top secret")
	}
}

func TestCreateShareRejectsSelfShare(t *testing.T) {
	bundle, _ := keybundle.GenerateKeyBundle()
	enc, _ := filecrypto.EncryptFile(1, "f.txt", []byte("data"), map[string]string{})
	pubJSON, _ := bundle.ToPublicJSON()
	pub, _ := keybundle.ImportPublicBundle(pubJSON)

	_, err := sharecrypto.CreateShare("alice", "alice", enc.ClientData, pub)
	if err == nil {
		t.Fatal("CreateShare to self should fail")
	}
	var shareErr *verrors.ShareError
	if !verrors.As(err, &shareErr) || shareErr.Kind != verrors.ShareSelfShareForbidden {
		t.Errorf("expected ShareSelfShareForbidden, got %v", err)
	}
}

func TestReceiveShareRejectsWrongRecipient(t *testing.T) {
	recipientBundle, _ := keybundle.GenerateKeyBundle()
	otherBundle, _ := keybundle.GenerateKeyBundle()
	enc, _ := filecrypto.EncryptFile(1, "f.txt", []byte("data"), map[string]string{})
	pubJSON, _ := recipientBundle.ToPublicJSON()
	pub, _ := keybundle.ImportPublicBundle(pubJSON)

	record, err := sharecrypto.CreateShare("alice", "bob", enc.ClientData, pub)
	if err != nil {
		t.Fatalf("CreateShare failed: %v", err)
	}

	fek, _, err := sharecrypto.ReceiveShare(record, otherBundle.KEM)
	if err == nil && bytes.Equal(fek, enc.ClientData.FEK) {
		t.Error("wrong recipient recovered the correct FEK")
	}
}
