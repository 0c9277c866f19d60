package filecrypto_test

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/tomjoyce1/filevault/pkg/filecrypto"
	"github.com/tomjoyce1/filevault/pkg/keybundle"
)

type testMetadata struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

func TestEncryptFileDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("the quick brown fox")
	meta := testMetadata{Name: "fox.txt", Size: len(plaintext)}

	enc, err := filecrypto.EncryptFile(1, "fox.txt", plaintext, meta)
	if err != nil {
		t.Fatalf("EncryptFile failed: %v", err)
	}

	decrypted, err := filecrypto.DecryptContent(enc.EncContent, enc.ClientData.FEK, enc.ClientData.FileNonce)
	if err != nil {
		t.Fatalf("DecryptContent failed: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("DecryptContent() = %q, want %q", decrypted, plaintext)
	}

	var gotMeta testMetadata
	if err := filecrypto.DecryptMetadata(enc.EncMetadata, enc.ClientData.MEK, enc.ClientData.MetadataNonce, &gotMeta); err != nil {
		t.Fatalf("DecryptMetadata failed: %v", err)
	}
	if gotMeta != meta {
		t.Errorf("DecryptMetadata() = %+v, want %+v", gotMeta, meta)
	}
}

func TestEncryptFileZeroLengthContentAllowed(t *testing.T) {
	enc, err := filecrypto.EncryptFile(1, "empty.txt", nil, testMetadata{Name: "empty.txt"})
	if err != nil {
		t.Fatalf("EncryptFile with empty content should succeed: %v", err)
	}
	if len(enc.EncContent) != 0 {
		t.Errorf("EncContent length = %d, want 0", len(enc.EncContent))
	}
}

func TestEncryptFileRejectsEmptyFilename(t *testing.T) {
	if _, err := filecrypto.EncryptFile(1, "", []byte("data"), testMetadata{}); err == nil {
		t.Error("EncryptFile with empty filename should fail")
	}
}

func TestFileCanonicalFormat(t *testing.T) {
	got, err := filecrypto.FileCanonical("alice", "Y29udGVudA==", "bWV0YWRhdGE=")
	if err != nil {
		t.Fatalf("FileCanonical failed: %v", err)
	}
	parts := bytes.Split([]byte(got), []byte("|"))
	if len(parts) != 3 {
		t.Fatalf("canonical string has %d parts, want 3", len(parts))
	}
	if string(parts[0]) != "alice" {
		t.Errorf("owner = %q, want alice", parts[0])
	}
}

func TestSignAndVerifyFileRecord(t *testing.T) {
	kb, err := keybundle.GenerateKeyBundle()
	if err != nil {
		t.Fatalf("GenerateKeyBundle failed: %v", err)
	}
	encContentB64 := base64.StdEncoding.EncodeToString([]byte("ciphertext"))
	encMetadataB64 := base64.StdEncoding.EncodeToString([]byte("meta-ciphertext"))

	sigs, err := filecrypto.SignFileRecord("alice", encContentB64, encMetadataB64, kb.Signer.Classical, kb.Signer.PostQuantum)
	if err != nil {
		t.Fatalf("SignFileRecord failed: %v", err)
	}

	pubJSON, _ := kb.ToPublicJSON()
	pub, err := keybundle.ImportPublicBundle(pubJSON)
	if err != nil {
		t.Fatalf("ImportPublicBundle failed: %v", err)
	}

	if !filecrypto.VerifyFileRecord("alice", encContentB64, encMetadataB64, sigs, pub) {
		t.Error("VerifyFileRecord rejected a validly signed record")
	}
}

func TestVerifyFileRecordRejectsTamperedContent(t *testing.T) {
	kb, _ := keybundle.GenerateKeyBundle()
	encContentB64 := base64.StdEncoding.EncodeToString([]byte("ciphertext"))
	encMetadataB64 := base64.StdEncoding.EncodeToString([]byte("meta-ciphertext"))
	sigs, _ := filecrypto.SignFileRecord("alice", encContentB64, encMetadataB64, kb.Signer.Classical, kb.Signer.PostQuantum)

	pubJSON, _ := kb.ToPublicJSON()
	pub, _ := keybundle.ImportPublicBundle(pubJSON)

	tamperedB64 := base64.StdEncoding.EncodeToString([]byte("tampered"))
	if filecrypto.VerifyFileRecord("alice", tamperedB64, encMetadataB64, sigs, pub) {
		t.Error("VerifyFileRecord accepted a record with tampered content hash")
	}
}

func TestVerifyFileRecordRejectsWrongSigner(t *testing.T) {
	kb, _ := keybundle.GenerateKeyBundle()
	other, _ := keybundle.GenerateKeyBundle()
	encContentB64 := base64.StdEncoding.EncodeToString([]byte("ciphertext"))
	encMetadataB64 := base64.StdEncoding.EncodeToString([]byte("meta-ciphertext"))
	sigs, _ := filecrypto.SignFileRecord("alice", encContentB64, encMetadataB64, kb.Signer.Classical, kb.Signer.PostQuantum)

	otherPubJSON, _ := other.ToPublicJSON()
	otherPub, _ := keybundle.ImportPublicBundle(otherPubJSON)

	if filecrypto.VerifyFileRecord("alice", encContentB64, encMetadataB64, sigs, otherPub) {
		t.Error("VerifyFileRecord accepted a signature against the wrong owner's bundle")
	}
}
