// Package filecrypto implements per-file envelope encryption and the file
// record's dual-signature canonical form (C6): fresh FEK/MEK envelope keys
// per upload, canonical-JSON metadata, and the owner signature pair every
// stored file carries.
package filecrypto

import (
	"encoding/json"
	"fmt"

	"github.com/tomjoyce1/filevault/internal/constants"
	"github.com/tomjoyce1/filevault/internal/verrors"
	"github.com/tomjoyce1/filevault/pkg/keybundle"
	"github.com/tomjoyce1/filevault/pkg/primitives"
	"github.com/tomjoyce1/filevault/pkg/signer"
)

// ClientFileData holds the per-file secrets a client keeps locally: the File
// Encryption Key and Metadata Encryption Key plus the nonces they were used
// with. The four key and nonce fields are independent, uniformly random.
type ClientFileData struct {
	FileID        uint64 `json:"file_id"`
	Filename      string `json:"filename"`
	FEK           []byte `json:"fek_b64"`
	FileNonce     []byte `json:"file_nonce_b64"`
	MEK           []byte `json:"mek_b64"`
	MetadataNonce []byte `json:"metadata_nonce_b64"`
}

// EncryptedFile is the pair of ciphertexts EncryptFile produces alongside
// the secrets needed to decrypt them again.
type EncryptedFile struct {
	EncContent  []byte
	EncMetadata []byte
	ClientData  *ClientFileData
}

// EncryptFile encrypts plaintext content and a metadata object under fresh
// FEK/MEK keys. metadata is serialized to canonical (insertion-order) JSON
// before encryption. filename must be non-empty; zero-length content is
// allowed.
func EncryptFile(fileID uint64, filename string, plaintext []byte, metadata interface{}) (*EncryptedFile, error) {
	if filename == "" {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "EncryptFile", nil)
	}

	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.CryptoInvalidInput, "EncryptFile", err)
	}

	fek, err := primitives.Random(constants.FEKSize)
	if err != nil {
		return nil, err
	}
	mek, err := primitives.Random(constants.MEKSize)
	if err != nil {
		return nil, err
	}

	encContent, fileNonce, err := primitives.Encrypt(plaintext, fek)
	if err != nil {
		return nil, err
	}
	encMetadata, metadataNonce, err := primitives.Encrypt(metaJSON, mek)
	if err != nil {
		return nil, err
	}

	return &EncryptedFile{
		EncContent:  encContent,
		EncMetadata: encMetadata,
		ClientData: &ClientFileData{
			FileID:        fileID,
			Filename:      filename,
			FEK:           fek,
			FileNonce:     fileNonce,
			MEK:           mek,
			MetadataNonce: metadataNonce,
		},
	}, nil
}

// DecryptContent recovers the plaintext file content.
func DecryptContent(encContent, fek, fileNonce []byte) ([]byte, error) {
	return primitives.Decrypt(encContent, fek, fileNonce)
}

// DecryptMetadata recovers the metadata object, unmarshaling it into out
// (a pointer, per encoding/json convention).
func DecryptMetadata(encMetadata, mek, metadataNonce []byte, out interface{}) error {
	plain, err := primitives.Decrypt(encMetadata, mek, metadataNonce)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plain, out); err != nil {
		return verrors.NewCryptoError(verrors.CryptoInvalidInput, "DecryptMetadata", err)
	}
	return nil
}

// FileCanonical builds the canonical string both signatures on a file
// record are computed over. The hashes are taken over the raw ciphertext
// bytes, not their base64 encoding.
func FileCanonical(ownerUsername string, encContentB64, encMetadataB64 string) (string, error) {
	encContent, err := primitives.Base64Decode(encContentB64)
	if err != nil {
		return "", verrors.NewCryptoError(verrors.CryptoInvalidInput, "FileCanonical", err)
	}
	encMetadata, err := primitives.Base64Decode(encMetadataB64)
	if err != nil {
		return "", verrors.NewCryptoError(verrors.CryptoInvalidInput, "FileCanonical", err)
	}
	contentHash := primitives.SHA256(encContent)
	metadataHash := primitives.SHA256(encMetadata)
	return fmt.Sprintf("%s|%x|%x", ownerUsername, contentHash, metadataHash), nil
}

// FileRecordSignatures is the dual signature a file record carries.
type FileRecordSignatures struct {
	PreSig  []byte // classical (Ed25519)
	PostSig []byte // post-quantum (ML-DSA-87)
}

// SignFileRecord signs the file canonical string with both halves of the
// owner's hybrid signer.
func SignFileRecord(ownerUsername string, encContentB64, encMetadataB64 string, classical *signer.ClassicalKeyPair, postQuantum *signer.PostQuantumKeyPair) (*FileRecordSignatures, error) {
	canonicalStr, err := FileCanonical(ownerUsername, encContentB64, encMetadataB64)
	if err != nil {
		return nil, err
	}
	canonical := []byte(canonicalStr)
	preSig, err := classical.Sign(canonical)
	if err != nil {
		return nil, err
	}
	postSig, err := postQuantum.Sign(canonical)
	if err != nil {
		return nil, err
	}
	return &FileRecordSignatures{PreSig: preSig, PostSig: postSig}, nil
}

// VerifyFileRecord reports whether both signatures verify against the
// owner's public bundle.
func VerifyFileRecord(ownerUsername string, encContentB64, encMetadataB64 string, sigs *FileRecordSignatures, ownerPublic *keybundle.PublicBundle) bool {
	classicalPub, err := ownerPublic.ClassicalSigningPublicKey()
	if err != nil {
		return false
	}
	pqPub, err := ownerPublic.PQSigningPublicKey()
	if err != nil {
		return false
	}
	canonicalStr, err := FileCanonical(ownerUsername, encContentB64, encMetadataB64)
	if err != nil {
		return false
	}
	canonical := []byte(canonicalStr)
	return signer.VerifyClassical(classicalPub, canonical, sigs.PreSig) &&
		signer.VerifyPostQuantum(pqPub, canonical, sigs.PostSig)
}
