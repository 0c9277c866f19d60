// Package sharecrypto implements the share protocol (C7): rewrapping a
// file's FEK/MEK for a recipient via a fresh hybrid KEM exchange, and
// inverting that exchange on the recipient's side.
package sharecrypto

import (
	"encoding/binary"

	"github.com/tomjoyce1/filevault/internal/verrors"
	"github.com/tomjoyce1/filevault/pkg/filecrypto"
	"github.com/tomjoyce1/filevault/pkg/kem"
	"github.com/tomjoyce1/filevault/pkg/keybundle"
	"github.com/tomjoyce1/filevault/pkg/primitives"
)

// ShareRecord is the seven-field wire/storage record the server persists
// for one (owner, recipient, file_id) share. EphemeralPublicKey packs both
// the classical ephemeral public key and the PQ KEM ciphertext, since the
// server schema has only one opaque slot for them (see SPEC_FULL.md §9).
type ShareRecord struct {
	FileID             uint64
	OwnerUserID        string
	SharedWithUserID   string
	EphemeralPublicKey []byte
	EncryptedFEK       []byte
	EncryptedFEKNonce  []byte
	EncryptedMEK       []byte
	EncryptedMEKNonce  []byte
	FileContentNonce   []byte
	MetadataNonce      []byte
}

// packEphemeral packs a classical ephemeral public key and a PQ ciphertext
// into one byte string: a 2-byte big-endian length prefix on the classical
// part, followed by the classical part, followed by the PQ ciphertext.
func packEphemeral(classicalPub, pqCiphertext []byte) ([]byte, error) {
	if len(classicalPub) > 0xFFFF {
		return nil, verrors.NewShareError(verrors.ShareInvalidRecipient, nil)
	}
	out := make([]byte, 0, 2+len(classicalPub)+len(pqCiphertext))
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(classicalPub)))
	out = append(out, lenBuf[:]...)
	out = append(out, classicalPub...)
	out = append(out, pqCiphertext...)
	return out, nil
}

// unpackEphemeral inverts packEphemeral.
func unpackEphemeral(packed []byte) (classicalPub, pqCiphertext []byte, err error) {
	if len(packed) < 2 {
		return nil, nil, verrors.NewShareError(verrors.ShareInvalidRecipient, nil)
	}
	classicalLen := int(binary.BigEndian.Uint16(packed[:2]))
	if len(packed) < 2+classicalLen {
		return nil, nil, verrors.NewShareError(verrors.ShareInvalidRecipient, nil)
	}
	classicalPub = packed[2 : 2+classicalLen]
	pqCiphertext = packed[2+classicalLen:]
	return classicalPub, pqCiphertext, nil
}

// CreateShare rewraps fileData's FEK/MEK for recipientPublic, the
// recipient's public bundle. ownerUserID and recipientUserID are compared
// to reject self-shares; the caller is responsible for the server-side
// (owner, recipient, file_id) uniqueness check.
func CreateShare(ownerUserID, recipientUserID string, fileData *filecrypto.ClientFileData, recipientPublic *keybundle.PublicBundle) (*ShareRecord, error) {
	if ownerUserID == recipientUserID {
		return nil, verrors.NewShareError(verrors.ShareSelfShareForbidden, nil)
	}

	classicalPub, err := recipientPublic.ClassicalKemPublicKey()
	if err != nil {
		return nil, verrors.NewShareError(verrors.ShareInvalidRecipient, err)
	}
	pqPub, err := recipientPublic.PQKemPublicKey()
	if err != nil {
		return nil, verrors.NewShareError(verrors.ShareInvalidRecipient, err)
	}

	ephPub, pqCiphertext, shareKey, err := kem.Encapsulate(classicalPub, pqPub)
	if err != nil {
		return nil, verrors.NewShareError(verrors.ShareInvalidRecipient, err)
	}
	defer primitives.Wipe(shareKey)

	packed, err := packEphemeral(ephPub, pqCiphertext)
	if err != nil {
		return nil, err
	}

	encFEK, ivFEK, err := primitives.Encrypt(fileData.FEK, shareKey)
	if err != nil {
		return nil, err
	}
	encMEK, ivMEK, err := primitives.Encrypt(fileData.MEK, shareKey)
	if err != nil {
		return nil, err
	}

	return &ShareRecord{
		FileID:             fileData.FileID,
		OwnerUserID:        ownerUserID,
		SharedWithUserID:   recipientUserID,
		EphemeralPublicKey: packed,
		EncryptedFEK:       encFEK,
		EncryptedFEKNonce:  ivFEK,
		EncryptedMEK:       encMEK,
		EncryptedMEKNonce:  ivMEK,
		FileContentNonce:   fileData.FileNonce,
		MetadataNonce:      fileData.MetadataNonce,
	}, nil
}

// ReceiveShare inverts CreateShare using the recipient's private hybrid KEM
// key pair, recovering the plaintext FEK and MEK.
func ReceiveShare(record *ShareRecord, recipientKEM *kem.KeyPair) (fek, mek []byte, err error) {
	classicalPub, pqCiphertext, err := unpackEphemeral(record.EphemeralPublicKey)
	if err != nil {
		return nil, nil, err
	}

	shareKey, err := kem.Decapsulate(recipientKEM, classicalPub, pqCiphertext)
	if err != nil {
		return nil, nil, verrors.NewShareError(verrors.ShareNotShared, err)
	}
	defer primitives.Wipe(shareKey)

	fek, err = primitives.Decrypt(record.EncryptedFEK, shareKey, record.EncryptedFEKNonce)
	if err != nil {
		return nil, nil, verrors.NewShareError(verrors.ShareNotShared, err)
	}
	mek, err = primitives.Decrypt(record.EncryptedMEK, shareKey, record.EncryptedMEKNonce)
	if err != nil {
		return nil, nil, verrors.NewShareError(verrors.ShareNotShared, err)
	}
	return fek, mek, nil
}
