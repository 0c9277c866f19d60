package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomjoyce1/filevault/internal/verrors"
	"github.com/tomjoyce1/filevault/pkg/filecrypto"
	"github.com/tomjoyce1/filevault/pkg/keybundle"
	"github.com/tomjoyce1/filevault/pkg/primitives"
	"github.com/tomjoyce1/filevault/pkg/sharecrypto"
)

var (
	downloadUsername string
	downloadPassword string
	downloadOut      string
)

type sharedAccess struct {
	EphemeralPublicKey string `json:"ephemeral_public_key"`
	EncryptedFEK       string `json:"encrypted_fek"`
	EncryptedFEKNonce  string `json:"encrypted_fek_nonce"`
	EncryptedMEK       string `json:"encrypted_mek"`
	EncryptedMEKNonce  string `json:"encrypted_mek_nonce"`
	FileContentNonce   string `json:"file_content_nonce"`
	MetadataNonce      string `json:"metadata_nonce"`
}

var downloadCmd = &cobra.Command{
	Use:   "download <file_id>",
	Short: "Download, decrypt and verify a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var fileID uint64
		if _, err := fmt.Sscanf(args[0], "%d", &fileID); err != nil {
			return fmt.Errorf("invalid file_id: %w", err)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Login(downloadUsername, []byte(downloadPassword)); err != nil {
			return err
		}
		bundle := store.Bundle()
		client := newAPIClient(clientCfg.ServerBaseURL)

		var resp struct {
			FileContent          string        `json:"file_content"`
			Metadata             string        `json:"metadata"`
			PreQuantumSignature  string        `json:"pre_quantum_signature"`
			PostQuantumSignature string        `json:"post_quantum_signature"`
			OwnerUserID          string        `json:"owner_user_id"`
			IsOwner              bool          `json:"is_owner"`
			SharedAccess         *sharedAccess `json:"shared_access"`
		}
		if err := client.post(downloadUsername, "/api/fs/download", map[string]uint64{"file_id": fileID}, &resp, bundle); err != nil {
			return err
		}

		var bundleJSON struct {
			KeyBundle json.RawMessage `json:"key_bundle"`
		}
		if err := client.post(downloadUsername, "/api/keyhandler/getbundle", map[string]string{"username": resp.OwnerUserID}, &bundleJSON, bundle); err != nil {
			return err
		}
		ownerPublic, err := keybundle.ImportPublicBundle(bundleJSON.KeyBundle)
		if err != nil {
			return err
		}

		preSig, err := primitives.Base64Decode(resp.PreQuantumSignature)
		if err != nil {
			return err
		}
		postSig, err := primitives.Base64Decode(resp.PostQuantumSignature)
		if err != nil {
			return err
		}
		sigs := &filecrypto.FileRecordSignatures{PreSig: preSig, PostSig: postSig}
		if !filecrypto.VerifyFileRecord(resp.OwnerUserID, resp.FileContent, resp.Metadata, sigs, ownerPublic) {
			return verrors.NewAuthError(verrors.AuthSignatureInvalid, fmt.Errorf("signature verification failed, file may be tampered"))
		}

		var fek, mek, fileNonce, metadataNonce []byte
		if resp.IsOwner {
			data, err := store.GetFile(fileID)
			if err != nil {
				return err
			}
			fek, mek, fileNonce, metadataNonce = data.FEK, data.MEK, data.FileNonce, data.MetadataNonce
		} else {
			if resp.SharedAccess == nil {
				return verrors.NewAuthError(verrors.AuthSignatureInvalid, fmt.Errorf("missing share data"))
			}
			record, err := decodeSharedAccess(fileID, resp.OwnerUserID, downloadUsername, resp.SharedAccess)
			if err != nil {
				return err
			}
			fek, mek, err = sharecrypto.ReceiveShare(record, bundle.KEM)
			if err != nil {
				return err
			}
			fileNonce, metadataNonce = record.FileContentNonce, record.MetadataNonce
		}

		encContent, err := primitives.Base64Decode(resp.FileContent)
		if err != nil {
			return err
		}
		encMetadata, err := primitives.Base64Decode(resp.Metadata)
		if err != nil {
			return err
		}
		plaintext, err := filecrypto.DecryptContent(encContent, fek, fileNonce)
		if err != nil {
			return err
		}
		var metadata fileMetadata
		if err := filecrypto.DecryptMetadata(encMetadata, mek, metadataNonce, &metadata); err != nil {
			return err
		}

		outPath := downloadOut
		if outPath == "" {
			outPath = metadata.OriginalFilename
		}
		if err := os.WriteFile(outPath, plaintext, 0o600); err != nil {
			return err
		}

		fmt.Printf("downloaded file_id=%d -> %s\n", fileID, outPath)
		return nil
	},
}

func decodeSharedAccess(fileID uint64, ownerUserID, recipientUserID string, access *sharedAccess) (*sharecrypto.ShareRecord, error) {
	fields := map[string]string{
		"ephemeral_public_key": access.EphemeralPublicKey,
		"encrypted_fek":        access.EncryptedFEK,
		"encrypted_fek_nonce":  access.EncryptedFEKNonce,
		"encrypted_mek":        access.EncryptedMEK,
		"encrypted_mek_nonce":  access.EncryptedMEKNonce,
		"file_content_nonce":   access.FileContentNonce,
		"metadata_nonce":       access.MetadataNonce,
	}
	decoded := make(map[string][]byte, len(fields))
	for name, b64 := range fields {
		raw, err := primitives.Base64Decode(b64)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", name, err)
		}
		decoded[name] = raw
	}
	return &sharecrypto.ShareRecord{
		FileID:             fileID,
		OwnerUserID:        ownerUserID,
		SharedWithUserID:   recipientUserID,
		EphemeralPublicKey: decoded["ephemeral_public_key"],
		EncryptedFEK:       decoded["encrypted_fek"],
		EncryptedFEKNonce:  decoded["encrypted_fek_nonce"],
		EncryptedMEK:       decoded["encrypted_mek"],
		EncryptedMEKNonce:  decoded["encrypted_mek_nonce"],
		FileContentNonce:   decoded["file_content_nonce"],
		MetadataNonce:      decoded["metadata_nonce"],
	}, nil
}

func init() {
	downloadCmd.Flags().StringVar(&downloadUsername, "username", "", "Logged-in username")
	downloadCmd.Flags().StringVar(&downloadPassword, "password", "", "Password to unlock the local store")
	downloadCmd.Flags().StringVar(&downloadOut, "out", "", "Output path (defaults to the stored original filename)")
	_ = downloadCmd.MarkFlagRequired("username")
	_ = downloadCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(downloadCmd)
}
