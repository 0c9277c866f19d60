package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomjoyce1/filevault/pkg/keybundle"
	"github.com/tomjoyce1/filevault/pkg/primitives"
	"github.com/tomjoyce1/filevault/pkg/sharecrypto"
)

var (
	shareUsername string
	sharePassword string
)

var shareCmd = &cobra.Command{
	Use:   "share <file_id> <recipient>",
	Short: "Share an owned file with another user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var fileID uint64
		if _, err := fmt.Sscanf(args[0], "%d", &fileID); err != nil {
			return fmt.Errorf("invalid file_id: %w", err)
		}
		recipient := args[1]

		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Login(shareUsername, []byte(sharePassword)); err != nil {
			return err
		}
		bundle := store.Bundle()

		fileData, err := store.GetFile(fileID)
		if err != nil {
			return err
		}

		client := newAPIClient(clientCfg.ServerBaseURL)
		var bundleResp struct {
			KeyBundle json.RawMessage `json:"key_bundle"`
		}
		if err := client.post(shareUsername, "/api/keyhandler/getbundle", map[string]string{"username": recipient}, &bundleResp, bundle); err != nil {
			return err
		}
		recipientPublic, err := keybundle.ImportPublicBundle(bundleResp.KeyBundle)
		if err != nil {
			return err
		}

		record, err := sharecrypto.CreateShare(shareUsername, recipient, fileData, recipientPublic)
		if err != nil {
			return err
		}

		shareBody := map[string]interface{}{
			"file_id":              fileID,
			"shared_with_username": recipient,
			"ephemeral_public_key": primitives.Base64Encode(record.EphemeralPublicKey),
			"encrypted_fek":        primitives.Base64Encode(record.EncryptedFEK),
			"encrypted_fek_nonce":  primitives.Base64Encode(record.EncryptedFEKNonce),
			"encrypted_mek":        primitives.Base64Encode(record.EncryptedMEK),
			"encrypted_mek_nonce":  primitives.Base64Encode(record.EncryptedMEKNonce),
			"file_content_nonce":   primitives.Base64Encode(record.FileContentNonce),
			"metadata_nonce":       primitives.Base64Encode(record.MetadataNonce),
		}
		if err := client.post(shareUsername, "/api/fs/share", shareBody, nil, bundle); err != nil {
			return err
		}

		fmt.Printf("shared file_id=%d with %s\n", fileID, recipient)
		return nil
	},
}

func init() {
	shareCmd.Flags().StringVar(&shareUsername, "username", "", "Logged-in username")
	shareCmd.Flags().StringVar(&sharePassword, "password", "", "Password to unlock the local store")
	_ = shareCmd.MarkFlagRequired("username")
	_ = shareCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(shareCmd)
}
