package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tomjoyce1/filevault/pkg/filecrypto"
	"github.com/tomjoyce1/filevault/pkg/primitives"
)

type fileMetadata struct {
	OriginalFilename string `json:"original_filename"`
	FileSizeBytes    int    `json:"file_size_bytes"`
	FileType         string `json:"file_type"`
}

var (
	uploadUsername string
	uploadPassword string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Encrypt and upload a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Login(uploadUsername, []byte(uploadPassword)); err != nil {
			return err
		}
		bundle := store.Bundle()

		plaintext, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		filename := filepath.Base(path)
		metadata := fileMetadata{
			OriginalFilename: filename,
			FileSizeBytes:    len(plaintext),
			FileType:         "application/octet-stream",
		}

		enc, err := filecrypto.EncryptFile(0, filename, plaintext, metadata)
		if err != nil {
			return err
		}

		contentB64 := primitives.Base64Encode(enc.EncContent)
		metadataB64 := primitives.Base64Encode(enc.EncMetadata)
		sigs, err := filecrypto.SignFileRecord(uploadUsername, contentB64, metadataB64, bundle.Signer.Classical, bundle.Signer.PostQuantum)
		if err != nil {
			return err
		}

		client := newAPIClient(clientCfg.ServerBaseURL)
		body := map[string]string{
			"file_content":           contentB64,
			"metadata":               metadataB64,
			"pre_quantum_signature":  primitives.Base64Encode(sigs.PreSig),
			"post_quantum_signature": primitives.Base64Encode(sigs.PostSig),
		}
		var resp struct {
			FileID uint64 `json:"file_id"`
		}
		if err := client.post(uploadUsername, "/api/fs/upload", body, &resp, bundle); err != nil {
			return err
		}

		enc.ClientData.FileID = resp.FileID
		if err := store.UpsertFile(enc.ClientData); err != nil {
			return err
		}

		fmt.Printf("uploaded file_id=%d\n", resp.FileID)
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadUsername, "username", "", "Logged-in username")
	uploadCmd.Flags().StringVar(&uploadPassword, "password", "", "Password to unlock the local store")
	_ = uploadCmd.MarkFlagRequired("username")
	_ = uploadCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(uploadCmd)
}
