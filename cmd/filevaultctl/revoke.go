package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	revokeUsername string
	revokePassword string
)

var revokeCmd = &cobra.Command{
	Use:   "revoke <file_id> <recipient>",
	Short: "Revoke a recipient's access to an owned file",
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
		if err := store.Login(revokeUsername, []byte(revokePassword)); err != nil {
			return err
		}
		bundle := store.Bundle()

		client := newAPIClient(clientCfg.ServerBaseURL)
		body := map[string]interface{}{
			"file_id":  fileID,
			"username": recipient,
		}
		if err := client.post(revokeUsername, "/api/fs/revoke", body, nil, bundle); err != nil {
			return err
		}

		fmt.Printf("revoked %s's access to file_id=%d\n", recipient, fileID)
		return nil
	},
}

func init() {
	revokeCmd.Flags().StringVar(&revokeUsername, "username", "", "Logged-in username")
	revokeCmd.Flags().StringVar(&revokePassword, "password", "", "Password to unlock the local store")
	_ = revokeCmd.MarkFlagRequired("username")
	_ = revokeCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(revokeCmd)
}
