package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	listUsername string
	listPassword string
	listPage     int
)

type listedFile struct {
	FileID      uint64 `json:"file_id"`
	OwnerUserID string `json:"owner_user_id"`
	IsOwner     bool   `json:"is_owner"`
	UploadTS    string `json:"upload_ts"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List files owned by or shared with the logged-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Login(listUsername, []byte(listPassword)); err != nil {
			return err
		}
		bundle := store.Bundle()

		client := newAPIClient(clientCfg.ServerBaseURL)
		var resp struct {
			FileData    []listedFile `json:"fileData"`
			HasNextPage bool         `json:"hasNextPage"`
		}
		body := map[string]int{"page": listPage}
		if err := client.post(listUsername, "/api/fs/list", body, &resp, bundle); err != nil {
			return err
		}

		for _, f := range resp.FileData {
			owner := "owned"
			if !f.IsOwner {
				owner = "shared by " + f.OwnerUserID
			}
			fmt.Printf("%d\t%s\t%s\n", f.FileID, owner, f.UploadTS)
		}
		if resp.HasNextPage {
			fmt.Println("(more results on next page)")
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listUsername, "username", "", "Logged-in username")
	listCmd.Flags().StringVar(&listPassword, "password", "", "Password to unlock the local store")
	listCmd.Flags().IntVar(&listPage, "page", 1, "Page number, starting at 1")
	_ = listCmd.MarkFlagRequired("username")
	_ = listCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(listCmd)
}
