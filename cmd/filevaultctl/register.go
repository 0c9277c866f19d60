package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomjoyce1/filevault/pkg/keybundle"
)

var registerCmd = &cobra.Command{
	Use:   "register <username> <password>",
	Short: "Generate a new identity and register it with the server",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		username, password := args[0], args[1]

		store, err := openStore()
		if err != nil {
			return err
		}

		bundle, err := keybundle.GenerateKeyBundle()
		if err != nil {
			return err
		}
		if err := store.SetUserWithPassword(username, []byte(password), bundle); err != nil {
			return err
		}

		pubJSON, err := bundle.ToPublicJSON()
		if err != nil {
			return err
		}

		client := newAPIClient(clientCfg.ServerBaseURL)
		body := map[string]interface{}{
			"username":          username,
			"public_key_bundle": json.RawMessage(pubJSON),
		}
		if err := client.post(username, "/api/keyhandler/register", body, nil, bundle); err != nil {
			return err
		}

		fmt.Printf("registered %s\n", username)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
}
