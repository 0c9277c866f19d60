package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login <username> <password>",
	Short: "Unlock the local encrypted store",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		username, password := args[0], args[1]

		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Login(username, []byte(password)); err != nil {
			return err
		}

		fmt.Printf("logged in as %s\n", store.GetUser())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Wipe the unlocked identity from memory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		store.Logout()
		fmt.Println("logged out")
		return nil
	},
}

var changePasswordCmd = &cobra.Command{
	Use:   "change-password <username> <old-password> <new-password>",
	Short: "Re-wrap the master key under a new password",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Login(args[0], []byte(args[1])); err != nil {
			return err
		}
		if err := store.ChangePassword([]byte(args[2])); err != nil {
			return err
		}
		fmt.Println("password changed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, changePasswordCmd)
}
