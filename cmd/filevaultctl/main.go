// Command filevaultctl is the reference client CLI: register, login,
// upload, list, download, share, revoke, logout and change-password against
// a filevaultd server, backed by a local ClientStore.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomjoyce1/filevault/internal/config"
	"github.com/tomjoyce1/filevault/internal/verrors"
	"github.com/tomjoyce1/filevault/pkg/clientstore"
)

// Exit codes per SPEC_FULL.md §6.3. exitGeneric covers every error kind the
// spec leaves unassigned (ShareError, ProtocolError, CryptoError, network).
const (
	exitSuccess = 0
	exitGeneric = 1
	exitAuth    = 2
	exitStorage = 3
)

var clientCfg *config.ClientConfig

var rootCmd = &cobra.Command{
	Use:   "filevaultctl",
	Short: "filevault client — end-to-end encrypted file sharing",
	Long: `filevaultctl is the reference client for the filevault core.

It performs all cryptography locally: identity generation, request signing,
envelope encryption and the share protocol. The server only ever sees
ciphertext and signatures.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	fs := flag.NewFlagSet("filevaultctl-globals", flag.ContinueOnError)
	cfg, err := config.ParseClientFlags(fs, os.Args[1:])
	if err != nil {
		// Flags are re-parsed properly by cobra below; a parse error here
		// (e.g. an unknown cobra subcommand flag) is not fatal yet.
		cfg = &config.ClientConfig{ServerBaseURL: "https://localhost:8443"}
	}
	clientCfg = cfg

	rootCmd.PersistentFlags().StringVar(&clientCfg.ServerBaseURL, "server", clientCfg.ServerBaseURL, "Server base URL")
	rootCmd.PersistentFlags().StringVar(&clientCfg.CABundlePath, "ca-bundle", clientCfg.CABundlePath, "CA bundle path")
	rootCmd.PersistentFlags().StringVar(&clientCfg.StorePath, "store", clientCfg.StorePath, "Local encrypted store path")
}

func openStore() (*clientstore.Store, error) {
	return clientstore.Open(clientCfg.StorePath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	var authErr *verrors.AuthError
	if verrors.As(err, &authErr) {
		return exitAuth
	}
	var storageErr *verrors.StorageError
	if verrors.As(err, &storageErr) {
		return exitStorage
	}
	return exitGeneric
}
