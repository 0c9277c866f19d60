// Package config resolves the server and client configuration surface
// (§6.3): environment variables for the server, flags plus a `.env` file
// for the client CLI, following the teacher's flag-parsing convention.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// ServerConfig holds the fsserver's runtime configuration.
type ServerConfig struct {
	Port       string
	APIVersion string
}

// defaultPort and defaultAPIVersion are used when the corresponding env var
// is unset.
const (
	defaultPort       = "8443"
	defaultAPIVersion = "v1"
)

// LoadServerConfig reads PORT and API_VERSION from the environment,
// loading a .env file first if present (a no-op if it doesn't exist).
func LoadServerConfig() (*ServerConfig, error) {
	_ = godotenv.Load()

	cfg := &ServerConfig{
		Port:       envOrDefault("PORT", defaultPort),
		APIVersion: envOrDefault("API_VERSION", defaultAPIVersion),
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ClientConfig holds filevaultctl's runtime configuration: where the server
// lives, the CA bundle to trust it with, and where the local encrypted
// store is kept.
type ClientConfig struct {
	ServerBaseURL string
	CABundlePath  string
	StorePath     string
}

// defaultStorePath is relative to the user's home directory; ParseClientFlags
// resolves it lazily so tests can override HOME.
const defaultStorePath = ".filevault/store.json"

// ParseClientFlags parses the client CLI's global flags out of args (normally
// os.Args[1:], past the program name only), loading a .env file first
// so FILEVAULT_* variables can supply defaults.
func ParseClientFlags(fs *flag.FlagSet, args []string) (*ClientConfig, error) {
	_ = godotenv.Load()

	home, _ := os.UserHomeDir()
	defaultStore := defaultStorePath
	if home != "" {
		defaultStore = home + string(os.PathSeparator) + defaultStorePath
	}

	serverURL := fs.String("server", envOrDefault("FILEVAULT_SERVER_URL", "https://localhost:8443"), "Server base URL")
	caBundle := fs.String("ca-bundle", envOrDefault("FILEVAULT_CA_BUNDLE", ""), "Path to a CA bundle trusting the server's TLS certificate")
	storePath := fs.String("store", envOrDefault("FILEVAULT_STORE_PATH", defaultStore), "Path to the local encrypted client store")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	return &ClientConfig{
		ServerBaseURL: *serverURL,
		CABundlePath:  *caBundle,
		StorePath:     *storePath,
	}, nil
}
