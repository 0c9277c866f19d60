package config_test

import (
	"flag"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tomjoyce1/filevault/internal/config"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	os.Unsetenv("PORT")
	os.Unsetenv("API_VERSION")

	cfg, err := config.LoadServerConfig()
	require.NoError(t, err)
	require.Equal(t, "8443", cfg.Port)
	require.Equal(t, "v1", cfg.APIVersion)
}

func TestLoadServerConfigReadsEnv(t *testing.T) {
	os.Setenv("PORT", "9999")
	os.Setenv("API_VERSION", "v2")
	defer os.Unsetenv("PORT")
	defer os.Unsetenv("API_VERSION")

	cfg, err := config.LoadServerConfig()
	require.NoError(t, err)
	require.Equal(t, "9999", cfg.Port)
	require.Equal(t, "v2", cfg.APIVersion)
}

func TestParseClientFlagsDefaults(t *testing.T) {
	os.Unsetenv("FILEVAULT_SERVER_URL")
	os.Unsetenv("FILEVAULT_CA_BUNDLE")
	os.Unsetenv("FILEVAULT_STORE_PATH")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := config.ParseClientFlags(fs, []string{"--server", "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, "https://example.com", cfg.ServerBaseURL)
	require.NotEmpty(t, cfg.StorePath)
}
