package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"promptledger/crypto"
)

func testAddress(t *testing.T, b byte) string {
	t.Helper()
	raw := make([]byte, 20)
	raw[0] = b
	addr, err := crypto.NewAddress(crypto.PromptPrefix, raw)
	require.NoError(t, err)
	return addr.String()
}

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.FileExists(t, cfg.OperatorKeystorePath)

	require.Equal(t, ":8080", cfg.RPCAddress)
	require.Equal(t, "prompt-local", cfg.NetworkName)
	require.Equal(t, 600, cfg.RateLimitPerMinute)
	require.NotEmpty(t, cfg.AdminAddress)
	require.Equal(t, cfg.AdminAddress, cfg.PlatformAddress)

	admin, platform, treasury, err := cfg.Addresses()
	require.NoError(t, err)
	require.Equal(t, admin, platform)
	require.Equal(t, admin, treasury)
}

func TestLoadExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
RPCAddress = ":9090"
DataDir = "/tmp/ledger"
NetworkName = "prompt-test"
OperatorKeystorePath = "/tmp/ledger/operator.keystore"
AdminAddress = "` + testAddress(t, 0x01) + `"
PlatformAddress = "` + testAddress(t, 0x02) + `"
TreasuryAddress = "` + testAddress(t, 0x03) + `"
RateLimitPerMinute = 120
PausedModules = ["market"]
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.RPCAddress)
	require.Equal(t, "prompt-test", cfg.NetworkName)
	require.Equal(t, 120, cfg.RateLimitPerMinute)
	require.Equal(t, []string{"market"}, cfg.PausedModules)
	require.Equal(t, filepath.Join("/tmp/ledger", "metadata.db"), cfg.MetadataPath)

	admin, _, _, err := cfg.Addresses()
	require.NoError(t, err)
	require.Equal(t, byte(0x01), admin[0])
}

func TestLoadRejectsBadAddress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
OperatorKeystorePath = "/tmp/op.keystore"
AdminAddress = "not-an-address"
PlatformAddress = "` + testAddress(t, 0x02) + `"
TreasuryAddress = "` + testAddress(t, 0x03) + `"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "AdminAddress")
}

func TestLoadRejectsMissingAddress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
OperatorKeystorePath = "/tmp/op.keystore"
PlatformAddress = "` + testAddress(t, 0x02) + `"
TreasuryAddress = "` + testAddress(t, 0x03) + `"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}
