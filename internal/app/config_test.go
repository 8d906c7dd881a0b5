package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

func Test_LoadConfigurationDefaults(t *testing.T) {
	app, err := New("", 0)
	require.NoError(t, err)

	assert.Equal(t, defaultListenAddress, app.Config.ListenAddress)
	assert.False(t, app.Config.Vault.Enabled)
	assert.Equal(t, defaultVaultName, app.Config.Vault.VaultName)
	assert.Equal(t, defaultSecretTemplate, app.Config.Vault.SecretTemplate)
	assert.Equal(t, defaultVaultTimeout, app.Config.Vault.ConnectTimeout)
	assert.Equal(t, TLSModeVerify, app.Config.Vault.TLSMode)
}

func Test_LoadConfigurationFromFile(t *testing.T) {
	path := writeConfigFile(t, `
listen_address: 127.0.0.1:9000
database:
  url: postgres://inventory@localhost/inventory?sslmode=disable
  max_open_conns: 5
vault:
  enabled: true
  host: https://connect.example.com
  token: secret-token
  vault_name: Lab-Inventory
  connect_timeout: 30s
  tls_mode: insecure
`)

	app, err := New(path, 0)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", app.Config.ListenAddress)
	assert.Equal(t, "postgres://inventory@localhost/inventory?sslmode=disable", app.Config.Database.URL)
	assert.Equal(t, 5, app.Config.Database.MaxOpenConns)
	assert.True(t, app.Config.Vault.Enabled)
	assert.Equal(t, "Lab-Inventory", app.Config.Vault.VaultName)
	assert.Equal(t, 30*time.Second, app.Config.Vault.ConnectTimeout)
	assert.Equal(t, TLSModeInsecure, app.Config.Vault.TLSMode)
}

func Test_LoadConfigurationEnvOverride(t *testing.T) {
	t.Setenv("INVENTORY_VAULT_TOKEN", "env-token")
	t.Setenv("INVENTORY_LISTEN_ADDRESS", "0.0.0.0:8080")

	path := writeConfigFile(t, `
vault:
  enabled: true
  host: https://connect.example.com
  token: file-token
`)

	app, err := New(path, 0)
	require.NoError(t, err)

	assert.Equal(t, "env-token", app.Config.Vault.Token)
	assert.Equal(t, "0.0.0.0:8080", app.Config.ListenAddress)
}

func Test_VaultEnabledRequiresConnectionSettings(t *testing.T) {
	path := writeConfigFile(t, `
vault:
  enabled: true
`)

	_, err := New(path, 0)
	assert.ErrorIs(t, err, ErrConfig)
}

func Test_VaultOptionsValidate(t *testing.T) {
	disabled := &VaultOptions{Enabled: false}
	require.NoError(t, disabled.Validate())

	missingCA := &VaultOptions{
		Enabled: true,
		Host:    "https://connect.example.com",
		Token:   "token",
		TLSMode: TLSModeCustomCA,
	}
	assert.ErrorIs(t, missingCA.Validate(), ErrConfig)
}
