package app

import (
	"os"
	"strings"
	"time"

	"github.com/jeremywohl/flatten"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/dmizin/computer-inventory/internal/model"
)

const (
	defaultListenAddress  = "0.0.0.0:8000"
	defaultVaultName      = "Computer-Inventory"
	defaultSecretTemplate = "asset-{asset_id}"
	defaultVaultTimeout   = 10 * time.Second
)

// TLS verification modes for the vault HTTP client.
const (
	TLSModeVerify   = "verify"
	TLSModeCustomCA = "custom-ca"
	TLSModeInsecure = "insecure"
)

var (
	ErrConfig = errors.New("configuration error")
)

// Configuration holds application configuration read from a YAML file or set
// by env variables.
//
// nolint:govet // prefer readability over field alignment optimization for this case.
type Configuration struct {
	// LogLevel is the app verbose logging level.
	// one of - info, debug, trace
	LogLevel string `mapstructure:"log_level"`

	// ListenAddress is the host:port the API server binds to.
	ListenAddress string `mapstructure:"listen_address"`

	// APIKeyHashes are additional bcrypt hashed API keys accepted alongside
	// keys stored in the database.
	APIKeyHashes []string `mapstructure:"api_key_hashes"`

	// Database defines the PostgreSQL connection parameters.
	Database *DatabaseOptions `mapstructure:"database"`

	// Vault defines the secrets vault integration parameters.
	Vault *VaultOptions `mapstructure:"vault"`
}

// DatabaseOptions defines configuration for the PostgreSQL store.
type DatabaseOptions struct {
	// URL is a lib/pq connection string.
	URL          string `mapstructure:"url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// VaultOptions defines configuration for the secrets vault Connect client.
//
// nolint:govet // prefer readability over field alignment optimization for this case.
type VaultOptions struct {
	// Enabled turns the vault credential mirror on. When false every sync is
	// a no-op and no vault connection parameters are required.
	Enabled bool `mapstructure:"enabled"`

	// Host is the vault Connect server base URL.
	Host string `mapstructure:"host"`

	// Token is the vault Connect API token.
	Token string `mapstructure:"token"`

	// VaultName is the name of the vault holding asset secrets.
	VaultName string `mapstructure:"vault_name"`

	// SecretTemplate names per-asset secrets, the single {asset_id}
	// substitution point is the idempotency key against the vault.
	SecretTemplate string `mapstructure:"secret_template"`

	// ConnectTimeout bounds each vault round trip.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	// TLSMode is one of verify, custom-ca, insecure.
	TLSMode string `mapstructure:"tls_mode"`

	// CACertFile is the CA bundle path used when TLSMode is custom-ca.
	CACertFile string `mapstructure:"ca_cert_file"`
}

// Validate asserts the connection parameters required by the enabled
// integration are present.
func (o *VaultOptions) Validate() error {
	if !o.Enabled {
		return nil
	}

	if o.Host == "" || o.Token == "" {
		return errors.Wrap(ErrConfig, "vault integration enabled but host or token not configured")
	}

	if o.TLSMode == TLSModeCustomCA && o.CACertFile == "" {
		return errors.Wrap(ErrConfig, "vault tls_mode custom-ca requires ca_cert_file")
	}

	return nil
}

// LoadConfiguration loads application configuration
//
// Reads in the cfgFile when available and overrides from environment variables.
func (a *App) LoadConfiguration(cfgFile string) error {
	a.v.SetConfigType("yaml")
	a.v.SetEnvPrefix(model.AppName)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	// these are initialized here so viper can read in configuration from env vars
	// once https://github.com/spf13/viper/pull/1429 is merged, this can go.
	a.Config.Database = &DatabaseOptions{}
	a.Config.Vault = &VaultOptions{}

	if cfgFile != "" {
		fh, err := os.Open(cfgFile)
		if err != nil {
			return errors.Wrap(ErrConfig, err.Error())
		}

		if err = a.v.ReadConfig(fh); err != nil {
			return errors.Wrap(ErrConfig, "ReadConfig error:"+err.Error())
		}
	}

	a.v.SetDefault("log.level", "info")

	if err := a.envBindVars(); err != nil {
		return errors.Wrap(ErrConfig, "env var bind error:"+err.Error())
	}

	if err := a.v.Unmarshal(a.Config); err != nil {
		return errors.Wrap(ErrConfig, "Unmarshal error: "+err.Error())
	}

	a.envVarAppOverrides()
	a.envVarDatabaseOverrides()
	a.envVarVaultOverrides()

	a.setDefaults()

	if err := a.Config.Vault.Validate(); err != nil {
		return err
	}

	return nil
}

func (a *App) setDefaults() {
	if a.Config.ListenAddress == "" {
		a.Config.ListenAddress = defaultListenAddress
	}

	vault := a.Config.Vault

	if vault.VaultName == "" {
		vault.VaultName = defaultVaultName
	}

	if vault.SecretTemplate == "" {
		vault.SecretTemplate = defaultSecretTemplate
	}

	if vault.ConnectTimeout == 0 {
		vault.ConnectTimeout = defaultVaultTimeout
	}

	if vault.TLSMode == "" {
		vault.TLSMode = TLSModeVerify
	}
}

func (a *App) envVarAppOverrides() {
	if a.v.GetString("log.level") != "" {
		a.Config.LogLevel = a.v.GetString("log.level")
	}

	if a.v.GetString("listen.address") != "" {
		a.Config.ListenAddress = a.v.GetString("listen.address")
	}
}

func (a *App) envVarDatabaseOverrides() {
	if a.v.GetString("database.url") != "" {
		a.Config.Database.URL = a.v.GetString("database.url")
	}

	if a.v.GetInt("database.max.open.conns") != 0 {
		a.Config.Database.MaxOpenConns = a.v.GetInt("database.max.open.conns")
	}
}

// nolint:gocyclo // parameter overrides are cyclomatic
func (a *App) envVarVaultOverrides() {
	vault := a.Config.Vault

	if a.v.GetString("vault.enabled") != "" {
		vault.Enabled = a.v.GetBool("vault.enabled")
	}

	if a.v.GetString("vault.host") != "" {
		vault.Host = a.v.GetString("vault.host")
	}

	if a.v.GetString("vault.token") != "" {
		vault.Token = a.v.GetString("vault.token")
	}

	if a.v.GetString("vault.vault.name") != "" {
		vault.VaultName = a.v.GetString("vault.vault.name")
	}

	if a.v.GetString("vault.secret.template") != "" {
		vault.SecretTemplate = a.v.GetString("vault.secret.template")
	}

	if a.v.GetDuration("vault.connect.timeout") != 0 {
		vault.ConnectTimeout = a.v.GetDuration("vault.connect.timeout")
	}

	if a.v.GetString("vault.tls.mode") != "" {
		vault.TLSMode = a.v.GetString("vault.tls.mode")
	}

	if a.v.GetString("vault.ca.cert.file") != "" {
		vault.CACertFile = a.v.GetString("vault.ca.cert.file")
	}
}

// envBindVars binds environment variables to the struct
// without a configuration file being unmarshalled,
// this is a workaround for a viper bug,
//
// This can be replaced by the solution in https://github.com/spf13/viper/pull/1429
// once that PR is merged.
func (a *App) envBindVars() error {
	envKeysMap := map[string]interface{}{}
	if err := mapstructure.Decode(a.Config, &envKeysMap); err != nil {
		return err
	}

	// Flatten nested conf map
	flat, err := flatten.Flatten(envKeysMap, "", flatten.DotStyle)
	if err != nil {
		return errors.Wrap(err, "Unable to flatten config")
	}

	for k := range flat {
		if err := a.v.BindEnv(k); err != nil {
			return errors.Wrap(ErrConfig, "env var bind error: "+err.Error())
		}
	}

	return nil
}
