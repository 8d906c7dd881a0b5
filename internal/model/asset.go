package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrSpecsScan = errors.New("error scanning asset specs column")

// Specs is the free-form hardware specification blob stored as JSONB.
type Specs map[string]interface{}

func (s Specs) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal(Specs{})
	}

	return json.Marshal(s)
}

func (s *Specs) Scan(src interface{}) error {
	if src == nil {
		*s = Specs{}
		return nil
	}

	b, ok := src.([]byte)
	if !ok {
		return errors.Wrap(ErrSpecsScan, "expected []byte")
	}

	return json.Unmarshal(b, s)
}

// Asset is an inventory record for a physical server, workstation or other hardware.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type Asset struct {
	ID uuid.UUID `db:"id" json:"id"`

	// Identity attributes, FQDN is unique across all assets when set.
	Hostname     string `db:"hostname" json:"hostname"`
	FQDN         string `db:"fqdn" json:"fqdn,omitempty"`
	SerialNumber string `db:"serial_number" json:"serial_number,omitempty"`
	Vendor       string `db:"vendor" json:"vendor,omitempty"`
	Model        string `db:"model" json:"model,omitempty"`

	Type   AssetType   `db:"type" json:"type"`
	Status AssetStatus `db:"status" json:"status"`

	Location string `db:"location" json:"location,omitempty"`
	Specs    Specs  `db:"specs" json:"specs"`

	PrimaryOwnerID *uuid.UUID `db:"primary_owner_id" json:"primary_owner_id,omitempty"`
	Notes          string     `db:"notes" json:"notes,omitempty"`

	// Vault secret reference, written back after a successful credential sync.
	SecretID string `db:"secret_id" json:"secret_id,omitempty"`
	VaultID  string `db:"vault_id" json:"vault_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasSecret indicates a vault secret reference is recorded for the asset.
func (a *Asset) HasSecret() bool {
	return a.SecretID != ""
}

// ManagementController is an out-of-band management interface attached to an asset.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type ManagementController struct {
	ID      uuid.UUID `db:"id" json:"id"`
	AssetID uuid.UUID `db:"asset_id" json:"asset_id"`

	Type    ControllerType `db:"type" json:"type"`
	Address string         `db:"address" json:"address"`
	Port    int            `db:"port" json:"port"`
	UIURL   string         `db:"ui_url" json:"ui_url,omitempty"`

	// CredentialRef points at the vault secret field supplying this controller's
	// credentials, UseAssetCredentials indicates the asset's own credentials apply.
	CredentialRef       string `db:"credential_ref" json:"credential_ref,omitempty"`
	UseAssetCredentials bool   `db:"use_asset_credentials" json:"use_asset_credentials"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Credentials are caller supplied username/password overrides for the vault
// secret. A nil field was omitted, a pointer to an empty string was explicitly
// blanked - the secret builder treats both as "keep the default".
type Credentials struct {
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	SSHKey   *string `json:"ssh_key,omitempty"`
}

// AssetUpsert is an inbound asset record submitted for reconciliation.
//
// Optional fields are pointers so that "field omitted" and "field explicitly
// set" remain distinguishable - only present fields overwrite a matched asset.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type AssetUpsert struct {
	Hostname     string  `json:"hostname" binding:"required"`
	FQDN         *string `json:"fqdn,omitempty"`
	SerialNumber *string `json:"serial_number,omitempty"`
	Vendor       *string `json:"vendor,omitempty"`
	Model        *string `json:"model,omitempty"`

	Type   *AssetType   `json:"type,omitempty"`
	Status *AssetStatus `json:"status,omitempty"`

	Location *string `json:"location,omitempty"`
	Specs    Specs   `json:"specs,omitempty"`

	PrimaryOwnerID *uuid.UUID `json:"primary_owner_id,omitempty"`
	Notes          *string    `json:"notes,omitempty"`

	// ApplicationIDs carries tri-state semantics: nil leaves existing
	// associations untouched, an empty list clears them, a populated list
	// replaces them wholesale.
	ApplicationIDs *[]uuid.UUID `json:"application_ids,omitempty"`

	// Credential overrides are stripped before persistence and handed only to
	// the credential sync component.
	MgmtCredentials *Credentials `json:"mgmt_credentials,omitempty"`
	OSCredentials   *Credentials `json:"os_credentials,omitempty"`
}
