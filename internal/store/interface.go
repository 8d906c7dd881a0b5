package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dmizin/computer-inventory/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a write violates a uniqueness constraint,
	// notably the global FQDN constraint on assets.
	ErrConflict = errors.New("record conflicts with an existing row")
)

// AssetFilter narrows and pages asset listings.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type AssetFilter struct {
	// Search matches hostname, fqdn, serial number, vendor and model.
	Search string
	Status model.AssetStatus
	Type   model.AssetType
	Vendor string

	SortBy    string
	SortOrder string

	Offset int
	Limit  int
}

// AuditLogFilter narrows and pages audit log listings.
type AuditLogFilter struct {
	ResourceType string
	ResourceID   *uuid.UUID

	Offset int
	Limit  int
}

// Repository is the relational store surface of the inventory system.
type Repository interface {
	// Asset lookups by natural keys back the reconciler's matching order.
	AssetByID(ctx context.Context, id uuid.UUID) (*model.Asset, error)
	AssetByFQDN(ctx context.Context, fqdn string) (*model.Asset, error)
	AssetBySerialVendor(ctx context.Context, serial, vendor string) (*model.Asset, error)
	AssetByHostname(ctx context.Context, hostname string) (*model.Asset, error)
	ListAssets(ctx context.Context, filter *AssetFilter) ([]model.Asset, int, error)
	CreateAsset(ctx context.Context, asset *model.Asset) error
	UpdateAsset(ctx context.Context, asset *model.Asset) error
	// SetAssetSecretRef writes back the vault secret reference in its own
	// commit, after the primary asset write.
	SetAssetSecretRef(ctx context.Context, id uuid.UUID, secretID, vaultID string) error
	// DeleteAsset removes the row, controllers cascade with it.
	DeleteAsset(ctx context.Context, id uuid.UUID) error

	AssetApplicationIDs(ctx context.Context, assetID uuid.UUID) ([]uuid.UUID, error)
	ReplaceAssetApplications(ctx context.Context, assetID uuid.UUID, applicationIDs []uuid.UUID) error

	ControllerByID(ctx context.Context, id uuid.UUID) (*model.ManagementController, error)
	ControllersByAsset(ctx context.Context, assetID uuid.UUID) ([]model.ManagementController, error)
	CreateController(ctx context.Context, controller *model.ManagementController) error
	UpdateController(ctx context.Context, controller *model.ManagementController) error
	DeleteController(ctx context.Context, id uuid.UUID) error

	UserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]model.User, int, error)
	CreateUser(ctx context.Context, user *model.User) error
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error

	ApplicationByID(ctx context.Context, id uuid.UUID) (*model.Application, error)
	ListApplications(ctx context.Context, offset, limit int) ([]model.Application, int, error)
	CreateApplication(ctx context.Context, application *model.Application) error
	UpdateApplication(ctx context.Context, application *model.Application) error
	DeleteApplication(ctx context.Context, id uuid.UUID) error

	CreateAuditLog(ctx context.Context, entry *model.AuditLog) error
	ListAuditLogs(ctx context.Context, filter *AuditLogFilter) ([]model.AuditLog, int, error)

	ActiveAPIKeys(ctx context.Context) ([]model.APIKey, error)
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
}
