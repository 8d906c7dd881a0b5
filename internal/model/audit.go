package model

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded against resources.
const (
	AuditActionCreate     = "CREATE"
	AuditActionUpdate     = "UPDATE"
	AuditActionDelete     = "DELETE"
	AuditActionSoftDelete = "SOFT_DELETE"
)

// Audited resource types.
const (
	ResourceTypeAsset       = "asset"
	ResourceTypeController  = "management_controller"
	ResourceTypeUser        = "user"
	ResourceTypeApplication = "application"
)

// AuditLog is an append-only record of a change to a resource.
//
// The Changes payload must hold only JSON-safe values - identifiers and
// timestamps are string serialized before the record is persisted.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type AuditLog struct {
	ID uuid.UUID `db:"id" json:"id"`

	Action       string    `db:"action" json:"action"`
	ResourceType string    `db:"resource_type" json:"resource_type"`
	ResourceID   uuid.UUID `db:"resource_id" json:"resource_id"`

	Changes Specs `db:"changes" json:"changes,omitempty"`

	APIKeyID *uuid.UUID `db:"api_key_id" json:"api_key_id,omitempty"`

	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}

// APIKey is a bcrypt hashed key authorized to mutate inventory.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type APIKey struct {
	ID uuid.UUID `db:"id" json:"id"`

	KeyHash string `db:"key_hash" json:"-"`
	Name    string `db:"name" json:"name"`
	Active  bool   `db:"active" json:"active"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
