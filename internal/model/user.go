package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a system user assets and applications are assigned to.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type User struct {
	ID uuid.UUID `db:"id" json:"id"`

	Username   string `db:"username" json:"username"`
	FullName   string `db:"full_name" json:"full_name"`
	Email      string `db:"email" json:"email,omitempty"`
	Department string `db:"department" json:"department,omitempty"`
	Title      string `db:"title" json:"title,omitempty"`

	Active bool `db:"active" json:"active"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ApplicationEnvironment is the deployment environment of an application.
type ApplicationEnvironment string

const (
	AppEnvProduction  ApplicationEnvironment = "production"
	AppEnvStaging     ApplicationEnvironment = "staging"
	AppEnvDevelopment ApplicationEnvironment = "development"
	AppEnvTesting     ApplicationEnvironment = "testing"
)

// Application is a service deployed on one or more assets.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type Application struct {
	ID uuid.UUID `db:"id" json:"id"`

	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`
	AccessURL   string `db:"access_url" json:"access_url,omitempty"`
	InternalURL string `db:"internal_url" json:"internal_url,omitempty"`

	Environment     ApplicationEnvironment `db:"environment" json:"environment"`
	ApplicationType string                 `db:"application_type" json:"application_type,omitempty"`
	Version         string                 `db:"version" json:"version,omitempty"`
	Port            int                    `db:"port" json:"port,omitempty"`
	Status          string                 `db:"status" json:"status"`
	Criticality     string                 `db:"criticality" json:"criticality"`

	PrimaryContactID *uuid.UUID `db:"primary_contact_id" json:"primary_contact_id,omitempty"`
	Notes            string     `db:"notes" json:"notes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
