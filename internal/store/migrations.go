package store

import (
	"context"
)

// schema holds the database schema statements applied by the migrate command.
// Statements are idempotent so that migrate can be re-run safely.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username VARCHAR(100) NOT NULL UNIQUE,
		full_name VARCHAR(255) NOT NULL,
		email VARCHAR(255),
		department VARCHAR(100),
		title VARCHAR(100),
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS assets (
		id UUID PRIMARY KEY,
		hostname VARCHAR(255) NOT NULL,
		fqdn VARCHAR(255) UNIQUE,
		serial_number VARCHAR(100),
		vendor VARCHAR(100),
		model VARCHAR(100),
		type VARCHAR(50) NOT NULL DEFAULT 'server'
			CHECK (type IN ('server', 'workstation', 'network', 'storage')),
		status VARCHAR(50) NOT NULL DEFAULT 'active'
			CHECK (status IN ('active', 'retired', 'maintenance')),
		location VARCHAR(255),
		specs JSONB NOT NULL DEFAULT '{}',
		primary_owner_id UUID REFERENCES users(id) ON DELETE SET NULL,
		notes TEXT,
		secret_id VARCHAR(255),
		vault_id VARCHAR(255),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assets_hostname ON assets (hostname)`,
	`CREATE INDEX IF NOT EXISTS idx_assets_serial_number ON assets (serial_number)`,
	`CREATE INDEX IF NOT EXISTS idx_assets_status ON assets (status)`,
	`CREATE TABLE IF NOT EXISTS management_controllers (
		id UUID PRIMARY KEY,
		asset_id UUID NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		type VARCHAR(50) NOT NULL CHECK (type IN ('ilo', 'idrac', 'ipmi', 'redfish')),
		address VARCHAR(255) NOT NULL,
		port INTEGER NOT NULL DEFAULT 443,
		ui_url VARCHAR(500),
		credential_ref VARCHAR(255),
		use_asset_credentials BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_management_controllers_asset_id ON management_controllers (asset_id)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		access_url VARCHAR(500),
		internal_url VARCHAR(500),
		environment VARCHAR(50) NOT NULL DEFAULT 'production'
			CHECK (environment IN ('production', 'staging', 'development', 'testing')),
		application_type VARCHAR(100),
		version VARCHAR(50),
		port INTEGER,
		status VARCHAR(50) NOT NULL DEFAULT 'active'
			CHECK (status IN ('active', 'inactive', 'maintenance', 'deprecated')),
		criticality VARCHAR(20) NOT NULL DEFAULT 'medium'
			CHECK (criticality IN ('low', 'medium', 'high', 'critical')),
		primary_contact_id UUID REFERENCES users(id) ON DELETE SET NULL,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS application_assets (
		application_id UUID NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
		asset_id UUID NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (application_id, asset_id)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY,
		action VARCHAR(50) NOT NULL,
		resource_type VARCHAR(50) NOT NULL,
		resource_id UUID NOT NULL,
		changes JSONB,
		api_key_id UUID,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs (resource_type, resource_id)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id UUID PRIMARY KEY,
		key_hash VARCHAR(255) NOT NULL UNIQUE,
		name VARCHAR(100) NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the schema statements in order.
func (s *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return s.queryErr("migrate", err)
		}
	}

	s.logger.Info("database schema migrated")

	return nil
}
