package store

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/dmizin/computer-inventory/internal/model"
)

const controllerColumns = `id, asset_id, type, address, port, COALESCE(ui_url, '') AS ui_url,
	COALESCE(credential_ref, '') AS credential_ref, use_asset_credentials, created_at`

func (s *Postgres) ControllerByID(ctx context.Context, id uuid.UUID) (*model.ManagementController, error) {
	controller := &model.ManagementController{}

	err := s.db.GetContext(ctx, controller,
		"SELECT "+controllerColumns+" FROM management_controllers WHERE id = $1", id)
	if err != nil {
		return nil, s.queryErr("controller_by_id", err)
	}

	return controller, nil
}

func (s *Postgres) ControllersByAsset(ctx context.Context, assetID uuid.UUID) ([]model.ManagementController, error) {
	controllers := []model.ManagementController{}

	err := s.db.SelectContext(ctx, &controllers,
		"SELECT "+controllerColumns+" FROM management_controllers WHERE asset_id = $1 ORDER BY created_at", assetID)
	if err != nil {
		return nil, s.queryErr("controllers_by_asset", err)
	}

	return controllers, nil
}

func (s *Postgres) CreateController(ctx context.Context, controller *model.ManagementController) error {
	const query = `
		INSERT INTO management_controllers (
			id, asset_id, type, address, port, ui_url, credential_ref,
			use_asset_credentials, created_at
		) VALUES (
			:id, :asset_id, :type, :address, :port, NULLIF(:ui_url, ''),
			NULLIF(:credential_ref, ''), :use_asset_credentials, NOW()
		)`

	if _, err := s.db.NamedExecContext(ctx, query, controller); err != nil {
		return s.queryErr("create_controller", err)
	}

	return nil
}

func (s *Postgres) UpdateController(ctx context.Context, controller *model.ManagementController) error {
	const query = `
		UPDATE management_controllers SET
			type = :type, address = :address, port = :port,
			ui_url = NULLIF(:ui_url, ''), credential_ref = NULLIF(:credential_ref, ''),
			use_asset_credentials = :use_asset_credentials
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, query, controller)
	if err != nil {
		return s.queryErr("update_controller", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *Postgres) DeleteController(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM management_controllers WHERE id = $1", id)
	if err != nil {
		return s.queryErr("delete_controller", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

const userColumns = `id, username, full_name, COALESCE(email, '') AS email,
	COALESCE(department, '') AS department, COALESCE(title, '') AS title,
	active, created_at, updated_at`

func (s *Postgres) UserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user := &model.User{}

	if err := s.db.GetContext(ctx, user, "SELECT "+userColumns+" FROM users WHERE id = $1", id); err != nil {
		return nil, s.queryErr("user_by_id", err)
	}

	return user, nil
}

func (s *Postgres) ListUsers(ctx context.Context, offset, limit int) ([]model.User, int, error) {
	total := 0
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM users"); err != nil {
		return nil, 0, s.queryErr("count_users", err)
	}

	users := []model.User{}

	err := s.db.SelectContext(ctx, &users,
		"SELECT "+userColumns+" FROM users ORDER BY username LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, 0, s.queryErr("list_users", err)
	}

	return users, total, nil
}

func (s *Postgres) CreateUser(ctx context.Context, user *model.User) error {
	const query = `
		INSERT INTO users (id, username, full_name, email, department, title, active, created_at, updated_at)
		VALUES (:id, :username, :full_name, NULLIF(:email, ''), NULLIF(:department, ''),
			NULLIF(:title, ''), :active, NOW(), NOW())`

	if _, err := s.db.NamedExecContext(ctx, query, user); err != nil {
		return s.queryErr("create_user", err)
	}

	return nil
}

func (s *Postgres) UpdateUser(ctx context.Context, user *model.User) error {
	const query = `
		UPDATE users SET username = :username, full_name = :full_name,
			email = NULLIF(:email, ''), department = NULLIF(:department, ''),
			title = NULLIF(:title, ''), active = :active, updated_at = NOW()
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return s.queryErr("update_user", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *Postgres) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return s.queryErr("delete_user", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

const applicationColumns = `id, name, COALESCE(description, '') AS description,
	COALESCE(access_url, '') AS access_url, COALESCE(internal_url, '') AS internal_url,
	environment, COALESCE(application_type, '') AS application_type,
	COALESCE(version, '') AS version, COALESCE(port, 0) AS port, status, criticality,
	primary_contact_id, COALESCE(notes, '') AS notes, created_at, updated_at`

func (s *Postgres) ApplicationByID(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	application := &model.Application{}

	err := s.db.GetContext(ctx, application, "SELECT "+applicationColumns+" FROM applications WHERE id = $1", id)
	if err != nil {
		return nil, s.queryErr("application_by_id", err)
	}

	return application, nil
}

func (s *Postgres) ListApplications(ctx context.Context, offset, limit int) ([]model.Application, int, error) {
	total := 0
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM applications"); err != nil {
		return nil, 0, s.queryErr("count_applications", err)
	}

	applications := []model.Application{}

	err := s.db.SelectContext(ctx, &applications,
		"SELECT "+applicationColumns+" FROM applications ORDER BY name LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, 0, s.queryErr("list_applications", err)
	}

	return applications, total, nil
}

func (s *Postgres) CreateApplication(ctx context.Context, application *model.Application) error {
	const query = `
		INSERT INTO applications (
			id, name, description, access_url, internal_url, environment,
			application_type, version, port, status, criticality,
			primary_contact_id, notes, created_at, updated_at
		) VALUES (
			:id, :name, NULLIF(:description, ''), NULLIF(:access_url, ''),
			NULLIF(:internal_url, ''), :environment, NULLIF(:application_type, ''),
			NULLIF(:version, ''), NULLIF(:port, 0), :status, :criticality,
			:primary_contact_id, NULLIF(:notes, ''), NOW(), NOW()
		)`

	if _, err := s.db.NamedExecContext(ctx, query, application); err != nil {
		return s.queryErr("create_application", err)
	}

	return nil
}

func (s *Postgres) UpdateApplication(ctx context.Context, application *model.Application) error {
	const query = `
		UPDATE applications SET
			name = :name, description = NULLIF(:description, ''),
			access_url = NULLIF(:access_url, ''), internal_url = NULLIF(:internal_url, ''),
			environment = :environment, application_type = NULLIF(:application_type, ''),
			version = NULLIF(:version, ''), port = NULLIF(:port, 0), status = :status,
			criticality = :criticality, primary_contact_id = :primary_contact_id,
			notes = NULLIF(:notes, ''), updated_at = NOW()
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, query, application)
	if err != nil {
		return s.queryErr("update_application", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *Postgres) DeleteApplication(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM applications WHERE id = $1", id)
	if err != nil {
		return s.queryErr("delete_application", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *Postgres) CreateAuditLog(ctx context.Context, entry *model.AuditLog) error {
	const query = `
		INSERT INTO audit_logs (id, action, resource_type, resource_id, changes, api_key_id, timestamp)
		VALUES (:id, :action, :resource_type, :resource_id, :changes, :api_key_id, NOW())`

	if _, err := s.db.NamedExecContext(ctx, query, entry); err != nil {
		return s.queryErr("create_audit_log", err)
	}

	return nil
}

func (s *Postgres) ListAuditLogs(ctx context.Context, filter *AuditLogFilter) ([]model.AuditLog, int, error) {
	where := "TRUE"
	args := []interface{}{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.ResourceType != "" {
		where += " AND resource_type = " + arg(filter.ResourceType)
	}

	if filter.ResourceID != nil {
		where += " AND resource_id = " + arg(*filter.ResourceID)
	}

	total := 0
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM audit_logs WHERE "+where, args...); err != nil {
		return nil, 0, s.queryErr("count_audit_logs", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	entries := []model.AuditLog{}

	query := "SELECT id, action, resource_type, resource_id, changes, api_key_id, timestamp FROM audit_logs WHERE " +
		where + " ORDER BY timestamp DESC LIMIT " + arg(limit) + " OFFSET " + arg(filter.Offset)
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, s.queryErr("list_audit_logs", err)
	}

	return entries, total, nil
}

func (s *Postgres) ActiveAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	keys := []model.APIKey{}

	err := s.db.SelectContext(ctx, &keys,
		"SELECT id, key_hash, name, active, created_at FROM api_keys WHERE active")
	if err != nil {
		return nil, s.queryErr("active_api_keys", err)
	}

	return keys, nil
}

func (s *Postgres) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	const query = `
		INSERT INTO api_keys (id, key_hash, name, active, created_at)
		VALUES (:id, :key_hash, :name, :active, NOW())`

	if _, err := s.db.NamedExecContext(ctx, query, key); err != nil {
		return s.queryErr("create_api_key", err)
	}

	return nil
}
