package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dmizin/computer-inventory/internal/app"
	"github.com/dmizin/computer-inventory/internal/metrics"
	"github.com/dmizin/computer-inventory/internal/model"
)

const component = "store.postgres"

var (
	ErrStoreQuery = errors.New("error querying the store")

	// uniqueViolation is the postgres error code raised for duplicate keys,
	// including a second concurrent insert with a conflicting FQDN.
	uniqueViolation = pq.ErrorCode("23505")
)

// assetColumns is the select list for asset rows. Optional text columns are
// stored as NULL and folded back to empty strings on scan.
const assetColumns = `id, hostname, COALESCE(fqdn, '') AS fqdn,
	COALESCE(serial_number, '') AS serial_number, COALESCE(vendor, '') AS vendor,
	COALESCE(model, '') AS model, type, status, COALESCE(location, '') AS location,
	specs, primary_owner_id, COALESCE(notes, '') AS notes,
	COALESCE(secret_id, '') AS secret_id, COALESCE(vault_id, '') AS vault_id,
	created_at, updated_at`

// Postgres implements Repository on a PostgreSQL database through sqlx.
type Postgres struct {
	db     *sqlx.DB
	logger *logrus.Entry
}

// NewPostgresStore connects to the configured database and returns a Repository.
func NewPostgresStore(cfg *app.DatabaseOptions, logger *logrus.Logger) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", cfg.URL)
	if err != nil {
		return nil, errors.Wrap(ErrStoreQuery, err.Error())
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return &Postgres{
		db:     db,
		logger: logger.WithField("component", component),
	}, nil
}

// Close releases the underlying connection pool.
func (s *Postgres) Close() error {
	return s.db.Close()
}

func (s *Postgres) queryErr(query string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return errors.Wrap(ErrConflict, pqErr.Detail)
	}

	metrics.StoreQueryErrorCount.WithLabelValues(query).Inc()

	return errors.Wrap(ErrStoreQuery, query+": "+err.Error())
}

func (s *Postgres) assetBy(ctx context.Context, name, where string, args ...interface{}) (*model.Asset, error) {
	asset := &model.Asset{}

	query := fmt.Sprintf("SELECT %s FROM assets WHERE %s", assetColumns, where)
	if err := s.db.GetContext(ctx, asset, query, args...); err != nil {
		return nil, s.queryErr(name, err)
	}

	return asset, nil
}

func (s *Postgres) AssetByID(ctx context.Context, id uuid.UUID) (*model.Asset, error) {
	return s.assetBy(ctx, "asset_by_id", "id = $1", id)
}

func (s *Postgres) AssetByFQDN(ctx context.Context, fqdn string) (*model.Asset, error) {
	return s.assetBy(ctx, "asset_by_fqdn", "fqdn = $1", fqdn)
}

func (s *Postgres) AssetBySerialVendor(ctx context.Context, serial, vendor string) (*model.Asset, error) {
	return s.assetBy(ctx, "asset_by_serial_vendor", "serial_number = $1 AND vendor = $2", serial, vendor)
}

func (s *Postgres) AssetByHostname(ctx context.Context, hostname string) (*model.Asset, error) {
	return s.assetBy(ctx, "asset_by_hostname", "hostname = $1", hostname)
}

// sortableAssetColumns guards ORDER BY identifiers against injection.
var sortableAssetColumns = map[string]bool{
	"hostname":   true,
	"fqdn":       true,
	"vendor":     true,
	"model":      true,
	"type":       true,
	"status":     true,
	"location":   true,
	"created_at": true,
	"updated_at": true,
}

func (s *Postgres) ListAssets(ctx context.Context, filter *AssetFilter) ([]model.Asset, int, error) {
	where := []string{"TRUE"}
	args := []interface{}{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + strings.ToLower(filter.Search) + "%")
		where = append(where, fmt.Sprintf(
			"(hostname ILIKE %s OR fqdn ILIKE %s OR serial_number ILIKE %s OR vendor ILIKE %s OR model ILIKE %s)",
			p, p, p, p, p))
	}

	if filter.Status != "" {
		where = append(where, "status = "+arg(string(filter.Status)))
	}

	if filter.Type != "" {
		where = append(where, "type = "+arg(string(filter.Type)))
	}

	if filter.Vendor != "" {
		where = append(where, "vendor ILIKE "+arg("%"+filter.Vendor+"%"))
	}

	whereClause := strings.Join(where, " AND ")

	total := 0
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM assets WHERE "+whereClause, args...); err != nil {
		return nil, 0, s.queryErr("count_assets", err)
	}

	sortBy := filter.SortBy
	if !sortableAssetColumns[sortBy] {
		sortBy = "created_at"
	}

	order := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "ASC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf("SELECT %s FROM assets WHERE %s ORDER BY %s %s LIMIT %s OFFSET %s",
		assetColumns, whereClause, sortBy, order, arg(limit), arg(filter.Offset))

	assets := []model.Asset{}
	if err := s.db.SelectContext(ctx, &assets, query, args...); err != nil {
		return nil, 0, s.queryErr("list_assets", err)
	}

	return assets, total, nil
}

func (s *Postgres) CreateAsset(ctx context.Context, asset *model.Asset) error {
	const query = `
		INSERT INTO assets (
			id, hostname, fqdn, serial_number, vendor, model, type, status,
			location, specs, primary_owner_id, notes, secret_id, vault_id,
			created_at, updated_at
		) VALUES (
			:id, :hostname, NULLIF(:fqdn, ''), NULLIF(:serial_number, ''),
			NULLIF(:vendor, ''), NULLIF(:model, ''), :type, :status,
			NULLIF(:location, ''), :specs, :primary_owner_id, NULLIF(:notes, ''),
			NULLIF(:secret_id, ''), NULLIF(:vault_id, ''), NOW(), NOW()
		)`

	if _, err := s.db.NamedExecContext(ctx, query, asset); err != nil {
		return s.queryErr("create_asset", err)
	}

	s.logger.WithFields(logrus.Fields{"hostname": asset.Hostname, "id": asset.ID}).Info("created asset")

	return nil
}

func (s *Postgres) UpdateAsset(ctx context.Context, asset *model.Asset) error {
	const query = `
		UPDATE assets SET
			hostname = :hostname, fqdn = NULLIF(:fqdn, ''),
			serial_number = NULLIF(:serial_number, ''), vendor = NULLIF(:vendor, ''),
			model = NULLIF(:model, ''), type = :type, status = :status,
			location = NULLIF(:location, ''), specs = :specs,
			primary_owner_id = :primary_owner_id, notes = NULLIF(:notes, ''),
			updated_at = NOW()
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, query, asset)
	if err != nil {
		return s.queryErr("update_asset", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *Postgres) SetAssetSecretRef(ctx context.Context, id uuid.UUID, secretID, vaultID string) error {
	const query = `UPDATE assets SET secret_id = NULLIF($2, ''), vault_id = NULLIF($3, ''), updated_at = NOW() WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id, secretID, vaultID)
	if err != nil {
		return s.queryErr("set_asset_secret_ref", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *Postgres) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM assets WHERE id = $1", id)
	if err != nil {
		return s.queryErr("delete_asset", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *Postgres) AssetApplicationIDs(ctx context.Context, assetID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}

	err := s.db.SelectContext(ctx, &ids,
		"SELECT application_id FROM application_assets WHERE asset_id = $1 ORDER BY application_id", assetID)
	if err != nil {
		return nil, s.queryErr("asset_application_ids", err)
	}

	return ids, nil
}

// ReplaceAssetApplications swaps the asset's application associations for the
// given set in a single transaction.
func (s *Postgres) ReplaceAssetApplications(ctx context.Context, assetID uuid.UUID, applicationIDs []uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.queryErr("replace_asset_applications", err)
	}
	defer tx.Rollback() // nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, "DELETE FROM application_assets WHERE asset_id = $1", assetID); err != nil {
		return s.queryErr("replace_asset_applications", err)
	}

	for _, appID := range applicationIDs {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO application_assets (application_id, asset_id, created_at) VALUES ($1, $2, NOW())",
			appID, assetID)
		if err != nil {
			return s.queryErr("replace_asset_applications", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return s.queryErr("replace_asset_applications", err)
	}

	return nil
}
