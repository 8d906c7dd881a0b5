package secrets

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dmizin/computer-inventory/internal/app"
	"github.com/dmizin/computer-inventory/internal/metrics"
	"github.com/dmizin/computer-inventory/internal/model"
	"github.com/dmizin/computer-inventory/internal/vault"
)

const component = "secrets.syncer"

// VaultAPI is the vault Connect client surface the syncer depends on.
type VaultAPI interface {
	Heartbeat(ctx context.Context) error
	VaultIDByName(ctx context.Context, name string) (string, error)
	FindItemByTitle(ctx context.Context, vaultID, title string) (*vault.Item, error)
	CreateItem(ctx context.Context, vaultID string, item *vault.Item) (*vault.Item, error)
	ReplaceItem(ctx context.Context, vaultID, itemID string, item *vault.Item) (*vault.Item, error)
	ItemByID(ctx context.Context, vaultID, itemID string) (*vault.Item, error)
	DeleteItem(ctx context.Context, vaultID, itemID string) error
}

// Syncer orchestrates create-or-update of per asset vault secrets.
//
// Failures here must never abort the caller's primary write - callers are
// expected to log returned errors and continue, the relational store is the
// source of truth and the vault mirror is best effort.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type Syncer struct {
	cfg    *app.VaultOptions
	client VaultAPI
	logger *logrus.Entry
}

// NewSyncer returns a credential syncer for the given vault client.
func NewSyncer(cfg *app.VaultOptions, client VaultAPI, logger *logrus.Logger) *Syncer {
	return &Syncer{
		cfg:    cfg,
		client: client,
		logger: logger.WithField("component", component),
	}
}

// Enabled indicates the vault integration is turned on.
func (s *Syncer) Enabled() bool {
	return s.cfg.Enabled
}

// Sync builds the secret payload for the asset and creates or replaces the
// vault item keyed by the asset's templated title. Returns the secret and
// vault ids for the caller to persist onto the asset record.
//
// With the integration disabled this is a pure no-op returning empty ids and
// no error, callers may invoke it unconditionally and branch on a non-empty
// result.
func (s *Syncer) Sync(ctx context.Context, asset *model.Asset, controller *model.ManagementController, mgmtOverride, osOverride *model.Credentials) (secretID, vaultID string, err error) {
	if !s.cfg.Enabled {
		return "", "", nil
	}

	if err := s.cfg.Validate(); err != nil {
		return "", "", err
	}

	defer s.observe("sync", time.Now(), &err)

	vaultID, err = s.client.VaultIDByName(ctx, s.cfg.VaultName)
	if err != nil {
		return "", "", err
	}

	item := BuildItem(s.cfg.SecretTemplate, asset, controller, mgmtOverride, osOverride)

	existing, err := s.client.FindItemByTitle(ctx, vaultID, item.Title)
	if err != nil {
		return "", "", err
	}

	item.Vault = vault.ItemVault{ID: vaultID}

	if existing != nil {
		if _, err = s.client.ReplaceItem(ctx, vaultID, existing.ID, item); err != nil {
			return "", "", err
		}

		s.logger.WithFields(logrus.Fields{
			"asset":  asset.Hostname,
			"secret": existing.ID,
		}).Info("updated vault secret for asset")

		return existing.ID, vaultID, nil
	}

	created, err := s.client.CreateItem(ctx, vaultID, item)
	if err != nil {
		return "", "", err
	}

	s.logger.WithFields(logrus.Fields{
		"asset":  asset.Hostname,
		"secret": created.ID,
	}).Info("created vault secret for asset")

	return created.ID, vaultID, nil
}

// Credentials retrieves the decoded secret fields for an asset, located by its
// templated title. A missing secret is a vault NotFound error.
func (s *Syncer) Credentials(ctx context.Context, asset *model.Asset) (values map[string]string, err error) {
	if !s.cfg.Enabled {
		return nil, nil
	}

	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	defer s.observe("get", time.Now(), &err)

	vaultID, err := s.client.VaultIDByName(ctx, s.cfg.VaultName)
	if err != nil {
		return nil, err
	}

	title := SecretTitle(s.cfg.SecretTemplate, asset)

	found, err := s.client.FindItemByTitle(ctx, vaultID, title)
	if err != nil {
		return nil, err
	}

	if found == nil {
		return nil, &vault.Error{Op: "get item", StatusCode: http.StatusNotFound, Message: "no secret titled " + title}
	}

	item, err := s.client.ItemByID(ctx, vaultID, found.ID)
	if err != nil {
		return nil, err
	}

	return item.FieldValues(), nil
}

// DeleteSecret removes an asset's vault item. A disabled integration returns
// success trivially.
func (s *Syncer) DeleteSecret(ctx context.Context, vaultID, secretID string) (err error) {
	if !s.cfg.Enabled {
		return nil
	}

	defer s.observe("delete", time.Now(), &err)

	if vaultID == "" {
		vaultID, err = s.client.VaultIDByName(ctx, s.cfg.VaultName)
		if err != nil {
			return err
		}
	}

	return s.client.DeleteItem(ctx, vaultID, secretID)
}

// TestConnectivity probes the vault heartbeat endpoint. The integration being
// enabled without connection settings is a configuration error, never a silent
// degrade.
func (s *Syncer) TestConnectivity(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}

	if s.cfg.Host == "" || s.cfg.Token == "" {
		return errors.Wrap(app.ErrConfig, "vault integration enabled but host or token not configured")
	}

	return s.client.Heartbeat(ctx)
}

func (s *Syncer) observe(operation string, start time.Time, err *error) {
	outcome := "success"
	if *err != nil {
		outcome = "error"
	}

	metrics.VaultSyncCounter.WithLabelValues(operation, outcome).Inc()
	metrics.VaultSyncRunTimeSummary.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
