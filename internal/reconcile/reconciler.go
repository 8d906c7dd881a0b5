package reconcile

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dmizin/computer-inventory/internal/metrics"
	"github.com/dmizin/computer-inventory/internal/model"
	"github.com/dmizin/computer-inventory/internal/store"
)

// ErrInvalidUpsert is returned when an inbound record is missing its
// required identity attributes.
var ErrInvalidUpsert = errors.New("invalid upsert payload")

// Reconciler matches inbound asset records against stored assets by their
// natural keys and creates or updates accordingly.
type Reconciler struct {
	repository store.Repository
	logger     *logrus.Entry
}

func New(repository store.Repository, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		repository: repository,
		logger:     logger.WithField("component", "reconciler"),
	}
}

// Upsert matches the inbound record against stored assets, in strict priority
// order FQDN, then serial number plus vendor, then hostname. The first lookup
// that hits is authoritative. A matched asset receives a partial update of the
// fields present in the inbound record, an unmatched record inserts a new row.
//
// The returned bool reports whether a new asset was created.
func (r *Reconciler) Upsert(ctx context.Context, inbound *model.AssetUpsert) (*model.Asset, bool, error) {
	if strings.TrimSpace(inbound.Hostname) == "" {
		return nil, false, errors.Wrap(ErrInvalidUpsert, "hostname is required")
	}

	matched, err := r.match(ctx, inbound)
	if err != nil {
		return nil, false, err
	}

	if matched == nil {
		asset, err := r.create(ctx, inbound)
		if err != nil {
			return nil, false, err
		}

		metrics.UpsertCounter.WithLabelValues("created").Inc()

		return asset, true, nil
	}

	asset, err := r.update(ctx, matched, inbound)
	if err != nil {
		return nil, false, err
	}

	metrics.UpsertCounter.WithLabelValues("updated").Inc()

	return asset, false, nil
}

// match runs the natural key lookups in priority order. A lookup is attempted
// only when the inbound record carries the key, the first hit wins and later
// keys are never consulted to second-guess it.
func (r *Reconciler) match(ctx context.Context, inbound *model.AssetUpsert) (*model.Asset, error) {
	if fqdn := trimmed(inbound.FQDN); fqdn != "" {
		asset, err := r.repository.AssetByFQDN(ctx, fqdn)
		if err == nil {
			return asset, nil
		}

		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	serial, vendor := trimmed(inbound.SerialNumber), trimmed(inbound.Vendor)
	if serial != "" && vendor != "" {
		asset, err := r.repository.AssetBySerialVendor(ctx, serial, vendor)
		if err == nil {
			return asset, nil
		}

		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	asset, err := r.repository.AssetByHostname(ctx, strings.TrimSpace(inbound.Hostname))
	if err == nil {
		return asset, nil
	}

	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	return nil, nil
}

func (r *Reconciler) create(ctx context.Context, inbound *model.AssetUpsert) (*model.Asset, error) {
	asset := &model.Asset{
		ID:           uuid.New(),
		Hostname:     strings.TrimSpace(inbound.Hostname),
		FQDN:         trimmed(inbound.FQDN),
		SerialNumber: trimmed(inbound.SerialNumber),
		Vendor:       trimmed(inbound.Vendor),
		Model:        trimmed(inbound.Model),
		Type:         model.AssetTypeServer,
		Status:       model.AssetStatusActive,
		Location:     trimmed(inbound.Location),
		Specs:        model.Specs{},
		Notes:        trimmed(inbound.Notes),
	}

	if inbound.Type != nil {
		asset.Type = *inbound.Type
	}

	if inbound.Status != nil {
		asset.Status = *inbound.Status
	}

	if inbound.Specs != nil {
		asset.Specs = inbound.Specs
	}

	if inbound.PrimaryOwnerID != nil {
		asset.PrimaryOwnerID = inbound.PrimaryOwnerID
	}

	if err := r.repository.CreateAsset(ctx, asset); err != nil {
		return nil, err
	}

	if inbound.ApplicationIDs != nil {
		if err := r.repository.ReplaceAssetApplications(ctx, asset.ID, *inbound.ApplicationIDs); err != nil {
			return nil, err
		}
	}

	r.logger.WithFields(logrus.Fields{
		"assetID":  asset.ID,
		"hostname": asset.Hostname,
	}).Info("asset created")

	return asset, nil
}

// update applies the inbound fields present in the payload onto the matched
// asset. Absent fields leave the stored values alone, which is what makes the
// operation safe for partial payloads from heterogeneous collectors.
func (r *Reconciler) update(ctx context.Context, asset *model.Asset, inbound *model.AssetUpsert) (*model.Asset, error) {
	asset.Hostname = strings.TrimSpace(inbound.Hostname)

	if inbound.FQDN != nil {
		asset.FQDN = strings.TrimSpace(*inbound.FQDN)
	}

	if inbound.SerialNumber != nil {
		asset.SerialNumber = strings.TrimSpace(*inbound.SerialNumber)
	}

	if inbound.Vendor != nil {
		asset.Vendor = strings.TrimSpace(*inbound.Vendor)
	}

	if inbound.Model != nil {
		asset.Model = strings.TrimSpace(*inbound.Model)
	}

	if inbound.Type != nil {
		asset.Type = *inbound.Type
	}

	if inbound.Status != nil {
		asset.Status = *inbound.Status
	}

	if inbound.Location != nil {
		asset.Location = strings.TrimSpace(*inbound.Location)
	}

	if inbound.Specs != nil {
		asset.Specs = inbound.Specs
	}

	if inbound.PrimaryOwnerID != nil {
		asset.PrimaryOwnerID = inbound.PrimaryOwnerID
	}

	if inbound.Notes != nil {
		asset.Notes = *inbound.Notes
	}

	if err := r.repository.UpdateAsset(ctx, asset); err != nil {
		return nil, err
	}

	// a present application id list replaces the association set wholesale,
	// an empty list clears it, an absent list leaves it untouched
	if inbound.ApplicationIDs != nil {
		if err := r.repository.ReplaceAssetApplications(ctx, asset.ID, *inbound.ApplicationIDs); err != nil {
			return nil, err
		}
	}

	r.logger.WithFields(logrus.Fields{
		"assetID":  asset.ID,
		"hostname": asset.Hostname,
	}).Debug("asset updated")

	return asset, nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}

	return strings.TrimSpace(*s)
}
