package reconcile

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmizin/computer-inventory/internal/fixtures"
	"github.com/dmizin/computer-inventory/internal/model"
	"github.com/dmizin/computer-inventory/internal/store"
)

func strPtr(s string) *string { return &s }

func newTestReconciler() (*Reconciler, *store.MemStore) {
	repository := store.NewMemStore()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return New(repository, logger), repository
}

func Test_UpsertCreatesThenUpdates(t *testing.T) {
	reconciler, _ := newTestReconciler()

	payload := &model.AssetUpsert{
		Hostname: "srv1",
		FQDN:     strPtr("srv1.example.com"),
	}

	first, created, err := reconciler.Upsert(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.AssetTypeServer, first.Type)
	assert.Equal(t, model.AssetStatusActive, first.Status)

	second, created, err := reconciler.Upsert(context.Background(), payload)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func Test_UpsertPartialUpdate(t *testing.T) {
	reconciler, _ := newTestReconciler()

	_, created, err := reconciler.Upsert(context.Background(), &model.AssetUpsert{
		Hostname: "srv1",
		FQDN:     strPtr("srv1.example.com"),
		Location: strPtr("rack 12"),
	})
	require.NoError(t, err)
	require.True(t, created)

	asset, created, err := reconciler.Upsert(context.Background(), &model.AssetUpsert{
		Hostname: "srv1",
		FQDN:     strPtr("srv1.example.com"),
		Location: strPtr("rack 40"),
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "rack 40", asset.Location)
	assert.Equal(t, "srv1", asset.Hostname)
	assert.Equal(t, "srv1.example.com", asset.FQDN)
}

func Test_UpsertFQDNMatchWins(t *testing.T) {
	reconciler, repository := newTestReconciler()

	existing := fixtures.Asset(fixtures.Asset1ID)
	require.NoError(t, repository.CreateAsset(context.Background(), existing))

	// every lower priority key points elsewhere, the FQDN match is still authoritative
	asset, created, err := reconciler.Upsert(context.Background(), &model.AssetUpsert{
		Hostname:     "h2",
		FQDN:         strPtr("x.com"),
		SerialNumber: strPtr("S2"),
		Vendor:       strPtr("V2"),
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, asset.ID)
	assert.Equal(t, "h2", asset.Hostname)
	assert.Equal(t, "S2", asset.SerialNumber)
}

func Test_UpsertSerialVendorFallback(t *testing.T) {
	reconciler, repository := newTestReconciler()

	existing := fixtures.Asset(fixtures.Asset1ID)
	existing.FQDN = ""
	require.NoError(t, repository.CreateAsset(context.Background(), existing))

	asset, created, err := reconciler.Upsert(context.Background(), &model.AssetUpsert{
		Hostname:     "h9",
		SerialNumber: strPtr("S1"),
		Vendor:       strPtr("V1"),
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, asset.ID)
}

func Test_UpsertHostnameFallback(t *testing.T) {
	reconciler, repository := newTestReconciler()

	existing := fixtures.Asset(fixtures.Asset2ID)
	require.NoError(t, repository.CreateAsset(context.Background(), existing))

	asset, created, err := reconciler.Upsert(context.Background(), &model.AssetUpsert{Hostname: "ws1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, asset.ID)
	assert.Equal(t, model.AssetTypeWorkstation, asset.Type)
}

func Test_UpsertNoMatchCreates(t *testing.T) {
	reconciler, repository := newTestReconciler()

	existing := fixtures.Asset(fixtures.Asset1ID)
	require.NoError(t, repository.CreateAsset(context.Background(), existing))

	asset, created, err := reconciler.Upsert(context.Background(), &model.AssetUpsert{Hostname: "h2"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, existing.ID, asset.ID)
}

func Test_UpsertApplicationIDsTriState(t *testing.T) {
	reconciler, repository := newTestReconciler()

	appID := uuid.New()

	asset, _, err := reconciler.Upsert(context.Background(), &model.AssetUpsert{
		Hostname:       "srv1",
		ApplicationIDs: &[]uuid.UUID{appID},
	})
	require.NoError(t, err)

	ids, err := repository.AssetApplicationIDs(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{appID}, ids)

	// absent list leaves the associations untouched
	_, _, err = reconciler.Upsert(context.Background(), &model.AssetUpsert{Hostname: "srv1"})
	require.NoError(t, err)

	ids, err = repository.AssetApplicationIDs(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{appID}, ids)

	// an explicitly empty list clears them
	_, _, err = reconciler.Upsert(context.Background(), &model.AssetUpsert{
		Hostname:       "srv1",
		ApplicationIDs: &[]uuid.UUID{},
	})
	require.NoError(t, err)

	ids, err = repository.AssetApplicationIDs(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func Test_UpsertRequiresHostname(t *testing.T) {
	reconciler, _ := newTestReconciler()

	_, _, err := reconciler.Upsert(context.Background(), &model.AssetUpsert{Hostname: "   "})
	assert.ErrorIs(t, err, ErrInvalidUpsert)
}
