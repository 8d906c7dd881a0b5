package secrets

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmizin/computer-inventory/internal/app"
	"github.com/dmizin/computer-inventory/internal/vault"
)

// fakeVault records calls and plays back canned items.
type fakeVault struct {
	calls []string

	existing *vault.Item
	fail     *vault.Error
}

func (f *fakeVault) called(op string) error {
	f.calls = append(f.calls, op)

	if f.fail != nil {
		return f.fail
	}

	return nil
}

func (f *fakeVault) Heartbeat(_ context.Context) error {
	return f.called("heartbeat")
}

func (f *fakeVault) VaultIDByName(_ context.Context, _ string) (string, error) {
	return "vault-1", f.called("vaults")
}

func (f *fakeVault) FindItemByTitle(_ context.Context, _, _ string) (*vault.Item, error) {
	return f.existing, f.called("find")
}

func (f *fakeVault) CreateItem(_ context.Context, _ string, item *vault.Item) (*vault.Item, error) {
	created := *item
	created.ID = "item-created"

	return &created, f.called("create")
}

func (f *fakeVault) ReplaceItem(_ context.Context, _, itemID string, item *vault.Item) (*vault.Item, error) {
	replaced := *item
	replaced.ID = itemID

	return &replaced, f.called("replace")
}

func (f *fakeVault) ItemByID(_ context.Context, _, itemID string) (*vault.Item, error) {
	if f.existing != nil && f.existing.ID == itemID {
		return f.existing, f.called("get")
	}

	return nil, f.called("get")
}

func (f *fakeVault) DeleteItem(_ context.Context, _, _ string) error {
	return f.called("delete")
}

func testVaultOptions(enabled bool) *app.VaultOptions {
	return &app.VaultOptions{
		Enabled:        enabled,
		Host:           "https://connect.example.com",
		Token:          "token",
		VaultName:      "Computer-Inventory",
		SecretTemplate: "asset-{asset_id}",
		ConnectTimeout: 10 * time.Second,
		TLSMode:        app.TLSModeVerify,
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return logger
}

func Test_SyncDisabledIsPureNoop(t *testing.T) {
	client := &fakeVault{}
	syncer := NewSyncer(&app.VaultOptions{Enabled: false}, client, testLogger())

	secretID, vaultID, err := syncer.Sync(context.Background(), testAsset(), nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, secretID)
	assert.Empty(t, vaultID)
	assert.Empty(t, client.calls)
}

func Test_SyncMisconfiguredFailsFast(t *testing.T) {
	client := &fakeVault{}
	cfg := testVaultOptions(true)
	cfg.Token = ""

	syncer := NewSyncer(cfg, client, testLogger())

	_, _, err := syncer.Sync(context.Background(), testAsset(), nil, nil, nil)
	assert.ErrorIs(t, err, app.ErrConfig)
	assert.Empty(t, client.calls)
}

func Test_SyncCreatesWhenTitleMissing(t *testing.T) {
	client := &fakeVault{}
	syncer := NewSyncer(testVaultOptions(true), client, testLogger())

	secretID, vaultID, err := syncer.Sync(context.Background(), testAsset(), nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "item-created", secretID)
	assert.Equal(t, "vault-1", vaultID)
	assert.Equal(t, []string{"vaults", "find", "create"}, client.calls)
}

func Test_SyncReplacesExisting(t *testing.T) {
	client := &fakeVault{existing: &vault.Item{ID: "item-9", Title: "asset-x"}}
	syncer := NewSyncer(testVaultOptions(true), client, testLogger())

	secretID, _, err := syncer.Sync(context.Background(), testAsset(), nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "item-9", secretID)
	assert.Equal(t, []string{"vaults", "find", "replace"}, client.calls)
}

// A stale secret reference must not block a new secret. When the vault item
// was deleted externally the find-by-title miss triggers a create, not an
// error.
func Test_SyncRecreatesExternallyDeletedSecret(t *testing.T) {
	asset := testAsset()
	asset.SecretID = "item-deleted-externally"
	asset.VaultID = "vault-1"

	client := &fakeVault{}
	syncer := NewSyncer(testVaultOptions(true), client, testLogger())

	secretID, _, err := syncer.Sync(context.Background(), asset, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "item-created", secretID)
	assert.NotEqual(t, asset.SecretID, secretID)
}

func Test_SyncPropagatesVaultError(t *testing.T) {
	client := &fakeVault{fail: &vault.Error{Op: "find", StatusCode: 502, Message: "bad gateway"}}
	syncer := NewSyncer(testVaultOptions(true), client, testLogger())

	_, _, err := syncer.Sync(context.Background(), testAsset(), nil, nil, nil)

	var vaultErr *vault.Error

	require.ErrorAs(t, err, &vaultErr)
	assert.Equal(t, 502, vaultErr.StatusCode)
}

func Test_CredentialsMissingSecret(t *testing.T) {
	client := &fakeVault{}
	syncer := NewSyncer(testVaultOptions(true), client, testLogger())

	_, err := syncer.Credentials(context.Background(), testAsset())

	var vaultErr *vault.Error

	require.ErrorAs(t, err, &vaultErr)
	assert.True(t, vaultErr.IsNotFound())
}

func Test_CredentialsReturnsFieldValues(t *testing.T) {
	client := &fakeVault{
		existing: &vault.Item{
			ID:    "item-9",
			Title: "asset-x",
			Fields: []vault.Field{
				{ID: "os_username", Label: "os_username", Type: vault.FieldTypeString, Value: "root"},
				{ID: "os_password", Label: "os_password", Type: vault.FieldTypeConcealed, Value: "changeme"},
			},
		},
	}
	syncer := NewSyncer(testVaultOptions(true), client, testLogger())

	values, err := syncer.Credentials(context.Background(), testAsset())
	require.NoError(t, err)
	assert.Equal(t, "root", values["os_username"])
	assert.Equal(t, "changeme", values["os_password"])
}

func Test_DeleteSecretDisabled(t *testing.T) {
	client := &fakeVault{}
	syncer := NewSyncer(&app.VaultOptions{Enabled: false}, client, testLogger())

	require.NoError(t, syncer.DeleteSecret(context.Background(), "vault-1", "item-9"))
	assert.Empty(t, client.calls)
}

func Test_DeleteSecretResolvesVaultID(t *testing.T) {
	client := &fakeVault{}
	syncer := NewSyncer(testVaultOptions(true), client, testLogger())

	require.NoError(t, syncer.DeleteSecret(context.Background(), "", "item-9"))
	assert.Equal(t, []string{"vaults", "delete"}, client.calls)
}

func Test_TestConnectivity(t *testing.T) {
	client := &fakeVault{}

	syncer := NewSyncer(&app.VaultOptions{Enabled: false}, client, testLogger())
	require.NoError(t, syncer.TestConnectivity(context.Background()))
	assert.Empty(t, client.calls)

	cfg := testVaultOptions(true)
	cfg.Host = ""

	syncer = NewSyncer(cfg, client, testLogger())
	assert.ErrorIs(t, syncer.TestConnectivity(context.Background()), app.ErrConfig)

	syncer = NewSyncer(testVaultOptions(true), client, testLogger())
	require.NoError(t, syncer.TestConnectivity(context.Background()))
	assert.Equal(t, []string{"heartbeat"}, client.calls)
}
