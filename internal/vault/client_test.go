package vault

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmizin/computer-inventory/internal/app"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	client, err := NewClient(&app.VaultOptions{
		Enabled:        true,
		Host:           server.URL,
		Token:          "test-token",
		VaultName:      "Computer-Inventory",
		SecretTemplate: "asset-{asset_id}",
		ConnectTimeout: 5 * time.Second,
		TLSMode:        app.TLSModeVerify,
	}, logger)
	require.NoError(t, err)

	return client, server
}

func Test_HeartbeatSendsToken(t *testing.T) {
	var gotAuth string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		assert.Equal(t, "/v1/heartbeat", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, client.Heartbeat(context.Background()))
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func Test_VaultIDByName(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/vaults", r.URL.Path)

		_ = json.NewEncoder(w).Encode([]Vault{
			{ID: "vault-a", Name: "Shared"},
			{ID: "vault-b", Name: "Computer-Inventory"},
		})
	}))

	id, err := client.VaultIDByName(context.Background(), "Computer-Inventory")
	require.NoError(t, err)
	assert.Equal(t, "vault-b", id)

	_, err = client.VaultIDByName(context.Background(), "Absent")

	var vaultErr *Error

	require.ErrorAs(t, err, &vaultErr)
	assert.True(t, vaultErr.IsNotFound())
}

func Test_FindItemByTitle(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/vaults/vault-b/items", r.URL.Path)
		assert.Equal(t, `title eq "asset-42"`, r.URL.Query().Get("filter"))

		_ = json.NewEncoder(w).Encode([]Item{{ID: "item-1", Title: "asset-42"}})
	}))

	item, err := client.FindItemByTitle(context.Background(), "vault-b", "asset-42")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "item-1", item.ID)
}

func Test_FindItemByTitleNoMatch(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]Item{})
	}))

	item, err := client.FindItemByTitle(context.Background(), "vault-b", "asset-42")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func Test_CreateItemAccepts201(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		item := Item{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&item))

		item.ID = "item-new"

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(item)
	}))

	created, err := client.CreateItem(context.Background(), "vault-b", &Item{Title: "asset-42", Category: CategoryLogin})
	require.NoError(t, err)
	assert.Equal(t, "item-new", created.ID)
	assert.Equal(t, "asset-42", created.Title)
}

func Test_ReplaceItem(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/vaults/vault-b/items/item-1", r.URL.Path)

		item := Item{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&item))

		item.ID = "item-1"
		_ = json.NewEncoder(w).Encode(item)
	}))

	replaced, err := client.ReplaceItem(context.Background(), "vault-b", "item-1", &Item{Title: "asset-42"})
	require.NoError(t, err)
	assert.Equal(t, "item-1", replaced.ID)
}

func Test_DeleteItemAccepts204(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, client.DeleteItem(context.Background(), "vault-b", "item-1"))
}

func Test_NonSuccessIsVaultError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("token lacks access"))
	}))

	_, err := client.ItemByID(context.Background(), "vault-b", "item-1")

	var vaultErr *Error

	require.ErrorAs(t, err, &vaultErr)
	assert.Equal(t, http.StatusForbidden, vaultErr.StatusCode)
	assert.Contains(t, vaultErr.Message, "token lacks access")
}

func Test_TransportFailureIsVaultError(t *testing.T) {
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// shut the server down so the request fails at the transport level
	server.Close()

	client.client.RetryMax = 0

	err := client.Heartbeat(context.Background())

	var vaultErr *Error

	require.ErrorAs(t, err, &vaultErr)
	assert.Zero(t, vaultErr.StatusCode)
}

func Test_TLSConfigForMode(t *testing.T) {
	_, err := tlsConfigForMode(&app.VaultOptions{TLSMode: "bogus"})
	assert.ErrorIs(t, err, ErrTLSConfig)

	cfg, err := tlsConfigForMode(&app.VaultOptions{TLSMode: app.TLSModeInsecure})
	require.NoError(t, err)
	assert.True(t, cfg.InsecureSkipVerify)

	cfg, err = tlsConfigForMode(&app.VaultOptions{TLSMode: app.TLSModeVerify})
	require.NoError(t, err)
	assert.False(t, cfg.InsecureSkipVerify)

	_, err = tlsConfigForMode(&app.VaultOptions{TLSMode: app.TLSModeCustomCA, CACertFile: "/does/not/exist.pem"})
	assert.ErrorIs(t, err, ErrTLSConfig)
}
