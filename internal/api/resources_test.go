package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmizin/computer-inventory/internal/fixtures"
	"github.com/dmizin/computer-inventory/internal/model"
)

func Test_ControllerLifecycle(t *testing.T) {
	syncer := &stubSyncer{enabled: true}
	router, repository := newTestServer(t, syncer)

	asset := fixtures.Asset(fixtures.Asset1ID)
	require.NoError(t, repository.CreateAsset(context.Background(), asset))

	recorder := doRequest(t, router, http.MethodPost, "/api/v1/assets/"+asset.ID.String()+"/controllers", map[string]interface{}{
		"type":    "idrac",
		"address": "10.0.0.5",
		"port":    443,
	}, true)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var controller model.ManagementController

	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &controller))
	assert.Equal(t, model.ControllerTypeIDRAC, controller.Type)

	// a controller change refreshes the vault secret
	assert.Equal(t, 1, syncer.syncCalls)

	recorder = doRequest(t, router, http.MethodPatch, "/api/v1/controllers/"+controller.ID.String(), map[string]interface{}{
		"address": "10.0.0.6",
	}, true)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 2, syncer.syncCalls)

	recorder = doRequest(t, router, http.MethodGet, "/api/v1/assets/"+asset.ID.String()+"/controllers", nil, false)
	require.Equal(t, http.StatusOK, recorder.Code)

	var listing struct {
		Controllers []model.ManagementController `json:"controllers"`
	}

	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &listing))
	require.Len(t, listing.Controllers, 1)
	assert.Equal(t, "10.0.0.6", listing.Controllers[0].Address)

	recorder = doRequest(t, router, http.MethodDelete, "/api/v1/controllers/"+controller.ID.String(), nil, true)
	require.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, 3, syncer.syncCalls)
}

func Test_CreateControllerValidatesType(t *testing.T) {
	router, repository := newTestServer(t, &stubSyncer{})

	asset := fixtures.Asset(fixtures.Asset2ID)
	require.NoError(t, repository.CreateAsset(context.Background(), asset))

	recorder := doRequest(t, router, http.MethodPost, "/api/v1/assets/"+asset.ID.String()+"/controllers", map[string]interface{}{
		"type":    "drac5",
		"address": "10.0.0.5",
		"port":    443,
	}, true)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func Test_ControllerNoResyncWithoutVaultFields(t *testing.T) {
	syncer := &stubSyncer{enabled: true}
	router, repository := newTestServer(t, syncer)

	asset := fixtures.Asset(fixtures.Asset1ID)
	require.NoError(t, repository.CreateAsset(context.Background(), asset))

	controller := fixtures.Controller1
	require.NoError(t, repository.CreateController(context.Background(), &controller))

	recorder := doRequest(t, router, http.MethodPatch, "/api/v1/controllers/"+controller.ID.String(), map[string]interface{}{
		"use_asset_credentials": true,
	}, true)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Zero(t, syncer.syncCalls)
}

func Test_UserCRUD(t *testing.T) {
	router, _ := newTestServer(t, &stubSyncer{})

	recorder := doRequest(t, router, http.MethodPost, "/api/v1/users", map[string]interface{}{
		"username":  "jdoe",
		"full_name": "Jordan Doe",
		"email":     "jdoe@example.com",
	}, true)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var user model.User

	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &user))
	assert.True(t, user.Active)

	recorder = doRequest(t, router, http.MethodPatch, "/api/v1/users/"+user.ID.String(), map[string]interface{}{
		"department": "platform",
	}, true)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(t, router, http.MethodGet, "/api/v1/users/"+user.ID.String(), nil, false)
	require.Equal(t, http.StatusOK, recorder.Code)

	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &user))
	assert.Equal(t, "platform", user.Department)

	recorder = doRequest(t, router, http.MethodDelete, "/api/v1/users/"+user.ID.String(), nil, true)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func Test_ApplicationCRUD(t *testing.T) {
	router, _ := newTestServer(t, &stubSyncer{})

	recorder := doRequest(t, router, http.MethodPost, "/api/v1/applications", map[string]interface{}{
		"name":        "billing",
		"environment": "staging",
		"port":        8443,
	}, true)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var application model.Application

	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &application))
	assert.Equal(t, model.AppEnvStaging, application.Environment)

	recorder = doRequest(t, router, http.MethodGet, "/api/v1/applications", nil, false)
	require.Equal(t, http.StatusOK, recorder.Code)

	var listing struct {
		Applications []model.Application `json:"applications"`
		Total        int                 `json:"total"`
	}

	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &listing))
	assert.Equal(t, 1, listing.Total)

	recorder = doRequest(t, router, http.MethodDelete, "/api/v1/applications/"+application.ID.String(), nil, true)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
}
