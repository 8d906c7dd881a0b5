package secrets

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmizin/computer-inventory/internal/model"
	"github.com/dmizin/computer-inventory/internal/vault"
)

func strPtr(s string) *string { return &s }

func testAsset() *model.Asset {
	return &model.Asset{
		ID:       uuid.MustParse("1b4e28ba-2fa1-11d2-883f-0016d3cca427"),
		Hostname: "srv1",
		FQDN:     "srv1.example.com",
		Type:     model.AssetTypeServer,
		Location: "rack 12",
	}
}

func fieldValue(t *testing.T, item *vault.Item, label string) vault.Field {
	t.Helper()

	for _, field := range item.Fields {
		if field.Label == label {
			return field
		}
	}

	t.Fatalf("item has no field %s", label)

	return vault.Field{}
}

func Test_SecretTitle(t *testing.T) {
	asset := testAsset()

	assert.Equal(t, "asset-1b4e28ba-2fa1-11d2-883f-0016d3cca427", SecretTitle("asset-{asset_id}", asset))
	assert.Equal(t, "inv/1b4e28ba-2fa1-11d2-883f-0016d3cca427", SecretTitle("inv/{asset_id}", asset))
}

func Test_BuildItemDefaultsByControllerType(t *testing.T) {
	testcases := []struct {
		name         string
		controller   *model.ManagementController
		wantUsername string
	}{
		{
			"idrac",
			&model.ManagementController{Type: model.ControllerTypeIDRAC, Address: "10.0.0.1", Port: 443},
			"root",
		},
		{
			"ilo",
			&model.ManagementController{Type: model.ControllerTypeILO, Address: "10.0.0.1", Port: 443},
			"Administrator",
		},
		{
			"ipmi",
			&model.ManagementController{Type: model.ControllerTypeIPMI, Address: "10.0.0.1", Port: 623},
			"admin",
		},
		{
			"redfish",
			&model.ManagementController{Type: model.ControllerTypeRedfish, Address: "10.0.0.1", Port: 443},
			"admin",
		},
		{
			"unknown type",
			&model.ManagementController{Type: model.ControllerType("cimc"), Address: "10.0.0.1", Port: 443},
			"admin",
		},
		{
			"no controller",
			nil,
			"admin",
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			item := BuildItem("asset-{asset_id}", testAsset(), tc.controller, nil, nil)

			assert.Equal(t, tc.wantUsername, fieldValue(t, item, "mgmt_username").Value)
			assert.Equal(t, "changeme", fieldValue(t, item, "mgmt_password").Value)
		})
	}
}

func Test_BuildItemOverrideResolution(t *testing.T) {
	controller := &model.ManagementController{Type: model.ControllerTypeIDRAC, Address: "10.0.0.1", Port: 443}

	testcases := []struct {
		name         string
		override     *model.Credentials
		wantUsername string
		wantPassword string
	}{
		{
			"nil override falls back to defaults",
			nil,
			"root",
			"changeme",
		},
		{
			"empty override struct falls back to defaults",
			&model.Credentials{},
			"root",
			"changeme",
		},
		{
			"non-empty override wins",
			&model.Credentials{Username: strPtr("svc"), Password: strPtr("hunter2")},
			"svc",
			"hunter2",
		},
		{
			"override is trimmed",
			&model.Credentials{Username: strPtr("  svc  "), Password: strPtr(" hunter2 ")},
			"svc",
			"hunter2",
		},
		{
			"blank override must not wipe the default",
			&model.Credentials{Username: strPtr(""), Password: strPtr("   ")},
			"root",
			"changeme",
		},
		{
			"partial override keeps the other default",
			&model.Credentials{Password: strPtr("hunter2")},
			"root",
			"hunter2",
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			item := BuildItem("asset-{asset_id}", testAsset(), controller, tc.override, nil)

			assert.Equal(t, tc.wantUsername, fieldValue(t, item, "mgmt_username").Value)
			assert.Equal(t, tc.wantPassword, fieldValue(t, item, "mgmt_password").Value)
		})
	}
}

func Test_BuildItemOSFields(t *testing.T) {
	item := BuildItem("asset-{asset_id}", testAsset(), nil, nil, nil)

	assert.Equal(t, "root", fieldValue(t, item, "os_username").Value)
	assert.Equal(t, "changeme", fieldValue(t, item, "os_password").Value)
	assert.Equal(t, "", fieldValue(t, item, "os_ssh_key").Value)

	item = BuildItem("asset-{asset_id}", testAsset(), nil, nil, &model.Credentials{
		Username: strPtr("ops"),
		SSHKey:   strPtr("ssh-ed25519 AAAA"),
	})

	assert.Equal(t, "ops", fieldValue(t, item, "os_username").Value)
	assert.Equal(t, "changeme", fieldValue(t, item, "os_password").Value)
	assert.Equal(t, "ssh-ed25519 AAAA", fieldValue(t, item, "os_ssh_key").Value)
}

func Test_BuildItemConcealsSecrets(t *testing.T) {
	item := BuildItem("asset-{asset_id}", testAsset(), nil, nil, nil)

	assert.Equal(t, vault.FieldTypeConcealed, fieldValue(t, item, "mgmt_password").Type)
	assert.Equal(t, vault.FieldTypeConcealed, fieldValue(t, item, "os_password").Type)
	assert.Equal(t, vault.FieldTypeConcealed, fieldValue(t, item, "os_ssh_key").Type)
	assert.Equal(t, vault.FieldTypeString, fieldValue(t, item, "mgmt_username").Type)
}

func Test_BuildItemWithoutControllerKeepsPlaceholders(t *testing.T) {
	item := BuildItem("asset-{asset_id}", testAsset(), nil, nil, nil)

	assert.Equal(t, "", fieldValue(t, item, "mgmt_type").Value)
	assert.Equal(t, "", fieldValue(t, item, "mgmt_address").Value)
	assert.Equal(t, "", fieldValue(t, item, "mgmt_port").Value)
	assert.Equal(t, "", fieldValue(t, item, "mgmt_ui_url").Value)
	assert.Empty(t, item.URLs)
}

func Test_BuildItemTagsAndURL(t *testing.T) {
	controller := &model.ManagementController{Type: model.ControllerTypeIDRAC, Address: "10.0.0.1", Port: 443}

	item := BuildItem("asset-{asset_id}", testAsset(), controller, nil, nil)

	assert.Equal(t, []string{"computer-inventory", "asset", "server"}, item.Tags)
	assert.Equal(t, vault.CategoryLogin, item.Category)

	require.Len(t, item.URLs, 1)
	assert.True(t, item.URLs[0].Primary)
	assert.Equal(t, "https://10.0.0.1", item.URLs[0].HRef)
}

func Test_ResolveUIURL(t *testing.T) {
	testcases := []struct {
		name       string
		controller *model.ManagementController
		want       string
	}{
		{
			"explicit ui_url wins",
			&model.ManagementController{Address: "10.0.0.1", Port: 443, UIURL: "https://bmc.example.com"},
			"https://bmc.example.com",
		},
		{
			"port 443 omits port",
			&model.ManagementController{Address: "10.0.0.1", Port: 443},
			"https://10.0.0.1",
		},
		{
			"port 80 is http without port",
			&model.ManagementController{Address: "10.0.0.1", Port: 80},
			"http://10.0.0.1",
		},
		{
			"port 8443 keeps port",
			&model.ManagementController{Address: "10.0.0.1", Port: 8443},
			"https://10.0.0.1:8443",
		},
		{
			"no address",
			&model.ManagementController{Port: 443},
			"",
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveUIURL(tc.controller))
		})
	}
}
