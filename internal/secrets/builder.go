package secrets

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmizin/computer-inventory/internal/model"
	"github.com/dmizin/computer-inventory/internal/vault"
)

// tagMarker is attached to every secret this system manages.
const tagMarker = "computer-inventory"

// Default credentials applied when the caller supplies no usable override.
type defaultCredential struct {
	Username string
	Password string
}

var (
	mgmtDefaults = map[model.ControllerType]defaultCredential{
		model.ControllerTypeIDRAC:   {Username: "root", Password: "changeme"},
		model.ControllerTypeILO:     {Username: "Administrator", Password: "changeme"},
		model.ControllerTypeIPMI:    {Username: "admin", Password: "changeme"},
		model.ControllerTypeRedfish: {Username: "admin", Password: "changeme"},
	}

	fallbackMgmtDefault = defaultCredential{Username: "admin", Password: "changeme"}

	osDefault = defaultCredential{Username: "root", Password: "changeme"}
)

// SecretTitle applies the configured title template to the asset identity.
// The result is deterministic per asset and is the idempotency key against
// the vault.
func SecretTitle(template string, asset *model.Asset) string {
	return strings.ReplaceAll(template, "{asset_id}", asset.ID.String())
}

// BuildItem assembles the vault item payload for an asset, its optional
// management controller and optional credential overrides. Pure transformation,
// no I/O.
//
// An override value is used only when it is present and non-empty after
// trimming, otherwise the type-specific default applies. A blank or
// whitespace-only override must never wipe a credential to empty.
func BuildItem(titleTemplate string, asset *model.Asset, controller *model.ManagementController, mgmtOverride, osOverride *model.Credentials) *vault.Item {
	defaults := fallbackMgmtDefault
	if controller != nil {
		if d, ok := mgmtDefaults[controller.Type]; ok {
			defaults = d
		}
	}

	fields := []vault.Field{
		stringField("asset_name", asset.Hostname),
		stringField("asset_id", asset.ID.String()),
		stringField("asset_fqdn", asset.FQDN),
		stringField("asset_location", asset.Location),
	}

	mgmtUser := resolveOverride(overrideUsername(mgmtOverride), defaults.Username)
	mgmtPass := resolveOverride(overridePassword(mgmtOverride), defaults.Password)

	uiURL := ""
	if controller != nil {
		uiURL = ResolveUIURL(controller)

		fields = append(fields,
			stringField("mgmt_type", string(controller.Type)),
			stringField("mgmt_address", controller.Address),
			stringField("mgmt_port", strconv.Itoa(controller.Port)),
			stringField("mgmt_ui_url", uiURL),
		)
	} else {
		// management fields stay present as blank placeholders
		fields = append(fields,
			stringField("mgmt_type", ""),
			stringField("mgmt_address", ""),
			stringField("mgmt_port", ""),
			stringField("mgmt_ui_url", ""),
		)
	}

	fields = append(fields,
		stringField("mgmt_username", mgmtUser),
		concealedField("mgmt_password", mgmtPass),
	)

	fields = append(fields,
		stringField("os_username", resolveOverride(overrideUsername(osOverride), osDefault.Username)),
		concealedField("os_password", resolveOverride(overridePassword(osOverride), osDefault.Password)),
		concealedField("os_ssh_key", resolveOverride(overrideSSHKey(osOverride), "")),
	)

	item := &vault.Item{
		Title:    SecretTitle(titleTemplate, asset),
		Category: vault.CategoryLogin,
		Fields:   fields,
		Tags:     []string{tagMarker, "asset", string(asset.Type)},
	}

	if uiURL != "" {
		item.URLs = []vault.ItemURL{{Label: "management", Primary: true, HRef: uiURL}}
	}

	return item
}

// ResolveUIURL returns the controller's explicit UI URL when set, otherwise a
// URL derived from its address and port. The port component is folded away for
// the standard 80/443 ports.
func ResolveUIURL(controller *model.ManagementController) string {
	if controller.UIURL != "" {
		return controller.UIURL
	}

	if controller.Address == "" {
		return ""
	}

	scheme := "https"
	if controller.Port == 80 {
		scheme = "http"
	}

	if controller.Port == 80 || controller.Port == 443 {
		return fmt.Sprintf("%s://%s", scheme, controller.Address)
	}

	return fmt.Sprintf("%s://%s:%d", scheme, controller.Address, controller.Port)
}

// resolveOverride returns the trimmed override when it is non-nil and
// non-empty after trimming, the default otherwise.
func resolveOverride(override *string, def string) string {
	if override == nil {
		return def
	}

	trimmed := strings.TrimSpace(*override)
	if trimmed == "" {
		return def
	}

	return trimmed
}

func overrideUsername(c *model.Credentials) *string {
	if c == nil {
		return nil
	}

	return c.Username
}

func overridePassword(c *model.Credentials) *string {
	if c == nil {
		return nil
	}

	return c.Password
}

func overrideSSHKey(c *model.Credentials) *string {
	if c == nil {
		return nil
	}

	return c.SSHKey
}

func stringField(label, value string) vault.Field {
	return vault.Field{ID: label, Label: label, Type: vault.FieldTypeString, Value: value}
}

func concealedField(label, value string) vault.Field {
	return vault.Field{ID: label, Label: label, Type: vault.FieldTypeConcealed, Value: value}
}
