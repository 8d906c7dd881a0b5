package fixtures

import (
	"github.com/google/uuid"

	"github.com/dmizin/computer-inventory/internal/model"
)

var (
	Asset1ID = uuid.New()
	Asset2ID = uuid.New()

	Assets = map[string]model.Asset{
		Asset1ID.String(): {
			ID:           Asset1ID,
			Hostname:     "h1",
			FQDN:         "x.com",
			SerialNumber: "S1",
			Vendor:       "V1",
			Model:        "r6515",
			Type:         model.AssetTypeServer,
			Status:       model.AssetStatusActive,
		},

		Asset2ID.String(): {
			ID:       Asset2ID,
			Hostname: "ws1",
			Type:     model.AssetTypeWorkstation,
			Status:   model.AssetStatusActive,
		},
	}

	Controller1 = model.ManagementController{
		ID:      uuid.New(),
		AssetID: Asset1ID,
		Type:    model.ControllerTypeIDRAC,
		Address: "127.0.0.1",
		Port:    443,
	}
)

// Asset returns a copy of the named fixture safe for the caller to mutate.
func Asset(id uuid.UUID) *model.Asset {
	asset := Assets[id.String()]
	return &asset
}
