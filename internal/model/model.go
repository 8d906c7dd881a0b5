package model

const (
	AppName = "inventory"

	LogLevelInfo  = 0
	LogLevelDebug = 1
	LogLevelTrace = 2
)

// AssetType identifies the kind of hardware an asset record tracks.
type AssetType string

const (
	AssetTypeServer      AssetType = "server"
	AssetTypeWorkstation AssetType = "workstation"
	AssetTypeNetwork     AssetType = "network"
	AssetTypeStorage     AssetType = "storage"
)

// AssetTypes returns the supported asset types.
func AssetTypes() []AssetType {
	return []AssetType{AssetTypeServer, AssetTypeWorkstation, AssetTypeNetwork, AssetTypeStorage}
}

// AssetStatus is the lifecycle status of an asset.
type AssetStatus string

const (
	AssetStatusActive      AssetStatus = "active"
	AssetStatusRetired     AssetStatus = "retired"
	AssetStatusMaintenance AssetStatus = "maintenance"
)

// AssetStatuses returns the supported asset statuses.
func AssetStatuses() []AssetStatus {
	return []AssetStatus{AssetStatusActive, AssetStatusRetired, AssetStatusMaintenance}
}

// ControllerType identifies the out-of-band management controller flavor.
type ControllerType string

const (
	ControllerTypeILO     ControllerType = "ilo"
	ControllerTypeIDRAC   ControllerType = "idrac"
	ControllerTypeIPMI    ControllerType = "ipmi"
	ControllerTypeRedfish ControllerType = "redfish"
)

// ControllerTypes returns the supported management controller types.
func ControllerTypes() []ControllerType {
	return []ControllerType{ControllerTypeILO, ControllerTypeIDRAC, ControllerTypeIPMI, ControllerTypeRedfish}
}

func (t AssetType) Valid() bool {
	for _, kind := range AssetTypes() {
		if t == kind {
			return true
		}
	}

	return false
}

func (s AssetStatus) Valid() bool {
	for _, kind := range AssetStatuses() {
		if s == kind {
			return true
		}
	}

	return false
}

func (t ControllerType) Valid() bool {
	for _, kind := range ControllerTypes() {
		if t == kind {
			return true
		}
	}

	return false
}
