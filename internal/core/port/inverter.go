package port

import (
	"inverterd2mqtt/pkg/inverterd"
)

// InverterReader reads telemetry and static information from the inverter
// daemon. Implementations must be safe for use from a single goroutine.
type InverterReader interface {
	Open() error
	Close() error
	GetGeneralStatus() (*inverterd.GeneralStatus, error)
	GetRated() (*inverterd.RatedInformation, error)
	GetAllowedACChargingCurrents() ([]int, error)
	GetFaults() (string, error)
}

// InverterController writes settings to the inverter daemon.
type InverterController interface {
	SetBatteryThresholds(chargingVoltage, dischargingVoltage float64) error
	SetBatteryCutoffVoltage(voltage float64) error
	SetMaxACChargingCurrent(amps int) error
}

var (
	_ InverterReader     = (*inverterd.Client)(nil)
	_ InverterController = (*inverterd.Client)(nil)
	_ InverterReader     = (*inverterd.TestClient)(nil)
	_ InverterController = (*inverterd.TestClient)(nil)
)
