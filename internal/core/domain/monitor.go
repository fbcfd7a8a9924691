package domain

import "fmt"

// PowerDirection is the battery power direction reported by the inverter.
type PowerDirection int

const (
	PowerDirectionIdle PowerDirection = iota
	PowerDirectionCharging
	PowerDirectionDischarging
)

func (d PowerDirection) String() string {
	switch d {
	case PowerDirectionCharging:
		return "charging"
	case PowerDirectionDischarging:
		return "discharging"
	default:
		return "idle"
	}
}

// Snapshot is a point-in-time view of the inverter telemetry. It is immutable
// once produced and shared read-only by the state machines within a tick.
type Snapshot struct {
	BatteryVoltage            float64
	BatteryPowerDirection     PowerDirection
	BatteryChargingCurrent    int
	BatteryDischargingCurrent int
	ACVoltage                 float64
	ACFrequency               float64
	SolarInputPower           float64
	OutputLoadWatts           int
}

// ACPresent reports whether the generator/grid line is connected.
// The inverter reports zero voltage and zero frequency when it is not.
func (s Snapshot) ACPresent() bool {
	return s.ACVoltage > 0 || s.ACFrequency > 0
}

// ChargingPhase is the derived AC-to-battery charging relationship.
type ChargingPhase int

const (
	PhaseNone ChargingPhase = iota
	PhaseACCharging
	PhaseACNotCharging
	PhaseACSolarBlocked
)

func (p ChargingPhase) String() string {
	switch p {
	case PhaseACCharging:
		return "ac_charging"
	case PhaseACNotCharging:
		return "ac_connected_not_charging"
	case PhaseACSolarBlocked:
		return "ac_connected_solar_blocked"
	default:
		return "none"
	}
}

// BatteryState is the derived battery condition.
type BatteryState int

const (
	BatteryStateNormal BatteryState = iota
	BatteryStateLow
	BatteryStateCritical
)

func (s BatteryState) String() string {
	switch s {
	case BatteryStateLow:
		return "low"
	case BatteryStateCritical:
		return "critical"
	default:
		return "normal"
	}
}

// CurrentRange is an inclusive AC charging current range in amps.
type CurrentRange struct {
	Min int
	Max int
}

// Thresholds is one consistent set of monitor thresholds as read by a single
// tick. Bounds are enforced by the threshold store on write.
type Thresholds struct {
	ACCurrentRange            CurrentRange
	BatteryChargingVoltage    float64
	BatteryDischargingVoltage float64
	BatteryUnderVoltage       float64
}

// MonitorEvent is a discrete event derived from telemetry, emitted at most
// once per real transition.
type MonitorEvent interface {
	MonitorEvent() string
}

type MonitorEventMixIn struct{}

func (e MonitorEventMixIn) MonitorEvent() string {
	return fmt.Sprintf("%T", e)
}

// ChargingEventKind enumerates AC charging transitions.
type ChargingEventKind int

const (
	ACChargingStarted ChargingEventKind = iota
	ACDisconnected
	ACCurrentChanged
	ACMostlyCharged
	ACChargingFinished
	ACNotCharging
	ACChargingUnavailableBecauseSolar
)

type ChargingEvent struct {
	MonitorEventMixIn
	Kind ChargingEventKind
	// Current carries the new AC charging current for ACCurrentChanged.
	Current int
}

type BatteryEvent struct {
	MonitorEventMixIn
	State     BatteryState
	Voltage   float64
	LoadWatts int
}

type ErrorEvent struct {
	MonitorEventMixIn
	Message string
}

// ValidationError signals a rejected threshold update. The store is left
// unchanged when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
