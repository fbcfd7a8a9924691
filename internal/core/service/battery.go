package service

import (
	"inverterd2mqtt/internal/core/domain"

	"go.uber.org/zap"
)

const (
	// HysteresisMargin is how far the voltage must recover above a boundary
	// before the battery is reclassified into the better state.
	HysteresisMargin = 1.0
	// LowBatteryOffset places the low boundary above the under-voltage cutoff.
	LowBatteryOffset = 1.0
)

// BatteryMonitor classifies the battery voltage into normal/low/critical with
// hysteresis so that a voltage hovering around a boundary cannot flap events.
type BatteryMonitor struct {
	state  domain.BatteryState
	logger *zap.Logger
}

func NewBatteryMonitor(logger *zap.Logger) *BatteryMonitor {
	return &BatteryMonitor{
		state:  domain.BatteryStateNormal,
		logger: logger,
	}
}

func (m *BatteryMonitor) State() domain.BatteryState {
	return m.state
}

// Feed classifies one snapshot and returns a battery event when the state
// changed since the previous snapshot.
func (m *BatteryMonitor) Feed(snap domain.Snapshot, th domain.Thresholds) []domain.MonitorEvent {
	next := classify(m.state, snap.BatteryVoltage, th.BatteryUnderVoltage)
	if next == m.state {
		return nil
	}
	m.logger.Debug("battery: state changed",
		zap.String("from", m.state.String()),
		zap.String("to", next.String()),
		zap.Float64("voltage", snap.BatteryVoltage))
	m.state = next
	return []domain.MonitorEvent{domain.BatteryEvent{
		State:     next,
		Voltage:   snap.BatteryVoltage,
		LoadWatts: snap.OutputLoadWatts,
	}}
}

// classify applies the hysteresis rules. Falling transitions use the plain
// boundaries; rising transitions require clearing the boundary by
// HysteresisMargin.
func classify(prev domain.BatteryState, voltage, underVoltage float64) domain.BatteryState {
	low := underVoltage + LowBatteryOffset
	switch prev {
	case domain.BatteryStateCritical:
		if voltage <= underVoltage+HysteresisMargin {
			return domain.BatteryStateCritical
		}
		if voltage <= low+HysteresisMargin {
			return domain.BatteryStateLow
		}
		return domain.BatteryStateNormal
	case domain.BatteryStateLow:
		if voltage < underVoltage {
			return domain.BatteryStateCritical
		}
		if voltage <= low+HysteresisMargin {
			return domain.BatteryStateLow
		}
		return domain.BatteryStateNormal
	default:
		if voltage < underVoltage {
			return domain.BatteryStateCritical
		}
		if voltage < low {
			return domain.BatteryStateLow
		}
		return domain.BatteryStateNormal
	}
}
