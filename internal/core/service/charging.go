package service

import (
	"inverterd2mqtt/internal/core/domain"

	"go.uber.org/zap"
)

// ChargingMonitor derives AC charging transition events from consecutive
// telemetry snapshots. It is not safe for concurrent use; the sampler feeds
// it one snapshot at a time.
type ChargingMonitor struct {
	phase         domain.ChargingPhase
	acPresent     bool
	lastCurrent   int
	mostlyCharged bool
	logger        *zap.Logger
}

func NewChargingMonitor(logger *zap.Logger) *ChargingMonitor {
	return &ChargingMonitor{
		phase:  domain.PhaseNone,
		logger: logger,
	}
}

func (m *ChargingMonitor) Phase() domain.ChargingPhase {
	return m.phase
}

// Feed evaluates one snapshot against the previous one and returns the
// transition events, at most one per real transition.
func (m *ChargingMonitor) Feed(snap domain.Snapshot, th domain.Thresholds) []domain.MonitorEvent {
	var events []domain.MonitorEvent

	acPresent := snap.ACPresent()
	wasPresent := m.acPresent
	m.acPresent = acPresent

	if wasPresent && !acPresent {
		m.logger.Debug("charging: AC disconnected")
		m.phase = domain.PhaseNone
		m.mostlyCharged = false
		return append(events, domain.ChargingEvent{Kind: domain.ACDisconnected})
	}
	if !acPresent {
		return nil
	}

	if snap.BatteryPowerDirection == domain.PowerDirectionCharging {
		current := snap.BatteryChargingCurrent
		if m.phase != domain.PhaseACCharging {
			m.logger.Debug("charging: AC charging started", zap.Int("current", current))
			m.phase = domain.PhaseACCharging
			m.lastCurrent = current
			events = append(events, domain.ChargingEvent{Kind: domain.ACChargingStarted, Current: current})
		} else if current != m.lastCurrent {
			m.logger.Debug("charging: AC current changed", zap.Int("current", current))
			m.lastCurrent = current
			events = append(events, domain.ChargingEvent{Kind: domain.ACCurrentChanged, Current: current})
		}
		if !m.mostlyCharged &&
			current >= th.ACCurrentRange.Max &&
			snap.BatteryVoltage >= th.BatteryChargingVoltage {
			m.mostlyCharged = true
			events = append(events, domain.ChargingEvent{Kind: domain.ACMostlyCharged, Current: current})
		}
		return events
	}

	// AC present but the battery is not charging from it
	if snap.SolarInputPower > 0 {
		if m.phase != domain.PhaseACSolarBlocked {
			m.logger.Debug("charging: AC charging blocked by solar input")
			events = append(events, domain.ChargingEvent{Kind: domain.ACChargingUnavailableBecauseSolar})
		}
		m.phase = domain.PhaseACSolarBlocked
		return events
	}
	if m.phase == domain.PhaseACCharging {
		m.logger.Debug("charging: AC charging finished")
		events = append(events, domain.ChargingEvent{Kind: domain.ACChargingFinished})
	} else if m.phase != domain.PhaseACNotCharging {
		events = append(events, domain.ChargingEvent{Kind: domain.ACNotCharging})
	}
	m.phase = domain.PhaseACNotCharging
	return events
}
