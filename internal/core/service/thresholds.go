package service

import (
	"fmt"
	"sync"

	"inverterd2mqtt/internal/core/domain"
)

// ThresholdStore holds the monitor thresholds behind a lock so that command
// handlers can update them while the sampler reads a consistent set per tick.
type ThresholdStore struct {
	mu sync.RWMutex
	th domain.Thresholds
}

func NewThresholdStore(initial domain.Thresholds) *ThresholdStore {
	return &ThresholdStore{th: initial}
}

// Get returns one consistent copy of all thresholds.
func (s *ThresholdStore) Get() domain.Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.th
}

// SetChargingThresholds updates charging and discharging voltage together.
// On a validation error the store is left unchanged.
func (s *ThresholdStore) SetChargingThresholds(chargingVoltage, dischargingVoltage float64) error {
	if chargingVoltage < domain.MIN_CHARGING_VOLTAGE || chargingVoltage > domain.MAX_CHARGING_VOLTAGE {
		return domain.ValidationError{
			Field:  "battery_charging_voltage",
			Reason: fmt.Sprintf("%.1f out of range [%g, %g]", chargingVoltage, domain.MIN_CHARGING_VOLTAGE, domain.MAX_CHARGING_VOLTAGE),
		}
	}
	if dischargingVoltage < domain.MIN_DISCHARGING_VOLTAGE || dischargingVoltage > domain.MAX_DISCHARGING_VOLTAGE {
		return domain.ValidationError{
			Field:  "battery_discharging_voltage",
			Reason: fmt.Sprintf("%.1f out of range [%g, %g]", dischargingVoltage, domain.MIN_DISCHARGING_VOLTAGE, domain.MAX_DISCHARGING_VOLTAGE),
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.th.BatteryChargingVoltage = chargingVoltage
	s.th.BatteryDischargingVoltage = dischargingVoltage
	return nil
}

// SetUnderVoltage updates the battery under-voltage cutoff.
func (s *ThresholdStore) SetUnderVoltage(voltage float64) error {
	if voltage < domain.MIN_UNDER_VOLTAGE || voltage > domain.MAX_UNDER_VOLTAGE {
		return domain.ValidationError{
			Field:  "battery_under_voltage",
			Reason: fmt.Sprintf("%.1f out of range [%g, %g]", voltage, domain.MIN_UNDER_VOLTAGE, domain.MAX_UNDER_VOLTAGE),
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.th.BatteryUnderVoltage = voltage
	return nil
}

// SetACCurrentRange updates the allowed AC charging current range.
func (s *ThresholdStore) SetACCurrentRange(minAmps, maxAmps int) error {
	if minAmps <= 0 || maxAmps <= 0 || minAmps > maxAmps {
		return domain.ValidationError{
			Field:  "ac_current_range",
			Reason: fmt.Sprintf("invalid range [%d, %d]", minAmps, maxAmps),
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.th.ACCurrentRange = domain.CurrentRange{Min: minAmps, Max: maxAmps}
	return nil
}
