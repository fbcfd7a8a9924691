package service

import (
	"sync"
	"testing"

	"inverterd2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testThresholds() domain.Thresholds {
	return domain.Thresholds{
		ACCurrentRange:            domain.CurrentRange{Min: 2, Max: 30},
		BatteryChargingVoltage:    48.4,
		BatteryDischargingVoltage: 51,
		BatteryUnderVoltage:       42,
	}
}

func TestThresholdStoreGetReturnsInitial(t *testing.T) {
	store := NewThresholdStore(testThresholds())
	assert.Equal(t, testThresholds(), store.Get())
}

func TestThresholdStoreSetChargingThresholds(t *testing.T) {
	store := NewThresholdStore(testThresholds())

	require.NoError(t, store.SetChargingThresholds(49.0, 50.0))
	th := store.Get()
	assert.Equal(t, 49.0, th.BatteryChargingVoltage)
	assert.Equal(t, 50.0, th.BatteryDischargingVoltage)
}

func TestThresholdStoreRejectsOutOfBounds(t *testing.T) {
	store := NewThresholdStore(testThresholds())

	var vErr domain.ValidationError

	err := store.SetChargingThresholds(43.0, 50.0)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "battery_charging_voltage", vErr.Field)

	err = store.SetChargingThresholds(49.0, 60.0)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "battery_discharging_voltage", vErr.Field)

	err = store.SetUnderVoltage(39.0)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "battery_under_voltage", vErr.Field)

	err = store.SetACCurrentRange(30, 10)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "ac_current_range", vErr.Field)

	// nothing changed on rejects
	assert.Equal(t, testThresholds(), store.Get())
}

func TestThresholdStoreSetUnderVoltage(t *testing.T) {
	store := NewThresholdStore(testThresholds())
	require.NoError(t, store.SetUnderVoltage(43.5))
	assert.Equal(t, 43.5, store.Get().BatteryUnderVoltage)
}

func TestThresholdStoreSetACCurrentRange(t *testing.T) {
	store := NewThresholdStore(testThresholds())
	require.NoError(t, store.SetACCurrentRange(10, 40))
	assert.Equal(t, domain.CurrentRange{Min: 10, Max: 40}, store.Get().ACCurrentRange)
}

func TestThresholdStoreConcurrentAccess(t *testing.T) {
	store := NewThresholdStore(testThresholds())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = store.SetUnderVoltage(42 + float64(j%4))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				th := store.Get()
				// a reader always sees a full consistent set
				assert.GreaterOrEqual(t, th.BatteryUnderVoltage, domain.MIN_UNDER_VOLTAGE)
				assert.LessOrEqual(t, th.BatteryUnderVoltage, domain.MAX_UNDER_VOLTAGE)
			}
		}()
	}
	wg.Wait()
}
