package service

import (
	"testing"

	"inverterd2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func acChargingSnap(current int) domain.Snapshot {
	return domain.Snapshot{
		BatteryVoltage:         46.5,
		BatteryPowerDirection:  domain.PowerDirectionCharging,
		BatteryChargingCurrent: current,
		ACVoltage:              230,
		ACFrequency:            50,
	}
}

func acIdleSnap(solar float64) domain.Snapshot {
	return domain.Snapshot{
		BatteryVoltage:        49.0,
		BatteryPowerDirection: domain.PowerDirectionIdle,
		ACVoltage:             230,
		ACFrequency:           50,
		SolarInputPower:       solar,
	}
}

func offGridSnap() domain.Snapshot {
	return domain.Snapshot{
		BatteryVoltage:        49.0,
		BatteryPowerDirection: domain.PowerDirectionDischarging,
	}
}

func chargingKinds(events []domain.MonitorEvent) []domain.ChargingEventKind {
	var kinds []domain.ChargingEventKind
	for _, ev := range events {
		if ce, ok := ev.(domain.ChargingEvent); ok {
			kinds = append(kinds, ce.Kind)
		}
	}
	return kinds
}

func TestChargingStartedThenCurrentChangedThenSolarBlocked(t *testing.T) {
	m := NewChargingMonitor(zap.NewNop())
	th := testThresholds()

	ev := m.Feed(acChargingSnap(20), th)
	assert.Equal(t, []domain.ChargingEventKind{domain.ACChargingStarted}, chargingKinds(ev))
	assert.Equal(t, domain.PhaseACCharging, m.Phase())

	ev = m.Feed(acChargingSnap(15), th)
	require.Len(t, ev, 1)
	ce := ev[0].(domain.ChargingEvent)
	assert.Equal(t, domain.ACCurrentChanged, ce.Kind)
	assert.Equal(t, 15, ce.Current)

	ev = m.Feed(acIdleSnap(500), th)
	assert.Equal(t, []domain.ChargingEventKind{domain.ACChargingUnavailableBecauseSolar}, chargingKinds(ev))
	assert.Equal(t, domain.PhaseACSolarBlocked, m.Phase())
}

func TestChargingStableCurrentEmitsNothing(t *testing.T) {
	m := NewChargingMonitor(zap.NewNop())
	th := testThresholds()

	m.Feed(acChargingSnap(20), th)
	for i := 0; i < 5; i++ {
		assert.Empty(t, m.Feed(acChargingSnap(20), th))
	}
}

func TestChargingFinished(t *testing.T) {
	m := NewChargingMonitor(zap.NewNop())
	th := testThresholds()

	m.Feed(acChargingSnap(20), th)
	ev := m.Feed(acIdleSnap(0), th)
	assert.Equal(t, []domain.ChargingEventKind{domain.ACChargingFinished}, chargingKinds(ev))
	assert.Equal(t, domain.PhaseACNotCharging, m.Phase())

	// staying in not-charging emits nothing further
	assert.Empty(t, m.Feed(acIdleSnap(0), th))
}

func TestChargingACDisconnected(t *testing.T) {
	m := NewChargingMonitor(zap.NewNop())
	th := testThresholds()

	m.Feed(acChargingSnap(20), th)
	ev := m.Feed(offGridSnap(), th)
	assert.Equal(t, []domain.ChargingEventKind{domain.ACDisconnected}, chargingKinds(ev))
	assert.Equal(t, domain.PhaseNone, m.Phase())

	// repeated off-grid snapshots stay quiet
	assert.Empty(t, m.Feed(offGridSnap(), th))
}

func TestChargingFirstSnapshotOffGridEmitsNothing(t *testing.T) {
	m := NewChargingMonitor(zap.NewNop())

	assert.Empty(t, m.Feed(offGridSnap(), testThresholds()))
}

func TestChargingMostlyChargedLatches(t *testing.T) {
	m := NewChargingMonitor(zap.NewNop())
	th := testThresholds() // max current 30, charging voltage 48.4

	snap := acChargingSnap(30)
	snap.BatteryVoltage = 48.4
	ev := m.Feed(snap, th)
	kinds := chargingKinds(ev)
	require.Contains(t, kinds, domain.ACChargingStarted)
	require.Contains(t, kinds, domain.ACMostlyCharged)

	// latched until a disconnect resets it
	assert.Empty(t, m.Feed(snap, th))

	m.Feed(offGridSnap(), th)
	ev = m.Feed(snap, th)
	assert.Contains(t, chargingKinds(ev), domain.ACMostlyCharged)
}

func TestChargingMostlyChargedRequiresBothConditions(t *testing.T) {
	m := NewChargingMonitor(zap.NewNop())
	th := testThresholds()

	// current at max but voltage below target
	snap := acChargingSnap(30)
	snap.BatteryVoltage = 47.0
	assert.NotContains(t, chargingKinds(m.Feed(snap, th)), domain.ACMostlyCharged)

	// voltage at target but current below max
	snap = acChargingSnap(20)
	snap.BatteryVoltage = 48.4
	assert.NotContains(t, chargingKinds(m.Feed(snap, th)), domain.ACMostlyCharged)
}

func TestChargingSolarBlockedThenCharging(t *testing.T) {
	m := NewChargingMonitor(zap.NewNop())
	th := testThresholds()

	m.Feed(acIdleSnap(500), th)
	// solar drops, charger picks up
	ev := m.Feed(acChargingSnap(20), th)
	assert.Equal(t, []domain.ChargingEventKind{domain.ACChargingStarted}, chargingKinds(ev))
}

func TestChargingFirstSnapshotIdleOnGrid(t *testing.T) {
	m := NewChargingMonitor(zap.NewNop())

	ev := m.Feed(acIdleSnap(0), testThresholds())
	assert.Equal(t, []domain.ChargingEventKind{domain.ACNotCharging}, chargingKinds(ev))
	assert.Empty(t, m.Feed(acIdleSnap(0), testThresholds()))
}
