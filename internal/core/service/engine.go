package service

import (
	"inverterd2mqtt/internal/core/domain"

	"go.uber.org/zap"
)

// MonitorEngine drives both state machines from one telemetry feed. Charging
// events are always returned before battery events for the same snapshot.
type MonitorEngine struct {
	charging *ChargingMonitor
	battery  *BatteryMonitor
	store    *ThresholdStore
	logger   *zap.Logger

	lastError string
}

func NewMonitorEngine(store *ThresholdStore, logger *zap.Logger) *MonitorEngine {
	return &MonitorEngine{
		charging: NewChargingMonitor(logger),
		battery:  NewBatteryMonitor(logger),
		store:    store,
		logger:   logger,
	}
}

func (e *MonitorEngine) ChargingPhase() domain.ChargingPhase {
	return e.charging.Phase()
}

func (e *MonitorEngine) BatteryState() domain.BatteryState {
	return e.battery.State()
}

// Tick evaluates one snapshot with a consistent threshold set and closes any
// open error episode.
func (e *MonitorEngine) Tick(snap domain.Snapshot) []domain.MonitorEvent {
	e.lastError = ""
	th := e.store.Get()
	events := e.charging.Feed(snap, th)
	events = append(events, e.battery.Feed(snap, th)...)
	return events
}

// Fail records a telemetry failure. Only the first failure of an episode, or
// a failure with a different message, produces an event; repeats of the same
// message are dropped until a successful tick closes the episode.
func (e *MonitorEngine) Fail(err error) []domain.MonitorEvent {
	msg := err.Error()
	if msg == e.lastError {
		return nil
	}
	e.lastError = msg
	e.logger.Warn("monitor: telemetry read failed", zap.String("error", msg))
	return []domain.MonitorEvent{domain.ErrorEvent{Message: msg}}
}
