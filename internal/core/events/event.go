package events

import (
	"fmt"

	. "inverterd2mqtt/internal/core/domain"
)

func SnapshotToUpdateEvents(snap Snapshot) []any {
	var events []any

	// Battery
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_VOLTAGE,
		},
		Value:    snap.BatteryVoltage,
		Decimals: 1,
	})
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_POWER_DIRECTION,
		},
		Value: snap.BatteryPowerDirection.String(),
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_CHARGING_CURRENT,
		},
		Value: float64(snap.BatteryChargingCurrent),
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_DISCHARGE_CURRENT,
		},
		Value: float64(snap.BatteryDischargingCurrent),
	})
	// Load and solar
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_OUTPUT_LOAD,
		},
		Value: float64(snap.OutputLoadWatts),
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_SOLAR_INPUT_POWER,
		},
		Value: snap.SolarInputPower,
	})
	// Generator line
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_GRID_VOLTAGE,
		},
		Value:    snap.ACVoltage,
		Decimals: 1,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_GRID_FREQUENCY,
		},
		Value:    snap.ACFrequency,
		Decimals: 1,
	})

	return events
}

func MonitorStateToUpdateEvents(phase ChargingPhase, state BatteryState) []any {
	return []any{
		TextSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_CHARGING_PHASE,
			},
			Value: phase.String(),
		},
		TextSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_BATTERY_STATE,
			},
			Value: state.String(),
		},
	}
}

var chargingEventTexts = map[ChargingEventKind]string{
	ACChargingStarted:                 "AC charging started",
	ACDisconnected:                    "AC input disconnected",
	ACCurrentChanged:                  "AC charging current changed",
	ACMostlyCharged:                   "Battery is mostly charged",
	ACChargingFinished:                "AC charging finished",
	ACNotCharging:                     "AC connected but not charging",
	ACChargingUnavailableBecauseSolar: "AC charging unavailable due to solar input",
}

// MonitorEventToNotification renders a monitor event as notification text.
func MonitorEventToNotification(event MonitorEvent) NotificationEvent {
	var text string
	switch ev := event.(type) {
	case ChargingEvent:
		text = chargingEventTexts[ev.Kind]
		switch ev.Kind {
		case ACChargingStarted, ACCurrentChanged:
			text = fmt.Sprintf("%s (%d A)", text, ev.Current)
		}
	case BatteryEvent:
		text = fmt.Sprintf("Battery state is %s (%.1f V, load %d W)",
			ev.State, ev.Voltage, ev.LoadWatts)
	case ErrorEvent:
		text = fmt.Sprintf("Monitor error: %s", ev.Message)
	default:
		text = fmt.Sprintf("%T", event)
	}
	return NotificationEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_NOTIFICATION,
		},
		Text: text,
	}
}
