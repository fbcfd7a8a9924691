package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
)

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, duration, total_increasing (for acc energy)
	DeviceClass       string // voltage, current, power, energy
	EntityCategory    string // diagnostic, config, nil
	EnabledByDefault  *bool
	Icon              string
}

type GenericInputNumber struct {
	Device       Device
	Id           string
	Name         string
	UniqueId     string
	Icon         string
	Max          float64
	Min          float64
	Step         float64
	Mode         string
	InitialValue float64
}

const (
	SENSOR_ID_BRIDGE_STATE              = "bridge"
	SENSOR_ID_BATTERY_VOLTAGE           = "battery_voltage"
	SENSOR_ID_BATTERY_POWER_DIRECTION   = "battery_power_direction"
	SENSOR_ID_BATTERY_CHARGING_CURRENT  = "battery_charging_current"
	SENSOR_ID_BATTERY_DISCHARGE_CURRENT = "battery_discharging_current"
	SENSOR_ID_BATTERY_STATE             = "battery_state"
	SENSOR_ID_CHARGING_PHASE            = "charging_phase"
	SENSOR_ID_OUTPUT_LOAD               = "output_load"
	SENSOR_ID_SOLAR_INPUT_POWER         = "solar_input_power"
	SENSOR_ID_GRID_VOLTAGE              = "grid_voltage"
	SENSOR_ID_GRID_FREQUENCY            = "grid_frequency"
	SENSOR_ID_NOTIFICATION              = "notification"

	INPUT_NUMBER_ID_CHARGING_VOLTAGE    = "battery_charging_voltage"
	INPUT_NUMBER_ID_DISCHARGING_VOLTAGE = "battery_discharging_voltage"
	INPUT_NUMBER_ID_UNDER_VOLTAGE       = "battery_under_voltage"
	INPUT_NUMBER_ID_MAX_AC_CURRENT      = "max_ac_charging_current"

	STATE_CLASS_MEASUREMENT   = "measurement"
	DEVICE_CLASS_VOLTAGE      = "voltage"
	DEVICE_CLASS_CURRENT      = "current"
	DEVICE_CLASS_POWER        = "power"
	DEVICE_CLASS_FREQUENCY    = "frequency"
	DEVICE_CLASS_CONNECTIVITY = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC   = "diagnostic"
	ENTITY_CLASS_CONFIG       = "config"
	SENSOR_TYPE_SENSOR        = "sensor"
	SENSOR_TYPE_BINARY        = "binary_sensor"
	INPUT_NUMBER_MODE_BOX     = "box"
)

// Bounds accepted by the threshold store, mirrored in the HA input numbers.
const (
	MIN_UNDER_VOLTAGE       = 40.0
	MAX_UNDER_VOLTAGE       = 48.0
	MIN_CHARGING_VOLTAGE    = 44.0
	MAX_CHARGING_VOLTAGE    = 51.0
	MIN_DISCHARGING_VOLTAGE = 48.0
	MAX_DISCHARGING_VOLTAGE = 58.0
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:      fmt.Sprintf("inverterd2mqtt_bridge_%s", md5HashShort(baseTopic)),
		Model:   "inverterd2mqtt",
		Version: versioninfo.Short(),
		Name:    fmt.Sprintf("Inverterd bridge %s", md5HashShort(baseTopic)),
	}
}

func InverterDevice(serial, firmware string) Device {
	return Device{
		Id:           fmt.Sprintf("isv_inverter_%s", md5HashShort(serial)),
		Version:      firmware,
		Manufacturer: "Voltronic",
		Model:        "Hybrid inverter",
		Name:         fmt.Sprintf("Inverter %s", md5HashShort(serial)),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {
	return []GenericSensor{
		{
			Device:      bridgeDevice,
			Id:          SENSOR_ID_BRIDGE_STATE,
			SensorType:  SENSOR_TYPE_BINARY,
			Name:        "Bridge state",
			DeviceClass: DEVICE_CLASS_CONNECTIVITY,
			UniqueId:    uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
		},
	}
}

func InverterTelemetrySensors(inverterDevice Device) []GenericSensor {

	var sensors []GenericSensor

	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_BATTERY_VOLTAGE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery voltage",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_VOLTAGE,
		UnitOfMeasurement: "V",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_BATTERY_VOLTAGE),
	})

	sensors = append(sensors, GenericSensor{
		Device:     inverterDevice,
		Id:         SENSOR_ID_BATTERY_POWER_DIRECTION,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "Battery power direction",
		UniqueId:   uniqueId(inverterDevice.Id, SENSOR_ID_BATTERY_POWER_DIRECTION),
	})

	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_BATTERY_CHARGING_CURRENT,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery charging current",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_CURRENT,
		UnitOfMeasurement: "A",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_BATTERY_CHARGING_CURRENT),
	})

	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_BATTERY_DISCHARGE_CURRENT,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery discharging current",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_CURRENT,
		UnitOfMeasurement: "A",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_BATTERY_DISCHARGE_CURRENT),
	})

	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_OUTPUT_LOAD,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Output load",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_OUTPUT_LOAD),
	})

	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_SOLAR_INPUT_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Solar input power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_SOLAR_INPUT_POWER),
	})

	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_GRID_VOLTAGE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Generator voltage",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_VOLTAGE,
		UnitOfMeasurement: "V",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_GRID_VOLTAGE),
	})

	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_GRID_FREQUENCY,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Generator frequency",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_FREQUENCY,
		UnitOfMeasurement: "Hz",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_GRID_FREQUENCY),
	})

	return sensors
}

func MonitorSensors(inverterDevice Device) []GenericSensor {
	return []GenericSensor{
		{
			Device:         inverterDevice,
			Id:             SENSOR_ID_CHARGING_PHASE,
			SensorType:     SENSOR_TYPE_SENSOR,
			Name:           "Charging phase",
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(inverterDevice.Id, SENSOR_ID_CHARGING_PHASE),
		},
		{
			Device:         inverterDevice,
			Id:             SENSOR_ID_BATTERY_STATE,
			SensorType:     SENSOR_TYPE_SENSOR,
			Name:           "Battery state",
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(inverterDevice.Id, SENSOR_ID_BATTERY_STATE),
		},
		{
			Device:     inverterDevice,
			Id:         SENSOR_ID_NOTIFICATION,
			SensorType: SENSOR_TYPE_SENSOR,
			Name:       "Last notification",
			UniqueId:   uniqueId(inverterDevice.Id, SENSOR_ID_NOTIFICATION),
		},
	}
}

func ThresholdInputNumbers(inverterDevice Device, thresholds Thresholds) []GenericInputNumber {
	return []GenericInputNumber{
		{
			Device:       inverterDevice,
			Id:           INPUT_NUMBER_ID_CHARGING_VOLTAGE,
			Name:         "Battery charging voltage",
			UniqueId:     uniqueId(inverterDevice.Id, INPUT_NUMBER_ID_CHARGING_VOLTAGE),
			Min:          MIN_CHARGING_VOLTAGE,
			Max:          MAX_CHARGING_VOLTAGE,
			Step:         0.1,
			Mode:         INPUT_NUMBER_MODE_BOX,
			InitialValue: thresholds.BatteryChargingVoltage,
		},
		{
			Device:       inverterDevice,
			Id:           INPUT_NUMBER_ID_DISCHARGING_VOLTAGE,
			Name:         "Battery discharging voltage",
			UniqueId:     uniqueId(inverterDevice.Id, INPUT_NUMBER_ID_DISCHARGING_VOLTAGE),
			Min:          MIN_DISCHARGING_VOLTAGE,
			Max:          MAX_DISCHARGING_VOLTAGE,
			Step:         0.1,
			Mode:         INPUT_NUMBER_MODE_BOX,
			InitialValue: thresholds.BatteryDischargingVoltage,
		},
		{
			Device:       inverterDevice,
			Id:           INPUT_NUMBER_ID_UNDER_VOLTAGE,
			Name:         "Battery under voltage",
			UniqueId:     uniqueId(inverterDevice.Id, INPUT_NUMBER_ID_UNDER_VOLTAGE),
			Min:          MIN_UNDER_VOLTAGE,
			Max:          MAX_UNDER_VOLTAGE,
			Step:         0.1,
			Mode:         INPUT_NUMBER_MODE_BOX,
			InitialValue: thresholds.BatteryUnderVoltage,
		},
		{
			Device:       inverterDevice,
			Id:           INPUT_NUMBER_ID_MAX_AC_CURRENT,
			Name:         "Max AC charging current",
			UniqueId:     uniqueId(inverterDevice.Id, INPUT_NUMBER_ID_MAX_AC_CURRENT),
			Min:          2,
			Max:          60,
			Step:         1,
			Mode:         INPUT_NUMBER_MODE_BOX,
			InitialValue: float64(thresholds.ACCurrentRange.Max),
		},
	}
}

func uniqueId(deviceId, sensorId string) string {
	return fmt.Sprintf("%s_%s", deviceId, sensorId)
}

func md5HashShort(s string) string {
	hash := md5.Sum([]byte(s))
	return hex.EncodeToString(hash[:])[:8]
}
