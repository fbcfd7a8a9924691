package util

import (
	"inverterd2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Inverterd: config.InverterdConfig{
			Host:          "-.-.-.-",
			Port:          8305,
			TimeoutMillis: 2000,
		},
		MQTT: config.MQTTConfig{
			Host: "localhost",
			Port: 1883,
		},
		MonitorConfig: config.MonitorConfig{
			PollIntervalMillis:        2000,
			BatteryChargingVoltage:    48.4,
			BatteryDischargingVoltage: 51,
			BatteryUnderVoltage:       42,
			ACCurrentRangeMin:         2,
			ACCurrentRangeMax:         30,
		},
		Port: 8080,
	}
}
