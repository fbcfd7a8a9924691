package config

import (
	"errors"
	"regexp"
	"strings"

	"inverterd2mqtt/internal/core/domain"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel  zapcore.Level
	Inverterd InverterdConfig `mapstructure:"inverterd"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`

	MonitorConfig MonitorConfig `mapstructure:"monitor"`
	Port          uint          `mapstructure:"port"`
	HttpLog       bool          `mapstructure:"http_log"`
}

type InverterdConfig struct {
	Host          string
	Port          uint
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

type MonitorConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`

	// initial thresholds; zero under-voltage means "seed from the inverter
	// rated information at startup"
	BatteryChargingVoltage    float64 `mapstructure:"battery_charging_voltage"`
	BatteryDischargingVoltage float64 `mapstructure:"battery_discharging_voltage"`
	BatteryUnderVoltage       float64 `mapstructure:"battery_under_voltage"`
	ACCurrentRangeMin         int     `mapstructure:"ac_current_range_min"`
	ACCurrentRangeMax         int     `mapstructure:"ac_current_range_max"`
}

// Thresholds maps the configured initial values to a threshold set.
func (c MonitorConfig) Thresholds() domain.Thresholds {
	return domain.Thresholds{
		ACCurrentRange: domain.CurrentRange{
			Min: c.ACCurrentRangeMin,
			Max: c.ACCurrentRangeMax,
		},
		BatteryChargingVoltage:    c.BatteryChargingVoltage,
		BatteryDischargingVoltage: c.BatteryDischargingVoltage,
		BatteryUnderVoltage:       c.BatteryUnderVoltage,
	}
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
