package inverterd

// Metric is a value/unit pair as returned by inverterd in json format.
type Metric struct {
	Unit  string  `json:"unit"`
	Value float64 `json:"value"`
}

// Battery power direction values reported by the inverter.
const (
	DirectionCharge    = "Charge"
	DirectionDischarge = "Discharge"
	DirectionDoNothing = "Do nothing"
)

// GeneralStatus is the response payload of `exec get-status`.
type GeneralStatus struct {
	GridVoltage               Metric `json:"grid_voltage"`
	GridFrequency             Metric `json:"grid_freq"`
	ACOutputVoltage           Metric `json:"ac_output_voltage"`
	ACOutputFrequency         Metric `json:"ac_output_freq"`
	ACOutputApparentPower     Metric `json:"ac_output_apparent_power"`
	ACOutputActivePower       Metric `json:"ac_output_active_power"`
	OutputLoadPercent         Metric `json:"output_load_percent"`
	BatteryVoltage            Metric `json:"battery_voltage"`
	BatteryVoltageSCC         Metric `json:"battery_voltage_scc"`
	BatteryVoltageSCC2        Metric `json:"battery_voltage_scc2"`
	BatteryDischargingCurrent Metric `json:"battery_discharging_current"`
	BatteryChargingCurrent    Metric `json:"battery_charging_current"`
	BatteryCapacity           Metric `json:"battery_capacity"`
	HeatSinkTemperature       Metric `json:"inverter_heat_sink_temp"`
	MPPT1ChargerTemperature   Metric `json:"mppt1_charger_temp"`
	MPPT2ChargerTemperature   Metric `json:"mppt2_charger_temp"`
	PV1InputPower             Metric `json:"pv1_input_power"`
	PV2InputPower             Metric `json:"pv2_input_power"`
	PV1InputVoltage           Metric `json:"pv1_input_voltage"`
	PV2InputVoltage           Metric `json:"pv2_input_voltage"`
	MPPT1ChargerStatus        string `json:"mppt1_charger_status"`
	MPPT2ChargerStatus        string `json:"mppt2_charger_status"`
	LoadConnected             string `json:"load_connected"`
	BatteryPowerDirection     string `json:"battery_power_direction"`
	DCACPowerDirection        string `json:"dc_ac_power_direction"`
	LinePowerDirection        string `json:"line_power_direction"`
}

// RatedInformation is the response payload of `exec get-rated`.
type RatedInformation struct {
	ACInputVoltage            Metric `json:"ac_input_voltage"`
	ACInputCurrent            Metric `json:"ac_input_current"`
	ACOutputVoltage           Metric `json:"ac_output_voltage"`
	ACOutputFrequency         Metric `json:"ac_output_freq"`
	ACOutputCurrent           Metric `json:"ac_output_current"`
	ACOutputApparentPower     Metric `json:"ac_output_apparent_power"`
	ACOutputActivePower       Metric `json:"ac_output_active_power"`
	BatteryVoltage            Metric `json:"battery_voltage"`
	BatteryRechargeVoltage    Metric `json:"battery_recharge_voltage"`
	BatteryRedischargeVoltage Metric `json:"battery_redischarge_voltage"`
	BatteryUnderVoltage       Metric `json:"battery_under_voltage"`
	BatteryBulkVoltage        Metric `json:"battery_bulk_voltage"`
	BatteryFloatVoltage       Metric `json:"battery_float_voltage"`
	MaxACChargingCurrent      Metric `json:"max_ac_charging_current"`
	MaxChargingCurrent        Metric `json:"max_charging_current"`
}
