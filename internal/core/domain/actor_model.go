package domain

import "inverterd2mqtt/pkg/inverterd"

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_INVERTERD    = "inverterd"
	ACTOR_ID_MONITOR      = "monitor"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

// Inverterd actor messages

type GetStatusRequest struct {
	ActorRequestMixIn
}

type GetStatusResponse struct {
	ActorResponseMixIn
	Snapshot *Snapshot
}

type GetRatedRequest struct {
	ActorRequestMixIn
}

type GetRatedResponse struct {
	ActorResponseMixIn
	Rated *inverterd.RatedInformation
}

type GetAllowedCurrentsRequest struct {
	ActorRequestMixIn
}

type GetAllowedCurrentsResponse struct {
	ActorResponseMixIn
	Currents []int
}

type GetFaultsRequest struct {
	ActorRequestMixIn
}

type GetFaultsResponse struct {
	ActorResponseMixIn
	Faults string
}

type SetBatteryThresholdsRequest struct {
	ActorRequestMixIn
	ChargingVoltage    float64
	DischargingVoltage float64
}

type SetBatteryThresholdsResponse struct {
	ActorResponseMixIn
}

type SetBatteryCutoffRequest struct {
	ActorRequestMixIn
	Voltage float64
}

type SetBatteryCutoffResponse struct {
	ActorResponseMixIn
}

type SetMaxACChargingCurrentRequest struct {
	ActorRequestMixIn
	Current int
}

type SetMaxACChargingCurrentResponse struct {
	ActorResponseMixIn
}

// Monitor actor messages

type GetMonitorStateRequest struct {
	ActorRequestMixIn
}

type GetMonitorStateResponse struct {
	ActorResponseMixIn
	ChargingPhase ChargingPhase
	BatteryState  BatteryState
	Thresholds    Thresholds
	LastSnapshot  *Snapshot
}

// MQTT actor messages

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	InputNumbers []GenericInputNumber
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

// Health check

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
