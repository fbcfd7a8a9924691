package server

import (
	"net/http"
	"time"

	"inverterd2mqtt/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const actorRequestTimeout = 10 * time.Second

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/status", s.StatusHandler)
	e.GET("/thresholds", s.GetThresholdsHandler)
	e.PUT("/thresholds", s.PutThresholdsHandler)
	e.GET("/faults", s.FaultsHandler)

	return e
}

type snapshotJSON struct {
	BatteryVoltage            float64 `json:"battery_voltage"`
	BatteryPowerDirection     string  `json:"battery_power_direction"`
	BatteryChargingCurrent    int     `json:"battery_charging_current"`
	BatteryDischargingCurrent int     `json:"battery_discharging_current"`
	ACPresent                 bool    `json:"ac_present"`
	ACVoltage                 float64 `json:"ac_voltage"`
	ACFrequency               float64 `json:"ac_frequency"`
	SolarInputPower           float64 `json:"solar_input_power"`
	OutputLoadWatts           int     `json:"output_load_watts"`
}

type thresholdsJSON struct {
	BatteryChargingVoltage    float64 `json:"battery_charging_voltage"`
	BatteryDischargingVoltage float64 `json:"battery_discharging_voltage"`
	BatteryUnderVoltage       float64 `json:"battery_under_voltage"`
	ACCurrentRangeMin         int     `json:"ac_current_range_min"`
	ACCurrentRangeMax         int     `json:"ac_current_range_max"`
}

type statusJSON struct {
	ChargingPhase string         `json:"charging_phase"`
	BatteryState  string         `json:"battery_state"`
	Thresholds    thresholdsJSON `json:"thresholds"`
	Snapshot      *snapshotJSON  `json:"snapshot,omitempty"`
}

type putThresholdsRequest struct {
	BatteryChargingVoltage    *float64 `json:"battery_charging_voltage"`
	BatteryDischargingVoltage *float64 `json:"battery_discharging_voltage"`
	BatteryUnderVoltage       *float64 `json:"battery_under_voltage"`
	MaxACChargingCurrent      *int     `json:"max_ac_charging_current"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, actorRequestTimeout).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) StatusHandler(c echo.Context) error {
	state, err := s.monitorState()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorJSON{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, monitorStateToJSON(state))
}

func (s *Server) GetThresholdsHandler(c echo.Context) error {
	state, err := s.monitorState()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorJSON{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, thresholdsToJSON(state.Thresholds))
}

func (s *Server) PutThresholdsHandler(c echo.Context) error {
	var req putThresholdsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON{Error: "malformed body"})
	}

	state, err := s.monitorState()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorJSON{Error: err.Error()})
	}
	current := state.Thresholds

	if req.BatteryChargingVoltage != nil || req.BatteryDischargingVoltage != nil {
		charging := current.BatteryChargingVoltage
		discharging := current.BatteryDischargingVoltage
		if req.BatteryChargingVoltage != nil {
			charging = *req.BatteryChargingVoltage
		}
		if req.BatteryDischargingVoltage != nil {
			discharging = *req.BatteryDischargingVoltage
		}
		if err := s.applyCommand(domain.SetBatteryThresholdsRequest{
			ChargingVoltage:    charging,
			DischargingVoltage: discharging,
		}); err != nil {
			return c.JSON(http.StatusBadRequest, errorJSON{Error: err.Error()})
		}
	}

	if req.BatteryUnderVoltage != nil {
		if err := s.applyCommand(domain.SetBatteryCutoffRequest{
			Voltage: *req.BatteryUnderVoltage,
		}); err != nil {
			return c.JSON(http.StatusBadRequest, errorJSON{Error: err.Error()})
		}
	}

	if req.MaxACChargingCurrent != nil {
		if err := s.applyCommand(domain.SetMaxACChargingCurrentRequest{
			Current: *req.MaxACChargingCurrent,
		}); err != nil {
			return c.JSON(http.StatusBadRequest, errorJSON{Error: err.Error()})
		}
	}

	state, err = s.monitorState()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorJSON{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, thresholdsToJSON(state.Thresholds))
}

func (s *Server) FaultsHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetFaultsRequest{}, actorRequestTimeout).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorJSON{Error: err.Error()})
	}
	response, ok := res.(domain.GetFaultsResponse)
	if !ok || response.HasResponseError() {
		return c.JSON(http.StatusServiceUnavailable, errorJSON{Error: "could not read faults"})
	}
	return c.JSON(http.StatusOK, map[string]string{"faults": response.Faults})
}

func (s *Server) monitorState() (*domain.GetMonitorStateResponse, error) {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetMonitorStateRequest{}, actorRequestTimeout).Result()
	if err != nil {
		return nil, err
	}
	response, ok := res.(domain.GetMonitorStateResponse)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "unexpected monitor response")
	}
	if response.HasResponseError() {
		return nil, response.GetResponseError()
	}
	return &response, nil
}

// applyCommand sends a threshold command to the master and unwraps the result.
func (s *Server) applyCommand(cmd any) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, cmd, actorRequestTimeout).Result()
	if err != nil {
		return err
	}
	if response, ok := res.(domain.ActorResponse); ok && response.HasResponseError() {
		return response.GetResponseError()
	}
	return nil
}

func monitorStateToJSON(state *domain.GetMonitorStateResponse) statusJSON {
	out := statusJSON{
		ChargingPhase: state.ChargingPhase.String(),
		BatteryState:  state.BatteryState.String(),
		Thresholds:    thresholdsToJSON(state.Thresholds),
	}
	if state.LastSnapshot != nil {
		snap := state.LastSnapshot
		out.Snapshot = &snapshotJSON{
			BatteryVoltage:            snap.BatteryVoltage,
			BatteryPowerDirection:     snap.BatteryPowerDirection.String(),
			BatteryChargingCurrent:    snap.BatteryChargingCurrent,
			BatteryDischargingCurrent: snap.BatteryDischargingCurrent,
			ACPresent:                 snap.ACPresent(),
			ACVoltage:                 snap.ACVoltage,
			ACFrequency:               snap.ACFrequency,
			SolarInputPower:           snap.SolarInputPower,
			OutputLoadWatts:           snap.OutputLoadWatts,
		}
	}
	return out
}

func thresholdsToJSON(th domain.Thresholds) thresholdsJSON {
	return thresholdsJSON{
		BatteryChargingVoltage:    th.BatteryChargingVoltage,
		BatteryDischargingVoltage: th.BatteryDischargingVoltage,
		BatteryUnderVoltage:       th.BatteryUnderVoltage,
		ACCurrentRangeMin:         th.ACCurrentRange.Min,
		ACCurrentRangeMax:         th.ACCurrentRange.Max,
	}
}
