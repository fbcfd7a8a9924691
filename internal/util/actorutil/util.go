package actorutil

import (
	"log/slog"
	"strconv"
	"time"

	"inverterd2mqtt/internal/core/domain"
	"inverterd2mqtt/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand maps an input number command to an actor request.
// Single-value threshold commands are widened with the current values since
// the inverter takes charging and discharging voltage together. A nil request
// with a nil error means the command targets an unknown entity.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand, current domain.Thresholds) (domain.ActorRequest, error) {
	switch cmd.DeviceId {
	case domain.INPUT_NUMBER_ID_CHARGING_VOLTAGE:
		value, err := strconv.ParseFloat(cmd.Payload, 64)
		if err != nil {
			return nil, err
		}
		return domain.SetBatteryThresholdsRequest{
			ChargingVoltage:    value,
			DischargingVoltage: current.BatteryDischargingVoltage,
		}, nil
	case domain.INPUT_NUMBER_ID_DISCHARGING_VOLTAGE:
		value, err := strconv.ParseFloat(cmd.Payload, 64)
		if err != nil {
			return nil, err
		}
		return domain.SetBatteryThresholdsRequest{
			ChargingVoltage:    current.BatteryChargingVoltage,
			DischargingVoltage: value,
		}, nil
	case domain.INPUT_NUMBER_ID_UNDER_VOLTAGE:
		value, err := strconv.ParseFloat(cmd.Payload, 64)
		if err != nil {
			return nil, err
		}
		return domain.SetBatteryCutoffRequest{Voltage: value}, nil
	case domain.INPUT_NUMBER_ID_MAX_AC_CURRENT:
		// HA publishes number states as floats even with step 1
		value, err := strconv.ParseFloat(cmd.Payload, 64)
		if err != nil {
			return nil, err
		}
		return domain.SetMaxACChargingCurrentRequest{Current: int(value)}, nil
	}
	return nil, nil
}
