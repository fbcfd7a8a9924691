package actor

import (
	"errors"
	"fmt"
	"time"

	"inverterd2mqtt/internal/config"
	"inverterd2mqtt/internal/core/domain"
	"inverterd2mqtt/internal/core/service"
	"inverterd2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// HADiscoveryActor publishes the Home Assistant discovery messages once the
// inverterd and MQTT actors are up, then goes dormant.
type HADiscoveryActor struct {
	config                *config.Config
	behavior              actor.Behavior
	stash                 *actorutil.Stash
	inverterdActor        *actor.PID
	mqttActor             *actor.PID
	store                 *service.ThresholdStore
	inverterdActorHealthy bool
	mqttActorHealthy      bool
	healthyRecv           int

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, inverterdActor *actor.PID, mqttActor *actor.PID,
	store *service.ThresholdStore, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:         config,
		inverterdActor: inverterdActor,
		mqttActor:      mqttActor,
		store:          store,
		behavior:       actor.NewBehavior(),
		stash:          &actorutil.Stash{},
		logger:         actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// Check inverterd and MQTT actor healthy
		state.healthyRecv = 0
		state.inverterdActorHealthy = false
		state.mqttActorHealthy = false
		// Inverterd Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterdActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_INVERTERD,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_INVERTERD:
				state.inverterdActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.mqttActorHealthy = true
			}
		}
		if state.healthyRecv == 2 {

			if state.inverterdActorHealthy && state.mqttActorHealthy {
				// Ask for rated information to make sure the inverter answers
				// before announcing entities
				actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterdActor, domain.GetRatedRequest{}, 2*time.Second), func(err error) any {
					return domain.GetRatedResponse{
						ActorResponseMixIn: domain.ActorResponseMixIn{
							ResponseError: err,
						},
					}
				})
				state.behavior.Become(state.WaitingInfoReceive)
				state.stash.UnstashAll(ctx)
			} else {
				panic(errors.New("MQTT Actor or Inverterd Actor are not healthy"))
			}
		}
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {

}

func (state *HADiscoveryActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetRatedResponse:
		if msg.HasResponseError() {
			panic(msg.GetResponseError())
		}
		state.logger.Debug("hadiscovery@info: GetRatedResponse", zap.Any("response", msg))

		var sensors []domain.GenericSensor
		var inputNumbers []domain.GenericInputNumber

		bridgeDevice := domain.BridgeDevice(state.config.MQTT.BaseTopic)
		bridgeSensors := domain.BridgeSensors(bridgeDevice)
		sensors = append(sensors, bridgeSensors...)

		// inverterd exposes no serial number, the daemon address identifies
		// the device
		serial := fmt.Sprintf("%s:%d", state.config.Inverterd.Host, state.config.Inverterd.Port)
		inverterDevice := domain.InverterDevice(serial, "")
		inverterDevice.ViaDevice = bridgeDevice.Id
		inverterSensors := domain.InverterTelemetrySensors(inverterDevice)
		inverterSensors = append(inverterSensors, domain.MonitorSensors(domain.IdDevice(inverterDevice))...)
		for i := range inverterSensors {
			if i > 0 {
				inverterSensors[i].Device = domain.IdDevice(inverterDevice)
			}
			sensors = append(sensors, inverterSensors[i])
		}

		inputNumbers = append(inputNumbers, domain.ThresholdInputNumbers(domain.IdDevice(inverterDevice), state.store.Get())...)

		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
			Sensors:      sensors,
			InputNumbers: inputNumbers,
		})
		state.behavior.Become(state.Done)

	default:
		state.logger.Debug("hadiscovery@info: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}
