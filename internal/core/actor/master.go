package actor

import (
	"errors"
	"fmt"
	"log"
	"time"

	adactor "inverterd2mqtt/internal/adapter/actor"
	"inverterd2mqtt/internal/config"
	"inverterd2mqtt/internal/core/domain"
	"inverterd2mqtt/internal/core/service"
	. "inverterd2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type InverterdActorProvider func() *adactor.InverterdActor

// MasterOfPuppetsActor spawns and supervises the actor tree and routes
// threshold commands: the store is updated first, then the new values are
// written through to the inverter.
type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck     healthCheckResult
	eventStream            *eventstream.EventStream
	store                  *service.ThresholdStore
	inverterdActor         *actor.PID
	mqttActor              *actor.PID
	monitorActor           *actor.PID
	inverterdActorProvider InverterdActorProvider
	mqttActorProvider      MQTTActorProvider
	logger                 *zap.Logger
}

type healthCheckResult struct {
	inverterdActorHealthy bool
	mqttActorHealthy      bool
	monitorActorHealthy   bool
	checksReceived        int
	respondTo             *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, store *service.ThresholdStore,
	inverterdActorProvider InverterdActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:                 config,
		behavior:               actor.NewBehavior(),
		stash:                  &Stash{},
		logger:                 ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:            &eventstream.EventStream{},
		store:                  store,
		inverterdActorProvider: inverterdActorProvider,
		mqttActorProvider:      mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck.reset()

		// start inverterd child
		inverterdActorPID, err := state.startInverterdActor(ctx)
		if err != nil {
			panic(err)
		}
		state.inverterdActor = inverterdActorPID

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start monitor child
		monitorActorPID, err := state.startMonitorActor(ctx)
		if err != nil {
			panic(err)
		}
		state.monitorActor = monitorActorPID

		// start HA Discovery
		if state.config.MQTT.HADiscoveryEnable {
			_, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		// Inverterd Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterdActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_INVERTERD,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		// Monitor Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.monitorActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MONITOR,
				Healthy: false,
			}
		})

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case adactor.ParsedCommand:
		// map MQTT command to a threshold request and apply it
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			cmd, err := ParsedMQTTCommandToCommand(*msg.Command, state.store.Get())
			if err != nil || cmd == nil {
				state.logger.Warn("master@default could not parse command", zap.Error(err))
				return
			}
			if err := state.applyThresholdCommand(ctx, cmd); err != nil {
				state.logger.Warn("master@default rejected threshold command", zap.Error(err))
			}
		}
	case domain.SetBatteryThresholdsRequest:
		state.respondThresholdCommand(ctx, msg, state.applyThresholdCommand(ctx, msg))
	case domain.SetBatteryCutoffRequest:
		state.respondThresholdCommand(ctx, msg, state.applyThresholdCommand(ctx, msg))
	case domain.SetMaxACChargingCurrentRequest:
		state.respondThresholdCommand(ctx, msg, state.applyThresholdCommand(ctx, msg))
	case domain.GetMonitorStateRequest:
		state.logger.Debug("master@default GetMonitorStateRequest")
		ctx.Forward(state.monitorActor)
	case domain.GetStatusRequest:
		state.logger.Debug("master@default GetStatusRequest")
		ctx.Forward(state.inverterdActor)
	case domain.GetFaultsRequest:
		state.logger.Debug("master@default GetFaultsRequest")
		ctx.Forward(state.inverterdActor)
	case domain.SetBatteryThresholdsResponse:
		state.logWriteThrough("battery thresholds", msg)
	case domain.SetBatteryCutoffResponse:
		state.logWriteThrough("battery cutoff voltage", msg)
	case domain.SetMaxACChargingCurrentResponse:
		state.logWriteThrough("max AC charging current", msg)
	case *actor.Terminated:
		// if some actor fails on boot, terminate
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_INVERTERD) {
			state.logger.Error("master@default inverterd error")
			panic(errors.New("inverterd terminated"))
		}
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// applyThresholdCommand updates the store first; the device write-through and
// HA state refresh only happen when the new values pass validation.
func (state *MasterOfPuppetsActor) applyThresholdCommand(ctx actor.Context, cmd domain.ActorRequest) error {
	switch pcmd := cmd.(type) {
	case domain.SetBatteryThresholdsRequest:
		if err := state.store.SetChargingThresholds(pcmd.ChargingVoltage, pcmd.DischargingVoltage); err != nil {
			return err
		}
		ctx.Request(state.inverterdActor, pcmd)
	case domain.SetBatteryCutoffRequest:
		if err := state.store.SetUnderVoltage(pcmd.Voltage); err != nil {
			return err
		}
		ctx.Request(state.inverterdActor, pcmd)
	case domain.SetMaxACChargingCurrentRequest:
		th := state.store.Get()
		if err := state.store.SetACCurrentRange(th.ACCurrentRange.Min, pcmd.Current); err != nil {
			return err
		}
		ctx.Request(state.inverterdActor, pcmd)
	default:
		return fmt.Errorf("unsupported threshold command %T", cmd)
	}
	state.publishThresholdStates()
	return nil
}

func (state *MasterOfPuppetsActor) respondThresholdCommand(ctx actor.Context, cmd domain.ActorRequest, err error) {
	if ctx.Sender() == nil {
		return
	}
	switch cmd.(type) {
	case domain.SetBatteryThresholdsRequest:
		ctx.Respond(domain.SetBatteryThresholdsResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
		})
	case domain.SetBatteryCutoffRequest:
		ctx.Respond(domain.SetBatteryCutoffResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
		})
	case domain.SetMaxACChargingCurrentRequest:
		ctx.Respond(domain.SetMaxACChargingCurrentResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
		})
	}
}

// publishThresholdStates refreshes the HA input number states after a change.
func (state *MasterOfPuppetsActor) publishThresholdStates() {
	th := state.store.Get()
	state.eventStream.Publish(domain.InputNumberSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.INPUT_NUMBER_ID_CHARGING_VOLTAGE},
		Value:                  th.BatteryChargingVoltage,
		Decimals:               1,
	})
	state.eventStream.Publish(domain.InputNumberSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.INPUT_NUMBER_ID_DISCHARGING_VOLTAGE},
		Value:                  th.BatteryDischargingVoltage,
		Decimals:               1,
	})
	state.eventStream.Publish(domain.InputNumberSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.INPUT_NUMBER_ID_UNDER_VOLTAGE},
		Value:                  th.BatteryUnderVoltage,
		Decimals:               1,
	})
	state.eventStream.Publish(domain.InputNumberSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.INPUT_NUMBER_ID_MAX_AC_CURRENT},
		Value:                  float64(th.ACCurrentRange.Max),
	})
}

func (state *MasterOfPuppetsActor) logWriteThrough(what string, resp domain.ActorResponse) {
	if resp.HasResponseError() {
		state.logger.Error("master@default write-through failed",
			zap.String("setting", what), zap.Error(resp.GetResponseError()))
	} else {
		state.logger.Info("master@default write-through applied", zap.String("setting", what))
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			if msg.Id == domain.ACTOR_ID_INVERTERD {
				state.currentHealthCheck.inverterdActorHealthy = true
			} else if msg.Id == domain.ACTOR_ID_MQTT {
				state.currentHealthCheck.mqttActorHealthy = true
			} else if msg.Id == domain.ACTOR_ID_MONITOR {
				state.currentHealthCheck.monitorActorHealthy = true
			}
		}
		if state.currentHealthCheck.allReceived() {

			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) startInverterdActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	inverterdProps := actor.PropsFromProducer(func() actor.Actor {
		return state.inverterdActorProvider()
	}, actor.WithSupervisor(supervisor))
	inverterdActorPID, err := ctx.SpawnNamed(inverterdProps, domain.ACTOR_ID_INVERTERD)
	if err != nil {
		return nil, err
	}

	return inverterdActorPID, nil
}

func (state *MasterOfPuppetsActor) startMonitorActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewAllForOneStrategy(1, 10*time.Second, decider)

	monitorProps := actor.PropsFromProducer(func() actor.Actor {
		return NewMonitorActor(&state.config, state.inverterdActor, state.store, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	monitorActorPID, err := ctx.SpawnNamed(monitorProps, domain.ACTOR_ID_MONITOR)
	if err != nil {
		return nil, err
	}

	return monitorActorPID, nil
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.inverterdActor, state.mqttActor, state.store, state.logger)
	}, actor.WithSupervisor(supervisor))
	haDiscPID, err := ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
	if err != nil {
		return nil, err
	}

	return haDiscPID, nil
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *healthCheckResult) reset() {
	state.inverterdActorHealthy = false
	state.mqttActorHealthy = false
	state.monitorActorHealthy = false
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == 3
}

func (state *healthCheckResult) allHealthy() bool {
	return state.inverterdActorHealthy && state.mqttActorHealthy && state.monitorActorHealthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
