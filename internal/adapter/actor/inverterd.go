package actor

import (
	"fmt"
	"time"

	"inverterd2mqtt/internal/core/domain"
	"inverterd2mqtt/internal/core/port"
	"inverterd2mqtt/internal/util/actorutil"
	"inverterd2mqtt/pkg/inverterd"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/logger"
	"go.uber.org/zap"
)

const inverterdRequestTimeout = 5 * time.Second

// InverterdActor owns the connection to the inverterd daemon. Commands run as
// background tasks so the actor mailbox is never blocked by socket IO; while
// one is in flight other requests are stashed.
type InverterdActor struct {
	behavior   actor.Behavior
	stash      *actorutil.Stash
	reader     port.InverterReader
	controller port.InverterController
	logger     *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewInverterdActor(reader port.InverterReader, controller port.InverterController, logger *zap.Logger) *InverterdActor {
	act := &InverterdActor{
		reader:     reader,
		controller: controller,
		behavior:   actor.NewBehavior(),
		stash:      &actorutil.Stash{},
		logger:     actorutil.ActorLogger(domain.ACTOR_ID_INVERTERD, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *InverterdActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *InverterdActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("inverterd@starting started")
		if err := state.reader.Open(); err != nil {
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.reader.Close()
	default:
		state.logger.Debug("inverterd@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *InverterdActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("inverterd@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_INVERTERD,
			Healthy: true,
			State:   "idle",
		})
	case domain.GetStatusRequest:
		state.logger.Debug("inverterd@default: GetStatusRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getStatus),
			mapTaskResult[domain.GetStatusResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetStatusResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(inverterdRequestTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingInverterd)
	case domain.GetRatedRequest:
		state.logger.Debug("inverterd@default: GetRatedRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getRated),
			mapTaskResult[domain.GetRatedResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetRatedResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(inverterdRequestTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingInverterd)
	case domain.GetAllowedCurrentsRequest:
		state.logger.Debug("inverterd@default: GetAllowedCurrentsRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getAllowedCurrents),
			mapTaskResult[domain.GetAllowedCurrentsResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetAllowedCurrentsResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(inverterdRequestTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingInverterd)
	case domain.GetFaultsRequest:
		state.logger.Debug("inverterd@default: GetFaultsRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getFaults),
			mapTaskResult[domain.GetFaultsResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetFaultsResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(inverterdRequestTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingInverterd)
	case domain.SetBatteryThresholdsRequest:
		state.logger.Debug("inverterd@default: SetBatteryThresholdsRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.SetBatteryThresholdsResponse {
			err := state.controller.SetBatteryThresholds(msg.ChargingVoltage, msg.DischargingVoltage)
			return &domain.SetBatteryThresholdsResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		}),
			mapTaskResult[domain.SetBatteryThresholdsResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.SetBatteryThresholdsResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(inverterdRequestTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingInverterd)
	case domain.SetBatteryCutoffRequest:
		state.logger.Debug("inverterd@default: SetBatteryCutoffRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.SetBatteryCutoffResponse {
			err := state.controller.SetBatteryCutoffVoltage(msg.Voltage)
			return &domain.SetBatteryCutoffResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		}),
			mapTaskResult[domain.SetBatteryCutoffResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.SetBatteryCutoffResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(inverterdRequestTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingInverterd)
	case domain.SetMaxACChargingCurrentRequest:
		state.logger.Debug("inverterd@default: SetMaxACChargingCurrentRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.SetMaxACChargingCurrentResponse {
			err := state.controller.SetMaxACChargingCurrent(msg.Current)
			return &domain.SetMaxACChargingCurrentResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		}),
			mapTaskResult[domain.SetMaxACChargingCurrentResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.SetMaxACChargingCurrentResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(inverterdRequestTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingInverterd)
	case *actor.Stopping:
		state.reader.Close()
	default:
		state.logger.Debug("inverterd@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *InverterdActor) WaitingInverterd(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("inverterd@waiting backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.reader.Close()
	default:
		state.logger.Debug("inverterd@waiting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *InverterdActor) getStatus() (*domain.GetStatusResponse, error) {
	status, err := a.reader.GetGeneralStatus()
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	snap, err := StatusToSnapshot(status)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.GetStatusResponse{
		Snapshot: snap,
	}, nil
}

func (a *InverterdActor) getRated() (*domain.GetRatedResponse, error) {
	rated, err := a.reader.GetRated()
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.GetRatedResponse{
		Rated: rated,
	}, nil
}

func (a *InverterdActor) getAllowedCurrents() (*domain.GetAllowedCurrentsResponse, error) {
	currents, err := a.reader.GetAllowedACChargingCurrents()
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.GetAllowedCurrentsResponse{
		Currents: currents,
	}, nil
}

func (a *InverterdActor) getFaults() (*domain.GetFaultsResponse, error) {
	faults, err := a.reader.GetFaults()
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.GetFaultsResponse{
		Faults: faults,
	}, nil
}

// StatusToSnapshot converts a raw daemon status to a telemetry snapshot,
// rejecting readings the monitor cannot reason about.
func StatusToSnapshot(status *inverterd.GeneralStatus) (*domain.Snapshot, error) {
	var direction domain.PowerDirection
	switch status.BatteryPowerDirection {
	case inverterd.DirectionCharge:
		direction = domain.PowerDirectionCharging
	case inverterd.DirectionDischarge:
		direction = domain.PowerDirectionDischarging
	case inverterd.DirectionDoNothing:
		direction = domain.PowerDirectionIdle
	default:
		return nil, fmt.Errorf("unknown battery power direction %q", status.BatteryPowerDirection)
	}
	if status.BatteryVoltage.Value <= 0 {
		return nil, fmt.Errorf("implausible battery voltage %.1f", status.BatteryVoltage.Value)
	}
	return &domain.Snapshot{
		BatteryVoltage:            status.BatteryVoltage.Value,
		BatteryPowerDirection:     direction,
		BatteryChargingCurrent:    int(status.BatteryChargingCurrent.Value),
		BatteryDischargingCurrent: int(status.BatteryDischargingCurrent.Value),
		ACVoltage:                 status.GridVoltage.Value,
		ACFrequency:               status.GridFrequency.Value,
		SolarInputPower:           status.PV1InputPower.Value + status.PV2InputPower.Value,
		OutputLoadWatts:           int(status.ACOutputActivePower.Value),
	}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
