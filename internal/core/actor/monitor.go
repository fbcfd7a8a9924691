package actor

import (
	"fmt"
	"time"

	"inverterd2mqtt/internal/config"
	"inverterd2mqtt/internal/core/domain"
	"inverterd2mqtt/internal/core/events"
	"inverterd2mqtt/internal/core/service"
	. "inverterd2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// MonitorActor drives the sampling loop: it polls the inverterd actor, feeds
// the snapshots through the monitor engine and publishes telemetry and
// transition notifications on the event stream. Ticks never overlap; the next
// tick is scheduled only after the previous evaluation finished.
type MonitorActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	inverterdActor *actor.PID
	config         *config.Config
	eventStream    *eventstream.EventStream
	store          *service.ThresholdStore
	engine         *service.MonitorEngine
	lastSnapshot   *domain.Snapshot

	logger *zap.Logger
}

type monitorTick struct {
}

func NewMonitorActor(config *config.Config, inverterdActor *actor.PID, store *service.ThresholdStore,
	eventStream *eventstream.EventStream, logger *zap.Logger) *MonitorActor {
	logger = ActorLogger(domain.ACTOR_ID_MONITOR, logger)
	act := &MonitorActor{
		config:         config,
		inverterdActor: inverterdActor,
		behavior:       actor.NewBehavior(),
		stash:          &Stash{},
		store:          store,
		engine:         service.NewMonitorEngine(store, logger),
		eventStream:    eventStream,
		logger:         logger,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MonitorActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MonitorActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("monitor@starting started")

		state.scheduler = scheduler.NewTimerScheduler(ctx)

		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterdActor, domain.GetRatedRequest{}, 10*time.Second), func(err error) any {
			return domain.GetRatedResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.Become(state.WaitingRatedReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("monitor@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// WaitingRatedReceive seeds the under-voltage cutoff from the inverter rated
// information when the configuration does not pin one.
func (state *MonitorActor) WaitingRatedReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetRatedResponse:
		if msg.HasResponseError() {
			state.logger.Error("monitor@waitingRated GetRatedResponse error", zap.Error(msg.GetResponseError()))
			panic(msg.GetResponseError())
		}
		if state.store.Get().BatteryUnderVoltage == 0 {
			cutoff := msg.Rated.BatteryUnderVoltage.Value
			state.logger.Info("monitor@waitingRated seeding under-voltage cutoff from rated information",
				zap.Float64("cutoff", cutoff))
			if err := state.store.SetUnderVoltage(cutoff); err != nil {
				panic(err)
			}
		}
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterdActor, domain.GetAllowedCurrentsRequest{}, 10*time.Second), func(err error) any {
			return domain.GetAllowedCurrentsResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.Become(state.WaitingCurrentsReceive)
	default:
		state.logger.Debug("monitor@waitingRated: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// WaitingCurrentsReceive validates the configured AC current range against
// the currents the inverter actually accepts.
func (state *MonitorActor) WaitingCurrentsReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetAllowedCurrentsResponse:
		if msg.HasResponseError() {
			state.logger.Error("monitor@waitingCurrents GetAllowedCurrentsResponse error", zap.Error(msg.GetResponseError()))
			panic(msg.GetResponseError())
		}
		th := state.store.Get()
		if err := validateCurrentRange(th.ACCurrentRange, msg.Currents); err != nil {
			state.logger.Error("monitor@waitingCurrents invalid AC current range", zap.Error(err))
			panic(err)
		}
		state.logger.Info("monitor@waitingCurrents monitor ready",
			zap.Float64("under_voltage", th.BatteryUnderVoltage),
			zap.Int("min_current", th.ACCurrentRange.Min),
			zap.Int("max_current", th.ACCurrentRange.Max))

		ctx.Send(ctx.Self(), monitorTick{})
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("monitor@waitingCurrents: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MonitorActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("monitor@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MONITOR,
			Healthy: true,
			State:   state.engine.ChargingPhase().String(),
		})
	case domain.GetMonitorStateRequest:
		state.logger.Debug("monitor@default: GetMonitorStateRequest")
		ctx.Respond(domain.GetMonitorStateResponse{
			ChargingPhase: state.engine.ChargingPhase(),
			BatteryState:  state.engine.BatteryState(),
			Thresholds:    state.store.Get(),
			LastSnapshot:  state.lastSnapshot,
		})
	case monitorTick:
		state.logger.Debug("monitor@default tick")
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterdActor, domain.GetStatusRequest{}, 10*time.Second), func(err error) any {
			return domain.GetStatusResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.BecomeStacked(state.WaitingStatusReceive)
	default:
		state.logger.Debug("monitor@default: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MonitorActor) WaitingStatusReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetStatusResponse:
		state.logger.Debug("monitor@waitingStatus GetStatusResponse")

		var monitorEvents []domain.MonitorEvent
		if msg.HasResponseError() {
			monitorEvents = state.engine.Fail(msg.GetResponseError())
		} else {
			snap := *msg.Snapshot
			monitorEvents = state.engine.Tick(snap)
			state.lastSnapshot = &snap

			for _, ev := range events.SnapshotToUpdateEvents(snap) {
				state.eventStream.Publish(ev)
			}
			for _, ev := range events.MonitorStateToUpdateEvents(state.engine.ChargingPhase(), state.engine.BatteryState()) {
				state.eventStream.Publish(ev)
			}
		}
		for _, ev := range monitorEvents {
			notification := events.MonitorEventToNotification(ev)
			state.logger.Info("monitor@waitingStatus event", zap.String("text", notification.Text))
			state.eventStream.Publish(notification)
		}

		// only schedule the next tick once this one is fully evaluated
		state.scheduler.RequestOnce(time.Duration(state.config.MonitorConfig.PollIntervalMillis)*time.Millisecond, ctx.Self(), monitorTick{})
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("monitor@waitingStatus: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func validateCurrentRange(r domain.CurrentRange, allowed []int) error {
	if !containsInt(allowed, r.Min) || !containsInt(allowed, r.Max) {
		return fmt.Errorf("AC current range [%d, %d] is not within the inverter allowed currents %v", r.Min, r.Max, allowed)
	}
	return nil
}

func containsInt(values []int, value int) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
