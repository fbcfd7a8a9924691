package actor

import (
	"testing"
	"time"

	adactor "inverterd2mqtt/internal/adapter/actor"
	"inverterd2mqtt/internal/core/domain"
	"inverterd2mqtt/internal/core/service"
	"inverterd2mqtt/internal/util"
	"inverterd2mqtt/pkg/inverterd"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func spawnTestMaster(t *testing.T, client *inverterd.TestClient) (*actor.ActorSystem, *actor.RootContext, *actor.PID, *service.ThresholdStore) {
	t.Helper()

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	store := service.NewThresholdStore(cfg.MonitorConfig.Thresholds())

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, store, func() *adactor.InverterdActor {
			return adactor.NewInverterdActor(client, client, logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, logger)
		}, logger)
	})
	pid, err := context.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	require.NoError(t, err)

	return as, context, pid, store
}

func TestMasterActorHealthCheck(t *testing.T) {

	client := inverterd.NewTestClient()

	as, context, pid, _ := spawnTestMaster(t, client)
	defer as.Shutdown()

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	require.NoError(t, err)
	healthResp, ok := res.(domain.ActorHealthResponse)
	require.True(t, ok)

	assert.True(t, healthResp.Healthy, "healthy is true")
	assert.Equal(t, domain.ACTOR_ID_MASTER, healthResp.Id)

	context.Stop(pid)
}

func TestMasterActorThresholdWriteThrough(t *testing.T) {

	client := inverterd.NewTestClient()

	as, context, pid, store := spawnTestMaster(t, client)
	defer as.Shutdown()

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.SetBatteryThresholdsRequest{
		ChargingVoltage:    49.0,
		DischargingVoltage: 52.0,
	}, 10*time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(domain.SetBatteryThresholdsResponse)
	require.True(t, ok)
	require.False(t, resp.HasResponseError())

	// store updated synchronously, device write follows
	th := store.Get()
	assert.Equal(t, 49.0, th.BatteryChargingVoltage)
	assert.Equal(t, 52.0, th.BatteryDischargingVoltage)

	time.Sleep(500 * time.Millisecond)
	require.Len(t, client.ThresholdWrites, 1)
	assert.Equal(t, 49.0, client.ThresholdWrites[0].ChargingVoltage)
	assert.Equal(t, 52.0, client.ThresholdWrites[0].DischargingVoltage)

	context.Stop(pid)
}

func TestMasterActorRejectsInvalidThresholds(t *testing.T) {

	client := inverterd.NewTestClient()

	as, context, pid, store := spawnTestMaster(t, client)
	defer as.Shutdown()

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.SetBatteryCutoffRequest{
		Voltage: 30.0,
	}, 10*time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(domain.SetBatteryCutoffResponse)
	require.True(t, ok)
	assert.True(t, resp.HasResponseError(), "out of range cutoff is rejected")

	// store and device untouched
	assert.Equal(t, 42.0, store.Get().BatteryUnderVoltage)
	assert.Empty(t, client.CutoffWrites)

	context.Stop(pid)
}

func TestMasterActorMonitorState(t *testing.T) {

	client := inverterd.NewTestClient()

	as, context, pid, _ := spawnTestMaster(t, client)
	defer as.Shutdown()

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.GetMonitorStateRequest{}, 10*time.Second).Result()
	require.NoError(t, err)
	stateResp, ok := res.(domain.GetMonitorStateResponse)
	require.True(t, ok)
	require.False(t, stateResp.HasResponseError())

	assert.Equal(t, 42.0, stateResp.Thresholds.BatteryUnderVoltage)
	require.NotNil(t, stateResp.LastSnapshot)

	context.Stop(pid)
}
