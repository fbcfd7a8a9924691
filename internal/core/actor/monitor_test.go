package actor

import (
	"sync"
	"testing"
	"time"

	adactor "inverterd2mqtt/internal/adapter/actor"
	"inverterd2mqtt/internal/core/domain"
	"inverterd2mqtt/internal/core/service"
	"inverterd2mqtt/internal/util"
	"inverterd2mqtt/internal/util/actorutil"
	"inverterd2mqtt/pkg/inverterd"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type eventCollector struct {
	mu     sync.Mutex
	events []any
}

func (c *eventCollector) collect(value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, value)
}

func (c *eventCollector) snapshot() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.events...)
}

func (c *eventCollector) notifications() []domain.NotificationEvent {
	var out []domain.NotificationEvent
	for _, ev := range c.snapshot() {
		if n, ok := ev.(domain.NotificationEvent); ok {
			out = append(out, n)
		}
	}
	return out
}

func (c *eventCollector) textSensorValue(id string) string {
	var value string
	for _, ev := range c.snapshot() {
		if t, ok := ev.(domain.TextSensorUpdateEvent); ok && t.Id == id {
			value = t.Value
		}
	}
	return value
}

func spawnTestMonitor(t *testing.T, client *inverterd.TestClient) (*actor.ActorSystem, *actor.PID, *service.ThresholdStore, *eventCollector) {
	t.Helper()

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	cfg := util.LoadTestConfig()
	store := service.NewThresholdStore(cfg.MonitorConfig.Thresholds())
	es := &eventstream.EventStream{}
	collector := &eventCollector{}
	es.Subscribe(collector.collect)

	inverterdProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewInverterdActor(client, client, logger)
	})
	inverterdPID := context.Spawn(inverterdProps)

	monitorProps := actor.PropsFromProducer(func() actor.Actor {
		return NewMonitorActor(&cfg, inverterdPID, store, es, logger)
	})
	monitorPID := context.Spawn(monitorProps)

	return as, monitorPID, store, collector
}

func chargingStatus(current float64) inverterd.GeneralStatus {
	return inverterd.GeneralStatus{
		GridVoltage:            inverterd.Metric{Unit: "V", Value: 230},
		GridFrequency:          inverterd.Metric{Unit: "Hz", Value: 50},
		BatteryVoltage:         inverterd.Metric{Unit: "V", Value: 47.1},
		BatteryChargingCurrent: inverterd.Metric{Unit: "A", Value: current},
		ACOutputActivePower:    inverterd.Metric{Unit: "Wh", Value: 350},
		BatteryPowerDirection:  inverterd.DirectionCharge,
	}
}

func TestMonitorActorPublishesTelemetryAndNotifications(t *testing.T) {

	client := inverterd.NewTestClient()
	client.QueueStatus(chargingStatus(20))

	as, pid, _, collector := spawnTestMonitor(t, client)
	defer as.Shutdown()

	time.Sleep(1 * time.Second)

	notifications := collector.notifications()
	require.NotEmpty(t, notifications, "charging start notification published")
	assert.Equal(t, "AC charging started (20 A)", notifications[0].Text)

	assert.Equal(t, "ac_charging", collector.textSensorValue(domain.SENSOR_ID_CHARGING_PHASE))
	assert.Equal(t, "normal", collector.textSensorValue(domain.SENSOR_ID_BATTERY_STATE))

	var batteryVoltage *domain.FloatSensorUpdateEvent
	for _, ev := range collector.snapshot() {
		if f, ok := ev.(domain.FloatSensorUpdateEvent); ok && f.Id == domain.SENSOR_ID_BATTERY_VOLTAGE {
			batteryVoltage = &f
		}
	}
	require.NotNil(t, batteryVoltage)
	assert.Equal(t, 47.1, batteryVoltage.Value)

	as.Root.Stop(pid)
}

func TestMonitorActorStateRequest(t *testing.T) {

	client := inverterd.NewTestClient()
	client.QueueStatus(chargingStatus(30))

	as, pid, store, _ := spawnTestMonitor(t, client)
	defer as.Shutdown()

	time.Sleep(1 * time.Second)

	res, err := as.Root.RequestFuture(pid, domain.GetMonitorStateRequest{}, 10*time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(domain.GetMonitorStateResponse)
	require.True(t, ok)

	assert.Equal(t, domain.PhaseACCharging, resp.ChargingPhase)
	assert.Equal(t, domain.BatteryStateNormal, resp.BatteryState)
	assert.Equal(t, store.Get(), resp.Thresholds)
	require.NotNil(t, resp.LastSnapshot)
	assert.Equal(t, 30, resp.LastSnapshot.BatteryChargingCurrent)

	as.Root.Stop(pid)
}

func TestMonitorActorErrorNotification(t *testing.T) {

	client := inverterd.NewTestClient()
	client.QueueError(assertedError{})

	as, pid, _, collector := spawnTestMonitor(t, client)
	defer as.Shutdown()

	time.Sleep(1 * time.Second)

	notifications := collector.notifications()
	require.NotEmpty(t, notifications)
	assert.Equal(t, "Monitor error: inverterd unreachable", notifications[0].Text)

	as.Root.Stop(pid)
}

func TestMonitorActorRejectsInvalidCurrentRange(t *testing.T) {

	client := inverterd.NewTestClient()
	client.Currents = []int{10, 20}

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	cfg := util.LoadTestConfig()
	store := service.NewThresholdStore(cfg.MonitorConfig.Thresholds())

	th := store.Get()
	err := validateCurrentRange(th.ACCurrentRange, client.Currents)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allowed currents")
}

type assertedError struct{}

func (assertedError) Error() string { return "inverterd unreachable" }
