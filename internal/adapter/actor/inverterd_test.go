package actor

import (
	"errors"
	"testing"
	"time"

	"inverterd2mqtt/internal/core/domain"
	"inverterd2mqtt/internal/util/actorutil"
	"inverterd2mqtt/pkg/inverterd"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func spawnTestInverterdActor(t *testing.T, client *inverterd.TestClient) (*actor.ActorSystem, *actor.RootContext, *actor.PID) {
	t.Helper()

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewInverterdActor(client, client, logger) })
	pid := context.Spawn(props)

	return as, context, pid
}

func TestGetStatusInverterdActor(t *testing.T) {

	assert := assert.New(t)

	client := inverterd.NewTestClient()
	client.QueueStatus(inverterd.GeneralStatus{
		GridVoltage:            inverterd.Metric{Unit: "V", Value: 230.1},
		GridFrequency:          inverterd.Metric{Unit: "Hz", Value: 50},
		BatteryVoltage:         inverterd.Metric{Unit: "V", Value: 46.5},
		BatteryChargingCurrent: inverterd.Metric{Unit: "A", Value: 20},
		ACOutputActivePower:    inverterd.Metric{Unit: "Wh", Value: 420},
		PV1InputPower:          inverterd.Metric{Unit: "Wh", Value: 100},
		PV2InputPower:          inverterd.Metric{Unit: "Wh", Value: 50},
		BatteryPowerDirection:  inverterd.DirectionCharge,
	})

	as, context, pid := spawnTestInverterdActor(t, client)
	defer as.Shutdown()

	result, err := context.RequestFuture(pid, domain.GetStatusRequest{}, 15*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.GetStatusResponse)

	require.False(t, resp.HasResponseError())
	assert.Equal(46.5, resp.Snapshot.BatteryVoltage)
	assert.Equal(domain.PowerDirectionCharging, resp.Snapshot.BatteryPowerDirection)
	assert.Equal(20, resp.Snapshot.BatteryChargingCurrent)
	assert.Equal(150.0, resp.Snapshot.SolarInputPower)
	assert.Equal(420, resp.Snapshot.OutputLoadWatts)
	assert.True(resp.Snapshot.ACPresent(), "AC present")

	context.Stop(pid)
}

func TestGetStatusErrorInverterdActor(t *testing.T) {

	client := inverterd.NewTestClient()
	client.QueueError(errors.New("connection refused"))

	as, context, pid := spawnTestInverterdActor(t, client)
	defer as.Shutdown()

	result, err := context.RequestFuture(pid, domain.GetStatusRequest{}, 15*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.GetStatusResponse)

	assert.True(t, resp.HasResponseError(), "response carries error")

	// actor keeps serving after a failed read
	result, err = context.RequestFuture(pid, domain.GetStatusRequest{}, 15*time.Second).Result()
	require.NoError(t, err)
	resp = result.(domain.GetStatusResponse)
	assert.False(t, resp.HasResponseError())

	context.Stop(pid)
}

func TestGetRatedInverterdActor(t *testing.T) {

	client := inverterd.NewTestClient()

	as, context, pid := spawnTestInverterdActor(t, client)
	defer as.Shutdown()

	result, err := context.RequestFuture(pid, domain.GetRatedRequest{}, 15*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.GetRatedResponse)

	require.False(t, resp.HasResponseError())
	assert.Equal(t, 42.0, resp.Rated.BatteryUnderVoltage.Value)

	context.Stop(pid)
}

func TestSetThresholdsInverterdActor(t *testing.T) {

	client := inverterd.NewTestClient()

	as, context, pid := spawnTestInverterdActor(t, client)
	defer as.Shutdown()

	result, err := context.RequestFuture(pid, domain.SetBatteryThresholdsRequest{
		ChargingVoltage:    48.4,
		DischargingVoltage: 51,
	}, 15*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.SetBatteryThresholdsResponse)

	require.False(t, resp.HasResponseError())
	require.Len(t, client.ThresholdWrites, 1)
	assert.Equal(t, 48.4, client.ThresholdWrites[0].ChargingVoltage)
	assert.Equal(t, 51.0, client.ThresholdWrites[0].DischargingVoltage)

	context.Stop(pid)
}

func TestStatusToSnapshotRejectsMalformed(t *testing.T) {

	status := &inverterd.GeneralStatus{
		BatteryVoltage:        inverterd.Metric{Unit: "V", Value: 49},
		BatteryPowerDirection: "Sideways",
	}
	_, err := StatusToSnapshot(status)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "power direction")

	status = &inverterd.GeneralStatus{
		BatteryVoltage:        inverterd.Metric{Unit: "V", Value: 0},
		BatteryPowerDirection: inverterd.DirectionDoNothing,
	}
	_, err = StatusToSnapshot(status)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "battery voltage")
}

func TestStatusToSnapshotOffGrid(t *testing.T) {

	status := &inverterd.GeneralStatus{
		BatteryVoltage:            inverterd.Metric{Unit: "V", Value: 49.2},
		BatteryDischargingCurrent: inverterd.Metric{Unit: "A", Value: 8},
		BatteryPowerDirection:     inverterd.DirectionDischarge,
	}
	snap, err := StatusToSnapshot(status)
	require.NoError(t, err)
	assert.False(t, snap.ACPresent(), "AC absent")
	assert.Equal(t, domain.PowerDirectionDischarging, snap.BatteryPowerDirection)
	assert.Equal(t, 8, snap.BatteryDischargingCurrent)
}
