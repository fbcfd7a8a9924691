package inverterd

import (
	"errors"
	"sync"
)

// TestClient is a scripted in-memory client for tests. Queued snapshots and
// errors are consumed in FIFO order; when the queue is empty the base values
// are returned.
type TestClient struct {
	mu sync.Mutex

	BaseStatus GeneralStatus
	BaseRated  RatedInformation
	Currents   []int
	Faults     string

	statusQueue []queuedStatus

	ThresholdWrites []ThresholdWrite
	CutoffWrites    []float64
	CurrentWrites   []int

	WriteError error
}

type queuedStatus struct {
	status *GeneralStatus
	err    error
}

type ThresholdWrite struct {
	ChargingVoltage    float64
	DischargingVoltage float64
}

func NewTestClient() *TestClient {
	return &TestClient{
		BaseStatus: GeneralStatus{
			GridVoltage:           Metric{Unit: "V", Value: 230},
			GridFrequency:         Metric{Unit: "Hz", Value: 50},
			BatteryVoltage:        Metric{Unit: "V", Value: 49.2},
			ACOutputActivePower:   Metric{Unit: "Wh", Value: 420},
			BatteryPowerDirection: DirectionDoNothing,
		},
		BaseRated: RatedInformation{
			BatteryUnderVoltage:  Metric{Unit: "V", Value: 42},
			BatteryBulkVoltage:   Metric{Unit: "V", Value: 48.4},
			BatteryFloatVoltage:  Metric{Unit: "V", Value: 54},
			MaxACChargingCurrent: Metric{Unit: "A", Value: 30},
		},
		Currents: []int{2, 10, 20, 30, 40, 50, 60},
	}
}

func (c *TestClient) Open() error  { return nil }
func (c *TestClient) Close() error { return nil }

// QueueStatus appends a snapshot to return from the next GetGeneralStatus call.
func (c *TestClient) QueueStatus(status GeneralStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusQueue = append(c.statusQueue, queuedStatus{status: &status})
}

// QueueError appends a transport error to return from the next GetGeneralStatus call.
func (c *TestClient) QueueError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusQueue = append(c.statusQueue, queuedStatus{err: err})
}

func (c *TestClient) GetGeneralStatus() (*GeneralStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.statusQueue) > 0 {
		next := c.statusQueue[0]
		c.statusQueue = c.statusQueue[1:]
		if next.err != nil {
			return nil, next.err
		}
		return next.status, nil
	}
	status := c.BaseStatus
	return &status, nil
}

func (c *TestClient) GetRated() (*RatedInformation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rated := c.BaseRated
	return &rated, nil
}

func (c *TestClient) GetAllowedACChargingCurrents() ([]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Currents == nil {
		return nil, errors.New("no allowed currents configured")
	}
	return append([]int(nil), c.Currents...), nil
}

func (c *TestClient) GetFaults() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Faults, nil
}

func (c *TestClient) SetBatteryThresholds(chargingVoltage, dischargingVoltage float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.WriteError != nil {
		return c.WriteError
	}
	c.ThresholdWrites = append(c.ThresholdWrites, ThresholdWrite{chargingVoltage, dischargingVoltage})
	return nil
}

func (c *TestClient) SetBatteryCutoffVoltage(voltage float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.WriteError != nil {
		return c.WriteError
	}
	c.CutoffWrites = append(c.CutoffWrites, voltage)
	return nil
}

func (c *TestClient) SetMaxACChargingCurrent(amps int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.WriteError != nil {
		return c.WriteError
	}
	c.CurrentWrites = append(c.CurrentWrites, amps)
	return nil
}
