package inverterd

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDaemon answers the line protocol on a loopback listener.
type fakeDaemon struct {
	listener net.Listener
	// commands received as full "exec ..." lines
	execLines chan string
	replies   map[string]string
	errReply  string
}

func newFakeDaemon(t *testing.T) *fakeDaemon {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	d := &fakeDaemon{
		listener:  ln,
		execLines: make(chan string, 16),
		replies:   map[string]string{},
	}
	go d.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return d
}

func (d *fakeDaemon) port() uint {
	return uint(d.listener.Addr().(*net.TCPAddr).Port)
}

func (d *fakeDaemon) serve() {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			return
		}
		go d.handle(conn)
	}
}

func (d *fakeDaemon) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case strings.HasPrefix(line, "v ") || strings.HasPrefix(line, "format "):
			fmt.Fprintf(conn, "ok\r\n\r\n")
		case strings.HasPrefix(line, "exec "):
			d.execLines <- line
			cmd := strings.TrimPrefix(line, "exec ")
			if d.errReply != "" {
				fmt.Fprintf(conn, "err %s\r\n\r\n", d.errReply)
				continue
			}
			payload := d.replies[cmd]
			fmt.Fprintf(conn, "ok\r\n")
			if payload != "" {
				fmt.Fprintf(conn, "%s\r\n", payload)
			}
			fmt.Fprintf(conn, "\r\n")
		default:
			fmt.Fprintf(conn, "err unknown request\r\n\r\n")
		}
	}
}

func newTestConn(d *fakeDaemon) *Client {
	return NewClient("127.0.0.1", d.port(), 2*time.Second)
}

func TestClientGetGeneralStatus(t *testing.T) {
	d := newFakeDaemon(t)
	d.replies["get-status"] = `{
		"grid_voltage": {"unit": "V", "value": 230.1},
		"grid_freq": {"unit": "Hz", "value": 50.0},
		"battery_voltage": {"unit": "V", "value": 49.2},
		"battery_charging_current": {"unit": "A", "value": 20},
		"battery_power_direction": "Charge",
		"pv1_input_power": {"unit": "Wh", "value": 150}
	}`

	c := newTestConn(d)
	require.NoError(t, c.Open())
	defer c.Close()

	status, err := c.GetGeneralStatus()
	require.NoError(t, err)
	assert.Equal(t, 230.1, status.GridVoltage.Value)
	assert.Equal(t, 50.0, status.GridFrequency.Value)
	assert.Equal(t, 49.2, status.BatteryVoltage.Value)
	assert.Equal(t, 20.0, status.BatteryChargingCurrent.Value)
	assert.Equal(t, DirectionCharge, status.BatteryPowerDirection)
	assert.Equal(t, 150.0, status.PV1InputPower.Value)
}

func TestClientGetRated(t *testing.T) {
	d := newFakeDaemon(t)
	d.replies["get-rated"] = `{
		"battery_under_voltage": {"unit": "V", "value": 42.0},
		"battery_bulk_voltage": {"unit": "V", "value": 48.4},
		"max_ac_charging_current": {"unit": "A", "value": 30}
	}`

	c := newTestConn(d)
	require.NoError(t, c.Open())
	defer c.Close()

	rated, err := c.GetRated()
	require.NoError(t, err)
	assert.Equal(t, 42.0, rated.BatteryUnderVoltage.Value)
	assert.Equal(t, 48.4, rated.BatteryBulkVoltage.Value)
	assert.Equal(t, 30.0, rated.MaxACChargingCurrent.Value)
}

func TestClientGetAllowedACChargingCurrents(t *testing.T) {
	d := newFakeDaemon(t)
	d.replies["get-allowed-ac-charging-currents"] = `[2, 10, 20, 30, 40, 50, 60]`

	c := newTestConn(d)
	require.NoError(t, c.Open())
	defer c.Close()

	currents, err := c.GetAllowedACChargingCurrents()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 10, 20, 30, 40, 50, 60}, currents)
}

func TestClientWriteCommands(t *testing.T) {
	d := newFakeDaemon(t)
	d.replies["set-battery-thresholds 48.4 45.0"] = `1`
	d.replies["set-battery-cutoff-voltage 42.0"] = `1`
	d.replies["set-max-ac-charging-current 0 30"] = `1`

	c := newTestConn(d)
	require.NoError(t, c.Open())
	defer c.Close()

	require.NoError(t, c.SetBatteryThresholds(48.4, 45))
	require.NoError(t, c.SetBatteryCutoffVoltage(42))
	require.NoError(t, c.SetMaxACChargingCurrent(30))

	var lines []string
	for i := 0; i < 3; i++ {
		lines = append(lines, <-d.execLines)
	}
	assert.Contains(t, lines, "exec set-battery-thresholds 48.4 45.0")
	assert.Contains(t, lines, "exec set-battery-cutoff-voltage 42.0")
	assert.Contains(t, lines, "exec set-max-ac-charging-current 0 30")
}

func TestClientExecError(t *testing.T) {
	d := newFakeDaemon(t)
	d.errReply = "INVALID ARGUMENT"

	c := newTestConn(d)
	require.NoError(t, c.Open())
	defer c.Close()

	_, err := c.GetGeneralStatus()
	require.Error(t, err)
	var execErr ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "INVALID ARGUMENT", execErr.Message)

	// daemon errors must not tear down the connection
	d.errReply = ""
	d.replies["get-allowed-ac-charging-currents"] = `[10]`
	currents, err := c.GetAllowedACChargingCurrents()
	require.NoError(t, err)
	assert.Equal(t, []int{10}, currents)
}

func TestClientReconnectsAfterTransportError(t *testing.T) {
	d := newFakeDaemon(t)
	d.replies["get-allowed-ac-charging-currents"] = `[10, 20]`

	c := newTestConn(d)
	require.NoError(t, c.Open())
	defer c.Close()

	_, err := c.GetAllowedACChargingCurrents()
	require.NoError(t, err)

	// force a transport failure under the client's feet
	c.mu.Lock()
	require.NoError(t, c.conn.Close())
	c.mu.Unlock()

	_, err = c.GetAllowedACChargingCurrents()
	require.Error(t, err)

	// the next call dials again
	currents, err := c.GetAllowedACChargingCurrents()
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20}, currents)
}

func TestClientConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	c := NewClient("127.0.0.1", uint(port), 500*time.Millisecond)
	require.Error(t, c.Open())
}

func TestFormatVoltage(t *testing.T) {
	assert.Equal(t, "48.4", formatVoltage(48.4))
	assert.Equal(t, "45.0", formatVoltage(45))
	v, err := strconv.ParseFloat(formatVoltage(42.349), 64)
	require.NoError(t, err)
	assert.InDelta(t, 42.3, v, 0.001)
}
