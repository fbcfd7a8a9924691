// Package inverterd implements a client for the inverterd daemon protocol.
//
// The protocol is line based: each request is a single CRLF-terminated line
// ("v <version>", "format <format>" or "exec <command> [args...]"), each
// response starts with a status line ("ok" or "err <message>") followed by
// an optional payload and a terminating empty line.
package inverterd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	protocolVersion = 1

	FormatJSON  = "json"
	FormatTable = "table"
)

// ExecError is a daemon-reported command failure ("err <message>" reply).
type ExecError struct {
	Message string
}

func (e ExecError) Error() string {
	return fmt.Sprintf("inverterd: %s", e.Message)
}

var ErrMalformedResponse = errors.New("inverterd: malformed response")

type Client struct {
	addr    string
	timeout time.Duration

	// one in-flight command at a time; the daemon has no request ids
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	format string
}

func NewClient(host string, port uint, timeout time.Duration) *Client {
	return &Client{
		addr:    fmt.Sprintf("%s:%d", host, port),
		timeout: timeout,
	}
}

func (c *Client) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connect()
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drop()
}

func (c *Client) connect() error {
	if c.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return err
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.format = ""
	if _, err := c.roundTrip(fmt.Sprintf("v %d", protocolVersion)); err != nil {
		_ = c.drop()
		return err
	}
	return nil
}

func (c *Client) drop() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}

// Exec runs a daemon command and returns the raw payload. The connection is
// re-established on the next call after a transport error.
func (c *Client) Exec(format, command string, args ...string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(); err != nil {
		return nil, err
	}
	if c.format != format {
		if _, err := c.roundTrip("format " + format); err != nil {
			_ = c.drop()
			return nil, err
		}
		c.format = format
	}
	line := "exec " + command
	if len(args) > 0 {
		line += " " + strings.Join(args, " ")
	}
	payload, err := c.roundTrip(line)
	if err != nil {
		var execErr ExecError
		if !errors.As(err, &execErr) {
			_ = c.drop()
		}
		return nil, err
	}
	return payload, nil
}

func (c *Client) roundTrip(line string) ([]byte, error) {
	deadline := time.Now().Add(c.timeout)
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", line); err != nil {
		return nil, err
	}

	status, err := c.readLine()
	if err != nil {
		return nil, err
	}
	var payload []byte
	for {
		l, err := c.readLine()
		if err != nil {
			return nil, err
		}
		if l == "" {
			break
		}
		payload = append(payload, l...)
		payload = append(payload, '\n')
	}
	switch {
	case status == "ok":
		return payload, nil
	case strings.HasPrefix(status, "err"):
		msg := strings.TrimSpace(strings.TrimPrefix(status, "err"))
		if msg == "" {
			msg = strings.TrimSpace(string(payload))
		}
		return nil, ExecError{Message: msg}
	default:
		return nil, fmt.Errorf("%w: unexpected status %q", ErrMalformedResponse, status)
	}
}

func (c *Client) readLine() (string, error) {
	l, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(l, "\r\n"), nil
}

func (c *Client) GetGeneralStatus() (*GeneralStatus, error) {
	payload, err := c.Exec(FormatJSON, "get-status")
	if err != nil {
		return nil, err
	}
	var status GeneralStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}
	return &status, nil
}

func (c *Client) GetRated() (*RatedInformation, error) {
	payload, err := c.Exec(FormatJSON, "get-rated")
	if err != nil {
		return nil, err
	}
	var rated RatedInformation
	if err := json.Unmarshal(payload, &rated); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}
	return &rated, nil
}

func (c *Client) GetAllowedACChargingCurrents() ([]int, error) {
	payload, err := c.Exec(FormatJSON, "get-allowed-ac-charging-currents")
	if err != nil {
		return nil, err
	}
	var currents []int
	if err := json.Unmarshal(payload, &currents); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}
	return currents, nil
}

// GetFaults returns the faults/warnings report rendered by the daemon.
func (c *Client) GetFaults() (string, error) {
	payload, err := c.Exec(FormatTable, "get-faults-warnings")
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func (c *Client) SetBatteryThresholds(chargingVoltage, dischargingVoltage float64) error {
	_, err := c.Exec(FormatJSON, "set-battery-thresholds",
		formatVoltage(chargingVoltage), formatVoltage(dischargingVoltage))
	return err
}

func (c *Client) SetBatteryCutoffVoltage(voltage float64) error {
	_, err := c.Exec(FormatJSON, "set-battery-cutoff-voltage", formatVoltage(voltage))
	return err
}

// SetMaxACChargingCurrent sets the AC charging current limit on charger 0.
func (c *Client) SetMaxACChargingCurrent(amps int) error {
	_, err := c.Exec(FormatJSON, "set-max-ac-charging-current", "0", fmt.Sprintf("%d", amps))
	return err
}

func formatVoltage(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
