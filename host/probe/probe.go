// Package probe implements the host side of the debug bridge byte protocol.
package probe

import (
	"errors"
	"fmt"
	"time"

	"swiolink/host/serial"
	"swiolink/protocol"
)

// ErrBusFault is returned when the bridge answers a command with a nak,
// which it does when the target held the SWIO line low past the stuck-line
// threshold. The value read alongside it cannot be trusted.
var ErrBusFault = errors.New("target bus fault")

// Probe represents a connection to a SWIO debug bridge
type Probe struct {
	port      serial.Port
	connected bool

	// ReadTimeout bounds how long each reply is waited for
	ReadTimeout time.Duration
}

// Open opens a serial connection to a bridge at the default settings
func Open(device string) (*Probe, error) {
	return OpenWithConfig(serial.DefaultConfig(device))
}

// OpenWithConfig opens a serial connection with a custom serial config
func OpenWithConfig(cfg *serial.Config) (*Probe, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return New(port), nil
}

// New wraps an already open port. Useful for tests and alternative
// transports.
func New(port serial.Port) *Probe {
	return &Probe{
		port:        port,
		connected:   true,
		ReadTimeout: 2 * time.Second,
	}
}

// Close closes the connection to the bridge
func (p *Probe) Close() error {
	p.connected = false
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// IsConnected returns whether the probe is connected
func (p *Probe) IsConnected() bool {
	return p.connected
}

// WaitGreeting waits for the '!' the bridge sends once its attach handshake
// completes. Any noise bytes before it are discarded.
func (p *Probe) WaitGreeting(timeout time.Duration) error {
	if !p.connected {
		return fmt.Errorf("not connected to bridge")
	}

	deadline := time.Now().Add(timeout)
	buf := make([]byte, 1)
	for time.Now().Before(deadline) {
		n, err := p.port.Read(buf)
		if err != nil {
			return fmt.Errorf("failed to read greeting: %w", err)
		}
		if n == 1 && buf[0] == protocol.Greeting {
			return nil
		}
	}
	return fmt.Errorf("no greeting within %v", timeout)
}

// SelfTest verifies the command path with a '?' round trip
func (p *Probe) SelfTest() error {
	if err := p.send([]byte{protocol.CmdTest}); err != nil {
		return err
	}
	return p.expectStatus("self-test")
}

// SetPower switches the target power rail
func (p *Probe) SetPower(on bool) error {
	cmd := byte(protocol.CmdPowerOff)
	if on {
		cmd = protocol.CmdPowerOn
	}
	if err := p.send([]byte{cmd}); err != nil {
		return err
	}
	return p.expectStatus("power")
}

// WriteReg writes a 32-bit value to a debug register
func (p *Probe) WriteReg(reg uint8, value uint32) error {
	frame, err := protocol.AppendWriteFrame(nil, reg, value)
	if err != nil {
		return err
	}
	if err := p.send(frame); err != nil {
		return err
	}
	return p.expectStatus(fmt.Sprintf("write reg 0x%02x", reg))
}

// ReadReg reads a 32-bit value from a debug register. On ErrBusFault the
// returned value is whatever the bridge decoded off the stuck line.
func (p *Probe) ReadReg(reg uint8) (uint32, error) {
	frame, err := protocol.AppendReadFrame(nil, reg)
	if err != nil {
		return 0, err
	}
	if err := p.send(frame); err != nil {
		return 0, err
	}

	// Four little-endian value bytes, then the status byte.
	reply := make([]byte, protocol.ValueLen+1)
	if err := p.readFull(reply); err != nil {
		return 0, fmt.Errorf("failed to read reg 0x%02x reply: %w", reg, err)
	}
	value, err := protocol.Value(reply[:protocol.ValueLen])
	if err != nil {
		return 0, fmt.Errorf("read reg 0x%02x: %w", reg, err)
	}

	switch reply[protocol.ValueLen] {
	case protocol.Ack:
		return value, nil
	case protocol.Nak:
		return value, fmt.Errorf("read reg 0x%02x: %w", reg, ErrBusFault)
	default:
		return 0, fmt.Errorf("read reg 0x%02x: unexpected status byte 0x%02x", reg, reply[protocol.ValueLen])
	}
}

func (p *Probe) send(frame []byte) error {
	if !p.connected {
		return fmt.Errorf("not connected to bridge")
	}
	if _, err := p.port.Write(frame); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	return nil
}

// expectStatus reads the single status byte that confirms a command
func (p *Probe) expectStatus(what string) error {
	buf := make([]byte, 1)
	if err := p.readFull(buf); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	switch buf[0] {
	case protocol.Ack:
		return nil
	case protocol.Nak:
		return fmt.Errorf("%s: %w", what, ErrBusFault)
	default:
		return fmt.Errorf("%s: unexpected status byte 0x%02x", what, buf[0])
	}
}

// readFull fills buf, retrying the short reads a serial port timeout
// produces, until ReadTimeout expires.
func (p *Probe) readFull(buf []byte) error {
	deadline := time.Now().Add(p.ReadTimeout)
	got := 0
	for got < len(buf) {
		if !time.Now().Before(deadline) {
			return fmt.Errorf("timed out after %d of %d reply bytes", got, len(buf))
		}
		n, err := p.port.Read(buf[got:])
		if err != nil {
			return err
		}
		got += n
	}
	return nil
}
