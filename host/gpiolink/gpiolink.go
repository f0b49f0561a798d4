// Package gpiolink drives the SWIO bus directly from a host GPIO pin, for
// single-board computers wired straight to the target with no bridge in
// between. The encoding matches the bridge's, scaled to a tick period a
// userspace GPIO can actually hold.
package gpiolink

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// ErrStuckLine is returned when the target holds the line low past the
// stuck-line threshold during a read.
var ErrStuckLine = errors.New("swio line stuck low")

const (
	spaceOneTicks  = 2
	spaceZeroTicks = 8
	markTicks      = 4
	stopTicks      = 20
	guardTicks     = 4
	stuckTicks     = 96

	registerBits = 7
	registerMask = 0x7F
	valueBits    = 32
)

// Config holds the GPIO link configuration
type Config struct {
	// Pin name as known to the gpio registry (e.g. "GPIO17")
	Pin string

	// TickPeriod is the duration of one protocol tick. The bridge runs
	// 125ns ticks; userspace GPIO needs something far slower.
	TickPeriod time.Duration
}

// DefaultConfig returns a configuration for the named pin
func DefaultConfig(pin string) *Config {
	return &Config{
		Pin:        pin,
		TickPeriod: 10 * time.Microsecond,
	}
}

// Link is a bit-banged SWIO master on one GPIO pin
type Link struct {
	pin  gpio.PinIO
	tick time.Duration
}

// Open initializes the host GPIO drivers and claims the configured pin
func Open(cfg *Config) (*Link, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize gpio drivers: %w", err)
	}
	pin := gpioreg.ByName(cfg.Pin)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %q not found", cfg.Pin)
	}
	return NewLink(pin, cfg.TickPeriod), nil
}

// NewLink wraps an already resolved pin
func NewLink(pin gpio.PinIO, tick time.Duration) *Link {
	return &Link{pin: pin, tick: tick}
}

// Attach runs the bus attach handshake: 5ms driven high, 20ms driven low,
// then the line is released to its pull-up.
func (l *Link) Attach() error {
	if err := l.pin.Out(gpio.High); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := l.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	time.Sleep(20 * time.Millisecond)
	return l.release()
}

// WriteReg writes a 32-bit value to a debug register
func (l *Link) WriteReg(reg uint8, value uint32) error {
	if err := l.header(reg, true); err != nil {
		return err
	}
	for i := valueBits - 1; i >= 0; i-- {
		if err := l.sendBit(value>>uint(i)&1 == 1); err != nil {
			return err
		}
	}
	return l.stop()
}

// ReadReg reads a 32-bit value from a debug register
func (l *Link) ReadReg(reg uint8) (uint32, error) {
	if err := l.header(reg, false); err != nil {
		return 0, err
	}
	var value uint32
	for i := 0; i < valueBits; i++ {
		bit, err := l.readBit()
		if err != nil {
			return value, err
		}
		value <<= 1
		if bit {
			value |= 1
		}
	}
	return value, l.stop()
}

// header sends the start bit, the 7 address bits MSB first and the
// direction bit.
func (l *Link) header(reg uint8, write bool) error {
	reg &= registerMask
	if err := l.sendBit(true); err != nil {
		return err
	}
	for i := registerBits - 1; i >= 0; i-- {
		if err := l.sendBit(reg>>uint(i)&1 == 1); err != nil {
			return err
		}
	}
	return l.sendBit(write)
}

func (l *Link) sendBit(bit bool) error {
	space := spaceZeroTicks
	if bit {
		space = spaceOneTicks
	}
	if err := l.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("send bit: %w", err)
	}
	time.Sleep(time.Duration(space) * l.tick)
	if err := l.release(); err != nil {
		return err
	}
	time.Sleep(markTicks * l.tick)
	return nil
}

// readBit emits the short trigger space and measures how long the target
// stretches the low period.
func (l *Link) readBit() (bool, error) {
	start := time.Now()
	if err := l.pin.Out(gpio.Low); err != nil {
		return false, fmt.Errorf("read bit: %w", err)
	}
	time.Sleep(spaceOneTicks * l.tick)
	if err := l.release(); err != nil {
		return false, err
	}

	deadline := start.Add(stuckTicks * l.tick)
	for l.pin.Read() == gpio.Low {
		if time.Now().After(deadline) {
			return false, ErrStuckLine
		}
	}
	low := time.Since(start)
	time.Sleep(markTicks * l.tick)
	return low <= guardTicks*l.tick, nil
}

func (l *Link) stop() error {
	time.Sleep(stopTicks * l.tick)
	return nil
}

func (l *Link) release() error {
	if err := l.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("failed to release line: %w", err)
	}
	return nil
}
