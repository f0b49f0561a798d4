// Package sim provides a wire-level model of a SWIO target device for
// exercising the bridge without hardware. The target decodes the bridge's
// pulses with the same timing rules the real silicon uses and answers read
// transactions from a 128-entry register file.
package sim

import "swiolink/core"

const (
	decodeOneMax   = 4
	spaceZeroTicks = 8
	registerCount  = 128

	// Anything this long is the attach low phase, not a data pulse.
	attachLowMin = 1000
)

type phase uint8

const (
	phaseAttach phase = iota
	phaseStart
	phaseHeader
	phaseWrite
	phaseRead
)

// Target is a simulated SWIO device sharing the bridge's wire. Tick it once
// per system-clock cycle, after the bridge. It measures every low pulse in
// 8MHz-equivalent ticks, frames pulses into transactions and, during read
// slots, stretches the bridge's trigger pulse to the "0" space time for
// each zero bit of the response.
type Target struct {
	wire *core.Wire
	clk  *core.Accumulator

	regs [registerCount]uint32

	phase    phase
	bitCount int
	shift    uint32
	header   uint16
	reg      uint8

	prevLevel bool
	lowRun    int
	driving   bool

	readBits uint32
	readIdx  int

	// StuckLow makes the target grab the line on every read slot and
	// never let go, as a crashed part would.
	StuckLow bool

	writes int
}

// NewTarget creates a target listening on wire with timing derived from a
// clockHz system clock.
func NewTarget(wire *core.Wire, clockHz uint64) *Target {
	return &Target{
		wire:      wire,
		clk:       core.NewAccumulator(core.BitRateHz, clockHz),
		prevLevel: true,
	}
}

// Register returns the current value of a register.
func (t *Target) Register(reg uint8) uint32 {
	return t.regs[reg%registerCount]
}

// SetRegister preloads a register value.
func (t *Target) SetRegister(reg uint8, value uint32) {
	t.regs[reg%registerCount] = value
}

// Writes returns the number of write transactions committed.
func (t *Target) Writes() int { return t.writes }

// Tick advances the target by one system-clock cycle.
func (t *Target) Tick() {
	level := t.wire.Level()
	falling := t.prevLevel && !level
	rising := !t.prevLevel && level
	t.prevLevel = level

	if falling {
		t.lowRun = 0
	}
	if !level && t.clk.Tick() {
		t.lowRun++
	}

	if t.phase == phaseRead {
		if falling {
			bit := t.readBits>>uint(31-t.readIdx)&1 == 1
			if !bit || t.StuckLow {
				t.wire.PullLow(true)
				t.driving = true
			}
		}
		if t.driving && !t.StuckLow && t.lowRun >= spaceZeroTicks {
			t.wire.PullLow(false)
			t.driving = false
		}
	}

	if rising {
		t.pulse(t.lowRun)
	}
}

// pulse consumes one measured low pulse and advances the frame tracking.
func (t *Target) pulse(ticks int) {
	bit := ticks <= decodeOneMax

	switch t.phase {
	case phaseAttach:
		if ticks >= attachLowMin {
			t.phase = phaseStart
		}

	case phaseStart:
		// Start marker: arm for the address and direction bits.
		t.header = 0
		t.bitCount = 0
		t.phase = phaseHeader

	case phaseHeader:
		t.header <<= 1
		if bit {
			t.header |= 1
		}
		t.bitCount++
		if t.bitCount == core.RegisterBits+1 {
			t.reg = uint8(t.header>>1) & core.RegisterMask
			if t.header&1 == 1 {
				t.shift = 0
				t.bitCount = 0
				t.phase = phaseWrite
			} else {
				t.readBits = t.regs[t.reg]
				t.readIdx = 0
				t.phase = phaseRead
			}
		}

	case phaseWrite:
		t.shift <<= 1
		if bit {
			t.shift |= 1
		}
		t.bitCount++
		if t.bitCount == core.ValueBits {
			t.regs[t.reg] = t.shift
			t.writes++
			t.phase = phaseStart
		}

	case phaseRead:
		t.readIdx++
		if t.readIdx == core.ValueBits {
			t.phase = phaseStart
		}
	}
}
