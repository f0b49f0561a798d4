//go:build rp2040

package main

import (
	"errors"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// SWIO bus timing in 8MHz ticks, matching the gateware bridge
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

var errStuckLine = errors.New("swio line stuck low")

// PIO program for SWIO bit emission, open drain via pindirs.
// Command word format:
//
//	Bits 0-15:  space ticks (0 = stop marker, no low phase)
//	Bits 16-31: mark ticks (idle time after release)
//
// Each loop iteration is one SM cycle, so the SM clock is the tick rate.
var swioEmitProgram = []uint16{
	// .wrap_target
	0x80A0, // 0: pull block
	0x6030, // 1: out x, 16 (space ticks)
	0x6050, // 2: out y, 16 (mark ticks)
	0x0026, // 3: jmp !x, 6 (no space: straight to release)
	0xE081, // 4: set pindirs, 1 (drive low)
	// space_loop:
	0x0045, // 5: jmp x--, 5
	0xE080, // 6: set pindirs, 0 (release to the pull-up)
	// mark_loop:
	0x0087, // 7: jmp y--, 7
	// .wrap
}

// buildCaptureProgram encodes the low-pulse measurement program for the
// given GPIO. The CPU arms each measurement with a timeout count; the SM
// waits for the falling edge, counts down while the line stays low and
// pushes the remainder. Each count iteration is two SM cycles, so this SM
// runs at twice the tick rate. Jump targets are absolute, so the program
// must load at captureProgramOrigin.
func buildCaptureProgram(pin machine.Pin) []uint16 {
	return []uint16{
		// .wrap_target
		0x80A0,                  // 8: pull block
		0x6020,                  // 9: out x, 32 (timeout ticks)
		0x2000 | uint16(pin)&31, // 10: wait 0 gpio <pin>
		// low_loop:
		0x00CD, // 11: jmp pin, 13 (line back high: done)
		0x004B, // 12: jmp x--, 11
		0xA0C1, // 13: mov isr, x
		0x8020, // 14: push block
		// .wrap
	}
}

// Load offsets are fixed so the absolute jump addresses hold
const (
	emitProgramOrigin    = 0
	captureProgramOrigin = 8
)

// SWIOBus drives the single-wire bus from two PIO state machines: one
// emitting the spaces and marks, one timing how long the target holds the
// line low during read slots.
type SWIOBus struct {
	pio     *rp2pio.PIO
	emit    rp2pio.StateMachine
	capture rp2pio.StateMachine
	pin     machine.Pin
}

// NewSWIOBus creates a bus driver on the given PIO block and pin
func NewSWIOBus(pioNum uint8, pin machine.Pin) *SWIOBus {
	var pioHW *rp2pio.PIO
	if pioNum == 0 {
		pioHW = rp2pio.PIO0
	} else {
		pioHW = rp2pio.PIO1
	}

	return &SWIOBus{
		pio:     pioHW,
		emit:    pioHW.StateMachine(0),
		capture: pioHW.StateMachine(1),
		pin:     pin,
	}
}

// Init loads both PIO programs and starts the state machines. The pin must
// already have completed the attach handshake.
func (b *SWIOBus) Init() error {
	b.emit.TryClaim()
	b.capture.TryClaim()

	emitOffset, err := b.pio.AddProgram(swioEmitProgram, emitProgramOrigin)
	if err != nil {
		return err
	}

	captureProgram := buildCaptureProgram(b.pin)
	captureOffset, err := b.pio.AddProgram(captureProgram, captureProgramOrigin)
	if err != nil {
		return err
	}

	b.pin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})

	// Emit SM: SET controls pindirs for the open-drain drive. One SM cycle
	// per tick: 125MHz / 8MHz.
	emitCfg := rp2pio.DefaultStateMachineConfig()
	emitCfg.SetSetPins(b.pin, 1)
	emitCfg.SetOutShift(true, false, 32)
	emitCfg.SetWrap(emitOffset+uint8(len(swioEmitProgram))-1, emitOffset)
	emitCfg.SetClkDivIntFrac(15, 160)

	b.emit.Init(emitOffset, emitCfg)

	// Output level stays low; driving is done by flipping the direction.
	b.emit.SetPinsConsecutive(b.pin, 1, false)
	b.emit.SetPindirsConsecutive(b.pin, 1, false)

	// Capture SM: two SM cycles per count iteration, so double the tick
	// rate: 125MHz / 16MHz.
	captureCfg := rp2pio.DefaultStateMachineConfig()
	captureCfg.SetOutShift(true, false, 32)
	captureCfg.SetJmpPin(b.pin)
	captureCfg.SetWrap(captureOffset+uint8(len(captureProgram))-1, captureOffset)
	captureCfg.SetClkDivIntFrac(7, 208)

	b.capture.Init(captureOffset, captureCfg)

	b.emit.SetEnabled(true)
	b.capture.SetEnabled(true)

	return nil
}

// WriteReg writes a 32-bit value to a debug register
func (b *SWIOBus) WriteReg(reg uint8, value uint32) error {
	b.header(reg, true)
	for i := valueBits - 1; i >= 0; i-- {
		b.sendBit(value>>uint(i)&1 == 1)
	}
	b.stop()
	return nil
}

// ReadReg reads a 32-bit value from a debug register. A stuck line still
// returns the bits decoded so far alongside errStuckLine.
func (b *SWIOBus) ReadReg(reg uint8) (uint32, error) {
	b.header(reg, false)

	var value uint32
	var fault bool
	for i := 0; i < valueBits; i++ {
		bit, err := b.readBit()
		if err != nil {
			fault = true
		}
		value <<= 1
		if bit {
			value |= 1
		}
	}
	b.stop()

	if fault {
		return value, errStuckLine
	}
	return value, nil
}

// header sends the start bit, the 7 address bits MSB first and the
// direction bit.
func (b *SWIOBus) header(reg uint8, write bool) {
	reg &= registerMask
	b.sendBit(true)
	for i := registerBits - 1; i >= 0; i-- {
		b.sendBit(reg>>uint(i)&1 == 1)
	}
	b.sendBit(write)
}

func (b *SWIOBus) sendBit(bit bool) {
	space := uint32(spaceZeroTicks)
	if bit {
		space = spaceOneTicks
	}
	b.emitPut(space | markTicks<<16)
}

// readBit emits the short trigger space and measures the resulting low
// period with the capture state machine.
func (b *SWIOBus) readBit() (bool, error) {
	// Arm the capture before the trigger so the falling edge is never
	// missed. The capture SM reaches its wait within two ticks while the
	// emit SM needs four to start driving.
	b.capture.TxPut(stuckTicks)
	b.emitPut(spaceOneTicks | markTicks<<16)

	// The capture always pushes: either the line came back high or the
	// timeout ran out.
	for b.capture.IsRxFIFOEmpty() {
	}
	remaining := b.capture.RxGet()
	elapsed := stuckTicks - remaining
	if remaining == 0 {
		return false, errStuckLine
	}
	return elapsed <= guardTicks, nil
}

// stop emits the end-of-transaction idle period
func (b *SWIOBus) stop() {
	b.emitPut(0 | stopTicks<<16)
}

func (b *SWIOBus) emitPut(cmd uint32) {
	for b.emit.IsTxFIFOFull() {
		// Busy wait - the FIFO drains at bus speed
	}
	b.emit.TxPut(cmd)
}
