//go:build rp2040

package main

import (
	"machine"
	"time"

	"swiolink/protocol"
)

// Board wiring
const (
	swioPin  = machine.Pin(28) // single-wire debug line, external pull-up
	powerPin = machine.Pin(6)  // target power switch, active high
)

var bus *SWIOBus

func main() {
	powerPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	powerPin.Low()

	// Attach handshake under CPU control, then hand the pin to the PIO.
	attach()

	bus = NewSWIOBus(0, swioPin)
	if err := bus.Init(); err != nil {
		// Nothing sensible to report without a working bus; flag the
		// failure by never greeting the host.
		for {
			time.Sleep(time.Second)
		}
	}

	machine.Serial.WriteByte(protocol.Greeting)

	for {
		dispatch(readByte())
	}
}

// attach drives the wake sequence: 5ms high, 20ms low, then release
func attach() {
	swioPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	swioPin.High()
	time.Sleep(5 * time.Millisecond)
	swioPin.Low()
	time.Sleep(20 * time.Millisecond)
	swioPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
}

// dispatch executes one host command. Unknown bytes are dropped without a
// reply.
func dispatch(cmd byte) {
	switch cmd {
	case protocol.CmdTest:
		machine.Serial.WriteByte(protocol.Ack)

	case protocol.CmdPowerOn:
		powerPin.High()
		machine.Serial.WriteByte(protocol.Ack)

	case protocol.CmdPowerOff:
		powerPin.Low()
		machine.Serial.WriteByte(protocol.Ack)

	case protocol.CmdWriteReg:
		reg := readByte() & registerMask
		var value uint32
		for i := 0; i < protocol.ValueLen; i++ {
			value |= uint32(readByte()) << (8 * i)
		}
		bus.WriteReg(reg, value)
		machine.Serial.WriteByte(protocol.Ack)

	case protocol.CmdReadReg:
		reg := readByte() & registerMask
		value, err := bus.ReadReg(reg)
		for i := 0; i < protocol.ValueLen; i++ {
			machine.Serial.WriteByte(byte(value >> (8 * i)))
		}
		if err != nil {
			machine.Serial.WriteByte(protocol.Nak)
		} else {
			machine.Serial.WriteByte(protocol.Ack)
		}
	}
}

// readByte blocks until the next host byte arrives
func readByte() byte {
	for {
		b, err := machine.Serial.ReadByte()
		if err == nil {
			return b
		}
		time.Sleep(100 * time.Microsecond)
	}
}
