package core

import "math/bits"

// Op selects the direction of a register transaction.
type Op uint8

const (
	OpRead Op = iota
	OpWrite
)

// Register transactions carry a 7-bit address and a 32-bit value.
const (
	RegisterBits = 7
	RegisterMask = 0x7F
	ValueBits    = 32
)

type transactorState uint8

const (
	swioIdle transactorState = iota
	swioStart
	swioWaitStart
	swioSendRegister
	swioWaitRegisterBit
	swioWaitDirectionBit
	swioReadValue
	swioWaitReadBit
	swioWriteValue
	swioWaitWriteBit
	swioStop
)

// SWIOTransactor sequences one complete register transaction on the bus:
// start marker, 7 address bits MSB first, one direction bit (1 = write),
// then 32 data bits written MSB first or 32 read cycles, then the stop
// marker. Done pulses for one cycle when the transaction completes, with
// DataRead and Fault valid on that same cycle. A second transaction cannot
// begin until the first is done.
type SWIOTransactor struct {
	emitter *BitEmitter
	decoder *BitDecoder

	reg       uint8
	dataWrite uint32
	dataRead  uint32
	fault     bool

	op       Op
	shift    uint32
	bitCount uint
	state    transactorState
	done     bool

	pendRead  bool
	pendWrite bool
}

// NewSWIOTransactor creates a transactor sequencing the given emitter and
// decoder. Both must share the emitter's wire.
func NewSWIOTransactor(emitter *BitEmitter, decoder *BitDecoder) *SWIOTransactor {
	return &SWIOTransactor{emitter: emitter, decoder: decoder}
}

// Ready reports that the bus has completed the attach handshake and a
// transaction may be started.
func (t *SWIOTransactor) Ready() bool { return t.emitter.Ready() }

// Done is true for exactly the one cycle on which the current transaction
// completed.
func (t *SWIOTransactor) Done() bool { return t.done }

// DataRead returns the value reconstructed by the last read transaction.
func (t *SWIOTransactor) DataRead() uint32 { return t.dataRead }

// Fault reports that at least one bit of the last read hit the stuck-line
// threshold. The decoded value is still returned, but cannot be trusted.
func (t *SWIOTransactor) Fault() bool { return t.fault }

// Busy reports that a transaction is in flight.
func (t *SWIOTransactor) Busy() bool { return t.state != swioIdle }

// StartRead requests a read of the given register.
func (t *SWIOTransactor) StartRead(reg uint8) {
	t.reg = reg & RegisterMask
	t.pendRead = true
}

// StartWrite requests a write of data to the given register.
func (t *SWIOTransactor) StartWrite(reg uint8, data uint32) {
	t.reg = reg & RegisterMask
	t.dataWrite = data
	t.pendWrite = true
}

// Tick advances the transactor by one system-clock cycle.
func (t *SWIOTransactor) Tick() {
	t.done = false

	switch t.state {
	case swioIdle:
		switch {
		case t.pendRead:
			t.pendRead = false
			t.op = OpRead
			t.state = swioStart
		case t.pendWrite:
			t.pendWrite = false
			t.op = OpWrite
			t.state = swioStart
		}

	case swioStart:
		// Address goes out MSB first; reversing it once lets the send
		// loop shift from the bottom.
		t.shift = uint32(bits.Reverse8(t.reg) >> 1)
		t.bitCount = 0
		t.fault = false
		t.emitter.Start(true)
		t.state = swioWaitStart

	case swioWaitStart:
		if t.emitter.Finish() {
			t.state = swioSendRegister
		}

	case swioSendRegister:
		if t.bitCount == RegisterBits {
			t.emitter.Start(t.op == OpWrite)
			t.state = swioWaitDirectionBit
		} else {
			t.emitter.Start(t.shift&1 == 1)
			t.shift >>= 1
			t.state = swioWaitRegisterBit
		}

	case swioWaitRegisterBit:
		if t.emitter.Finish() {
			t.bitCount++
			t.state = swioSendRegister
		}

	case swioWaitDirectionBit:
		if t.emitter.Finish() {
			t.bitCount = 0
			if t.op == OpRead {
				t.shift = 0
				t.state = swioReadValue
			} else {
				t.shift = bits.Reverse32(t.dataWrite)
				t.state = swioWriteValue
			}
		}

	case swioReadValue:
		if t.bitCount == ValueBits {
			t.dataRead = t.shift
			t.emitter.Stop()
			t.state = swioStop
		} else {
			t.emitter.TriggerRead()
			t.decoder.Start()
			t.state = swioWaitReadBit
		}

	case swioWaitReadBit:
		if t.decoder.Finish() {
			t.shift <<= 1
			if t.decoder.Bit() {
				t.shift |= 1
			}
			if t.decoder.Err() {
				t.fault = true
			}
			t.bitCount++
			t.state = swioReadValue
		}

	case swioWriteValue:
		if t.bitCount == ValueBits {
			t.emitter.Stop()
			t.state = swioStop
		} else {
			t.emitter.Start(t.shift&1 == 1)
			t.shift >>= 1
			t.state = swioWaitWriteBit
		}

	case swioWaitWriteBit:
		if t.emitter.Finish() {
			t.bitCount++
			t.state = swioWriteValue
		}

	case swioStop:
		if t.emitter.Finish() {
			t.done = true
			t.state = swioIdle
		}
	}
}
