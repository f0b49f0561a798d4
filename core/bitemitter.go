package core

// SWIO bit timing in 8MHz-equivalent ticks. Bits are space-then-mark: the
// line idles high, a bit starts with a low space whose length encodes the
// value, followed by a fixed released mark.
const (
	spaceOneTicks  = 2
	spaceZeroTicks = 8
	markTicks      = 4
	stopTicks      = 20

	attachHighMs = 5
	attachLowMs  = 20
)

type emitterState uint8

const (
	emitterReset emitterState = iota
	emitterAttachHigh
	emitterAttachLow
	emitterIdle
	emitterSpace
	emitterMark
	emitterTriggerSpace
	emitterStopIdle
)

// BitEmitter drives the SWIO line to transmit one timed bit, a start marker
// or a stop marker per request. At power-up it first runs the attach
// handshake (5ms driven high, 20ms driven low, then released) and only then
// reports Ready. Finish is a single-cycle pulse at the end of each request.
type BitEmitter struct {
	wire   *Wire
	bitClk *Accumulator
	msClk  *Accumulator

	period  uint32 // remaining bit-rate ticks in the current phase
	delayMs uint32 // remaining milliseconds in the current attach phase

	state  emitterState
	ready  bool
	finish bool

	pendBit     bool
	bitValue    bool
	pendStop    bool
	pendTrigger bool
}

// NewBitEmitter creates an emitter on wire, timed against a clockHz system
// clock. It starts in the attach handshake.
func NewBitEmitter(wire *Wire, clockHz uint64) *BitEmitter {
	return &BitEmitter{
		wire:   wire,
		bitClk: NewAccumulator(BitRateHz, clockHz),
		msClk:  NewAccumulator(DelayRateHz, clockHz),
	}
}

// Ready reports that the attach handshake has completed and bit requests
// are accepted.
func (e *BitEmitter) Ready() bool { return e.ready }

// Finish is true for exactly the one cycle on which the current request
// completed.
func (e *BitEmitter) Finish() bool { return e.finish }

// Start requests emission of one bit. The start marker is a plain "1" bit.
func (e *BitEmitter) Start(bit bool) {
	e.pendBit = true
	e.bitValue = bit
}

// Stop requests the stop marker: the line held released for the stop idle
// period.
func (e *BitEmitter) Stop() {
	e.pendStop = true
}

// TriggerRead requests a read trigger: the "1" space driven low, then the
// line released immediately with no mark wait, leaving the target free to
// stretch the low pulse. The decoder times the result.
func (e *BitEmitter) TriggerRead() {
	e.pendTrigger = true
}

// Tick advances the emitter by one system-clock cycle.
func (e *BitEmitter) Tick() {
	e.finish = false

	if e.delayMs != 0 && e.msClk.Tick() {
		e.delayMs--
	}
	if e.period != 0 && e.bitClk.Tick() {
		e.period--
	}

	switch e.state {
	case emitterReset:
		e.wire.Drive(DrivingHigh)
		e.delayMs = attachHighMs
		e.state = emitterAttachHigh

	case emitterAttachHigh:
		if e.delayMs == 0 {
			e.wire.Drive(DrivingLow)
			e.delayMs = attachLowMs
			e.state = emitterAttachLow
		}

	case emitterAttachLow:
		if e.delayMs == 0 {
			e.wire.Drive(Released)
			e.ready = true
			e.state = emitterIdle
		}

	case emitterIdle:
		switch {
		case e.pendBit:
			e.pendBit = false
			if e.bitValue {
				e.period = spaceOneTicks
			} else {
				e.period = spaceZeroTicks
			}
			e.wire.Drive(DrivingLow)
			e.state = emitterSpace
		case e.pendTrigger:
			e.pendTrigger = false
			e.period = spaceOneTicks
			e.wire.Drive(DrivingLow)
			e.state = emitterTriggerSpace
		case e.pendStop:
			e.pendStop = false
			e.period = stopTicks
			e.state = emitterStopIdle
		}

	case emitterSpace:
		if e.period == 0 {
			e.period = markTicks
			e.wire.Drive(Released)
			e.state = emitterMark
		}

	case emitterMark:
		if e.period == 0 {
			e.finish = true
			e.state = emitterIdle
		}

	case emitterTriggerSpace:
		if e.period == 0 {
			e.wire.Drive(Released)
			e.finish = true
			e.state = emitterIdle
		}

	case emitterStopIdle:
		if e.period == 0 {
			e.finish = true
			e.state = emitterIdle
		}
	}
}
