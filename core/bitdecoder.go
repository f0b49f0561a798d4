package core

// Decoder thresholds in 8MHz-equivalent ticks. A low pulse up to 4T reads
// as a slightly long "1" or slightly short "0" and is taken as 1; anything
// longer is 0. A pulse that reaches 96T without the line returning high is
// a stuck line (a crashed target can leave it low indefinitely).
const (
	decodeOneMaxTicks = 4
	stuckLineTicks    = 96
)

type decoderState uint8

const (
	decoderIdle decoderState = iota
	decoderSetup
	decoderCapture
	decoderClassify
	decoderMark
)

// BitDecoder measures how long the target holds the SWIO line low and
// decodes the pulse into one bit. After the line returns high (or the
// stuck-line threshold is reached) it classifies the pulse, waits out the
// mark period and pulses Finish for one cycle. The error flag stays valid
// alongside Bit until the next Start.
type BitDecoder struct {
	wire    *Wire
	bitClk  *Accumulator
	markClk *Accumulator

	period uint32 // counts up while the line is low
	mark   uint32

	state     decoderState
	bit       bool
	errFlag   bool
	finish    bool
	pendStart bool
}

// NewBitDecoder creates a decoder observing wire, timed against a clockHz
// system clock.
func NewBitDecoder(wire *Wire, clockHz uint64) *BitDecoder {
	return &BitDecoder{
		wire:    wire,
		bitClk:  NewAccumulator(BitRateHz, clockHz),
		markClk: NewAccumulator(BitRateHz, clockHz),
	}
}

// Bit returns the last decoded bit value.
func (d *BitDecoder) Bit() bool { return d.bit }

// Err reports that the last pulse hit the stuck-line threshold.
func (d *BitDecoder) Err() bool { return d.errFlag }

// Finish is true for exactly the one cycle on which the current measurement
// completed.
func (d *BitDecoder) Finish() bool { return d.finish }

// Start requests measurement of the next low pulse. If the line is already
// low the capture begins immediately, otherwise the decoder first waits for
// the falling edge.
func (d *BitDecoder) Start() {
	d.pendStart = true
}

// Tick advances the decoder by one system-clock cycle.
func (d *BitDecoder) Tick() {
	d.finish = false

	low := !d.wire.Level()
	if low && d.bitClk.Tick() {
		d.period++
	}
	if d.mark != 0 && d.markClk.Tick() {
		d.mark--
	}

	switch d.state {
	case decoderIdle:
		if d.pendStart {
			d.pendStart = false
			d.period = 0
			d.errFlag = false
			if low {
				d.state = decoderCapture
			} else {
				d.state = decoderSetup
			}
		}

	case decoderSetup:
		if low {
			d.state = decoderCapture
		}

	case decoderCapture:
		switch {
		case low && d.period >= stuckLineTicks:
			d.errFlag = true
			d.mark = markTicks
			d.state = decoderClassify
		case !low:
			d.mark = markTicks
			d.state = decoderClassify
		}

	case decoderClassify:
		d.bit = d.period <= decodeOneMaxTicks
		d.state = decoderMark

	case decoderMark:
		if d.mark == 0 {
			d.finish = true
			d.state = decoderIdle
		}
	}
}
