package core

// Bridge assembles the wire and the four engines into one synchronous
// design. Tick advances everything in a fixed order chosen so that the
// single-cycle completion pulses are sampled on the very cycle they fire:
// the emitter and decoder run first, then the transactor (which watches
// their Finish pulses), then the dispatcher (which watches Done). Requests
// issued during a tick take effect on the next one, matching the one-cycle
// register latency of the gateware this models.
type Bridge struct {
	Wire       *Wire
	Emitter    *BitEmitter
	Decoder    *BitDecoder
	Transactor *SWIOTransactor
	Dispatcher *CommandDispatcher

	clockHz uint64
	cycles  uint64
}

// NewBridge builds a bridge reading host bytes from link, clocked at
// clockHz. Pass DefaultClockHz for the reference 12MHz design.
func NewBridge(link ByteLink, clockHz uint64) *Bridge {
	wire := NewWire()
	emitter := NewBitEmitter(wire, clockHz)
	decoder := NewBitDecoder(wire, clockHz)
	trans := NewSWIOTransactor(emitter, decoder)
	return &Bridge{
		Wire:       wire,
		Emitter:    emitter,
		Decoder:    decoder,
		Transactor: trans,
		Dispatcher: NewCommandDispatcher(link, trans),
		clockHz:    clockHz,
	}
}

// ClockHz returns the system clock rate the bridge was built for.
func (b *Bridge) ClockHz() uint64 { return b.clockHz }

// Cycles returns the number of system-clock cycles elapsed.
func (b *Bridge) Cycles() uint64 { return b.cycles }

// Tick advances the whole design by one system-clock cycle.
func (b *Bridge) Tick() {
	b.Emitter.Tick()
	b.Decoder.Tick()
	b.Transactor.Tick()
	b.Dispatcher.Tick()
	b.cycles++
}

// Run advances the design by n cycles.
func (b *Bridge) Run(n int) {
	for i := 0; i < n; i++ {
		b.Tick()
	}
}
