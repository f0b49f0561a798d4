package core

import "testing"

// pulseRecorder watches the wire and measures every low pulse in
// 8MHz-equivalent ticks, the same way a target would.
type pulseRecorder struct {
	wire   *Wire
	clk    *Accumulator
	low    bool
	run    int
	pulses []int
}

func newPulseRecorder(wire *Wire, clockHz uint64) *pulseRecorder {
	return &pulseRecorder{wire: wire, clk: NewAccumulator(BitRateHz, clockHz)}
}

func (r *pulseRecorder) Tick() {
	level := r.wire.Level()
	if !level && r.clk.Tick() {
		r.run++
	}
	if level && r.low {
		r.pulses = append(r.pulses, r.run)
		r.run = 0
	}
	r.low = !level
}

// bits decodes the recorded pulses with the emitter's encoding.
func (r *pulseRecorder) bits() []bool {
	out := make([]bool, len(r.pulses))
	for i, p := range r.pulses {
		out[i] = p <= decodeOneMaxTicks
	}
	return out
}

type transactorRig struct {
	wire    *Wire
	emitter *BitEmitter
	decoder *BitDecoder
	trans   *SWIOTransactor
	rec     *pulseRecorder
}

func newTransactorRig(t *testing.T) *transactorRig {
	t.Helper()
	wire := NewWire()
	emitter := NewBitEmitter(wire, DefaultClockHz)
	decoder := NewBitDecoder(wire, DefaultClockHz)
	rig := &transactorRig{
		wire:    wire,
		emitter: emitter,
		decoder: decoder,
		trans:   NewSWIOTransactor(emitter, decoder),
		rec:     newPulseRecorder(wire, DefaultClockHz),
	}
	for i := 0; i < 500_000 && !rig.trans.Ready(); i++ {
		rig.tick()
	}
	if !rig.trans.Ready() {
		t.Fatal("transactor never became ready")
	}
	rig.rec.pulses = nil // discard the attach low phase
	rig.rec.run = 0
	return rig
}

func (r *transactorRig) tick() {
	r.emitter.Tick()
	r.decoder.Tick()
	r.trans.Tick()
	r.rec.Tick()
}

func (r *transactorRig) runToDone(t *testing.T) {
	t.Helper()
	for i := 0; i < 200_000; i++ {
		r.tick()
		if r.trans.Done() {
			return
		}
	}
	t.Fatal("transaction never completed")
}

// wireBits is the expected on-wire sequence for a transaction: start bit,
// 7 address bits MSB first, the direction bit, then for writes 32 data bits
// MSB first.
func wireBits(reg uint8, write bool, data uint32, withData bool) []bool {
	out := []bool{true}
	for i := RegisterBits - 1; i >= 0; i-- {
		out = append(out, reg>>uint(i)&1 == 1)
	}
	out = append(out, write)
	if withData {
		for i := ValueBits - 1; i >= 0; i-- {
			out = append(out, data>>uint(i)&1 == 1)
		}
	}
	return out
}

func TestTransactorWriteSequence(t *testing.T) {
	rig := newTransactorRig(t)

	const reg = 0x7a
	const data = 0x55aaca15
	rig.trans.StartWrite(reg, data)
	rig.runToDone(t)

	want := wireBits(reg, true, data, true)
	got := rig.rec.bits()
	if len(got) != len(want) {
		t.Fatalf("emitted %d pulses, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("wire bit %d = %v, want %v (pulse %d ticks)", i, got[i], want[i], rig.rec.pulses[i])
		}
	}

	if rig.wire.DriveState() != Released {
		t.Errorf("line %v after transaction, want released", rig.wire.DriveState())
	}
	if rig.trans.Fault() {
		t.Error("write transaction reported a fault")
	}
}

func TestTransactorReadSequence(t *testing.T) {
	rig := newTransactorRig(t)

	// With no target on the wire every trigger pulse reads back as the
	// bare 2-tick space, so the reconstructed value is all ones.
	const reg = 0x35
	rig.trans.StartRead(reg)
	rig.runToDone(t)

	header := wireBits(reg, false, 0, false)
	got := rig.rec.bits()
	// Header pulses plus 32 trigger pulses.
	if len(got) != len(header)+ValueBits {
		t.Fatalf("emitted %d pulses, want %d", len(got), len(header)+ValueBits)
	}
	for i := range header {
		if got[i] != header[i] {
			t.Errorf("wire bit %d = %v, want %v", i, got[i], header[i])
		}
	}
	for i := len(header); i < len(got); i++ {
		if !got[i] {
			t.Errorf("trigger pulse %d read as 0", i-len(header))
		}
	}

	if rig.trans.DataRead() != 0xffffffff {
		t.Errorf("DataRead = 0x%08x, want 0xffffffff", rig.trans.DataRead())
	}
	if rig.trans.Fault() {
		t.Error("read without target reported a fault")
	}
}

func TestTransactorDonePulse(t *testing.T) {
	rig := newTransactorRig(t)

	rig.trans.StartWrite(0x01, 0xdeadbeef)
	done := 0
	for i := 0; i < 200_000; i++ {
		rig.tick()
		if rig.trans.Done() {
			done++
		}
	}
	if done != 1 {
		t.Errorf("done pulsed %d cycles, want 1", done)
	}
}

func TestTransactorBusy(t *testing.T) {
	rig := newTransactorRig(t)

	if rig.trans.Busy() {
		t.Error("transactor busy while idle")
	}
	rig.trans.StartWrite(0x10, 1)
	rig.tick()
	if !rig.trans.Busy() {
		t.Error("transactor not busy after start")
	}
	rig.runToDone(t)
	rig.tick()
	if rig.trans.Busy() {
		t.Error("transactor busy after done")
	}
}

func TestTransactorMasksRegister(t *testing.T) {
	rig := newTransactorRig(t)

	// An 8-bit register value is truncated to the 7-bit address field.
	rig.trans.StartWrite(0xfa, 0)
	rig.runToDone(t)

	want := wireBits(0x7a, true, 0, true)
	got := rig.rec.bits()
	for i := 0; i < RegisterBits+1 && i < len(got); i++ {
		if got[i] != want[i] {
			t.Errorf("wire bit %d = %v, want %v", i, got[i], want[i])
		}
	}
}
