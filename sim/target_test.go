package sim

import (
	"bytes"
	"testing"

	"swiolink/core"
	"swiolink/protocol"
)

const attachCycles = 25 * core.DefaultClockHz / 1000

type rig struct {
	link   *protocol.LinkFifo
	bridge *core.Bridge
	target *Target
}

func newRig(t *testing.T) *rig {
	t.Helper()
	link := protocol.NewLinkFifo(64)
	bridge := core.NewBridge(link, core.DefaultClockHz)
	r := &rig{
		link:   link,
		bridge: bridge,
		target: NewTarget(bridge.Wire, core.DefaultClockHz),
	}

	r.run(attachCycles + 100)
	if got := link.HostRead(); !bytes.Equal(got, []byte{protocol.Greeting}) {
		t.Fatalf("greeting = % x, want %q", got, protocol.Greeting)
	}
	return r
}

func (r *rig) run(cycles int) {
	for i := 0; i < cycles; i++ {
		r.bridge.Tick()
		r.target.Tick()
	}
}

// command feeds bytes to the bridge and returns everything it sent back
// within the given cycle budget.
func (r *rig) command(cycles int, in ...byte) []byte {
	r.link.HostWrite(in)
	r.run(cycles)
	return r.link.HostRead()
}

func TestBridgeWritesTargetRegister(t *testing.T) {
	r := newRig(t)

	frame, err := protocol.AppendWriteFrame(nil, 0x7a, 0x55aaca15)
	if err != nil {
		t.Fatal(err)
	}
	got := r.command(100_000, frame...)
	if !bytes.Equal(got, []byte{protocol.Ack}) {
		t.Fatalf("write reply = % x, want %q", got, protocol.Ack)
	}

	if v := r.target.Register(0x7a); v != 0x55aaca15 {
		t.Errorf("register 0x7a = 0x%08x, want 0x55aaca15", v)
	}
	if r.target.Writes() != 1 {
		t.Errorf("target saw %d writes, want 1", r.target.Writes())
	}
}

func TestBridgeReadsTargetRegister(t *testing.T) {
	r := newRig(t)
	r.target.SetRegister(0x35, 0xfeedaa55)

	frame, err := protocol.AppendReadFrame(nil, 0x35)
	if err != nil {
		t.Fatal(err)
	}
	got := r.command(100_000, frame...)
	want := []byte{0x55, 0xaa, 0xed, 0xfe, protocol.Ack}
	if !bytes.Equal(got, want) {
		t.Errorf("read reply = % x, want % x", got, want)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	r := newRig(t)

	testCases := []struct {
		reg   uint8
		value uint32
	}{
		{0x00, 0x00000000},
		{0x00, 0xffffffff},
		{0x10, 0x12345678},
		{0x7f, 0x80000001},
		{0x52, 0xdeadbeef},
	}

	for _, tc := range testCases {
		frame, err := protocol.AppendWriteFrame(nil, tc.reg, tc.value)
		if err != nil {
			t.Fatal(err)
		}
		if got := r.command(100_000, frame...); !bytes.Equal(got, []byte{protocol.Ack}) {
			t.Fatalf("write 0x%02x reply = % x", tc.reg, got)
		}

		frame, err = protocol.AppendReadFrame(nil, tc.reg)
		if err != nil {
			t.Fatal(err)
		}
		got := r.command(100_000, frame...)
		if len(got) != protocol.ValueLen+1 || got[protocol.ValueLen] != protocol.Ack {
			t.Fatalf("read 0x%02x reply = % x", tc.reg, got)
		}
		v, err := protocol.Value(got[:protocol.ValueLen])
		if err != nil {
			t.Fatal(err)
		}
		if v != tc.value {
			t.Errorf("read 0x%02x = 0x%08x, want 0x%08x", tc.reg, v, tc.value)
		}
	}
}

func TestStuckLineReportsFault(t *testing.T) {
	r := newRig(t)
	r.target.StuckLow = true

	// The read still terminates: every bit hits the stuck-line threshold,
	// decodes as 0, and the bridge naks instead of acking.
	frame, err := protocol.AppendReadFrame(nil, 0x01)
	if err != nil {
		t.Fatal(err)
	}
	got := r.command(200_000, frame...)
	want := []byte{0x00, 0x00, 0x00, 0x00, protocol.Nak}
	if !bytes.Equal(got, want) {
		t.Errorf("stuck read reply = % x, want % x", got, want)
	}

	// The dispatcher is not wedged: commands that stay off the wire still
	// get served while the target holds the line.
	if got := r.command(1000, protocol.CmdTest); !bytes.Equal(got, []byte{protocol.Ack}) {
		t.Errorf("self-test after fault reply = % x, want %q", got, protocol.Ack)
	}
}

func TestWriteOverwritesPriorValue(t *testing.T) {
	r := newRig(t)
	r.target.SetRegister(0x20, 0x11111111)

	frame, err := protocol.AppendWriteFrame(nil, 0x20, 0x22222222)
	if err != nil {
		t.Fatal(err)
	}
	if got := r.command(100_000, frame...); !bytes.Equal(got, []byte{protocol.Ack}) {
		t.Fatalf("write reply = % x", got)
	}
	if v := r.target.Register(0x20); v != 0x22222222 {
		t.Errorf("register 0x20 = 0x%08x, want 0x22222222", v)
	}
}
