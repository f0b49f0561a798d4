package protocol

import (
	"bytes"
	"testing"
)

func TestFifoOrder(t *testing.T) {
	f := NewFifo(8)

	data := []byte{1, 2, 3, 4, 5}
	if n := f.Write(data); n != len(data) {
		t.Fatalf("Write accepted %d bytes, want %d", n, len(data))
	}

	if f.Len() != 5 {
		t.Errorf("Len = %d, want 5", f.Len())
	}

	for i, want := range data {
		b, ok := f.Pop()
		if !ok {
			t.Fatalf("Pop %d failed", i)
		}
		if b != want {
			t.Errorf("Pop %d = %d, want %d", i, b, want)
		}
	}

	if _, ok := f.Pop(); ok {
		t.Error("Pop on empty fifo succeeded")
	}
}

func TestFifoFull(t *testing.T) {
	f := NewFifo(3)

	for i := 0; i < 3; i++ {
		if !f.Push(byte(i)) {
			t.Fatalf("Push %d failed below capacity", i)
		}
	}

	if f.Push(99) {
		t.Error("Push succeeded on full fifo")
	}
	if f.Free() != 0 {
		t.Errorf("Free = %d, want 0", f.Free())
	}

	// Popping one makes room again, and wraparound keeps ordering.
	f.Pop()
	if !f.Push(42) {
		t.Error("Push failed after Pop")
	}

	got := f.Drain()
	if !bytes.Equal(got, []byte{1, 2, 42}) {
		t.Errorf("Drain = %v, want [1 2 42]", got)
	}
}

func TestLinkFifoHandshake(t *testing.T) {
	l := NewLinkFifo(16)

	if l.RecvReady() {
		t.Error("RecvReady true on empty link")
	}
	if !l.SendReady() {
		t.Error("SendReady false on empty link")
	}

	l.HostWrite([]byte{'?', 'p'})

	if !l.RecvReady() {
		t.Fatal("RecvReady false after HostWrite")
	}
	if b := l.RecvData(); b != '?' {
		t.Errorf("RecvData = %c, want ?", b)
	}
	// RecvData must not consume: the dispatcher samples it while deciding.
	if b := l.RecvData(); b != '?' {
		t.Errorf("second RecvData = %c, want ?", b)
	}

	l.RecvDone()
	if b := l.RecvData(); b != 'p' {
		t.Errorf("RecvData after RecvDone = %c, want p", b)
	}
	l.RecvDone()
	if l.RecvReady() {
		t.Error("RecvReady true after consuming everything")
	}

	l.SendStart('!')
	l.SendStart('+')
	if got := l.HostRead(); !bytes.Equal(got, []byte{'!', '+'}) {
		t.Errorf("HostRead = %v, want ['!' '+']", got)
	}
}
