package protocol

// Fifo is a fixed-capacity circular byte queue. It sits between a stream
// transport and the dispatcher's byte handshake on the device side, and is
// also what the simulation harness scripts traffic through.
type Fifo struct {
	buf   []byte
	read  int
	write int
	size  int
}

// NewFifo creates a Fifo holding up to capacity bytes.
func NewFifo(capacity int) *Fifo {
	return &Fifo{
		buf:  make([]byte, capacity+1),
		size: capacity + 1,
	}
}

// Push appends one byte. It reports false if the queue is full.
func (f *Fifo) Push(b byte) bool {
	next := (f.write + 1) % f.size
	if next == f.read {
		return false
	}
	f.buf[f.write] = b
	f.write = next
	return true
}

// Write appends as much of data as fits and returns the number of bytes
// accepted.
func (f *Fifo) Write(data []byte) int {
	written := 0
	for _, b := range data {
		if !f.Push(b) {
			break
		}
		written++
	}
	return written
}

// Peek returns the oldest byte without removing it.
func (f *Fifo) Peek() (byte, bool) {
	if f.read == f.write {
		return 0, false
	}
	return f.buf[f.read], true
}

// Pop removes and returns the oldest byte.
func (f *Fifo) Pop() (byte, bool) {
	b, ok := f.Peek()
	if ok {
		f.read = (f.read + 1) % f.size
	}
	return b, ok
}

// Len returns the number of queued bytes.
func (f *Fifo) Len() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Free returns the remaining capacity.
func (f *Fifo) Free() int {
	return f.size - 1 - f.Len()
}

// Drain removes and returns all queued bytes.
func (f *Fifo) Drain() []byte {
	out := make([]byte, 0, f.Len())
	for {
		b, ok := f.Pop()
		if !ok {
			return out
		}
		out = append(out, b)
	}
}

// Reset clears the queue.
func (f *Fifo) Reset() {
	f.read = 0
	f.write = 0
}

// LinkFifo adapts a pair of byte queues to the dispatcher's receive/send
// handshake. The dispatcher side uses the RecvReady/RecvData/RecvDone and
// SendReady/SendStart methods; the transport (or test harness) feeds the
// receive queue and drains the transmit queue.
type LinkFifo struct {
	rx *Fifo
	tx *Fifo
}

// NewLinkFifo creates a LinkFifo with the given per-direction capacity.
func NewLinkFifo(capacity int) *LinkFifo {
	return &LinkFifo{
		rx: NewFifo(capacity),
		tx: NewFifo(capacity),
	}
}

// RecvReady reports whether a received byte is waiting.
func (l *LinkFifo) RecvReady() bool { return l.rx.Len() > 0 }

// RecvData returns the waiting byte. Only valid while RecvReady is true.
func (l *LinkFifo) RecvData() byte {
	b, _ := l.rx.Peek()
	return b
}

// RecvDone consumes the waiting byte.
func (l *LinkFifo) RecvDone() { l.rx.Pop() }

// SendReady reports whether the transmit queue can accept a byte.
func (l *LinkFifo) SendReady() bool { return l.tx.Free() > 0 }

// SendStart queues one byte for transmission.
func (l *LinkFifo) SendStart(b byte) { l.tx.Push(b) }

// HostWrite feeds bytes into the receive queue, as the serial transport
// would. It returns the number of bytes accepted.
func (l *LinkFifo) HostWrite(data []byte) int { return l.rx.Write(data) }

// HostRead removes and returns everything queued for transmission.
func (l *LinkFifo) HostRead() []byte { return l.tx.Drain() }

// Reset clears both directions.
func (l *LinkFifo) Reset() {
	l.rx.Reset()
	l.tx.Reset()
}
