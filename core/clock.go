// Package core implements the cycle-accurate protocol engines of the SWIO
// debug bridge: the bit emitter and decoder, the register transactor and the
// Ardulink command dispatcher. All of them are advanced in lockstep, one call
// per system-clock cycle, by the Bridge.
package core

// Rates derived from the system clock. Bus timing is expressed in 8MHz
// equivalent ticks, attach delays in milliseconds.
const (
	BitRateHz   = 8_000_000
	DelayRateHz = 1_000

	// DefaultClockHz is the iCEBreaker system clock the bridge gateware
	// was sized for. Any rate at or above the bit rate works.
	DefaultClockHz = 12_000_000
)

// Accumulator derives a slower tick domain from the system clock by rational
// accumulation: rate is added every cycle and a tick fires each time the
// running sum crosses the system clock rate. The ratio need not be an
// integer; the fraction carries over instead of being rounded away, so the
// derived rate is exact over any interval.
type Accumulator struct {
	rate    uint64
	clockHz uint64
	sum     uint64
}

// NewAccumulator creates a tick source producing rate ticks per second from
// a clockHz system clock. rate must not exceed clockHz.
func NewAccumulator(rate, clockHz uint64) *Accumulator {
	if rate > clockHz {
		panic("core: derived rate exceeds system clock")
	}
	return &Accumulator{rate: rate, clockHz: clockHz}
}

// Tick advances one system-clock cycle and reports whether a derived tick
// fired on this cycle.
func (a *Accumulator) Tick() bool {
	a.sum += a.rate
	if a.sum >= a.clockHz {
		a.sum -= a.clockHz
		return true
	}
	return false
}

// Reset clears the accumulated fraction.
func (a *Accumulator) Reset() {
	a.sum = 0
}
