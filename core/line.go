package core

// LineState is the bridge's hold on the shared single-wire bus. Exactly one
// of the three applies at any instant, and only the BitEmitter ever changes
// it; the BitDecoder and the target merely observe or pull.
type LineState uint8

const (
	// Released leaves the line to the external pull-up (or to the target
	// pulling it low).
	Released LineState = iota
	// DrivingLow actively holds the line low.
	DrivingLow
	// DrivingHigh actively holds the line high. Only used during the
	// attach handshake.
	DrivingHigh
)

func (s LineState) String() string {
	switch s {
	case Released:
		return "released"
	case DrivingLow:
		return "driving-low"
	case DrivingHigh:
		return "driving-high"
	}
	return "invalid"
}

// Wire models the shared SWIO line: the bridge-side drive, an optional
// target-side pull-down and the board pull-up that wins when nobody is
// driving.
type Wire struct {
	drive LineState
	pull  bool
}

// NewWire creates an idle, released wire.
func NewWire() *Wire {
	return &Wire{}
}

// Drive sets the bridge-side line state.
func (w *Wire) Drive(s LineState) {
	w.drive = s
}

// DriveState returns the bridge-side line state.
func (w *Wire) DriveState() LineState {
	return w.drive
}

// PullLow is the target side of the bus: while on, the target holds the
// line low whenever the bridge is not driving it.
func (w *Wire) PullLow(on bool) {
	w.pull = on
}

// Level resolves the electrical level of the line: an active drive wins,
// otherwise the target pull-down, otherwise the pull-up.
func (w *Wire) Level() bool {
	switch w.drive {
	case DrivingLow:
		return false
	case DrivingHigh:
		return true
	}
	return !w.pull
}
