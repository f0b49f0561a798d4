package core

import "swiolink/protocol"

// ByteLink is the handshake the dispatcher consumes bytes through. The
// serial transport behind it is not the dispatcher's concern; the protocol
// package provides a FIFO-backed implementation.
type ByteLink interface {
	// RecvReady reports that a received byte is waiting in RecvData.
	RecvReady() bool
	// RecvData returns the waiting byte. Valid only while RecvReady.
	RecvData() byte
	// RecvDone consumes the waiting byte.
	RecvDone()
	// SendReady reports that a byte can be queued for transmission.
	SendReady() bool
	// SendStart queues one byte for transmission.
	SendStart(b byte)
}

// PowerDriver is the optional callout for the target power switch.
type PowerDriver interface {
	SetTargetPower(on bool)
}

type dispatcherState uint8

const (
	dispInit dispatcherState = iota
	dispWaitCommand
	dispDispatch
	dispRecvRegister
	dispRecvWriteValue
	dispWaitWrite
	dispWaitRead
	dispSendReadValue
	dispSendAck
)

// CommandDispatcher multiplexes the host byte link into discrete operations:
// self-test, target power control and register read/write through the
// transactor. It greets the host with '!' once the link and the bus are both
// ready, then executes one command at a time, confirming each completed
// command with a single status byte. Unrecognized command bytes are dropped
// without a reply.
type CommandDispatcher struct {
	link  ByteLink
	trans *SWIOTransactor
	power PowerDriver

	targetPower bool
	op          Op
	reg         uint8
	value       uint32
	byteIndex   uint
	status      byte
	cmd         byte
	state       dispatcherState
}

// NewCommandDispatcher creates a dispatcher reading commands from link and
// driving trans.
func NewCommandDispatcher(link ByteLink, trans *SWIOTransactor) *CommandDispatcher {
	return &CommandDispatcher{link: link, trans: trans}
}

// SetPowerDriver registers the target power switch. Without one the power
// state is still tracked and readable via TargetPower.
func (c *CommandDispatcher) SetPowerDriver(d PowerDriver) {
	c.power = d
}

// TargetPower returns the current target power state.
func (c *CommandDispatcher) TargetPower() bool { return c.targetPower }

func (c *CommandDispatcher) setPower(on bool) {
	c.targetPower = on
	if c.power != nil {
		c.power.SetTargetPower(on)
	}
}

// Tick advances the dispatcher by one system-clock cycle.
func (c *CommandDispatcher) Tick() {
	switch c.state {
	case dispInit:
		if c.link.SendReady() && c.trans.Ready() {
			c.link.SendStart(protocol.Greeting)
			c.state = dispWaitCommand
		}

	case dispWaitCommand:
		if c.link.RecvReady() {
			c.cmd = c.link.RecvData()
			c.link.RecvDone()
			c.state = dispDispatch
		}

	case dispDispatch:
		switch c.cmd {
		case protocol.CmdTest:
			c.status = protocol.Ack
			c.state = dispSendAck
		case protocol.CmdPowerOn:
			c.setPower(true)
			c.status = protocol.Ack
			c.state = dispSendAck
		case protocol.CmdPowerOff:
			c.setPower(false)
			c.status = protocol.Ack
			c.state = dispSendAck
		case protocol.CmdWriteReg:
			c.op = OpWrite
			c.state = dispRecvRegister
		case protocol.CmdReadReg:
			c.op = OpRead
			c.state = dispRecvRegister
		default:
			c.state = dispWaitCommand
		}

	case dispRecvRegister:
		if c.link.RecvReady() {
			c.reg = c.link.RecvData() & RegisterMask
			c.link.RecvDone()
			if c.op == OpRead {
				c.trans.StartRead(c.reg)
				c.state = dispWaitRead
			} else {
				c.value = 0
				c.byteIndex = 0
				c.state = dispRecvWriteValue
			}
		}

	case dispRecvWriteValue:
		if c.link.RecvReady() {
			c.value |= uint32(c.link.RecvData()) << (8 * c.byteIndex)
			c.link.RecvDone()
			c.byteIndex++
			if c.byteIndex == protocol.ValueLen {
				c.trans.StartWrite(c.reg, c.value)
				c.state = dispWaitWrite
			}
		}

	case dispWaitWrite:
		if c.trans.Done() {
			c.status = protocol.Ack
			c.state = dispSendAck
		}

	case dispWaitRead:
		if c.trans.Done() {
			c.value = c.trans.DataRead()
			if c.trans.Fault() {
				c.status = protocol.Nak
			} else {
				c.status = protocol.Ack
			}
			c.byteIndex = 0
			c.state = dispSendReadValue
		}

	case dispSendReadValue:
		if c.link.SendReady() {
			c.link.SendStart(byte(c.value >> (8 * c.byteIndex)))
			c.byteIndex++
			if c.byteIndex == protocol.ValueLen {
				c.state = dispSendAck
			}
		}

	case dispSendAck:
		if c.link.SendReady() {
			c.link.SendStart(c.status)
			c.state = dispWaitCommand
		}
	}
}
