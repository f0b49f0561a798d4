// Package protocol defines the Ardulink byte protocol spoken between the
// host and the SWIO bridge.
package protocol

// Protocol bytes. The bridge emits Greeting once at startup, executes one
// command at a time and confirms each completed command with Ack. A register
// read that tripped the stuck-line threshold is confirmed with Nak instead.
const (
	Greeting = '!'
	Ack      = '+'
	Nak      = '-'

	CmdTest     = '?'
	CmdPowerOn  = 'p'
	CmdPowerOff = 'P'
	CmdWriteReg = 'w'
	CmdReadReg  = 'r'
)

// Frame geometry. A write request is the command byte, one register byte and
// four value bytes; a read request is the command byte and one register byte.
// Values travel least-significant byte first in both directions.
const (
	RegisterMask = 0x7F // register addresses are 7 bits

	ValueLen      = 4
	WriteFrameLen = 2 + ValueLen
	ReadFrameLen  = 2
)
