package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrRegisterRange is returned for register addresses that do not fit in the
// 7-bit address field.
var ErrRegisterRange = errors.New("register address out of range")

// ValidRegister reports whether reg fits the 7-bit address field.
func ValidRegister(reg uint8) bool {
	return reg <= RegisterMask
}

// AppendWriteFrame appends a complete write-register request to dst.
func AppendWriteFrame(dst []byte, reg uint8, value uint32) ([]byte, error) {
	if !ValidRegister(reg) {
		return dst, fmt.Errorf("%w: 0x%02x", ErrRegisterRange, reg)
	}
	dst = append(dst, CmdWriteReg, reg)
	return binary.LittleEndian.AppendUint32(dst, value), nil
}

// AppendReadFrame appends a complete read-register request to dst.
func AppendReadFrame(dst []byte, reg uint8) ([]byte, error) {
	if !ValidRegister(reg) {
		return dst, fmt.Errorf("%w: 0x%02x", ErrRegisterRange, reg)
	}
	return append(dst, CmdReadReg, reg), nil
}

// Value decodes the four little-endian value bytes of a read response.
func Value(b []byte) (uint32, error) {
	if len(b) < ValueLen {
		return 0, fmt.Errorf("short value: %d bytes", len(b))
	}
	return binary.LittleEndian.Uint32(b), nil
}
