package crt

import "fmt"

// Command templates below reproduce the byte sequences captured from
// the vendor software's USB traffic.

// DisplayOff returns the DIS command sent at the start of the
// initialization handshake.
func DisplayOff() []byte {
	return command("DIS", 0x00, 0x00)
}

// Wake returns the wake command.
func Wake() []byte {
	return command("wake", 0x00)
}

// Light returns the LIG backlight command.
func Light() []byte {
	return command("LIG", 0x00, 0x00, 0x00, 0x19)
}

// QueryMode returns the QUCMD mode query.
func QueryMode() []byte {
	return command("QUCMD", 0x11, 0x11, 0x00, 0x11, 0x00, 0x11)
}

// CursorPosition returns the CPOS command carrying a single ASCII
// position byte. The vendor software sends 'M'.
func CursorPosition(pos byte) []byte {
	return command("CPOS", 0x00, pos)
}

// Clear returns the CLE command that blanks all button displays.
func Clear() []byte {
	return command("CLE", 0x00, 0x00, 0x00, 0xFF)
}

// Stop returns the STP terminator, sent after the handshake and after
// every image payload.
func Stop() []byte {
	return command("STP", 0x00, 0x00)
}

// Heartbeat returns the CONNECT command that keeps the device in its
// active display mode.
func Heartbeat() []byte {
	return command("CONNECT")
}

// ImageHeader returns the BAT command announcing an upcoming image
// transfer: total payload size (big-endian 16-bit) and target button id.
func ImageHeader(size int, buttonID byte) ([]byte, error) {
	if buttonID < 1 || buttonID > NumButtons {
		return nil, fmt.Errorf("%w: button id %d outside 1..%d", ErrEncoding, buttonID, NumButtons)
	}
	if size < 0 || size > 0xFFFF {
		return nil, fmt.Errorf("%w: image size %d does not fit in 16 bits", ErrEncoding, size)
	}
	return command("BAT", 0x00, 0x00, byte(size>>8), byte(size), buttonID), nil
}
