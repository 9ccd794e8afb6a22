// Package crt implements the vendor report protocol spoken by the
// vsdinside k1-pro deck: CRT command framing, the BAT image transfer
// sequence, and input-report decoding. The same CRT+BAT command family
// is used by the Fifine D6 with different parameters.
//
// The package is pure: it builds and parses byte slices and performs
// no I/O.
package crt

import (
	"errors"
	"fmt"
)

const (
	// ReportID prefixes every write to the control endpoint and every
	// input report read from the event endpoint.
	ReportID = 0x04

	// WriteSize is the fixed write unit: one report ID byte plus
	// DataSize payload bytes, zero-padded.
	WriteSize = 1024
	DataSize  = 1023

	NumButtons = 6
	NumKnobs   = 3
)

// ErrEncoding reports invalid command parameters. Encoding failures are
// rejected before any I/O takes place.
var ErrEncoding = errors.New("crt: invalid command parameters")

// tag opens every command frame: "CRT" plus two padding bytes.
var tag = []byte{0x43, 0x52, 0x54, 0x00, 0x00}

func command(name string, params ...byte) []byte {
	b := make([]byte, 0, len(tag)+len(name)+len(params))
	b = append(b, tag...)
	b = append(b, name...)
	b = append(b, params...)
	return b
}

// Report wraps a command or image payload in a fixed-size write with
// the leading report ID.
func Report(payload []byte) ([]byte, error) {
	if len(payload) > DataSize {
		return nil, fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrEncoding, len(payload), DataSize)
	}
	b := make([]byte, WriteSize)
	b[0] = ReportID
	copy(b[1:], payload)
	return b, nil
}

// buttonIDs maps the physical button index (0..5, top row first) to the
// protocol id used on the wire:
//
//	physical: [B1][B2][B3]    protocol: [5][3][1]
//	          [B4][B5][B6]              [6][4][2]
var buttonIDs = [NumButtons]byte{5, 3, 1, 6, 4, 2}

// ButtonID returns the protocol id for a physical button index.
func ButtonID(index int) (byte, error) {
	if index < 0 || index >= NumButtons {
		return 0, fmt.Errorf("%w: button index %d outside 0..%d", ErrEncoding, index, NumButtons-1)
	}
	return buttonIDs[index], nil
}
