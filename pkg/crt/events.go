package crt

import "bytes"

// Event is one decoded input report from the event endpoint.
type Event interface {
	event()
}

// ButtonEvent is a button press or release.
type ButtonEvent struct {
	Button  int // physical index 0..5
	Pressed bool
}

// KnobTurnEvent is one detent of rotation on a knob.
type KnobTurnEvent struct {
	Knob      int // 1..3
	Clockwise bool
}

// KnobPressEvent is a knob push. The device reports no release
// transition for knob pushes, so this event is edge-triggered.
type KnobPressEvent struct {
	Knob int // 1..3
}

func (ButtonEvent) event()    {}
func (KnobTurnEvent) event()  {}
func (KnobPressEvent) event() {}

// ackHeader fills bytes 1..9 of every valid input report.
var ackHeader = []byte{'A', 'C', 'K', 0x00, 0x00, 'O', 'K', 0x00, 0x00}

var knobTurns = map[byte]KnobTurnEvent{
	0x50: {Knob: 1, Clockwise: false},
	0x51: {Knob: 1, Clockwise: true},
	0x60: {Knob: 2, Clockwise: false},
	0x61: {Knob: 2, Clockwise: true},
	0x90: {Knob: 3, Clockwise: false},
	0x91: {Knob: 3, Clockwise: true},
}

var knobPresses = map[byte]int{
	0x25: 1,
	0x30: 2,
	0x31: 3,
}

// DecodeReport classifies one input report. It is total: short buffers,
// header mismatches and unrecognized control ids yield no event rather
// than an error, since the event endpoint carries vendor-internal
// chatter alongside input reports.
func DecodeReport(b []byte) (Event, bool) {
	if len(b) < 12 || b[0] != ReportID || !bytes.Equal(b[1:10], ackHeader) {
		return nil, false
	}

	id, state := b[10], b[11]
	for i, bid := range buttonIDs {
		if id == bid {
			return ButtonEvent{Button: i, Pressed: state == 1}, true
		}
	}
	if ev, ok := knobTurns[id]; ok {
		// The state byte on turn events is informational only; the
		// direction is carried by the control id itself.
		return ev, true
	}
	if knob, ok := knobPresses[id]; ok {
		return KnobPressEvent{Knob: knob}, true
	}

	return nil, false
}
