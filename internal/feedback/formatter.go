package feedback

import "encoding/binary"

// Frame lengths for the two controller generations this host speaks.
const (
	FrameLenPS4 = 25
	FrameLenPS5 = 28

	preludeLen    = 17
	stickAxisBase = 17
	ps5ModeOffset = 27

	// ps5DS4ModeByte marks the PS5 frame as reporting in DS4-compatible
	// mode, which is the only mode this pipeline emits.
	ps5DS4ModeByte = 0x01
)

// buttonEventTag, buttonHeldByte and buttonIdleByte mirror the host's 3-byte discrete
// button-event wire form: [0x80][button_id][0xFF|0x00].
const (
	buttonEventTag  = 0x80
	buttonHeldByte  = 0xFF
	buttonIdleByte  = 0x00
	highButtonIDBit = 0x8C
	highButtonShift = 32
)

// Formatter packs ControllerState snapshots and ButtonEvents into the
// host's wire forms. isPS5 selects the 28-byte frame with the trailing
// DS4-mode byte over the PS4's 25-byte frame.
type Formatter struct {
	isPS5 bool
}

func NewFormatter(isPS5 bool) *Formatter {
	return &Formatter{isPS5: isPS5}
}

// FormatState packs cs into a 25-byte (PS4) or 28-byte (PS5) frame: a
// 17-byte motion-idle prelude, four BE i16 stick axes at offsets
// 17/19/21/23, and (PS5 only) a DS4-mode byte at offset 27.
func (f *Formatter) FormatState(cs ControllerState) []byte {
	n := FrameLenPS4
	if f.isPS5 {
		n = FrameLenPS5
	}
	buf := make([]byte, n)

	putI16(buf[stickAxisBase:], cs.LeftStickX)
	putI16(buf[stickAxisBase+2:], cs.LeftStickY)
	putI16(buf[stickAxisBase+4:], cs.RightStickX)
	putI16(buf[stickAxisBase+6:], cs.RightStickY)

	if f.isPS5 {
		buf[ps5ModeOffset] = ps5DS4ModeByte
	}
	return buf
}

// FormatButtonEvent packs a single discrete button transition. Button IDs
// at or above 0x8C are offset by +32 while pressed, matching the host's
// extended-button-range convention.
func (f *Formatter) FormatButtonEvent(ev ButtonEvent) []byte {
	id := ev.ID
	if id >= highButtonIDBit && ev.Pressed {
		id += highButtonShift
	}
	state := byte(buttonIdleByte)
	if ev.Pressed {
		state = buttonHeldByte
	}
	return []byte{buttonEventTag, id, state}
}

func putI16(dst []byte, v int16) {
	binary.BigEndian.PutUint16(dst, uint16(v))
}
