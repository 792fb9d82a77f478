// Package feedback packs a controller input snapshot and discrete button
// events into the outbound wire forms spec.md §4.11 defines. It has no
// teacher analog (the teacher's domain is media transport, not controller
// input) and is built directly from the byte layout the spec names,
// following the teacher's general preference for typed wire structs packed
// by explicit byte-offset code (Formatter.FormatState/FormatButtonEvent
// return freshly built buffers) over struct-tag-driven binary encoding
// (media/slice.Packet/makeSliceHeader).
package feedback

// ControllerState is a snapshot of gamepad input: a button bitmap, two
// analog sticks, two analog triggers, and nine motion/orientation values
// (accelerometer xyz, gyroscope xyz, orientation xyz).
type ControllerState struct {
	Buttons      uint32
	LeftStickX   int16
	LeftStickY   int16
	RightStickX  int16
	RightStickY  int16
	L2           uint8
	R2           uint8
	Motion       [9]float32
}

// IsEmpty reports whether every field holds its zero value.
func (c ControllerState) IsEmpty() bool {
	if c.Buttons != 0 || c.LeftStickX != 0 || c.LeftStickY != 0 ||
		c.RightStickX != 0 || c.RightStickY != 0 || c.L2 != 0 || c.R2 != 0 {
		return false
	}
	for _, m := range c.Motion {
		if m != 0 {
			return false
		}
	}
	return true
}

// Clone returns a field-wise copy. ControllerState has no reference-typed
// fields, so this is just a value copy, kept as a named method to mirror
// the explicit Clone the spec's data model calls for.
func (c ControllerState) Clone() ControllerState {
	return c
}

// ButtonEvent is a single discrete button transition.
type ButtonEvent struct {
	ID      byte
	Pressed bool
}
