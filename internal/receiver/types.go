// Package receiver implements the per-stream video and audio reassembly
// state machines: profile switching, frame-index tracking, the P-frame
// reference-chain grace-period/bypass logic, and the audio startup window.
// This is the one place in the module where "generalize the teacher's
// pattern" bottoms out in "build it from the protocol description": the
// teacher is a relay, not a decoder-feeding client, and has no analog for
// reference-chain repair.
package receiver

import "github.com/bugVanisher/remoteplay/internal/avtransport"

// ProcessedFrame is handed to the output pipeline once a frame (or a
// profile-switch header) is ready to send to the sink.
type ProcessedFrame struct {
	Stream     avtransport.StreamType
	FrameIndex uint16
	Payload    []byte
	IsKey      bool
	Success    bool
	Recovered  bool
}

// Sink receives the receiver's callbacks. OnFrame is also used for the
// non-success header emission on a profile switch. None of these are ever
// invoked while the receiver's internal lock is held.
type Sink interface {
	OnFrame(ProcessedFrame)
	OnCorruptFrame(from, to uint16)
	RequestKeyframe()
}

// isOlderU16 reports whether seq lies behind cursor under 16-bit
// wraparound-aware comparison.
func isOlderU16(seq, cursor uint16) bool {
	diff := seq - cursor
	return diff > 0x8000
}
