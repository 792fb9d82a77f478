// Package frame implements the per-frame unit accumulator (FrameProcessor)
// and its supporting types (FrameBuffer, VideoProfile), grounded on the
// header + payload-slices reassembly shape of the teacher's slice packet
// model, generalized to this transport's per-unit header and FEC recovery.
package frame

// VideoProfile describes one (resolution, codec) configuration the host may
// switch between mid-stream; each carries its own elementary-stream
// header. HeaderWithPadding exists because the downstream decoder this
// pipeline feeds requires 64 trailing zero bytes after the header.
type VideoProfile struct {
	Index             uint8
	Width             int
	Height            int
	Header            []byte
	HeaderWithPadding []byte
}

// HeaderPaddingSize is the fixed padding VideoProfile.HeaderWithPadding
// appends after Header.
const HeaderPaddingSize = 64

// NewVideoProfile builds a profile and derives HeaderWithPadding from
// header.
func NewVideoProfile(index uint8, width, height int, header []byte) VideoProfile {
	padded := make([]byte, len(header)+HeaderPaddingSize)
	copy(padded, header)
	return VideoProfile{
		Index:             index,
		Width:             width,
		Height:            height,
		Header:            header,
		HeaderWithPadding: padded,
	}
}
