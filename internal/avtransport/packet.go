// Package avtransport defines the wire header codec for the inbound UDP AV
// transport and its parsed in-memory representation, grounded on the
// teacher's preference for typed wire structs with explicit encode/decode
// methods over struct-tag-driven binary marshalling.
package avtransport

import (
	"encoding/binary"

	"github.com/bugVanisher/remoteplay/internal/errs"
)

// StreamType tags which pipeline a packet belongs to.
type StreamType uint8

const (
	StreamVideo StreamType = 1
	StreamAudio StreamType = 2
)

// HeaderLen is the fixed byte length of the transport header prefix,
// before the (possibly zero-length) encrypted payload.
const HeaderLen = 1 + 2 + 2 + 2 + 2 + 1 + 1 + 8 + 4 + 1

// Flags bits packed into the header's trailing flags byte.
const (
	FlagIsLast    uint8 = 1 << 0
	FlagIsLastSrc uint8 = 1 << 1
	FlagIsFec     uint8 = 1 << 2
)

// Packet is the parsed form of one transport datagram. Payload starts out
// holding the still-encrypted bytes and is replaced in place by the ingest
// pipeline once decrypted.
type Packet struct {
	Type                StreamType
	FrameIndex          uint16
	UnitIndex           uint16
	UnitsSrc            uint16
	UnitsFec            uint16
	Codec               uint8
	AdaptiveStreamIndex uint8
	KeyPos              uint64
	Seq                 uint32
	IsLast              bool
	IsLastSrc           bool
	IsFec               bool
	Payload             []byte
}

// UnitsTotal is units_src + units_fec, the configured slot count for the
// packet's frame.
func (p *Packet) UnitsTotal() uint16 {
	return p.UnitsSrc + p.UnitsFec
}

// Parse decodes a transport datagram's fixed header prefix. The trailing
// bytes (still encrypted) become Payload; the ingest pipeline decrypts them
// in place at KeyPos before handing the packet onward.
func Parse(datagram []byte) (*Packet, error) {
	if len(datagram) < HeaderLen {
		return nil, errs.Wrapf(errs.ErrHeaderMalformed, "avtransport: datagram too short: %d bytes", len(datagram))
	}
	b := datagram
	p := &Packet{
		Type:                StreamType(b[0]),
		FrameIndex:          binary.BigEndian.Uint16(b[1:3]),
		UnitIndex:           binary.BigEndian.Uint16(b[3:5]),
		UnitsSrc:            binary.BigEndian.Uint16(b[5:7]),
		UnitsFec:            binary.BigEndian.Uint16(b[7:9]),
		Codec:               b[9],
		AdaptiveStreamIndex: b[10],
		KeyPos:              binary.BigEndian.Uint64(b[11:19]),
		Seq:                 binary.BigEndian.Uint32(b[19:23]),
	}
	flags := b[23]
	p.IsLast = flags&FlagIsLast != 0
	p.IsLastSrc = flags&FlagIsLastSrc != 0
	p.IsFec = flags&FlagIsFec != 0
	p.Payload = b[HeaderLen:]

	if p.Type != StreamVideo && p.Type != StreamAudio {
		return nil, errs.Wrapf(errs.ErrHeaderMalformed, "avtransport: unknown stream type: %d", p.Type)
	}
	if p.UnitIndex >= p.UnitsTotal() {
		return nil, errs.Wrapf(errs.ErrHeaderMalformed, "avtransport: unit_index %d >= units_total %d", p.UnitIndex, p.UnitsTotal())
	}
	wantLastSrc := p.UnitIndex == p.UnitsSrc-1
	if p.IsLastSrc != wantLastSrc && p.UnitsSrc > 0 {
		return nil, errs.Wrapf(errs.ErrHeaderMalformed, "avtransport: is_last_src inconsistent with unit_index")
	}
	wantFec := p.UnitIndex >= p.UnitsSrc
	if p.IsFec != wantFec {
		return nil, errs.Wrapf(errs.ErrHeaderMalformed, "avtransport: is_fec inconsistent with unit_index")
	}
	return p, nil
}
