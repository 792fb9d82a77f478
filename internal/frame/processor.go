package frame

import (
	"github.com/bugVanisher/remoteplay/internal/fec"
	"github.com/bugVanisher/remoteplay/internal/stats"
)

// Kind selects the concat rule Flush applies to a completed frame.
type Kind uint8

const (
	KindVideo Kind = iota
	KindAudio
)

// unitHeaderLen is the per-unit header video source units carry ahead of
// their elementary-stream bytes; it is not part of the reassembled stream
// and is skipped on flush.
const unitHeaderLen = 2

// Result is the outcome of a Flush call.
type Result uint8

const (
	Success Result = iota
	FecSuccess
	FecFailed
	Failed
)

// Processor accumulates units for exactly one in-flight frame at a time per
// stream and decides flushability, invoking FEC recovery when source units
// are missing.
type Processor struct {
	Kind          Kind
	AudioUnitSize int
}

// FlushPossible reports whether enough units have arrived to attempt a
// flush: every source slot filled, or all but one with is_last_src seen, or
// enough FEC-plus-source units to recover the remainder.
func (p *Processor) FlushPossible(b *Buffer, sawLastSrc bool) bool {
	missing := len(b.Missing)
	if missing == 0 {
		return true
	}
	if missing == 1 && sawLastSrc {
		return true
	}
	return missing <= b.FecCount
}

// Flush attempts to produce the reassembled frame payload. On FecSuccess or
// Success it returns the assembled bytes; otherwise nil.
func (p *Processor) Flush(b *Buffer) (Result, []byte) {
	if _, firstMissing := b.Missing[0]; firstMissing {
		return Failed, nil
	}

	missing := b.MissingIndices()
	usedFec := false
	if len(missing) > 0 {
		if !fec.TryRecover(b.Units, missing, int(b.UnitsSrc), int(b.UnitsFec)) {
			return FecFailed, nil
		}
		usedFec = true
	}

	payload := p.concat(b)
	b.Assembled = true
	if usedFec {
		return FecSuccess, payload
	}
	return Success, payload
}

func (p *Processor) concat(b *Buffer) []byte {
	var out []byte
	for i := 0; i < int(b.UnitsSrc); i++ {
		unit := b.Units[i]
		if unit == nil {
			continue
		}
		switch p.Kind {
		case KindVideo:
			if len(unit) > unitHeaderLen {
				out = append(out, unit[unitHeaderLen:]...)
			}
		case KindAudio:
			if p.AudioUnitSize > 0 && len(unit) > p.AudioUnitSize {
				unit = unit[:p.AudioUnitSize]
			}
			out = append(out, unit...)
		}
	}
	return out
}

// ReportPacketStats pushes this frame's received/lost delta counts into ps.
func (p *Processor) ReportPacketStats(b *Buffer, ps *stats.PacketStats) {
	received := int(b.UnitsSrc) - len(b.Missing)
	ps.AddReceived(uint64(received))
	ps.AddLost(uint64(len(b.Missing)))
}
