package frame

import "time"

// Buffer is one in-progress frame's slot array. It is owned exclusively by
// its receiver's worker goroutine; never shared across goroutines (spec.md
// §3's ownership rule).
type Buffer struct {
	FrameIndex uint16
	UnitsSrc   uint16
	UnitsFec   uint16
	Units      [][]byte
	Missing    map[uint16]struct{}
	FecCount   int
	StartedAt  time.Time
	BadOrder   bool
	Assembled  bool
}

// NewBuffer allocates a slot array sized by unitsSrc+unitsFec.
func NewBuffer(frameIndex, unitsSrc, unitsFec uint16, now time.Time) *Buffer {
	total := int(unitsSrc) + int(unitsFec)
	missing := make(map[uint16]struct{}, unitsSrc)
	for i := uint16(0); i < unitsSrc; i++ {
		missing[i] = struct{}{}
	}
	return &Buffer{
		FrameIndex: frameIndex,
		UnitsSrc:   unitsSrc,
		UnitsFec:   unitsFec,
		Units:      make([][]byte, total),
		Missing:    missing,
		StartedAt:  now,
	}
}

// PutUnit places payload at unitIndex, tracking the missing-source-slot set
// and the FEC arrival count.
func (b *Buffer) PutUnit(unitIndex uint16, payload []byte, isFec bool) {
	if int(unitIndex) >= len(b.Units) {
		return
	}
	if b.Units[unitIndex] != nil {
		return
	}
	b.Units[unitIndex] = payload
	if isFec {
		b.FecCount++
	} else {
		delete(b.Missing, unitIndex)
	}
}

// MissingIndices returns the current set of missing source slots.
func (b *Buffer) MissingIndices() []int {
	out := make([]int, 0, len(b.Missing))
	for idx := range b.Missing {
		out = append(out, int(idx))
	}
	return out
}
