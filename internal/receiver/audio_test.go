package receiver

import (
	"testing"
	"time"

	"github.com/bugVanisher/remoteplay/internal/avtransport"
	"github.com/bugVanisher/remoteplay/internal/fec"
	"github.com/bugVanisher/remoteplay/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAudio() (*Audio, *fakeSink) {
	sink := &fakeSink{}
	ps := &stats.PacketStats{}
	cfg := DefaultConfig()
	now := time.Unix(0, 0)
	a := NewAudio(cfg, sink, ps, 4, func() time.Time { return now })
	return a, sink
}

func audioPacket(frameIdx, unitIdx, unitsSrc, unitsFec uint16, seq uint32, payload []byte, isLastSrc, isLast, isFec bool) *avtransport.Packet {
	return &avtransport.Packet{
		Type:       avtransport.StreamAudio,
		FrameIndex: frameIdx,
		UnitIndex:  unitIdx,
		UnitsSrc:   unitsSrc,
		UnitsFec:   unitsFec,
		Seq:        seq,
		IsLastSrc:  isLastSrc,
		IsLast:     isLast,
		IsFec:      isFec,
		Payload:    payload,
	}
}

// During the startup window, a naturally-recoverable frame (enough FEC
// units arrived to cover what's missing) must not be flushed early: the
// startup gate only lets a frame through once every source unit has
// actually arrived, even though FlushPossible would say recovery could
// proceed right now.
func TestAudioStartupWindowWithholdsEarlyRecovery(t *testing.T) {
	a, sink := newTestAudio()

	unit0 := []byte{1, 2, 3, 4}
	unit1 := []byte{5, 6, 7, 8}
	parity := fec.Encode([][]byte{unit0, unit1}, 1)

	a.Push(audioPacket(0, 0, 2, 1, 0, unit0, false, false, false))
	a.Tick(false)
	a.Push(audioPacket(0, 2, 2, 1, 1, parity[0], false, false, true))
	a.Tick(false)

	assert.Empty(t, sink.frames)
}

// Once AudioStartupSuccessThreshold clean frames have gone by, the same
// recoverable shape is allowed to flush naturally, using FEC to fill the
// gap.
func TestAudioAfterStartupRecoversNaturally(t *testing.T) {
	a, sink := newTestAudio()

	for i := uint16(0); i < 3; i++ {
		a.Push(audioPacket(i, 0, 1, 0, uint32(i), []byte{1, 2, 3, 4}, true, true, false))
		a.Tick(false)
	}
	require.Len(t, sink.frames, 3)
	sink.frames = nil

	unit0 := []byte{9, 9, 9, 9}
	unit1 := []byte{7, 7, 7, 7}
	parity := fec.Encode([][]byte{unit0, unit1}, 1)

	a.Push(audioPacket(3, 0, 2, 1, 3, unit0, false, false, false))
	a.Tick(false)
	a.Push(audioPacket(3, 2, 2, 1, 4, parity[0], false, false, true))
	a.Tick(false)

	require.Len(t, sink.frames, 1)
	assert.True(t, sink.frames[0].Success)
	assert.True(t, sink.frames[0].Recovered)
	assert.Equal(t, append(append([]byte{}, unit0...), unit1...), sink.frames[0].Payload)
}

func TestAudioConcatHasNoUnitHeaderSkip(t *testing.T) {
	a, sink := newTestAudio()

	a.Push(audioPacket(0, 0, 2, 0, 0, []byte{1, 2, 3, 4}, false, false, false))
	a.Tick(false)
	a.Push(audioPacket(0, 1, 2, 0, 1, []byte{5, 6, 7, 8}, true, true, false))
	a.Tick(false)

	require.Len(t, sink.frames, 1)
	// Unlike video, audio units are taken verbatim (truncated to
	// AudioUnitSize) with no 2-byte prefix skip.
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, sink.frames[0].Payload)
}
