package receiver

import (
	"sync"
	"time"

	"github.com/bugVanisher/remoteplay/internal/avtransport"
	"github.com/bugVanisher/remoteplay/internal/frame"
	"github.com/bugVanisher/remoteplay/internal/reorder"
	"github.com/bugVanisher/remoteplay/internal/stats"
)

// startupWindow is the frame-index span (spec.md §4.7: frame_index <=
// 2^15) during which FEC recovery is suppressed to avoid the audible pops
// duplicate packets produce this early in a stream.
const startupWindow = 1 << 15

// Audio is the audio elementary-stream receiver. It has no reference-chain
// logic; its only special case is the startup window where FEC recovery is
// withheld.
type Audio struct {
	mu sync.Mutex

	processor *frame.Processor
	ps        *stats.PacketStats
	reorderQ  *reorder.Queue[*avtransport.Packet]

	haveFrame     bool
	frameIndexCur uint16
	curBuf        *frame.Buffer
	sawLastSrc    bool

	consecutiveSuccess int

	cfg   Config
	sink  Sink
	clock func() time.Time
}

func NewAudio(cfg Config, sink Sink, ps *stats.PacketStats, audioUnitSize int, clock func() time.Time) *Audio {
	if clock == nil {
		clock = time.Now
	}
	a := &Audio{
		processor: &frame.Processor{Kind: frame.KindAudio, AudioUnitSize: audioUnitSize},
		ps:        ps,
		cfg:       cfg,
		sink:      sink,
		clock:     clock,
	}
	a.reorderQ = reorder.New(func(p *avtransport.Packet) uint32 { return p.Seq }, reorder.Options{
		SizeStart:        cfg.ReorderSizeStart,
		SizeMin:          cfg.ReorderSizeMin,
		SizeMax:          cfg.ReorderSizeMax,
		TimeoutMs:        cfg.ReorderTimeoutMs,
		MaxOutputPerPull: 64,
		OnDrop:           func(uint32) { ps.AddLost(1) },
		OnTimeout:        func(uint32) { ps.AddLost(1) },
	})
	return a
}

func (a *Audio) Push(pkt *avtransport.Packet) {
	a.reorderQ.Push(pkt, a.clock())
}

func (a *Audio) Tick(force bool) {
	ready := a.reorderQ.Flush(force, a.clock())
	for _, pkt := range ready {
		a.processPacket(pkt)
	}
}

func (a *Audio) inStartup() bool {
	return a.frameIndexCur <= startupWindow && a.consecutiveSuccess < a.cfg.AudioStartupSuccessThreshold
}

func (a *Audio) processPacket(pkt *avtransport.Packet) {
	a.mu.Lock()
	if a.haveFrame && isOlderU16(pkt.FrameIndex, a.frameIndexCur) {
		a.mu.Unlock()
		a.ps.AddLost(1)
		return
	}

	if !a.haveFrame || pkt.FrameIndex != a.frameIndexCur {
		var pf *ProcessedFrame
		if a.curBuf != nil {
			pf = a.flushLocked(a.curBuf)
			a.curBuf = nil
		}
		a.curBuf = frame.NewBuffer(pkt.FrameIndex, pkt.UnitsSrc, pkt.UnitsFec, a.clock())
		a.frameIndexCur = pkt.FrameIndex
		a.haveFrame = true
		a.sawLastSrc = false
		if pf != nil {
			a.mu.Unlock()
			a.sink.OnFrame(*pf)
			a.mu.Lock()
		}
	}

	a.curBuf.PutUnit(pkt.UnitIndex, pkt.Payload, pkt.IsFec)
	if pkt.IsLastSrc {
		a.sawLastSrc = true
	}

	var startupOK bool
	if a.inStartup() {
		startupOK = len(a.curBuf.Missing) == 0
	} else {
		startupOK = len(a.curBuf.Missing) <= 1 || a.processor.FlushPossible(a.curBuf, a.sawLastSrc)
	}

	var pf *ProcessedFrame
	if (startupOK && (a.processor.FlushPossible(a.curBuf, a.sawLastSrc) || len(a.curBuf.Missing) == 0)) || pkt.IsLast {
		pf = a.flushLocked(a.curBuf)
		a.curBuf = nil
	}
	a.mu.Unlock()

	if pf != nil {
		a.sink.OnFrame(*pf)
	}
}

func (a *Audio) flushLocked(buf *frame.Buffer) *ProcessedFrame {
	result, payload := a.processor.Flush(buf)
	if result == frame.Failed || result == frame.FecFailed {
		a.consecutiveSuccess = 0
		return nil
	}
	a.consecutiveSuccess++
	return &ProcessedFrame{
		Stream:     avtransport.StreamAudio,
		FrameIndex: buf.FrameIndex,
		Payload:    payload,
		Success:    true,
		Recovered:  result == frame.FecSuccess,
	}
}
