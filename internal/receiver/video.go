package receiver

import (
	"sync"
	"time"

	"github.com/bugVanisher/remoteplay/internal/avtransport"
	"github.com/bugVanisher/remoteplay/internal/bitstream"
	"github.com/bugVanisher/remoteplay/internal/frame"
	"github.com/bugVanisher/remoteplay/internal/refframe"
	"github.com/bugVanisher/remoteplay/internal/reorder"
	"github.com/bugVanisher/remoteplay/internal/stats"
)

// Video is the video elementary-stream receiver: profile switching,
// frame-index tracking, and the P-frame reference-chain repair state
// machine described in spec.md §4.6.
type Video struct {
	mu sync.Mutex

	profiles   []frame.VideoProfile
	profileCur uint8
	codec      bitstream.Codec
	parser     *bitstream.Parser

	reorderQ  *reorder.Queue[*avtransport.Packet]
	processor *frame.Processor
	ring      *refframe.Ring
	ps        *stats.PacketStats

	haveProfile            bool
	haveFrame              bool
	frameIndexCur          uint16
	frameIndexPrev         uint16
	frameIndexPrevComplete uint16
	framesLost             uint64

	curBuf     *frame.Buffer
	sawLastSrc bool

	chainBroken        bool
	chainBrokenAt       time.Time
	consecutiveDropped  int
	consecutiveBypass   int
	lastFailureAt       time.Time
	haveLastFailure     bool

	cfg   Config
	sink  Sink
	clock func() time.Time
}

// NewVideo constructs a Video receiver over an initial profile set.
func NewVideo(profiles []frame.VideoProfile, cfg Config, sink Sink, ps *stats.PacketStats, clock func() time.Time) *Video {
	if clock == nil {
		clock = time.Now
	}
	v := &Video{
		profiles:  profiles,
		processor: &frame.Processor{Kind: frame.KindVideo},
		ring:      refframe.NewRing(),
		ps:        ps,
		cfg:       cfg,
		sink:      sink,
		clock:     clock,
		parser:    bitstream.NewParser(),
	}
	v.reorderQ = reorder.New(func(p *avtransport.Packet) uint32 { return p.Seq }, reorder.Options{
		SizeStart:        cfg.ReorderSizeStart,
		SizeMin:          cfg.ReorderSizeMin,
		SizeMax:          cfg.ReorderSizeMax,
		TimeoutMs:        cfg.ReorderTimeoutMs,
		MaxOutputPerPull: 64,
		OnDrop:           func(uint32) { ps.AddLost(1) },
		OnTimeout:        func(uint32) { ps.AddLost(1) },
	})
	return v
}

// Push admits a raw arriving packet into the reorder window.
func (v *Video) Push(pkt *avtransport.Packet) {
	v.reorderQ.Push(pkt, v.clock())
}

// Tick drains whatever the reorder window is ready to release, processing
// each packet in strict sequence order, and delivers collected callbacks
// after releasing the internal lock.
func (v *Video) Tick(force bool) {
	ready := v.reorderQ.Flush(force, v.clock())
	for _, pkt := range ready {
		v.processPacket(pkt)
	}
}

type pendingCall func(Sink)

func (v *Video) processPacket(pkt *avtransport.Packet) {
	now := v.clock()
	var pending []pendingCall

	v.mu.Lock()
	if v.haveFrame && isOlderU16(pkt.FrameIndex, v.frameIndexCur) {
		v.mu.Unlock()
		v.ps.AddLost(1)
		return
	}

	// Profile switch fires on any adaptive_stream_index change, and also
	// unconditionally for the very first packet ever seen: profileCur's
	// zero value is itself a valid profile index, so haveProfile (not a
	// comparison against profileCur) is what distinguishes "never
	// initialized" from "already on profile 0".
	if !v.haveProfile || pkt.AdaptiveStreamIndex != v.profileCur {
		if int(pkt.AdaptiveStreamIndex) >= len(v.profiles) {
			v.mu.Unlock()
			return
		}
		v.haveProfile = true
		v.profileCur = pkt.AdaptiveStreamIndex
		v.codec = bitstream.Codec(pkt.Codec)
		_ = v.parser.LoadHeader(v.profiles[v.profileCur].Header, v.codec)
		header := v.profiles[v.profileCur].HeaderWithPadding
		pending = append(pending, func(s Sink) {
			s.OnFrame(ProcessedFrame{Stream: avtransport.StreamVideo, Payload: header, Success: false})
		})
	}

	if !v.haveFrame || pkt.FrameIndex != v.frameIndexCur {
		if v.curBuf != nil {
			pending = append(pending, v.flushFrameLocked(v.curBuf)...)
			v.curBuf = nil
		}
		if v.haveFrame {
			gap := int(pkt.FrameIndex) - int(v.frameIndexPrevComplete) - 1
			if gap < 0 {
				gap += 1 << 16
			}
			if gap > 0 {
				v.framesLost += uint64(gap)
				v.lastFailureAt = now
				v.haveLastFailure = true
				if gap > 20 {
					v.ring.Reset()
				}
				from := v.frameIndexPrevComplete + 1
				to := pkt.FrameIndex - 1
				pending = append(pending, func(s Sink) { s.OnCorruptFrame(from, to) })
				pending = append(pending, func(s Sink) { s.RequestKeyframe() })
			}
		}
		v.curBuf = frame.NewBuffer(pkt.FrameIndex, pkt.UnitsSrc, pkt.UnitsFec, now)
		v.frameIndexCur = pkt.FrameIndex
		v.haveFrame = true
		v.sawLastSrc = false
	}

	v.curBuf.PutUnit(pkt.UnitIndex, pkt.Payload, pkt.IsFec)
	if pkt.IsLastSrc {
		v.sawLastSrc = true
	}
	if v.processor.FlushPossible(v.curBuf, v.sawLastSrc) || pkt.IsLast {
		pending = append(pending, v.flushFrameLocked(v.curBuf)...)
		v.curBuf = nil
	}
	v.mu.Unlock()

	for _, call := range pending {
		call(v.sink)
	}
}

// flushFrameLocked must be called with v.mu held. It returns the callbacks
// to invoke after release rather than calling the sink directly, per
// spec.md §4.6/§9's no-callback-under-lock rule.
func (v *Video) flushFrameLocked(buf *frame.Buffer) []pendingCall {
	now := v.clock()
	result, payload := v.processor.Flush(buf)

	var pending []pendingCall

	if result == frame.Failed || result == frame.FecFailed {
		v.lastFailureAt = now
		v.haveLastFailure = true
		v.chainBroken = false
		v.ring.Remove(int32(buf.FrameIndex))
		v.framesLost++
		v.frameIndexPrev = buf.FrameIndex
		fi := buf.FrameIndex
		pending = append(pending, func(s Sink) { s.OnCorruptFrame(fi, fi) })
		pending = append(pending, func(s Sink) { s.RequestKeyframe() })
		return pending
	}

	recovered := result == frame.FecSuccess
	slice, err := v.parser.ParseSlice(payload)
	if err != nil {
		slice = &bitstream.Slice{Kind: bitstream.KindUnknown, ReferenceFrame: bitstream.NoReference}
	}

	if slice.IsIDR {
		v.chainBroken = false
		v.consecutiveDropped = 0
		v.consecutiveBypass = 0
		v.ring.Reset()
	} else if slice.Kind == bitstream.KindP && slice.ReferenceFrame != bitstream.NoReference {
		if _, ok := v.ring.Get(slice.ReferenceFrame); !ok {
			rec, pend := v.handleMissingReference(slice, payload, now)
			recovered = recovered || rec
			pending = append(pending, pend...)
		}
	}

	if v.chainBroken && !slice.IsIDR {
		elapsed := time.Duration(0)
		if v.haveLastFailure {
			elapsed = now.Sub(v.chainBrokenAt)
		}
		inGrace := v.haveLastFailure && now.Sub(v.lastFailureAt) <= v.cfg.graceWindow()
		if elapsed > v.cfg.chainTimeout() || v.consecutiveDropped > v.cfg.MaxConsecutiveDropped || inGrace {
			v.consecutiveBypass++
			if v.consecutiveBypass > v.cfg.MaxConsecutiveBypass {
				v.chainBroken = false
				v.consecutiveBypass = 0
			}
			recovered = true
		} else {
			v.consecutiveDropped++
			v.frameIndexPrev = buf.FrameIndex
			return pending
		}
	}

	composed := make([]byte, 0, len(v.profiles[v.profileCur].HeaderWithPadding)+len(payload))
	composed = append(composed, v.profiles[v.profileCur].HeaderWithPadding...)
	composed = append(composed, payload...)

	pf := ProcessedFrame{
		Stream:     avtransport.StreamVideo,
		FrameIndex: buf.FrameIndex,
		Payload:    composed,
		IsKey:      slice.IsIDR,
		Success:    true,
		Recovered:  recovered,
	}
	pending = append(pending, func(s Sink) { s.OnFrame(pf) })

	v.framesLost = 0
	v.ring.Add(int32(buf.FrameIndex))
	v.frameIndexPrevComplete = buf.FrameIndex
	v.frameIndexPrev = buf.FrameIndex

	return pending
}

// handleMissingReference implements spec.md §4.6's
// HandleMissingReferenceForPFrame: in a grace period, decode anyway without
// marking the chain broken; otherwise search the ring for an acceptable
// substitute, patching the bitstream when one exists and the stream is
// H.265 (an H.264 substitute is left unpatched and not reported as
// recovered), else mark the chain broken and ask for a keyframe.
func (v *Video) handleMissingReference(slice *bitstream.Slice, payload []byte, now time.Time) (recovered bool, pending []pendingCall) {
	inGrace := v.haveLastFailure && now.Sub(v.lastFailureAt) <= v.cfg.graceWindow()
	if inGrace {
		return false, nil
	}

	pos, _, found := v.ring.FindAlternate(slice.ReferenceFrame + 1)
	if found && v.codec == bitstream.CodecH265 {
		if _, err := v.parser.SetReferenceFrameH265(payload, pos); err == nil {
			return true, nil
		}
	}
	if !found {
		v.chainBroken = true
		v.chainBrokenAt = now
		pending = append(pending, func(s Sink) { s.RequestKeyframe() })
	}
	return false, pending
}

// FramesLost reports the running count of detected lost frames.
func (v *Video) FramesLost() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.framesLost
}

// ChainBroken reports whether the reference chain is currently considered
// broken.
func (v *Video) ChainBroken() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.chainBroken
}
