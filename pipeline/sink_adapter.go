package pipeline

import (
	"github.com/bugVanisher/remoteplay/internal/avtransport"
	"github.com/bugVanisher/remoteplay/internal/output"
	"github.com/bugVanisher/remoteplay/internal/receiver"
)

// receiverSink adapts one stream's output queue (and, for video, the
// corrupt-frame/keyframe-request callbacks) to the receiver.Sink interface
// each Video/Audio receiver calls into after releasing its internal lock.
type receiverSink struct {
	out    *output.Pipeline
	stream avtransport.StreamType

	onCorruptFrame    func(from, to uint16)
	onRequestKeyframe func()
}

func (s *receiverSink) OnFrame(pf receiver.ProcessedFrame) {
	switch s.stream {
	case avtransport.StreamVideo:
		s.out.PushVideo(pf)
	case avtransport.StreamAudio:
		s.out.PushAudio(pf)
	}
}

func (s *receiverSink) OnCorruptFrame(from, to uint16) {
	if s.onCorruptFrame != nil {
		s.onCorruptFrame(from, to)
	}
}

func (s *receiverSink) RequestKeyframe() {
	if s.onRequestKeyframe != nil {
		s.onRequestKeyframe()
	}
}
