package output

import (
	"context"
	"time"

	"github.com/bugVanisher/remoteplay/internal/avtransport"
	"github.com/bugVanisher/remoteplay/internal/receiver"
	"github.com/bugVanisher/remoteplay/utils"
)

// DefaultVideoQueueSize and DefaultAudioQueueSize match spec.md §6's
// per-stream output queue defaults.
const (
	DefaultVideoQueueSize = 256
	DefaultAudioQueueSize = 512
)

// PacingFloor is the minimum spacing applied between non-key video frame
// sends when the backlog is short; it smooths bursty delivery without
// adding latency under load.
const PacingFloor = 8 * time.Millisecond

// PacingBacklogCeiling is the backlog size above which pacing is skipped
// entirely (the frame is already late; send it immediately).
const PacingBacklogCeiling = 20

// Pipeline owns one bounded per-stream queue per stream, each served by a
// single-consumer task invoking sink outside any internal lock (the sink
// call is treated as potentially blocking, per spec.md §5).
type Pipeline struct {
	sink  Sink
	video *queue
	audio *queue

	lastVideoSend time.Time
}

func New(sink Sink, videoQueueSize, audioQueueSize int) *Pipeline {
	if videoQueueSize <= 0 {
		videoQueueSize = DefaultVideoQueueSize
	}
	if audioQueueSize <= 0 {
		audioQueueSize = DefaultAudioQueueSize
	}
	return &Pipeline{
		sink:  sink,
		video: newQueue(videoQueueSize),
		audio: newQueue(audioQueueSize),
	}
}

// PushVideo enqueues a processed video frame.
func (p *Pipeline) PushVideo(pf receiver.ProcessedFrame) {
	p.video.push(pf)
}

// PushAudio enqueues a processed audio frame.
func (p *Pipeline) PushAudio(pf receiver.ProcessedFrame) {
	p.audio.push(pf)
}

// RunVideo is the video output task's main loop.
func (p *Pipeline) RunVideo(ctx context.Context) {
	for {
		if utils.ContextDone(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case pf := <-p.video.ch:
			p.sendVideo(pf)
		}
	}
}

// RunAudio is the audio output task's main loop.
func (p *Pipeline) RunAudio(ctx context.Context) {
	for {
		if utils.ContextDone(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case pf := <-p.audio.ch:
			p.sendAudio(pf)
		}
	}
}

func (p *Pipeline) sendVideo(pf receiver.ProcessedFrame) {
	if !pf.IsKey && p.video.len() <= PacingBacklogCeiling {
		if since := time.Since(p.lastVideoSend); since < PacingFloor {
			time.Sleep(PacingFloor - since)
		}
	}
	p.lastVideoSend = time.Now()

	buf := make([]byte, 0, len(pf.Payload)+1)
	buf = append(buf, byte(avtransport.StreamVideo))
	buf = append(buf, pf.Payload...)

	if pf.IsKey {
		p.sink.OnVideoPacketPriority(buf)
	} else {
		p.sink.OnVideoPacket(buf)
	}
}

func (p *Pipeline) sendAudio(pf receiver.ProcessedFrame) {
	buf := make([]byte, 0, len(pf.Payload)+1)
	buf = append(buf, byte(avtransport.StreamAudio))
	buf = append(buf, pf.Payload...)
	p.sink.OnAudioPacket(buf)
}
