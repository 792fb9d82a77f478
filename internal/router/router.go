// Package router fans parsed AV packets out to the video and audio
// pipelines, the one-task hop between ingest and the per-stream receivers
// spec.md §5 describes.
package router

import (
	"context"

	"github.com/bugVanisher/remoteplay/internal/avtransport"
	"github.com/bugVanisher/remoteplay/utils"
)

// Router reads from one ingest output channel and dispatches each packet
// by stream type.
type Router struct {
	video chan<- *avtransport.Packet
	audio chan<- *avtransport.Packet
}

func New(video, audio chan<- *avtransport.Packet) *Router {
	return &Router{video: video, audio: audio}
}

// Run reads in until ctx is cancelled, dispatching each packet to the
// appropriate stream channel. A full destination channel blocks the router
// task until the channel has room or ctx is cancelled. Packets whose type
// is neither video nor audio are discarded; no other packet is dropped here.
func (r *Router) Run(ctx context.Context, in <-chan *avtransport.Packet) {
	for {
		if utils.ContextDone(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case pkt := <-in:
			r.dispatch(ctx, pkt)
		}
	}
}

func (r *Router) dispatch(ctx context.Context, pkt *avtransport.Packet) {
	var dst chan<- *avtransport.Packet
	switch pkt.Type {
	case avtransport.StreamVideo:
		dst = r.video
	case avtransport.StreamAudio:
		dst = r.audio
	default:
		return
	}
	select {
	case dst <- pkt:
	case <-ctx.Done():
	}
}
