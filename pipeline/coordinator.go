package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/bugVanisher/remoteplay/internal/avtransport"
	"github.com/bugVanisher/remoteplay/internal/congestion"
	"github.com/bugVanisher/remoteplay/internal/errs"
	"github.com/bugVanisher/remoteplay/internal/feedback"
	"github.com/bugVanisher/remoteplay/internal/ingest"
	"github.com/bugVanisher/remoteplay/internal/output"
	"github.com/bugVanisher/remoteplay/internal/receiver"
	"github.com/bugVanisher/remoteplay/internal/router"
	"github.com/bugVanisher/remoteplay/internal/stats"
)

// shutdownGrace bounds how long Close waits for worker tasks to notice
// cancellation before returning, per spec.md §5's bounded-wait requirement.
const shutdownGrace = 500 * time.Millisecond

const reorderTickInterval = 10 * time.Millisecond

// Coordinator owns every worker task's lifetime, wires the internal
// channels together, and exposes the module's public surface: feeding raw
// datagrams in, reading stats, and formatting outbound feedback.
type Coordinator struct {
	cfg    Config
	cipher ingest.Cipher
	sink   output.Sink

	ps          *stats.PacketStats
	streamStats *stats.StreamStats

	ingestPipe *ingest.Pipeline
	rtr        *router.Router
	video      *receiver.Video
	audio      *receiver.Audio
	out        *output.Pipeline
	congest    *congestion.Reporter
	feedback   *feedback.Formatter

	videoIn chan *avtransport.Packet
	audioIn chan *avtransport.Packet

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New validates the fatal construction-time requirements (cipher, sink,
// and profile set) and wires every internal component. It never starts any
// goroutines; call Start to begin running.
func New(cipher ingest.Cipher, sink output.Sink, opts ...Option) (*Coordinator, error) {
	if cipher == nil {
		return nil, errs.ErrCipherMissing
	}
	if sink == nil {
		return nil, errs.ErrSinkMissing
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.Profiles) == 0 {
		return nil, errs.Wrapf(errs.ErrProfileRange, "pipeline: at least one video profile is required")
	}

	ingestPipe, err := ingest.New(cipher, 4096)
	if err != nil {
		return nil, err
	}

	ps := &stats.PacketStats{}
	streamStats := &stats.StreamStats{}

	videoIn := make(chan *avtransport.Packet, cfg.Receiver.ReorderSizeMax)
	audioIn := make(chan *avtransport.Packet, cfg.Receiver.ReorderSizeMax)
	rtr := router.New(videoIn, audioIn)

	out := output.New(sink, cfg.VideoQueueSize, cfg.AudioQueueSize)

	videoSink := &receiverSink{out: out, stream: avtransport.StreamVideo, onCorruptFrame: cfg.OnCorruptFrame, onRequestKeyframe: cfg.OnRequestKeyframe}
	audioSink := &receiverSink{out: out, stream: avtransport.StreamAudio}

	video := receiver.NewVideo(cfg.Profiles, cfg.Receiver, videoSink, ps, cfg.Clock)
	audio := receiver.NewAudio(cfg.Receiver, audioSink, ps, cfg.AudioUnitSize, cfg.Clock)

	congest := congestion.New(ps, cipher, nil, cfg.CongestionLossMax, cfg.CongestionIntervalMs, cfg.Clock)

	return &Coordinator{
		cfg:         cfg,
		cipher:      cipher,
		sink:        sink,
		ps:          ps,
		streamStats: streamStats,
		ingestPipe:  ingestPipe,
		rtr:         rtr,
		video:       video,
		audio:       audio,
		out:         out,
		congest:     congest,
		feedback:    feedback.NewFormatter(cfg.IsPS5),
		videoIn:     videoIn,
		audioIn:     audioIn,
	}, nil
}

// SetCongestionSender attaches the datagram-send callback for the
// congestion reporter; split from New/Option so a host can bind it to a
// socket created after the coordinator itself.
func (c *Coordinator) SetCongestionSender(send congestion.Sender) {
	c.congest = congestion.New(c.ps, c.cipher, send, c.cfg.CongestionLossMax, c.cfg.CongestionIntervalMs, c.cfg.Clock)
}

// Start spins up every worker task: one ingest task, one router task, one
// worker per stream, one output task per stream, and the congestion
// reporter, per spec.md §5.
func (c *Coordinator) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	tasks := []func(context.Context){
		c.ingestPipe.Run,
		func(ctx context.Context) { c.rtr.Run(ctx, c.ingestPipe.Output()) },
		c.runVideoWorker,
		c.runAudioWorker,
		c.out.RunVideo,
		c.out.RunAudio,
		c.congest.Run,
	}
	for _, t := range tasks {
		t := t
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			t(ctx)
		}()
	}
}

// Ingest admits one raw inbound datagram.
func (c *Coordinator) Ingest(datagram []byte) {
	c.ingestPipe.Enqueue(datagram)
}

// FormatControllerState packs a controller snapshot into its outbound
// wire form.
func (c *Coordinator) FormatControllerState(cs feedback.ControllerState) []byte {
	return c.feedback.FormatState(cs)
}

// FormatButtonEvent packs a single button transition into its outbound
// wire form.
func (c *Coordinator) FormatButtonEvent(ev feedback.ButtonEvent) []byte {
	return c.feedback.FormatButtonEvent(ev)
}

// Close cancels every worker task and waits up to shutdownGrace for them to
// exit before returning.
func (c *Coordinator) Close() {
	if c.cancel == nil {
		return
	}
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
	}
}

func (c *Coordinator) runVideoWorker(ctx context.Context) {
	ticker := time.NewTicker(reorderTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.video.Tick(true)
			return
		case pkt := <-c.videoIn:
			c.video.Push(pkt)
			c.video.Tick(false)
		case <-ticker.C:
			c.video.Tick(false)
		}
	}
}

func (c *Coordinator) runAudioWorker(ctx context.Context) {
	ticker := time.NewTicker(reorderTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.audio.Tick(true)
			return
		case pkt := <-c.audioIn:
			c.audio.Push(pkt)
			c.audio.Tick(false)
		case <-ticker.C:
			c.audio.Tick(false)
		}
	}
}
