package cmd

import (
	"context"
	"io"
	"net"
	"os"
	"time"

	"github.com/bugVanisher/remoteplay/internal/frame"
	"github.com/bugVanisher/remoteplay/pipeline"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// passthroughCipher is a non-encrypting stand-in for the real AES-GCM
// stream-cipher capability, used only by this manual smoke-test command:
// the pipeline never owns socket-level crypto in production (spec.md §1).
type passthroughCipher struct{}

func (passthroughCipher) Decrypt(payload []byte, _ uint64) ([]byte, error) {
	return payload, nil
}

func (passthroughCipher) Encrypt(payload []byte) ([]byte, uint32, uint64, error) {
	return payload, 0, 0, nil
}

// fileSink writes elementary-stream payloads straight to disk, stripping
// the leading stream-type tag output.Pipeline prefixes onto every buffer.
type fileSink struct {
	video io.Writer
	audio io.Writer
}

func (s *fileSink) OnVideoPacket(data []byte) {
	s.write(s.video, data)
}

func (s *fileSink) OnVideoPacketPriority(data []byte) {
	s.write(s.video, data)
}

func (s *fileSink) OnAudioPacket(data []byte) {
	s.write(s.audio, data)
}

func (s *fileSink) write(w io.Writer, data []byte) {
	if w == nil || len(data) < 1 {
		return
	}
	if _, err := w.Write(data[1:]); err != nil {
		log.Warn().Err(err).Msg("listen: sink write failed")
	}
}

type listenArgs struct {
	addr          string
	videoOut      string
	audioOut      string
	width         int
	height        int
	audioUnitSize int
	ps5           bool
}

var listenOpts listenArgs

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Listen on a UDP socket and run the AV pipeline against it (manual smoke test)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runListen(cmd, listenOpts, duration)
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().StringVarP(&listenOpts.addr, "addr", "a", ":9303", "UDP address to listen on")
	listenCmd.Flags().StringVar(&listenOpts.videoOut, "video-out", "video.h264", "file to write reassembled video elementary stream to")
	listenCmd.Flags().StringVar(&listenOpts.audioOut, "audio-out", "audio.opus", "file to write reassembled audio frames to")
	listenCmd.Flags().IntVar(&listenOpts.width, "width", 1280, "profile 0 width, for the demo profile header")
	listenCmd.Flags().IntVar(&listenOpts.height, "height", 720, "profile 0 height, for the demo profile header")
	listenCmd.Flags().IntVar(&listenOpts.audioUnitSize, "audio-unit-size", 480, "fixed audio unit truncation length")
	listenCmd.Flags().BoolVar(&listenOpts.ps5, "ps5", false, "use the 28-byte PS5 feedback frame layout instead of PS4's 25-byte layout")
}

func runListen(cmd *cobra.Command, opts listenArgs, dur time.Duration) error {
	videoFile, err := os.OpenFile(opts.videoOut, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer videoFile.Close()

	audioFile, err := os.OpenFile(opts.audioOut, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer audioFile.Close()

	sink := &fileSink{video: videoFile, audio: audioFile}

	// A minimal profile with no real SPS: good enough to let frames flow
	// through for a manual smoke test against a raw transport capture. A
	// real host supplies the host's actual STREAMINFO-derived header.
	profile := frame.NewVideoProfile(0, opts.width, opts.height, nil)

	coord, err := pipeline.New(passthroughCipher{}, sink,
		pipeline.WithProfiles([]frame.VideoProfile{profile}),
		pipeline.WithAudioUnitSize(opts.audioUnitSize),
		pipeline.WithPS5(opts.ps5),
		pipeline.WithCorruptFrameHandler(func(from, to uint16) {
			log.Warn().Uint16("from", from).Uint16("to", to).Msg("listen: corrupt frame range")
		}),
		pipeline.WithKeyframeRequestHandler(func() {
			log.Info().Msg("listen: keyframe requested")
		}),
	)
	if err != nil {
		return err
	}

	conn, err := net.ListenPacket("udp", opts.addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var cancel context.CancelFunc
	if dur > 0 {
		ctx, cancel = context.WithTimeout(ctx, dur)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	coord.Start(ctx)
	defer coord.Close()

	go logStats(ctx, coord)

	buf := make([]byte, 65536)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond)); err != nil {
			return err
		}
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		coord.Ingest(datagram)
	}
}

func logStats(ctx context.Context, coord *pipeline.Coordinator) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := coord.Stats()
			log.Info().
				Uint64("frames_lost_video", stats.FramesLostVideo).
				Bool("chain_broken", stats.ChainBroken).
				Uint64("parse_errors", stats.ParseErrors).
				Uint64("decrypt_errors", stats.DecryptErrors).
				Msg("listen: pipeline stats")
		}
	}
}
