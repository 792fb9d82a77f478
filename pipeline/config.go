// Package pipeline exposes the module's public API: PipelineCoordinator
// owns every worker task's lifetime, wires the internal channels together,
// and is constructed through a functional-options Config the same way the
// teacher builds media/av.Options/media/protocol/rtmp.Option.
package pipeline

import (
	"time"

	"github.com/bugVanisher/remoteplay/internal/congestion"
	"github.com/bugVanisher/remoteplay/internal/frame"
	"github.com/bugVanisher/remoteplay/internal/output"
	"github.com/bugVanisher/remoteplay/internal/receiver"
	"github.com/rs/zerolog"
)

// Config collects every tunable spec.md §6 enumerates, with defaults
// matching the spec.
type Config struct {
	Profiles      []frame.VideoProfile
	AudioUnitSize int

	Receiver receiver.Config

	VideoQueueSize int
	AudioQueueSize int

	CongestionIntervalMs int
	CongestionLossMax    float64

	IsPS5 bool

	Clock  func() time.Time
	Logger zerolog.Logger

	OnCorruptFrame   func(from, to uint16)
	OnRequestKeyframe func()
}

func defaultConfig() Config {
	return Config{
		Receiver:             receiver.DefaultConfig(),
		VideoQueueSize:       output.DefaultVideoQueueSize,
		AudioQueueSize:       output.DefaultAudioQueueSize,
		CongestionIntervalMs: congestion.DefaultIntervalMs,
		CongestionLossMax:    congestion.DefaultLossMax,
		Clock:                time.Now,
		Logger:               zerolog.Nop(),
	}
}

// Option mutates a Config at construction time.
type Option func(*Config)

// WithProfiles sets the initial video profile set. At least one is
// required; spec.md §7 treats a missing/mismatched profile array as a
// fatal construction-time error.
func WithProfiles(profiles []frame.VideoProfile) Option {
	return func(c *Config) { c.Profiles = profiles }
}

// WithAudioUnitSize sets the fixed audio unit truncation length.
func WithAudioUnitSize(n int) Option {
	return func(c *Config) { c.AudioUnitSize = n }
}

// WithReceiverConfig overrides the reorder/grace-period/reference-chain
// tunables.
func WithReceiverConfig(rc receiver.Config) Option {
	return func(c *Config) { c.Receiver = rc }
}

// WithQueueSizes overrides the per-stream output queue depths.
func WithQueueSizes(video, audio int) Option {
	return func(c *Config) { c.VideoQueueSize, c.AudioQueueSize = video, audio }
}

// WithCongestion overrides the congestion-report interval and loss cap.
func WithCongestion(intervalMs int, lossMax float64) Option {
	return func(c *Config) { c.CongestionIntervalMs, c.CongestionLossMax = intervalMs, lossMax }
}

// WithPS5 selects the 28-byte PS5 feedback frame layout over the default
// 25-byte PS4 layout.
func WithPS5(isPS5 bool) Option {
	return func(c *Config) { c.IsPS5 = isPS5 }
}

// WithClock injects a deterministic clock, used by tests to exercise the
// reorder-timeout/grace-period/congestion-tick logic without wall-clock
// sleeps.
func WithClock(fn func() time.Time) Option {
	return func(c *Config) { c.Clock = fn }
}

// WithLogger stores l in Config.Logger. The coordinator and the internal
// packages do not read that field: all of them log through the global
// zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithCorruptFrameHandler registers the callback invoked when the video
// receiver detects a corrupt or lost frame range.
func WithCorruptFrameHandler(fn func(from, to uint16)) Option {
	return func(c *Config) { c.OnCorruptFrame = fn }
}

// WithKeyframeRequestHandler registers the callback invoked when the
// receiver wants the host to request a keyframe from the sender.
func WithKeyframeRequestHandler(fn func()) Option {
	return func(c *Config) { c.OnRequestKeyframe = fn }
}
