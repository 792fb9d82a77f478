package pipeline

import (
	jsoniter "github.com/json-iterator/go"
)

// Stats is a point-in-time snapshot of pipeline telemetry, exposed for
// host-side logging/debugging. The pipeline itself never persists it.
type Stats struct {
	FramesLostVideo uint64 `json:"frames_lost_video"`
	ChainBroken     bool   `json:"chain_broken"`
	ParseErrors     uint64 `json:"parse_errors"`
	DecryptErrors   uint64 `json:"decrypt_errors"`
}

// Stats returns the current pipeline telemetry snapshot.
func (c *Coordinator) Stats() Stats {
	return Stats{
		FramesLostVideo: c.video.FramesLost(),
		ChainBroken:     c.video.ChainBroken(),
		ParseErrors:     c.ingestPipe.ParseErrors(),
		DecryptErrors:   c.ingestPipe.DecryptErrors(),
	}
}

// DebugSnapshot dumps the current Stats as JSON, mirroring
// h264parser.ParseSEI's jsoniter.Unmarshal use for embedded SEI payloads.
func (c *Coordinator) DebugSnapshot() (string, error) {
	b, err := jsoniter.Marshal(c.Stats())
	if err != nil {
		return "", err
	}
	return string(b), nil
}
