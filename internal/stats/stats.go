// Package stats holds the small synchronised counter types the spec's
// design notes require in place of the source's global/shared mutable
// stats: fine-grained mutexes over small state, with ConsumeAndReset
// delta-reporting, adapted from the teacher's periodic statistic rollup
// idiom (a ticker reads deltas out of a counter struct under a mutex).
package stats

import "sync"

// PacketStats accumulates received/lost packet counts for one stream. It
// supports dual-mode accounting: callers bump generation-scoped deltas via
// AddReceived/AddLost as packets arrive, and a periodic reporter drains
// them with ConsumeAndReset.
type PacketStats struct {
	mu       sync.Mutex
	received uint64
	lost     uint64
}

func (s *PacketStats) AddReceived(n uint64) {
	s.mu.Lock()
	s.received += n
	s.mu.Unlock()
}

func (s *PacketStats) AddLost(n uint64) {
	s.mu.Lock()
	s.lost += n
	s.mu.Unlock()
}

// ConsumeAndReset returns the accumulated (received, lost) counts and
// zeroes them, for periodic delta reporting.
func (s *PacketStats) ConsumeAndReset() (received, lost uint64) {
	s.mu.Lock()
	received, lost = s.received, s.lost
	s.received, s.lost = 0, 0
	s.mu.Unlock()
	return
}

// StreamStats tracks rolling byte/frame counters for rate reporting.
type StreamStats struct {
	mu          sync.Mutex
	bytesTotal  uint64
	framesTotal uint64
}

func (s *StreamStats) AddFrame(nbytes int) {
	s.mu.Lock()
	s.bytesTotal += uint64(nbytes)
	s.framesTotal++
	s.mu.Unlock()
}

// Snapshot returns a point-in-time copy without resetting the counters.
func (s *StreamStats) Snapshot() (bytesTotal, framesTotal uint64) {
	s.mu.Lock()
	bytesTotal, framesTotal = s.bytesTotal, s.framesTotal
	s.mu.Unlock()
	return
}

// Snapshot is a plain-data copy of both counter families, with JSON field
// tags. Coordinator.DebugSnapshot dumps pipeline.Stats, not this type.
type Snapshot struct {
	PacketsReceived uint64 `json:"packets_received"`
	PacketsLost     uint64 `json:"packets_lost"`
	BytesTotal      uint64 `json:"bytes_total"`
	FramesTotal     uint64 `json:"frames_total"`
}
