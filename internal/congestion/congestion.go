// Package congestion implements the periodic congestion-control datagram:
// a 200 ms tick that drains PacketStats and reports a (possibly capped)
// loss count upstream, grounded on the teacher's ticker-driven periodic
// stat rollup (statistics/periodic_statistic.go) and its
// time.Ticker-per-interval logging idiom (pusher.rtmp.go).
package congestion

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/bugVanisher/remoteplay/internal/ingest"
	"github.com/bugVanisher/remoteplay/internal/stats"
	"github.com/bugVanisher/remoteplay/utils"
)

// DatagramType is the transport packet type byte for a congestion report.
const DatagramType uint8 = 0x05

// DatagramLen is the fixed size of the congestion datagram.
const DatagramLen = 1 + 2 + 2 + 2 + 4 + 4

// DefaultIntervalMs and DefaultLossMax match spec.md §6's defaults (the
// 1.0 "no cap" value, per spec.md §9's note that the source toggled this
// between several historical values; the spec pins it at the latest one).
const (
	DefaultIntervalMs = 200
	DefaultLossMax    = 1.0
)

// Sender transmits a finished congestion datagram upstream.
type Sender func(datagram []byte) error

// Reporter owns the 200 ms tick that builds and sends the congestion
// datagram.
type Reporter struct {
	ps       *stats.PacketStats
	cipher   ingest.Cipher
	send     Sender
	lossMax  float64
	interval time.Duration
	clock    func() time.Time
}

func New(ps *stats.PacketStats, cipher ingest.Cipher, send Sender, lossMax float64, intervalMs int, clock func() time.Time) *Reporter {
	if intervalMs <= 0 {
		intervalMs = DefaultIntervalMs
	}
	if lossMax <= 0 {
		lossMax = DefaultLossMax
	}
	if clock == nil {
		clock = time.Now
	}
	return &Reporter{
		ps:       ps,
		cipher:   cipher,
		send:     send,
		lossMax:  lossMax,
		interval: time.Duration(intervalMs) * time.Millisecond,
		clock:    clock,
	}
}

// Run ticks every r.interval until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if utils.ContextDone(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

func (r *Reporter) tick() {
	received, lost := r.ps.ConsumeAndReset()
	total := received + lost
	reportedLost := lost
	if total > 0 {
		loss := float64(lost) / float64(total)
		if loss > r.lossMax {
			reportedLost = uint64(float64(total) * r.lossMax)
		}
	}

	datagram, err := r.build(received, reportedLost)
	if err != nil || r.send == nil {
		return
	}
	_ = r.send(datagram)
}

func (r *Reporter) build(received, lost uint64) ([]byte, error) {
	buf := make([]byte, DatagramLen)
	buf[0] = DatagramType
	binary.BigEndian.PutUint16(buf[1:3], 0) // word_0, reserved
	binary.BigEndian.PutUint16(buf[3:5], clampU16(received))
	binary.BigEndian.PutUint16(buf[5:7], clampU16(lost))

	var gmac uint32
	var keyPos uint64
	if r.cipher != nil {
		_, g, kp, err := r.cipher.Encrypt(buf[:7])
		if err != nil {
			return nil, err
		}
		gmac, keyPos = g, kp
	}
	binary.BigEndian.PutUint32(buf[7:11], gmac)
	binary.BigEndian.PutUint32(buf[11:15], uint32(keyPos))
	return buf, nil
}

func clampU16(v uint64) uint16 {
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}
