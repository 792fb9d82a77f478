// Package ingest owns the stream cipher and turns raw inbound datagrams
// into parsed, decrypted AVPackets, grounded on the teacher's injectable
// hook-callback style (pusher.RtmpOverTcpUpStreamer.publish's
// AfterReadPacket/AfterWritePacket options) generalized into an injected
// Cipher capability, and on media/av/transport.go's context-cancellation
// idiom for the receive loop.
package ingest

import (
	"context"
	"sync/atomic"

	"github.com/bugVanisher/remoteplay/internal/avtransport"
	"github.com/bugVanisher/remoteplay/internal/errs"
	"github.com/bugVanisher/remoteplay/utils"
	"github.com/rs/zerolog/log"
)

// InputQueueSize is the bounded, drop-oldest depth of the raw-datagram
// input channel (spec.md §5: drop-oldest at 2048 datagrams).
const InputQueueSize = 2048

// Pipeline receives raw datagrams, parses the transport header, and
// decrypts the payload serially (key_pos only advances in arrival order,
// so decryption must not race itself).
type Pipeline struct {
	cipher Cipher

	in  chan []byte
	out chan *avtransport.Packet

	parseErrors   uint64
	decryptErrors uint64
}

// New constructs a Pipeline. A nil cipher is a fatal construction-time
// error per spec.md §7.
func New(cipher Cipher, outBuf int) (*Pipeline, error) {
	if cipher == nil {
		return nil, errs.ErrCipherMissing
	}
	return &Pipeline{
		cipher: cipher,
		in:     make(chan []byte, InputQueueSize),
		out:    make(chan *avtransport.Packet, outBuf),
	}, nil
}

// Output returns the channel parsed, decrypted packets are published on.
func (p *Pipeline) Output() <-chan *avtransport.Packet {
	return p.out
}

// Enqueue admits a raw datagram, dropping the oldest queued datagram if the
// input channel is full.
func (p *Pipeline) Enqueue(datagram []byte) {
	select {
	case p.in <- datagram:
		return
	default:
	}
	select {
	case <-p.in:
	default:
	}
	select {
	case p.in <- datagram:
	default:
	}
}

// ParseErrors returns the running count of malformed-header datagrams.
func (p *Pipeline) ParseErrors() uint64 {
	return atomic.LoadUint64(&p.parseErrors)
}

// DecryptErrors returns the running count of decrypt failures.
func (p *Pipeline) DecryptErrors() uint64 {
	return atomic.LoadUint64(&p.decryptErrors)
}

// Run is the ingest task's main loop: strictly serial through decrypt,
// single reader on p.in. It returns when ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	for {
		if utils.ContextDone(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case raw := <-p.in:
			p.handle(raw)
		}
	}
}

func (p *Pipeline) handle(raw []byte) {
	pkt, err := avtransport.Parse(raw)
	if err != nil {
		atomic.AddUint64(&p.parseErrors, 1)
		log.Debug().Err(err).Msg("ingest: dropping malformed datagram")
		return
	}
	decrypted, err := p.cipher.Decrypt(pkt.Payload, pkt.KeyPos)
	if err != nil {
		atomic.AddUint64(&p.decryptErrors, 1)
		log.Debug().Err(err).Uint64("key_pos", pkt.KeyPos).Msg("ingest: decrypt failed")
		return
	}
	pkt.Payload = decrypted

	select {
	case p.out <- pkt:
	default:
		// output channel full: drop-oldest to bound latency, same policy as
		// the input queue.
		select {
		case <-p.out:
		default:
		}
		p.out <- pkt
	}
}
