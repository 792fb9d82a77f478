package output

import "github.com/bugVanisher/remoteplay/internal/receiver"

// queue is a bounded, drop-oldest channel of frames with key-frame
// preservation on overflow, grounded on the teacher's GOP-aware
// drop-oldest trimming loop (media/av/queue.Queue.WritePacket) but
// reworked onto a channel since this pipeline has exactly one producer and
// one consumer per stream rather than many reader cursors over a shared
// ring. Channels have no native "peek the second-oldest slot and discard
// it" operation, so overflow handling pulls the head out, inspects it, and
// either discards it or puts it back before enqueuing the new frame.
type queue struct {
	ch chan receiver.ProcessedFrame
	cap int
}

func newQueue(capacity int) *queue {
	return &queue{ch: make(chan receiver.ProcessedFrame, capacity), cap: capacity}
}

// push enqueues pf, applying drop-oldest-with-key-frame-preservation when
// the queue is at or above 80% full.
func (q *queue) push(pf receiver.ProcessedFrame) {
	threshold := (q.cap * 8) / 10
	keyFramePreemption := pf.IsKey && len(q.ch) >= threshold

	if !keyFramePreemption && len(q.ch) < q.cap {
		select {
		case q.ch <- pf:
			return
		default:
		}
	}

	if keyFramePreemption {
		var head receiver.ProcessedFrame
		select {
		case head = <-q.ch:
			if head.IsKey {
				// head was itself a key-frame: put it back at the head,
				// ahead of the frames still queued, and drop the incoming
				// one instead of displacing an existing key-frame.
				rest := make([]receiver.ProcessedFrame, 0, len(q.ch))
			drainRest:
				for {
					select {
					case f := <-q.ch:
						rest = append(rest, f)
					default:
						break drainRest
					}
				}
				q.forceSend(head)
				for _, f := range rest {
					q.forceSend(f)
				}
				return
			}
		default:
		}
		q.forceSend(pf)
		return
	}

	// drop-oldest: discard the head to make room.
	select {
	case <-q.ch:
	default:
	}
	q.forceSend(pf)
}

// forceSend enqueues pf, dropping the new head if the channel filled again
// in the meantime (bounded retry, never blocks the producer).
func (q *queue) forceSend(pf receiver.ProcessedFrame) {
	select {
	case q.ch <- pf:
		return
	default:
	}
	select {
	case <-q.ch:
	default:
	}
	select {
	case q.ch <- pf:
	default:
	}
}

func (q *queue) len() int {
	return len(q.ch)
}
