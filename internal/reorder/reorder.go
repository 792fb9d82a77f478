// Package reorder implements a generic sliding-window reorder buffer keyed
// by a monotonic sequence number with wraparound, grounded on the
// head/tail-cursor and drop-oldest trimming shape of a ring-buffered stream
// queue but reworked to a single-reader, explicitly driven (Push/Flush, no
// condition-variable wait) design: the owning goroutine calls Flush from
// its own select loop instead of blocking inside the queue, so no lock is
// ever held across a suspension point.
package reorder

import "time"

// DropStrategy names which end of the window an eviction would favor. It is
// carried in Options but the Queue does not read it: the Queue never evicts
// buffered items, and its buffer is not capped at the window size.
type DropStrategy uint8

const (
	DropEnd DropStrategy = iota
	DropStart
)

// Options configures a Queue.
type Options struct {
	SizeStart        int
	SizeMin          int
	SizeMax          int
	TimeoutMs        int
	DropStrategy     DropStrategy
	MaxOutputPerPull int
	SeqBits          uint // 16 or 32; defaults to 32

	OnDrop    func(seq uint32)
	OnTimeout func(seq uint32)
}

type entry[T any] struct {
	item     T
	arrived  time.Time
}

// Queue delivers items to the caller in strictly increasing sequence order,
// absorbing bounded reordering within an adaptive window.
type Queue[T any] struct {
	seqFn func(T) uint32
	opts  Options
	bits  uint

	buf        map[uint32]entry[T]
	cursor     uint32
	cursorSet  bool
	windowCur  int
	pendingAt  time.Time
	hasPending bool
	cleanRuns  int
}

// New constructs a Queue. seqFn extracts the sequence number from an item.
func New[T any](seqFn func(T) uint32, opts Options) *Queue[T] {
	bits := opts.SeqBits
	if bits == 0 {
		bits = 32
	}
	if opts.MaxOutputPerPull <= 0 {
		opts.MaxOutputPerPull = 64
	}
	return &Queue[T]{
		seqFn:     seqFn,
		opts:      opts,
		bits:      bits,
		buf:       make(map[uint32]entry[T]),
		windowCur: opts.SizeStart,
	}
}

func (q *Queue[T]) mod() uint64 {
	return uint64(1) << q.bits
}

// advanceCursor moves the delivery cursor forward by one, wrapping at the
// configured sequence width. A plain cursor++ only wraps correctly when
// bits==32 (via uint32 overflow); at 16 bits the cursor would otherwise
// keep counting past 65535 and drift away from the real 0..65535 keys the
// wrapped sequence numbers actually use.
func (q *Queue[T]) advanceCursor() {
	q.cursor = uint32((uint64(q.cursor) + 1) & (q.mod() - 1))
}

// isOlder reports whether seq lies behind cursor under wraparound-aware
// comparison: (seq - cursor) mod 2^bits > half the space means "older".
func (q *Queue[T]) isOlder(seq uint32) bool {
	if !q.cursorSet {
		return false
	}
	m := q.mod()
	diff := (uint64(seq) - uint64(q.cursor)) & (m - 1)
	return diff > m/2
}

// Push admits item into the window, or invokes OnDrop immediately if its
// sequence is already behind the delivery cursor.
func (q *Queue[T]) Push(item T, now time.Time) {
	seq := q.seqFn(item)
	if !q.cursorSet {
		q.cursor = seq
		q.cursorSet = true
	}
	if q.isOlder(seq) {
		if q.opts.OnDrop != nil {
			q.opts.OnDrop(seq)
		}
		return
	}
	if _, exists := q.buf[seq]; exists {
		return
	}
	q.buf[seq] = entry[T]{item: item, arrived: now}
	if !q.hasPending {
		q.hasPending = true
		q.pendingAt = now
	}
}

// Flush delivers the longest contiguous run starting at the cursor, up to
// MaxOutputPerPull items. When force is true it also breaks through gaps
// (as at shutdown or an explicit resync), invoking OnTimeout for every
// sequence it skips over, and drains the whole window.
func (q *Queue[T]) Flush(force bool, now time.Time) []T {
	var out []T

	if !force && q.hasPending && q.opts.TimeoutMs > 0 {
		if now.Sub(q.pendingAt) > time.Duration(q.opts.TimeoutMs)*time.Millisecond {
			q.skipGapAtCursor()
		}
	}

	for {
		if !force && len(out) >= q.opts.MaxOutputPerPull {
			break
		}
		e, ok := q.buf[q.cursor]
		if !ok {
			if !force {
				break
			}
			if len(q.buf) == 0 {
				break
			}
			q.skipGapAtCursor()
			e, ok = q.buf[q.cursor]
			if !ok {
				continue
			}
		}
		out = append(out, e.item)
		delete(q.buf, q.cursor)
		q.advanceCursor()
		q.hasPending = len(q.buf) > 0
		q.pendingAt = now
	}

	q.adjustWindow(len(out) > 0)
	return out
}

// skipGapAtCursor advances the cursor to the next present sequence number,
// firing OnTimeout for every sequence skipped.
func (q *Queue[T]) skipGapAtCursor() {
	if len(q.buf) == 0 {
		return
	}
	target := q.nearestPresentSeq()
	for q.cursor != target {
		if q.opts.OnTimeout != nil {
			q.opts.OnTimeout(q.cursor)
		}
		q.advanceCursor()
	}
}

func (q *Queue[T]) nearestPresentSeq() uint32 {
	best := q.cursor
	bestDist := uint64(1) << 63
	for seq := range q.buf {
		d := (uint64(seq) - uint64(q.cursor)) & (q.mod() - 1)
		if d < bestDist {
			bestDist = d
			best = seq
		}
	}
	return best
}

func (q *Queue[T]) adjustWindow(delivered bool) {
	if len(q.buf) > q.windowCur/2 {
		q.cleanRuns = 0
		if q.windowCur < q.opts.SizeMax {
			q.windowCur++
		}
		return
	}
	if delivered && len(q.buf) == 0 {
		q.cleanRuns++
		if q.cleanRuns > 4 && q.windowCur > q.opts.SizeMin {
			q.windowCur--
			q.cleanRuns = 0
		}
	}
}

// Len reports how many items are currently buffered.
func (q *Queue[T]) Len() int {
	return len(q.buf)
}

// WindowSize reports the current adaptive window size.
func (q *Queue[T]) WindowSize() int {
	return q.windowCur
}
