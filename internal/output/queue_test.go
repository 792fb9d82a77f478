package output

import (
	"testing"

	"github.com/bugVanisher/remoteplay/internal/receiver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(q *queue) []receiver.ProcessedFrame {
	var out []receiver.ProcessedFrame
	for {
		select {
		case pf := <-q.ch:
			out = append(out, pf)
		default:
			return out
		}
	}
}

func TestQueuePushUnderCapacityNeverDrops(t *testing.T) {
	q := newQueue(4)
	for i := uint16(0); i < 3; i++ {
		q.push(receiver.ProcessedFrame{FrameIndex: i})
	}
	assert.Equal(t, 3, q.len())
	out := drain(q)
	require.Len(t, out, 3)
	assert.Equal(t, uint16(0), out[0].FrameIndex)
	assert.Equal(t, uint16(2), out[2].FrameIndex)
}

func TestQueueDropsOldestWhenFullAndIncomingIsNotKey(t *testing.T) {
	q := newQueue(2)
	q.push(receiver.ProcessedFrame{FrameIndex: 0})
	q.push(receiver.ProcessedFrame{FrameIndex: 1})
	// queue is now full; pushing a third non-key frame must evict the
	// oldest (frame 0).
	q.push(receiver.ProcessedFrame{FrameIndex: 2})

	out := drain(q)
	require.Len(t, out, 2)
	assert.Equal(t, uint16(1), out[0].FrameIndex)
	assert.Equal(t, uint16(2), out[1].FrameIndex)
}

func TestQueuePreservesExistingKeyFrameOverIncomingKeyFrame(t *testing.T) {
	q := newQueue(2) // threshold = (2*8)/10 = 1
	q.push(receiver.ProcessedFrame{FrameIndex: 0, IsKey: true})
	q.push(receiver.ProcessedFrame{FrameIndex: 1})
	// queue full (len=2 >= threshold 1); incoming is a key frame, but head
	// (frame 0) is itself a key frame -- the incoming one must be dropped,
	// not the existing key frame.
	q.push(receiver.ProcessedFrame{FrameIndex: 2, IsKey: true})

	out := drain(q)
	require.Len(t, out, 2)
	assert.Equal(t, uint16(0), out[0].FrameIndex)
	assert.True(t, out[0].IsKey)
	assert.Equal(t, uint16(1), out[1].FrameIndex)
}

func TestQueueDropsNonKeyHeadToMakeRoomForIncomingKeyFrame(t *testing.T) {
	q := newQueue(2)
	q.push(receiver.ProcessedFrame{FrameIndex: 0})
	q.push(receiver.ProcessedFrame{FrameIndex: 1})
	// both slots full with non-key frames; an incoming key frame should
	// displace the oldest non-key frame to guarantee it gets through.
	q.push(receiver.ProcessedFrame{FrameIndex: 2, IsKey: true})

	out := drain(q)
	require.Len(t, out, 2)
	assert.Equal(t, uint16(1), out[0].FrameIndex)
	assert.Equal(t, uint16(2), out[1].FrameIndex)
	assert.True(t, out[1].IsKey)
}

func TestQueuePreemptsBeforeReachingCapacityWhenAboveThreshold(t *testing.T) {
	q := newQueue(10) // threshold = (10*8)/10 = 8
	for i := uint16(0); i < 8; i++ {
		q.push(receiver.ProcessedFrame{FrameIndex: i})
	}
	// queue holds 8/10 items (exactly the 80% threshold) with two slots still
	// free; a key-frame arriving here must still preempt the head rather
	// than simply appending and growing the backlog to 9.
	q.push(receiver.ProcessedFrame{FrameIndex: 8, IsKey: true})

	out := drain(q)
	require.Len(t, out, 8)
	assert.Equal(t, uint16(1), out[0].FrameIndex)
	assert.Equal(t, uint16(8), out[7].FrameIndex)
	assert.True(t, out[7].IsKey)
}

func TestQueueLenReflectsBufferedCount(t *testing.T) {
	q := newQueue(4)
	assert.Equal(t, 0, q.len())
	q.push(receiver.ProcessedFrame{})
	assert.Equal(t, 1, q.len())
}
