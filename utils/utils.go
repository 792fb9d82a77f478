package utils

import (
	"context"
	"encoding/binary"
	"runtime"
	"time"
)

// TimeToTs converts a duration to a millisecond timestamp.
func TimeToTs(tm time.Duration) int32 {
	return int32(tm / time.Millisecond)
}

// PtsToTime converts a 90kHz pts to a duration.
func PtsToTime(pts int64) time.Duration {
	return time.Duration(pts/90) * time.Millisecond
}

// ContextDone reports whether ctx has already been cancelled or timed out.
func ContextDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// PanicRecover recovers from a panic and returns the formatted stack, or ""
// if there was nothing to recover.
func PanicRecover() string {
	if r := recover(); r != nil {
		const size = 64 << 10
		buf := make([]byte, size)
		buf = buf[:runtime.Stack(buf, false)]
		return string(buf)
	}
	return ""
}

func Uint64ToBytes(i uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, i)
	return buf
}

func BytesToUint64(buf []byte) uint64 {
	return binary.BigEndian.Uint64(buf)
}

func Uint32ToBytes(i uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, i)
	return buf
}

func BytesToUint32(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf)
}

func Uint16ToBytes(i uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, i)
	return buf
}

func BytesToUint16(buf []byte) uint16 {
	return binary.BigEndian.Uint16(buf)
}
