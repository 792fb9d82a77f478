package receiver

import "time"

// Config carries the tunables spec.md §6 enumerates for the reference-chain
// and reorder-timeout behavior of a receiver instance.
type Config struct {
	FrameFailureGraceMs     int
	ReferenceChainTimeoutMs int
	MaxConsecutiveDropped   int
	MaxConsecutiveBypass    int

	ReorderSizeStart int
	ReorderSizeMin   int
	ReorderSizeMax   int
	ReorderTimeoutMs int

	AudioStartupSuccessThreshold int
}

// DefaultConfig matches spec.md §6's defaults.
func DefaultConfig() Config {
	return Config{
		FrameFailureGraceMs:          500,
		ReferenceChainTimeoutMs:      300,
		MaxConsecutiveDropped:        2,
		MaxConsecutiveBypass:         5,
		ReorderSizeStart:             192,
		ReorderSizeMin:               128,
		ReorderSizeMax:               512,
		ReorderTimeoutMs:             300,
		AudioStartupSuccessThreshold: 3,
	}
}

func (c Config) graceWindow() time.Duration {
	return time.Duration(c.FrameFailureGraceMs) * time.Millisecond
}

func (c Config) chainTimeout() time.Duration {
	return time.Duration(c.ReferenceChainTimeoutMs) * time.Millisecond
}
