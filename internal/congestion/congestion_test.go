package congestion

import (
	"encoding/binary"
	"testing"

	"github.com/bugVanisher/remoteplay/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCipher struct {
	gmac   uint32
	keyPos uint64
	err    error
}

func (f *fakeCipher) Decrypt(payload []byte, _ uint64) ([]byte, error) { return payload, nil }
func (f *fakeCipher) Encrypt(payload []byte) ([]byte, uint32, uint64, error) {
	return payload, f.gmac, f.keyPos, f.err
}

func TestBuildDatagramLayout(t *testing.T) {
	ps := &stats.PacketStats{}
	cipher := &fakeCipher{gmac: 0xDEADBEEF, keyPos: 42}
	r := New(ps, cipher, nil, 0, 0, nil)

	datagram, err := r.build(10, 2)
	require.NoError(t, err)
	require.Len(t, datagram, DatagramLen)

	assert.Equal(t, DatagramType, datagram[0])
	assert.Equal(t, uint16(10), binary.BigEndian.Uint16(datagram[3:5]))
	assert.Equal(t, uint16(2), binary.BigEndian.Uint16(datagram[5:7]))
	assert.Equal(t, uint32(0xDEADBEEF), binary.BigEndian.Uint32(datagram[7:11]))
	assert.Equal(t, uint32(42), binary.BigEndian.Uint32(datagram[11:15]))
}

func TestBuildPropagatesCipherError(t *testing.T) {
	ps := &stats.PacketStats{}
	cipher := &fakeCipher{err: assert.AnError}
	r := New(ps, cipher, nil, 0, 0, nil)

	_, err := r.build(1, 1)
	assert.Error(t, err)
}

func TestClampU16(t *testing.T) {
	assert.Equal(t, uint16(5), clampU16(5))
	assert.Equal(t, uint16(0xFFFF), clampU16(1<<20))
}

func TestTickCapsReportedLossAtLossMax(t *testing.T) {
	ps := &stats.PacketStats{}
	ps.AddReceived(50)
	ps.AddLost(50) // 50% loss

	var sent []byte
	cipher := &fakeCipher{}
	r := New(ps, cipher, func(d []byte) error { sent = d; return nil }, 0.1, 1, nil)

	r.tick()
	require.NotNil(t, sent)
	lost := binary.BigEndian.Uint16(sent[5:7])
	// total=100, lossMax=0.1 -> reportedLost capped to 10.
	assert.Equal(t, uint16(10), lost)
}

func TestTickReportsActualLossUnderDefaultNoCap(t *testing.T) {
	ps := &stats.PacketStats{}
	ps.AddReceived(50)
	ps.AddLost(50)

	var sent []byte
	cipher := &fakeCipher{}
	r := New(ps, cipher, func(d []byte) error { sent = d; return nil }, 0, 0, nil)

	r.tick()
	require.NotNil(t, sent)
	lost := binary.BigEndian.Uint16(sent[5:7])
	assert.Equal(t, uint16(50), lost)
}

func TestNewDefaultsIntervalAndLossMax(t *testing.T) {
	r := New(&stats.PacketStats{}, nil, nil, 0, 0, nil)
	assert.Equal(t, float64(DefaultLossMax), r.lossMax)
	assert.Equal(t, DefaultIntervalMs, int(r.interval.Milliseconds()))
}
