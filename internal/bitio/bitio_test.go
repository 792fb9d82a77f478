package bitio

import (
	"testing"

	"github.com/bugVanisher/remoteplay/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBitsMSBFirst(t *testing.T) {
	r := NewReader([]byte{0b10110010, 0b01000000})
	v, err := r.ReadBits(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b1011), v)

	v, err = r.ReadBits(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b0010), v)
}

func TestPeekDoesNotConsume(t *testing.T) {
	r := NewReader([]byte{0xAB})
	peeked, err := r.Peek(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xAB), peeked)
	assert.Equal(t, 8, r.BitsLeft())

	read, err := r.ReadBits(8)
	require.NoError(t, err)
	assert.Equal(t, peeked, read)
	assert.Equal(t, 0, r.BitsLeft())
}

func TestReadBitsTruncated(t *testing.T) {
	r := NewReader([]byte{0xFF})
	_, err := r.ReadBits(9)
	assert.ErrorIs(t, err, errs.ErrTruncated)
}

func TestSkip(t *testing.T) {
	r := NewReader([]byte{0xFF, 0x0F})
	require.NoError(t, r.Skip(8))
	v, err := r.ReadBits(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0F), v)
}

func TestReadUE(t *testing.T) {
	// ue(0)="1", ue(1)="010", ue(2)="011", ue(3)="00100"
	r := NewReader([]byte{0b1_010_011_0, 0b0100_0000})
	v, err := r.ReadUE()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), v)

	v, err = r.ReadUE()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v)

	v, err = r.ReadUE()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), v)

	v, err = r.ReadUE()
	require.NoError(t, err)
	assert.Equal(t, uint32(3), v)
}

func TestReadSE(t *testing.T) {
	// se mapping: codeNum 0->0, 1->1, 2->-1, 3->2, 4->-2
	// ue(0)="1" -> se=0 ; ue(1)="010" -> se=1 ; ue(2)="011" -> se=-1
	r := NewReader([]byte{0b1_010_011_0, 0})
	v, err := r.ReadSE()
	require.NoError(t, err)
	assert.Equal(t, int32(0), v)

	v, err = r.ReadSE()
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)

	v, err = r.ReadSE()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), v)
}

// TestEmulationPreventionCorrectness is the spec's testable property: for
// any byte sequence containing 00 00 03 xx, the reader must return the
// same bits as if the 03 were absent.
func TestEmulationPreventionCorrectness(t *testing.T) {
	withEscape := []byte{0x00, 0x00, 0x03, 0xAB, 0xCD}
	withoutEscape := []byte{0x00, 0x00, 0xAB, 0xCD}

	rWith := NewReader(withEscape)
	rWithout := NewReader(withoutEscape)

	vWith, err := rWith.ReadBits(rWith.BitsLeft())
	require.NoError(t, err)
	vWithout, err := rWithout.ReadBits(rWithout.BitsLeft())
	require.NoError(t, err)

	assert.Equal(t, vWithout, vWith)
}

func TestRewriteBitRoundTripsThroughOriginalPositions(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x03, 0b10101010, 0xFF}
	r := NewReader(buf)

	// Walk to the bit corresponding to the MSB of the de-emulated byte
	// 0b10101010 (rbsp byte index 2, since the 0x03 was dropped).
	require.NoError(t, r.Skip(16)) // the two leading 0x00 bytes
	pos := r.BitPosition()
	// pos must point at the MSB of buf[3] (0b10101010), i.e. bit 24 in the
	// original buffer (3 bytes * 8), since the emulation-prevention byte at
	// buf[2] contributes zero rbsp bits.
	assert.Equal(t, 3*8, pos)

	require.NoError(t, r.RewriteBit(pos, 0))
	assert.Equal(t, byte(0b00101010), buf[3])

	require.NoError(t, r.RewriteBit(pos, 1))
	assert.Equal(t, byte(0b10101010), buf[3])

	// The emulation-prevention byte itself, and bytes before/after, must be
	// untouched by the rewrite.
	assert.Equal(t, byte(0x03), buf[2])
	assert.Equal(t, byte(0xFF), buf[4])
}

func TestBitstreamRoundTripUntouchedNAL(t *testing.T) {
	original := []byte{0x01, 0x02, 0x00, 0x00, 0x03, 0x04, 0x05}
	clone := append([]byte(nil), original...)
	r := NewReader(clone)
	// Read every bit without any rewrite: the underlying buffer must be
	// byte-identical to the original.
	for r.BitsLeft() > 0 {
		n := r.BitsLeft()
		if n > 32 {
			n = 32
		}
		_, err := r.ReadBits(n)
		require.NoError(t, err)
	}
	assert.Equal(t, original, clone)
}
