package bitstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildH264SPS(profileIdc uint8, logFrameNum uint32, scalingMatrixPresent bool) []byte {
	w := newBitWriter()
	w.writeBits(uint64(profileIdc), 8)
	w.writeBits(0, 8) // constraint_set flags + reserved
	w.writeBits(30, 8) // level_idc
	w.writeUE(0)      // seq_parameter_set_id

	switch profileIdc {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		w.writeUE(1) // chroma_format_idc
		w.writeUE(0) // bit_depth_luma_minus8
		w.writeUE(0) // bit_depth_chroma_minus8
		w.writeBit(0) // qpprime_y_zero_transform_bypass_flag
		if scalingMatrixPresent {
			w.writeBit(1)
			return wrapNAL(h264Header(3, 7), w.bytes())
		}
		w.writeBit(0)
	}

	w.writeUE(logFrameNum)
	return wrapNAL(h264Header(3, 7), w.bytes())
}

func buildH265SPS(logPOCLsb uint32) []byte {
	w := newBitWriter()
	w.writeBits(0, 4) // sps_video_parameter_set_id
	w.writeBits(0, 3) // sps_max_sub_layers_minus1
	w.writeBit(0)     // sps_temporal_id_nesting_flag

	// profile_tier_level(maxSubLayersMinus1=0): 8+32+4+44+8 = 96 bits.
	w.writeBits(0, 8)
	w.writeBits(0, 32)
	w.writeBits(0, 4)
	w.writeBits(0, 44)
	w.writeBits(90, 8)

	w.writeUE(0)    // sps_seq_parameter_set_id
	w.writeUE(1)    // chroma_format_idc
	w.writeUE(1920) // pic_width_in_luma_samples
	w.writeUE(1080) // pic_height_in_luma_samples
	w.writeBit(0)   // conformance_window_flag
	w.writeUE(0)    // bit_depth_luma_minus8
	w.writeUE(0)    // bit_depth_chroma_minus8
	w.writeUE(logPOCLsb)

	return wrapNAL(h265Header(33), w.bytes())
}

func TestParseHeaderH264(t *testing.T) {
	header := buildH264SPS(66, 2, false)
	sps, err := ParseHeader(header, CodecH264)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), sps.Log2MaxFrameNumMinus4)
}

func TestParseHeaderH264RejectsScalingMatrix(t *testing.T) {
	header := buildH264SPS(100, 0, true)
	_, err := ParseHeader(header, CodecH264)
	assert.Error(t, err)
}

func TestParseHeaderH264RejectsOutOfRangeLog2MaxFrameNum(t *testing.T) {
	header := buildH264SPS(66, 13, false)
	_, err := ParseHeader(header, CodecH264)
	assert.Error(t, err)
}

func TestParseHeaderH265(t *testing.T) {
	header := buildH265SPS(4)
	sps, err := ParseHeader(header, CodecH265)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), sps.Log2MaxPicOrderCntLsbMinus4)
}

func TestParseHeaderH265SkipsVPS(t *testing.T) {
	vps := wrapNAL(h265Header(32), []byte{0xDE, 0xAD, 0xBE, 0xEF})
	sps := buildH265SPS(6)
	header := concatNALs(vps, sps)

	info, err := ParseHeader(header, CodecH265)
	require.NoError(t, err)
	assert.Equal(t, uint32(6), info.Log2MaxPicOrderCntLsbMinus4)
}

func TestParseHeaderMissingSPS(t *testing.T) {
	_, err := ParseHeader([]byte{}, CodecH264)
	assert.Error(t, err)
}
