package bitstream

import (
	"github.com/bugVanisher/remoteplay/internal/bitio"
	"github.com/bugVanisher/remoteplay/internal/errs"
)

// SPSInfo is the subset of SPS fields the receiver needs: enough to track
// frame-number and picture-order-count wraparound width per profile.
type SPSInfo struct {
	Codec                       Codec
	Log2MaxFrameNumMinus4       uint32 // H.264 only
	Log2MaxPicOrderCntLsbMinus4 uint32 // H.265 only
}

// ParseHeader scans headerBytes for the codec's SPS NAL and extracts the
// frame-numbering fields the video receiver needs. The VPS NAL (H.265
// nal_type 32) is skipped when looking for the SPS.
func ParseHeader(headerBytes []byte, codec Codec) (*SPSInfo, error) {
	for _, nal := range findNALUnits(headerBytes) {
		if len(nal.data) == 0 {
			continue
		}
		switch codec {
		case CodecH264:
			if h264NALType(nal.data[0]) != 7 {
				continue
			}
			return parseH264SPS(nal.data[1:])
		case CodecH265:
			if h265NALType(nal.data[0]) == 32 {
				continue // VPS, not the SPS
			}
			if h265NALType(nal.data[0]) != 33 {
				continue
			}
			// H.265 NAL header is two bytes.
			return parseH265SPS(nal.data[2:])
		}
	}
	return nil, errs.ErrHeaderMalformed
}

func parseH264SPS(rbsp []byte) (*SPSInfo, error) {
	r := bitio.NewReader(rbsp)

	profileIdc, err := r.ReadBits(8)
	if err != nil {
		return nil, err
	}
	if err := r.Skip(8); err != nil { // constraint_set flags + reserved
		return nil, err
	}
	if err := r.Skip(8); err != nil { // level_idc
		return nil, err
	}
	if _, err := r.ReadUE(); err != nil { // seq_parameter_set_id
		return nil, err
	}

	switch profileIdc {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		chromaFormatIdc, err := r.ReadUE()
		if err != nil {
			return nil, err
		}
		if chromaFormatIdc == 3 {
			if _, err := r.ReadBit(); err != nil { // separate_colour_plane_flag
				return nil, err
			}
		}
		if _, err := r.ReadUE(); err != nil { // bit_depth_luma_minus8
			return nil, err
		}
		if _, err := r.ReadUE(); err != nil { // bit_depth_chroma_minus8
			return nil, err
		}
		if _, err := r.ReadBit(); err != nil { // qpprime_y_zero_transform_bypass_flag
			return nil, err
		}
		scalingMatrixPresent, err := r.ReadBit()
		if err != nil {
			return nil, err
		}
		if scalingMatrixPresent == 1 {
			return nil, errs.Wrapf(errs.ErrHeaderMalformed, "h264 sps: seq_scaling_matrix_present_flag not supported")
		}
	}

	log2MaxFrameNumMinus4, err := r.ReadUE()
	if err != nil {
		return nil, err
	}
	if log2MaxFrameNumMinus4 > 12 {
		return nil, errs.Wrapf(errs.ErrHeaderMalformed, "h264 sps: log2_max_frame_num_minus4 out of range: %d", log2MaxFrameNumMinus4)
	}

	return &SPSInfo{Codec: CodecH264, Log2MaxFrameNumMinus4: log2MaxFrameNumMinus4}, nil
}

// parseH265SPS extracts log2_max_pic_order_cnt_lsb_minus4, walking the SPS
// prefix up to (and through) a simplified profile_tier_level. Full
// sub-layer profile/level reporting is not needed by the receiver and is
// skipped conservatively (max_sub_layers_minus1 == 0 is the common case for
// the single-layer streams this pipeline targets).
func parseH265SPS(rbsp []byte) (*SPSInfo, error) {
	r := bitio.NewReader(rbsp)

	if _, err := r.ReadBits(4); err != nil { // sps_video_parameter_set_id
		return nil, err
	}
	maxSubLayersMinus1, err := r.ReadBits(3)
	if err != nil {
		return nil, err
	}
	if _, err := r.ReadBit(); err != nil { // sps_temporal_id_nesting_flag
		return nil, err
	}

	if err := skipProfileTierLevel(r, maxSubLayersMinus1); err != nil {
		return nil, err
	}

	if _, err := r.ReadUE(); err != nil { // sps_seq_parameter_set_id
		return nil, err
	}
	chromaFormatIdc, err := r.ReadUE()
	if err != nil {
		return nil, err
	}
	if chromaFormatIdc == 3 {
		if _, err := r.ReadBit(); err != nil { // separate_colour_plane_flag
			return nil, err
		}
	}
	if _, err := r.ReadUE(); err != nil { // pic_width_in_luma_samples
		return nil, err
	}
	if _, err := r.ReadUE(); err != nil { // pic_height_in_luma_samples
		return nil, err
	}
	conformanceWindowFlag, err := r.ReadBit()
	if err != nil {
		return nil, err
	}
	if conformanceWindowFlag == 1 {
		for i := 0; i < 4; i++ {
			if _, err := r.ReadUE(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := r.ReadUE(); err != nil { // bit_depth_luma_minus8
		return nil, err
	}
	if _, err := r.ReadUE(); err != nil { // bit_depth_chroma_minus8
		return nil, err
	}
	log2MaxPicOrderCntLsbMinus4, err := r.ReadUE()
	if err != nil {
		return nil, err
	}
	if log2MaxPicOrderCntLsbMinus4 > 12 {
		return nil, errs.Wrapf(errs.ErrHeaderMalformed, "h265 sps: log2_max_pic_order_cnt_lsb_minus4 out of range: %d", log2MaxPicOrderCntLsbMinus4)
	}

	return &SPSInfo{Codec: CodecH265, Log2MaxPicOrderCntLsbMinus4: log2MaxPicOrderCntLsbMinus4}, nil
}

func skipProfileTierLevel(r *bitio.Reader, maxSubLayersMinus1 uint64) error {
	if err := r.Skip(2 + 1 + 5); err != nil { // general_profile_space/tier_flag/profile_idc
		return err
	}
	if err := r.Skip(32); err != nil { // general_profile_compatibility_flag[32]
		return err
	}
	if err := r.Skip(4); err != nil { // progressive/interlaced/non_packed/frame_only
		return err
	}
	if err := r.Skip(44); err != nil { // reserved_zero_43bits + general_inbld_flag
		return err
	}
	if err := r.Skip(8); err != nil { // general_level_idc
		return err
	}
	if maxSubLayersMinus1 == 0 {
		return nil
	}
	subLayerProfilePresent := make([]uint8, maxSubLayersMinus1)
	subLayerLevelPresent := make([]uint8, maxSubLayersMinus1)
	for i := uint64(0); i < maxSubLayersMinus1; i++ {
		p, err := r.ReadBit()
		if err != nil {
			return err
		}
		l, err := r.ReadBit()
		if err != nil {
			return err
		}
		subLayerProfilePresent[i] = p
		subLayerLevelPresent[i] = l
	}
	if maxSubLayersMinus1 > 0 {
		for i := maxSubLayersMinus1; i < 8; i++ {
			if err := r.Skip(2); err != nil { // reserved_zero_2bits
				return err
			}
		}
	}
	for i := uint64(0); i < maxSubLayersMinus1; i++ {
		if subLayerProfilePresent[i] == 1 {
			if err := r.Skip(88); err != nil {
				return err
			}
		}
		if subLayerLevelPresent[i] == 1 {
			if err := r.Skip(8); err != nil {
				return err
			}
		}
	}
	return nil
}
