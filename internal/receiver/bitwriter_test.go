package receiver

// Test-only MSB-first bit writer and NAL helpers, mirroring
// internal/bitstream's own test helpers, kept as a separate local copy
// since test helpers are unexported and package-private.

type bitWriter struct {
	buf []byte
	bit int
}

func newBitWriter() *bitWriter {
	return &bitWriter{}
}

func (w *bitWriter) writeBit(v uint8) {
	if w.bit == 0 {
		w.buf = append(w.buf, 0)
	}
	if v != 0 {
		w.buf[len(w.buf)-1] |= 1 << uint(7-w.bit)
	}
	w.bit = (w.bit + 1) % 8
}

func (w *bitWriter) writeBits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		w.writeBit(uint8((v >> uint(i)) & 1))
	}
}

func bitsLen(v uint64) int {
	n := 0
	for v > 0 {
		v >>= 1
		n++
	}
	if n == 0 {
		n = 1
	}
	return n
}

func (w *bitWriter) writeUE(v uint32) {
	codeNum := uint64(v) + 1
	n := bitsLen(codeNum)
	for i := 0; i < n-1; i++ {
		w.writeBit(0)
	}
	w.writeBits(codeNum, n)
}

func (w *bitWriter) bytes() []byte {
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return out
}

func escapeEmulation(rbsp []byte) []byte {
	out := make([]byte, 0, len(rbsp)+8)
	zeroRun := 0
	for _, b := range rbsp {
		if zeroRun >= 2 && b <= 3 {
			out = append(out, 0x03)
			zeroRun = 0
		}
		out = append(out, b)
		if b == 0x00 {
			zeroRun++
		} else {
			zeroRun = 0
		}
	}
	return out
}

func wrapNAL(header []byte, rbsp []byte) []byte {
	out := make([]byte, 0, 3+len(header)+len(rbsp))
	out = append(out, 0x00, 0x00, 0x01)
	out = append(out, header...)
	out = append(out, escapeEmulation(rbsp)...)
	return out
}

func h264Header(nalRefIdc, nalType uint8) []byte {
	return []byte{(nalRefIdc << 5) | (nalType & 0x1F)}
}

func h265Header(nalType uint8) []byte {
	return []byte{nalType << 1, 0x01}
}

// buildH264SPS builds a minimal baseline-profile SPS with
// log2_max_frame_num_minus4 fixed at 0 (4-bit frame_num field), enough for
// the receiver's profile-switch / codec-detect path.
func buildH264SPS() []byte {
	w := newBitWriter()
	w.writeBits(66, 8) // profile_idc: baseline, no scaling-matrix fields
	w.writeBits(0, 8)  // constraint flags + reserved
	w.writeBits(30, 8) // level_idc
	w.writeUE(0)       // seq_parameter_set_id
	w.writeUE(0)       // log2_max_frame_num_minus4
	return wrapNAL(h264Header(3, 7), w.bytes())
}

func buildH265SPS() []byte {
	w := newBitWriter()
	w.writeBits(0, 4) // sps_video_parameter_set_id
	w.writeBits(0, 3) // sps_max_sub_layers_minus1
	w.writeBit(0)     // sps_temporal_id_nesting_flag
	w.writeBits(0, 8) // profile_tier_level, 96 bits total for sub_layers=0
	w.writeBits(0, 32)
	w.writeBits(0, 4)
	w.writeBits(0, 44)
	w.writeBits(90, 8)
	w.writeUE(0)    // sps_seq_parameter_set_id
	w.writeUE(1)    // chroma_format_idc
	w.writeUE(1280) // pic_width_in_luma_samples
	w.writeUE(720)  // pic_height_in_luma_samples
	w.writeBit(0)   // conformance_window_flag
	w.writeUE(0)    // bit_depth_luma_minus8
	w.writeUE(0)    // bit_depth_chroma_minus8
	w.writeUE(0)    // log2_max_pic_order_cnt_lsb_minus4
	return wrapNAL(h265Header(33), w.bytes())
}

func buildH264IDR() []byte {
	w := newBitWriter()
	w.writeUE(0) // first_mb_in_slice
	w.writeUE(2) // slice_type = 2 -> I
	return wrapNAL(h264Header(3, 5), w.bytes())
}

// buildH264P builds a non-IDR P slice whose ref_pic_list_modification
// names refFrame via modification_of_pic_nums_idc == 0, or with no
// modification at all when withRef is false.
func buildH264P(refFrame uint8, withRef bool) []byte {
	w := newBitWriter()
	w.writeUE(0) // first_mb_in_slice
	w.writeUE(0) // slice_type = 0 -> P
	w.writeUE(0) // pic_parameter_set_id
	w.writeBits(0, 4) // frame_num (log2_max_frame_num_minus4=0)
	w.writeBit(0)     // num_ref_idx_active_override_flag
	if withRef {
		w.writeBit(1) // ref_pic_list_modification_flag_l0
		w.writeUE(0)  // modification_of_pic_nums_idc = 0
		w.writeUE(uint32(refFrame))
	} else {
		w.writeBit(0)
	}
	return wrapNAL(h264Header(2, 1), w.bytes())
}

func buildH265IDR() []byte {
	w := newBitWriter()
	w.writeBit(1) // first_slice_segment_in_pic_flag
	w.writeBit(0) // no_output_of_prior_pics_flag
	w.writeUE(0)  // slice_pic_parameter_set_id
	w.writeUE(2)  // slice_type = 2 -> I
	return wrapNAL(h265Header(19), w.bytes())
}

// buildH265P builds a non-IDR P slice with numNegative short-term
// reference entries, marking usedIdx as the one with
// used_by_curr_pic_s0_flag == 1.
func buildH265P(numNegative, usedIdx uint32) []byte {
	w := newBitWriter()
	w.writeBit(1)     // first_slice_segment_in_pic_flag
	w.writeUE(0)      // slice_pic_parameter_set_id
	w.writeUE(1)      // slice_type = 1 -> P
	w.writeBits(0, 4) // pic_order_cnt_lsb (log2_max_pic_order_cnt_lsb_minus4=0)
	w.writeBit(0)     // short_term_ref_pic_set_sps_flag
	w.writeUE(numNegative)
	w.writeUE(0) // num_positive_pics
	for i := uint32(0); i < numNegative; i++ {
		w.writeUE(0)
		if i == usedIdx {
			w.writeBit(1)
		} else {
			w.writeBit(0)
		}
	}
	return wrapNAL(h265Header(1), w.bytes())
}
