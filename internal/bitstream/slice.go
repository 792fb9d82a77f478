package bitstream

import (
	"github.com/bugVanisher/remoteplay/internal/bitio"
	"github.com/bugVanisher/remoteplay/internal/errs"
)

// Kind classifies a slice for reference-chain purposes. Anything the parser
// can't confidently classify is Unknown, which the receiver treats as
// pass-through (spec.md §4.2's failure policy: non-fatal, no parseable
// slice).
type Kind uint8

const (
	KindUnknown Kind = 0
	KindI       Kind = 1
	KindP       Kind = 2
)

// NoReference marks the absence of a reference-frame index.
const NoReference uint8 = 0xFF

// Slice is the derived, non-persisted result of parsing one slice header.
type Slice struct {
	Kind           Kind
	ReferenceFrame uint8
	IsIDR          bool
}

// Parser holds the SPS extracted from the current profile's header and
// parses slices against it. There is exactly one parser implementation per
// codec family; spec.md §9 explicitly rejects maintaining simplified and
// full variants side by side.
type Parser struct {
	codec Codec
	sps   *SPSInfo
}

func NewParser() *Parser {
	return &Parser{}
}

// LoadHeader parses headerBytes as the current profile's SPS and stores the
// fields later slice parses need.
func (p *Parser) LoadHeader(headerBytes []byte, codec Codec) error {
	sps, err := ParseHeader(headerBytes, codec)
	if err != nil {
		return err
	}
	p.codec = codec
	p.sps = sps
	return nil
}

// ParseSlice recognises the slice NAL in frameBytes and extracts its kind,
// IDR flag, and (for non-IDR P-slices) the reference-frame index it depends
// on.
func (p *Parser) ParseSlice(frameBytes []byte) (*Slice, error) {
	switch p.codec {
	case CodecH264:
		return p.parseH264Slice(frameBytes)
	case CodecH265:
		return p.parseH265Slice(frameBytes)
	default:
		return &Slice{Kind: KindUnknown, ReferenceFrame: NoReference}, nil
	}
}

// SetReferenceFrameH265 rewrites the used_by_curr_pic_s0_flag run of a
// H.265 P-slice so that only index newRef is marked used, leaving every
// other byte (including emulation-prevention bytes) untouched. It returns
// an error for anything other than a H.265 non-IDR P-slice.
func (p *Parser) SetReferenceFrameH265(frameBytes []byte, newRef uint8) ([]byte, error) {
	if p.codec != CodecH265 {
		return nil, errs.ErrNotP
	}
	nal := findSliceNAL(frameBytes, p.codec)
	if nal == nil {
		return nil, errs.ErrNotP
	}
	nalType := h265NALType(nal.data[0])
	if nalType == 19 || nalType == 20 {
		return nil, errs.ErrNotP
	}

	r := bitio.NewReader(nal.data[2:])
	positions, err := walkH265NegativePics(r, p.sps)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, errs.ErrNotP
	}
	for i, pos := range positions {
		val := uint8(0)
		if i == int(newRef) {
			val = 1
		}
		if err := r.RewriteBit(pos, val); err != nil {
			return nil, err
		}
	}
	return frameBytes, nil
}

func findSliceNAL(frameBytes []byte, codec Codec) *nalUnit {
	for _, nal := range findNALUnits(frameBytes) {
		if len(nal.data) == 0 {
			continue
		}
		switch codec {
		case CodecH264:
			t := h264NALType(nal.data[0])
			if t == 1 || t == 5 {
				n := nal
				return &n
			}
		case CodecH265:
			t := h265NALType(nal.data[0])
			if t == 1 || t == 19 || t == 20 {
				n := nal
				return &n
			}
		}
	}
	return nil
}

func (p *Parser) parseH264Slice(frameBytes []byte) (*Slice, error) {
	nal := findSliceNAL(frameBytes, CodecH264)
	if nal == nil {
		return &Slice{Kind: KindUnknown, ReferenceFrame: NoReference}, nil
	}
	nalType := h264NALType(nal.data[0])
	isIDR := nalType == 5

	r := bitio.NewReader(nal.data[1:])
	if _, err := r.ReadUE(); err != nil { // first_mb_in_slice
		return &Slice{Kind: KindUnknown, ReferenceFrame: NoReference, IsIDR: isIDR}, nil
	}
	sliceType, err := r.ReadUE()
	if err != nil {
		return &Slice{Kind: KindUnknown, ReferenceFrame: NoReference, IsIDR: isIDR}, nil
	}
	kind := classifyH264SliceType(sliceType)
	slice := &Slice{Kind: kind, ReferenceFrame: NoReference, IsIDR: isIDR}
	if isIDR || kind != KindP {
		return slice, nil
	}

	if _, err := r.ReadUE(); err != nil { // pic_parameter_set_id
		return slice, nil
	}
	frameNumBits := int(p.frameNumBits())
	if _, err := r.ReadBits(frameNumBits); err != nil { // frame_num
		return slice, nil
	}

	numRefIdxOverride, err := r.ReadBit()
	if err != nil {
		return slice, nil
	}
	if numRefIdxOverride == 1 {
		if _, err := r.ReadUE(); err != nil { // num_ref_idx_l0_active_minus1
			return slice, nil
		}
	}
	listModFlag, err := r.ReadBit()
	if err != nil || listModFlag == 0 {
		return slice, nil
	}
	for i := 0; i < 3; i++ {
		idc, err := r.ReadUE()
		if err != nil {
			return slice, nil
		}
		if idc == 3 {
			break
		}
		if idc == 0 || idc == 1 {
			absDiff, err := r.ReadUE()
			if err != nil {
				return slice, nil
			}
			if idc == 0 {
				slice.ReferenceFrame = uint8(absDiff)
				break
			}
		} else if idc == 2 {
			if _, err := r.ReadUE(); err != nil { // long_term_pic_num
				return slice, nil
			}
		}
	}
	return slice, nil
}

func (p *Parser) frameNumBits() uint32 {
	if p.sps == nil {
		return 4
	}
	return p.sps.Log2MaxFrameNumMinus4 + 4
}

func classifyH264SliceType(t uint32) Kind {
	switch t % 5 {
	case 0:
		return KindP
	case 2:
		return KindI
	default:
		return KindUnknown
	}
}

func (p *Parser) parseH265Slice(frameBytes []byte) (*Slice, error) {
	nal := findSliceNAL(frameBytes, CodecH265)
	if nal == nil {
		return &Slice{Kind: KindUnknown, ReferenceFrame: NoReference}, nil
	}
	nalType := h265NALType(nal.data[0])
	isIDR := nalType == 19 || nalType == 20

	r := bitio.NewReader(nal.data[2:])
	if _, err := r.ReadBit(); err != nil { // first_slice_segment_in_pic_flag
		return &Slice{Kind: KindUnknown, ReferenceFrame: NoReference, IsIDR: isIDR}, nil
	}
	if nalType >= 16 && nalType <= 23 {
		if _, err := r.ReadBit(); err != nil { // no_output_of_prior_pics_flag
			return &Slice{Kind: KindUnknown, ReferenceFrame: NoReference, IsIDR: isIDR}, nil
		}
	}
	if _, err := r.ReadUE(); err != nil { // slice_pic_parameter_set_id
		return &Slice{Kind: KindUnknown, ReferenceFrame: NoReference, IsIDR: isIDR}, nil
	}
	sliceType, err := r.ReadUE()
	if err != nil {
		return &Slice{Kind: KindUnknown, ReferenceFrame: NoReference, IsIDR: isIDR}, nil
	}
	kind := classifyH265SliceType(sliceType)
	slice := &Slice{Kind: kind, ReferenceFrame: NoReference, IsIDR: isIDR}
	if isIDR || kind != KindP {
		return slice, nil
	}

	positions, refIdx, err := locateH265ReferenceFlag(r, p.sps)
	if err != nil || positions == nil {
		return slice, nil
	}
	slice.ReferenceFrame = refIdx
	return slice, nil
}

func classifyH265SliceType(t uint32) Kind {
	switch t {
	case 1:
		return KindP
	case 2:
		return KindI
	default:
		return KindUnknown
	}
}

// walkH265NegativePics re-derives the bit positions of each
// used_by_curr_pic_s0_flag bit so SetReferenceFrameH265 can set exactly
// one of them. r must start at the beginning of the slice header: the
// function replays the first_slice_segment_in_pic_flag / pps id /
// slice_type prefix itself, since SetReferenceFrameH265 is called
// independently from ParseSlice. A slice_type other than P yields
// errs.ErrNotP.
func walkH265NegativePics(r *bitio.Reader, sps *SPSInfo) ([]int, error) {
	if _, err := r.ReadBit(); err != nil { // first_slice_segment_in_pic_flag
		return nil, err
	}
	// nal_type for IRAP range already excluded by caller (non-IDR only).
	if _, err := r.ReadUE(); err != nil { // slice_pic_parameter_set_id
		return nil, err
	}
	sliceType, err := r.ReadUE()
	if err != nil {
		return nil, err
	}
	if classifyH265SliceType(sliceType) != KindP {
		return nil, errs.ErrNotP
	}
	picOrderBits := 4
	if sps != nil {
		picOrderBits = int(sps.Log2MaxPicOrderCntLsbMinus4) + 4
	}
	if _, err := r.ReadBits(picOrderBits); err != nil { // pic_order_cnt_lsb
		return nil, err
	}
	spsFlag, err := r.ReadBit()
	if err != nil {
		return nil, err
	}
	if spsFlag == 1 {
		return nil, errs.ErrNotP // short_term_ref_pic_set_sps_flag not supported for rewrite
	}
	numNegative, err := r.ReadUE()
	if err != nil {
		return nil, err
	}
	if _, err := r.ReadUE(); err != nil { // num_positive_pics
		return nil, err
	}
	if numNegative > 16 {
		numNegative = 16
	}
	positions := make([]int, 0, numNegative)
	for i := uint32(0); i < numNegative; i++ {
		if _, err := r.ReadUE(); err != nil { // delta_poc_s0_minus1
			return nil, err
		}
		pos := r.BitPosition()
		if _, err := r.ReadBit(); err != nil { // used_by_curr_pic_s0_flag
			return nil, err
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

// locateH265ReferenceFlag finds the index i of the first
// used_by_curr_pic_s0_flag == 1, for ParseSlice's read-only pass.
func locateH265ReferenceFlag(r *bitio.Reader, sps *SPSInfo) ([]int, uint8, error) {
	picOrderBits := 4
	if sps != nil {
		picOrderBits = int(sps.Log2MaxPicOrderCntLsbMinus4) + 4
	}
	if _, err := r.ReadBits(picOrderBits); err != nil { // pic_order_cnt_lsb
		return nil, NoReference, err
	}
	spsFlag, err := r.ReadBit()
	if err != nil {
		return nil, NoReference, err
	}
	if spsFlag == 1 {
		return nil, NoReference, nil
	}
	numNegative, err := r.ReadUE()
	if err != nil {
		return nil, NoReference, err
	}
	if _, err := r.ReadUE(); err != nil { // num_positive_pics
		return nil, NoReference, err
	}
	if numNegative > 16 {
		numNegative = 16
	}
	for i := uint32(0); i < numNegative; i++ {
		if _, err := r.ReadUE(); err != nil { // delta_poc_s0_minus1
			return nil, NoReference, err
		}
		used, err := r.ReadBit()
		if err != nil {
			return nil, NoReference, err
		}
		if used == 1 {
			return []int{int(i)}, uint8(i), nil
		}
	}
	return nil, NoReference, nil
}
