// Package errs defines the error taxonomy for the pipeline: a small set of
// caller-distinguishable codes (so callers can switch on Code(err) instead of
// string-matching) plus pkg/errors wrapping for stack context at the call site.
package errs

import (
	"github.com/pkg/errors"
)

const (
	CodeUnknown          = 9999
	CodeTruncated        = 1001 // bit reader ran past bits_left
	CodeHeaderMalformed  = 1002 // transport/SPS header failed to parse
	CodeSliceMalformed   = 1003 // slice header failed to parse
	CodeNotP             = 1004 // set_reference_frame_h265 called on a non-P slice
	CodeProfileRange     = 1005 // adaptive_stream_index out of range
	CodeCipherMissing    = 1006 // coordinator constructed without a cipher capability
	CodeSinkMissing      = 1007 // coordinator constructed without a sink capability
	CodeDecrypt          = 1008
	CodeFecInsufficient  = 1009
	CodeFrameFailed      = 1010
)

var (
	ErrTruncated       = New(CodeTruncated, "bitstream: read past bits_left")
	ErrHeaderMalformed = New(CodeHeaderMalformed, "bitstream: malformed header")
	ErrSliceMalformed  = New(CodeSliceMalformed, "bitstream: malformed slice header")
	ErrNotP            = New(CodeNotP, "bitstream: not a P slice")
	ErrProfileRange    = New(CodeProfileRange, "video: adaptive_stream_index out of range")
	ErrCipherMissing   = New(CodeCipherMissing, "pipeline: cipher capability is required")
	ErrSinkMissing     = New(CodeSinkMissing, "pipeline: sink capability is required")
	ErrDecrypt         = New(CodeDecrypt, "ingest: decrypt failed")
	ErrFecInsufficient = New(CodeFecInsufficient, "fec: insufficient symbols to recover")
	ErrFrameFailed     = New(CodeFrameFailed, "frame: first source unit missing at flush")
)

// Error is a coded error, cheap to classify without string matching.
type Error struct {
	Code int32
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func New(code int32, msg string) error {
	return &Error{Code: code, Msg: msg}
}

// Code extracts the taxonomy code from err, walking wrap layers via
// errors.Cause. Returns 0 for a nil error and CodeUnknown for anything not
// constructed through New.
func Code(err error) int32 {
	if err == nil {
		return 0
	}
	cause := errors.Cause(err)
	e, ok := cause.(*Error)
	if !ok {
		return CodeUnknown
	}
	return e.Code
}

// Wrapf attaches call-site context and a stack trace to err.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
