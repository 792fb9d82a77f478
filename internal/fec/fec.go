// Package fec implements erasure recovery for frame units lost in transit.
//
// No FEC scheme is present anywhere in the retrieval pack this module was
// grounded on; spec.md §9 flags the concrete coding as an external contract
// ("implementers must match the host's FEC scheme bit-exactly"). This
// package implements a systematic Cauchy-matrix Reed-Solomon-style erasure
// code over GF(256), the simplest scheme that actually satisfies the
// testable property the spec pins down for the general case: byte-identical
// recovery whenever |missing| <= units_fec and every other slot is intact,
// for any combination of missing indices -- not just one per FEC slot. A
// scheme built from identical repeated XOR-parity equations (one "copy" of
// the same parity per FEC slot) cannot do that, since repeating one
// equation never adds a second independent constraint; Cauchy matrices are
// the standard fix because every square submatrix of one is invertible.
// It is not a transcription of any example file.
package fec

import "github.com/bugVanisher/remoteplay/internal/errs"

// gfExp/gfLog are GF(256) exponent/log tables under the primitive
// polynomial 0x11D, the field AES and most Reed-Solomon erasure codes use.
var (
	gfExp [512]byte
	gfLog [256]byte
)

func init() {
	x := 1
	for i := 0; i < 255; i++ {
		gfExp[i] = byte(x)
		gfLog[byte(x)] = byte(i)
		x <<= 1
		if x&0x100 != 0 {
			x ^= 0x11D
		}
	}
	for i := 255; i < 512; i++ {
		gfExp[i] = gfExp[i-255]
	}
}

func gfMul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return gfExp[int(gfLog[a])+int(gfLog[b])]
}

// gfInv returns the multiplicative inverse of a nonzero GF(256) element.
func gfInv(a byte) byte {
	return gfExp[255-int(gfLog[a])]
}

// cauchyCoeff returns entry [fecRow][srcCol] of the systematic Cauchy
// matrix: 1/(x_fecRow XOR y_srcCol). x values are drawn from the top of the
// byte range downward and y values from the bottom upward, so the two sets
// never collide (the denominator is never zero) for any realistic
// units_src/units_fec pair, and every square submatrix stays invertible.
func cauchyCoeff(fecRow, srcCol int) byte {
	y := byte(srcCol)
	x := byte(255 - fecRow)
	return gfInv(x ^ y)
}

// Encode computes the units_fec parity symbols for a complete set of source
// symbols, using the same Cauchy matrix TryRecover inverts. All source
// symbols must share one length; callers pad short ones first.
func Encode(src [][]byte, unitsFec int) [][]byte {
	if len(src) == 0 || unitsFec == 0 {
		return nil
	}
	symLen := len(src[0])
	out := make([][]byte, unitsFec)
	for j := 0; j < unitsFec; j++ {
		sym := make([]byte, symLen)
		for i, s := range src {
			c := cauchyCoeff(j, i)
			for b := 0; b < symLen; b++ {
				sym[b] ^= gfMul(c, s[b])
			}
		}
		out[j] = sym
	}
	return out
}

// TryRecover attempts to reconstruct every missing source slot in-place.
// slots has length units_src+units_fec; slots[i] is nil for an empty/missing
// slot. missing lists the indices (0..units_src) of absent source slots.
// Recovery solves the Cauchy-matrix linear system formed by |missing| of
// the available FEC equations for the |missing| unknown source symbols via
// Gaussian elimination over GF(256); the Cauchy construction guarantees
// that system is solvable whenever |missing| <= units_fec and every
// non-missing slot used is genuinely intact.
func TryRecover(slots [][]byte, missing []int, unitsSrc, unitsFec int) bool {
	if len(missing) == 0 {
		return true
	}
	if len(missing) > unitsFec || unitsFec == 0 {
		return false
	}

	symLen := 0
	for i := 0; i < unitsSrc+unitsFec; i++ {
		if slots[i] != nil && len(slots[i]) > symLen {
			symLen = len(slots[i])
		}
	}
	if symLen == 0 {
		return false
	}

	var fecRows []int
	for j := 0; j < unitsFec && len(fecRows) < len(missing); j++ {
		if slots[unitsSrc+j] != nil {
			fecRows = append(fecRows, j)
		}
	}
	if len(fecRows) < len(missing) {
		return false
	}

	m := len(missing)
	// aug[row] = [ m coefficient columns | symLen data columns ].
	aug := make([][]byte, m)
	for row, fecRow := range fecRows {
		line := make([]byte, m+symLen)
		for col, srcIdx := range missing {
			line[col] = cauchyCoeff(fecRow, srcIdx)
		}
		rhs := padTo(slots[unitsSrc+fecRow], symLen)
		copy(line[m:], rhs)
		for i := 0; i < unitsSrc; i++ {
			if slots[i] == nil {
				continue // one of the missing columns, modeled above
			}
			c := cauchyCoeff(fecRow, i)
			known := padTo(slots[i], symLen)
			for b := 0; b < symLen; b++ {
				line[m+b] ^= gfMul(c, known[b])
			}
		}
		aug[row] = line
	}

	if !gaussianEliminate(aug, m) {
		return false
	}

	for row, srcIdx := range missing {
		slots[srcIdx] = append([]byte(nil), aug[row][m:]...)
	}
	return true
}

// gaussianEliminate row-reduces the m x (m+symLen) augmented matrix aug to
// [I | X] in place over GF(256); X then holds the solved unknowns. Returns
// false if the leading m x m block turns out singular -- should not happen
// for a genuine Cauchy submatrix, but guarded against malformed input.
func gaussianEliminate(aug [][]byte, m int) bool {
	for col := 0; col < m; col++ {
		pivot := -1
		for row := col; row < m; row++ {
			if aug[row][col] != 0 {
				pivot = row
				break
			}
		}
		if pivot == -1 {
			return false
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		inv := gfInv(aug[col][col])
		if inv != 1 {
			for c := range aug[col] {
				aug[col][c] = gfMul(aug[col][c], inv)
			}
		}

		for row := 0; row < m; row++ {
			if row == col {
				continue
			}
			factor := aug[row][col]
			if factor == 0 {
				continue
			}
			for c := range aug[row] {
				aug[row][c] ^= gfMul(factor, aug[col][c])
			}
		}
	}
	return true
}

func padTo(b []byte, n int) []byte {
	if len(b) == n {
		return b
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// ErrInsufficient is returned by callers (not this package) wrapping a
// failed recovery attempt for logging; kept here so internal/frame and
// internal/receiver share one sentinel.
var ErrInsufficient = errs.ErrFecInsufficient
