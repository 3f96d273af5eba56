package mlx90640

import "turretcode-go/types"

// Each acquisition pattern is a fixed pixel-to-subpage assignment rule. The
// two subpages of one cycle tile the full image: every pixel belongs to
// exactly one subpage under either rule.
//
//   - Interleaved: checkerboard. Subpage 0 owns even rows' even columns and
//     odd rows' odd columns; subpage 1 owns the complement.
//   - Chess: column groups. Pairs of columns alternate between subpages.

// subpageOf returns the subpage (0 or 1) that supplies pixel (row, col)
// under the given pattern.
func subpageOf(p types.Pattern, row, col int) int {
	if p == types.PatternInterleaved {
		return (row + col) & 1
	}
	return (col >> 1) & 1
}

// subpageOfIndex is subpageOf for a flat pixel index.
func subpageOfIndex(p types.Pattern, pix int) int {
	return subpageOf(p, pix/Cols, pix%Cols)
}
