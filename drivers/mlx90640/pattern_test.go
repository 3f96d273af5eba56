package mlx90640

import (
	"testing"

	"turretcode-go/types"
)

// Under either pattern the two subpages must partition the image: every
// pixel belongs to exactly one subpage and both subpages are used.
func TestSubpagesPartitionImage(t *testing.T) {
	for _, pat := range []types.Pattern{types.PatternChess, types.PatternInterleaved} {
		var count [2]int
		for pix := 0; pix < Pixels; pix++ {
			sp := subpageOfIndex(pat, pix)
			if sp != 0 && sp != 1 {
				t.Fatalf("%v pixel %d subpage %d", pat, pix, sp)
			}
			count[sp]++
		}
		if count[0] != Pixels/2 || count[1] != Pixels/2 {
			t.Errorf("%v subpage sizes %v", pat, count)
		}
	}
}

func TestInterleavedIsCheckerboard(t *testing.T) {
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols-1; c++ {
			a := subpageOf(types.PatternInterleaved, r, c)
			b := subpageOf(types.PatternInterleaved, r, c+1)
			if a == b {
				t.Fatalf("horizontal neighbours (%d,%d) share subpage %d", r, c, a)
			}
		}
	}
	for c := 0; c < Cols; c++ {
		for r := 0; r < Rows-1; r++ {
			if subpageOf(types.PatternInterleaved, r, c) == subpageOf(types.PatternInterleaved, r+1, c) {
				t.Fatalf("vertical neighbours share subpage at col %d", c)
			}
		}
	}
}

func TestChessIsColumnPairs(t *testing.T) {
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c += 4 {
			if subpageOf(types.PatternChess, r, c) != 0 ||
				subpageOf(types.PatternChess, r, c+1) != 0 {
				t.Fatalf("columns %d,%d not subpage 0", c, c+1)
			}
			if subpageOf(types.PatternChess, r, c+2) != 1 ||
				subpageOf(types.PatternChess, r, c+3) != 1 {
				t.Fatalf("columns %d,%d not subpage 1", c+2, c+3)
			}
		}
	}
	// Row-independent.
	for c := 0; c < Cols; c++ {
		if subpageOf(types.PatternChess, 0, c) != subpageOf(types.PatternChess, 13, c) {
			t.Fatalf("column %d subpage varies by row", c)
		}
	}
}
