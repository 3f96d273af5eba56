package mlx90640

import (
	"math"
	"testing"

	"turretcode-go/errcode"
)

// baseEEPROM builds a minimal consistent calibration block: every scalar in
// a plausible range, all per-pixel trims zero, no deviating pixels.
func baseEEPROM() []uint16 {
	ee := make([]uint16, eeWords)

	ee[7], ee[8], ee[9] = 0x1234, 0x5678, 0x9ABC // device id
	ee[10] = 0                                   // chess-calibrated

	ee[16] = 4 << 12       // alphaPTAT raw 4 -> 9.0
	ee[17] = 0xFFB5        // offsetRef -75
	ee[32] = 6 << 12       // alphaScale raw 6 -> 2^36
	ee[33] = 8246          // alphaRef
	ee[48] = 6383          // gain
	ee[49] = 12273         // vPTAT25
	ee[50] = 336           // ktPTAT raw 336 -> 42.0, kvPTAT 0
	ee[51] = 0x9D68        // kVdd raw -99 -> -3168, vdd25 raw 104 -> -13056
	ee[56] = 2 << 12       // resolution 2
	ee[61] = 0xFEFE        // ksTo1, ksTo0 raw -2
	ee[62] = 0xFEFE        // ksTo3, ksTo2 raw -2
	ee[63] = 0x2963        // ctStep 2, ct3 raw 9, ct2 raw 6, ksToScale 3
	ee[60] = 0xF000        // ksTa raw -16, tgc 0

	// Per-pixel words: offset trim +1, everything else zero. A zero word
	// would mark the pixel broken.
	for i := 0; i < Pixels; i++ {
		ee[64+i] = 1 << 10
	}
	return ee
}

func TestParseScalars(t *testing.T) {
	p, err := parseParams(baseEEPROM())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if p.KVdd != -3168 {
		t.Errorf("kVdd = %d, want -3168", p.KVdd)
	}
	if p.Vdd25 != -13056 {
		t.Errorf("vdd25 = %d, want -13056", p.Vdd25)
	}
	if p.KtPTAT != 42 {
		t.Errorf("ktPTAT = %v, want 42", p.KtPTAT)
	}
	if p.VPTAT25 != 12273 {
		t.Errorf("vPTAT25 = %d", p.VPTAT25)
	}
	if p.AlphaPTAT != 9 {
		t.Errorf("alphaPTAT = %v, want 9", p.AlphaPTAT)
	}
	if p.Gain != 6383 {
		t.Errorf("gain = %d", p.Gain)
	}
	if p.Resolution != 2 {
		t.Errorf("resolution = %d", p.Resolution)
	}
	if got, want := p.KsTa, -16.0/8192; got != want {
		t.Errorf("ksTa = %v, want %v", got, want)
	}
	if got, want := p.KsTo[1], -2.0/2048; got != want {
		t.Errorf("ksTo[1] = %v, want %v", got, want)
	}
	if p.Ct != [5]int{-40, 0, 120, 300, 400} {
		t.Errorf("ct = %v", p.Ct)
	}
	if !p.CalibModeChess {
		t.Errorf("calibration mode not chess")
	}
}

func TestParsePerPixel(t *testing.T) {
	ee := baseEEPROM()

	// Row and column offset trims: row 1 gets +2, column 2 gets -3, both
	// scaled by 1 bit.
	ee[16] = 4<<12 | 1<<8 | 1<<4 // rowScale 1, colScale 1, remScale 0
	ee[18] = 0x0020              // occRow[1] = 2
	ee[24] = 0x0D00              // occCol[2] = -3
	p, err := parseParams(ee)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	// Pixel (0,0): ref -75, pixel trim +1, no row/col term.
	if got := p.Offset[0]; got != -74 {
		t.Errorf("offset(0,0) = %d, want -74", got)
	}
	// Pixel (1,2): -75 + 2<<1 + (-3)<<1 + 1 = -76.
	if got := p.Offset[1*Cols+2]; got != -76 {
		t.Errorf("offset(1,2) = %d, want -76", got)
	}

	wantAlpha := 8246 / math.Pow(2, 36)
	if got := p.Alpha[0]; math.Abs(got-wantAlpha) > 1e-15 {
		t.Errorf("alpha(0,0) = %v, want %v", got, wantAlpha)
	}
}

func TestParseNibbleSign(t *testing.T) {
	got := signedNibbles([]uint16{0x8F70}, 0, 4)
	want := []int{0, 7, -1, -8}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("nibbles = %v, want %v", got, want)
		}
	}
}

func TestParseRejectsZeroedChip(t *testing.T) {
	ee := baseEEPROM()
	ee[51] = 0x0068 // kVdd raw 0
	if _, err := parseParams(ee); !errcode.Is(err, errcode.Calibration) {
		t.Fatalf("kVdd=0 error = %v", err)
	}

	ee = baseEEPROM()
	ee[48] = 0
	if _, err := parseParams(ee); !errcode.Is(err, errcode.Calibration) {
		t.Fatalf("gain=0 error = %v", err)
	}
}

func TestParseDeviatingPixels(t *testing.T) {
	ee := baseEEPROM()
	// Four scattered broken pixels are tolerated.
	for _, pix := range []int{10, 100, 300, 700} {
		ee[64+pix] = 0
	}
	p, err := parseParams(ee)
	if err != nil {
		t.Fatalf("four broken: %v", err)
	}
	if len(p.Broken) != 4 {
		t.Fatalf("broken = %v", p.Broken)
	}

	// A fifth is not.
	ee[64+500] = 0
	if _, err := parseParams(ee); !errcode.Is(err, errcode.Calibration) {
		t.Fatalf("five broken error = %v", err)
	}

	// Two adjacent deviating pixels are not, either.
	ee = baseEEPROM()
	ee[64+40] = 0
	ee[64+41] = 0
	if _, err := parseParams(ee); !errcode.Is(err, errcode.Calibration) {
		t.Fatalf("adjacent broken error = %v", err)
	}
}
