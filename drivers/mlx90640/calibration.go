package mlx90640

import (
	"math"

	"turretcode-go/errcode"
)

// Params holds the factory calibration of one sensor, unpacked from a single
// EEPROM dump. Immutable after LoadParams; the frame decoder that loaded it
// is its sole owner. All per-pixel slices have length Pixels.
type Params struct {
	// Supply voltage model.
	KVdd  int
	Vdd25 int

	// Ambient temperature model (PTAT).
	KvPTAT    float64
	KtPTAT    float64
	VPTAT25   int
	AlphaPTAT float64

	// Chip-wide gain and drift terms.
	Gain       int
	Tgc        float64
	KsTa       float64
	Resolution uint8

	// Object-temperature range correction.
	KsTo [5]float64
	Ct   [5]int

	// Per-pixel terms.
	Alpha  []float64
	Offset []int
	Kta    []float64
	Kv     []float64

	// Compensation pixel.
	CpAlpha  [2]float64
	CpOffset [2]int
	CpKta    float64
	CpKv     float64

	// Cross-pattern correction, applied when the acquisition pattern differs
	// from the factory calibration pattern.
	IlChess        [3]float64
	CalibModeChess bool

	// Deviating pixels flagged by the factory.
	Broken   []int
	Outliers []int
}

// LoadParams dumps the calibration EEPROM through the register map and
// unpacks it. Invoked once at startup; recalibration requires a fresh load.
func LoadParams(rm *RegMap) (*Params, error) {
	ee := make([]uint16, eeWords)
	if err := rm.Read(eeBase, ee); err != nil {
		return nil, err
	}
	return parseParams(ee)
}

// parseParams unpacks a raw EEPROM block. Split from LoadParams so the
// decode can be exercised without a bus.
func parseParams(ee []uint16) (*Params, error) {
	p := &Params{
		Alpha:  make([]float64, Pixels),
		Offset: make([]int, Pixels),
		Kta:    make([]float64, Pixels),
		Kv:     make([]float64, Pixels),
	}

	// Supply voltage.
	p.KVdd = fKVdd.decode(ee) * 32
	p.Vdd25 = (fVdd25.decode(ee)-256)<<5 - 8192
	if p.KVdd == 0 {
		return nil, &errcode.E{C: errcode.Calibration, Op: "parse", Msg: "kVdd is zero"}
	}

	// PTAT.
	p.KvPTAT = float64(fKvPTAT.decode(ee)) / 4096
	p.KtPTAT = float64(fKtPTAT.decode(ee)) / 8
	p.VPTAT25 = fVPTAT25.decode(ee)
	p.AlphaPTAT = float64(fAlphaPTAT.decode(ee))/4 + 8
	if p.KtPTAT == 0 {
		return nil, &errcode.E{C: errcode.Calibration, Op: "parse", Msg: "ktPTAT is zero"}
	}

	// Gain and drift.
	p.Gain = fGain.decode(ee)
	if p.Gain == 0 {
		return nil, &errcode.E{C: errcode.Calibration, Op: "parse", Msg: "gain is zero"}
	}
	p.Tgc = float64(fTgc.decode(ee)) / 32
	p.KsTa = float64(fKsTa.decode(ee)) / 8192
	p.Resolution = uint8(fResolution.decode(ee))

	// Object-temperature ranges.
	ksToScale := float64(int(1) << (uint(fKsToScale.decode(ee)) + 8))
	p.KsTo[0] = float64(fKsTo0.decode(ee)) / ksToScale
	p.KsTo[1] = float64(fKsTo1.decode(ee)) / ksToScale
	p.KsTo[2] = float64(fKsTo2.decode(ee)) / ksToScale
	p.KsTo[3] = float64(fKsTo3.decode(ee)) / ksToScale
	p.KsTo[4] = -0.0002
	step := fCtStep.decode(ee) * 10
	p.Ct[0] = -40
	p.Ct[1] = 0
	p.Ct[2] = fCt2.decode(ee) * step
	p.Ct[3] = p.Ct[2] + fCt3.decode(ee)*step
	p.Ct[4] = 400

	p.CalibModeChess = fCalibMode.decode(ee) == 0

	parseCP(ee, p)
	parseOffsets(ee, p)
	parseAlpha(ee, p)
	parseKtaKv(ee, p)

	p.IlChess[0] = float64(fIlChess0.decode(ee)) / 16
	p.IlChess[1] = float64(fIlChess1.decode(ee)) / 2
	p.IlChess[2] = float64(fIlChess2.decode(ee)) / 8

	if err := parseDeviating(ee, p); err != nil {
		return nil, err
	}
	return p, nil
}

func parseCP(ee []uint16, p *Params) {
	alphaScale := float64(int(1) << (uint(fCpAlphaSc.decode(ee)) + 27))

	off0 := fCpOffset0.decode(ee)
	p.CpOffset[0] = off0
	p.CpOffset[1] = off0 + fCpOffsetD.decode(ee)

	a0 := float64(fCpAlpha0.decode(ee)) / alphaScale
	p.CpAlpha[0] = a0
	p.CpAlpha[1] = (1 + float64(fCpAlphaD.decode(ee))/128) * a0

	p.CpKta = float64(fCpKta.decode(ee)) / math.Pow(2, float64(fKtaScale1.decode(ee)+8))
	p.CpKv = float64(fCpKv.decode(ee)) / math.Pow(2, float64(fKvScale.decode(ee)))
}

func parseOffsets(ee []uint16, p *Params) {
	remScale := uint(fOccRemScale.decode(ee))
	colScale := uint(fOccColScale.decode(ee))
	rowScale := uint(fOccRowScale.decode(ee))
	ref := fOffsetRef.decode(ee)

	occRow := signedNibbles(ee, 18, Rows)
	occCol := signedNibbles(ee, 24, Cols)

	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			i := r*Cols + c
			p.Offset[i] = ref +
				occRow[r]<<rowScale +
				occCol[c]<<colScale +
				pixField(fPixOffset, ee, i)<<remScale
		}
	}
}

func parseAlpha(ee []uint16, p *Params) {
	remScale := uint(fAccRemScale.decode(ee))
	colScale := uint(fAccColScale.decode(ee))
	rowScale := uint(fAccRowScale.decode(ee))
	alphaScale := math.Pow(2, float64(fAlphaScale.decode(ee)+30))
	ref := fAlphaRef.decode(ee)

	accRow := signedNibbles(ee, 34, Rows)
	accCol := signedNibbles(ee, 40, Cols)

	// Compensation-pixel sensitivity bleeds into every pixel via the TGC.
	cpAvg := p.Tgc * (p.CpAlpha[0] + p.CpAlpha[1]) / 2

	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			i := r*Cols + c
			a := float64(ref+
				accRow[r]<<rowScale+
				accCol[c]<<colScale+
				pixField(fPixAlpha, ee, i)<<remScale) / alphaScale
			p.Alpha[i] = a - cpAvg
		}
	}
}

func parseKtaKv(ee []uint16, p *Params) {
	// Corner values indexed by 2*(row parity) + column parity.
	ktaRC := [4]int{
		fKtaRoCo.decode(ee),
		fKtaRoCe.decode(ee),
		fKtaReCo.decode(ee),
		fKtaReCe.decode(ee),
	}
	kvRC := [4]int{
		fKvRoCo.decode(ee),
		fKvRoCe.decode(ee),
		fKvReCo.decode(ee),
		fKvReCe.decode(ee),
	}
	ktaScale1 := math.Pow(2, float64(fKtaScale1.decode(ee)+8))
	ktaScale2 := uint(fKtaScale2.decode(ee))
	kvScale := math.Pow(2, float64(fKvScale.decode(ee)))

	for i := 0; i < Pixels; i++ {
		split := 2*((i/Cols)&1) + i&1
		p.Kta[i] = float64(ktaRC[split]+pixField(fPixKta, ee, i)<<ktaScale2) / ktaScale1
		p.Kv[i] = float64(kvRC[split]) / kvScale
	}
}

// parseDeviating collects factory-flagged pixels and rejects calibrations
// the datasheet declares unusable (more than four of a class, or deviating
// pixels adjacent to each other).
func parseDeviating(ee []uint16, p *Params) error {
	for i := 0; i < Pixels; i++ {
		switch {
		case ee[64+i] == 0:
			p.Broken = append(p.Broken, i)
		case pixField(fPixOutlier, ee, i) != 0:
			p.Outliers = append(p.Outliers, i)
		}
	}
	if len(p.Broken) > 4 || len(p.Outliers) > 4 || len(p.Broken)+len(p.Outliers) > 4 {
		return &errcode.E{C: errcode.Calibration, Op: "parse", Msg: "too many deviating pixels"}
	}
	all := append(append([]int{}, p.Broken...), p.Outliers...)
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if adjacentPixels(all[i], all[j]) {
				return &errcode.E{C: errcode.Calibration, Op: "parse", Msg: "adjacent deviating pixels"}
			}
		}
	}
	return nil
}

func adjacentPixels(a, b int) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 2 || (d > 30 && d < 34)
}

// signedNibbles decodes n consecutive signed 4-bit values packed
// little-nibble-first from baseWord on.
func signedNibbles(ee []uint16, baseWord, n int) []int {
	out := make([]int, n)
	for i := range out {
		f := eeField{word: baseWord + i/4, shift: uint(4 * (i % 4)), width: 4, signed: true}
		out[i] = f.decode(ee)
	}
	return out
}

// Vdd computes the supply voltage from one raw frame.
func (p *Params) Vdd(f *rawFrame) float64 {
	raw := float64(int16(f.data[auxVddPix]))
	resRAM := (f.control & ctrlResolutionMask) >> 10
	resCorr := math.Pow(2, float64(p.Resolution)) / math.Pow(2, float64(resRAM))
	return (resCorr*raw-float64(p.Vdd25))/float64(p.KVdd) + 3.3
}

// Ta computes the ambient (die) temperature in degrees Celsius from one raw
// frame.
func (p *Params) Ta(f *rawFrame) float64 {
	ptat := float64(int16(f.data[auxTaPTAT]))
	vbe := float64(int16(f.data[auxTaVbe]))
	ptatArt := ptat / (ptat*p.AlphaPTAT + vbe) * math.Pow(2, 18)

	vdd := p.Vdd(f)
	ta := ptatArt/(1+p.KvPTAT*(vdd-3.3)) - float64(p.VPTAT25)
	return ta/p.KtPTAT + 25
}
