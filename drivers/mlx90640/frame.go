package mlx90640

import (
	"io"
	"math"

	"turretcode-go/errcode"
	"turretcode-go/types"
)

// rawFrame is one RAM dump for a single subpage, with the control word that
// was in effect when it was measured.
type rawFrame struct {
	data    [ramWords]uint16
	control uint16
	subpage int
}

// Image is a fully compensated temperature picture. Temperatures are in
// degrees Celsius, row 0 at the top.
type Image struct {
	Pix [Rows][Cols]float64
	Ta  float64
	Vdd float64
}

// At returns the temperature of pixel (row, col).
func (im *Image) At(row, col int) float64 { return im.Pix[row][col] }

// Max returns the hottest pixel and its position. Ties resolve to the
// earliest pixel in row-major order.
func (im *Image) Max() (row, col int, temp float64) {
	temp = im.Pix[0][0]
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if im.Pix[r][c] > temp {
				row, col, temp = r, c, im.Pix[r][c]
			}
		}
	}
	return row, col, temp
}

const asciiRamp = " .:-=+*#%@"

// Render writes a coarse ASCII rendering of the image, scaled between its
// own minimum and maximum. Debug aid for serial consoles.
func (im *Image) Render(w io.Writer) error {
	lo, hi := im.Pix[0][0], im.Pix[0][0]
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			v := im.Pix[r][c]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	span := hi - lo
	if span <= 0 {
		span = 1
	}
	line := make([]byte, Cols+1)
	line[Cols] = '\n'
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			i := int((im.Pix[r][c] - lo) / span * float64(len(asciiRamp)-1))
			line[c] = asciiRamp[i]
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}

// decodeState tracks the acquisition state machine.
type decodeState uint8

const (
	stateIdle decodeState = iota
	stateAwait
)

// Decoder runs the incremental frame acquisition. Each Step does a bounded
// amount of bus work and returns immediately; a complete image needs both
// subpages, so several steps. The decoder never sleeps and never blocks the
// caller beyond a single bus transaction sequence.
type Decoder struct {
	dev        *Device
	emissivity float64
	pollBudget int

	state  decodeState
	polls  int
	frames [2]rawFrame
	have   [2]bool
	img    Image
}

// NewDecoder wraps a configured device. pollBudget bounds how many
// consecutive empty status polls are tolerated before an acquisition is
// abandoned with a data-not-available error.
func NewDecoder(dev *Device, emissivity float64, pollBudget int) *Decoder {
	if emissivity <= 0 || emissivity > 1 {
		emissivity = 0.95
	}
	if pollBudget <= 0 {
		pollBudget = 50
	}
	return &Decoder{dev: dev, emissivity: emissivity, pollBudget: pollBudget}
}

// Reset abandons any acquisition in progress.
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.polls = 0
	d.have[0], d.have[1] = false, false
}

// Step advances the acquisition. It returns (nil, nil) while an image is
// still being assembled, a complete image once both subpages have been
// captured, or an error. On error the acquisition is reset.
func (d *Decoder) Step() (*Image, error) {
	if d.state == stateIdle {
		d.state = stateAwait
		d.polls = 0
	}

	status, err := d.dev.rm.ReadWord(regStatus)
	if err != nil {
		d.Reset()
		return nil, err
	}
	if status&statusNewData == 0 {
		d.polls++
		if d.polls > d.pollBudget {
			d.Reset()
			return nil, &errcode.E{C: errcode.DataNotAvailable, Op: "decoder.step"}
		}
		return nil, nil
	}
	d.polls = 0

	sp := int(status & statusSubpage & 1)
	f := &d.frames[sp]
	if err := d.dev.rm.Read(ramBase, f.data[:]); err != nil {
		d.Reset()
		return nil, err
	}
	ctrl, err := d.dev.rm.ReadWord(regControl1)
	if err != nil {
		d.Reset()
		return nil, err
	}
	f.control = ctrl
	f.subpage = sp
	d.have[sp] = true

	// Acknowledge so the sensor starts the next measurement.
	if err := d.dev.rm.Write(regStatus, statusOverwrite); err != nil {
		d.Reset()
		return nil, err
	}

	if !d.have[0] || !d.have[1] {
		return nil, nil
	}
	d.compute()
	d.Reset()
	return &d.img, nil
}

// compute merges the two captured subpages into a compensated image.
// Each pixel is decoded from the subpage that owns it under the configured
// pattern, using that subpage's supply and ambient measurements.
func (d *Decoder) compute() {
	p := d.dev.params

	var vdd, ta, gain [2]float64
	var irCP [2]float64
	for sp := 0; sp < 2; sp++ {
		f := &d.frames[sp]
		vdd[sp] = p.Vdd(f)
		ta[sp] = p.Ta(f)
		gain[sp] = float64(p.Gain) / float64(int16(f.data[auxGain]))
		irCP[sp] = d.cpIR(sp, vdd[sp], ta[sp], gain[sp])
	}

	crossPattern := (d.dev.pattern == types.PatternChess) != p.CalibModeChess

	alphaCorr := rangeCorrections(p)

	for pix := 0; pix < Pixels; pix++ {
		sp := subpageOfIndex(d.dev.pattern, pix)
		f := &d.frames[sp]

		ir := float64(int16(f.data[pix])) * gain[sp]
		ir -= float64(p.Offset[pix]) *
			(1 + p.Kta[pix]*(ta[sp]-25)) *
			(1 + p.Kv[pix]*(vdd[sp]-3.3))
		if crossPattern {
			ir += crossPatternTerm(p, pix)
		}
		ir -= p.Tgc * irCP[sp]
		ir /= d.emissivity

		d.img.Pix[pix/Cols][pix%Cols] = d.pixelTo(p, alphaCorr, pix, ir, ta[sp])
	}

	d.img.Ta = ta[1]
	d.img.Vdd = vdd[1]
	d.patchDeviating()
}

// cpIR computes the gain- and drift-compensated compensation pixel reading
// for one subpage.
func (d *Decoder) cpIR(sp int, vdd, ta, gain float64) float64 {
	p := d.dev.params
	off := auxCP0
	if sp == 1 {
		off = auxCP1
	}
	ir := float64(int16(d.frames[sp].data[off])) * gain
	cpOff := float64(p.CpOffset[sp])
	if sp == 1 && (d.dev.pattern == types.PatternChess) != p.CalibModeChess {
		cpOff += p.IlChess[0]
	}
	return ir - cpOff*(1+p.CpKta*(ta-25))*(1+p.CpKv*(vdd-3.3))
}

// crossPatternTerm is the per-pixel correction applied when the acquisition
// pattern differs from the factory calibration pattern.
func crossPatternTerm(p *Params, pix int) float64 {
	rowPar := (pix / Cols) & 1
	conv := ((pix+2)/4 - (pix+3)/4 + (pix+1)/4 - pix/4) * (1 - 2*rowPar)
	return p.IlChess[2]*float64(2*rowPar-1) - p.IlChess[1]*float64(conv)
}

// rangeCorrections precomputes the sensitivity correction per extended
// temperature range.
func rangeCorrections(p *Params) [4]float64 {
	var a [4]float64
	a[0] = 1 / (1 + p.KsTo[0]*40)
	a[1] = 1
	a[2] = 1 + p.KsTo[1]*float64(p.Ct[2])
	a[3] = a[2] * (1 + p.KsTo[2]*float64(p.Ct[3]-p.Ct[2]))
	return a
}

// pixelTo inverts the radiometric model for one pixel: compensated IR counts
// to object temperature in degrees Celsius.
func (d *Decoder) pixelTo(p *Params, alphaCorr [4]float64, pix int, ir, ta float64) float64 {
	tr := ta - openAirTaShift
	taK4 := pow4(ta + 273.15)
	trK4 := pow4(tr + 273.15)
	taTr := trK4 - (trK4-taK4)/d.emissivity

	alpha := p.Alpha[pix] * (1 + p.KsTa*(ta-25))
	sx := p.KsTo[1] * math.Pow(alpha*alpha*alpha*(ir+alpha*taTr), 0.25)
	to := math.Pow(ir/(alpha*(1-p.KsTo[1]*273.15)+sx)+taTr, 0.25) - 273.15

	var rng int
	switch {
	case to < float64(p.Ct[1]):
		rng = 0
	case to < float64(p.Ct[2]):
		rng = 1
	case to < float64(p.Ct[3]):
		rng = 2
	default:
		rng = 3
	}
	return math.Pow(
		ir/(alpha*alphaCorr[rng]*(1+p.KsTo[rng]*(to-float64(p.Ct[rng]))))+taTr,
		0.25) - 273.15
}

func pow4(x float64) float64 {
	x *= x
	return x * x
}

// patchDeviating replaces factory-flagged pixels with their nearest valid
// horizontal neighbour so downstream statistics are not skewed.
func (d *Decoder) patchDeviating() {
	flagged := make(map[int]bool, len(d.dev.params.Broken)+len(d.dev.params.Outliers))
	for _, i := range d.dev.params.Broken {
		flagged[i] = true
	}
	for _, i := range d.dev.params.Outliers {
		flagged[i] = true
	}
	for i := range flagged {
		r, c := i/Cols, i%Cols
		for step := 1; step < Cols; step++ {
			if c-step >= 0 && !flagged[i-step] {
				d.img.Pix[r][c] = d.img.Pix[r][c-step]
				break
			}
			if c+step < Cols && !flagged[i+step] {
				d.img.Pix[r][c] = d.img.Pix[r][c+step]
				break
			}
		}
	}
}
