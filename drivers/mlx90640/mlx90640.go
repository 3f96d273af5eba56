// Package mlx90640 drives an MLX90640 32x24 thermal infrared sensor over a
// slow I2C bus. The driver is split in three layers: RegMap (range-checked
// word access), Params (factory calibration, loaded once), and Decoder (the
// incremental subpage acquisition state machine that produces temperature
// images). All blocking is bounded; the decoder never sleeps.
package mlx90640

import (
	"tinygo.org/x/drivers"

	"turretcode-go/errcode"
	"turretcode-go/types"
)

// Refresh rate codes for control register 1, bits 7..9.
var refreshCodes = []struct {
	hz   float64
	code uint16
}{
	{0.5, 0}, {1, 1}, {2, 2}, {4, 3}, {8, 4}, {16, 5}, {32, 6}, {64, 7},
}

// refreshCode maps a requested rate in Hz to the nearest supported code.
func refreshCode(hz float64) uint16 {
	best := refreshCodes[0]
	for _, rc := range refreshCodes[1:] {
		if diff(rc.hz, hz) < diff(best.hz, hz) {
			best = rc
		}
	}
	return best.code
}

func diff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

// Device is one attached sensor: its register map, its calibration, and the
// acquisition pattern it was configured for.
type Device struct {
	rm      *RegMap
	params  *Params
	pattern types.Pattern
}

// New probes the bus for a sensor at addr (0 means the default address),
// verifies a camera is actually present, and loads its calibration. The
// sensor is left unconfigured; call Configure before acquiring frames.
func New(bus drivers.I2C, addr uint16) (*Device, error) {
	rm := NewRegMap(bus, addr)
	if err := detect(rm); err != nil {
		return nil, err
	}
	params, err := LoadParams(rm)
	if err != nil {
		return nil, err
	}
	return &Device{rm: rm, params: params}, nil
}

// detect reads the device ID words. A missing or unpowered camera leaves the
// bus floating and the read either fails or returns blank words.
func detect(rm *RegMap) error {
	var id [3]uint16
	if err := rm.Read(eeBase+eeID1, id[:]); err != nil {
		return &errcode.E{C: errcode.CameraDetect, Op: "detect", Err: err}
	}
	blank := true
	for _, w := range id {
		if w != 0x0000 && w != 0xFFFF {
			blank = false
		}
	}
	if blank {
		return &errcode.E{C: errcode.CameraDetect, Op: "detect", Msg: "no camera id"}
	}
	return nil
}

// Configure programs the acquisition pattern and refresh rate into control
// register 1 and clears the status register so the first acquisition starts
// from a known state.
func (d *Device) Configure(pattern types.Pattern, refreshHz float64) error {
	set := refreshCode(refreshHz) << ctrlRefreshShift
	clear := uint16(ctrlRefreshMask | ctrlSubpageMode)
	if pattern == types.PatternChess {
		set |= ctrlPatternChess
	} else {
		clear |= ctrlPatternChess
	}
	if err := d.rm.Update(regControl1, set, clear); err != nil {
		return err
	}
	d.pattern = pattern
	return d.rm.Write(regStatus, statusOverwrite)
}

// Params returns the loaded factory calibration.
func (d *Device) Params() *Params { return d.params }

// Pattern returns the configured acquisition pattern.
func (d *Device) Pattern() types.Pattern { return d.pattern }

// RegMap exposes the underlying register map, mainly for diagnostics.
func (d *Device) RegMap() *RegMap { return d.rm }
