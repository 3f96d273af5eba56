// Package sim emulates an MLX90640 on the wire for host-side runs and
// integration tests: same word protocol, a synthetic calibration EEPROM,
// and a scene you can plant hot spots into. One complete subpage is served
// per status handshake, alternating 0 and 1.
package sim

import (
	"sync"

	"tinygo.org/x/drivers"
)

const (
	rows   = 24
	cols   = 32
	pixels = rows * cols

	ramBase   = 0x0400
	ramWords  = 832
	eeBase    = 0x2400
	eeWords   = 832
	regStatus = 0x8000

	statusNewData = 0x0008
)

// Camera is a drivers.I2C endpoint behaving like one sensor. Safe for a
// single bus owner plus test-side scene edits.
type Camera struct {
	mu sync.Mutex

	ee   []uint16
	ram  [ramWords]uint16
	regs map[uint16]uint16

	// Ready gates the new-data status bit; clear it to starve the decoder.
	Ready bool

	nextSubpage uint16
}

var _ drivers.I2C = (*Camera)(nil)

// NewCamera builds a camera with the default calibration and an empty
// scene at ambient.
func NewCamera() *Camera {
	c := &Camera{
		ee:    DefaultEEPROM(),
		regs:  map[uint16]uint16{0x800D: 0x1901},
		Ready: true,
	}
	// Housekeeping consistent with DefaultEEPROM: 3.3 V supply, room
	// ambient, unity gain.
	c.ram[810] = 0xCD00 // vdd pixel, -13056
	c.ram[800] = 1578   // ptat
	c.ram[768] = 19442  // vbe
	c.ram[778] = 6383   // gain
	return c
}

// DefaultEEPROM is a minimal consistent factory calibration: plausible
// chip scalars, flat per-pixel trims, no deviating pixels. With it, a raw
// count of zero decodes to roughly 30 C and counts climb monotonically.
func DefaultEEPROM() []uint16 {
	ee := make([]uint16, eeWords)
	ee[7], ee[8], ee[9] = 0x1234, 0x5678, 0x9ABC
	ee[16] = 4 << 12 // alphaPTAT
	ee[17] = 0xFFB5  // offset ref -75
	ee[32] = 6 << 12 // alpha scale
	ee[33] = 8246    // alpha ref
	ee[48] = 6383    // gain
	ee[49] = 12273   // vPTAT25
	ee[50] = 336     // ktPTAT
	ee[51] = 0x9D68  // kVdd, vdd25
	ee[56] = 2 << 12 // resolution
	ee[60] = 0xF000  // ksTa
	ee[61] = 0xFEFE  // ksTo1, ksTo0
	ee[62] = 0xFEFE  // ksTo3, ksTo2
	ee[63] = 0x2963  // ct table, ksTo scale
	for i := 0; i < pixels; i++ {
		ee[64+i] = 1 << 10 // offset trim +1, pixel not marked broken
	}
	return ee
}

// SetPixelRaw plants a raw ADC count at (row, col). Higher counts decode
// hotter.
func (c *Camera) SetPixelRaw(row, col int, raw uint16) {
	c.mu.Lock()
	c.ram[row*cols+col] = raw
	c.mu.Unlock()
}

// ClearScene resets every pixel to the ambient background.
func (c *Camera) ClearScene() {
	c.mu.Lock()
	for i := 0; i < pixels; i++ {
		c.ram[i] = 0
	}
	c.mu.Unlock()
}

// CorruptID blanks the identification words so detection fails.
func (c *Camera) CorruptID() {
	c.mu.Lock()
	c.ee[7], c.ee[8], c.ee[9] = 0, 0, 0
	c.mu.Unlock()
}

// Tx implements the sensor's word protocol: a two byte write selects a read
// address, a four byte write stores a register word.
func (c *Camera) Tx(addr uint16, w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(r) > 0 {
		start := uint16(w[0])<<8 | uint16(w[1])
		for i := 0; i < len(r)/2; i++ {
			v := c.readWord(start + uint16(i))
			r[2*i] = byte(v >> 8)
			r[2*i+1] = byte(v)
		}
		return nil
	}

	a := uint16(w[0])<<8 | uint16(w[1])
	v := uint16(w[2])<<8 | uint16(w[3])
	if a == regStatus {
		// Acknowledge: the just-served subpage is done, measure the other.
		c.nextSubpage ^= 1
		return nil
	}
	c.regs[a] = v
	return nil
}

func (c *Camera) readWord(a uint16) uint16 {
	switch {
	case a >= eeBase && a < eeBase+eeWords:
		return c.ee[a-eeBase]
	case a >= ramBase && a < ramBase+ramWords:
		return c.ram[a-ramBase]
	case a == regStatus:
		if !c.Ready {
			return 0
		}
		return statusNewData | c.nextSubpage
	default:
		return c.regs[a]
	}
}
