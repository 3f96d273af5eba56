package mlx90640

import (
	"tinygo.org/x/drivers"

	"turretcode-go/errcode"
)

// regRange is one contiguous span of the sensor's 16-bit address space.
type regRange struct {
	start    uint16
	end      uint16 // inclusive
	writable bool
}

// The MLX90640 address space as seen through this driver. Measurement RAM
// and calibration EEPROM are write-protected; only the status/control block
// accepts writes.
var addressMap = []regRange{
	{start: ramBase, end: ramBase + ramWords - 1, writable: false},
	{start: eeBase, end: eeBase + eeWords - 1, writable: false},
	{start: regStatus, end: regI2CConf + 1, writable: true},
}

// RegMap provides word-oriented access to the sensor's address space over an
// I2C bus. Reads and writes are range-checked against the address map before
// any bus transaction is issued, so a rejected write never reaches the wire.
//
// The bus is owned exclusively by this map; the cooperative task model
// guarantees at most one in-flight transaction, so no locking is needed.
type RegMap struct {
	bus  drivers.I2C
	addr uint16

	// Fixed buffers sized for the largest mapped read (one RAM dump).
	w [4]byte
	r [2 * ramWords]byte
}

// NewRegMap wraps an already configured I2C bus.
func NewRegMap(bus drivers.I2C, addr uint16) *RegMap {
	if addr == 0 {
		addr = Address
	}
	return &RegMap{bus: bus, addr: addr}
}

// rangeOf returns the mapped range containing [start, start+n), or nil.
func rangeOf(start uint16, n int) *regRange {
	if n <= 0 {
		return nil
	}
	last := uint32(start) + uint32(n) - 1
	for i := range addressMap {
		r := &addressMap[i]
		if start >= r.start && last <= uint32(r.end) {
			return r
		}
	}
	return nil
}

// Read fills out with len(out) contiguous words starting at addr.
// Words travel MSB-first on the wire.
func (m *RegMap) Read(addr uint16, out []uint16) error {
	if rangeOf(addr, len(out)) == nil {
		return &errcode.E{C: errcode.OutOfRange, Op: "regmap.read"}
	}
	m.w[0] = byte(addr >> 8)
	m.w[1] = byte(addr)
	buf := m.r[: 2*len(out) : 2*len(out)]
	if err := m.bus.Tx(m.addr, m.w[:2], buf); err != nil {
		return &errcode.E{C: errcode.BusError, Op: "regmap.read", Err: err}
	}
	for i := range out {
		out[i] = uint16(buf[2*i])<<8 | uint16(buf[2*i+1])
	}
	return nil
}

// ReadWord reads a single word.
func (m *RegMap) ReadWord(addr uint16) (uint16, error) {
	var one [1]uint16
	if err := m.Read(addr, one[:]); err != nil {
		return 0, err
	}
	return one[0], nil
}

// Write stores words at consecutive addresses starting at addr. Protection
// and range checks complete before the first word is sent, so a rejected
// write leaves the sensor untouched.
func (m *RegMap) Write(addr uint16, words ...uint16) error {
	r := rangeOf(addr, len(words))
	if r == nil {
		return &errcode.E{C: errcode.OutOfRange, Op: "regmap.write"}
	}
	if !r.writable {
		return &errcode.E{C: errcode.ReadOnly, Op: "regmap.write"}
	}
	for i, v := range words {
		a := addr + uint16(i)
		m.w[0] = byte(a >> 8)
		m.w[1] = byte(a)
		m.w[2] = byte(v >> 8)
		m.w[3] = byte(v)
		if err := m.bus.Tx(m.addr, m.w[:4], nil); err != nil {
			return &errcode.E{C: errcode.BusError, Op: "regmap.write", Err: err}
		}
	}
	return nil
}

// Update does a read-modify-write on one control word.
func (m *RegMap) Update(addr uint16, set, clear uint16) error {
	cur, err := m.ReadWord(addr)
	if err != nil {
		return err
	}
	return m.Write(addr, (cur|set)&^clear)
}
