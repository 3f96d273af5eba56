package mlx90640

// Sensor geometry.
const (
	Rows   = 24
	Cols   = 32
	Pixels = Rows * Cols
)

// I2C address.
const Address = 0x33

// Address map. RAM and EEPROM are word-oriented and read-only through the
// register map; only the status/control block accepts writes.
const (
	ramBase  = 0x0400
	ramWords = 832 // pixel data + auxiliary block

	eeBase  = 0x2400
	eeWords = 832

	regStatus   = 0x8000
	regControl1 = 0x800D
	regI2CConf  = 0x800F
)

// Status register bits.
const (
	statusSubpage   = 0x0007 // last measured subpage
	statusNewData   = 0x0008 // new data available in RAM
	statusOverwrite = 0x0010 // enable RAM overwrite
)

// Control register 1 fields.
const (
	ctrlSubpageMode    = 1 << 0
	ctrlRefreshMask    = 0x7 << 7
	ctrlRefreshShift   = 7
	ctrlResolutionMask = 0x3 << 10
	ctrlPatternChess   = 1 << 12 // set = chess, clear = interleaved
)

// Auxiliary RAM block, word offsets from ramBase. The first 768 words are
// pixel counts; the rest is per-subpage housekeeping data.
const (
	auxTaVbe  = 768 // 0x0700
	auxCP0    = 776 // 0x0708, compensation pixel, subpage 0
	auxGain   = 778 // 0x070A
	auxTaPTAT = 800 // 0x0720
	auxCP1    = 808 // 0x0728, compensation pixel, subpage 1
	auxVddPix = 810 // 0x072A
)

// EEPROM ID words; blank (all-0 or all-1) means no camera answered.
const (
	eeID1 = 0x2407 - eeBase
	eeID2 = 0x2408 - eeBase
	eeID3 = 0x2409 - eeBase
)

// openAirTaShift approximates reflected temperature as Ta minus this many
// degrees for a sensor in open air (datasheet recommendation).
const openAirTaShift = 8

// -----------------------------------------------------------------------------
// Packed calibration field table
// -----------------------------------------------------------------------------

// eeField describes one packed sub-field of the calibration EEPROM: the word
// offset within the block, the bit position, the width, and whether the field
// is two's-complement. This table is the single source of truth for the
// datasheet layout; extraction code never does ad hoc bit twiddling.
type eeField struct {
	word   int
	shift  uint
	width  uint
	signed bool
}

// decode extracts the field from a dumped EEPROM block.
func (f eeField) decode(ee []uint16) int {
	v := int(ee[f.word]>>f.shift) & (1<<f.width - 1)
	if f.signed && v >= 1<<(f.width-1) {
		v -= 1 << f.width
	}
	return v
}

// Chip-wide scalar fields (word offsets per the MLX90640 datasheet §11.1).
var (
	fKVdd       = eeField{word: 51, shift: 8, width: 8, signed: true}
	fVdd25      = eeField{word: 51, shift: 0, width: 8, signed: false}
	fKvPTAT     = eeField{word: 50, shift: 10, width: 6, signed: true}
	fKtPTAT     = eeField{word: 50, shift: 0, width: 10, signed: true}
	fVPTAT25    = eeField{word: 49, shift: 0, width: 16, signed: true}
	fAlphaPTAT  = eeField{word: 16, shift: 12, width: 4, signed: false}
	fGain       = eeField{word: 48, shift: 0, width: 16, signed: true}
	fTgc        = eeField{word: 60, shift: 0, width: 8, signed: true}
	fKsTa       = eeField{word: 60, shift: 8, width: 8, signed: true}
	fResolution = eeField{word: 56, shift: 12, width: 2, signed: false}
	fCalibMode  = eeField{word: 10, shift: 11, width: 1, signed: false}

	// Offset correction (per-row/column terms plus scales).
	fOccRemScale = eeField{word: 16, shift: 0, width: 4, signed: false}
	fOccColScale = eeField{word: 16, shift: 4, width: 4, signed: false}
	fOccRowScale = eeField{word: 16, shift: 8, width: 4, signed: false}
	fOffsetRef   = eeField{word: 17, shift: 0, width: 16, signed: true}

	// Sensitivity correction (per-row/column terms plus scales).
	fAccRemScale = eeField{word: 32, shift: 0, width: 4, signed: false}
	fAccColScale = eeField{word: 32, shift: 4, width: 4, signed: false}
	fAccRowScale = eeField{word: 32, shift: 8, width: 4, signed: false}
	fAlphaScale  = eeField{word: 32, shift: 12, width: 4, signed: false}
	fAlphaRef    = eeField{word: 33, shift: 0, width: 16, signed: false}

	// Kta/Kv scales.
	fKtaScale1 = eeField{word: 56, shift: 4, width: 4, signed: false}
	fKtaScale2 = eeField{word: 56, shift: 0, width: 4, signed: false}
	fKvScale   = eeField{word: 56, shift: 8, width: 4, signed: false}

	// Kta corner values (row/column parity classes).
	fKtaRoCo = eeField{word: 54, shift: 8, width: 8, signed: true}
	fKtaReCo = eeField{word: 54, shift: 0, width: 8, signed: true}
	fKtaRoCe = eeField{word: 55, shift: 8, width: 8, signed: true}
	fKtaReCe = eeField{word: 55, shift: 0, width: 8, signed: true}

	// Kv corner values.
	fKvRoCo = eeField{word: 52, shift: 12, width: 4, signed: true}
	fKvReCo = eeField{word: 52, shift: 8, width: 4, signed: true}
	fKvRoCe = eeField{word: 52, shift: 4, width: 4, signed: true}
	fKvReCe = eeField{word: 52, shift: 0, width: 4, signed: true}

	// KsTo ranges and corner temperatures.
	fKsToScale = eeField{word: 63, shift: 0, width: 4, signed: false}
	fCtStep    = eeField{word: 63, shift: 12, width: 2, signed: false}
	fCt2       = eeField{word: 63, shift: 4, width: 4, signed: false}
	fCt3       = eeField{word: 63, shift: 8, width: 4, signed: false}
	fKsTo0     = eeField{word: 61, shift: 0, width: 8, signed: true}
	fKsTo1     = eeField{word: 61, shift: 8, width: 8, signed: true}
	fKsTo2     = eeField{word: 62, shift: 0, width: 8, signed: true}
	fKsTo3     = eeField{word: 62, shift: 8, width: 8, signed: true}

	// Compensation pixel.
	fCpOffset0  = eeField{word: 58, shift: 0, width: 10, signed: true}
	fCpOffsetD  = eeField{word: 58, shift: 10, width: 6, signed: true}
	fCpAlpha0   = eeField{word: 57, shift: 0, width: 10, signed: true}
	fCpAlphaD   = eeField{word: 57, shift: 10, width: 6, signed: true}
	fCpKta      = eeField{word: 59, shift: 0, width: 8, signed: true}
	fCpKv       = eeField{word: 59, shift: 8, width: 8, signed: true}
	fCpAlphaSc  = eeField{word: 32, shift: 12, width: 4, signed: false}

	// Interleaved/chess cross-pattern correction constants.
	fIlChess0 = eeField{word: 53, shift: 0, width: 6, signed: true}
	fIlChess1 = eeField{word: 53, shift: 6, width: 5, signed: true}
	fIlChess2 = eeField{word: 53, shift: 11, width: 5, signed: true}
)

// Per-pixel sub-fields of EEPROM words 64..831 (one word per pixel).
var (
	fPixOffset  = eeField{shift: 10, width: 6, signed: true}
	fPixAlpha   = eeField{shift: 4, width: 6, signed: true}
	fPixKta     = eeField{shift: 1, width: 3, signed: true}
	fPixOutlier = eeField{shift: 0, width: 1, signed: false}
)

// pixField decodes a per-pixel sub-field for pixel p.
func pixField(f eeField, ee []uint16, p int) int {
	f.word = 64 + p
	return f.decode(ee)
}
