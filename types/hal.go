package types

// Hardware handles consumed by the actuator drivers. Platform wiring (host
// simulation or an rp2040 board file) supplies the implementations.

// PWMChannel is one configured PWM output. Levels are physical counts in
// [0..Top]; duty mapping is the driver's business.
type PWMChannel interface {
	Configure(freqHz uint64, top uint16) error
	Set(level uint16)
	Top() uint16
}

// DigitalPin is a simple GPIO handle.
type DigitalPin interface {
	Set(bool)
	Get() bool
}

// QuadCounter is a free-running hardware quadrature counter. Count wraps at
// Period; the encoder reader un-wraps it into a continuous position.
type QuadCounter interface {
	Count() uint16
	Period() uint16
}
