// Package quadenc turns a free-running hardware quadrature counter into a
// continuous shaft position. The hardware counter wraps at its period;
// Update must be called often enough that the shaft moves less than half a
// period between calls, which every realistic gearmotor satisfies at the
// control tick rate.
package quadenc

import "turretcode-go/types"

// Encoder accumulates counter deltas into an unwrapped position.
type Encoder struct {
	ctr  types.QuadCounter
	last uint16
	pos  int64

	countsPerRev int
}

// New captures the counter's current value as position zero.
func New(ctr types.QuadCounter, countsPerRev int) *Encoder {
	if countsPerRev <= 0 {
		countsPerRev = 1
	}
	return &Encoder{ctr: ctr, last: ctr.Count(), countsPerRev: countsPerRev}
}

// Update samples the hardware counter and folds the delta into the
// position, correcting for wraparound in either direction.
func (e *Encoder) Update() {
	now := e.ctr.Count()
	period := int32(e.ctr.Period())
	delta := int32(now) - int32(e.last)
	if delta > period/2 {
		delta -= period
	} else if delta < -period/2 {
		delta += period
	}
	e.pos += int64(delta)
	e.last = now
}

// Zero makes the current position the new origin.
func (e *Encoder) Zero() {
	e.last = e.ctr.Count()
	e.pos = 0
}

// Count returns the unwrapped position in counts.
func (e *Encoder) Count() int64 { return e.pos }

// AngleDeg returns the shaft angle in degrees from the origin.
func (e *Encoder) AngleDeg() float64 {
	return float64(e.pos) / float64(e.countsPerRev) * 360
}
