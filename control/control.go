// Package control holds the aiming controller. Pure arithmetic, no
// hardware: the turret task feeds it measurements and applies its commands.
package control

import "turretcode-go/x/mathx"

// P is a proportional controller with symmetric output saturation.
type P struct {
	Kp  float64
	Max float64 // saturation bound, in command units
}

// Compute returns the clamped command for the given setpoint and
// measurement. Zero error yields exactly zero.
func (c P) Compute(setpoint, measured float64) float64 {
	return mathx.Clamp(c.Kp*(setpoint-measured), -c.Max, c.Max)
}

// Loop is one axis of aiming: a proportional controller plus the alignment
// debounce. The target counts as reached only after the error has stayed
// inside tolerance for Debounce consecutive updates, so a fast swing
// through the band does not trigger a shot.
type Loop struct {
	P         P
	Tolerance float64 // degrees
	Debounce  int     // consecutive in-band updates required

	target float64
	inBand int
}

// Retarget points the loop at a new setpoint and restarts the debounce.
func (l *Loop) Retarget(deg float64) {
	l.target = deg
	l.inBand = 0
}

// Target returns the current setpoint in degrees.
func (l *Loop) Target() float64 { return l.target }

// Update folds in one measurement and returns the motor command.
func (l *Loop) Update(measuredDeg float64) float64 {
	if mathx.Abs(l.target-measuredDeg) <= l.Tolerance {
		if l.inBand < l.Debounce {
			l.inBand++
		}
	} else {
		l.inBand = 0
	}
	return l.P.Compute(l.target, measuredDeg)
}

// Aligned reports whether the debounce has been satisfied.
func (l *Loop) Aligned() bool { return l.inBand >= l.Debounce }
