// Package trigservo drives a hobby servo on a standard 50 Hz PWM frame.
// The trigger servo knows exactly two postures, rest and fire, given as
// pulse widths in milliseconds.
package trigservo

import (
	"turretcode-go/errcode"
	"turretcode-go/types"
	"turretcode-go/x/mathx"
)

const (
	frameHz = 50
	frameMs = 1000.0 / frameHz

	// Sane hobby servo pulse range. Commands outside are clamped.
	minPulseMs = 0.5
	maxPulseMs = 2.5
)

// Servo positions a trigger linkage. Single caller assumed.
type Servo struct {
	pwm    types.PWMChannel
	restMs float64
	fireMs float64
	atFire bool
}

// New configures the channel for a 50 Hz frame and parks the servo at rest.
func New(pwm types.PWMChannel, restMs, fireMs float64) (*Servo, error) {
	if err := pwm.Configure(frameHz, 0); err != nil {
		return nil, &errcode.E{C: errcode.Error, Op: "trigservo.new", Err: err}
	}
	s := &Servo{
		pwm:    pwm,
		restMs: mathx.Clamp(restMs, minPulseMs, maxPulseMs),
		fireMs: mathx.Clamp(fireMs, minPulseMs, maxPulseMs),
	}
	s.Rest()
	return s, nil
}

// SetPulseMs drives an arbitrary pulse width, clamped to the safe range.
func (s *Servo) SetPulseMs(ms float64) {
	ms = mathx.Clamp(ms, minPulseMs, maxPulseMs)
	level := uint16(ms / frameMs * float64(s.pwm.Top()))
	s.pwm.Set(level)
}

// Rest moves the linkage to the released posture.
func (s *Servo) Rest() {
	s.atFire = false
	s.SetPulseMs(s.restMs)
}

// Fire pulls the linkage to the firing posture. The mechanical travel takes
// real time; callers wait out their settle delay before assuming the shot
// has left.
func (s *Servo) Fire() {
	s.atFire = true
	s.SetPulseMs(s.fireMs)
}

// AtFire reports whether the last commanded posture was the firing one.
func (s *Servo) AtFire() bool { return s.atFire }
