// Package hbridge drives a DC motor through a dual-input H-bridge. Each
// input gets its own PWM channel; direction is chosen by which input
// carries the duty cycle while the other is held low.
package hbridge

import (
	"turretcode-go/errcode"
	"turretcode-go/types"
	"turretcode-go/x/mathx"
)

// Motor is one H-bridge channel pair. Not safe for concurrent use; the
// cooperative task model gives it a single caller.
type Motor struct {
	fwd types.PWMChannel
	rev types.PWMChannel
	en  types.DigitalPin // optional sleep/enable line

	cmd float64
}

// New wires a motor to its two bridge inputs. en may be nil when the bridge
// has no enable line. The motor starts stopped and disabled.
func New(fwd, rev types.PWMChannel, en types.DigitalPin) *Motor {
	m := &Motor{fwd: fwd, rev: rev, en: en}
	m.Stop()
	if en != nil {
		en.Set(false)
	}
	return m
}

// Enable asserts the bridge enable line, if wired.
func (m *Motor) Enable(on bool) {
	if m.en != nil {
		m.en.Set(on)
	}
	if !on {
		m.Stop()
	}
}

// SetSigned applies a command in [-1, 1]: sign is direction, magnitude is
// duty cycle. Values outside the range are clamped, never rejected, so a
// controller overshoot can not wind the bridge up.
func (m *Motor) SetSigned(cmd float64) {
	cmd = mathx.Clamp(cmd, -1, 1)
	m.cmd = cmd

	mag := cmd
	if mag < 0 {
		mag = -mag
	}
	level := uint16(mag * float64(m.fwd.Top()))
	switch {
	case cmd > 0:
		m.rev.Set(0)
		m.fwd.Set(level)
	case cmd < 0:
		m.fwd.Set(0)
		m.rev.Set(level)
	default:
		m.fwd.Set(0)
		m.rev.Set(0)
	}
}

// Stop zeroes both inputs immediately. Always safe to call.
func (m *Motor) Stop() {
	m.cmd = 0
	m.fwd.Set(0)
	m.rev.Set(0)
}

// Command returns the last applied signed command.
func (m *Motor) Command() float64 { return m.cmd }

// Configure sets up both PWM channels with the same carrier frequency.
func Configure(fwd, rev types.PWMChannel, freqHz uint64, top uint16) error {
	if err := fwd.Configure(freqHz, top); err != nil {
		return &errcode.E{C: errcode.Error, Op: "hbridge.configure", Err: err}
	}
	if err := rev.Configure(freqHz, top); err != nil {
		return &errcode.E{C: errcode.Error, Op: "hbridge.configure", Err: err}
	}
	return nil
}
