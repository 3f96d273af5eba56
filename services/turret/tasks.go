package turret

import (
	"turretcode-go/bus"
	"turretcode-go/errcode"
	"turretcode-go/types"
	"turretcode-go/x/timex"
)

// stepArm watches the trigger input and owns both ends of an engagement:
// the settle delay into Engaged and the window expiry back to Idle. The
// window expiry is the sole cancellation path; an abandoned engagement is
// never retried on its own.
func (s *Service) stepArm() {
	switch s.level {
	case levelIdle:
		if s.settling {
			s.settleLeft--
			if s.settleLeft <= 0 {
				s.engage()
			}
			return
		}
		if s.hw.Trigger.Get() {
			s.settling = true
			s.settleLeft = s.settleTicks
			s.publishState("settling")
		}

	case levelEngaged:
		s.windowLeft--
		if s.windowLeft <= 0 {
			println("Info: engagement window expired")
			s.failSafe("window_expired")
		}
	}
}

func (s *Service) engage() {
	s.settling = false
	s.level = levelEngaged
	s.windowLeft = s.windowTicks
	s.haveTarget = false
	s.dec.Reset()
	s.hw.Encoder.Zero()
	s.hw.Motor.Enable(true)
	s.publishState("")
}

// stepSense advances one acquisition step while engaged and turns each
// completed frame into a setpoint. Transient acquisition errors skip the
// frame and keep the previous setpoint; anything structural ends the
// engagement.
func (s *Service) stepSense() {
	if s.level != levelEngaged {
		return
	}
	img, err := s.dec.Step()
	if err != nil {
		if errcode.Is(err, errcode.BusError) || errcode.Is(err, errcode.DataNotAvailable) {
			println("Warn: frame skipped:", err.Error())
			return
		}
		println("Error: sense failed:", err.Error())
		s.failSafe("sense_fatal")
		return
	}
	if img == nil {
		return
	}

	tgt := findTarget(img, s.cfg.NoiseFloorC)
	if !tgt.Valid {
		// Nothing above the noise floor; the previous setpoint stands.
		return
	}

	angle := s.geom.colAngleDeg(tgt.Col)
	if !s.haveTarget || angle != s.loop.Target() {
		s.loop.Retarget(angle)
	}
	s.haveTarget = true
	s.target = tgt
	s.conn.Publish(&bus.Message{
		Topic:    topicSetpoint,
		Retained: true,
		Payload: types.SetpointValue{
			Row:      tgt.Row,
			Col:      tgt.Col,
			AngleDeg: angle,
			PeakC:    tgt.PeakC,
			TSms:     timex.NowMs(),
		},
	})
}

// stepAct runs the control loop while engaged and the trigger pull while
// firing. The shot is a single discrete action: once the servo has been
// commanded, the only way to another shot is a fresh engagement.
func (s *Service) stepAct() {
	switch s.level {
	case levelEngaged:
		s.hw.Encoder.Update()
		if !s.haveTarget {
			s.hw.Motor.SetSigned(0)
			return
		}
		cmd := s.loop.Update(s.hw.Encoder.AngleDeg())
		s.hw.Motor.SetSigned(cmd)
		if s.loop.Aligned() {
			s.beginFiring()
		}

	case levelFiring:
		s.fireLeft--
		if s.fireLeft <= 0 {
			s.finishFiring()
		}
	}
}

func (s *Service) beginFiring() {
	s.hw.Motor.Stop()
	s.hw.Servo.Fire()
	s.level = levelFiring
	s.fireLeft = s.fireTicks
	s.publishState("")
}

func (s *Service) finishFiring() {
	s.hw.Servo.Rest()
	s.conn.Publish(&bus.Message{
		Topic: topicFired,
		Payload: types.FireEvent{
			AngleDeg: s.loop.Target(),
			TSms:     timex.NowMs(),
		},
	})
	println("Info: fired at", int(s.loop.Target()), "deg")
	s.failSafe("fired")
}
