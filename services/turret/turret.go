// Package turret sequences the sensing-to-actuation pipeline: a thermal
// camera feeds a targeting pass, a proportional loop drives the rotation
// motor, and a servo pulls the trigger. Three logical tasks (arm, sense,
// act) share one cooperative step function; every Step does a bounded unit
// of work, so the whole service advances on a single ticker goroutine.
package turret

import (
	"context"
	"time"

	"turretcode-go/bus"
	"turretcode-go/control"
	"turretcode-go/drivers/hbridge"
	"turretcode-go/drivers/mlx90640"
	"turretcode-go/drivers/quadenc"
	"turretcode-go/drivers/trigservo"
	"turretcode-go/types"
	"turretcode-go/x/timex"
)

var (
	topicState    = bus.T("turret", "state")
	topicSetpoint = bus.T("turret", "setpoint")
	topicFired    = bus.T("turret", "event", "fired")
)

type level uint8

const (
	levelIdle level = iota
	levelEngaged
	levelFiring
)

func (l level) String() string {
	switch l {
	case levelEngaged:
		return "engaged"
	case levelFiring:
		return "firing"
	default:
		return "idle"
	}
}

// Hardware bundles the already-constructed drivers the service sequences.
type Hardware struct {
	Camera  *mlx90640.Device
	Motor   *hbridge.Motor
	Servo   *trigservo.Servo
	Encoder *quadenc.Encoder
	Trigger types.DigitalPin
}

// Service is the turret orchestrator. All fields are owned by the single
// stepping goroutine; the bus connection is the only outward surface.
type Service struct {
	cfg  types.TurretConfig
	hw   Hardware
	conn *bus.Connection

	dec  *mlx90640.Decoder
	geom geometry
	loop control.Loop

	level      level
	settling   bool
	settleLeft int
	windowLeft int
	fireLeft   int
	haveTarget bool
	target     Target

	// Tick counts derived from the configured durations.
	settleTicks int
	windowTicks int
	fireTicks   int
}

// New configures the camera for the chosen pattern and refresh rate and
// wires the control loop. The camera must already have passed detection.
func New(cfg types.TurretConfig, hw Hardware, conn *bus.Connection) (*Service, error) {
	cfg.Normalize()
	if err := hw.Camera.Configure(cfg.Pattern, cfg.RefreshHz); err != nil {
		return nil, err
	}

	// Tolerate a few missed frame periods before declaring data unavailable.
	framePeriod := time.Duration(float64(time.Second) / cfg.RefreshHz)
	pollBudget := timex.TicksFor(3*framePeriod, cfg.TickPeriod)

	s := &Service{
		cfg:  cfg,
		hw:   hw,
		conn: conn,
		dec:  mlx90640.NewDecoder(hw.Camera, cfg.Emissivity, pollBudget),
		geom: geometry{
			fovDeg:     cfg.CameraFOVDeg,
			camDist:    cfg.CameraStandoff,
			turretDist: cfg.TurretStandoff,
		},
		loop: control.Loop{
			P:         control.P{Kp: cfg.Kp, Max: cfg.MaxCommand},
			Tolerance: cfg.ToleranceDeg,
			Debounce:  cfg.DebounceTicks,
		},
		settleTicks: timex.TicksFor(cfg.SettleDelay, cfg.TickPeriod),
		windowTicks: timex.TicksFor(cfg.EngagementWindow, cfg.TickPeriod),
		fireTicks:   timex.TicksFor(cfg.ServoSettle, cfg.TickPeriod),
	}
	s.publishState("")
	return s, nil
}

// Start runs the tick loop until the context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	go s.run(ctx)
	return nil
}

func (s *Service) run(ctx context.Context) {
	tick := time.NewTicker(s.cfg.TickPeriod)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			println("Info: turret service stopping")
			s.failSafe("stopped")
			return
		case <-tick.C:
			s.Step()
		}
	}
}

// Step advances all three tasks by one cooperative unit of work. Exposed so
// tests can drive the service deterministically without a ticker.
func (s *Service) Step() {
	s.stepArm()
	s.stepSense()
	s.stepAct()
}

// Level returns the current task level.
func (s *Service) Level() string { return s.level.String() }

// failSafe stops everything that moves and returns to idle. Every fatal
// path funnels through here.
func (s *Service) failSafe(status string) {
	s.hw.Motor.Stop()
	s.hw.Motor.Enable(false)
	s.hw.Servo.Rest()
	s.level = levelIdle
	s.settling = false
	s.haveTarget = false
	s.publishState(status)
}

func (s *Service) publishState(status string) {
	s.conn.Publish(&bus.Message{
		Topic:    topicState,
		Retained: true,
		Payload: types.TurretState{
			Level:  s.level.String(),
			Status: status,
			TSms:   timex.NowMs(),
		},
	})
}
