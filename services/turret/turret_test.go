package turret

import (
	"math"
	"testing"
	"time"

	"turretcode-go/bus"
	"turretcode-go/drivers/hbridge"
	"turretcode-go/drivers/mlx90640"
	"turretcode-go/drivers/mlx90640/sim"
	"turretcode-go/drivers/quadenc"
	"turretcode-go/drivers/trigservo"
	"turretcode-go/types"
)

type fakePWM struct {
	level uint16
	top   uint16
}

func (p *fakePWM) Configure(freqHz uint64, top uint16) error {
	p.top = 1000
	return nil
}
func (p *fakePWM) Set(level uint16) { p.level = level }
func (p *fakePWM) Top() uint16      { return p.top }

type fakePin struct{ state bool }

func (p *fakePin) Set(v bool) { p.state = v }
func (p *fakePin) Get() bool  { return p.state }

type fakeCounter struct{ count uint16 }

func (c *fakeCounter) Count() uint16  { return c.count }
func (c *fakeCounter) Period() uint16 { return 0xFFFF }

// rig is a complete simulated turret: camera on the wire, motor plant,
// encoder fed back from the plant angle.
type rig struct {
	cam     *sim.Camera
	fwd     *fakePWM
	rev     *fakePWM
	servo   *fakePWM
	trigger *fakePin
	ctr     *fakeCounter

	svc *Service

	angle float64 // plant position, degrees
	bus   *bus.Bus
}

const testCountsPerRev = 3600 // ten counts per degree keeps the plant easy to read

func newRig(t *testing.T, cfg types.TurretConfig) *rig {
	t.Helper()
	r := &rig{
		cam:     sim.NewCamera(),
		fwd:     &fakePWM{top: 1000},
		rev:     &fakePWM{top: 1000},
		servo:   &fakePWM{},
		trigger: &fakePin{},
		ctr:     &fakeCounter{},
		bus:     bus.NewBus(64),
	}

	dev, err := mlx90640.New(r.cam, 0)
	if err != nil {
		t.Fatalf("camera: %v", err)
	}
	srv, err := trigservo.New(r.servo, cfg.ServoRestMs, cfg.ServoFireMs)
	if err != nil {
		t.Fatalf("servo: %v", err)
	}
	hw := Hardware{
		Camera:  dev,
		Motor:   hbridge.New(r.fwd, r.rev, nil),
		Servo:   srv,
		Encoder: quadenc.New(r.ctr, testCountsPerRev),
		Trigger: r.trigger,
	}
	r.svc, err = New(cfg, hw, r.bus.NewConnection("turret"))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return r
}

// step advances the service one tick and then the motor plant: the shaft
// moves proportionally to the applied command.
func (r *rig) step() {
	r.svc.Step()
	cmd := (float64(r.fwd.level) - float64(r.rev.level)) / 1000
	r.angle += cmd * 0.8
	r.ctr.count = uint16(int32(math.Round(r.angle / 360 * testCountsPerRev)))
}

func e2eConfig() types.TurretConfig {
	return types.TurretConfig{
		Pattern:          types.PatternChess,
		RefreshHz:        2,
		NoiseFloorC:      35,
		Kp:               0.05,
		MaxCommand:       1,
		ToleranceDeg:     1.5,
		DebounceTicks:    3,
		TickPeriod:       10 * time.Millisecond,
		SettleDelay:      50 * time.Millisecond,
		EngagementWindow: 10 * time.Second,
		ServoRestMs:      2.0,
		ServoFireMs:      1.65,
		ServoSettle:      30 * time.Millisecond,
		CountsPerRev:     testCountsPerRev,
	}
}

func drain(sub *bus.Subscription) []*bus.Message {
	var out []*bus.Message
	for {
		select {
		case m := <-sub.Channel():
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestEngagementFiresExactlyOnce(t *testing.T) {
	cfg := e2eConfig()
	r := newRig(t, cfg)
	r.cam.SetPixelRaw(10, 5, 600) // decodes well above the noise floor

	watcher := r.bus.NewConnection("test")
	firedSub := watcher.Subscribe(bus.T("turret", "event", "fired"))
	spSub := watcher.Subscribe(bus.T("turret", "setpoint"))
	defer watcher.Disconnect()

	r.trigger.Set(true)
	r.step()
	r.trigger.Set(false) // momentary press; the arm task has latched it

	fired := 0
	for i := 0; i < 3000; i++ {
		r.step()
		fired += len(drain(firedSub))
	}

	if fired != 1 {
		t.Fatalf("fired %d times, want exactly 1", fired)
	}
	if r.svc.Level() != "idle" {
		t.Fatalf("level = %q after engagement", r.svc.Level())
	}
	if r.fwd.level != 0 || r.rev.level != 0 {
		t.Fatalf("motor still driving after fire: fwd=%d rev=%d", r.fwd.level, r.rev.level)
	}

	// Setpoint matches the planted hot spot.
	sps := drain(spSub)
	if len(sps) == 0 {
		t.Fatalf("no setpoint published")
	}
	sp := sps[len(sps)-1].Payload.(types.SetpointValue)
	if sp.Row != 10 || sp.Col != 5 {
		t.Fatalf("setpoint (%d,%d), want (10,5)", sp.Row, sp.Col)
	}

	// Plant came to rest within tolerance of the computed aim angle.
	if err := math.Abs(r.angle - sp.AngleDeg); err > cfg.ToleranceDeg {
		t.Fatalf("plant at %.2f deg, aim %.2f deg, error %.2f", r.angle, sp.AngleDeg, err)
	}
}

func TestEngagementWindowExpiresWithoutTarget(t *testing.T) {
	cfg := e2eConfig()
	cfg.SettleDelay = 10 * time.Millisecond
	cfg.EngagementWindow = 200 * time.Millisecond
	r := newRig(t, cfg)
	r.cam.Ready = false // camera never produces a frame

	watcher := r.bus.NewConnection("test")
	firedSub := watcher.Subscribe(bus.T("turret", "event", "fired"))
	defer watcher.Disconnect()

	r.trigger.Set(true)
	r.step()
	r.trigger.Set(false)

	sawEngaged := false
	for i := 0; i < 200; i++ {
		r.step()
		if r.svc.Level() == "engaged" {
			sawEngaged = true
		}
	}

	if !sawEngaged {
		t.Fatalf("never engaged")
	}
	if r.svc.Level() != "idle" {
		t.Fatalf("level = %q, want idle after window expiry", r.svc.Level())
	}
	if len(drain(firedSub)) != 0 {
		t.Fatalf("fired without a target")
	}
	if r.fwd.level != 0 || r.rev.level != 0 {
		t.Fatalf("motor driving after cancelled engagement")
	}
}

func TestColdSceneHoldsFire(t *testing.T) {
	cfg := e2eConfig()
	cfg.SettleDelay = 10 * time.Millisecond
	cfg.EngagementWindow = 300 * time.Millisecond
	r := newRig(t, cfg) // scene left at ambient, below the noise floor

	watcher := r.bus.NewConnection("test")
	firedSub := watcher.Subscribe(bus.T("turret", "event", "fired"))
	defer watcher.Disconnect()

	r.trigger.Set(true)
	r.step()
	r.trigger.Set(false)

	for i := 0; i < 300; i++ {
		r.step()
		if r.angle != 0 {
			t.Fatalf("turret moved with no valid target: %.2f deg", r.angle)
		}
	}
	if len(drain(firedSub)) != 0 {
		t.Fatalf("fired on a cold scene")
	}
	if r.svc.Level() != "idle" {
		t.Fatalf("level = %q, want idle", r.svc.Level())
	}
}

func TestSettleDelayBeforeEngagement(t *testing.T) {
	cfg := e2eConfig()
	cfg.SettleDelay = 100 * time.Millisecond // ten ticks
	r := newRig(t, cfg)

	r.trigger.Set(true)
	r.step()
	r.trigger.Set(false)

	for i := 0; i < 9; i++ {
		r.step()
		if r.svc.Level() != "idle" {
			t.Fatalf("engaged after %d ticks, before settle elapsed", i+2)
		}
	}
	r.step()
	if r.svc.Level() != "engaged" {
		t.Fatalf("level = %q after settle delay", r.svc.Level())
	}
}
