//go:build !rp2040

package main

import (
	"io"
	"os"
	"sync/atomic"
	"time"

	"turretcode-go/drivers/hbridge"
	"turretcode-go/drivers/mlx90640"
	"turretcode-go/drivers/mlx90640/sim"
	"turretcode-go/drivers/quadenc"
	"turretcode-go/drivers/trigservo"
	"turretcode-go/services/turret"
	"turretcode-go/types"
)

// Host build: simulated camera on the wire, a first-order motor plant
// behind the PWM outputs, and a scripted trigger press. Useful for running
// the whole pipeline on a laptop.

type hostPWM struct {
	level atomic.Uint32
	top   uint32
}

func (p *hostPWM) Configure(freqHz uint64, top uint16) error {
	p.top = 1000
	return nil
}
func (p *hostPWM) Set(level uint16) { p.level.Store(uint32(level)) }
func (p *hostPWM) Top() uint16      { return uint16(p.top) }

type hostPin struct{ state atomic.Bool }

func (p *hostPin) Set(v bool) { p.state.Store(v) }
func (p *hostPin) Get() bool  { return p.state.Load() }

type hostCounter struct{ count atomic.Uint32 }

func (c *hostCounter) Count() uint16  { return uint16(c.count.Load()) }
func (c *hostCounter) Period() uint16 { return 0xFFFF }

const hostCountsPerRev = 98218

func buildHardware() (turret.Hardware, types.TurretConfig, io.Writer, error) {
	cam := sim.NewCamera()
	// Warm body off to the left of boresight.
	for r := 9; r < 12; r++ {
		for c := 4; c < 7; c++ {
			cam.SetPixelRaw(r, c, 600)
		}
	}

	dev, err := mlx90640.New(cam, 0)
	if err != nil {
		return turret.Hardware{}, types.TurretConfig{}, nil, err
	}

	fwd := &hostPWM{top: 1000}
	rev := &hostPWM{top: 1000}
	servoPWM := &hostPWM{top: 1000}
	trigger := &hostPin{}
	ctr := &hostCounter{}

	servo, err := trigservo.New(servoPWM, 2.0, 1.65)
	if err != nil {
		return turret.Hardware{}, types.TurretConfig{}, nil, err
	}

	// Motor plant: integrate the signed command into the encoder counter.
	go func() {
		tick := time.NewTicker(10 * time.Millisecond)
		defer tick.Stop()
		angle := 0.0
		for range tick.C {
			cmd := (float64(fwd.level.Load()) - float64(rev.level.Load())) / 1000
			angle += cmd * 0.8 // degrees per tick at full duty
			ctr.count.Store(uint32(int32(angle / 360 * hostCountsPerRev)))
		}
	}()

	// Press the trigger once, shortly after boot.
	go func() {
		time.Sleep(1 * time.Second)
		println("trigger pressed")
		trigger.Set(true)
		time.Sleep(100 * time.Millisecond)
		trigger.Set(false)
	}()

	hw := turret.Hardware{
		Camera:  dev,
		Motor:   hbridge.New(fwd, rev, nil),
		Servo:   servo,
		Encoder: quadenc.New(ctr, hostCountsPerRev),
		Trigger: trigger,
	}
	cfg := types.TurretConfig{
		Pattern:     types.PatternChess,
		RefreshHz:   8,
		NoiseFloorC: 35,
		SettleDelay: 1 * time.Second,
	}
	return hw, cfg, os.Stdout, nil
}
