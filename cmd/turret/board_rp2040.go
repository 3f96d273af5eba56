//go:build rp2040

package main

import (
	"io"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"turretcode-go/drivers/hbridge"
	"turretcode-go/drivers/mlx90640"
	"turretcode-go/drivers/quadenc"
	"turretcode-go/drivers/trigservo"
	"turretcode-go/services/turret"
	"turretcode-go/types"
)

// Pin assignment for the turret carrier board.
const (
	pinSDA = machine.GPIO4 // I2C0 to the camera
	pinSCL = machine.GPIO5

	pinMotorFwd = machine.GPIO14 // PWM7 A/B, H-bridge inputs
	pinMotorRev = machine.GPIO15
	pinMotorEn  = machine.GPIO13

	pinServo = machine.GPIO16 // PWM0 A, trigger servo

	pinEncA = machine.GPIO10 // quadrature inputs
	pinEncB = machine.GPIO11

	pinTrigger = machine.GPIO12 // arming button, externally debounced

	pinUartTX = machine.GPIO0 // telemetry out
	pinUartRX = machine.GPIO1
)

// pwmSlice adapts one channel of an rp2040 PWM slice.
type pwmSlice struct {
	pwm interface {
		Configure(machine.PWMConfig) error
		Channel(machine.Pin) (uint8, error)
		Set(uint8, uint32)
		Top() uint32
	}
	pin machine.Pin
	ch  uint8
}

func (p *pwmSlice) Configure(freqHz uint64, top uint16) error {
	if err := p.pwm.Configure(machine.PWMConfig{Period: 1e9 / freqHz}); err != nil {
		return err
	}
	ch, err := p.pwm.Channel(p.pin)
	if err != nil {
		return err
	}
	p.ch = ch
	return nil
}

func (p *pwmSlice) Set(level uint16) {
	// Scale the 16-bit command onto the slice's actual wrap value.
	p.pwm.Set(p.ch, uint32(level)*p.pwm.Top()/uint32(p.Top()))
}

func (p *pwmSlice) Top() uint16 {
	t := p.pwm.Top()
	if t > 0xFFFF {
		return 0xFFFF
	}
	return uint16(t)
}

// gpioPin adapts machine.Pin to the digital pin handle.
type gpioPin struct{ pin machine.Pin }

func (g gpioPin) Set(v bool) { g.pin.Set(v) }
func (g gpioPin) Get() bool  { return g.pin.Get() }

// irqCounter counts quadrature edges in interrupt context. Channel A edges
// are counted with direction taken from channel B, which halves the
// resolution of full 4x decoding but needs only one interrupt pin.
type irqCounter struct {
	a, b  machine.Pin
	count uint16
}

func (c *irqCounter) start() error {
	c.a.Configure(machine.PinConfig{Mode: machine.PinInput})
	c.b.Configure(machine.PinConfig{Mode: machine.PinInput})
	return c.a.SetInterrupt(machine.PinRising|machine.PinFalling, func(machine.Pin) {
		if c.a.Get() == c.b.Get() {
			c.count++
		} else {
			c.count--
		}
	})
}

func (c *irqCounter) Count() uint16  { return c.count }
func (c *irqCounter) Period() uint16 { return 0xFFFF }

func buildHardware() (turret.Hardware, types.TurretConfig, io.Writer, error) {
	if err := machine.I2C0.Configure(machine.I2CConfig{
		SDA:       pinSDA,
		SCL:       pinSCL,
		Frequency: 400 * machine.KHz,
	}); err != nil {
		return turret.Hardware{}, types.TurretConfig{}, nil, err
	}

	// The camera needs a moment after power-up before it answers.
	time.Sleep(80 * time.Millisecond)
	dev, err := mlx90640.New(machine.I2C0, 0)
	if err != nil {
		return turret.Hardware{}, types.TurretConfig{}, nil, err
	}

	fwd := &pwmSlice{pwm: machine.PWM7, pin: pinMotorFwd}
	rev := &pwmSlice{pwm: machine.PWM7, pin: pinMotorRev}
	if err := hbridge.Configure(fwd, rev, 20_000, 0); err != nil {
		return turret.Hardware{}, types.TurretConfig{}, nil, err
	}
	pinMotorEn.Configure(machine.PinConfig{Mode: machine.PinOutput})

	servo, err := trigservo.New(&pwmSlice{pwm: machine.PWM0, pin: pinServo}, 2.0, 1.65)
	if err != nil {
		return turret.Hardware{}, types.TurretConfig{}, nil, err
	}

	ctr := &irqCounter{a: pinEncA, b: pinEncB}
	if err := ctr.start(); err != nil {
		return turret.Hardware{}, types.TurretConfig{}, nil, err
	}

	pinTrigger.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})

	if err := uartx.UART0.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       pinUartTX,
		RX:       pinUartRX,
	}); err != nil {
		return turret.Hardware{}, types.TurretConfig{}, nil, err
	}

	hw := turret.Hardware{
		Camera:  dev,
		Motor:   hbridge.New(fwd, rev, gpioPin{pinMotorEn}),
		Servo:   servo,
		Encoder: quadenc.New(ctr, 98218),
		Trigger: gpioPin{pinTrigger},
	}
	cfg := types.TurretConfig{
		Pattern:   types.PatternChess,
		RefreshHz: 8,
	}
	return hw, cfg, uartx.UART0, nil
}
