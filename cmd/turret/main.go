package main

import (
	"context"
	"time"

	"turretcode-go/bus"
	"turretcode-go/services/turret"
	"turretcode-go/types"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	ctx := context.Background()
	b := bus.NewBus(16)

	hw, cfg, telemetry, err := buildHardware()
	if err != nil {
		println("Error: hardware init:", err.Error())
		return
	}

	svc, err := turret.New(cfg, hw, b.NewConnection("turret"))
	if err != nil {
		println("Error: turret init:", err.Error())
		return
	}

	mon := b.NewConnection("monitor")
	stateSub := mon.Subscribe(bus.T("turret", "state"))
	spSub := mon.Subscribe(bus.T("turret", "setpoint"))
	firedSub := mon.Subscribe(bus.T("turret", "event", "fired"))

	if err := svc.Start(ctx); err != nil {
		println("Error: turret start:", err.Error())
		return
	}
	println("turret running, pattern", cfg.Pattern.String())

	for {
		select {
		case m := <-stateSub.Channel():
			if st, ok := m.Payload.(types.TurretState); ok {
				println("[state]", st.Level, st.Status)
			}
		case m := <-spSub.Channel():
			if sp, ok := m.Payload.(types.SetpointValue); ok {
				println("[aim] row", sp.Row, "col", sp.Col, "angle_mdeg", int(sp.AngleDeg*1000))
			}
		case m := <-firedSub.Channel():
			if ev, ok := m.Payload.(types.FireEvent); ok {
				println("[fired] angle_mdeg", int(ev.AngleDeg*1000))
				if telemetry != nil {
					telemetry.Write([]byte("FIRED\r\n"))
				}
			}
		}
	}
}
