package types

import "time"

// ------------------------
// Acquisition pattern
// ------------------------

// Pattern selects the fixed pixel-to-subpage assignment rule of the sensor.
// It is read once at initialisation and never changes during an engagement.
type Pattern uint8

const (
	PatternChess Pattern = iota
	PatternInterleaved
)

func (p Pattern) String() string {
	if p == PatternInterleaved {
		return "interleaved"
	}
	return "chess"
}

// ------------------------
// Turret configuration
// ------------------------

// TurretConfig is supplied once at startup. Zero fields take the defaults
// applied by Normalize.
type TurretConfig struct {
	// Sensor.
	Pattern    Pattern
	RefreshHz  float64 // sensor refresh rate programmed at init
	Emissivity float64 // target emissivity for the radiometric transfer

	// Targeting.
	NoiseFloorC float64 // row maxima below this yield Valid=false

	// Control loop.
	Kp           float64 // proportional gain, duty per degree of error
	MaxCommand   float64 // command clamp, 0..1
	ToleranceDeg float64 // angular error considered on-target
	DebounceTicks int    // consecutive on-target ticks before firing

	// Timing.
	TickPeriod       time.Duration // control tick, all tasks step on this
	SettleDelay      time.Duration // trigger -> Engaged delay
	EngagementWindow time.Duration // Engaged -> forced Idle bound

	// Firing servo.
	ServoRestMs float64 // pulse width at rest, milliseconds
	ServoFireMs float64 // pulse width pulling the trigger
	ServoSettle time.Duration

	// Geometry: maps image columns onto turret angles.
	CameraFOVDeg   float64
	CameraStandoff float64 // perpendicular camera-to-target distance
	TurretStandoff float64 // perpendicular turret-to-target distance
	CountsPerRev   int     // encoder counts per turret revolution
}

// Normalize fills unset fields with workable defaults. Geometry defaults
// follow the original bench setup (9 ft camera, 17 ft turret, 55 deg FOV).
func (c *TurretConfig) Normalize() {
	if c.RefreshHz <= 0 {
		c.RefreshHz = 10
	}
	if c.Emissivity <= 0 || c.Emissivity > 1 {
		c.Emissivity = 0.95
	}
	if c.NoiseFloorC == 0 {
		c.NoiseFloorC = 27
	}
	if c.Kp <= 0 {
		c.Kp = 0.02
	}
	if c.MaxCommand <= 0 || c.MaxCommand > 1 {
		c.MaxCommand = 1
	}
	if c.ToleranceDeg <= 0 {
		c.ToleranceDeg = 1.5
	}
	if c.DebounceTicks <= 0 {
		c.DebounceTicks = 5
	}
	if c.TickPeriod <= 0 {
		c.TickPeriod = 10 * time.Millisecond
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 5 * time.Second
	}
	if c.EngagementWindow <= 0 {
		c.EngagementWindow = 10 * time.Second
	}
	if c.ServoRestMs <= 0 {
		c.ServoRestMs = 2.0
	}
	if c.ServoFireMs <= 0 {
		c.ServoFireMs = 1.65
	}
	if c.ServoSettle <= 0 {
		c.ServoSettle = 2 * time.Second
	}
	if c.CameraFOVDeg <= 0 {
		c.CameraFOVDeg = 55
	}
	if c.CameraStandoff <= 0 {
		c.CameraStandoff = 9
	}
	if c.TurretStandoff <= 0 {
		c.TurretStandoff = 17
	}
	if c.CountsPerRev <= 0 {
		c.CountsPerRev = 98218
	}
}
