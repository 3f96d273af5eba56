package types

// ------------------------
// Turret telemetry payloads (bus)
// ------------------------

// TurretState is published retained on "turret/state".
type TurretState struct {
	Level  string `json:"level"`            // "idle", "engaged", "firing"
	Status string `json:"status,omitempty"` // freeform short code
	TSms   int64  `json:"ts_ms"`
}

// SetpointValue is published retained on "turret/setpoint" after each
// completed frame with a valid target.
type SetpointValue struct {
	Row      int     `json:"row"`
	Col      int     `json:"col"`
	AngleDeg float64 `json:"angle_deg"`
	PeakC    float64 `json:"peak_c"`
	TSms     int64   `json:"ts_ms"`
}

// FireEvent is published (not retained) on "turret/event/fired".
type FireEvent struct {
	AngleDeg float64 `json:"angle_deg"`
	TSms     int64   `json:"ts_ms"`
}
