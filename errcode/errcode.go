package errcode

// Code is a stable, telemetry-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Sensor/bus pipeline.
	BusError         Code = "bus_error"          // transport failure, fatal to the cycle
	OutOfRange       Code = "out_of_range"       // address range outside the mapped space
	ReadOnly         Code = "read_only"          // write touched a protected region
	CameraDetect     Code = "camera_detect"      // sensor did not answer its ID read
	DataNotAvailable Code = "data_not_available" // new-data bit never asserted
	Calibration      Code = "calibration"        // EEPROM consistency check failed

	// Generic.
	Timeout       Code = "timeout"
	InvalidParams Code = "invalid_params"
	Error         Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// Is reports whether err carries the given Code (directly or via E).
func Is(err error, c Code) bool { return Of(err) == c }
