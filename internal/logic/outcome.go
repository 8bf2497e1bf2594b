package logic

// Outcome is the terminal classification of one command invocation.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeMismatch
	OutcomeCommError
	OutcomeDeviceError
	OutcomeUnknownCommand
)

// Outcomes lists every outcome, in declaration order.
var Outcomes = []Outcome{OutcomeOK, OutcomeMismatch, OutcomeCommError, OutcomeDeviceError, OutcomeUnknownCommand}

// String returns the wire name used in MQTT and JSON payloads.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "OK"
	case OutcomeMismatch:
		return "RESPONSE_MISMATCH"
	case OutcomeCommError:
		return "COMMUNICATION_ERROR"
	case OutcomeDeviceError:
		return "DEVICE_ERROR"
	case OutcomeUnknownCommand:
		return "UNKNOWN_COMMAND"
	}
	return "INVALID"
}

// Message returns the console text for the outcome.
func (o Outcome) Message() string {
	switch o {
	case OutcomeOK:
		return "accepted"
	case OutcomeMismatch:
		return "command not confirmed"
	case OutcomeCommError:
		return "device unreachable"
	case OutcomeDeviceError:
		return "device error"
	case OutcomeUnknownCommand:
		return "unknown command"
	}
	return "invalid outcome"
}

// Classify maps the observed indicator pulses to an outcome.
// Each accepted press yields exactly two positive pulses. The fault thresholds
// overlap (fault > 2 implies fault > 1), so DeviceError means exactly two faults.
func Classify(presses uint, c Counters) Outcome {
	switch {
	case c.Fault > 2:
		return OutcomeCommError
	case c.Fault > 1:
		return OutcomeDeviceError
	case uint64(c.Positive) != 2*uint64(presses):
		return OutcomeMismatch
	}
	return OutcomeOK
}
