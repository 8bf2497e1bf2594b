// Package logic contains the pure protocol rules for driving the ventilation remote.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Durations are exported as constants; waiting on them is the caller's job.
package logic

import "time"

// Line identifies one button-emulation output on the remote.
type Line int

const (
	LineLevel1 Line = iota + 1
	LineLevel2
	LineLevel3
	LineAuto
	LineTimer
	LineAbsent
)

// Lines lists every button line, in the order they are initialised.
var Lines = []Line{LineAbsent, LineAuto, LineTimer, LineLevel1, LineLevel2, LineLevel3}

func (l Line) String() string {
	switch l {
	case LineLevel1:
		return "level1"
	case LineLevel2:
		return "level2"
	case LineLevel3:
		return "level3"
	case LineAuto:
		return "auto"
	case LineTimer:
		return "timer"
	case LineAbsent:
		return "absent"
	}
	return "unknown"
}

// Indicator identifies one of the two sensed status lines of the remote.
type Indicator int

const (
	IndicatorPositive Indicator = iota + 1 // green
	IndicatorFault                         // red
)

func (i Indicator) String() string {
	switch i {
	case IndicatorPositive:
		return "positive"
	case IndicatorFault:
		return "fault"
	}
	return "unknown"
}

// Protocol timing. These are properties of the remote, not tunables.
const (
	// PressDuration is how long a line is held low for one press.
	PressDuration = 250 * time.Millisecond
	// ReleaseDuration is the released gap after each press.
	ReleaseDuration = 250 * time.Millisecond
	// ConfirmAllowance is the indication time granted per press (plus one).
	ConfirmAllowance = 1000 * time.Millisecond
	// EscalationDelay is the single extra wait granted to a slow device.
	EscalationDelay = 8000 * time.Millisecond
)

// ConfirmWindow returns how long to wait for indications after emitting presses.
func ConfirmWindow(presses uint) time.Duration {
	return time.Duration(presses+1) * ConfirmAllowance
}

// EmitDuration returns how long emitting the given number of presses blocks.
func EmitDuration(presses uint) time.Duration {
	return time.Duration(presses) * (PressDuration + ReleaseDuration)
}

// Counters holds the indicator pulses observed during one invocation.
type Counters struct {
	Positive uint32
	Fault    uint32
}
