package remote

import (
	"time"

	"github.com/sweeney/vent-remote/internal/logic"
)

// State is a step of a command invocation.
type State string

const (
	StateIdle           State = "IDLE"
	StateLookup         State = "LOOKUP"
	StateEmitting       State = "EMITTING"
	StateWaitingConfirm State = "WAITING_CONFIRM"
	StateWaitingExtra   State = "WAITING_EXTRA"
	StateResolved       State = "RESOLVED"
)

// Report describes one finished invocation.
type Report struct {
	ID      string
	Key     rune
	Command logic.Command // zero for unknown keys
	Outcome logic.Outcome

	// First is the classification at the end of the confirm window.
	// Counters at that point are in FirstCounters.
	First         logic.Outcome
	FirstCounters logic.Counters

	// Escalated is set when First was not OK and the extra wait ran.
	// Counters then holds the values read after it.
	Escalated bool
	Counters  logic.Counters

	Started  time.Time
	Finished time.Time

	// EmitErr is the GPIO error that cut the press sequence short, if any.
	EmitErr error
}

// Known reports whether the key resolved to a command.
func (r Report) Known() bool {
	return r.Outcome != logic.OutcomeUnknownCommand
}

// Duration is how long the invocation took.
func (r Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Observer is told about invocation progress.
// Calls happen on the goroutine running Execute.
type Observer interface {
	StateChanged(key rune, state State)
	Resolved(r Report)
}
