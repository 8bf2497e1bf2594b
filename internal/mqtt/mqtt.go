// Package mqtt publishes command reports to MQTT and receives command keys
// from it, with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/sweeney/vent-remote/internal/remote"
)

// Topic is the MQTT topic for command reports.
const Topic = "home/ventilation/remote/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/ventilation/remote/system"

// TopicCommand is the MQTT topic command keys are received on.
const TopicCommand = "home/ventilation/remote/command"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a command report to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(r remote.Report) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// CommandSource delivers command keys received from the broker.
type CommandSource interface {
	Commands() <-chan rune
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Command CommandPayload `json:"command"`
}

// CommandPayload contains the report details.
type CommandPayload struct {
	ID         string `json:"id"`
	Timestamp  string `json:"timestamp"`
	Key        string `json:"key"`
	Help       string `json:"help,omitempty"`
	Presses    uint   `json:"presses"`
	Outcome    string `json:"outcome"`
	First      string `json:"first"`
	Escalated  bool   `json:"escalated"`
	Positive   uint32 `json:"positive"`
	Fault      uint32 `json:"fault"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// FormatPayload creates the JSON payload for a command report.
func FormatPayload(r remote.Report) ([]byte, error) {
	p := CommandPayload{
		ID:         r.ID,
		Timestamp:  r.Finished.UTC().Format(time.RFC3339),
		Key:        string(r.Key),
		Help:       r.Command.Help,
		Presses:    r.Command.Presses,
		Outcome:    r.Outcome.String(),
		First:      r.First.String(),
		Escalated:  r.Escalated,
		Positive:   r.Counters.Positive,
		Fault:      r.Counters.Fault,
		DurationMs: r.Duration().Milliseconds(),
	}
	if r.EmitErr != nil {
		p.Error = r.EmitErr.Error()
	}
	return json.Marshal(Payload{Command: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// ParseCommand extracts the command key from a command topic payload.
// The payload must be exactly one character, surrounding whitespace ignored.
func ParseCommand(payload []byte) (rune, error) {
	s := strings.TrimSpace(string(payload))
	if s == "" {
		return 0, errors.New("empty command")
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return 0, errors.Errorf("invalid command %q", s)
	}
	if size != len(s) {
		return 0, errors.Errorf("command %q is not a single key", s)
	}
	return r, nil
}
