// Package status provides a thread-safe status tracker for the vent-remote daemon.
// It is fed by the dispatcher and read by HTTP handlers and MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/vent-remote/internal/logic"
	"github.com/sweeney/vent-remote/internal/remote"
)

// NetworkInfo contains network state as written by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Chip     string
	Broker   string
	HTTPAddr string
	Console  bool
}

// Invocation is the displayable part of a finished remote.Report.
type Invocation struct {
	ID        string
	Key       rune
	Help      string
	Outcome   logic.Outcome
	First     logic.Outcome
	Escalated bool
	Counters  logic.Counters
	Finished  time.Time
	Duration  time.Duration
	Error     string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         remote.State
	Current       rune // key in flight; 0 when idle
	Last          *Invocation
	Totals        map[logic.Outcome]int
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Busy reports whether a command is in flight.
func (s Snapshot) Busy() bool {
	return s.Current != 0
}

// Tracker holds mutable daemon state behind an RWMutex.
// It implements remote.Observer.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     remote.StateIdle,
			Totals:    make(map[logic.Outcome]int),
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// StateChanged records the step of the invocation in flight.
func (t *Tracker) StateChanged(key rune, state remote.State) {
	t.mu.Lock()
	t.snap.State = state
	if state == remote.StateIdle {
		t.snap.Current = 0
	} else {
		t.snap.Current = key
	}
	t.mu.Unlock()
}

// Resolved records a finished invocation.
func (t *Tracker) Resolved(r remote.Report) {
	inv := &Invocation{
		ID:        r.ID,
		Key:       r.Key,
		Help:      r.Command.Help,
		Outcome:   r.Outcome,
		First:     r.First,
		Escalated: r.Escalated,
		Counters:  r.Counters,
		Finished:  r.Finished,
		Duration:  r.Duration(),
	}
	if r.EmitErr != nil {
		inv.Error = r.EmitErr.Error()
	}

	t.mu.Lock()
	t.snap.Last = inv
	t.snap.Totals[r.Outcome]++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Totals = make(map[logic.Outcome]int, len(t.snap.Totals))
	for k, v := range t.snap.Totals {
		s.Totals[k] = v
	}
	if t.snap.Last != nil {
		last := *t.snap.Last
		s.Last = &last
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
