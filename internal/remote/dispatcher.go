package remote

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/vent-remote/internal/gpio"
	"github.com/sweeney/vent-remote/internal/logic"
)

// Dispatcher executes one command at a time against the remote.
type Dispatcher struct {
	mu sync.Mutex

	driver   gpio.Driver
	monitor  *Monitor
	emitter  *Emitter
	sleep    func(time.Duration)
	now      func() time.Time
	observer Observer
	log      *log.Entry
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSleep replaces the blocking wait used for presses and windows.
func WithSleep(sleep func(time.Duration)) Option {
	return func(d *Dispatcher) { d.sleep = sleep }
}

// WithClock replaces the clock used to timestamp reports.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithObserver registers an observer for progress and results.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *log.Entry) Option {
	return func(d *Dispatcher) { d.log = l }
}

// NewDispatcher creates a dispatcher pressing buttons through driver and
// reading feedback from monitor. The monitor must be the board's edge handler.
func NewDispatcher(driver gpio.Driver, monitor *Monitor, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		driver:  driver,
		monitor: monitor,
		sleep:   wait,
		now:     time.Now,
		log:     log.WithField("component", "dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.emitter = NewEmitter(driver, d.sleep, d.log)
	return d
}

// wait blocks until the timer fires. Nothing can interrupt it.
func wait(d time.Duration) {
	t := time.NewTimer(d)
	<-t.C
}

// Execute runs the command bound to key and returns its outcome.
// Concurrent calls are serialised; an invocation always runs to completion.
func (d *Dispatcher) Execute(key rune) logic.Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()

	r := d.run(key)
	d.enter(key, StateResolved)

	entry := d.log.WithFields(log.Fields{
		"key":       string(key),
		"outcome":   r.Outcome.String(),
		"positive":  r.Counters.Positive,
		"fault":     r.Counters.Fault,
		"escalated": r.Escalated,
	})
	if r.Outcome == logic.OutcomeOK {
		entry.Info("command resolved")
	} else {
		entry.Warn("command resolved")
	}

	if d.observer != nil {
		d.observer.Resolved(r)
	}
	d.enter(key, StateIdle)
	return r.Outcome
}

func (d *Dispatcher) run(key rune) Report {
	r := Report{ID: uuid.NewString(), Key: key, Started: d.now()}

	d.enter(key, StateLookup)
	cmd, ok := logic.Lookup(key)
	if !ok {
		r.Outcome = logic.OutcomeUnknownCommand
		r.First = logic.OutcomeUnknownCommand
		r.Finished = d.now()
		return r
	}
	r.Command = cmd

	d.setBusy(true)
	defer d.setBusy(false)

	// Counting starts here; nothing before the first press may leak in.
	d.monitor.Reset()
	d.enter(key, StateEmitting)
	if err := d.emitter.Emit(cmd.Line, cmd.Presses); err != nil {
		r.EmitErr = err
		d.log.WithError(err).Errorf("emit %s", cmd.Line)
	}

	d.enter(key, StateWaitingConfirm)
	d.sleep(logic.ConfirmWindow(cmd.Presses))
	r.FirstCounters = d.monitor.Counters()
	r.First = logic.Classify(cmd.Presses, r.FirstCounters)
	r.Counters = r.FirstCounters
	r.Outcome = r.First

	if r.First != logic.OutcomeOK {
		d.log.Debugf("first classification %s (positive=%d fault=%d), waiting %v",
			r.First, r.FirstCounters.Positive, r.FirstCounters.Fault, logic.EscalationDelay)
		r.Escalated = true
		d.enter(key, StateWaitingExtra)
		d.sleep(logic.EscalationDelay)
		r.Counters = d.monitor.Counters()
		r.Outcome = logic.Classify(cmd.Presses, r.Counters)
	}

	r.Finished = d.now()
	return r
}

func (d *Dispatcher) enter(key rune, s State) {
	d.log.Debugf("%q: %s", key, s)
	if d.observer != nil {
		d.observer.StateChanged(key, s)
	}
}

func (d *Dispatcher) setBusy(on bool) {
	if err := d.driver.SetBusy(on); err != nil {
		d.log.WithError(err).Warn("busy lamp")
	}
}
