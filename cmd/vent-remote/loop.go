package main

import (
	"context"
	"os"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/vent-remote/internal/console"
	"github.com/sweeney/vent-remote/internal/logic"
	"github.com/sweeney/vent-remote/internal/mqtt"
	"github.com/sweeney/vent-remote/internal/remote"
	"github.com/sweeney/vent-remote/internal/status"
)

// statusInterval is how often connectivity is refreshed in the tracker.
const statusInterval = 5 * time.Second

// executor is the dispatcher as seen by the run loop.
type executor interface {
	Execute(key rune) logic.Outcome
}

// keyQueue buffers keys submitted over HTTP.
type keyQueue chan rune

func newKeyQueue(size int) keyQueue {
	return make(keyQueue, size)
}

// Enqueue queues key unless the queue is full.
func (q keyQueue) Enqueue(key rune) bool {
	select {
	case q <- key:
		return true
	default:
		return false
	}
}

// reporter forwards dispatcher progress to the tracker and the broker.
type reporter struct {
	tracker   *status.Tracker
	publisher mqtt.Publisher // nil when MQTT is disabled
}

func (r reporter) StateChanged(key rune, state remote.State) {
	r.tracker.StateChanged(key, state)
}

func (r reporter) Resolved(rep remote.Report) {
	r.tracker.Resolved(rep)
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(rep); err != nil {
		log.WithError(err).Warn("publish report")
	}
}

// sources are the inputs of the run loop. A nil channel disables that input.
type sources struct {
	console <-chan rune
	mqtt    <-chan rune
	http    <-chan rune
	tick    <-chan time.Time
	sig     <-chan os.Signal
}

// loop serialises every front-end onto the one dispatcher, so invocations
// never overlap.
type loop struct {
	dispatcher executor
	publisher  mqtt.Publisher        // nil when MQTT is disabled
	mqttStatus mqtt.ConnectionStatus // nil when MQTT is disabled
	tracker    *status.Tracker
	console    *console.Console // nil when the console is disabled
	now        func() time.Time
}

func (l *loop) run(ctx context.Context, src sources) error {
	if l.console != nil {
		l.console.Prompt()
	}

	for {
		select {
		case <-ctx.Done():
			l.shutdown("CANCELLED")
			return nil

		case s := <-src.sig:
			log.Infof("received %v, shutting down", s)
			l.shutdown(signalName(s))
			return nil

		case key, ok := <-src.console:
			if !ok {
				src.console = nil
				if l.console.Quit() {
					l.shutdown("CONSOLE")
					return nil
				}
				log.Info("console input closed")
				continue
			}
			l.console.Echo(key)
			l.handleConsole(key)
			l.console.Prompt()

		case key := <-src.mqtt:
			l.execute(key, "mqtt")

		case key := <-src.http:
			l.execute(key, "http")

		case <-src.tick:
			l.refresh()
		}
	}
}

func (l *loop) handleConsole(key rune) {
	if key == logic.HelpKey {
		l.console.Help()
		return
	}
	if cmd, ok := logic.Lookup(key); ok {
		l.console.Announce(cmd)
		l.console.Waiting(cmd)
	}
	l.console.Result(l.execute(key, "console"))
}

func (l *loop) execute(key rune, source string) logic.Outcome {
	log.WithFields(log.Fields{"key": string(key), "source": source}).Info("executing command")
	return l.dispatcher.Execute(key)
}

func (l *loop) refresh() {
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
	if net := readNetworkInfo(); net != nil {
		l.tracker.SetNetwork(net)
	}
}

// startup publishes the STARTUP event with a full status snapshot.
func (l *loop) startup() {
	l.publishSystem("STARTUP", "")
}

// shutdown publishes the SHUTDOWN event with a full status snapshot.
func (l *loop) shutdown(reason string) {
	l.publishSystem("SHUTDOWN", reason)
}

func (l *loop) publishSystem(event, reason string) {
	if l.publisher == nil {
		return
	}
	l.refresh()
	snap := l.tracker.Snapshot()
	e := mqtt.SystemEvent{
		Timestamp:  l.now(),
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := l.publisher.PublishSystem(e); err != nil {
		log.WithError(err).Warnf("publish %s event", event)
		return
	}
	log.Infof("published %s event", event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
