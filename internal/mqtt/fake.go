package mqtt

import (
	"sync"

	"github.com/sweeney/vent-remote/internal/remote"
)

// FakeClient records published events for test assertions and lets tests
// inject command keys.
type FakeClient struct {
	mu sync.Mutex

	// Reports contains all command reports that were published.
	Reports []remote.Report

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	commands chan rune
}

// NewFakeClient creates a FakeClient for testing.
func NewFakeClient() *FakeClient {
	return &FakeClient{commands: make(chan rune, 8)}
}

// Publish records the command report.
func (f *FakeClient) Publish(r remote.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(r)
	if err != nil {
		return err
	}
	f.Reports = append(f.Reports, r)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakeClient) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Send injects a command key as if it arrived on the command topic.
func (f *FakeClient) Send(key rune) {
	f.commands <- key
}

// Commands returns the injected command keys.
func (f *FakeClient) Commands() <-chan rune {
	return f.commands
}

// Close marks the client as closed.
func (f *FakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake client is "connected".
func (f *FakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// SetConnected changes the value reported by IsConnected.
func (f *FakeClient) SetConnected(connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Connected = connected
}

// PublishedReports returns a copy of the recorded reports.
func (f *FakeClient) PublishedReports() []remote.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remote.Report(nil), f.Reports...)
}

// PublishedPayloads returns a copy of the recorded report payloads.
func (f *FakeClient) PublishedPayloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.Payloads...)
}

// PublishedSystemEvents returns a copy of the recorded system events.
func (f *FakeClient) PublishedSystemEvents() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.SystemEvents...)
}

// Reset clears recorded events.
func (f *FakeClient) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reports = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
