package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/vent-remote/internal/logic"
	"github.com/sweeney/vent-remote/internal/remote"
)

func sampleReport() remote.Report {
	cmd, _ := logic.Lookup('c')
	start := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	return remote.Report{
		ID:            "4f9c1d1e-8c2b-4a53-9d7e-2a6b0c3e5f71",
		Key:           'c',
		Command:       cmd,
		Outcome:       logic.OutcomeMismatch,
		First:         logic.OutcomeMismatch,
		FirstCounters: logic.Counters{Positive: 3},
		Escalated:     true,
		Counters:      logic.Counters{Positive: 3},
		Started:       start,
		Finished:      start.Add(12 * time.Second),
	}
}

func TestFormatPayload(t *testing.T) {
	data, err := FormatPayload(sampleReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	c := p.Command
	if c.Key != "c" {
		t.Errorf("Key: got %q, want c", c.Key)
	}
	if c.Timestamp != "2026-01-15T10:30:12Z" {
		t.Errorf("Timestamp: got %q", c.Timestamp)
	}
	if c.Presses != 2 {
		t.Errorf("Presses: got %d, want 2", c.Presses)
	}
	if c.Outcome != "RESPONSE_MISMATCH" || c.First != "RESPONSE_MISMATCH" {
		t.Errorf("Outcome/First: got %q/%q", c.Outcome, c.First)
	}
	if !c.Escalated {
		t.Error("expected Escalated=true")
	}
	if c.Positive != 3 || c.Fault != 0 {
		t.Errorf("counters: got %d/%d, want 3/0", c.Positive, c.Fault)
	}
	if c.DurationMs != 12000 {
		t.Errorf("DurationMs: got %d, want 12000", c.DurationMs)
	}
	if strings.Contains(string(data), `"error"`) {
		t.Errorf("expected no error field, got %s", data)
	}
}

func TestFormatPayloadUnknownCommand(t *testing.T) {
	r := remote.Report{ID: "x", Key: 'z', Outcome: logic.OutcomeUnknownCommand, First: logic.OutcomeUnknownCommand}

	data, err := FormatPayload(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var p Payload
	json.Unmarshal(data, &p)

	if p.Command.Outcome != "UNKNOWN_COMMAND" {
		t.Errorf("Outcome: got %q", p.Command.Outcome)
	}
	if p.Command.Presses != 0 || p.Command.Help != "" {
		t.Errorf("unknown command should carry no command details: %+v", p.Command)
	}
}

func TestFormatPayloadEmitError(t *testing.T) {
	r := sampleReport()
	r.EmitErr = errors.New("press 1/2: line busy")

	data, _ := FormatPayload(r)
	var p Payload
	json.Unmarshal(data, &p)

	if p.Command.Error != "press 1/2: line busy" {
		t.Errorf("Error: got %q", p.Command.Error)
	}
}

func TestTopics(t *testing.T) {
	for _, topic := range []string{Topic, TopicSystem, TopicCommand} {
		if !strings.HasPrefix(topic, "home/ventilation/remote/") {
			t.Errorf("unexpected topic %q", topic)
		}
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	data, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"system":{"timestamp":"2026-01-15T10:30:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(data) != want {
		t.Errorf("payload mismatch:\ngot:  %s\nwant: %s", data, want)
	}
}

func TestFormatSystemPayloadOmitsReason(t *testing.T) {
	data, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE"})
	if strings.Contains(string(data), "reason") {
		t.Errorf("expected no reason field, got %s", data)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	data, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != string(raw) {
		t.Errorf("expected raw payload, got %s", data)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		payload string
		want    rune
		wantErr bool
	}{
		{"1", '1', false},
		{"c\n", 'c', false},
		{"  e ", 'e', false},
		{"z", 'z', false},
		{"ü", 'ü', false},
		{"", 0, true},
		{"   ", 0, true},
		{"12", 0, true},
		{"\xff", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseCommand([]byte(tt.payload))
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: err=%v, wantErr=%v", tt.payload, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.payload, got, tt.want)
		}
	}
}

func TestFakeClient(t *testing.T) {
	f := NewFakeClient()

	if err := f.Publish(sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.PublishedReports()) != 1 || len(f.Payloads) != 1 {
		t.Errorf("expected 1 report, got %d", len(f.PublishedReports()))
	}
	if len(f.PublishedSystemEvents()) != 1 || len(f.SystemPayloads) != 1 {
		t.Errorf("expected 1 system event, got %d", len(f.PublishedSystemEvents()))
	}

	f.Send('a')
	select {
	case key := <-f.Commands():
		if key != 'a' {
			t.Errorf("command: got %q, want a", key)
		}
	default:
		t.Error("expected a queued command")
	}

	f.Close()
	if !f.Closed {
		t.Error("expected Closed=true")
	}

	f.Reset()
	if len(f.Reports) != 0 || len(f.SystemEvents) != 0 || f.Closed {
		t.Error("Reset should clear state")
	}
}

func TestFakeClientErrors(t *testing.T) {
	f := NewFakeClient()
	f.PublishError = errors.New("broker down")
	f.PublishSystemError = errors.New("broker down")

	if err := f.Publish(sampleReport()); err == nil {
		t.Error("expected publish error")
	}
	if err := f.PublishSystem(SystemEvent{}); err == nil {
		t.Error("expected publish system error")
	}
	if len(f.Reports) != 0 || len(f.SystemEvents) != 0 {
		t.Error("failed publishes should not be recorded")
	}
}
