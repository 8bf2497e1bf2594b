package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/sweeney/vent-remote/internal/console"
	"github.com/sweeney/vent-remote/internal/gpio"
	"github.com/sweeney/vent-remote/internal/logic"
	"github.com/sweeney/vent-remote/internal/mqtt"
	"github.com/sweeney/vent-remote/internal/remote"
	"github.com/sweeney/vent-remote/internal/status"
)

func init() {
	color.NoColor = true
}

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants, not the other way around.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfo(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")
	t.Setenv(envNetworkGateway, "")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}
	if info.IP != "192.168.1.100" {
		t.Errorf("IP: got %q", info.IP)
	}
	if info.SSID != "MyNetwork" {
		t.Errorf("SSID: got %q", info.SSID)
	}
	if info.Gateway != "" {
		t.Errorf("Gateway: got %q, want empty", info.Gateway)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	if info := readNetworkInfo(); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

// --- config tests ---

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Chip != "gpiochip0" {
		t.Errorf("Chip: got %q", cfg.Chip)
	}
	if cfg.Pins.pins() != gpio.DefaultPins {
		t.Errorf("Pins: got %+v, want defaults", cfg.Pins)
	}
	if cfg.HTTPAddr != ":80" || cfg.ClientID != "vent-remote" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfigFlags(t *testing.T) {
	cfg, err := loadConfig([]string{"--pin-timer", "12", "--client-id", "bench", "--no-console", "--debug"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pins.Timer != 12 {
		t.Errorf("Pins.Timer: got %d, want 12", cfg.Pins.Timer)
	}
	if cfg.Pins.Level1 != gpio.DefaultPins.Level1 {
		t.Errorf("Pins.Level1 should keep its default, got %d", cfg.Pins.Level1)
	}
	if cfg.ClientID != "bench" || !cfg.NoConsole || !cfg.Debug {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfigFileAndOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vent-remote.conf")
	ini := "[Application Options]\nbroker = tcp://broker.local:1883\nhttp = :8080\n\n[Pins]\npin-fault = 13\n"
	if err := os.WriteFile(path, []byte(ini), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig([]string{"--config", path, "--http", ":9090"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Broker != "tcp://broker.local:1883" {
		t.Errorf("Broker: got %q, want value from file", cfg.Broker)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr: got %q, command line should win", cfg.HTTPAddr)
	}
	if cfg.Pins.Fault != 13 {
		t.Errorf("Pins.Fault: got %d, want 13", cfg.Pins.Fault)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig([]string{"--config", filepath.Join(t.TempDir(), "nope.conf")}); err == nil {
		t.Error("expected error for missing config file")
	}
}

// --- run loop tests ---

type fakeExecutor struct {
	mu       sync.Mutex
	keys     []rune
	outcomes map[rune]logic.Outcome
}

func (f *fakeExecutor) Execute(key rune) logic.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	if o, ok := f.outcomes[key]; ok {
		return o
	}
	if _, ok := logic.Lookup(key); !ok {
		return logic.OutcomeUnknownCommand
	}
	return logic.OutcomeOK
}

func (f *fakeExecutor) executed() []rune {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]rune(nil), f.keys...)
}

func newTestLoop(exec executor, pub *mqtt.FakeClient, con *console.Console) *loop {
	tracker := status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{})
	l := &loop{
		dispatcher: exec,
		tracker:    tracker,
		console:    con,
		now:        func() time.Time { return time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC) },
	}
	if pub != nil {
		l.publisher = pub
		l.mqttStatus = pub
	}
	return l
}

func runAsync(l *loop, src sources) <-chan error {
	done := make(chan error, 1)
	go func() { done <- l.run(context.Background(), src) }()
	return done
}

func wait(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run loop did not return")
	}
}

func TestRunLoopShutdownOnSignal(t *testing.T) {
	pub := mqtt.NewFakeClient()
	pub.Connected = true
	l := newTestLoop(&fakeExecutor{}, pub, nil)

	sig := make(chan os.Signal, 1)
	sig <- syscall.SIGTERM
	wait(t, runAsync(l, sources{sig: sig}))

	events := pub.PublishedSystemEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(events))
	}
	if events[0].Event != "SHUTDOWN" || events[0].Reason != "SIGTERM" || !events[0].Retained {
		t.Errorf("unexpected event: %+v", events[0])
	}

	var parsed status.StatusJSON
	if err := json.Unmarshal(events[0].RawPayload, &parsed); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if !parsed.Status.MQTT.Connected {
		t.Error("shutdown snapshot should report MQTT connected")
	}
}

func TestRunLoopExecutesEveryFrontEnd(t *testing.T) {
	exec := &fakeExecutor{}
	pub := mqtt.NewFakeClient()
	l := newTestLoop(exec, pub, nil)

	httpQ := newKeyQueue(4)
	sig := make(chan os.Signal)
	done := runAsync(l, sources{mqtt: pub.Commands(), http: httpQ, sig: sig})

	pub.Send('1')
	if !httpQ.Enqueue('c') {
		t.Fatal("enqueue failed")
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(exec.executed()) < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	sig <- syscall.SIGINT
	wait(t, done)

	got := exec.executed()
	if len(got) != 2 {
		t.Fatalf("expected 2 executions, got %q", got)
	}
	if !strings.ContainsRune(string(got), '1') || !strings.ContainsRune(string(got), 'c') {
		t.Errorf("executed: got %q, want 1 and c", got)
	}
}

func TestRunLoopConsole(t *testing.T) {
	exec := &fakeExecutor{outcomes: map[rune]logic.Outcome{'c': logic.OutcomeMismatch}}
	var out bytes.Buffer
	con := console.New(strings.NewReader("?1cz"), &out)
	l := newTestLoop(exec, nil, con)

	sig := make(chan os.Signal)
	done := runAsync(l, sources{console: con.Keys(), sig: sig})

	deadline := time.Now().Add(2 * time.Second)
	for len(exec.executed()) < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	// Console EOF without ^C keeps the daemon running.
	sig <- syscall.SIGTERM
	wait(t, done)

	if got := string(exec.executed()); got != "1cz" {
		t.Errorf("executed: got %q, want 1cz", got)
	}

	text := out.String()
	for _, want := range []string{
		"> ?\n1: Low power mode\n",
		"?: Print this help message\n",
		"> 1\n1: Low power mode\n   waiting for confirmation (1 press)\naccepted\n",
		"> c\nc: High power mode for 30 minutes\n   waiting for confirmation (2 presses)\nerror: command not confirmed\n",
		"> z\nerror: unknown command\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("console output missing %q\ngot:\n%s", want, text)
		}
	}
}

func TestRunLoopConsoleQuit(t *testing.T) {
	pub := mqtt.NewFakeClient()
	con := console.New(strings.NewReader("\x03"), &bytes.Buffer{})
	l := newTestLoop(&fakeExecutor{}, pub, con)

	wait(t, runAsync(l, sources{console: con.Keys()}))

	events := pub.PublishedSystemEvents()
	if len(events) != 1 || events[0].Reason != "CONSOLE" {
		t.Errorf("expected SHUTDOWN/CONSOLE, got %+v", events)
	}
}

func TestRunLoopContextCancelled(t *testing.T) {
	l := newTestLoop(&fakeExecutor{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.run(ctx, sources{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunLoopTickRefreshesMQTTStatus(t *testing.T) {
	pub := mqtt.NewFakeClient()
	l := newTestLoop(&fakeExecutor{}, pub, nil)

	tick := make(chan time.Time)
	sig := make(chan os.Signal)
	done := runAsync(l, sources{tick: tick, sig: sig})

	pub.SetConnected(true)
	tick <- time.Now()
	sig <- syscall.SIGTERM
	wait(t, done)

	if !l.tracker.Snapshot().MQTTConnected {
		t.Error("expected tick to refresh MQTT status")
	}
}

func TestStartupEvent(t *testing.T) {
	pub := mqtt.NewFakeClient()
	l := newTestLoop(&fakeExecutor{}, pub, nil)
	l.startup()

	events := pub.PublishedSystemEvents()
	if len(events) != 1 || events[0].Event != "STARTUP" {
		t.Fatalf("expected STARTUP event, got %+v", events)
	}
	if !strings.Contains(string(pub.SystemPayloads[0]), `"event":"STARTUP"`) {
		t.Errorf("payload: got %s", pub.SystemPayloads[0])
	}
}

func TestPublishErrorDoesNotStopLoop(t *testing.T) {
	pub := mqtt.NewFakeClient()
	pub.PublishSystemError = errors.New("broker down")
	l := newTestLoop(&fakeExecutor{}, pub, nil)

	sig := make(chan os.Signal, 1)
	sig <- syscall.SIGINT
	wait(t, runAsync(l, sources{sig: sig}))
}

func TestKeyQueue(t *testing.T) {
	q := newKeyQueue(1)
	if !q.Enqueue('1') {
		t.Error("first enqueue should succeed")
	}
	if q.Enqueue('2') {
		t.Error("enqueue on a full queue should fail")
	}
	if got := <-q; got != '1' {
		t.Errorf("got %q, want 1", got)
	}
}

func TestReporterPublishes(t *testing.T) {
	pub := mqtt.NewFakeClient()
	tracker := status.NewTracker(time.Now(), status.Config{})
	rep := reporter{tracker: tracker, publisher: pub}

	rep.StateChanged('1', remote.StateEmitting)
	if !tracker.Snapshot().Busy() {
		t.Error("tracker should see the command in flight")
	}

	rep.Resolved(remote.Report{ID: "x", Key: '1', Outcome: logic.OutcomeOK})
	if len(pub.PublishedReports()) != 1 {
		t.Error("expected the report to be published")
	}
	if tracker.Snapshot().Totals[logic.OutcomeOK] != 1 {
		t.Error("expected the tracker to count the report")
	}

	// No broker: only the tracker is fed.
	reporter{tracker: tracker}.Resolved(remote.Report{Key: '2', Outcome: logic.OutcomeOK})
	if tracker.Snapshot().Totals[logic.OutcomeOK] != 2 {
		t.Error("expected the tracker to count the second report")
	}
}

func TestSignalName(t *testing.T) {
	if signalName(syscall.SIGINT) != "SIGINT" || signalName(syscall.SIGTERM) != "SIGTERM" {
		t.Error("unexpected signal names")
	}
	if signalName(syscall.SIGHUP) != "UNKNOWN" {
		t.Error("expected UNKNOWN for SIGHUP")
	}
}
