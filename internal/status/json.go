package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/vent-remote/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string          `json:"event,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	State         string          `json:"state"`
	Current       string          `json:"current,omitempty"`
	Last          *InvocationJSON `json:"last,omitempty"`
	Totals        map[string]int  `json:"totals"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     string          `json:"start_time"`
	Timestamp     string          `json:"timestamp"`
	MQTT          MQTTStatus      `json:"mqtt"`
	Network       *NetworkJSON    `json:"network,omitempty"`
	Config        ConfigJSON      `json:"config"`
}

// InvocationJSON is the JSON representation of the last invocation.
type InvocationJSON struct {
	ID         string `json:"id"`
	Key        string `json:"key"`
	Help       string `json:"help,omitempty"`
	Outcome    string `json:"outcome"`
	First      string `json:"first"`
	Escalated  bool   `json:"escalated"`
	Positive   uint32 `json:"positive"`
	Fault      uint32 `json:"fault"`
	Finished   string `json:"finished"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip     string `json:"chip"`
	Broker   string `json:"broker"`
	HTTPAddr string `json:"http_addr"`
	Console  bool   `json:"console"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		State:         string(snap.State),
		Totals:        make(map[string]int, len(logic.Outcomes)),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			Chip:     snap.Config.Chip,
			Broker:   snap.Config.Broker,
			HTTPAddr: snap.Config.HTTPAddr,
			Console:  snap.Config.Console,
		},
	}
	if snap.Busy() {
		inner.Current = string(snap.Current)
	}
	// Every outcome is listed, zero or not.
	for _, o := range logic.Outcomes {
		inner.Totals[o.String()] = snap.Totals[o]
	}
	if l := snap.Last; l != nil {
		inner.Last = &InvocationJSON{
			ID:         l.ID,
			Key:        string(l.Key),
			Help:       l.Help,
			Outcome:    l.Outcome.String(),
			First:      l.First.String(),
			Escalated:  l.Escalated,
			Positive:   l.Counters.Positive,
			Fault:      l.Counters.Fault,
			Finished:   l.Finished.UTC().Format(time.RFC3339),
			DurationMs: l.Duration.Milliseconds(),
			Error:      l.Error,
		}
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
