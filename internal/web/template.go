package web

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sweeney/vent-remote/internal/logic"
	"github.com/sweeney/vent-remote/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"key": func(r rune) string { return string(r) },
	"outcomeClass": func(o logic.Outcome) string {
		if o == logic.OutcomeOK {
			return "ok"
		}
		return "fail"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
{{if .Busy}}<meta http-equiv="refresh" content="2">{{end}}
<title>Ventilation Remote</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; font-weight: bold; }
.fail { color: red; font-weight: bold; }
.busy { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
form { display: inline; }
</style>
</head>
<body>
<h1>Ventilation Remote</h1>

<h2>State</h2>
<table>
<tr><th>Dispatcher</th><td{{if .Busy}} class="busy"{{end}}>{{.State}}{{if .Busy}} ({{key .Current}}){{end}}</td></tr>
{{with .Last}}<tr><th>Last command</th><td>{{key .Key}}{{if .Help}}: {{.Help}}{{end}}</td></tr>
<tr><th>Outcome</th><td class="{{outcomeClass .Outcome}}">{{.Outcome.Message}}{{if .Escalated}} (after extra wait){{end}}</td></tr>
<tr><th>Pulses</th><td>positive {{.Counters.Positive}}, fault {{.Counters.Fault}}</td></tr>
<tr><th>Finished</th><td>{{.Finished.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
{{if .Error}}<tr><th>Error</th><td class="fail">{{.Error}}</td></tr>{{end}}{{end}}
</table>

<h2>Commands</h2>
<table>
{{range .Commands}}<tr><th>{{key .Key}}</th><td>{{.Help}}{{if $.Submit}} <form method="post" action="/command"><input type="hidden" name="key" value="{{key .Key}}"><button{{if $.Busy}} disabled{{end}}>send</button></form>{{end}}</td></tr>
{{end}}</table>

<h2>Totals</h2>
<table>
{{range .Outcomes}}<tr><th>{{.Message}}</th><td>{{index $.Totals .}}</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>GPIO chip</th><td>{{.Config.Chip}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, submit bool) {
	// Snapshot has Uptime() and Busy() methods but the template wants fields.
	data := struct {
		status.Snapshot
		Uptime   time.Duration
		Busy     bool
		Submit   bool
		Commands []logic.Command
		Outcomes []logic.Outcome
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Busy:     snap.Busy(),
		Submit:   submit,
		Commands: logic.Commands,
		Outcomes: logic.Outcomes,
	}
	indexTmpl.Execute(w, data)
}

func acceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
