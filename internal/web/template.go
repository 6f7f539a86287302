package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/rotary-sensor/internal/status"
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
	"dirClass": func(dir string) string {
		switch dir {
		case "CW":
			return "cw"
		case "CCW":
			return "ccw"
		}
		return "idle"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Rotary Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.cw { color: green; font-weight: bold; }
.ccw { color: blue; font-weight: bold; }
.idle { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Rotary Sensor</h1>

<h2>Encoder</h2>
<table>
<tr><th>Direction</th><td id="direction" class="{{dirClass .Direction}}">{{.Direction}}</td></tr>
<tr><th>Counter</th><td id="counter">{{.Snapshot.Reading.Counter}}</td></tr>
<tr><th>Gray code</th><td>{{.Snapshot.Reading.Previous}}</td></tr>
<tr><th>Samples</th><td>{{.Snapshot.Reading.Ticks}}</td></tr>
<tr><th>Line errors</th><td>{{.Snapshot.LineErrors}}</td></tr>
<tr><th>Ready</th><td>{{if .Snapshot.Primed}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .Snapshot.MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .Snapshot.MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Snapshot.Config.Broker}}{{.Snapshot.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Rotate</th><td>{{.Snapshot.Counts.Rotate}}</td></tr>
<tr><th>Direction</th><td>{{.Snapshot.Counts.Direction}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.Snapshot.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Lines</th><td>{{.Snapshot.Config.Backend}} {{.Snapshot.Config.Chip}} A={{.Snapshot.Config.PinA}} B={{.Snapshot.Config.PinB}} out={{.Snapshot.Config.PinOut}}</td></tr>
<tr><th>Sampling</th><td>{{printf "%.2f" .Snapshot.Config.SampleHz}} Hz ({{.Snapshot.Config.BaseClockHz}} / {{.Snapshot.Config.Divider}} / {{.Snapshot.Config.AlarmTicks}})</td></tr>
<tr><th>Poll</th><td>{{.Snapshot.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Snapshot.Config.HeartbeatMs 0}}disabled{{else}}{{.Snapshot.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Snapshot.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> <a href="/index.yaml">YAML</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	data := struct {
		Snapshot  status.Snapshot
		Uptime    time.Duration
		Direction string
	}{
		Snapshot:  snap,
		Uptime:    snap.Uptime(),
		Direction: snap.Reading.Direction().String(),
	}
	return indexTmpl.Execute(w, data)
}
