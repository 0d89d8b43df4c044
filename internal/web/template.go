package web

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/sweeney/mono-kit/internal/status"
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
	"onOff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
	// pixels splits a "01011000" frame line into per-LED booleans.
	"pixels": func(line string) []bool {
		out := make([]bool, len(line))
		for i, c := range line {
			out[i] = c == '1'
		}
		return out
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Mono Kit</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.frame { border-collapse: separate; border-spacing: 3px; width: auto; background: #222; }
.frame td { width: 12px; height: 12px; padding: 0; border: 0; border-radius: 50%; background: #400; }
.frame td.lit { background: #f33; }
</style>
</head>
<body>
<h1>Mono Kit{{if .Config.Simulated}} (simulated){{end}}</h1>

<h2>Inputs</h2>
<table>
{{range .Inputs}}<tr><th>{{.Name}}</th><td class="{{if .Level}}on{{else}}off{{end}}">{{onOff .Level}}</td><td>{{.Count}} events</td></tr>
{{end}}<tr><th>Rotation</th><td colspan="2">{{.Kit.RotationCount}} / {{.Kit.RotationTarget}}</td></tr>
<tr><th>Pot</th><td colspan="2">{{.Kit.Pot}} (digit {{.Kit.Digit}})</td></tr>
<tr><th>Joystick</th><td colspan="2">{{.Kit.JoystickX}}, {{.Kit.JoystickY}}</td></tr>
<tr><th>Ready</th><td colspan="2">{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Matrix</h2>
<table class="frame">
{{range .Kit.Frame}}<tr>{{range pixels .}}<td{{if .}} class="lit"{{end}}></td>{{end}}</tr>
{{end}}</table>
<table>
<tr><th>Pattern</th><td>{{.Kit.Pattern}}{{if .Kit.Pinned}} (pinned){{end}}</td></tr>
<tr><th>Mode</th><td>{{.Kit.RenderMode}}</td></tr>
<tr><th>Sweeps</th><td>{{.Kit.Sweeps}}</td></tr>
</table>

<h2>Actuators</h2>
<table>
<tr><th>Servo</th><td>{{if lt .Kit.Servo 0}}idle{{else}}{{.Kit.Servo}}&deg;{{end}}</td></tr>
<tr><th>DC motor</th><td>{{.Kit.DC}}</td></tr>
<tr><th>Stepper phase</th><td>{{.Kit.StepperPhase}}</td></tr>
<tr><th>Buzzer</th><td>{{onOff .Kit.Buzzer}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMode}}{{if gt .Config.DebounceUs 0}} {{.Config.DebounceUs}}&micro;s{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> &middot; <a href="/metrics">metrics</a></p>
</body>
</html>
`

type inputRow struct {
	Name  string
	Level bool
	Count int
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	rows := make([]inputRow, 0, len(snap.Kit.Levels))
	for name, level := range snap.Kit.Levels {
		rows = append(rows, inputRow{Name: name, Level: level, Count: snap.Kit.Counts[name]})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Inputs []inputRow
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Inputs:   rows,
	}
	indexTmpl.Execute(w, data)
}
