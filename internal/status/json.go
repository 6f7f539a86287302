package status

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/rotary-sensor/internal/logic"
)

// StatusJSON is the top-level envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status" yaml:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty" yaml:"event,omitempty"`
	Reason        string      `json:"reason,omitempty" yaml:"reason,omitempty"`
	Reading       ReadingJSON `json:"reading" yaml:"reading"`
	Ready         bool        `json:"ready" yaml:"ready"`
	UptimeSeconds int64       `json:"uptime_seconds" yaml:"uptime_seconds"`
	StartTime     string      `json:"start_time" yaml:"start_time"`
	Timestamp     string      `json:"timestamp" yaml:"timestamp"`
	LineErrors    uint64      `json:"line_errors" yaml:"line_errors"`
	MQTT          MQTTStatus  `json:"mqtt" yaml:"mqtt"`
	Counts        CountsJSON  `json:"event_counts" yaml:"event_counts"`
	Config        ConfigJSON  `json:"config" yaml:"config"`
}

// ReadingJSON is the representation of the decoder's shared state.
type ReadingJSON struct {
	Direction string `json:"direction" yaml:"direction"`
	Signal    int8   `json:"signal" yaml:"signal"`
	Counter   int64  `json:"counter" yaml:"counter"`
	Code      int8   `json:"code" yaml:"code"`
	Ticks     uint64 `json:"ticks" yaml:"ticks"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected" yaml:"connected"`
	Broker    string `json:"broker" yaml:"broker"`
}

// CountsJSON is the representation of event counts.
type CountsJSON struct {
	Rotate    int `json:"rotate" yaml:"rotate"`
	Direction int `json:"direction" yaml:"direction"`
}

// ConfigJSON is the representation of daemon config.
type ConfigJSON struct {
	Backend     string  `json:"backend" yaml:"backend"`
	Chip        string  `json:"chip" yaml:"chip"`
	PinA        int     `json:"pin_a" yaml:"pin_a"`
	PinB        int     `json:"pin_b" yaml:"pin_b"`
	PinOut      int     `json:"pin_out" yaml:"pin_out"`
	BaseClockHz uint64  `json:"base_clock_hz" yaml:"base_clock_hz"`
	Divider     uint64  `json:"divider" yaml:"divider"`
	AlarmTicks  uint64  `json:"alarm_ticks" yaml:"alarm_ticks"`
	SampleHz    float64 `json:"sample_hz" yaml:"sample_hz"`
	PollMs      int64   `json:"poll_ms" yaml:"poll_ms"`
	HeartbeatMs int64   `json:"heartbeat_ms" yaml:"heartbeat_ms"`
	Broker      string  `json:"broker" yaml:"broker"`
	Payload     string  `json:"payload,omitempty" yaml:"payload,omitempty"`
	HTTPAddr    string  `json:"http_addr" yaml:"http_addr"`
}

// NewReadingJSON converts a reading for output.
func NewReadingJSON(r logic.Reading) ReadingJSON {
	return ReadingJSON{
		Direction: r.Direction().String(),
		Signal:    int8(r.Signal),
		Counter:   r.Counter,
		Code:      int8(r.Previous),
		Ticks:     r.Ticks,
	}
}

func buildInner(snap Snapshot) StatusInner {
	c := snap.Config
	return StatusInner{
		Reading:       NewReadingJSON(snap.Reading),
		Ready:         snap.Primed,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		LineErrors:    snap.LineErrors,
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: c.Broker},
		Counts: CountsJSON{
			Rotate:    snap.Counts.Rotate,
			Direction: snap.Counts.Direction,
		},
		Config: ConfigJSON{
			Backend:     c.Backend,
			Chip:        c.Chip,
			PinA:        c.PinA,
			PinB:        c.PinB,
			PinOut:      c.PinOut,
			BaseClockHz: c.BaseClockHz,
			Divider:     c.Divider,
			AlarmTicks:  c.AlarmTicks,
			SampleHz:    c.SampleHz,
			PollMs:      c.PollMs,
			HeartbeatMs: c.HeartbeatMs,
			Broker:      c.Broker,
			Payload:     c.Payload,
			HTTPAddr:    c.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatYAML returns the same document as FormatJSON, in YAML.
func FormatYAML(snap Snapshot) ([]byte, error) {
	return yaml.Marshal(StatusJSON{Status: buildInner(snap)})
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// Output formats accepted by FormatLines.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// LineState is a single sample of both encoder inputs.
type LineState struct {
	A    string `json:"a" yaml:"a"`
	B    string `json:"b" yaml:"b"`
	Code int8   `json:"code" yaml:"code"`
}

// NewLineState builds a LineState from raw levels.
func NewLineState(a, b logic.Level) LineState {
	return LineState{A: a.String(), B: b.String(), Code: int8(logic.ToGrayCode(a, b))}
}

// FormatLines renders a line sample as text, JSON or YAML.
func FormatLines(ls LineState, format string) ([]byte, error) {
	switch format {
	case OutputText, "":
		return []byte(fmt.Sprintf("A=%s B=%s code=%d\n", ls.A, ls.B, ls.Code)), nil
	case OutputJSON:
		data, err := json.Marshal(ls)
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case OutputYAML:
		return yaml.Marshal(ls)
	default:
		return nil, fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}
