package status

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/rotary-sensor/internal/logic"
)

func testConfig() Config {
	return Config{
		Backend:     "gpiocdev",
		Chip:        "gpiochip0",
		PinA:        17,
		PinB:        27,
		PinOut:      22,
		BaseClockHz: 80_000_000,
		Divider:     20,
		AlarmTicks:  80_000,
		SampleHz:    50,
		PollMs:      1000,
		HeartbeatMs: 900000,
		Broker:      "tcp://localhost:1883",
		Payload:     "json",
		HTTPAddr:    ":80",
	}
}

func testSnapshot() Snapshot {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return Snapshot{
		Reading:       logic.Reading{Previous: 3, Signal: logic.SignalAntiClockwise, Counter: -12, Ticks: 45000},
		Primed:        true,
		Counts:        logic.EventCounts{Rotate: 5, Direction: 2},
		LineErrors:    1,
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        testConfig(),
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(start, testConfig())

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PollMs != 1000 {
		t.Errorf("Config.PollMs: got %d, want 1000", snap.Config.PollMs)
	}
	if snap.Config.HTTPAddr != ":80" {
		t.Errorf("Config.HTTPAddr: got %q, want %q", snap.Config.HTTPAddr, ":80")
	}
	if snap.Primed {
		t.Error("expected Primed=false initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	r := logic.Reading{Previous: 2, Signal: logic.SignalClockwise, Counter: 7, Ticks: 100}
	tr.Update(r, true, logic.EventCounts{Rotate: 3}, 4)

	snap := tr.Snapshot()
	if snap.Reading != r {
		t.Errorf("Reading: got %+v, want %+v", snap.Reading, r)
	}
	if !snap.Primed {
		t.Error("expected Primed=true")
	}
	if snap.Counts.Rotate != 3 {
		t.Errorf("Counts.Rotate: got %d, want 3", snap.Counts.Rotate)
	}
	if snap.LineErrors != 4 {
		t.Errorf("LineErrors: got %d, want 4", snap.LineErrors)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	snap := testSnapshot()
	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(logic.Reading{Counter: 1}, true, logic.EventCounts{Rotate: 1}, 0)

	snap1 := tr.Snapshot()

	tr.Update(logic.Reading{Counter: 9}, true, logic.EventCounts{Rotate: 2}, 0)

	if snap1.Reading.Counter != 1 {
		t.Error("snapshot should be a copy; Reading was modified")
	}
	if snap1.Counts.Rotate != 1 {
		t.Error("snapshot should be a copy; Counts was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	data := FormatJSON(testSnapshot())

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.Reading.Direction != "CCW" {
		t.Errorf("Reading.Direction: got %q, want CCW", s.Reading.Direction)
	}
	if s.Reading.Signal != -1 {
		t.Errorf("Reading.Signal: got %d, want -1", s.Reading.Signal)
	}
	if s.Reading.Counter != -12 {
		t.Errorf("Reading.Counter: got %d, want -12", s.Reading.Counter)
	}
	if s.Reading.Code != 3 {
		t.Errorf("Reading.Code: got %d, want 3", s.Reading.Code)
	}
	if s.Reading.Ticks != 45000 {
		t.Errorf("Reading.Ticks: got %d, want 45000", s.Reading.Ticks)
	}
	if !s.Ready {
		t.Error("expected Ready=true")
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if s.LineErrors != 1 {
		t.Errorf("LineErrors: got %d, want 1", s.LineErrors)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if s.Counts.Rotate != 5 || s.Counts.Direction != 2 {
		t.Errorf("Counts: got %+v, want rotate=5 direction=2", s.Counts)
	}
	if s.Config.SampleHz != 50 {
		t.Errorf("Config.SampleHz: got %v, want 50", s.Config.SampleHz)
	}
	if s.Config.AlarmTicks != 80_000 {
		t.Errorf("Config.AlarmTicks: got %d, want 80000", s.Config.AlarmTicks)
	}
	// Event and Reason should be omitted
	if s.Event != "" || s.Reason != "" {
		t.Errorf("expected empty event/reason for web format, got %q/%q", s.Event, s.Reason)
	}
}

func TestFormatJSONNotPrimed(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Status.Ready {
		t.Error("expected Ready=false")
	}
	if parsed.Status.Reading.Direction != "NONE" {
		t.Errorf("Reading.Direction: got %q, want NONE", parsed.Status.Reading.Direction)
	}
}

func TestFormatYAMLMatchesJSON(t *testing.T) {
	snap := testSnapshot()

	data, err := FormatYAML(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var fromYAML, fromJSON StatusJSON
	if err := yaml.Unmarshal(data, &fromYAML); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	json.Unmarshal(FormatJSON(snap), &fromJSON)

	if fromYAML != fromJSON {
		t.Errorf("YAML and JSON disagree:\nyaml: %+v\njson: %+v", fromYAML, fromJSON)
	}
	if !strings.Contains(string(data), "direction: CCW") {
		t.Errorf("expected direction key in YAML:\n%s", data)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Reading.Counter != -12 {
		t.Errorf("Reading.Counter: got %d, want -12", parsed.Status.Reading.Counter)
	}
	if strings.Contains(string(data), "\n") {
		t.Error("MQTT payload should be compact")
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "STARTUP", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestNewLineState(t *testing.T) {
	tests := []struct {
		a, b     logic.Level
		wantA    string
		wantB    string
		wantCode int8
	}{
		{logic.Low, logic.Low, "LOW", "LOW", 0},
		{logic.Low, logic.High, "LOW", "HIGH", 1},
		{logic.High, logic.High, "HIGH", "HIGH", 2},
		{logic.High, logic.Low, "HIGH", "LOW", 3},
	}

	for _, tt := range tests {
		ls := NewLineState(tt.a, tt.b)
		if ls.A != tt.wantA || ls.B != tt.wantB || ls.Code != tt.wantCode {
			t.Errorf("NewLineState(%v, %v): got %+v", tt.a, tt.b, ls)
		}
	}
}

func TestFormatLines(t *testing.T) {
	ls := NewLineState(logic.High, logic.Low)

	tests := []struct {
		format string
		want   string
	}{
		{"text", "A=HIGH B=LOW code=3\n"},
		{"", "A=HIGH B=LOW code=3\n"},
		{"json", `{"a":"HIGH","b":"LOW","code":3}` + "\n"},
		{"yaml", "a: HIGH\nb: LOW\ncode: 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := FormatLines(ls, tt.format)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := FormatLines(ls, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(logic.Reading{Counter: int64(i)}, true, logic.EventCounts{Rotate: i}, 0)
			tr.SetMQTTConnected(i%2 == 0)
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
		}
	}()

	wg.Wait()
}
