// Package status provides a thread-safe status tracker for the rotary-sensor daemon.
// It is written by the observer loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/rotary-sensor/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Backend     string
	Chip        string
	PinA        int
	PinB        int
	PinOut      int
	BaseClockHz uint64
	Divider     uint64
	AlarmTicks  uint64
	SampleHz    float64 // effective rate derived from the three above
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	Payload     string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Reading       logic.Reading
	Primed        bool
	Counts        logic.EventCounts
	LineErrors    uint64
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the latest reading, observer state and line error count.
// Called from runLoop on every poll.
func (t *Tracker) Update(r logic.Reading, primed bool, counts logic.EventCounts, lineErrors uint64) {
	t.mu.Lock()
	t.snap.Reading = r
	t.snap.Primed = primed
	t.snap.Counts = counts
	t.snap.LineErrors = lineErrors
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
