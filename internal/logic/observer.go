package logic

import "time"

// Observer turns successive readings of SharedState into events. It runs in
// the main context only and never writes to SharedState.
type Observer struct {
	startTime     time.Time
	last          Reading
	primed        bool
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewObserver creates an observer. The startTime is used for calculating
// uptime in heartbeat events.
func NewObserver(startTime time.Time) *Observer {
	return &Observer{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes a new reading and returns any events that should be emitted.
// The first reading only establishes the reference point.
func (o *Observer) Process(r Reading, now time.Time) []Event {
	if !o.primed {
		o.last = r
		o.primed = true
		return nil
	}

	prev := o.last
	o.last = r

	var events []Event

	if steps := r.Counter - prev.Counter; steps != 0 {
		// Net movement decides the direction; the signal may already be back
		// at NONE if the knob stopped between polls.
		dir := Clockwise
		if steps < 0 {
			dir = AntiClockwise
		}
		events = append(events, Event{
			Timestamp: now,
			Type:      EventRotate,
			Direction: dir,
			Counter:   r.Counter,
			Steps:     steps,
			Code:      r.Previous,
		})
		o.eventCounts.Rotate++
	} else if r.Signal != prev.Signal {
		events = append(events, Event{
			Timestamp: now,
			Type:      EventDirection,
			Direction: r.Direction(),
			Counter:   r.Counter,
			Code:      r.Previous,
		})
		o.eventCounts.Direction++
	}

	return events
}

// IsPrimed returns whether the observer has taken its reference reading.
func (o *Observer) IsPrimed() bool {
	return o.primed
}

// Last returns the most recent reading passed to Process.
func (o *Observer) Last() Reading {
	return o.last
}

// EventCountsSnapshot returns a copy of the event counters.
func (o *Observer) EventCountsSnapshot() EventCounts {
	return o.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet primed, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (o *Observer) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !o.primed {
		return nil
	}

	if now.Sub(o.lastHeartbeat) < interval {
		return nil
	}

	o.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(o.startTime),
		Reading:   o.last,
		Counts:    o.eventCounts,
	}
}
