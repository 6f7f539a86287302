// Package logic contains the pure quadrature decoding logic and the shared
// state that carries its results out of the sampling context.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Level is the logic level of a single input line.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// String returns "HIGH" or "LOW".
func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// GrayCode is the joint state of the two encoder lines, in {0,1,2,3}.
// Consecutive detent positions differ by exactly one modulo 4.
type GrayCode int8

// Direction is the classified rotation between two consecutive samples.
type Direction uint8

const (
	None Direction = iota
	Clockwise
	AntiClockwise
)

// String returns "NONE", "CW" or "CCW".
func (d Direction) String() string {
	switch d {
	case Clockwise:
		return "CW"
	case AntiClockwise:
		return "CCW"
	default:
		return "NONE"
	}
}

// Signal returns the externally observable encoding of d.
func (d Direction) Signal() Signal {
	switch d {
	case Clockwise:
		return SignalClockwise
	case AntiClockwise:
		return SignalAntiClockwise
	default:
		return SignalNone
	}
}

// Signal is the tri-state encoding of the last direction published by the
// sampling context. The sign matches the counter delta of that direction.
type Signal int8

const (
	SignalAntiClockwise Signal = -1
	SignalNone          Signal = 0
	SignalClockwise     Signal = 1
)

// Direction decodes s. Unknown values decode to None.
func (s Signal) Direction() Direction {
	switch s {
	case SignalClockwise:
		return Clockwise
	case SignalAntiClockwise:
		return AntiClockwise
	default:
		return None
	}
}

// Reading is a point-in-time copy of SharedState taken by an observer.
type Reading struct {
	Previous GrayCode
	Signal   Signal
	Counter  int64
	Ticks    uint64
}

// Direction returns the decoded direction of the reading's signal.
func (r Reading) Direction() Direction {
	return r.Signal.Direction()
}

// EventType represents an observer event.
type EventType string

const (
	// EventRotate is emitted when the counter moved since the last poll.
	EventRotate EventType = "ROTATE"
	// EventDirection is emitted when only the direction signal changed.
	EventDirection EventType = "DIRECTION"
)

// Event represents an observed change to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Direction Direction
	Counter   int64
	Steps     int64 // counter delta since the previous poll
	Code      GrayCode
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Rotate    int
	Direction int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Reading   Reading
	Counts    EventCounts
}
