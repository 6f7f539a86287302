// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/sweeney/rotary-sensor/internal/logic"
)

// Topic is the MQTT topic for rotation events.
const Topic = "sensors/rotary/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "sensors/rotary/system"

// Encoding selects the wire format of event payloads.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingCBOR Encoding = "cbor"
)

// ParseEncoding validates an encoding name from the command line.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case EncodingJSON, EncodingCBOR:
		return Encoding(s), nil
	}
	return "", fmt.Errorf("unknown payload encoding %q (want json or cbor)", s)
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a rotation event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// eventEncMode encodes CBOR payloads deterministically so identical events
// produce identical bytes.
var eventEncMode cbor.EncMode

func init() {
	var err error
	eventEncMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("mqtt: cbor encoder mode: %v", err))
	}
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Rotary RotaryPayload `json:"rotary" cbor:"rotary"`
}

// RotaryPayload contains the rotation event details.
type RotaryPayload struct {
	Timestamp string `json:"timestamp" cbor:"timestamp"`
	Event     string `json:"event" cbor:"event"`
	Direction string `json:"direction" cbor:"direction"`
	Counter   int64  `json:"counter" cbor:"counter"`
	Steps     int64  `json:"steps" cbor:"steps"`
	Code      int8   `json:"code" cbor:"code"`
}

func newPayload(event logic.Event) Payload {
	return Payload{
		Rotary: RotaryPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Direction: event.Direction.String(),
			Counter:   event.Counter,
			Steps:     event.Steps,
			Code:      int8(event.Code),
		},
	}
}

// FormatPayload creates the payload for a rotation event in the given encoding.
// An empty encoding means JSON.
func FormatPayload(event logic.Event, enc Encoding) ([]byte, error) {
	payload := newPayload(event)
	switch enc {
	case EncodingJSON, "":
		return json.Marshal(payload)
	case EncodingCBOR:
		return eventEncMode.Marshal(payload)
	default:
		return nil, fmt.Errorf("unknown payload encoding %q", enc)
	}
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
