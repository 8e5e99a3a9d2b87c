package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// TypeTelemetryIngested doubles as the event type tag and the topic
// routing key on the bus.
const TypeTelemetryIngested = "telemetry.ingested"

// TelemetryPayload is the nested telemetry body inside the event.
type TelemetryPayload struct {
	Battery float64  `json:"battery"`
	Status  string   `json:"status"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// TelemetryIngested is the wire envelope published once per accepted
// ingestion call.
type TelemetryIngested struct {
	EventType  string           `json:"eventType"`
	RobotID    string           `json:"robotId"`
	Telemetry  TelemetryPayload `json:"telemetry"`
	ReceivedAt string           `json:"receivedAt"`
}

// ErrInvalidEvent marks structural validation failures on decoded
// events. A message carrying this error will never become valid by
// redelivery and must be dropped.
var ErrInvalidEvent = errors.New("events: invalid telemetry.ingested payload")

// DecodeTelemetryIngested decodes and shape-checks an event body.
// Type mismatches (battery as string, telemetry as scalar) fail at
// decode; the explicit checks cover tags and required fields.
func DecodeTelemetryIngested(body []byte) (TelemetryIngested, error) {
	var event TelemetryIngested
	if err := json.Unmarshal(body, &event); err != nil {
		return TelemetryIngested{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if event.EventType != TypeTelemetryIngested {
		return TelemetryIngested{}, fmt.Errorf("%w: event type %q", ErrInvalidEvent, event.EventType)
	}
	if event.RobotID == "" {
		return TelemetryIngested{}, fmt.Errorf("%w: empty robotId", ErrInvalidEvent)
	}
	if event.ReceivedAt == "" {
		return TelemetryIngested{}, fmt.Errorf("%w: empty receivedAt", ErrInvalidEvent)
	}
	if _, err := time.Parse(time.RFC3339, event.ReceivedAt); err != nil {
		return TelemetryIngested{}, fmt.Errorf("%w: receivedAt %q", ErrInvalidEvent, event.ReceivedAt)
	}
	if event.Telemetry.Status == "" {
		return TelemetryIngested{}, fmt.Errorf("%w: empty status", ErrInvalidEvent)
	}
	// The history store keeps battery as an integer column; a fractional
	// value is structurally unwritable, same class as a wrong type.
	if event.Telemetry.Battery != math.Trunc(event.Telemetry.Battery) {
		return TelemetryIngested{}, fmt.Errorf("%w: non-integer battery %v", ErrInvalidEvent, event.Telemetry.Battery)
	}
	return event, nil
}
