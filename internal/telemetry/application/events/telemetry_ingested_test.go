package events

import (
	"errors"
	"testing"
)

func TestDecodeTelemetryIngested_Valid(t *testing.T) {
	body := []byte(`{
		"eventType": "telemetry.ingested",
		"robotId": "A1",
		"telemetry": {"battery": 87, "status": "MOVING", "lat": 37.5665, "lng": 126.978},
		"receivedAt": "2026-08-28T10:00:00Z"
	}`)
	event, err := DecodeTelemetryIngested(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.RobotID != "A1" || event.Telemetry.Battery != 87 || event.Telemetry.Status != "MOVING" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Telemetry.Lat == nil || *event.Telemetry.Lat != 37.5665 {
		t.Fatalf("unexpected lat: %v", event.Telemetry.Lat)
	}
}

func TestDecodeTelemetryIngested_OptionalPosition(t *testing.T) {
	body := []byte(`{
		"eventType": "telemetry.ingested",
		"robotId": "A1",
		"telemetry": {"battery": 40, "status": "IDLE"},
		"receivedAt": "2026-08-28T10:00:00Z"
	}`)
	event, err := DecodeTelemetryIngested(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Telemetry.Lat != nil || event.Telemetry.Lng != nil {
		t.Fatal("expected nil position when absent")
	}
}

func TestDecodeTelemetryIngested_Invalid(t *testing.T) {
	cases := map[string][]byte{
		"battery as string": []byte(`{"eventType":"telemetry.ingested","robotId":"A1","telemetry":{"battery":"87","status":"MOVING"},"receivedAt":"2026-08-28T10:00:00Z"}`),
		"lat as string":     []byte(`{"eventType":"telemetry.ingested","robotId":"A1","telemetry":{"battery":87,"status":"MOVING","lat":"x"},"receivedAt":"2026-08-28T10:00:00Z"}`),
		"wrong event type":  []byte(`{"eventType":"telemetry.updated","robotId":"A1","telemetry":{"battery":87,"status":"MOVING"},"receivedAt":"2026-08-28T10:00:00Z"}`),
		"missing robot id":  []byte(`{"eventType":"telemetry.ingested","telemetry":{"battery":87,"status":"MOVING"},"receivedAt":"2026-08-28T10:00:00Z"}`),
		"missing receivedAt": []byte(`{"eventType":"telemetry.ingested","robotId":"A1","telemetry":{"battery":87,"status":"MOVING"}}`),
		"bad receivedAt":    []byte(`{"eventType":"telemetry.ingested","robotId":"A1","telemetry":{"battery":87,"status":"MOVING"},"receivedAt":"yesterday"}`),
		"empty status":      []byte(`{"eventType":"telemetry.ingested","robotId":"A1","telemetry":{"battery":87,"status":""},"receivedAt":"2026-08-28T10:00:00Z"}`),
		"fractional battery": []byte(`{"eventType":"telemetry.ingested","robotId":"A1","telemetry":{"battery":87.5,"status":"MOVING"},"receivedAt":"2026-08-28T10:00:00Z"}`),
		"telemetry scalar":  []byte(`{"eventType":"telemetry.ingested","robotId":"A1","telemetry":42,"receivedAt":"2026-08-28T10:00:00Z"}`),
	}
	for name, body := range cases {
		if _, err := DecodeTelemetryIngested(body); !errors.Is(err, ErrInvalidEvent) {
			t.Fatalf("%s: expected ErrInvalidEvent, got %v", name, err)
		}
	}
}
