package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"fleet-cloud/internal/mq"
	"fleet-cloud/internal/presence"
	"fleet-cloud/internal/telemetry/application"
	"fleet-cloud/internal/telemetry/application/events"
	telemetry "fleet-cloud/internal/telemetry/domain"
	historymem "fleet-cloud/internal/telemetry/infrastructure/memory"
)

func newConsumerFixture(t *testing.T) (*mq.MemoryBus, *historymem.HistoryRepository) {
	t.Helper()
	bus := mq.NewMemoryBus()
	history := historymem.NewHistoryRepository()
	consumer, err := NewHistoryConsumer(history, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	if err := bus.Consume("telemetry.history.save", events.TypeTelemetryIngested, consumer.Handle); err != nil {
		t.Fatalf("bind: %v", err)
	}
	return bus, history
}

func validEventBody(t *testing.T, robotID string, battery int, status string) []byte {
	t.Helper()
	body, err := json.Marshal(events.TelemetryIngested{
		EventType:  events.TypeTelemetryIngested,
		RobotID:    robotID,
		Telemetry:  events.TelemetryPayload{Battery: float64(battery), Status: status},
		ReceivedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func TestConsumer_PersistsValidEvent(t *testing.T) {
	bus, history := newConsumerFixture(t)

	if err := bus.Publish(context.Background(), events.TypeTelemetryIngested, validEventBody(t, "A1", 87, "MOVING")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	records := history.All()
	if len(records) != 1 {
		t.Fatalf("expected exactly one history row, got %d", len(records))
	}
	record := records[0]
	if record.RobotID != "A1" || record.Battery != 87 || record.Status != "MOVING" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Lat != nil || record.Lng != nil {
		t.Fatal("expected null position when absent from event")
	}
	if record.ID == "" {
		t.Fatal("expected generated record id")
	}
}

func TestConsumer_MalformedEventDroppedNotRequeued(t *testing.T) {
	bus, history := newConsumerFixture(t)

	// battery as string: structurally invalid, redelivery cannot fix it.
	body := []byte(`{"eventType":"telemetry.ingested","robotId":"A1","telemetry":{"battery":"87","status":"MOVING"},"receivedAt":"2026-08-28T10:00:00Z"}`)
	_ = bus.Publish(context.Background(), events.TypeTelemetryIngested, body)

	if len(history.All()) != 0 {
		t.Fatal("malformed event must never reach the history store")
	}
	acked, dropped, requeued := bus.Counts()
	if dropped != 1 || requeued != 0 || acked != 0 {
		t.Fatalf("expected drop without requeue, got acked=%d dropped=%d requeued=%d", acked, dropped, requeued)
	}
}

func TestConsumer_UndecodableBodyDropped(t *testing.T) {
	bus, history := newConsumerFixture(t)

	_ = bus.Publish(context.Background(), events.TypeTelemetryIngested, []byte("%%% not json"))

	if len(history.All()) != 0 {
		t.Fatal("undecodable body must never reach the history store")
	}
	_, dropped, requeued := bus.Counts()
	if dropped != 1 || requeued != 0 {
		t.Fatalf("expected transport-level drop, got dropped=%d requeued=%d", dropped, requeued)
	}
}

func TestConsumer_StoreFailureRequeuedThenPersisted(t *testing.T) {
	bus, history := newConsumerFixture(t)
	history.FailNext(1, errors.New("connection refused"))

	_ = bus.Publish(context.Background(), events.TypeTelemetryIngested, validEventBody(t, "A1", 42, "CHARGING"))
	if len(history.All()) != 0 {
		t.Fatal("failed append must not store a row")
	}
	if _, _, requeued := bus.Counts(); requeued != 1 {
		t.Fatalf("expected event requeued after store failure, got %d", requeued)
	}

	if n := bus.Redeliver(context.Background()); n != 1 {
		t.Fatalf("expected one redelivery, got %d", n)
	}
	records := history.All()
	if len(records) < 1 {
		t.Fatal("expected at least one row after redelivery")
	}
	if records[0].Battery != 42 || records[0].Status != "CHARGING" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestConsumer_DuplicateDeliveryAccepted(t *testing.T) {
	// At-least-once: a redelivered event after a lost ack produces a
	// second row rather than an error.
	bus, history := newConsumerFixture(t)

	body := validEventBody(t, "A1", 30, "IDLE")
	_ = bus.Publish(context.Background(), events.TypeTelemetryIngested, body)
	_ = bus.Publish(context.Background(), events.TypeTelemetryIngested, body)

	if got := len(history.All()); got != 2 {
		t.Fatalf("expected both deliveries stored, got %d", got)
	}
	acked, _, _ := bus.Counts()
	if acked != 2 {
		t.Fatalf("expected both deliveries acked, got %d", acked)
	}
}

func TestEndToEnd_IngestThroughConsumer(t *testing.T) {
	bus, history := newConsumerFixture(t)
	cache := presence.NewMemoryCache()
	service, err := application.NewService(cache, bus, history, 60*time.Second, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := service.Ingest(context.Background(), "A1", telemetry.Report{Battery: 87, Status: "MOVING"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !result.OK || result.RobotID != "A1" || result.TTLSeconds != 60 {
		t.Fatalf("unexpected ingest result: %+v", result)
	}

	entry, ok, _ := cache.Get(context.Background(), "A1")
	if !ok || entry.Telemetry.Battery != 87 {
		t.Fatalf("expected cached report, ok=%v entry=%+v", ok, entry)
	}

	records := history.All()
	if len(records) != 1 {
		t.Fatalf("expected one history row, got %d", len(records))
	}
	if records[0].RobotID != "A1" || records[0].Battery != 87 || records[0].Status != "MOVING" {
		t.Fatalf("unexpected row: %+v", records[0])
	}
}
