package interfaces

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"fleet-cloud/internal/mq"
	"fleet-cloud/internal/observability/metrics"
	"fleet-cloud/internal/telemetry/application/events"
	telemetry "fleet-cloud/internal/telemetry/domain"
)

// HistoryConsumer persists telemetry.ingested events into the history
// store. Per message: validate shape, then append exactly one record.
//
// Failure policy: a structurally invalid payload is dropped (acked);
// redelivery cannot fix it. A store failure is requeued, which yields
// at-least-once persistence; a record may be written twice when the ack
// for a successful write is lost.
type HistoryConsumer struct {
	history telemetry.HistoryRepository
	logger  *log.Logger
}

// NewHistoryConsumer constructs the consumer.
func NewHistoryConsumer(history telemetry.HistoryRepository, logger *log.Logger) (*HistoryConsumer, error) {
	if history == nil {
		return nil, errors.New("history consumer: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &HistoryConsumer{history: history, logger: logger}, nil
}

// Handle processes one delivered event body.
func (c *HistoryConsumer) Handle(ctx context.Context, body []byte) error {
	event, err := events.DecodeTelemetryIngested(body)
	if err != nil {
		c.logger.Printf("telemetry.dropped reason=invalid_payload err=%v raw=%s", err, truncate(body, 512))
		metrics.ConsumerEventInc(metrics.ConsumerOutcomeDropped)
		return mq.Permanent(err)
	}

	record := telemetry.HistoryRecord{
		ID:      uuid.NewString(),
		RobotID: event.RobotID,
		Battery: int(event.Telemetry.Battery),
		Status:  event.Telemetry.Status,
		Lat:     event.Telemetry.Lat,
		Lng:     event.Telemetry.Lng,
	}
	if err := c.history.Append(ctx, record); err != nil {
		c.logger.Printf("telemetry.persist_failed robot=%s err=%v", event.RobotID, err)
		metrics.ConsumerEventInc(metrics.ConsumerOutcomeRequeued)
		return err
	}

	c.logger.Printf("telemetry.persisted robot=%s battery=%d status=%s", record.RobotID, record.Battery, record.Status)
	metrics.ConsumerEventInc(metrics.ConsumerOutcomePersisted)
	return nil
}

func truncate(body []byte, max int) string {
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
